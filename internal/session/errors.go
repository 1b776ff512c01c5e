package session

import "errors"

var (
	ErrNoPage          = errors.New("no page loaded")
	ErrInvalidSelector = errors.New("invalid selector")
	ErrNotSelecting    = errors.New("selection mode is not active")
)
