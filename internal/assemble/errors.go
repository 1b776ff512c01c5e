package assemble

import "errors"

var (
	// ErrEmptySelection is returned by AssembleSelection when no attached
	// element is selected. Nothing is delivered.
	ErrEmptySelection = errors.New("no elements selected")
	ErrNoDocument     = errors.New("no live document")
)
