package command

import (
	"errors"

	"github.com/edgecomet/pagesaver/internal/assemble"
	"github.com/edgecomet/pagesaver/internal/session"
)

var (
	ErrUnknownAction = errors.New("Unknown action")
	ErrMissingField  = errors.New("missing field")
)

// Condition names reported to callers in the "code" field.
const (
	CodeUnknownAction  = "UnknownAction"
	CodeEmptySelection = "EmptySelection"
	CodeNoPage         = "NoPage"
	CodeInvalidRequest = "InvalidRequest"
	CodeInternal       = "Internal"
)

// Code maps a dispatch error to its condition name.
func Code(err error) string {
	switch {
	case errors.Is(err, ErrUnknownAction):
		return CodeUnknownAction
	case errors.Is(err, assemble.ErrEmptySelection):
		return CodeEmptySelection
	case errors.Is(err, session.ErrNoPage):
		return CodeNoPage
	case errors.Is(err, ErrMissingField),
		errors.Is(err, session.ErrInvalidSelector),
		errors.Is(err, session.ErrNotSelecting):
		return CodeInvalidRequest
	default:
		return CodeInternal
	}
}
