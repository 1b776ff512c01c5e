package pdfservice

import "errors"

var (
	ErrInvalidRequest = errors.New("invalid conversion request")
	ErrSourceNotFound = errors.New("html file not found")
	ErrInvalidPDF     = errors.New("rendered output is not a valid pdf")
	ErrClosed         = errors.New("renderer is closed")
)
