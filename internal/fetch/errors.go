package fetch

import "errors"

var (
	// ErrResourceFetch covers network errors, non-2xx statuses and empty bodies.
	ErrResourceFetch = errors.New("resource fetch failed")
	// ErrCrossOriginDenied means the response arrived but CORS forbids reading it.
	ErrCrossOriginDenied = errors.New("cross-origin access denied")
	ErrTooLarge          = errors.New("resource exceeds size limit")
)
