package resourcecache

import "errors"

var (
	// ErrDecompression is returned when a stored entry cannot be decoded.
	ErrDecompression = errors.New("decompression failed")
	ErrUnknownCodec  = errors.New("unknown compression codec")
)
