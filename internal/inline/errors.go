package inline

import "errors"

// These stay inside the package: every one of them ends in a fallback tier.
var (
	ErrInvalidDataURI = errors.New("invalid image data uri")
	ErrNotImage       = errors.New("resource is not an image")
	ErrTainted        = errors.New("canvas tainted by cross-origin data")
	ErrTooManyPixels  = errors.New("image too large to redraw")
	ErrPlaceholder    = errors.New("placeholder synthesis failed")
	ErrNoSaver        = errors.New("no resource saver configured")
)
