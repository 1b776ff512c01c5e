package capture

import "errors"

var (
	ErrURLRejected    = errors.New("page url rejected")
	ErrNavigateFailed = errors.New("navigation failed")
	ErrExtractHTML    = errors.New("HTML extraction failed")
	ErrAnnotate       = errors.New("page annotation failed")
	ErrWaitTimeout    = errors.New("wait timeout exceeded")
)
