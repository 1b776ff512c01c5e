package delivery

import "errors"

var (
	// ErrDownloadFailed means a tier could not persist the document.
	ErrDownloadFailed = errors.New("download failed")
	// ErrDownloadTimeout means the primary download did not finish in time.
	ErrDownloadTimeout = errors.New("download did not complete in time")

	ErrInvalidFilename = errors.New("invalid filename")
	ErrUnknownDownload = errors.New("unknown download id")
	ErrPromptRequested = errors.New("save prompts are not supported")
)
