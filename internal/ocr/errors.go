package ocr

import "errors"

var (
	// ErrUnknownBackend means a job submission named a backend that is not
	// configured in this build.
	ErrUnknownBackend = errors.New("unknown ocr backend")
)
