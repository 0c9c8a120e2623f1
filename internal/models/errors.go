package models

import "errors"

// Pre-dispatch errors abort the run. Per-document errors become Failure outcomes.
var (
	ErrInvalidPattern       = errors.New("invalid glob pattern")
	ErrNoMatch              = errors.New("no files match pattern")
	ErrNoSupportedDocuments = errors.New("no supported documents found matching")
	ErrInvalidConfig        = errors.New("invalid configuration")
	ErrAuthentication       = errors.New("authentication failed")
	ErrNotFound             = errors.New("file not found")
	ErrRemoteService        = errors.New("OCR extraction failed")
	ErrPersistence          = errors.New("failed to write output")
)
