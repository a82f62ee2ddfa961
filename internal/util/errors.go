package util

import (
	"errors"
	"fmt"
)

var (
	ErrUnauthorized       = errors.New("unauthorized")
	ErrUserNotFound       = errors.New("user not found")
	ErrEmailRegistered    = errors.New("email already registered")
	ErrPermissionDenied   = errors.New("permission denied")
	ErrCourseNotFound     = errors.New("course not found")
	ErrLessonNotFound     = errors.New("lesson not found")
	ErrPackageNotFound    = errors.New("package not found")
	ErrAttemptNotFound    = errors.New("attempt not found")
	ErrNotEnrolled        = errors.New("not enrolled in course")
	ErrPackageNotReady    = errors.New("package is not extracted or has no launch resource")
	ErrEmptyArchive       = errors.New("archive contains no extractable entries")
	ErrPayloadTooLarge    = errors.New("payload too large")
	ErrTransientStorage   = errors.New("transient storage failure")
	ErrUnsafePath         = errors.New("path escapes content root")
	ErrMalformedStatement = errors.New("malformed statement")
	ErrUnknownMethod      = errors.New("unknown API method")
)

// ExtractionError wraps a failure to unpack an archive. Validation failures
// (bad ZIP, no safe entries) are distinguishable from I/O faults via Unwrap.
type ExtractionError struct {
	Reason string
	Err    error
}

func (e *ExtractionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("extraction failed: %s: %v", e.Reason, e.Err)
	}
	return "extraction failed: " + e.Reason
}

func (e *ExtractionError) Unwrap() error { return e.Err }

// ManifestError reports a missing or malformed package manifest.
type ManifestError struct {
	Reason string
}

func (e *ManifestError) Error() string {
	return "invalid manifest: " + e.Reason
}
