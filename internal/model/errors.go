package model

import "errors"

var (
	// ErrInvalidTimestamp rejects events dated in the future beyond the
	// configured clock-skew tolerance. Not retryable.
	ErrInvalidTimestamp = errors.New("event timestamp is in the future")

	// ErrDuplicateSubmission is the debounce rejection. The caller may retry
	// once the window has elapsed.
	ErrDuplicateSubmission = errors.New("duplicate submission within debounce window")

	ErrNotFound = errors.New("not found")

	// ErrConflict covers uniqueness violations such as a second task
	// assignment for the same employee, location and day.
	ErrConflict = errors.New("already exists")
)
