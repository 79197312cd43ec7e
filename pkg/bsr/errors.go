package bsr

import "errors"

// Errors returned by the sample store. Failures wrap one of these together
// with the underlying cause, so both can be matched with errors.Is.
var (
	// ErrIO is returned when a file is missing, unreadable or cannot be mapped.
	ErrIO = errors.New("bsr: i/o error")
	// ErrFormat is returned when a file holds no complete frame.
	ErrFormat = errors.New("bsr: invalid format")
	// ErrRange is returned for channel or frame indices outside the recording.
	ErrRange = errors.New("bsr: index out of range")
	// ErrClosed is returned by any data access after Close.
	ErrClosed = errors.New("bsr: recording closed")
)
