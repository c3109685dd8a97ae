package harvest

import (
	"errors"
)

// Error categories of the pipeline. Wrapped errors stay inspectable with
// errors.Is so callers can decide between job-level and object-level
// handling.
var (
	// ErrEndpoint marks failures talking to the remote OAI-PMH endpoint.
	ErrEndpoint = errors.New("endpoint error")

	// ErrEmptyResult marks a gather run that produced no identifiers.
	ErrEmptyResult = errors.New("no records received")

	// ErrFetch marks a failure retrieving a single record.
	ErrFetch = errors.New("fetch error")

	// ErrInvalidInput marks missing or malformed pipeline input, detected
	// before any network or database work.
	ErrInvalidInput = errors.New("invalid input")
)
