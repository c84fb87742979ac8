package domain

import (
	"errors"
	"fmt"
)

var (
	// Common domain errors
	ErrSessionNotFound   = errors.New("chat session not found")
	ErrMissingCredential = errors.New("no API credential available")
	ErrInvalidArgument   = errors.New("invalid argument")
)

// UpstreamStatusError reports a non-2xx reply from the completion endpoint.
// Status and Body are kept verbatim so callers can surface them.
type UpstreamStatusError struct {
	Status int
	Body   string
}

func (e *UpstreamStatusError) Error() string {
	return fmt.Sprintf("upstream status %d: %s", e.Status, e.Body)
}

// UpstreamStreamError reports a read failure in the middle of a completion
// stream, after the request itself was accepted upstream.
type UpstreamStreamError struct {
	Err error
}

func (e *UpstreamStreamError) Error() string {
	return fmt.Sprintf("upstream stream failed: %v", e.Err)
}

func (e *UpstreamStreamError) Unwrap() error { return e.Err }
