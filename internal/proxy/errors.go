package proxy

import (
	"errors"
	"fmt"
	"net/http"

	"riskproxy/pkg/platform/sentinel"
)

// Error is a fatal pipeline failure, tagged with the stage that was in
// progress when it happened.
type Error struct {
	Stage Stage
	Err   error
}

func (e *Error) Error() string {
	return fmt.Sprintf("proxy failed at %s: %v", e.Stage, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// UpstreamError means the identity provider could not be reached or its
// response could not be read.
type UpstreamError struct {
	Err error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("upstream request failed: %v", e.Err)
}

func (e *UpstreamError) Unwrap() []error {
	return []error{sentinel.ErrUnavailable, e.Err}
}

// StatusFor maps a pipeline failure to the status of the plain-text error
// response.
func StatusFor(err error) int {
	var upstreamErr *UpstreamError
	if errors.As(err, &upstreamErr) {
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}
