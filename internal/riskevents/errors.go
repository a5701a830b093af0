package riskevents

import (
	"fmt"

	"riskproxy/pkg/platform/sentinel"
)

var errEmptyToken = fmt.Errorf("token source returned no token: %w", sentinel.ErrRejected)

// ReportingError is returned when a risk event was not accepted. Status is
// the HTTP status code, or 0 when the request never got a response.
type ReportingError struct {
	Status int
	Err    error
}

func (e *ReportingError) Error() string {
	if e.Status == 0 {
		return fmt.Sprintf("risk event submission failed: %v", e.Err)
	}
	return fmt.Sprintf("risk event submission failed: status %d", e.Status)
}

func (e *ReportingError) Unwrap() []error {
	kind := sentinel.ErrRejected
	if e.Status == 0 {
		kind = sentinel.ErrUnavailable
	}
	if e.Err == nil {
		return []error{kind}
	}
	return []error{kind, e.Err}
}
