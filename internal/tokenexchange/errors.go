package tokenexchange

import (
	"fmt"

	"riskproxy/pkg/platform/sentinel"
)

// KeyMaterialError is returned when the provisioned key pair cannot be
// decoded or parsed.
type KeyMaterialError struct {
	Reason string
	Err    error
}

func (e *KeyMaterialError) Error() string {
	if e.Err == nil {
		return "invalid key material: " + e.Reason
	}
	return fmt.Sprintf("invalid key material: %s: %v", e.Reason, e.Err)
}

func (e *KeyMaterialError) Unwrap() []error {
	return unwrapWith(sentinel.ErrMalformed, e.Err)
}

// SigningError is returned when a well-formed key fails to sign the assertion.
type SigningError struct {
	Err error
}

func (e *SigningError) Error() string {
	return fmt.Sprintf("sign client assertion: %v", e.Err)
}

func (e *SigningError) Unwrap() error {
	return e.Err
}

// TokenError is returned when the token endpoint did not issue a token.
// Status is the HTTP status code, or 0 when no response was received.
type TokenError struct {
	Status int
	// Code is the OAuth error code from the response body, if any.
	Code string
	Err  error
}

func (e *TokenError) Error() string {
	if e.Status == 0 {
		return fmt.Sprintf("token exchange failed: %v", e.Err)
	}
	if e.Code != "" {
		return fmt.Sprintf("token exchange failed: status %d (%s)", e.Status, e.Code)
	}
	return fmt.Sprintf("token exchange failed: status %d", e.Status)
}

func (e *TokenError) Unwrap() []error {
	if e.Status == 0 {
		return unwrapWith(sentinel.ErrUnavailable, e.Err)
	}
	return unwrapWith(sentinel.ErrRejected, e.Err)
}

func unwrapWith(kind, cause error) []error {
	if cause == nil {
		return []error{kind}
	}
	return []error{kind, cause}
}
