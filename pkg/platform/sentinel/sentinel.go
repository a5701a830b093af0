package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Clients and stores return typed
// errors that unwrap to one of these so callers can branch with errors.Is
// without knowing the concrete type.
//
//   - ErrUnavailable: a remote service could not be reached (transport failure)
//   - ErrRejected: a remote service answered with a non-success status
//   - ErrMalformed: input could not be decoded (key material, response bodies)
var (
	ErrUnavailable = errors.New("unavailable")
	ErrRejected    = errors.New("rejected")
	ErrMalformed   = errors.New("malformed")
)
