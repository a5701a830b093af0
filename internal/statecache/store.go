// Package statecache persists the raw risk descriptor under the OAuth state
// parameter so the callback flow can recover it after the authorization
// redirect. The proxy only writes; reads happen in the callback service.
package statecache

import (
	"context"
	"fmt"

	"riskproxy/pkg/platform/sentinel"
)

// Operations reported in Error.Op.
const (
	OpStore  = "store"
	OpExpire = "expire"
)

// Store writes a descriptor under a state key with the store's fixed TTL.
type Store interface {
	Store(ctx context.Context, state, descriptor string) error
}

// Error is returned when the cache service rejects a write or its expiry.
type Error struct {
	Op  string
	Key string
	Err error
}

func (e *Error) Error() string {
	return fmt.Sprintf("state cache %s %q: %v", e.Op, e.Key, e.Err)
}

func (e *Error) Unwrap() []error {
	return []error{sentinel.ErrUnavailable, e.Err}
}

// Discard is the Store used when no cache service is configured.
type Discard struct{}

// Store implements Store.
func (Discard) Store(context.Context, string, string) error {
	return nil
}
