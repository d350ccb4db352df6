// Package store provides the byte-addressed key/value collaborators that
// cachify's composite orchestrator is built on: an in-process L1 and a
// distributed L2, both implementing the same narrow Store contract.
package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned by Get when a key has no live value.
var ErrNotFound = errors.New("store: key not found")

// Store is the polymorphic contract shared by every cache tier. The
// orchestrator distinguishes L1 from L2 at composition time, not by
// subtype: a single interface suffices for both.
type Store interface {
	// Get returns the raw bytes stored under key, or ErrNotFound.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores value under key. A zero ttl means the value never expires
	// on its own (still subject to eviction pressure on bounded stores).
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Remove deletes key. Removing an absent key is not an error.
	Remove(ctx context.Context, key string) error
}
