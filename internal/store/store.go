// Package store provides the TTL key-value store that all stateful managers
// build on. Keys live in flat namespaces (session:, chat:, auth:, kb_search:)
// and each namespace is mutated only by its owning manager.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// KV is a keyed store with per-key TTLs. All operations are atomic with
// respect to a single key; there is no ordering guarantee across keys and no
// multi-key transactions.
//
// Absence is a normal, non-error result (ok == false), distinct from a
// connectivity failure (UnavailableError). A key holds exactly one of a
// value, a list, a set, or a counter; values, lists, and counters expire,
// sets are index structures that live until pruned by their owner.
type KV interface {
	// Set stores value under key with the given TTL, replacing any prior
	// value and TTL. A zero ttl means no expiry.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Get returns the value stored under key. ok is false for absent or
	// expired keys.
	Get(ctx context.Context, key string) (value []byte, ok bool, err error)

	// Extend re-arms the TTL of an existing key without altering its
	// contents. ok is false when the key is absent.
	Extend(ctx context.Context, key string, ttl time.Duration) (ok bool, err error)

	// Delete removes key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error

	// Incr atomically increments the counter at key and returns the new
	// count. The TTL is applied only when the increment creates the key,
	// giving a fixed (non-sliding) window.
	Incr(ctx context.Context, key string, ttl time.Duration) (int64, error)

	// Append adds value to the end of the list at key, re-arms the list's
	// TTL, and returns the value's 0-based position.
	Append(ctx context.Context, key string, value []byte, ttl time.Duration) (pos int, err error)

	// Tail returns up to limit entries from the end of the list at key, in
	// append order. limit <= 0 returns the whole list. Absent or expired
	// lists yield an empty result.
	Tail(ctx context.Context, key string, limit int) ([][]byte, error)

	// AddToSet adds member to the set at key.
	AddToSet(ctx context.Context, key, member string) error

	// RemoveFromSet removes member from the set at key.
	RemoveFromSet(ctx context.Context, key, member string) error

	// Members returns the members of the set at key.
	Members(ctx context.Context, key string) ([]string, error)

	// Keys returns all live keys beginning with prefix.
	Keys(ctx context.Context, prefix string) ([]string, error)
}

// UnavailableError reports a store connectivity or backend failure. It is
// the only error class callers should retry; absence never surfaces as an
// UnavailableError.
type UnavailableError struct {
	Op  string
	Key string
	Err error
}

func (e *UnavailableError) Error() string {
	return fmt.Sprintf("store unavailable: %s %q: %v", e.Op, e.Key, e.Err)
}

func (e *UnavailableError) Unwrap() error { return e.Err }

// IsUnavailable reports whether err is (or wraps) an UnavailableError.
func IsUnavailable(err error) bool {
	var ue *UnavailableError
	return errors.As(err, &ue)
}

func unavailable(op, key string, err error) error {
	return &UnavailableError{Op: op, Key: key, Err: err}
}
