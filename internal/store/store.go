// Package store defines the key-value operations the queue client and
// worker run against, plus the Redis implementation used in production
// and an in-memory implementation for tests and development.
package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned by Get when a key does not exist or has
// already expired.
var ErrNotFound = errors.New("rjq: key not found")

// Store is the key-value contract backing a queue. Values carry a TTL
// on every write; the pending-id list is FIFO (RightPush to enqueue,
// BlockingLeftPop to claim).
type Store interface {
	// Get returns the value at key, or ErrNotFound.
	Get(ctx context.Context, key string) (string, error)

	// SetWithExpiry writes value at key with the given TTL, replacing
	// any previous value and TTL.
	SetWithExpiry(ctx context.Context, key, value string, ttl time.Duration) error

	// Delete removes a key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// RightPush appends value to the list at listKey.
	RightPush(ctx context.Context, listKey, value string) error

	// BlockingLeftPop pops the head of the list at listKey, waiting up
	// to wait for an element to arrive. The second return is false
	// when the wait window elapsed with nothing to claim.
	BlockingLeftPop(ctx context.Context, listKey string, wait time.Duration) (string, bool, error)

	// ListLen returns the length of the list at listKey (0 for a
	// missing list).
	ListLen(ctx context.Context, listKey string) (int64, error)

	// Ping verifies the store is reachable.
	Ping(ctx context.Context) error
}
