package memory

import (
	"context"
	"errors"
)

var (
	// ErrKeyNotFound is returned by Get when nothing is stored under a key
	ErrKeyNotFound = errors.New("memory: key not found")

	// ErrQuotaExceeded is returned when a channel has no room left for a write
	ErrQuotaExceeded = errors.New("memory: storage quota exceeded")

	// ErrValueTooLarge is returned when a single value exceeds a channel's byte budget
	ErrValueTooLarge = errors.New("memory: value exceeds channel byte budget")

	// ErrStoreDisabled is returned by every call on a disabled channel
	ErrStoreDisabled = errors.New("memory: storage disabled")
)

// Store defines a key-value persistence channel.
// This allows us to swap between Redis, BoltDB, in-memory, etc.
type Store interface {
	// Get returns the value stored under key, or ErrKeyNotFound
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores value under key, replacing any previous value
	Set(ctx context.Context, key string, value []byte) error

	// Delete removes keys; missing keys are not an error
	Delete(ctx context.Context, keys ...string) error

	// Keys lists every key starting with prefix
	Keys(ctx context.Context, prefix string) ([]string, error)
}

// disabledStore stands in for a channel that is not available
type disabledStore struct{}

func (disabledStore) Get(context.Context, string) ([]byte, error) { return nil, ErrStoreDisabled }
func (disabledStore) Set(context.Context, string, []byte) error { return ErrStoreDisabled }
func (disabledStore) Delete(context.Context, ...string) error { return ErrStoreDisabled }
func (disabledStore) Keys(context.Context, string) ([]string, error) { return nil, ErrStoreDisabled }

// Disabled returns a Store that rejects every operation
func Disabled() Store {
	return disabledStore{}
}

func orDisabled(s Store) Store {
	if s == nil {
		return disabledStore{}
	}
	return s
}
