package cache

import (
	"context"
	"fmt"
	"time"
)

// Cache stores upstream data-source responses between runs
type Cache interface {
	// Get retrieves a value by key
	Get(ctx context.Context, key string) (string, error)

	// Set stores a value with optional TTL
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error

	// Delete removes a key
	Delete(ctx context.Context, key string) error

	// GetJSON retrieves and unmarshals JSON data
	GetJSON(ctx context.Context, key string, dest interface{}) error

	// SetJSON marshals and stores JSON data
	SetJSON(ctx context.Context, key string, value interface{}, ttl time.Duration) error

	// Close closes the cache connection
	Close() error
}

// ErrCacheKeyNotFound is returned on a cache miss
type ErrCacheKeyNotFound struct {
	Key string
}

func (e ErrCacheKeyNotFound) Error() string {
	return fmt.Sprintf("cache key not found: %s", e.Key)
}

// IsNotFound reports whether err is a cache miss
func IsNotFound(err error) bool {
	_, ok := err.(ErrCacheKeyNotFound)
	return ok
}

// Key prefixes for data-source responses
const (
	LocalPrefixesKeyPrefix = "nanp:lca:"
	PrefixesKeyPrefix      = "nanp:prefixes:"
)

// LocalPrefixesKey is the cache key of the local calling area of one exchange
func LocalPrefixesKey(npa, nxx string) string {
	return LocalPrefixesKeyPrefix + npa + ":" + nxx
}

// PrefixesKey is the cache key of the assigned prefixes of one NPA
func PrefixesKey(npa string) string {
	return PrefixesKeyPrefix + npa
}
