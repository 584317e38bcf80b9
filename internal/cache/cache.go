// Package cache provides the TTL key-value store that sits in front of the
// market data provider. Values are stored as JSON so the in-memory and Redis
// backends behave the same way: readers always get their own copy.
package cache

import (
	"context"
	"time"
)

// Store is a TTL key-value cache.
type Store interface {
	// Get decodes the value stored at key into dest. found is false on a
	// miss or an expired entry.
	Get(ctx context.Context, key string, dest interface{}) (found bool, err error)
	// Set stores value under key for ttl. A non-positive ttl never expires.
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	// Purge drops expired entries and reports how many were removed.
	Purge(ctx context.Context) (int, error)
	Close() error
}

// SeriesKey is the cache key for a price series.
func SeriesKey(symbol, period string) string {
	return "series:" + symbol + ":" + period
}

// MetadataKey is the cache key for issuer metadata.
func MetadataKey(symbol string) string {
	return "meta:" + symbol
}
