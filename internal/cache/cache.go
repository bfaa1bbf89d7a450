package cache

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrCacheMiss is returned by Get when the key is absent or expired.
	ErrCacheMiss = errors.New("cache: key not found")
	// ErrCorruptEntry is returned by Get when the stored value cannot be decoded into dest.
	ErrCorruptEntry = errors.New("cache: corrupt entry")
)

// CacheService is a JSON key/value store with glob-pattern deletion.
type CacheService interface {
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Get(ctx context.Context, key string, dest interface{}) error
	Delete(ctx context.Context, keys ...string) error
	DeletePattern(ctx context.Context, pattern string) error
}

func IsMiss(err error) bool {
	return errors.Is(err, ErrCacheMiss)
}

func IsCorrupt(err error) bool {
	return errors.Is(err, ErrCorruptEntry)
}
