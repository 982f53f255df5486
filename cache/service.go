package cache

import (
	"context"
	"errors"
)

// ErrInvalidResultType is returned when a cached value does not have the requested type.
var ErrInvalidResultType = errors.New("cache: cached value has unexpected type")

// KeySerializer builds a cache key from an endpoint name and its call arguments.
// Keys must be stable across calls so identical calls share one cache entry.
type KeySerializer interface {
	SerializeKey(method string, args ...any) string
}

// FetchFn is the function signature CacheService expects when fetching from the source of truth.
type FetchFn[T any] func(ctx context.Context) (T, error)

// CacheService stores endpoint results.
//
// GetOrFetch is read-through and must collapse concurrent fetches for the same
// key into a single call. Failed fetches are never stored.
type CacheService interface {
	GetOrFetch(ctx context.Context, key string, fetchFn any) (any, error)
	Get(ctx context.Context, key string) (any, bool)
	Set(ctx context.Context, key string, value any) error
	Delete(ctx context.Context, key string) error
	DeleteByPrefix(ctx context.Context, prefix string) error
	InvalidateKeys(ctx context.Context, keys []string) error
}

// GetOrFetch is a type-safe wrapper function that provides generic support for CacheService.
func GetOrFetch[T any](ctx context.Context, service CacheService, key string, fetchFn FetchFn[T]) (T, error) {
	result, err := service.GetOrFetch(ctx, key, fetchFn)
	if err != nil {
		var zero T
		return zero, err
	}
	if result == nil {
		var zero T
		return zero, nil
	}
	typed, ok := result.(T)
	if !ok {
		var zero T
		return zero, ErrInvalidResultType
	}
	return typed, nil
}

// Get is the typed counterpart of CacheService.Get. A stored value of another
// type reports a miss.
func Get[T any](ctx context.Context, service CacheService, key string) (T, bool) {
	result, ok := service.Get(ctx, key)
	if !ok {
		var zero T
		return zero, false
	}
	typed, ok := result.(T)
	return typed, ok
}
