package cacheinfra

import (
	"context"
	"reflect"
	"strings"

	"github.com/goliatone/go-errors"
	"github.com/viccon/sturdyc"
)

// sturdycService wraps a sturdyc client providing caching behaviour.
type sturdycService struct {
	client *sturdyc.Client[any]
}

// storedValue boxes every value handed to sturdyc. sturdyc type-asserts the
// fetch result before it checks the error, so a bare nil turns into
// sturdyc.ErrInvalidType.
type storedValue struct {
	value any
}

func unbox(v any) any {
	if sv, ok := v.(storedValue); ok {
		return sv.value
	}
	return v
}

// NewSturdycService creates a new sturdyc cache service adapter.
//
// Version compatibility note: This implementation assumes sturdyc v1.x API.
func NewSturdycService(cfg Config) (*sturdycService, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	client := sturdyc.New[any](
		cfg.Capacity,
		cfg.NumShards,
		cfg.TTL,
		cfg.EvictionPercentage,
		cfg.ToSturdycOptions()...,
	)

	return &sturdycService{client: client}, nil
}

// validateFetchFn checks that fetchFn has the signature func(context.Context) (T, error).
func validateFetchFn(fetchFn any) error {
	if fetchFn == nil {
		return invalidFetchFn("cannot be nil")
	}

	fnType := reflect.TypeOf(fetchFn)
	if fnType.Kind() != reflect.Func {
		return invalidFetchFn("must be a function")
	}

	if fnType.NumIn() != 1 || fnType.NumOut() != 2 {
		return invalidFetchFn("must have signature func(context.Context) (T, error)")
	}

	contextType := reflect.TypeOf((*context.Context)(nil)).Elem()
	if !fnType.In(0).Implements(contextType) {
		return invalidFetchFn("first parameter must be context.Context")
	}

	errorType := reflect.TypeOf((*error)(nil)).Elem()
	if !fnType.Out(1).Implements(errorType) {
		return invalidFetchFn("second return value must be error")
	}

	return nil
}

func invalidFetchFn(message string) *errors.Error {
	return errors.NewValidation("invalid fetch function", errors.FieldError{
		Field:   "fetchFn",
		Message: message,
	}).WithTextCode("INVALID_FETCH_FN")
}

// GetOrFetch implements cache.CacheService.GetOrFetch.
// Concurrent calls for the same key share one fetch; failed fetches are not stored.
func (s *sturdycService) GetOrFetch(ctx context.Context, key string, fetchFn any) (any, error) {
	if err := validateFetchFn(fetchFn); err != nil {
		return nil, err
	}

	value, err := s.client.GetOrFetch(ctx, key, func(ctx context.Context) (any, error) {
		result, err := callFetchFunctionWithReflection(ctx, fetchFn)
		return storedValue{value: result}, err
	})
	if err != nil {
		return nil, err
	}
	return unbox(value), nil
}

// callFetchFunctionWithReflection calls a pre validated fetchFn of any result type.
func callFetchFunctionWithReflection(ctx context.Context, fetchFn any) (any, error) {
	if fn, ok := fetchFn.(func(context.Context) (any, error)); ok {
		return fn(ctx)
	}

	results := reflect.ValueOf(fetchFn).Call([]reflect.Value{reflect.ValueOf(ctx)})

	var result any
	if rv := results[0]; rv.IsValid() && rv.CanInterface() {
		result = rv.Interface()
	}

	var err error
	if ev := results[1]; ev.IsValid() && !ev.IsNil() {
		err = ev.Interface().(error)
	}

	return result, err
}

// Get implements cache.CacheService.Get.
func (s *sturdycService) Get(ctx context.Context, key string) (any, bool) {
	value, ok := s.client.Get(key)
	if !ok {
		return nil, false
	}
	return unbox(value), true
}

// Set implements cache.CacheService.Set.
func (s *sturdycService) Set(ctx context.Context, key string, value any) error {
	s.client.Set(key, storedValue{value: value})
	return nil
}

// Delete implements cache.CacheService.Delete.
func (s *sturdycService) Delete(ctx context.Context, key string) error {
	s.client.Delete(key)
	return nil
}

// DeleteByPrefix implements cache.CacheService.DeleteByPrefix.
func (s *sturdycService) DeleteByPrefix(ctx context.Context, prefix string) error {
	for _, key := range s.client.ScanKeys() {
		if strings.HasPrefix(key, prefix) {
			s.client.Delete(key)
		}
	}
	return nil
}

// InvalidateKeys implements cache.CacheService.InvalidateKeys.
func (s *sturdycService) InvalidateKeys(ctx context.Context, keys []string) error {
	for _, key := range keys {
		s.client.Delete(key)
	}
	return nil
}

// Keys returns every key currently stored.
func (s *sturdycService) Keys() []string {
	return s.client.ScanKeys()
}

// Size returns the number of stored entries.
func (s *sturdycService) Size() int {
	return s.client.Size()
}
