package cache

import (
	"context"
	"errors"
	"testing"
)

// mockCacheService for testing the typed helpers
type mockCacheService struct {
	result any
	found  bool
	err    error
}

func (m *mockCacheService) GetOrFetch(ctx context.Context, key string, fetchFn any) (any, error) {
	return m.result, m.err
}

func (m *mockCacheService) Get(ctx context.Context, key string) (any, bool) {
	return m.result, m.found
}

func (m *mockCacheService) Set(ctx context.Context, key string, value any) error {
	m.result = value
	m.found = true
	return nil
}

func (m *mockCacheService) Delete(ctx context.Context, key string) error {
	return nil
}

func (m *mockCacheService) DeleteByPrefix(ctx context.Context, prefix string) error {
	return nil
}

func (m *mockCacheService) InvalidateKeys(ctx context.Context, keys []string) error {
	return nil
}

func TestGetOrFetch_NilInterface(t *testing.T) {
	mock := &mockCacheService{result: nil}

	type Message interface {
		Text() string
	}

	result, err := GetOrFetch[Message](context.Background(), mock, "nested.getMessage", func(ctx context.Context) (Message, error) {
		return nil, nil
	})

	if err != nil {
		t.Errorf("expected no error but got: %v", err)
	}
	if result != nil {
		t.Errorf("expected nil result but got: %v", result)
	}
}

func TestGetOrFetch_NilPointer(t *testing.T) {
	mock := &mockCacheService{result: (*string)(nil)}

	result, err := GetOrFetch[*string](context.Background(), mock, "getUserById", func(ctx context.Context) (*string, error) {
		return nil, nil
	})

	if err != nil {
		t.Errorf("expected no error but got: %v", err)
	}
	if result != nil {
		t.Errorf("expected nil pointer but got: %v", result)
	}
}

func TestGetOrFetch_TypeAssertionFailure(t *testing.T) {
	mock := &mockCacheService{result: "wrong-type"}

	result, err := GetOrFetch[int](context.Background(), mock, "getUserById", func(ctx context.Context) (int, error) {
		return 42, nil
	})

	if !errors.Is(err, ErrInvalidResultType) {
		t.Errorf("expected ErrInvalidResultType but got: %v", err)
	}
	if result != 0 {
		t.Errorf("expected zero value (0) but got: %v", result)
	}
}

func TestGetOrFetch_PropagatesError(t *testing.T) {
	fetchErr := errors.New("User with id 999 not found")
	mock := &mockCacheService{err: fetchErr}

	_, err := GetOrFetch[string](context.Background(), mock, "getUserById", func(ctx context.Context) (string, error) {
		return "", fetchErr
	})

	if !errors.Is(err, fetchErr) {
		t.Errorf("expected fetch error but got: %v", err)
	}
}

func TestGetOrFetch_ValidResult(t *testing.T) {
	expectedValue := "Alice Johnson"
	mock := &mockCacheService{result: expectedValue}

	result, err := GetOrFetch[string](context.Background(), mock, "getUserById", func(ctx context.Context) (string, error) {
		return expectedValue, nil
	})

	if err != nil {
		t.Errorf("expected no error but got: %v", err)
	}
	if result != expectedValue {
		t.Errorf("expected '%s' but got: '%s'", expectedValue, result)
	}
}

func TestGet_Typed(t *testing.T) {
	mock := &mockCacheService{}
	ctx := context.Background()

	if _, ok := Get[string](ctx, mock, "k"); ok {
		t.Error("expected miss on empty cache")
	}

	mock.Set(ctx, "k", "value")
	if got, ok := Get[string](ctx, mock, "k"); !ok || got != "value" {
		t.Errorf("expected hit with value, got %q (%v)", got, ok)
	}
	if _, ok := Get[int](ctx, mock, "k"); ok {
		t.Error("expected type mismatch to report a miss")
	}
}
