package rpc

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/goliatone/go-rpc-query/pkg/testsupport"
	"github.com/goliatone/go-rpc-query/procedure"
)

func TestLocalClient_Query(t *testing.T) {
	store := testsupport.NewStore()
	client := NewLocalClient(store.Router())

	out, err := client.Query(context.Background(), "getUserById", 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	user, ok := out.(testsupport.User)
	if !ok {
		t.Fatalf("expected testsupport.User, got %T", out)
	}
	if user.Name != "Alice Johnson" {
		t.Errorf("expected Alice Johnson, got %s", user.Name)
	}
}

func TestLocalClient_CopiesInput(t *testing.T) {
	store := testsupport.NewStore()
	client := NewLocalClient(store.Router())

	// maps decode into the procedure's struct input by json tag
	out, err := client.Mutation(context.Background(), "updateName", map[string]any{"id": 1, "name": "Alice Smith"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.(testsupport.User).Name != "Alice Smith" {
		t.Errorf("expected Alice Smith, got %v", out)
	}

	echo := &testsupport.EchoInput{Text: "ping"}
	out, err = client.Query(context.Background(), "nested.deep.echo", echo)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.(testsupport.EchoInput).Text != "ping" {
		t.Errorf("expected ping, got %v", out)
	}
}

func TestLocalClient_Errors(t *testing.T) {
	store := testsupport.NewStore()
	client := NewLocalClient(store.Router())
	ctx := context.Background()

	tests := []struct {
		name   string
		call   func() (any, error)
		code   procedure.Code
		status int
	}{
		{
			name:   "procedure not found error",
			call:   func() (any, error) { return client.Query(ctx, "getUserById", 999) },
			code:   procedure.CodeNotFound,
			status: http.StatusNotFound,
		},
		{
			name:   "unknown path",
			call:   func() (any, error) { return client.Query(ctx, "users.missing", nil) },
			code:   procedure.CodeNotFound,
			status: http.StatusNotFound,
		},
		{
			name:   "mutation called as query",
			call:   func() (any, error) { return client.Query(ctx, "updateName", nil) },
			code:   procedure.CodeMethodNotSupported,
			status: http.StatusMethodNotAllowed,
		},
		{
			name:   "input that cannot decode",
			call:   func() (any, error) { return client.Query(ctx, "getUserById", "abc") },
			code:   procedure.CodeBadRequest,
			status: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.call()
			var perr *procedure.Error
			if !errors.As(err, &perr) {
				t.Fatalf("expected *procedure.Error, got %T (%v)", err, err)
			}
			if perr.Code != tt.code {
				t.Errorf("expected code %s, got %s", tt.code, perr.Code)
			}
			if perr.StatusCode() != tt.status {
				t.Errorf("expected status %d, got %d", tt.status, perr.StatusCode())
			}
		})
	}
}

func TestLocalClient_CanceledContext(t *testing.T) {
	client := NewLocalClient(testsupport.NewStore().Router())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.Query(ctx, "getUserById", 1)
	if !IsClientError(err) {
		t.Fatalf("expected client error, got %T (%v)", err, err)
	}
	if !errors.Is(err, context.Canceled) {
		t.Error("expected context.Canceled to be wrapped")
	}
}

func TestLocalClient_ContextFunc(t *testing.T) {
	type tokenKey struct{}

	router := procedure.NewRouter().
		Procedure("whoami", procedure.Query(func(ctx context.Context, _ struct{}) (string, error) {
			token, _ := ctx.Value(tokenKey{}).(string)
			if token == "" {
				return "", procedure.NewError(procedure.CodeUnauthorized, "missing token")
			}
			return token, nil
		}))

	client := NewLocalClient(router, WithLocalContext(func(ctx context.Context, opts CallOptions) (context.Context, error) {
		return context.WithValue(ctx, tokenKey{}, opts.Header.Get("Authorization")), nil
	}))

	out, err := client.Query(context.Background(), "whoami", nil, WithHeader("Authorization", "Bearer abc"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "Bearer abc" {
		t.Errorf("expected token to reach procedure, got %v", out)
	}

	_, err = client.Query(context.Background(), "whoami", nil)
	if procedure.HTTPStatusFromError(err) != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d (%v)", procedure.HTTPStatusFromError(err), err)
	}
}
