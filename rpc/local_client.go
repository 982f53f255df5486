package rpc

import (
	"bytes"
	"context"

	"github.com/goliatone/go-rpc-query/procedure"
	"github.com/vmihailenco/msgpack/v5"
)

// LocalClient calls procedures of a router in process.
//
// Inputs are copied through msgpack before they reach the procedure so that
// handlers never share memory with the caller, the same isolation a network
// hop gives. Procedure errors are returned as *procedure.Error.
type LocalClient struct {
	router      *procedure.Router
	contextFunc func(ctx context.Context, opts CallOptions) (context.Context, error)
}

// LocalClientOption configures a LocalClient.
type LocalClientOption func(*LocalClient)

// WithLocalContext derives the procedure context from the caller context and
// call options, e.g. to turn an auth header into a session value.
func WithLocalContext(fn func(ctx context.Context, opts CallOptions) (context.Context, error)) LocalClientOption {
	return func(c *LocalClient) {
		c.contextFunc = fn
	}
}

// NewLocalClient returns a client bound to router.
func NewLocalClient(router *procedure.Router, opts ...LocalClientOption) *LocalClient {
	c := &LocalClient{router: router}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Query implements Client.
func (c *LocalClient) Query(ctx context.Context, path string, input any, opts ...CallOption) (any, error) {
	return c.call(ctx, procedure.KindQuery, path, input, opts)
}

// Mutation implements Client.
func (c *LocalClient) Mutation(ctx context.Context, path string, input any, opts ...CallOption) (any, error) {
	return c.call(ctx, procedure.KindMutation, path, input, opts)
}

func (c *LocalClient) call(ctx context.Context, kind procedure.Kind, path string, input any, opts []CallOption) (any, error) {
	if err := ctx.Err(); err != nil {
		return nil, &ClientError{
			Message: err.Error(),
			Code:    procedure.CodeClientClosedRequest,
			Path:    path,
			Cause:   err,
		}
	}

	p, ok := c.router.Lookup(path)
	if !ok {
		return nil, procedure.Errorf(procedure.CodeNotFound, "no procedure found on path %q", path)
	}
	if p.Kind() != kind {
		return nil, procedure.Errorf(procedure.CodeMethodNotSupported,
			"procedure %q is a %s, called as a %s", path, p.Kind(), kind)
	}

	if c.contextFunc != nil {
		derived, err := c.contextFunc(ctx, NewCallOptions(opts...))
		if err != nil {
			return nil, procedure.WrapError(err)
		}
		ctx = derived
	}

	var decoded any
	if input != nil {
		target := p.NewInput()
		if err := copyValue(input, target); err != nil {
			return nil, &procedure.Error{
				Code:    procedure.CodeBadRequest,
				Message: "invalid input: " + err.Error(),
				Cause:   err,
			}
		}
		decoded = target
	}

	return p.Call(ctx, decoded)
}

func copyValue(src, dst any) error {
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	enc.SetSortMapKeys(true)
	enc.SetCustomStructTag("json")
	if err := enc.Encode(src); err != nil {
		return err
	}

	dec := msgpack.NewDecoder(&buf)
	dec.SetCustomStructTag("json")
	return dec.Decode(dst)
}
