package rpc

import (
	"context"
	"net/http"

	"github.com/goliatone/go-rpc-query/procedure"
)

// Client is the untyped invocation surface of a procedure client.
type Client interface {
	Query(ctx context.Context, path string, input any, opts ...CallOption) (any, error)
	Mutation(ctx context.Context, path string, input any, opts ...CallOption) (any, error)
}

// CallOptions are per call extras passed through to the transport.
type CallOptions struct {
	Header   http.Header
	Metadata map[string]any
}

// CallOption configures CallOptions.
type CallOption func(*CallOptions)

// WithHeader adds a header sent along with the call.
func WithHeader(key, value string) CallOption {
	return func(o *CallOptions) {
		if o.Header == nil {
			o.Header = http.Header{}
		}
		o.Header.Add(key, value)
	}
}

// WithMetadata merges values into the call metadata.
func WithMetadata(values map[string]any) CallOption {
	return func(o *CallOptions) {
		if len(values) == 0 {
			return
		}
		if o.Metadata == nil {
			o.Metadata = make(map[string]any, len(values))
		}
		for k, v := range values {
			o.Metadata[k] = v
		}
	}
}

// NewCallOptions applies opts over an empty CallOptions.
func NewCallOptions(opts ...CallOption) CallOptions {
	var o CallOptions
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	return o
}

// Invoke dispatches to Query or Mutation depending on kind.
func Invoke(ctx context.Context, c Client, kind procedure.Kind, path string, input any, opts ...CallOption) (any, error) {
	switch kind {
	case procedure.KindQuery:
		return c.Query(ctx, path, input, opts...)
	case procedure.KindMutation:
		return c.Mutation(ctx, path, input, opts...)
	default:
		return nil, &ClientError{
			Message: "unsupported procedure kind " + string(kind),
			Code:    procedure.CodeMethodNotSupported,
			Path:    path,
		}
	}
}

type requestIDKey struct{}

// WithRequestID stores a request id on the context. Transports forward it.
func WithRequestID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDKey{}, id)
}

// RequestIDFromContext returns the request id stored by WithRequestID.
func RequestIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}
