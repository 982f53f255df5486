package rpcquery

import (
	"context"
	"io"
	"log/slog"
	"net/http"

	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-rpc-query/procedure"
	"github.com/goliatone/go-rpc-query/query"
	"github.com/goliatone/go-rpc-query/rpc"
	"github.com/google/uuid"
)

// ExtraOptionHeaders is the ExtraOptions key whose http.Header value is sent
// with the call. Every other extra option travels as call metadata.
const ExtraOptionHeaders = "headers"

// ClientFactory resolves a client for one call, e.g. from an auth token kept
// in the api Extra value.
type ClientFactory func(ctx context.Context, api query.BaseQueryAPI) (rpc.Client, error)

// ClientSource says how the invoker obtains its client: Ready or Deferred.
type ClientSource interface {
	resolve(ctx context.Context, api query.BaseQueryAPI) (rpc.Client, error)
	Validate() error
}

type readySource struct {
	client rpc.Client
}

// Ready uses client for every call.
func Ready(client rpc.Client) ClientSource {
	return readySource{client: client}
}

// FromHTTP builds a JSON-RPC client for endpoint and uses it for every call.
func FromHTTP(endpoint string, opts ...rpc.HTTPClientOption) ClientSource {
	return Ready(rpc.NewHTTPClient(endpoint, opts...))
}

func (s readySource) resolve(context.Context, query.BaseQueryAPI) (rpc.Client, error) {
	return s.client, nil
}

func (s readySource) Validate() error {
	if s.client == nil {
		return errors.NewValidation("ready client source requires a client", errors.FieldError{
			Field:   "client",
			Message: "cannot be nil",
		})
	}
	return nil
}

type deferredSource struct {
	factory ClientFactory
}

// Deferred calls factory on every invocation, since the client may depend on
// state that changes between calls.
func Deferred(factory ClientFactory) ClientSource {
	return deferredSource{factory: factory}
}

func (s deferredSource) resolve(ctx context.Context, api query.BaseQueryAPI) (rpc.Client, error) {
	return s.factory(ctx, api)
}

func (s deferredSource) Validate() error {
	if s.factory == nil {
		return errors.NewValidation("deferred client source requires a factory", errors.FieldError{
			Field:   "factory",
			Message: "cannot be nil",
		})
	}
	return nil
}

// Call is the descriptor a function-call endpoint hands to the base query.
type Call struct {
	Path string
	Kind procedure.Kind
	Args any
}

// Invoker calls procedures through a client and normalizes every outcome into
// a query.Result. It never panics and never returns a raw client error.
type Invoker struct {
	source ClientSource
	logger *slog.Logger
}

// NewInvoker returns an invoker resolving clients from source.
func NewInvoker(source ClientSource, logger *slog.Logger) *Invoker {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Invoker{source: source, logger: logger}
}

// Invoke runs call. Failures are reported as *NormalizedError in Result.Error.
func (i *Invoker) Invoke(ctx context.Context, call Call, api query.BaseQueryAPI) (res query.Result) {
	requestID := api.RequestID
	if requestID == "" {
		requestID = uuid.NewString()
	}
	logger := i.logger.With(
		"endpoint", api.Endpoint,
		"path", call.Path,
		"kind", string(call.Kind),
		"request_id", requestID,
	)

	defer func() {
		if r := recover(); r != nil {
			res = i.fail(logger, normalizePanic(r), call.Path, requestID)
		}
	}()

	logger.Debug("invoking procedure")

	if i.source == nil {
		return i.fail(logger, Normalize(libraryError("invoker has no client source")), call.Path, requestID)
	}
	client, err := i.source.resolve(ctx, api)
	if err != nil {
		return i.fail(logger, Normalize(err), call.Path, requestID)
	}
	if client == nil {
		return i.fail(logger, Normalize(libraryError("client source resolved to a nil client")), call.Path, requestID)
	}

	ctx = rpc.WithRequestID(ctx, requestID)
	data, err := rpc.Invoke(ctx, client, call.Kind, call.Path, call.Args, callOptions(api.ExtraOptions)...)
	if err != nil {
		return i.fail(logger, Normalize(err), call.Path, requestID)
	}

	logger.Debug("procedure succeeded")
	return query.Result{Data: data}
}

// BaseQuery returns a base query that evaluates Call descriptors.
func (i *Invoker) BaseQuery() query.BaseQueryFunc {
	return func(ctx context.Context, args any, api query.BaseQueryAPI) query.Result {
		switch call := args.(type) {
		case Call:
			return i.Invoke(ctx, call, api)
		case *Call:
			if call != nil {
				return i.Invoke(ctx, *call, api)
			}
		}
		return query.Result{Error: Normalize(libraryError("base query expects a Call descriptor, got %T", args))}
	}
}

func (i *Invoker) fail(logger *slog.Logger, nerr *NormalizedError, path, requestID string) query.Result {
	if nerr.Path == "" {
		nerr.Path = path
	}
	nerr.RequestID = requestID

	errors.LogBySeverity(logger, nerr.Rich().WithSeverity(errors.SeverityWarning))
	return query.Result{Error: nerr}
}

func callOptions(extra map[string]any) []rpc.CallOption {
	if len(extra) == 0 {
		return nil
	}

	var opts []rpc.CallOption
	metadata := make(map[string]any, len(extra))
	for k, v := range extra {
		if k == ExtraOptionHeaders {
			if header, ok := v.(http.Header); ok {
				for name, values := range header {
					for _, value := range values {
						opts = append(opts, rpc.WithHeader(name, value))
					}
				}
				continue
			}
		}
		metadata[k] = v
	}
	if len(metadata) > 0 {
		opts = append(opts, rpc.WithMetadata(metadata))
	}
	return opts
}
