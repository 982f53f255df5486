package rpcquery

import (
	"context"
	stderrors "errors"
	"net/http"
	"sync"
	"testing"

	"github.com/goliatone/go-rpc-query/procedure"
	"github.com/goliatone/go-rpc-query/query"
	"github.com/goliatone/go-rpc-query/rpc"
)

type recordedCall struct {
	Kind      procedure.Kind
	Path      string
	Input     any
	Options   rpc.CallOptions
	RequestID string
}

// recordingClient is an rpc.Client that records calls and replays canned
// results keyed by path.
type recordingClient struct {
	mu      sync.Mutex
	calls   []recordedCall
	results map[string]any
	errs    map[string]error
	panics  map[string]any
	gate    chan struct{}
}

func newRecordingClient() *recordingClient {
	return &recordingClient{
		results: make(map[string]any),
		errs:    make(map[string]error),
		panics:  make(map[string]any),
	}
}

func (c *recordingClient) recordCall(call recordedCall) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = append(c.calls, call)
}

func (c *recordingClient) getCalls() []recordedCall {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]recordedCall(nil), c.calls...)
}

func (c *recordingClient) Query(ctx context.Context, path string, input any, opts ...rpc.CallOption) (any, error) {
	return c.do(ctx, procedure.KindQuery, path, input, opts)
}

func (c *recordingClient) Mutation(ctx context.Context, path string, input any, opts ...rpc.CallOption) (any, error) {
	return c.do(ctx, procedure.KindMutation, path, input, opts)
}

func (c *recordingClient) do(ctx context.Context, kind procedure.Kind, path string, input any, opts []rpc.CallOption) (any, error) {
	c.recordCall(recordedCall{
		Kind:      kind,
		Path:      path,
		Input:     input,
		Options:   rpc.NewCallOptions(opts...),
		RequestID: rpc.RequestIDFromContext(ctx),
	})

	if c.gate != nil {
		<-c.gate
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if p, ok := c.panics[path]; ok {
		panic(p)
	}
	if err, ok := c.errs[path]; ok {
		return nil, err
	}
	return c.results[path], nil
}

func TestInvoker_Success(t *testing.T) {
	client := newRecordingClient()
	client.results["nested.deep.echo"] = "pong"
	inv := NewInvoker(Ready(client), nil)

	res := inv.Invoke(context.Background(), Call{Path: "nested.deep.echo", Kind: procedure.KindQuery, Args: "ping"},
		query.BaseQueryAPI{Endpoint: "nested_Deep_Echo", RequestID: "req-42"})
	if res.Error != nil {
		t.Fatalf("unexpected error %v", res.Error)
	}
	if res.Data != "pong" {
		t.Errorf("Data = %v, want pong", res.Data)
	}

	calls := client.getCalls()
	if len(calls) != 1 {
		t.Fatalf("expected 1 call, got %d", len(calls))
	}
	if calls[0].Kind != procedure.KindQuery || calls[0].Path != "nested.deep.echo" || calls[0].Input != "ping" {
		t.Errorf("unexpected call %+v", calls[0])
	}
	if calls[0].RequestID != "req-42" {
		t.Errorf("expected request id to reach the client, got %q", calls[0].RequestID)
	}
}

func TestInvoker_NormalizesFailures(t *testing.T) {
	tests := []struct {
		name  string
		setup func(c *recordingClient)
		kind  ErrorKind
	}{
		{
			name: "client error",
			setup: func(c *recordingClient) {
				c.errs["p"] = &rpc.ClientError{Message: "bad gateway", HTTPStatus: http.StatusBadGateway}
			},
			kind: KindClientError,
		},
		{
			name: "server error",
			setup: func(c *recordingClient) {
				c.errs["p"] = procedure.NewError(procedure.CodeNotFound, "thing not found")
			},
			kind: KindServerError,
		},
		{
			name: "unknown error",
			setup: func(c *recordingClient) {
				c.errs["p"] = stderrors.New("boom")
			},
			kind: KindUnknownError,
		},
		{
			name: "panic",
			setup: func(c *recordingClient) {
				c.panics["p"] = "client exploded"
			},
			kind: KindUnknownError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newRecordingClient()
			tt.setup(client)
			inv := NewInvoker(Ready(client), nil)

			res := inv.Invoke(context.Background(), Call{Path: "p", Kind: procedure.KindMutation}, query.BaseQueryAPI{RequestID: "r1"})
			nerr, ok := AsNormalized(res.Error)
			if !ok {
				t.Fatalf("expected NormalizedError, got %T (%v)", res.Error, res.Error)
			}
			if nerr.Kind != tt.kind {
				t.Errorf("Kind = %q, want %q", nerr.Kind, tt.kind)
			}
			if nerr.RequestID != "r1" || nerr.Path != "p" {
				t.Errorf("expected request id and path, got %q %q", nerr.RequestID, nerr.Path)
			}
			if res.Data != nil {
				t.Errorf("expected no data, got %v", res.Data)
			}
		})
	}
}

func TestInvoker_DeferredResolvesPerCall(t *testing.T) {
	client := newRecordingClient()
	client.results["listUsers"] = []string{"a"}

	var (
		mu     sync.Mutex
		tokens []any
	)
	source := Deferred(func(ctx context.Context, api query.BaseQueryAPI) (rpc.Client, error) {
		mu.Lock()
		tokens = append(tokens, api.Extra)
		mu.Unlock()
		return client, nil
	})
	inv := NewInvoker(source, nil)
	call := Call{Path: "listUsers", Kind: procedure.KindQuery}

	inv.Invoke(context.Background(), call, query.BaseQueryAPI{Extra: "token-1"})
	inv.Invoke(context.Background(), call, query.BaseQueryAPI{Extra: "token-2"})

	mu.Lock()
	defer mu.Unlock()
	if len(tokens) != 2 || tokens[0] != "token-1" || tokens[1] != "token-2" {
		t.Errorf("expected factory to run per call with the api extra, got %v", tokens)
	}
}

func TestInvoker_DeferredFailures(t *testing.T) {
	call := Call{Path: "listUsers", Kind: procedure.KindQuery}

	failing := NewInvoker(Deferred(func(context.Context, query.BaseQueryAPI) (rpc.Client, error) {
		return nil, stderrors.New("no session")
	}), nil)
	res := failing.Invoke(context.Background(), call, query.BaseQueryAPI{})
	if nerr, ok := AsNormalized(res.Error); !ok || nerr.Kind != KindUnknownError || nerr.Raw != "no session" {
		t.Errorf("unexpected result %v", res.Error)
	}

	nilClient := NewInvoker(Deferred(func(context.Context, query.BaseQueryAPI) (rpc.Client, error) {
		return nil, nil
	}), nil)
	res = nilClient.Invoke(context.Background(), call, query.BaseQueryAPI{})
	if !IsLibraryError(res.Error) {
		t.Errorf("expected library error for nil client, got %v", res.Error)
	}

	res = NewInvoker(nil, nil).Invoke(context.Background(), call, query.BaseQueryAPI{})
	if !IsLibraryError(res.Error) {
		t.Errorf("expected library error without a source, got %v", res.Error)
	}
}

func TestInvoker_ExtraOptions(t *testing.T) {
	client := newRecordingClient()
	inv := NewInvoker(Ready(client), nil)

	header := http.Header{}
	header.Set("Authorization", "Bearer abc")
	inv.Invoke(context.Background(), Call{Path: "p", Kind: procedure.KindQuery}, query.BaseQueryAPI{
		ExtraOptions: map[string]any{
			ExtraOptionHeaders: header,
			"trace":            true,
		},
	})

	calls := client.getCalls()
	if len(calls) != 1 {
		t.Fatalf("expected 1 call, got %d", len(calls))
	}
	opts := calls[0].Options
	if got := opts.Header.Get("Authorization"); got != "Bearer abc" {
		t.Errorf("Authorization header = %q", got)
	}
	if opts.Metadata["trace"] != true {
		t.Errorf("expected metadata to carry trace, got %v", opts.Metadata)
	}
	if _, ok := opts.Metadata[ExtraOptionHeaders]; ok {
		t.Error("headers should not be duplicated into metadata")
	}
	if calls[0].RequestID == "" {
		t.Error("expected a generated request id")
	}
}

func TestInvoker_BaseQuery(t *testing.T) {
	client := newRecordingClient()
	client.results["getUserById"] = "alice"
	base := NewInvoker(Ready(client), nil).BaseQuery()
	ctx := context.Background()

	if res := base(ctx, Call{Path: "getUserById", Kind: procedure.KindQuery, Args: 1}, query.BaseQueryAPI{}); res.Data != "alice" {
		t.Errorf("unexpected result %+v", res)
	}
	if res := base(ctx, &Call{Path: "getUserById", Kind: procedure.KindQuery, Args: 1}, query.BaseQueryAPI{}); res.Data != "alice" {
		t.Errorf("unexpected pointer result %+v", res)
	}
	if res := base(ctx, "getUserById", query.BaseQueryAPI{}); !IsLibraryError(res.Error) {
		t.Errorf("expected library error for a foreign descriptor, got %v", res.Error)
	}
}

func TestClientSource_Validate(t *testing.T) {
	if err := Ready(nil).Validate(); err == nil {
		t.Error("expected ready source without client to fail")
	}
	if err := Deferred(nil).Validate(); err == nil {
		t.Error("expected deferred source without factory to fail")
	}
	if err := Ready(newRecordingClient()).Validate(); err != nil {
		t.Errorf("unexpected error %v", err)
	}
	if err := FromHTTP("http://localhost/rpc").Validate(); err != nil {
		t.Errorf("unexpected error %v", err)
	}
}
