package query

import (
	"context"
	"time"

	"github.com/goliatone/go-rpc-query/procedure"
)

// Definition declares one endpoint.
//
// Either Query or QueryFn produces the response. Query maps call args to the
// descriptor handed to the api BaseQuery; QueryFn runs inline and may ignore
// the BaseQuery entirely. When both are nil the raw args reach the BaseQuery.
type Definition struct {
	Kind procedure.Kind

	Query   func(args any) any
	QueryFn func(ctx context.Context, args any, api BaseQueryAPI, baseQuery BaseQueryFunc) Result

	// ProvidesTags is only used by queries.
	ProvidesTags func(result any, err error, args any) []Tag
	// InvalidatesTags is only used by mutations.
	InvalidatesTags func(result any, err error, args any) []Tag

	OnQueryStarted    func(args any, lc *QueryLifecycle)
	OnCacheEntryAdded func(args any, lc *CacheLifecycle)

	// KeepUnusedDataFor overrides the api default. Negative keeps entries forever.
	KeepUnusedDataFor time.Duration

	ExtraOptions map[string]any
}

// Builder stamps definitions with their kind.
type Builder struct{}

// Query returns def as a query definition.
func (Builder) Query(def Definition) Definition {
	def.Kind = procedure.KindQuery
	return def
}

// Mutation returns def as a mutation definition.
func (Builder) Mutation(def Definition) Definition {
	def.Kind = procedure.KindMutation
	return def
}

// EndpointsFunc declares a set of endpoints keyed by name.
type EndpointsFunc func(build Builder) map[string]Definition

// QueryLifecycle is handed to OnQueryStarted.
type QueryLifecycle struct {
	Endpoint  string
	Args      any
	RequestID string
	Util      *Util

	done   chan struct{}
	result Result
}

func newQueryLifecycle(util *Util, endpoint string, args any, requestID string) *QueryLifecycle {
	return &QueryLifecycle{
		Endpoint:  endpoint,
		Args:      args,
		RequestID: requestID,
		Util:      util,
		done:      make(chan struct{}),
	}
}

func (lc *QueryLifecycle) resolve(res Result) {
	lc.result = res
	close(lc.done)
}

// QueryFulfilled blocks until the request settles and returns its data, or
// its error when the request failed.
func (lc *QueryLifecycle) QueryFulfilled(ctx context.Context) (any, error) {
	select {
	case <-lc.done:
		return lc.result.Data, lc.result.Error
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// CacheLifecycle is handed to OnCacheEntryAdded.
type CacheLifecycle struct {
	Endpoint string
	Args     any
	Util     *Util

	entry *entry
}

// CacheDataLoaded blocks until the entry is fulfilled for the first time.
func (lc *CacheLifecycle) CacheDataLoaded(ctx context.Context) (any, error) {
	select {
	case <-lc.entry.loaded:
		return lc.entry.loadedData, nil
	default:
	}
	select {
	case <-lc.entry.loaded:
		return lc.entry.loadedData, nil
	case <-lc.entry.removed:
		return nil, ErrEntryRemoved
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// CacheEntryRemoved is closed once the entry leaves the cache.
func (lc *CacheLifecycle) CacheEntryRemoved() <-chan struct{} {
	return lc.entry.removed
}

// UpdateCachedData replaces the entry data with recipe(data).
func (lc *CacheLifecycle) UpdateCachedData(recipe func(data any) any) *PatchResult {
	return lc.Util.UpdateQueryData(lc.Endpoint, lc.Args, recipe)
}
