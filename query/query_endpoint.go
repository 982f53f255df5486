package query

import (
	"context"
	"fmt"
	"time"

	"github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

// QueryEndpoint is a cached, read-only endpoint.
type QueryEndpoint struct {
	api  *Api
	rec  *endpointRecord
	name string
}

// Name returns the endpoint name.
func (q *QueryEndpoint) Name() string {
	return q.name
}

// SubscribeOptions tune UseQuery and Initiate.
type SubscribeOptions struct {
	// Skip subscribes without starting a request.
	Skip bool
	// RefetchOnMountOrArgChange ignores cached data and always requests.
	RefetchOnMountOrArgChange bool
}

// SubscribeOption mutates SubscribeOptions.
type SubscribeOption func(*SubscribeOptions)

// WithSkip subscribes without fetching.
func WithSkip() SubscribeOption {
	return func(o *SubscribeOptions) { o.Skip = true }
}

// WithRefetchOnMount forces a request even when cached data is fresh.
func WithRefetchOnMount() SubscribeOption {
	return func(o *SubscribeOptions) { o.RefetchOnMountOrArgChange = true }
}

func newSubscribeOptions(opts []SubscribeOption) SubscribeOptions {
	var o SubscribeOptions
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	return o
}

// PrefetchOptions tune prefetching.
type PrefetchOptions struct {
	Force       bool
	IfOlderThan time.Duration
}

// PrefetchOption mutates PrefetchOptions.
type PrefetchOption func(*PrefetchOptions)

// WithForce always requests, even when cached data exists.
func WithForce() PrefetchOption {
	return func(o *PrefetchOptions) { o.Force = true }
}

// WithIfOlderThan requests when cached data was fulfilled longer than d ago.
func WithIfOlderThan(d time.Duration) PrefetchOption {
	return func(o *PrefetchOptions) { o.IfOlderThan = d }
}

func newPrefetchOptions(opts []PrefetchOption) PrefetchOptions {
	var o PrefetchOptions
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	return o
}

// PrefetchFunc fills the cache for args and returns the settled state.
type PrefetchFunc func(ctx context.Context, args any) QueryState

// Select returns the cached state for args without requesting anything.
func (q *QueryEndpoint) Select(args any) QueryState {
	if e, ok := q.api.entries.Load(q.api.cacheKey(q.name, args)); ok {
		return e.snapshot()
	}
	return QueryState{
		Endpoint:        q.name,
		Args:            args,
		Status:          StatusUninitialized,
		IsUninitialized: true,
	}
}

// Initiate requests args (unless cached) and blocks until the result is known.
// The entry is not subscribed and expires after KeepUnusedDataFor.
func (q *QueryEndpoint) Initiate(ctx context.Context, args any, opts ...SubscribeOption) QueryState {
	o := newSubscribeOptions(opts)
	e := q.entryFor(args)
	st := e.snapshot()
	if !o.Skip {
		st = q.fetch(ctx, e, o.RefetchOnMountOrArgChange)
	}
	if e.subscriberCount() == 0 {
		q.scheduleRemoval(e)
	}
	return st
}

// UseQuery subscribes to args and starts a request in the background when the
// cache has nothing fresh. The first state on Updates reflects the loading
// flags of that request.
func (q *QueryEndpoint) UseQuery(ctx context.Context, args any, opts ...SubscribeOption) *QuerySubscription {
	o := newSubscribeOptions(opts)
	sub := newQuerySubscription(q, args)
	e := sub.entry

	var (
		requestID string
		started   bool
	)
	if !o.Skip {
		requestID, started = q.start(ctx, e, o.RefetchOnMountOrArgChange)
	}
	if started {
		go q.run(context.WithoutCancel(ctx), e, requestID)
	}
	return sub
}

// UseQuerySubscription is UseQuery for callers that only need the
// subscription side effect.
func (q *QueryEndpoint) UseQuerySubscription(ctx context.Context, args any, opts ...SubscribeOption) *QuerySubscription {
	return q.UseQuery(ctx, args, opts...)
}

// UseQueryState reads the state for args without subscribing.
func (q *QueryEndpoint) UseQueryState(args any) QueryState {
	return q.Select(args)
}

// UseLazyQuery returns a query that only fetches when triggered.
func (q *QueryEndpoint) UseLazyQuery() *LazyQuery {
	return &LazyQuery{endpoint: q}
}

// UseLazyQuerySubscription is UseLazyQuery without the state accessors in mind.
func (q *QueryEndpoint) UseLazyQuerySubscription() *LazyQuery {
	return q.UseLazyQuery()
}

func (q *QueryEndpoint) prefetch(ctx context.Context, args any, opts PrefetchOptions) QueryState {
	e := q.entryFor(args)

	force := opts.Force
	if !force && opts.IfOlderThan > 0 {
		st := e.snapshot()
		force = st.Status == StatusFulfilled && time.Since(st.FulfilledAt) > opts.IfOlderThan
	}

	st := q.fetch(ctx, e, force)
	if e.subscriberCount() == 0 {
		q.scheduleRemoval(e)
	}
	return st
}

// entryFor returns the entry for args, creating it on first use.
func (q *QueryEndpoint) entryFor(args any) *entry {
	a := q.api
	key := a.cacheKey(q.name, args)

	var created bool
	e, _ := a.entries.Compute(key, func(current *entry, loaded bool) (*entry, bool) {
		if loaded && !current.isDetached() {
			return current, false
		}
		created = true
		return newEntry(key, q.name, args), false
	})
	if created {
		a.logger.Debug("cache entry added", "endpoint", q.name, "key", key)
		if hook := q.rec.def.OnCacheEntryAdded; hook != nil {
			lc := &CacheLifecycle{Endpoint: q.name, Args: args, Util: a.util, entry: e}
			a.runHook(q.name, "OnCacheEntryAdded", func() { hook(args, lc) })
		}
	}
	return e
}

// fetch requests e synchronously unless fresh data is cached.
func (q *QueryEndpoint) fetch(ctx context.Context, e *entry, force bool) QueryState {
	requestID, ok := q.start(ctx, e, force)
	if !ok {
		return e.snapshot()
	}
	q.run(ctx, e, requestID)
	return e.snapshot()
}

// start marks e as fetching and returns the request id, or false when the
// cached value is still fresh.
func (q *QueryEndpoint) start(ctx context.Context, e *entry, force bool) (string, bool) {
	if force {
		if err := q.api.cache.Delete(ctx, e.key); err != nil {
			q.api.logger.Debug("cache delete failed", "key", e.key, "error", err)
		}
	} else if e.isFulfilled() {
		if _, ok := q.api.cache.Get(ctx, e.key); ok {
			return "", false
		}
	}

	requestID := uuid.NewString()
	e.begin(requestID)
	return requestID, true
}

func (q *QueryEndpoint) run(ctx context.Context, e *entry, requestID string) {
	a := q.api
	def := q.rec.def

	var (
		lc       *QueryLifecycle
		hookDone <-chan struct{}
	)
	if hook := def.OnQueryStarted; hook != nil {
		lc = newQueryLifecycle(a.util, q.name, e.args, requestID)
		hookDone = a.runHook(q.name, "OnQueryStarted", func() { hook(e.args, lc) })
	}

	a.logger.Debug("query started", "endpoint", q.name, "request_id", requestID)
	res := a.fetchThroughCache(ctx, e.key, q.rec, e.args, requestID)

	var tags []Tag
	if def.ProvidesTags != nil {
		tags = def.ProvidesTags(res.Data, res.Error, e.args)
	}
	tags = dedupeTags(append(tags, cacheTagsFromContext(ctx)...))
	a.checkTags(tags)

	previous := e.providedTags()
	e.finish(requestID, res, tags)
	a.tagIndex.update(e.key, previous, tags)

	if res.Error != nil {
		a.logger.Debug("query rejected", "endpoint", q.name, "request_id", requestID, "error", res.Error)
	} else {
		a.logger.Debug("query fulfilled", "endpoint", q.name, "request_id", requestID)
	}

	if lc != nil {
		lc.resolve(res)
		waitHook(ctx, hookDone)
	}

	if e.subscriberCount() == 0 {
		q.scheduleRemoval(e)
	}
}

func (q *QueryEndpoint) scheduleRemoval(e *entry) {
	keep := q.rec.def.KeepUnusedDataFor
	if keep == 0 {
		keep = q.api.keepUnused
	}
	e.scheduleRemoval(keep, func() { q.api.removeEntry(e) })
}

// fetchError carries a failed Result through the cache so it is never stored.
type fetchError struct {
	res Result
}

func (e *fetchError) Error() string {
	return e.res.Error.Error()
}

func (e *fetchError) Unwrap() error {
	return e.res.Error
}

// fetchThroughCache resolves key through the cache service, which dedupes
// concurrent requests and stores successful results only.
func (a *Api) fetchThroughCache(ctx context.Context, key string, rec *endpointRecord, args any, requestID string) Result {
	value, err := a.cache.GetOrFetch(ctx, key, func(ctx context.Context) (any, error) {
		res := a.execute(ctx, rec, args, requestID)
		if res.Error != nil {
			return nil, &fetchError{res: res}
		}
		return res.Data, nil
	})
	if err != nil {
		var fe *fetchError
		if errors.As(err, &fe) {
			return fe.res
		}
		return Result{Error: err}
	}
	return Result{Data: value}
}

// execute runs the endpoint definition. Panics become rejected results.
func (a *Api) execute(ctx context.Context, rec *endpointRecord, args any, requestID string) (res Result) {
	defer func() {
		if r := recover(); r != nil {
			a.logger.Error("endpoint panicked", "endpoint", rec.name, "panic", r)
			res = Result{Error: errors.New(fmt.Sprintf("endpoint %s panicked: %v", rec.name, r), errors.CategoryInternal).
				WithTextCode("ENDPOINT_PANIC")}
		}
	}()

	api := BaseQueryAPI{
		Endpoint:     rec.name,
		Kind:         rec.def.Kind,
		RequestID:    requestID,
		Extra:        a.extra,
		ExtraOptions: rec.def.ExtraOptions,
	}

	if rec.def.QueryFn != nil {
		return rec.def.QueryFn(ctx, args, api, a.baseQuery)
	}
	if a.baseQuery == nil {
		return Result{Error: errors.New("no base query configured for endpoint "+rec.name, errors.CategoryInternal).
			WithTextCode("MISSING_BASE_QUERY")}
	}

	descriptor := args
	if rec.def.Query != nil {
		descriptor = rec.def.Query(args)
	}
	return a.baseQuery(ctx, descriptor, api)
}

// runHook runs fn in its own goroutine and closes the returned channel when
// it returns. Hook panics are logged, never propagated.
func (a *Api) runHook(endpoint, hook string, fn func()) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		defer func() {
			if r := recover(); r != nil {
				a.logger.Error("lifecycle hook panicked", "endpoint", endpoint, "hook", hook, "panic", r)
			}
		}()
		fn()
	}()
	return done
}

func waitHook(ctx context.Context, done <-chan struct{}) {
	if done == nil {
		return
	}
	select {
	case <-done:
	case <-ctx.Done():
	}
}

// removeEntry drops e from the cache and the entry table.
// A replacement entry under the same key keeps its cache data and tags.
func (a *Api) removeEntry(e *entry) {
	var removed bool
	a.entries.Compute(e.key, func(current *entry, loaded bool) (*entry, bool) {
		if !loaded || current != e {
			return current, !loaded
		}
		removed = true
		return nil, true
	})
	if !removed {
		e.markRemoved()
		return
	}
	if err := a.cache.Delete(context.Background(), e.key); err != nil {
		a.logger.Debug("cache delete failed", "key", e.key, "error", err)
	}
	a.tagIndex.remove(e.key, e.providedTags())
	e.markRemoved()
	a.logger.Debug("cache entry removed", "endpoint", e.endpoint, "key", e.key)
}
