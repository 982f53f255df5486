package query

import (
	"context"
	"sync"
)

// QuerySubscription keeps a cache entry alive and streams its state.
type QuerySubscription struct {
	endpoint *QueryEndpoint
	entry    *entry
	id       uint64
	updates  chan QueryState
	once     sync.Once
}

// newQuerySubscription subscribes to the live entry for args. An entry
// detached by its keep-unused timer is replaced by a fresh one.
func newQuerySubscription(endpoint *QueryEndpoint, args any) *QuerySubscription {
	sub := &QuerySubscription{
		endpoint: endpoint,
		updates:  make(chan QueryState, 1),
	}
	for {
		e := endpoint.entryFor(args)
		sub.entry = e
		if e.subscribe(sub) {
			return sub
		}
	}
}

// push delivers st, replacing an unread older state.
func (s *QuerySubscription) push(st QueryState) {
	select {
	case s.updates <- st:
		return
	default:
	}
	select {
	case <-s.updates:
	default:
	}
	select {
	case s.updates <- st:
	default:
	}
}

// Args returns the args the subscription was created with.
func (s *QuerySubscription) Args() any {
	return s.entry.args
}

// State returns the current state of the subscribed entry.
func (s *QuerySubscription) State() QueryState {
	return s.entry.snapshot()
}

// Updates streams state changes. Only the latest unread state is kept.
func (s *QuerySubscription) Updates() <-chan QueryState {
	return s.updates
}

// Wait blocks until the entry settles (no request in flight) and returns the
// settled state.
func (s *QuerySubscription) Wait(ctx context.Context) (QueryState, error) {
	return waitSettled(ctx, s.entry)
}

// Refetch forces a new request for the entry and waits for it.
func (s *QuerySubscription) Refetch(ctx context.Context) QueryState {
	return s.endpoint.fetch(ctx, s.entry, true)
}

// Unsubscribe releases the entry. Once the last subscriber leaves, the entry is
// removed after the endpoint keepUnusedDataFor delay.
func (s *QuerySubscription) Unsubscribe() {
	s.once.Do(func() {
		if s.entry.unsubscribe(s.id) == 0 {
			s.endpoint.scheduleRemoval(s.entry)
		}
	})
}

func waitSettled(ctx context.Context, e *entry) (QueryState, error) {
	for {
		st, changed := e.waitChange()
		if !st.IsFetching {
			return st, nil
		}
		select {
		case <-changed:
		case <-ctx.Done():
			return e.snapshot(), ctx.Err()
		}
	}
}

// LazyQuery is a query that only runs when triggered.
type LazyQuery struct {
	endpoint *QueryEndpoint

	mu  sync.Mutex
	sub *QuerySubscription
}

// Trigger subscribes to args, fetches them and waits for the result.
// With preferCacheValue set, fresh cached data is returned without a request.
func (l *LazyQuery) Trigger(ctx context.Context, args any, preferCacheValue ...bool) (QueryState, error) {
	preferCache := len(preferCacheValue) > 0 && preferCacheValue[0]

	key := l.endpoint.api.cacheKey(l.endpoint.name, args)

	l.mu.Lock()
	if l.sub == nil || l.sub.entry.key != key || l.sub.entry.isDetached() {
		if l.sub != nil {
			l.sub.Unsubscribe()
		}
		l.sub = newQuerySubscription(l.endpoint, args)
	}
	e := l.sub.entry
	l.mu.Unlock()

	st := l.endpoint.fetch(ctx, e, !preferCache)
	return st, st.Error
}

// State returns the state of the last triggered args, or an uninitialized
// state before the first trigger.
func (l *LazyQuery) State() QueryState {
	l.mu.Lock()
	sub := l.sub
	l.mu.Unlock()

	if sub == nil {
		return QueryState{
			Endpoint:        l.endpoint.name,
			Status:          StatusUninitialized,
			IsUninitialized: true,
		}
	}
	return sub.State()
}

// LastArgs returns the args of the last trigger.
func (l *LazyQuery) LastArgs() any {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.sub == nil {
		return nil
	}
	return l.sub.Args()
}

// Unsubscribe releases the last triggered entry.
func (l *LazyQuery) Unsubscribe() {
	l.mu.Lock()
	sub := l.sub
	l.sub = nil
	l.mu.Unlock()

	if sub != nil {
		sub.Unsubscribe()
	}
}

// MutationTrigger runs a mutation and remembers its last state.
type MutationTrigger struct {
	endpoint *MutationEndpoint

	mu    sync.Mutex
	state MutationState
}

// Trigger runs the mutation and waits for it, including tag invalidation.
func (t *MutationTrigger) Trigger(ctx context.Context, args any) MutationState {
	t.mu.Lock()
	t.state = newMutationState(t.endpoint.name, args, StatusPending, Result{}, "")
	t.mu.Unlock()

	st := t.endpoint.Initiate(ctx, args)

	t.mu.Lock()
	t.state = st
	t.mu.Unlock()
	return st
}

// State returns the state of the last trigger.
func (t *MutationTrigger) State() MutationState {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state.Status == "" {
		return newMutationState(t.endpoint.name, nil, StatusUninitialized, Result{}, "")
	}
	return t.state
}

// Reset forgets the last trigger.
func (t *MutationTrigger) Reset() {
	t.mu.Lock()
	t.state = MutationState{}
	t.mu.Unlock()
}
