package query

import (
	"context"
	"sort"
	"sync"

	"github.com/goliatone/go-rpc-query/procedure"
)

// Util groups cache utilities that act on the whole api.
type Util struct {
	api *Api
}

// PatchResult describes a cache update made by UpdateQueryData.
type PatchResult struct {
	Endpoint string
	Args     any
	// Applied is false when no cached data existed for (Endpoint, Args).
	Applied bool

	undo func()
	once sync.Once
}

// Undo restores the data that was cached before the update.
func (p *PatchResult) Undo() {
	if p == nil || p.undo == nil {
		return
	}
	p.once.Do(p.undo)
}

// UpdateQueryData replaces cached data for (endpoint, args) with recipe(data).
// Nothing happens when the entry holds no data yet.
func (u *Util) UpdateQueryData(endpoint string, args any, recipe func(data any) any) *PatchResult {
	a := u.api
	patch := &PatchResult{Endpoint: endpoint, Args: args}
	if recipe == nil {
		return patch
	}

	key := a.cacheKey(endpoint, args)
	e, ok := a.entries.Load(key)
	if !ok {
		return patch
	}

	current, had := e.currentData()
	if !had {
		return patch
	}

	next := recipe(current)
	e.setData(next)
	a.refreshCached(key, next)

	patch.Applied = true
	patch.undo = func() {
		e.setData(current)
		a.refreshCached(key, current)
	}
	return patch
}

// refreshCached overwrites key only while the cache still holds it, so
// patching never makes expired data fresh again.
func (a *Api) refreshCached(key string, value any) {
	ctx := context.Background()
	if _, ok := a.cache.Get(ctx, key); !ok {
		return
	}
	if err := a.cache.Set(ctx, key, value); err != nil {
		a.logger.Debug("cache set failed", "key", key, "error", err)
	}
}

// UpsertQueryData stores data for (endpoint, args) as if it had been fetched.
func (u *Util) UpsertQueryData(ctx context.Context, endpoint string, args any, data any) error {
	a := u.api
	q, ok := a.QueryEndpoint(endpoint)
	if !ok {
		return unknownEndpoint(endpoint, procedure.KindQuery)
	}

	e := q.entryFor(args)
	e.setData(data)
	if err := a.cache.Set(ctx, e.key, data); err != nil {
		return err
	}
	if e.subscriberCount() == 0 {
		q.scheduleRemoval(e)
	}
	return nil
}

// InvalidateTags expires entries providing tags and refetches subscribed ones.
func (u *Util) InvalidateTags(ctx context.Context, tags ...Tag) {
	u.api.invalidateTags(ctx, tags)
}

// InvalidatedEntry identifies an entry matched by SelectInvalidatedBy.
type InvalidatedEntry struct {
	Endpoint string
	Args     any
	Key      string
}

// SelectInvalidatedBy lists the entries InvalidateTags(tags...) would expire.
func (u *Util) SelectInvalidatedBy(tags ...Tag) []InvalidatedEntry {
	a := u.api
	keys := a.matchTags(dedupeTags(tags))
	sort.Strings(keys)

	out := make([]InvalidatedEntry, 0, len(keys))
	for _, key := range keys {
		if e, ok := a.entries.Load(key); ok {
			out = append(out, InvalidatedEntry{Endpoint: e.endpoint, Args: e.args, Key: key})
		}
	}
	return out
}

// Prefetch fills the cache for (endpoint, args).
func (u *Util) Prefetch(ctx context.Context, endpoint string, args any, opts ...PrefetchOption) (QueryState, error) {
	q, ok := u.api.QueryEndpoint(endpoint)
	if !ok {
		return QueryState{}, unknownEndpoint(endpoint, procedure.KindQuery)
	}
	return q.prefetch(ctx, args, newPrefetchOptions(opts)), nil
}

// ResetAPIState drops every cached entry of the api.
func (u *Util) ResetAPIState(ctx context.Context) error {
	a := u.api
	err := a.cache.DeleteByPrefix(ctx, a.keyPrefix())

	var removed []*entry
	a.entries.Range(func(_ string, e *entry) bool {
		removed = append(removed, e)
		return true
	})
	a.entries.Clear()
	a.tagIndex.clear()
	for _, e := range removed {
		e.markRemoved()
	}

	a.logger.Debug("api state reset", "entries", len(removed))
	return err
}
