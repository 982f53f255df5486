package query

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// MutationEndpoint is an uncached endpoint that invalidates tags.
type MutationEndpoint struct {
	api  *Api
	rec  *endpointRecord
	name string
}

// Name returns the endpoint name.
func (m *MutationEndpoint) Name() string {
	return m.name
}

// Initiate runs the mutation and blocks until it settles. Tags returned by
// InvalidatesTags are invalidated afterwards, whether the mutation failed or
// not, and subscribed queries holding them are refetched before returning.
func (m *MutationEndpoint) Initiate(ctx context.Context, args any) MutationState {
	a := m.api
	def := m.rec.def
	requestID := uuid.NewString()

	var (
		lc       *QueryLifecycle
		hookDone <-chan struct{}
	)
	if hook := def.OnQueryStarted; hook != nil {
		lc = newQueryLifecycle(a.util, m.name, args, requestID)
		hookDone = a.runHook(m.name, "OnQueryStarted", func() { hook(args, lc) })
	}

	a.logger.Debug("mutation started", "endpoint", m.name, "request_id", requestID)
	res := a.execute(ctx, m.rec, args, requestID)

	if lc != nil {
		lc.resolve(res)
		waitHook(ctx, hookDone)
	}

	if def.InvalidatesTags != nil {
		a.invalidateTags(ctx, def.InvalidatesTags(res.Data, res.Error, args))
	}

	status := StatusFulfilled
	if res.Error != nil {
		status = StatusRejected
		a.logger.Debug("mutation rejected", "endpoint", m.name, "request_id", requestID, "error", res.Error)
	} else {
		a.logger.Debug("mutation fulfilled", "endpoint", m.name, "request_id", requestID)
	}
	return newMutationState(m.name, args, status, res, requestID)
}

// UseMutation returns a trigger holding the state of its last call.
func (m *MutationEndpoint) UseMutation() *MutationTrigger {
	return &MutationTrigger{endpoint: m}
}

// invalidateTags expires every entry providing one of tags and refetches the
// ones that still have subscribers.
func (a *Api) invalidateTags(ctx context.Context, tags []Tag) {
	tags = dedupeTags(tags)
	if len(tags) == 0 {
		return
	}
	a.checkTags(tags)

	keys := a.matchTags(tags)
	if len(keys) == 0 {
		return
	}
	if err := a.cache.InvalidateKeys(ctx, keys); err != nil {
		a.logger.Warn("cache invalidation failed", "keys", len(keys), "error", err)
	}
	a.logger.Debug("tags invalidated", "tags", len(tags), "entries", len(keys))

	var wg sync.WaitGroup
	for _, key := range keys {
		e, ok := a.entries.Load(key)
		if !ok || e.subscriberCount() == 0 {
			continue
		}
		q, ok := a.QueryEndpoint(e.endpoint)
		if !ok {
			continue
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			q.fetch(ctx, e, true)
		}()
	}
	wg.Wait()
}

func (a *Api) matchTags(tags []Tag) []string {
	return a.tagIndex.match(tags, func(key string) ([]Tag, bool) {
		e, ok := a.entries.Load(key)
		if !ok {
			return nil, false
		}
		return e.providedTags(), true
	})
}
