package query

import (
	"context"

	"github.com/puzpuzpuz/xsync/v3"
)

type cacheTagsContextKey struct{}

// WithCacheTags attaches extra tags to the context. Query entries fetched with
// this context provide them in addition to the endpoint ProvidesTags.
func WithCacheTags(ctx context.Context, tags ...Tag) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	if len(tags) == 0 {
		return ctx
	}

	combined := dedupeTags(append(cacheTagsFromContext(ctx), tags...))
	if len(combined) == 0 {
		return ctx
	}

	return context.WithValue(ctx, cacheTagsContextKey{}, combined)
}

func cacheTagsFromContext(ctx context.Context) []Tag {
	if ctx == nil {
		return nil
	}
	if tags, ok := ctx.Value(cacheTagsContextKey{}).([]Tag); ok {
		return append([]Tag(nil), tags...)
	}
	return nil
}

func dedupeTags(tags []Tag) []Tag {
	if len(tags) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(tags))
	out := make([]Tag, 0, len(tags))
	for _, t := range tags {
		if t.Type == "" {
			continue
		}
		k := t.String()
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, t)
	}
	return out
}

// tagIndex maps a tag type to the cache keys of entries providing it.
type tagIndex struct {
	byType *xsync.MapOf[string, *xsync.MapOf[string, struct{}]]
}

func newTagIndex() *tagIndex {
	return &tagIndex{byType: xsync.NewMapOf[string, *xsync.MapOf[string, struct{}]]()}
}

func (ix *tagIndex) update(key string, previous, current []Tag) {
	keep := make(map[string]struct{}, len(current))
	for _, t := range current {
		keep[t.Type] = struct{}{}
		keys, _ := ix.byType.LoadOrCompute(t.Type, func() *xsync.MapOf[string, struct{}] {
			return xsync.NewMapOf[string, struct{}]()
		})
		keys.Store(key, struct{}{})
	}
	for _, t := range previous {
		if _, ok := keep[t.Type]; ok {
			continue
		}
		if keys, ok := ix.byType.Load(t.Type); ok {
			keys.Delete(key)
		}
	}
}

func (ix *tagIndex) remove(key string, tags []Tag) {
	ix.update(key, tags, nil)
}

// match returns the keys of entries whose provided tags are covered by tags.
func (ix *tagIndex) match(tags []Tag, provided func(key string) ([]Tag, bool)) []string {
	seen := make(map[string]struct{})
	var out []string

	for _, t := range tags {
		keys, ok := ix.byType.Load(t.Type)
		if !ok {
			continue
		}
		keys.Range(func(key string, _ struct{}) bool {
			if _, dup := seen[key]; dup {
				return true
			}
			entryTags, ok := provided(key)
			if !ok {
				return true
			}
			for _, et := range entryTags {
				if t.covers(et) {
					seen[key] = struct{}{}
					out = append(out, key)
					break
				}
			}
			return true
		})
	}
	return out
}

func (ix *tagIndex) clear() {
	ix.byType.Clear()
}
