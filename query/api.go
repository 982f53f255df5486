package query

import (
	"context"
	"io"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-rpc-query/cache"
	"github.com/goliatone/go-rpc-query/procedure"
	"github.com/puzpuzpuz/xsync/v3"
)

const (
	// DefaultReducerPath is used when Options.ReducerPath is empty.
	DefaultReducerPath = "api"
	// DefaultKeepUnusedDataFor is how long unsubscribed entries stay cached.
	DefaultKeepUnusedDataFor = 60 * time.Second
	// DefaultMaxKeyLength bounds cache keys before args are hashed.
	DefaultMaxKeyLength = 256
)

// Options configures New.
type Options struct {
	ReducerPath       string
	TagTypes          []string
	BaseQuery         BaseQueryFunc
	Endpoints         EndpointsFunc
	Cache             cache.CacheService
	KeySerializer     cache.KeySerializer
	Logger            *slog.Logger
	Extra             any
	KeepUnusedDataFor time.Duration
}

// Api is a set of cached endpoints sharing one base query and one cache.
type Api struct {
	reducerPath  string
	keyNamespace string
	tagTypes     map[string]struct{}
	baseQuery    BaseQueryFunc
	cache        cache.CacheService
	keys         cache.KeySerializer
	logger       *slog.Logger
	extra        any
	keepUnused   time.Duration

	endpoints *xsync.MapOf[string, *endpointRecord]
	entries   *xsync.MapOf[string, *entry]
	tagIndex  *tagIndex
	util      *Util
}

type endpointRecord struct {
	name     string
	def      Definition
	query    *QueryEndpoint
	mutation *MutationEndpoint
}

// New builds an Api. A sturdyc backed cache is created when Options.Cache is nil.
func New(opts Options) (*Api, error) {
	reducerPath := opts.ReducerPath
	if reducerPath == "" {
		reducerPath = DefaultReducerPath
	}

	cacheService := opts.Cache
	if cacheService == nil {
		svc, err := cache.NewCacheService(cache.DefaultConfig())
		if err != nil {
			return nil, errors.Wrap(err, errors.CategoryInternal, "failed to create query cache")
		}
		cacheService = svc
	}

	keys := opts.KeySerializer
	if keys == nil {
		keys = cache.NewHashingKeySerializer(cache.NewDefaultKeySerializer(), DefaultMaxKeyLength)
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	keep := opts.KeepUnusedDataFor
	if keep == 0 {
		keep = DefaultKeepUnusedDataFor
	}

	a := &Api{
		reducerPath:  reducerPath,
		keyNamespace: toSnake(reducerPath),
		tagTypes:     make(map[string]struct{}, len(opts.TagTypes)),
		baseQuery:    opts.BaseQuery,
		cache:        cacheService,
		keys:         keys,
		logger:       logger.With("reducer_path", reducerPath),
		extra:        opts.Extra,
		keepUnused:   keep,
		endpoints:    xsync.NewMapOf[string, *endpointRecord](),
		entries:      xsync.NewMapOf[string, *entry](),
		tagIndex:     newTagIndex(),
	}
	for _, t := range opts.TagTypes {
		a.tagTypes[t] = struct{}{}
	}
	a.util = &Util{api: a}

	if opts.Endpoints != nil {
		a.InjectEndpoints(InjectOptions{Endpoints: opts.Endpoints})
	}
	return a, nil
}

// ReducerPath returns the name the api was created with.
func (a *Api) ReducerPath() string {
	return a.reducerPath
}

// TagTypes returns the declared tag types, sorted.
func (a *Api) TagTypes() []string {
	types := make([]string, 0, len(a.tagTypes))
	for t := range a.tagTypes {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

// Extra returns the extra value handed to every base query.
func (a *Api) Extra() any {
	return a.extra
}

// Logger returns the api logger.
func (a *Api) Logger() *slog.Logger {
	return a.logger
}

// Util returns the cache utilities of the api.
func (a *Api) Util() *Util {
	return a.util
}

// InjectOptions configures InjectEndpoints.
type InjectOptions struct {
	Endpoints        EndpointsFunc
	OverrideExisting bool
}

// InjectEndpoints adds endpoints to the api and returns it. Names that already
// exist keep their original definition unless OverrideExisting is set, so
// injecting the same name twice never creates a duplicate.
func (a *Api) InjectEndpoints(opts InjectOptions) *Api {
	if opts.Endpoints == nil {
		return a
	}

	defs := opts.Endpoints(Builder{})
	names := make([]string, 0, len(defs))
	for name := range defs {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		def := defs[name]
		if !def.Kind.Valid() {
			def.Kind = procedure.KindQuery
		}

		if opts.OverrideExisting {
			a.endpoints.Store(name, a.newRecord(name, def))
			a.logger.Debug("endpoint injected", "endpoint", name, "kind", def.Kind, "override", true)
			continue
		}

		_, loaded := a.endpoints.LoadOrCompute(name, func() *endpointRecord {
			return a.newRecord(name, def)
		})
		if loaded {
			a.logger.Debug("endpoint already exists, keeping original", "endpoint", name)
			continue
		}
		a.logger.Debug("endpoint injected", "endpoint", name, "kind", def.Kind)
	}
	return a
}

func (a *Api) newRecord(name string, def Definition) *endpointRecord {
	rec := &endpointRecord{name: name, def: def}
	if def.Kind == procedure.KindMutation {
		rec.mutation = &MutationEndpoint{api: a, rec: rec, name: name}
	} else {
		rec.query = &QueryEndpoint{api: a, rec: rec, name: name}
	}
	return rec
}

// HasEndpoint reports whether name was injected.
func (a *Api) HasEndpoint(name string) bool {
	_, ok := a.endpoints.Load(name)
	return ok
}

// EndpointKind returns the kind of an injected endpoint.
func (a *Api) EndpointKind(name string) (procedure.Kind, bool) {
	rec, ok := a.endpoints.Load(name)
	if !ok {
		return "", false
	}
	return rec.def.Kind, true
}

// EndpointNames returns every injected endpoint name, sorted.
func (a *Api) EndpointNames() []string {
	var names []string
	a.endpoints.Range(func(name string, _ *endpointRecord) bool {
		names = append(names, name)
		return true
	})
	sort.Strings(names)
	return names
}

// QueryEndpoint returns the query endpoint called name.
func (a *Api) QueryEndpoint(name string) (*QueryEndpoint, bool) {
	rec, ok := a.endpoints.Load(name)
	if !ok || rec.query == nil {
		return nil, false
	}
	return rec.query, true
}

// MutationEndpoint returns the mutation endpoint called name.
func (a *Api) MutationEndpoint(name string) (*MutationEndpoint, bool) {
	rec, ok := a.endpoints.Load(name)
	if !ok || rec.mutation == nil {
		return nil, false
	}
	return rec.mutation, true
}

// Endpoint returns the *QueryEndpoint or *MutationEndpoint called name.
func (a *Api) Endpoint(name string) (any, bool) {
	rec, ok := a.endpoints.Load(name)
	if !ok {
		return nil, false
	}
	if rec.query != nil {
		return rec.query, true
	}
	return rec.mutation, true
}

// Endpoints returns a view over the injected endpoints.
func (a *Api) Endpoints() *Endpoints {
	return &Endpoints{api: a}
}

// Endpoints is the `endpoints` member of an Api.
type Endpoints struct {
	api *Api
}

// Get returns the endpoint called name.
func (e *Endpoints) Get(name string) (any, bool) {
	return e.api.Endpoint(name)
}

// Names returns every endpoint name, sorted.
func (e *Endpoints) Names() []string {
	return e.api.EndpointNames()
}

// UsePrefetch returns a function that fills the cache for endpoint.
func (a *Api) UsePrefetch(endpoint string, opts ...PrefetchOption) (PrefetchFunc, error) {
	q, ok := a.QueryEndpoint(endpoint)
	if !ok {
		return nil, unknownEndpoint(endpoint, procedure.KindQuery)
	}
	return func(ctx context.Context, args any) QueryState {
		return q.prefetch(ctx, args, newPrefetchOptions(opts))
	}, nil
}

func (a *Api) cacheKey(endpoint string, args any) string {
	return a.keys.SerializeKey(a.keyNamespace+cache.KeySeparator+endpoint, args)
}

func (a *Api) keyPrefix() string {
	return a.keyNamespace + cache.KeySeparator
}

func (a *Api) checkTags(tags []Tag) {
	if len(a.tagTypes) == 0 {
		return
	}
	for _, t := range tags {
		if _, ok := a.tagTypes[t.Type]; !ok {
			a.logger.Warn("tag type is not declared in TagTypes", "tag", t.String())
		}
	}
}

// ErrEntryRemoved is reported to cache lifecycles whose entry left the cache
// before it was ever loaded.
var ErrEntryRemoved = errors.New("cache entry removed before data loaded", errors.CategoryOperation).
	WithTextCode("ENTRY_REMOVED")

func unknownEndpoint(name string, kind procedure.Kind) *errors.Error {
	return errors.New("unknown "+string(kind)+" endpoint "+name, errors.CategoryNotFound).
		WithTextCode("UNKNOWN_ENDPOINT").
		WithMetadata(map[string]any{"endpoint": name, "kind": string(kind)})
}

// IsUnknownEndpoint reports whether err was returned for a missing endpoint.
func IsUnknownEndpoint(err error) bool {
	var rich *errors.Error
	return errors.As(err, &rich) && rich.TextCode == "UNKNOWN_ENDPOINT"
}

func trimHookName(name, prefix, suffix string) (string, bool) {
	if !strings.HasPrefix(name, prefix) || !strings.HasSuffix(name, suffix) {
		return "", false
	}
	fragment := name[len(prefix) : len(name)-len(suffix)]
	return fragment, fragment != ""
}
