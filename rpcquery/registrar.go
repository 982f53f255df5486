package rpcquery

import (
	"context"
	"log/slog"
	"time"

	"github.com/goliatone/go-rpc-query/procedure"
	"github.com/goliatone/go-rpc-query/query"
)

// EndpointOptions are user cache settings for one generated endpoint.
// Implemented by QueryOptions and MutationOptions only.
type EndpointOptions interface {
	kind() procedure.Kind
}

// QueryOptions apply to generated query endpoints.
type QueryOptions struct {
	ProvidesTags      func(result any, err error, args any) []query.Tag
	OnQueryStarted    func(args any, lc *query.QueryLifecycle)
	OnCacheEntryAdded func(args any, lc *query.CacheLifecycle)
	KeepUnusedDataFor time.Duration
	ExtraOptions      map[string]any
}

func (QueryOptions) kind() procedure.Kind { return procedure.KindQuery }

// MutationOptions apply to generated mutation endpoints.
type MutationOptions struct {
	InvalidatesTags func(result any, err error, args any) []query.Tag
	OnQueryStarted  func(args any, lc *query.QueryLifecycle)
	ExtraOptions    map[string]any
}

func (MutationOptions) kind() procedure.Kind { return procedure.KindMutation }

type callMode int

const (
	// functionCall endpoints return a Call descriptor evaluated by the api
	// base query.
	functionCall callMode = iota
	// directCall endpoints invoke the procedure inline and bypass the base
	// query of an api that was built for another transport.
	directCall
)

func (m callMode) String() string {
	if m == directCall {
		return "direct-call"
	}
	return "function-call"
}

type registrar struct {
	api     *query.Api
	invoker *Invoker
	mode    callMode
	options map[string]EndpointOptions
	logger  *slog.Logger
}

// register injects an endpoint for name unless one exists already.
// A name that exists with another kind is a naming error.
func (r *registrar) register(name string, kind procedure.Kind) error {
	if existing, ok := r.api.EndpointKind(name); ok {
		if existing != kind {
			return namingError("endpoint %s is a %s and cannot be used as a %s", name, existing, kind)
		}
		return nil
	}

	def := r.definition(name, kind)
	r.api.InjectEndpoints(query.InjectOptions{
		Endpoints: func(build query.Builder) map[string]query.Definition {
			return map[string]query.Definition{name: def}
		},
	})

	if existing, _ := r.api.EndpointKind(name); existing != kind {
		return namingError("endpoint %s is a %s and cannot be used as a %s", name, existing, kind)
	}
	return nil
}

func (r *registrar) definition(name string, kind procedure.Kind) query.Definition {
	path := procedure.ToPath(name)
	def := query.Definition{Kind: kind}

	switch r.mode {
	case directCall:
		invoker := r.invoker
		def.QueryFn = func(ctx context.Context, args any, api query.BaseQueryAPI, _ query.BaseQueryFunc) query.Result {
			return invoker.Invoke(ctx, Call{Path: path, Kind: kind, Args: args}, api)
		}
	default:
		def.Query = func(args any) any {
			return Call{Path: path, Kind: kind, Args: args}
		}
	}

	r.applyOptions(name, kind, &def)
	r.logger.Debug("generating endpoint", "endpoint", name, "path", path, "kind", string(kind), "mode", r.mode.String())
	return def
}

func (r *registrar) applyOptions(name string, kind procedure.Kind, def *query.Definition) {
	opts, ok := r.options[name]
	if !ok || opts == nil {
		return
	}
	switch o := opts.(type) {
	case *QueryOptions:
		if o == nil {
			return
		}
		opts = *o
	case *MutationOptions:
		if o == nil {
			return
		}
		opts = *o
	}
	if opts.kind() != kind {
		r.logger.Warn("endpoint options ignored, kind mismatch",
			"endpoint", name, "kind", string(kind), "options_kind", string(opts.kind()))
		return
	}

	switch o := opts.(type) {
	case QueryOptions:
		def.ProvidesTags = o.ProvidesTags
		def.OnQueryStarted = o.OnQueryStarted
		def.OnCacheEntryAdded = o.OnCacheEntryAdded
		def.KeepUnusedDataFor = o.KeepUnusedDataFor
		def.ExtraOptions = o.ExtraOptions
	case MutationOptions:
		def.InvalidatesTags = o.InvalidatesTags
		def.OnQueryStarted = o.OnQueryStarted
		def.ExtraOptions = o.ExtraOptions
	}
}

// registerRouter eagerly registers every procedure of router with its kind.
func (r *registrar) registerRouter(router *procedure.Router) error {
	for _, e := range router.Flatten() {
		if err := r.register(e.EndpointName, e.Kind); err != nil {
			return err
		}
	}
	return nil
}
