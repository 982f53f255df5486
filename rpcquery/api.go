package rpcquery

import (
	"log/slog"

	"github.com/goliatone/go-rpc-query/procedure"
	"github.com/goliatone/go-rpc-query/query"
)

// API wraps a query.Api and generates endpoints for procedures on first use.
//
// Members are looked up by name. A member the wrapped api already has is
// returned as is; a hook name such as useGetUserByIdQuery registers the
// getUserById query endpoint first and then returns its hook.
type API struct {
	base      *query.Api
	registrar *registrar
	logger    *slog.Logger
}

func newAPI(base *query.Api, reg *registrar, logger *slog.Logger) *API {
	return &API{base: base, registrar: reg, logger: logger}
}

// Base returns the wrapped api.
func (a *API) Base() *query.Api {
	return a.base
}

// Get resolves a member by key, generating the endpoint behind it if needed.
//
// The endpoints and usePrefetch members are wrapped so that they can generate
// endpoints too. Symbol keys and names that follow no hook convention fail with
// a naming error.
func (a *API) Get(key Key) (any, error) {
	if a.base == nil {
		return nil, libraryError("cannot get endpoints from the wrapped api")
	}

	name, ok := key.(Name)
	if !ok {
		return nil, namingError("member %v cannot be generated: only string names are supported", key)
	}
	member := string(name)

	switch member {
	case query.MemberEndpoints:
		return a.Endpoints(), nil
	case query.MemberUsePrefetch:
		return query.PrefetchHook(a.UsePrefetch), nil
	}

	if m, ok := a.base.Member(member); ok {
		return m, nil
	}

	endpoint, kind, ok := ParseHookName(member)
	if !ok {
		return nil, namingError("member %s is not defined and could not be generated", member)
	}
	if err := a.registrar.register(endpoint, kind); err != nil {
		return nil, err
	}

	m, ok := a.base.Member(member)
	if !ok {
		return nil, libraryError("member %s missing after registering endpoint %s", member, endpoint)
	}
	return m, nil
}

// QueryHook resolves a use<Name>Query member.
func (a *API) QueryHook(name string) (query.QueryHook, error) {
	m, err := a.Get(Name(name))
	if err != nil {
		return nil, err
	}
	hook, ok := m.(query.QueryHook)
	if !ok {
		return nil, namingError("member %s is not a query hook", name)
	}
	return hook, nil
}

// LazyQueryHook returns the hook behind a useLazy<Name>Query name.
func (a *API) LazyQueryHook(name string) (query.LazyQueryHook, error) {
	m, err := a.Get(Name(name))
	if err != nil {
		return nil, err
	}
	hook, ok := m.(query.LazyQueryHook)
	if !ok {
		return nil, namingError("member %s is not a lazy query hook", name)
	}
	return hook, nil
}

// MutationHook returns the hook behind a use<Name>Mutation name.
func (a *API) MutationHook(name string) (query.MutationHook, error) {
	m, err := a.Get(Name(name))
	if err != nil {
		return nil, err
	}
	hook, ok := m.(query.MutationHook)
	if !ok {
		return nil, namingError("member %s is not a mutation hook", name)
	}
	return hook, nil
}

// UsePrefetch registers endpoint as a query when missing and returns its
// prefetch function.
func (a *API) UsePrefetch(endpoint string, opts ...query.PrefetchOption) (query.PrefetchFunc, error) {
	if endpoint == "" {
		return nil, namingError("usePrefetch must be called with an endpoint name")
	}
	if !a.base.HasEndpoint(endpoint) {
		if err := a.registrar.register(endpoint, procedure.KindQuery); err != nil {
			return nil, err
		}
	}
	return a.base.UsePrefetch(endpoint, opts...)
}

// Query returns the query endpoint called name, generating it when missing.
func (a *API) Query(name string) (*query.QueryEndpoint, error) {
	if err := a.registrar.register(name, procedure.KindQuery); err != nil {
		return nil, err
	}
	q, ok := a.base.QueryEndpoint(name)
	if !ok {
		return nil, libraryError("query endpoint %s missing after registration", name)
	}
	return q, nil
}

// Mutation returns the mutation endpoint called name, generating it when missing.
func (a *API) Mutation(name string) (*query.MutationEndpoint, error) {
	if err := a.registrar.register(name, procedure.KindMutation); err != nil {
		return nil, err
	}
	m, ok := a.base.MutationEndpoint(name)
	if !ok {
		return nil, libraryError("mutation endpoint %s missing after registration", name)
	}
	return m, nil
}

// RegisterRouter registers an endpoint for every procedure of router, with
// kinds taken from the router instead of from hook names.
func (a *API) RegisterRouter(router *procedure.Router) error {
	if router == nil {
		return nil
	}
	return a.registrar.registerRouter(router)
}

// Util returns the cache utilities of the wrapped api.
func (a *API) Util() *query.Util {
	return a.base.Util()
}

// Endpoints returns the endpoints accessor.
func (a *API) Endpoints() *Endpoints {
	return &Endpoints{api: a}
}
