package rpcquery

import (
	"github.com/goliatone/go-rpc-query/procedure"
	"github.com/goliatone/go-rpc-query/query"
)

// Endpoints gives access to endpoints by name. Nothing is registered until an
// operation is requested, since only the operation tells the kind apart.
type Endpoints struct {
	api *API
}

// Get returns the accessor for name.
func (e *Endpoints) Get(name string) *EndpointAccessor {
	return &EndpointAccessor{api: e.api, name: name}
}

// Names returns the registered endpoint names.
func (e *Endpoints) Names() []string {
	return e.api.base.EndpointNames()
}

// EndpointAccessor is endpoints.<name>.
type EndpointAccessor struct {
	api  *API
	name string
}

// Name returns the endpoint name.
func (x *EndpointAccessor) Name() string {
	return x.name
}

// Operation returns endpoints.<name>.<op>, registering the endpoint with the
// kind op implies when it does not exist yet. The result is one of
// query.QueryHook, query.QueryStateHook, query.LazyQueryHook or
// query.MutationHook.
func (x *EndpointAccessor) Operation(op Operation) (any, error) {
	if x.name == "" {
		return nil, libraryError("endpoint accessor has no endpoint name")
	}
	kind, ok := op.Kind()
	if !ok {
		return nil, namingError("member endpoints.%s.%s is not defined and could not be generated", x.name, op)
	}
	if err := x.api.registrar.register(x.name, kind); err != nil {
		return nil, err
	}

	if kind == procedure.KindMutation {
		m, ok := x.api.base.MutationEndpoint(x.name)
		if !ok {
			return nil, libraryError("mutation endpoint %s missing after registration", x.name)
		}
		return query.MutationHook(m.UseMutation), nil
	}

	q, ok := x.api.base.QueryEndpoint(x.name)
	if !ok {
		return nil, libraryError("query endpoint %s missing after registration", x.name)
	}
	switch op {
	case OpUseQueryState:
		return query.QueryStateHook(q.UseQueryState), nil
	case OpUseQuerySubscription:
		return query.QueryHook(q.UseQuerySubscription), nil
	case OpUseLazyQuery:
		return query.LazyQueryHook(q.UseLazyQuery), nil
	case OpUseLazyQuerySubscription:
		return query.LazyQueryHook(q.UseLazyQuerySubscription), nil
	default:
		return query.QueryHook(q.UseQuery), nil
	}
}

// UseQuery is Operation(OpUseQuery) with a typed result.
func (x *EndpointAccessor) UseQuery() (query.QueryHook, error) {
	m, err := x.Operation(OpUseQuery)
	if err != nil {
		return nil, err
	}
	return m.(query.QueryHook), nil
}

// UseQueryState is Operation(OpUseQueryState) with a typed result.
func (x *EndpointAccessor) UseQueryState() (query.QueryStateHook, error) {
	m, err := x.Operation(OpUseQueryState)
	if err != nil {
		return nil, err
	}
	return m.(query.QueryStateHook), nil
}

// UseLazyQuery is Operation(OpUseLazyQuery) with a typed result.
func (x *EndpointAccessor) UseLazyQuery() (query.LazyQueryHook, error) {
	m, err := x.Operation(OpUseLazyQuery)
	if err != nil {
		return nil, err
	}
	return m.(query.LazyQueryHook), nil
}

// UseMutation is Operation(OpUseMutation) with a typed result.
func (x *EndpointAccessor) UseMutation() (query.MutationHook, error) {
	m, err := x.Operation(OpUseMutation)
	if err != nil {
		return nil, err
	}
	return m.(query.MutationHook), nil
}
