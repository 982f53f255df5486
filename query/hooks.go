package query

import (
	"context"

	"github.com/goliatone/go-rpc-query/procedure"
)

// Hook signatures returned by Member.
type (
	QueryHook      func(ctx context.Context, args any, opts ...SubscribeOption) *QuerySubscription
	QueryStateHook func(args any) QueryState
	LazyQueryHook  func() *LazyQuery
	MutationHook   func() *MutationTrigger
	PrefetchHook   func(endpoint string, opts ...PrefetchOption) (PrefetchFunc, error)
	InjectHook     func(opts InjectOptions) *Api
)

// Built-in member names.
const (
	MemberEndpoints       = "endpoints"
	MemberInjectEndpoints = "injectEndpoints"
	MemberReducerPath     = "reducerPath"
	MemberUtil            = "util"
	MemberUsePrefetch     = "usePrefetch"
)

// Member looks up a member of the api by its generated name: the built-ins
// above, use<Name>Query, useLazy<Name>Query and use<Name>Mutation.
func (a *Api) Member(name string) (any, bool) {
	switch name {
	case MemberEndpoints:
		return a.Endpoints(), true
	case MemberInjectEndpoints:
		return InjectHook(a.InjectEndpoints), true
	case MemberReducerPath:
		return a.reducerPath, true
	case MemberUtil:
		return a.util, true
	case MemberUsePrefetch:
		return PrefetchHook(a.UsePrefetch), true
	}

	if fragment, ok := trimHookName(name, "useLazy", "Query"); ok {
		if q := a.queryForFragment(fragment); q != nil {
			return LazyQueryHook(q.UseLazyQuery), true
		}
	}
	if fragment, ok := trimHookName(name, "use", "Query"); ok {
		if q := a.queryForFragment(fragment); q != nil {
			return QueryHook(q.UseQuery), true
		}
	}
	if fragment, ok := trimHookName(name, "use", "Mutation"); ok {
		for _, candidate := range []string{procedure.Decapitalize(fragment), fragment} {
			if m, ok := a.MutationEndpoint(candidate); ok {
				return MutationHook(m.UseMutation), true
			}
		}
	}
	return nil, false
}

func (a *Api) queryForFragment(fragment string) *QueryEndpoint {
	for _, candidate := range []string{procedure.Decapitalize(fragment), fragment} {
		if q, ok := a.QueryEndpoint(candidate); ok {
			return q
		}
	}
	return nil
}

// HookNames returns the generated member names of an endpoint.
func HookNames(endpoint string, kind procedure.Kind) []string {
	base := procedure.Capitalize(endpoint)
	if kind == procedure.KindMutation {
		return []string{"use" + base + "Mutation"}
	}
	return []string{"use" + base + "Query", "useLazy" + base + "Query"}
}
