// Package query is a reactive request cache organised around named endpoints.
//
// An Api owns a set of endpoints declared through an EndpointsFunc. Query
// endpoints are read-through: results are stored in a cache.CacheService under
// a key built from the api reducer path, the endpoint name and the serialized
// args, concurrent requests for the same key share a single call, and failed
// requests are never stored. Mutation endpoints are never cached; instead the
// tags they invalidate expire every query entry providing a matching tag, and
// entries that still have subscribers are refetched.
//
// Subscribers hold entries alive:
//
//	users, _ := api.QueryEndpoint("getUserById")
//	sub := users.UseQuery(ctx, 1)
//	defer sub.Unsubscribe()
//	state, err := sub.Wait(ctx)
//
// Once the last subscriber leaves, the entry is dropped after
// KeepUnusedDataFor. Util exposes cache-wide helpers such as UpdateQueryData
// for optimistic updates and ResetAPIState.
//
// Member resolves generated hook names (useGetUserByIdQuery,
// useLazyGetUserByIdQuery, useCreateUserMutation) for callers that look
// endpoints up by name.
package query
