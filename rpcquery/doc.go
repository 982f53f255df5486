// Package rpcquery generates cached query and mutation endpoints for remote
// procedures on demand.
//
// An API wraps a query.Api. Looking up a hook name that the api does not
// define yet registers the endpoint behind it:
//
//	api, err := rpcquery.CreateAPI(rpcquery.CreateOptions{
//		Client: rpcquery.FromHTTP("http://localhost:8080/rpc"),
//	})
//	useUser, err := api.QueryHook("useGetUserByIdQuery")
//	sub := useUser(ctx, 1)
//	state, err := sub.Wait(ctx)
//
// Endpoint names map to procedure paths by splitting on underscores and
// lowercasing the first letter of each segment, so useNested_Deep_EchoQuery
// calls nested.deep.echo.
//
// CreateAPI builds a fresh api whose base query runs procedures. EnhanceAPI
// wraps an existing api: endpoints it already declares are returned untouched
// and generated endpoints call procedures directly.
//
// Every failure surfaced in a result is a *NormalizedError of kind
// client-error, server-error or unknown-error. Misuse of the accessors is
// reported as a naming error; broken internal invariants as a library error.
package rpcquery
