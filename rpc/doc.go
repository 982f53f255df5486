// Package rpc is the client side of a procedure tree.
//
// Client is the untyped surface the query adapters consume:
//
//	client.Query(ctx, "nested.deep.getVeryNestedMessage", nil)
//	client.Mutation(ctx, "updateName", UpdateNameInput{ID: 1, Name: "Alice Smith"})
//
// Two implementations ship with the package. LocalClient calls a
// procedure.Router in process and returns *procedure.Error values untouched.
// HTTPClient speaks JSON-RPC 2.0 to a Handler and wraps every failure,
// including errors raised by procedures, in *ClientError.
package rpc
