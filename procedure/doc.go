// Package procedure models a tree of remote procedures.
//
// A Router groups queries and mutations into nested namespaces. Every leaf is
// addressed by a dotted path ("nested.deep.getVeryNestedMessage") and by a flat
// endpoint name ("nested_Deep_GetVeryNestedMessage"); ToPath and
// ToEndpointName convert between the two.
//
//	users := procedure.NewRouter().
//		Procedure("getById", procedure.Query(getUserByID)).
//		Procedure("rename", procedure.Mutation(renameUser))
//
//	root := procedure.NewRouter().Namespace("users", users)
//	root.Flatten() // users.getById (query), users.rename (mutation)
//
// Procedures signal failures with *Error, whose Code maps to an HTTP status
// and to a JSON-RPC error code.
package procedure
