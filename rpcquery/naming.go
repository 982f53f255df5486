package rpcquery

import (
	"regexp"

	"github.com/goliatone/go-rpc-query/procedure"
)

// Key identifies a member of an API. Only Name keys can resolve to endpoints.
type Key interface {
	isKey()
}

// Name is a member name such as "useGetUserByIdQuery" or "endpoints".
type Name string

func (Name) isKey() {}

// Symbol is an opaque key. Symbols never map to a procedure, so every lookup
// with one fails with a naming error.
type Symbol struct {
	Description string
}

func (Symbol) isKey() {}

// Operation is an accessor of an endpoint reached through Endpoints.
type Operation string

const (
	OpUseMutation              Operation = "useMutation"
	OpUseQuery                 Operation = "useQuery"
	OpUseQueryState            Operation = "useQueryState"
	OpUseQuerySubscription     Operation = "useQuerySubscription"
	OpUseLazyQuery             Operation = "useLazyQuery"
	OpUseLazyQuerySubscription Operation = "useLazyQuerySubscription"
)

// Kind returns the procedure kind an operation belongs to.
func (op Operation) Kind() (procedure.Kind, bool) {
	switch op {
	case OpUseMutation:
		return procedure.KindMutation, true
	case OpUseQuery, OpUseQueryState, OpUseQuerySubscription, OpUseLazyQuery, OpUseLazyQuerySubscription:
		return procedure.KindQuery, true
	}
	return "", false
}

// hookPatterns are tried in order. The lazy pattern runs before the plain
// query pattern, otherwise useLazyXQuery would resolve to endpoint "lazyX".
var hookPatterns = []struct {
	kind procedure.Kind
	re   *regexp.Regexp
}{
	{procedure.KindMutation, regexp.MustCompile(`^use(\w+)Mutation$`)},
	{procedure.KindQuery, regexp.MustCompile(`^useLazy(\w+)Query$`)},
	{procedure.KindQuery, regexp.MustCompile(`^use(\w+)Query$`)},
}

// ParseHookName extracts the endpoint name and kind from a generated hook
// name: useNested_Deep_EchoQuery yields ("nested_Deep_Echo", query).
func ParseHookName(name string) (endpoint string, kind procedure.Kind, ok bool) {
	for _, p := range hookPatterns {
		m := p.re.FindStringSubmatch(name)
		if m == nil || m[1] == "" {
			continue
		}
		return procedure.Decapitalize(m[1]), p.kind, true
	}
	return "", "", false
}
