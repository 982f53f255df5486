package query

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/goliatone/go-rpc-query/pkg/testsupport"
	"github.com/goliatone/go-rpc-query/procedure"
)

type testUser struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

type renameArgs struct {
	ID   int
	Name string
}

// fakeBackend serves base query calls and records them.
type fakeBackend struct {
	mu    sync.Mutex
	users map[int]testUser
	calls []string
	fail  map[string]error
	gate  chan struct{}
}

func newFakeBackend(t *testing.T) *fakeBackend {
	t.Helper()

	var seed []testUser
	testsupport.LoadFixtureJSON(t, testsupport.FixturePath("users.json"), &seed)

	b := &fakeBackend{users: make(map[int]testUser), fail: make(map[string]error)}
	for _, u := range seed {
		b.users[u.ID] = u
	}
	return b
}

func (b *fakeBackend) recordCall(call string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls = append(b.calls, call)
}

func (b *fakeBackend) getCalls() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.calls...)
}

func (b *fakeBackend) countCalls(call string) int {
	n := 0
	for _, c := range b.getCalls() {
		if c == call {
			n++
		}
	}
	return n
}

func (b *fakeBackend) failNext(endpoint string, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.fail[endpoint] = err
}

func (b *fakeBackend) baseQuery(ctx context.Context, args any, api BaseQueryAPI) Result {
	b.recordCall(api.Endpoint)

	if b.gate != nil {
		select {
		case <-b.gate:
		case <-ctx.Done():
			return Result{Error: ctx.Err()}
		}
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if err, ok := b.fail[api.Endpoint]; ok {
		delete(b.fail, api.Endpoint)
		return Result{Error: err}
	}

	switch api.Endpoint {
	case "getUserById":
		id, _ := args.(int)
		u, ok := b.users[id]
		if !ok {
			return Result{Error: procedure.Errorf(procedure.CodeNotFound, "User with id %d not found", id)}
		}
		return Result{Data: u}
	case "listUsers":
		out := make([]testUser, 0, len(b.users))
		for id := 1; id <= len(b.users); id++ {
			out = append(out, b.users[id])
		}
		return Result{Data: out}
	case "updateName":
		in := args.(renameArgs)
		u, ok := b.users[in.ID]
		if !ok {
			return Result{Error: procedure.Errorf(procedure.CodeNotFound, "User with id %d not found", in.ID)}
		}
		u.Name = in.Name
		b.users[in.ID] = u
		return Result{Data: u}
	}
	return Result{Error: fmt.Errorf("unexpected endpoint %s", api.Endpoint)}
}

func userEndpoints(build Builder) map[string]Definition {
	return map[string]Definition{
		"getUserById": build.Query(Definition{
			ProvidesTags: func(result any, err error, args any) []Tag {
				return []Tag{TagID("User", args)}
			},
		}),
		"listUsers": build.Query(Definition{
			ProvidesTags: func(result any, err error, args any) []Tag {
				return []Tag{TagID("User", "LIST")}
			},
		}),
		"updateName": build.Mutation(Definition{
			InvalidatesTags: func(result any, err error, args any) []Tag {
				in := args.(renameArgs)
				return []Tag{TagID("User", in.ID), TagID("User", "LIST")}
			},
		}),
	}
}

func newTestApi(t *testing.T, backend *fakeBackend, opts ...func(*Options)) *Api {
	t.Helper()

	o := Options{
		ReducerPath: "testApi",
		TagTypes:    []string{"User"},
		BaseQuery:   backend.baseQuery,
		Endpoints:   userEndpoints,
	}
	for _, opt := range opts {
		opt(&o)
	}

	a, err := New(o)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return a
}

func mustQuery(t *testing.T, a *Api, name string) *QueryEndpoint {
	t.Helper()
	q, ok := a.QueryEndpoint(name)
	if !ok {
		t.Fatalf("query endpoint %s not found", name)
	}
	return q
}

func mustMutation(t *testing.T, a *Api, name string) *MutationEndpoint {
	t.Helper()
	m, ok := a.MutationEndpoint(name)
	if !ok {
		t.Fatalf("mutation endpoint %s not found", name)
	}
	return m
}

// eventually polls cond until it holds or the deadline passes.
func eventually(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("condition not met: %s", msg)
}
