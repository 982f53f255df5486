package query

import (
	"context"
	"reflect"
	"testing"

	"github.com/goliatone/go-rpc-query/procedure"
)

func TestMember(t *testing.T) {
	backend := newFakeBackend(t)
	a := newTestApi(t, backend)

	tests := []struct {
		name   string
		member string
		want   any
		found  bool
	}{
		{"endpoints", MemberEndpoints, &Endpoints{}, true},
		{"inject endpoints", MemberInjectEndpoints, InjectHook(nil), true},
		{"reducer path", MemberReducerPath, "", true},
		{"util", MemberUtil, &Util{}, true},
		{"use prefetch", MemberUsePrefetch, PrefetchHook(nil), true},
		{"query hook", "useGetUserByIdQuery", QueryHook(nil), true},
		{"lazy query hook", "useLazyGetUserByIdQuery", LazyQueryHook(nil), true},
		{"mutation hook", "useUpdateNameMutation", MutationHook(nil), true},
		{"mutation as query", "useUpdateNameQuery", nil, false},
		{"query as mutation", "useListUsersMutation", nil, false},
		{"unknown endpoint", "useMissingQuery", nil, false},
		{"empty fragment", "useQuery", nil, false},
		{"unrelated", "somethingElse", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := a.Member(tt.member)
			if ok != tt.found {
				t.Fatalf("Member(%q) found = %v, want %v", tt.member, ok, tt.found)
			}
			if !ok {
				return
			}
			if reflect.TypeOf(got) != reflect.TypeOf(tt.want) {
				t.Errorf("Member(%q) type = %T, want %T", tt.member, got, tt.want)
			}
		})
	}

	if rp, _ := a.Member(MemberReducerPath); rp != "testApi" {
		t.Errorf("expected reducer path testApi, got %v", rp)
	}
}

func TestMember_HooksWork(t *testing.T) {
	backend := newFakeBackend(t)
	a := newTestApi(t, backend)
	ctx := context.Background()

	m, _ := a.Member("useGetUserByIdQuery")
	sub := m.(QueryHook)(ctx, 1)
	defer sub.Unsubscribe()
	st, err := sub.Wait(ctx)
	if err != nil || st.Data.(testUser).Name != "Alice Johnson" {
		t.Fatalf("unexpected state %+v (%v)", st, err)
	}

	m, _ = a.Member("useUpdateNameMutation")
	mst := m.(MutationHook)().Trigger(ctx, renameArgs{ID: 1, Name: "Ally"})
	if !mst.IsSuccess {
		t.Fatalf("expected mutation success, got %+v", mst)
	}
	if got := sub.State().Data.(testUser).Name; got != "Ally" {
		t.Errorf("expected invalidated query to refetch, got %q", got)
	}
}

func TestHookNames(t *testing.T) {
	if got := HookNames("getUserById", procedure.KindQuery); !reflect.DeepEqual(got, []string{"useGetUserByIdQuery", "useLazyGetUserByIdQuery"}) {
		t.Errorf("unexpected query hook names %v", got)
	}
	if got := HookNames("createUser", procedure.KindMutation); !reflect.DeepEqual(got, []string{"useCreateUserMutation"}) {
		t.Errorf("unexpected mutation hook names %v", got)
	}
}

func TestInjectEndpoints_Idempotent(t *testing.T) {
	backend := newFakeBackend(t)
	a := newTestApi(t, backend)

	var replacedCalled bool
	replacement := func(build Builder) map[string]Definition {
		return map[string]Definition{
			"getUserById": build.Query(Definition{
				QueryFn: func(ctx context.Context, args any, api BaseQueryAPI, base BaseQueryFunc) Result {
					replacedCalled = true
					return Result{Data: testUser{ID: 0, Name: "replaced"}}
				},
			}),
			"getPost": build.Query(Definition{}),
		}
	}

	before, _ := a.QueryEndpoint("getUserById")
	if got := a.InjectEndpoints(InjectOptions{Endpoints: replacement}); got != a {
		t.Fatal("expected InjectEndpoints to return the api")
	}
	after, _ := a.QueryEndpoint("getUserById")
	if before != after {
		t.Error("expected existing endpoint to be kept")
	}
	if !a.HasEndpoint("getPost") {
		t.Error("expected new endpoint to be added")
	}

	want := []string{"getPost", "getUserById", "listUsers", "updateName"}
	if got := a.EndpointNames(); !reflect.DeepEqual(got, want) {
		t.Errorf("EndpointNames() = %v, want %v", got, want)
	}
	if names := a.Endpoints().Names(); len(names) != len(want) {
		t.Errorf("Endpoints().Names() = %v", names)
	}

	a.InjectEndpoints(InjectOptions{Endpoints: replacement, OverrideExisting: true})
	q := mustQuery(t, a, "getUserById")
	if q == before {
		t.Error("expected override to replace the endpoint")
	}
	if st := q.Initiate(context.Background(), 5); st.Data.(testUser).Name != "replaced" || !replacedCalled {
		t.Errorf("expected replacement definition to run, got %+v", st)
	}
}

func TestEndpointLookups(t *testing.T) {
	backend := newFakeBackend(t)
	a := newTestApi(t, backend)

	if kind, ok := a.EndpointKind("updateName"); !ok || kind != procedure.KindMutation {
		t.Errorf("EndpointKind(updateName) = %v, %v", kind, ok)
	}
	if _, ok := a.EndpointKind("missing"); ok {
		t.Error("expected missing endpoint kind lookup to fail")
	}
	if _, ok := a.QueryEndpoint("updateName"); ok {
		t.Error("mutation returned as query endpoint")
	}
	if _, ok := a.MutationEndpoint("listUsers"); ok {
		t.Error("query returned as mutation endpoint")
	}
	if ep, ok := a.Endpoints().Get("updateName"); !ok {
		t.Error("expected endpoint lookup to succeed")
	} else if _, isMutation := ep.(*MutationEndpoint); !isMutation {
		t.Errorf("expected *MutationEndpoint, got %T", ep)
	}
	if got := a.TagTypes(); !reflect.DeepEqual(got, []string{"User"}) {
		t.Errorf("TagTypes() = %v", got)
	}
}

func TestInjectEndpoints_DefaultsToQuery(t *testing.T) {
	a, err := New(Options{
		Endpoints: func(Builder) map[string]Definition {
			return map[string]Definition{"plain": {}}
		},
	})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if kind, _ := a.EndpointKind("plain"); kind != procedure.KindQuery {
		t.Errorf("expected query kind, got %q", kind)
	}
}
