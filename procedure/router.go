package procedure

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Handler executes a procedure with an already decoded input.
type Handler func(ctx context.Context, input any) (any, error)

// Procedure is a single leaf of the procedure tree.
type Procedure struct {
	kind     Kind
	newInput func() any
	handler  Handler
}

// Query declares a read procedure.
func Query[In, Out any](fn func(ctx context.Context, input In) (Out, error)) *Procedure {
	return newProcedure(KindQuery, fn)
}

// Mutation declares a write procedure.
func Mutation[In, Out any](fn func(ctx context.Context, input In) (Out, error)) *Procedure {
	return newProcedure(KindMutation, fn)
}

func newProcedure[In, Out any](kind Kind, fn func(context.Context, In) (Out, error)) *Procedure {
	return &Procedure{
		kind:     kind,
		newInput: func() any { return new(In) },
		handler: func(ctx context.Context, input any) (any, error) {
			var in In
			switch v := input.(type) {
			case nil:
			case *In:
				if v != nil {
					in = *v
				}
			case In:
				in = v
			default:
				return nil, Errorf(CodeBadRequest, "invalid input type %T", input)
			}
			return fn(ctx, in)
		},
	}
}

// Kind returns whether the procedure is a query or a mutation.
func (p *Procedure) Kind() Kind {
	return p.kind
}

// NewInput returns a pointer to a zero value of the procedure input type,
// suitable as a decoding target.
func (p *Procedure) NewInput() any {
	return p.newInput()
}

// Call runs the procedure. Input may be the input value or a pointer to it.
// Errors that are not procedure errors are wrapped as INTERNAL_SERVER_ERROR.
func (p *Procedure) Call(ctx context.Context, input any) (any, error) {
	out, err := p.handler(ctx, input)
	if err != nil {
		return nil, WrapError(err)
	}
	return out, nil
}

// Router is a namespace of procedures and nested routers.
type Router struct {
	mu         sync.RWMutex
	procedures map[string]*Procedure
	children   map[string]*Router
}

// NewRouter creates an empty router.
func NewRouter() *Router {
	return &Router{
		procedures: make(map[string]*Procedure),
		children:   make(map[string]*Router),
	}
}

// Procedure registers a procedure under name and returns the router for chaining.
func (r *Router) Procedure(name string, p *Procedure) *Router {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.procedures[name] = p
	return r
}

// Namespace mounts child under name and returns the parent router for chaining.
func (r *Router) Namespace(name string, child *Router) *Router {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.children[name] = child
	return r
}

// Lookup resolves a dotted path to a procedure.
func (r *Router) Lookup(path string) (*Procedure, bool) {
	segments := strings.Split(path, PathSeparator)
	current := r
	for i, segment := range segments {
		current.mu.RLock()
		if i == len(segments)-1 {
			p, ok := current.procedures[segment]
			current.mu.RUnlock()
			return p, ok
		}
		child, ok := current.children[segment]
		current.mu.RUnlock()
		if !ok {
			return nil, false
		}
		current = child
	}
	return nil, false
}

// Call resolves path and runs the procedure after checking its kind.
func (r *Router) Call(ctx context.Context, kind Kind, path string, input any) (any, error) {
	p, ok := r.Lookup(path)
	if !ok {
		return nil, Errorf(CodeNotFound, "no procedure found on path %q", path)
	}
	if p.Kind() != kind {
		return nil, Errorf(CodeMethodNotSupported, "procedure %q is a %s, called as a %s", path, p.Kind(), kind)
	}
	return p.Call(ctx, input)
}

// Entry is one flattened procedure.
type Entry struct {
	Path         string
	EndpointName string
	Kind         Kind
}

// Descriptor returns the procedure descriptor of the entry.
func (e Entry) Descriptor() Descriptor {
	return Descriptor{Path: e.Path, Kind: e.Kind}
}

// Flatten walks the tree and returns every procedure sorted by path.
func (r *Router) Flatten() []Entry {
	var entries []Entry
	r.flatten(nil, &entries)
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Path < entries[j].Path
	})
	return entries
}

func (r *Router) flatten(prefix []string, out *[]Entry) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for name, p := range r.procedures {
		segments := append(append([]string(nil), prefix...), name)
		*out = append(*out, Entry{
			Path:         strings.Join(segments, PathSeparator),
			EndpointName: JoinSegments(segments...),
			Kind:         p.Kind(),
		})
	}
	for name, child := range r.children {
		child.flatten(append(append([]string(nil), prefix...), name), out)
	}
}

// String renders the flattened tree, mostly for debugging.
func (r *Router) String() string {
	var b strings.Builder
	for _, e := range r.Flatten() {
		fmt.Fprintf(&b, "%s %s\n", e.Kind, e.Path)
	}
	return b.String()
}
