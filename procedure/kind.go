package procedure

// Kind classifies a procedure as a read (query) or a write (mutation).
type Kind string

const (
	KindQuery    Kind = "query"
	KindMutation Kind = "mutation"
)

// Valid reports whether k is one of the known kinds.
func (k Kind) Valid() bool {
	return k == KindQuery || k == KindMutation
}

func (k Kind) String() string {
	return string(k)
}

// Descriptor identifies one remote operation.
type Descriptor struct {
	Path string
	Kind Kind
}

// EndpointName returns the flat endpoint name for the descriptor path.
func (d Descriptor) EndpointName() string {
	return ToEndpointName(d.Path)
}
