package graph

import (
	"fmt"
	"slices"
	"strings"
)

// Factory declares a new node's fields (with AddField) and returns its
// operator. The node is not yet part of the graph when the factory runs.
type Factory func(n *Node) Operator

// KindSpec describes one kind of node.
type KindSpec struct {
	Name        string
	Description string
	Inputs      int
	Outputs     int
	New         Factory
}

// Registry maps kind names to node constructors. Build it once at start-up;
// Register is not safe to call concurrently with lookups.
type Registry struct {
	kinds map[string]KindSpec
}

// NewRegistry returns a registry holding specs.
func NewRegistry(specs ...KindSpec) (*Registry, error) {
	r := &Registry{kinds: make(map[string]KindSpec, len(specs))}
	for _, s := range specs {
		if err := r.Register(s); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Register adds spec. Names are case-sensitive and must be unique.
func (r *Registry) Register(spec KindSpec) error {
	switch {
	case strings.TrimSpace(spec.Name) == "":
		return fmt.Errorf("graph: kind name is empty")
	case spec.New == nil:
		return fmt.Errorf("graph: kind %q has no factory", spec.Name)
	case spec.Inputs < 0 || spec.Outputs < 0:
		return fmt.Errorf("graph: kind %q has negative slot count", spec.Name)
	}
	if _, ok := r.kinds[spec.Name]; ok {
		return fmt.Errorf("%w: %q", ErrDuplicateKind, spec.Name)
	}
	r.kinds[spec.Name] = spec
	return nil
}

// Lookup returns the spec registered under name.
func (r *Registry) Lookup(name string) (KindSpec, bool) {
	s, ok := r.kinds[name]
	return s, ok
}

// Kinds returns every registered spec sorted by name.
func (r *Registry) Kinds() []KindSpec {
	out := make([]KindSpec, 0, len(r.kinds))
	for _, s := range r.kinds {
		out = append(out, s)
	}
	slices.SortFunc(out, func(a, b KindSpec) int { return strings.Compare(a.Name, b.Name) })
	return out
}
