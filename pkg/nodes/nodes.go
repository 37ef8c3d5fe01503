// Package nodes provides the built-in node kinds and the registry that
// graph descriptions build from.
//
// Every operator treats its inputs as read-only: generators build a fresh
// mesh, modifiers Duplicate their first input and edit the copy.
package nodes

import (
	"fmt"

	"github.com/chazu/procmesh/pkg/graph"
	"github.com/chazu/procmesh/pkg/kernel/sdfx"
)

// Kinds returns the spec of every built-in kind.
func Kinds() []graph.KindSpec {
	return []graph.KindSpec{
		PointKind(),
		AddKind(),
		CubeKind(),
		GridKind(),
		SDFKind(sdfx.New()),
		TransformKind(),
		MergeKind(),
		RandomizeKind(),
		NoiseKind(),
		NormalKind(),
		SubdivideKind(),
		PointScriptKind(),
		NullKind(),
	}
}

// Registry returns a registry holding every built-in kind.
func Registry() *graph.Registry {
	r, err := graph.NewRegistry(Kinds()...)
	if err != nil {
		panic(fmt.Sprintf("nodes: built-in registry: %v", err))
	}
	return r
}
