package nodes

import (
	"context"

	"github.com/chazu/procmesh/pkg/engine"
	"github.com/chazu/procmesh/pkg/graph"
	"github.com/chazu/procmesh/pkg/mesh"
)

// PointScriptKind runs a Lisp snippet once per point of its input. See
// engine.RunPointScript for the builtins available to the script.
func PointScriptKind() graph.KindSpec {
	return graph.KindSpec{
		Name:        "pointscript",
		Description: "per-point Lisp script over point attributes",
		Inputs:      1,
		Outputs:     1,
		New: func(n *graph.Node) graph.Operator {
			script := graph.AddField(n, "script", "")
			return graph.OperatorFunc(func(ctx context.Context, _ int, in []*mesh.Mesh) (*mesh.Mesh, error) {
				if in[0] == nil {
					return nil, nil
				}
				m := in[0].Duplicate()
				if err := engine.RunPointScript(ctx, script.Value(), m); err != nil {
					return nil, err
				}
				return m, nil
			})
		},
	}
}
