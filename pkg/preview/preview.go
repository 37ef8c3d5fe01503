// Package preview turns graph source into JSON-serializable render
// buffers for an external viewer. It cooks the graph's display nodes and
// triangulates each result; failures come back as error entries rather
// than Go errors so a live editor can show them next to the source.
package preview

import (
	"context"
	"runtime"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"github.com/chazu/procmesh/pkg/engine"
	"github.com/chazu/procmesh/pkg/graph"
	"github.com/chazu/procmesh/pkg/tessellate"
)

// colorPalette assigns distinct colors to displayed nodes.
var colorPalette = []string{
	"#4A90D9", "#E67E22", "#2ECC71", "#9B59B6",
	"#E74C3C", "#1ABC9C", "#F39C12", "#3498DB",
}

// MeshData is one displayed node's triangle buffers.
type MeshData struct {
	Vertices []float32 `json:"vertices"`
	Normals  []float32 `json:"normals"`
	Indices  []uint32  `json:"indices"`
	Node     string    `json:"node"`
	Color    string    `json:"color"`
}

// ErrorData is a source or cook error. Line is zero when unknown.
type ErrorData struct {
	Line    int    `json:"line"`
	Col     int    `json:"col"`
	Node    string `json:"node,omitempty"`
	Message string `json:"message"`
}

// Result is everything a viewer needs for one evaluation.
type Result struct {
	Meshes   []MeshData  `json:"meshes"`
	Errors   []ErrorData `json:"errors"`
	Warnings []ErrorData `json:"warnings"`
}

func newResult() Result {
	return Result{
		Meshes:   []MeshData{},
		Errors:   []ErrorData{},
		Warnings: []ErrorData{},
	}
}

// Previewer evaluates Lisp source and cooks the resulting graphs.
type Previewer struct {
	engine *engine.Engine
	logger *log.Logger
}

// New returns a previewer building nodes from reg.
func New(reg *graph.Registry, logger *log.Logger) *Previewer {
	if logger == nil {
		logger = log.Default()
	}
	return &Previewer{
		engine: engine.NewEngine(reg, graph.WithLogger(logger)),
		logger: logger,
	}
}

// Evaluate runs source and returns the display meshes of the graph it
// builds.
func (p *Previewer) Evaluate(ctx context.Context, source string) Result {
	res, evalErrs, err := p.engine.Evaluate(ctx, source)
	if err != nil {
		p.logger.Error("evaluate", "err", err)
		r := newResult()
		r.Errors = append(r.Errors, ErrorData{Message: err.Error()})
		return r
	}
	if len(evalErrs) > 0 {
		r := newResult()
		for _, e := range evalErrs {
			r.Errors = append(r.Errors, ErrorData{Line: e.Line, Col: e.Col, Message: e.Message})
		}
		return r
	}
	return p.Cook(ctx, res)
}

// DisplayNodes returns the nodes a viewer shows: the declared output if
// there is one, otherwise every node whose outputs feed nothing.
func DisplayNodes(res *engine.Result) []*graph.Node {
	if res.Output != nil {
		return []*graph.Node{res.Output}
	}
	var out []*graph.Node
	for _, n := range res.Graph.Nodes() {
		if n.NumOutputs() == 0 {
			continue
		}
		leaf := true
		for i := range n.NumOutputs() {
			if len(n.OutputConnections(i)) > 0 {
				leaf = false
				break
			}
		}
		if leaf {
			out = append(out, n)
		}
	}
	return out
}

// Cook cooks output 0 of every display node of res concurrently and
// triangulates the results in display order. A node producing no mesh is
// reported as a warning.
func (p *Previewer) Cook(ctx context.Context, res *engine.Result) Result {
	display := DisplayNodes(res)
	meshes := make([]*MeshData, len(display))
	errs := make([]*ErrorData, len(display))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, n := range display {
		g.Go(func() error {
			m, err := n.Cook(gctx, 0)
			switch {
			case err != nil:
				errs[i] = &ErrorData{Node: n.Name(), Message: err.Error()}
			case m == nil:
			default:
				km := tessellate.Triangulate(m)
				meshes[i] = &MeshData{
					Vertices: km.Vertices,
					Normals:  km.Normals,
					Indices:  km.Indices,
					Node:     n.Name(),
				}
			}
			return nil
		})
	}
	_ = g.Wait()

	r := newResult()
	for i, n := range display {
		switch {
		case errs[i] != nil:
			p.logger.Warn("cook failed", "node", n.Name(), "err", errs[i].Message)
			r.Errors = append(r.Errors, *errs[i])
		case meshes[i] == nil:
			r.Warnings = append(r.Warnings, ErrorData{Node: n.Name(), Message: "no geometry"})
		default:
			meshes[i].Color = colorPalette[len(r.Meshes)%len(colorPalette)]
			r.Meshes = append(r.Meshes, *meshes[i])
		}
	}
	return r
}
