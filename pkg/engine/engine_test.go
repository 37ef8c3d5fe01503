package engine

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/ungerik/go3d/vec3"

	"github.com/chazu/procmesh/pkg/graph"
	"github.com/chazu/procmesh/pkg/mesh"
)

// testRegistry registers a point source and a one-input offset node.
func testRegistry(t *testing.T) *graph.Registry {
	t.Helper()
	reg, err := graph.NewRegistry(
		graph.KindSpec{
			Name:    "point",
			Outputs: 1,
			New: func(n *graph.Node) graph.Operator {
				pos := graph.AddField(n, "position", vec3.T{})
				return graph.OperatorFunc(func(context.Context, int, []*mesh.Mesh) (*mesh.Mesh, error) {
					m := mesh.New()
					m.AddPoint(pos.Value())
					return m, nil
				})
			},
		},
		graph.KindSpec{
			Name:    "offset",
			Inputs:  1,
			Outputs: 1,
			New: func(n *graph.Node) graph.Operator {
				by := graph.AddField(n, "by", vec3.T{})
				graph.AddField(n, "label", "")
				graph.AddField(n, "enabled", true)
				return graph.OperatorFunc(func(_ context.Context, _ int, in []*mesh.Mesh) (*mesh.Mesh, error) {
					if in[0] == nil {
						return nil, nil
					}
					m := in[0].Duplicate()
					p := m.Positions()
					for i := range m.NumPoints() {
						v := p.Vec3(i)
						d := by.Value()
						p.SetVec3(i, *v.Add(&d))
					}
					return m, nil
				})
			},
		},
	)
	if err != nil {
		t.Fatal(err)
	}
	return reg
}

func TestEvaluateEmptyString(t *testing.T) {
	eng := NewEngine(testRegistry(t))

	for _, src := range []string{"", "   \n\t  \n  "} {
		res, evalErrs, err := eng.Evaluate(context.Background(), src)
		if err != nil {
			t.Fatalf("unexpected fatal error: %v", err)
		}
		if len(evalErrs) > 0 {
			t.Fatalf("unexpected eval errors: %v", evalErrs)
		}
		if res == nil || res.Graph == nil {
			t.Fatal("expected non-nil graph")
		}
		if res.Graph.Len() != 0 {
			t.Errorf("expected empty graph, got %d nodes", res.Graph.Len())
		}
		if res.Output != nil {
			t.Errorf("expected no output node, got %s", res.Output.Name())
		}
	}
}

func TestEvaluatePlainLisp(t *testing.T) {
	eng := NewEngine(testRegistry(t))

	source := `
(def x 10)
(def y 20)
(+ x y)
`
	res, evalErrs, err := eng.Evaluate(context.Background(), source)
	if err != nil {
		t.Fatalf("unexpected fatal error: %v", err)
	}
	if len(evalErrs) > 0 {
		t.Fatalf("unexpected eval errors: %v", evalErrs)
	}
	if res.Graph.Len() != 0 {
		t.Errorf("expected empty graph, got %d nodes", res.Graph.Len())
	}
}

func TestEvaluateSyntaxError(t *testing.T) {
	eng := NewEngine(testRegistry(t))

	res, evalErrs, err := eng.Evaluate(context.Background(), "(+ 1 2")
	if err != nil {
		t.Fatalf("expected non-fatal eval error, got fatal: %v", err)
	}
	if res != nil {
		t.Fatal("expected nil result on syntax error")
	}
	if len(evalErrs) == 0 || evalErrs[0].Message == "" {
		t.Fatal("expected a non-empty eval error for syntax error")
	}
}

func TestEvaluateUndefinedSymbol(t *testing.T) {
	eng := NewEngine(testRegistry(t))

	res, evalErrs, err := eng.Evaluate(context.Background(), "(+ 1 undefined-symbol)")
	if err != nil {
		t.Fatalf("expected non-fatal eval error, got fatal: %v", err)
	}
	if res != nil {
		t.Fatal("expected nil result on eval error")
	}
	if len(evalErrs) == 0 {
		t.Fatal("expected at least one eval error for undefined symbol")
	}
}

func TestEvalErrorImplementsError(t *testing.T) {
	e := EvalError{Line: 5, Message: "something went wrong"}
	if s := e.Error(); !strings.Contains(s, "line 5") || !strings.Contains(s, "something went wrong") {
		t.Errorf("Error() should contain line and message, got: %s", s)
	}

	e2 := EvalError{Message: "no location"}
	if s := e2.Error(); strings.Contains(s, "line") {
		t.Errorf("Error() with no line should not contain 'line', got: %s", s)
	}
}

func TestAwaitExpires(t *testing.T) {
	block := make(chan struct{})
	defer close(block)

	start := time.Now()
	res := await(context.Background(), "test", 50*time.Millisecond, func() evalResult {
		<-block
		return evalResult{}
	})
	if !errors.Is(res.err, ErrTimeout) {
		t.Fatalf("expected timeout error, got: %v", res.err)
	}
	if time.Since(start) > 2*time.Second {
		t.Error("timeout took far longer than requested")
	}
}

func TestAwaitHonoursContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	block := make(chan struct{})
	defer close(block)

	res := await(ctx, "test", time.Minute, func() evalResult {
		<-block
		return evalResult{}
	})
	if !errors.Is(res.err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got: %v", res.err)
	}
}

func TestAwaitRecoversPanic(t *testing.T) {
	res := await(context.Background(), "test", time.Second, func() evalResult {
		panic("boom")
	})
	if res.err == nil || !strings.Contains(res.err.Error(), "panic during test: boom") {
		t.Fatalf("expected recovered panic, got: %v", res.err)
	}
}

func TestDeliverDiscardsStale(t *testing.T) {
	e := NewEngine(testRegistry(t))
	e.generation.Store(2)

	if _, _, err := e.deliver(1, evalResult{}); !errors.Is(err, ErrSuperseded) {
		t.Fatalf("expected superseded error, got: %v", err)
	}
	if _, _, err := e.deliver(2, evalResult{}); err != nil {
		t.Fatalf("current generation should deliver, got: %v", err)
	}
}

func TestParseZygomysError(t *testing.T) {
	tests := []struct {
		name     string
		msg      string
		wantLine int
		wantMsg  string
	}{
		{
			name:     "error on line format",
			msg:      "Error on line 5: unexpected token\n",
			wantLine: 5,
			wantMsg:  "unexpected token",
		},
		{
			name:     "no line info",
			msg:      "some generic error",
			wantLine: 0,
			wantMsg:  "some generic error",
		},
		{
			name:     "line format lowercase",
			msg:      "line 12: missing paren",
			wantLine: 12,
			wantMsg:  "missing paren",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := parseZygomysError(errors.New(tt.msg))
			if len(errs) == 0 {
				t.Fatal("expected at least one error")
			}
			e := errs[0]
			if e.Line != tt.wantLine {
				t.Errorf("line = %d, want %d", e.Line, tt.wantLine)
			}
			if !strings.Contains(e.Message, tt.wantMsg) {
				t.Errorf("message = %q, want containing %q", e.Message, tt.wantMsg)
			}
		})
	}
}

func TestShiftLines(t *testing.T) {
	errs := shiftLines([]EvalError{{Line: 5}, {Line: 0}, {Line: 1}}, -2)
	if errs[0].Line != 3 || errs[1].Line != 0 || errs[2].Line != 1 {
		t.Errorf("unexpected shifted lines: %+v", errs)
	}
}
