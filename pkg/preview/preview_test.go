package preview

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/chazu/procmesh/pkg/nodes"
)

func newPreviewer() *Previewer {
	return New(nodes.Registry(), nil)
}

// TestEvaluateCubeScene runs the full path: Lisp source -> graph -> cook
// -> triangle buffers.
func TestEvaluateCubeScene(t *testing.T) {
	p := newPreviewer()
	source := `
(def box (node "cube" :size 2))
(def smooth (node "subdivide"))
(connect box smooth)
(def ground (node "grid" :rows 2 :cols 2))
`
	result := p.Evaluate(context.Background(), source)
	if len(result.Errors) > 0 {
		t.Fatalf("unexpected errors: %v", result.Errors)
	}
	if len(result.Meshes) != 2 {
		t.Fatalf("expected 2 meshes, got %d", len(result.Meshes))
	}

	smooth, floor := result.Meshes[0], result.Meshes[1]
	if smooth.Node != "subdivide" || floor.Node != "grid" {
		t.Errorf("unexpected display order: %q, %q", smooth.Node, floor.Node)
	}
	// 24 quads fan into 48 triangles.
	if got := len(smooth.Indices) / 3; got != 48 {
		t.Errorf("expected 48 triangles, got %d", got)
	}
	if len(smooth.Vertices) != 26*3 || len(smooth.Normals) != 26*3 {
		t.Errorf("expected 26 vertices with normals, got %d/%d", len(smooth.Vertices)/3, len(smooth.Normals)/3)
	}
	if smooth.Color == floor.Color {
		t.Errorf("display nodes should get distinct colors, both %s", smooth.Color)
	}
}

func TestEvaluateDeclaredOutputOnly(t *testing.T) {
	p := newPreviewer()
	result := p.Evaluate(context.Background(), `
(node "cube" :name "a")
(node "cube" :name "b")
(output "b")
`)
	if len(result.Meshes) != 1 || result.Meshes[0].Node != "b" {
		t.Fatalf("expected only b, got %+v", result.Meshes)
	}
}

func TestEvaluateEmptySource(t *testing.T) {
	result := newPreviewer().Evaluate(context.Background(), "")
	if len(result.Errors) > 0 {
		t.Errorf("unexpected errors for empty source: %v", result.Errors)
	}
	if len(result.Meshes) != 0 {
		t.Errorf("expected 0 meshes, got %d", len(result.Meshes))
	}
}

func TestEvaluateSyntaxError(t *testing.T) {
	result := newPreviewer().Evaluate(context.Background(), "(node \"cube\"")
	if len(result.Errors) == 0 {
		t.Fatal("expected eval errors for syntax error")
	}
	if len(result.Meshes) != 0 {
		t.Errorf("expected 0 meshes on error, got %d", len(result.Meshes))
	}
}

func TestCookErrorsAndWarnings(t *testing.T) {
	result := newPreviewer().Evaluate(context.Background(), `
(node "grid" :name "bad" :rows 0)
(node "null" :name "empty")
(node "cube" :name "ok")
`)
	if len(result.Errors) != 1 || result.Errors[0].Node != "bad" {
		t.Fatalf("expected one error for bad, got %+v", result.Errors)
	}
	if !strings.Contains(result.Errors[0].Message, "at least one row") {
		t.Errorf("unexpected message %q", result.Errors[0].Message)
	}
	if len(result.Warnings) != 1 || result.Warnings[0].Node != "empty" {
		t.Errorf("expected one warning for empty, got %+v", result.Warnings)
	}
	if len(result.Meshes) != 1 || result.Meshes[0].Color != colorPalette[0] {
		t.Errorf("expected ok with the first color, got %+v", result.Meshes)
	}
}

func TestColorPaletteWrapping(t *testing.T) {
	var src strings.Builder
	for range len(colorPalette) + 1 {
		src.WriteString("(node \"point\")\n")
	}
	result := newPreviewer().Evaluate(context.Background(), src.String())
	if len(result.Meshes) != len(colorPalette)+1 {
		t.Fatalf("expected %d meshes, got %d", len(colorPalette)+1, len(result.Meshes))
	}
	if last := result.Meshes[len(colorPalette)]; last.Color != colorPalette[0] {
		t.Errorf("palette should wrap, got %s", last.Color)
	}
}

func TestRapidEvaluation(t *testing.T) {
	p := newPreviewer()
	sources := []string{
		`(node "cube")`,
		`(node "cube"`,
		``,
		`(undefined-func 1 2 3)`,
		`;; just a comment`,
		`(node "sdf" :shape "sphere" :cells 8)`,
	}
	for i, source := range sources {
		func() {
			defer func() {
				if r := recover(); r != nil {
					t.Errorf("iteration %d panicked on %q: %v", i, source, r)
				}
			}()
			_ = p.Evaluate(context.Background(), source)
		}()
	}
}

func TestResultJSONShape(t *testing.T) {
	data, err := json.Marshal(newPreviewer().Evaluate(context.Background(), ""))
	if err != nil {
		t.Fatal(err)
	}
	want := `{"meshes":[],"errors":[],"warnings":[]}`
	if string(data) != want {
		t.Errorf("got %s, want %s", data, want)
	}
}
