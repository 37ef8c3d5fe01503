package engine

import (
	"context"
	"fmt"
	"strings"

	zygo "github.com/glycerine/zygomys/zygo"

	"github.com/chazu/procmesh/pkg/attrib"
	"github.com/chazu/procmesh/pkg/mesh"
)

// RunPointScript evaluates script once per point of m, with the point
// index bound to ptnum and the point count to npts. The script reads and
// writes point attributes in place:
//
//	(getattr "P" ptnum 1)              ; component 1 of P at ptnum
//	(setattr "P" ptnum 1 (+ ... 0.5))  ; write it back
//	(addattr "Cd" 3)                   ; create a 3-component attribute
//
// m is modified directly; callers pass a duplicate. A script error is
// returned as an EvalError. If the script runs past EvalTimeout or ctx is
// cancelled, RunPointScript returns early and m must be discarded.
func RunPointScript(ctx context.Context, script string, m *mesh.Mesh) error {
	if strings.TrimSpace(script) == "" || m.NumPoints() == 0 {
		return nil
	}

	res := await(ctx, "point script", EvalTimeout, func() evalResult {
		return evalResult{errors: runPointScript(script, m)}
	})
	if res.err != nil {
		return res.err
	}
	if len(res.errors) > 0 {
		return res.errors[0]
	}
	return nil
}

// pointLoop wraps a user script in a loop over every point.
func pointLoop(script string, npts int) string {
	return fmt.Sprintf("(def npts %d)\n(for [(def ptnum 0) (< ptnum npts) (set ptnum (+ ptnum 1))]\n%s\n)\n",
		npts, script)
}

func runPointScript(script string, m *mesh.Mesh) []EvalError {
	env := newSandbox()
	defer env.Stop()

	registerPointBuiltins(env, m.PointAttribs)

	// The wrapper adds two lines before the user's first line.
	src := pointLoop(preprocessSource(script), m.NumPoints())
	if err := env.LoadString(src); err != nil {
		return shiftLines(parseZygomysError(err), -2)
	}
	if _, err := env.Run(); err != nil {
		return shiftLines(parseZygomysError(err), -2)
	}
	return nil
}

// shiftLines maps wrapper line numbers back to user script lines.
func shiftLines(errs []EvalError, delta int) []EvalError {
	for i := range errs {
		if errs[i].Line > 0 {
			errs[i].Line = max(1, errs[i].Line+delta)
		}
	}
	return errs
}

// pointAttr resolves an attribute, point index and component from
// builtin arguments.
func pointAttr(set *attrib.Set, form string, args []zygo.Sexp) (*attrib.Attribute, int, int, error) {
	attrName, err := toString(args[0])
	if err != nil {
		return nil, 0, 0, fmt.Errorf("%s: name: %w", form, err)
	}
	a := set.Find(attrName)
	if a == nil {
		return nil, 0, 0, fmt.Errorf("%s: no point attribute %q", form, attrName)
	}
	pt, err := toInt(args[1])
	if err != nil {
		return nil, 0, 0, fmt.Errorf("%s: point: %w", form, err)
	}
	if pt < 0 || pt >= set.Size() {
		return nil, 0, 0, fmt.Errorf("%s: point %d out of range [0,%d)", form, pt, set.Size())
	}
	comp, err := toInt(args[2])
	if err != nil {
		return nil, 0, 0, fmt.Errorf("%s: component: %w", form, err)
	}
	if comp < 0 || comp >= a.Components() {
		return nil, 0, 0, fmt.Errorf("%s: %q has no component %d", form, attrName, comp)
	}
	return a, pt, comp, nil
}

func registerPointBuiltins(env *zygo.Zlisp, set *attrib.Set) {
	// (getattr "P" ptnum 0)
	env.AddFunction("getattr", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 3 {
			return zygo.SexpNull, fmt.Errorf("getattr requires name, point and component")
		}
		a, pt, comp, err := pointAttr(set, "getattr", args)
		if err != nil {
			return zygo.SexpNull, err
		}
		return &zygo.SexpFloat{Val: float64(a.Component(comp)[pt])}, nil
	})

	// (setattr "P" ptnum 0 1.5)
	env.AddFunction("setattr", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 4 {
			return zygo.SexpNull, fmt.Errorf("setattr requires name, point, component and value")
		}
		a, pt, comp, err := pointAttr(set, "setattr", args[:3])
		if err != nil {
			return zygo.SexpNull, err
		}
		v, err := toFloat64(args[3])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("setattr: value: %w", err)
		}
		a.Component(comp)[pt] = float32(v)
		return args[3], nil
	})

	// (addattr "Cd" 3)
	env.AddFunction("addattr", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 2 {
			return zygo.SexpNull, fmt.Errorf("addattr requires name and component count")
		}
		attrName, err := toString(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("addattr: name: %w", err)
		}
		comps, err := toInt(args[1])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("addattr: components: %w", err)
		}
		if comps < 1 || comps > attrib.MaxComponents {
			return zygo.SexpNull, fmt.Errorf("addattr: component count %d outside 1..%d", comps, attrib.MaxComponents)
		}
		if a := set.Find(attrName); a != nil && a.Components() != comps {
			return zygo.SexpNull, fmt.Errorf("addattr: %q already has %d components", attrName, a.Components())
		}
		set.FindOrCreate(attrName, attrib.Float32, comps)
		return args[0], nil
	})
}
