package engine

import (
	"fmt"
	"strings"

	zygo "github.com/glycerine/zygomys/zygo"
	"github.com/ungerik/go3d/vec3"

	"github.com/chazu/procmesh/pkg/graph"
)

// kwPrefix is the marker prepended to keyword names by preprocessSource.
const kwPrefix = "__kw_"

// preprocessSource rewrites procmesh Lisp into something zygomys accepts:
//
//   - :keyword becomes the string literal "__kw_keyword", so keywords need
//     no global symbols and cannot clash with user variables.
//   - point-count becomes point_count; zygomys reads a hyphen inside an
//     identifier as subtraction.
//   - ; line comments become // comments.
//
// String literals (double-quoted and backtick) pass through untouched.
func preprocessSource(source string) string {
	var out strings.Builder
	out.Grow(len(source) + len(source)/4)
	b := []byte(source)

	for i := 0; i < len(b); {
		c := b[i]
		switch {
		case c == '"' || c == '`':
			i = copyStringLiteral(&out, b, i)

		case c == ';':
			out.WriteString("//")
			for i < len(b) && b[i] == ';' {
				i++
			}
			for i < len(b) && b[i] != '\n' {
				out.WriteByte(b[i])
				i++
			}

		case c == ':' && i+1 < len(b) && b[i+1] == '=':
			out.WriteString(":=")
			i += 2

		case c == ':' && i+1 < len(b) && isLetter(b[i+1]):
			j := i + 1
			for j < len(b) && isKWChar(b[j]) {
				j++
			}
			out.WriteString(`"` + kwPrefix)
			out.Write(b[i+1 : j])
			out.WriteByte('"')
			i = j

		case c == '-' && i > 0 && i+1 < len(b) && isIdentChar(b[i-1]) && isLetter(b[i+1]):
			out.WriteByte('_')
			i++

		default:
			out.WriteByte(c)
			i++
		}
	}
	return out.String()
}

// copyStringLiteral copies the literal opening at b[i] and returns the
// index just past its closing quote. Backslash escapes are honoured in
// double-quoted strings only.
func copyStringLiteral(out *strings.Builder, b []byte, i int) int {
	quote := b[i]
	out.WriteByte(quote)
	i++
	for i < len(b) && b[i] != quote {
		if quote == '"' && b[i] == '\\' && i+1 < len(b) {
			out.Write(b[i : i+2])
			i += 2
			continue
		}
		out.WriteByte(b[i])
		i++
	}
	if i < len(b) {
		out.WriteByte(b[i])
		i++
	}
	return i
}

func isLetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isKWChar(c byte) bool {
	return isIdentChar(c) || c == '-'
}

func isIdentChar(c byte) bool {
	return isLetter(c) || (c >= '0' && c <= '9') || c == '_'
}

// sexpNodeRef wraps a graph node so it can be passed between builtins.
type sexpNodeRef struct {
	node *graph.Node
}

func (n *sexpNodeRef) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(node %q)", n.node.Name())
}
func (n *sexpNodeRef) Type() *zygo.RegisteredType { return nil }

// sexpVec3 wraps a vector literal built with (vec3 x y z).
type sexpVec3 struct {
	vec vec3.T
}

func (v *sexpVec3) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(vec3 %g %g %g)", v.vec[0], v.vec[1], v.vec[2])
}
func (v *sexpVec3) Type() *zygo.RegisteredType { return nil }

// kwArgs holds the result of parsing a mixed positional+keyword argument list.
type kwArgs struct {
	kw         map[string]zygo.Sexp
	order      []string
	positional []zygo.Sexp
}

// parseArgs separates args into keyword and positional arguments. A
// keyword with no following value maps to SexpNull.
func parseArgs(args []zygo.Sexp) kwArgs {
	pa := kwArgs{kw: make(map[string]zygo.Sexp)}
	for i := 0; i < len(args); i++ {
		name, ok := isKW(args[i])
		if !ok {
			pa.positional = append(pa.positional, args[i])
			continue
		}
		val := zygo.Sexp(zygo.SexpNull)
		if i+1 < len(args) {
			val = args[i+1]
			i++
		}
		if _, seen := pa.kw[name]; !seen {
			pa.order = append(pa.order, name)
		}
		pa.kw[name] = val
	}
	return pa
}

// isKW checks if a Sexp is a preprocessed keyword string and returns the
// keyword name without its prefix. Hyphens map to underscores, so
// :tool-size names the tool_size field.
func isKW(s zygo.Sexp) (string, bool) {
	str, ok := s.(*zygo.SexpStr)
	if !ok || !strings.HasPrefix(str.S, kwPrefix) {
		return "", false
	}
	return strings.ReplaceAll(str.S[len(kwPrefix):], "-", "_"), true
}

// toFloat64 extracts a float64 from a Sexp (SexpInt or SexpFloat).
func toFloat64(s zygo.Sexp) (float64, error) {
	switch v := s.(type) {
	case *zygo.SexpInt:
		return float64(v.Val), nil
	case *zygo.SexpFloat:
		return v.Val, nil
	}
	return 0, fmt.Errorf("expected number, got %T (%s)", s, s.SexpString(nil))
}

// toInt extracts an integer index from a Sexp.
func toInt(s zygo.Sexp) (int, error) {
	if v, ok := s.(*zygo.SexpInt); ok {
		return int(v.Val), nil
	}
	return 0, fmt.Errorf("expected integer, got %T (%s)", s, s.SexpString(nil))
}

// toString extracts a string from a Sexp. Keywords are accepted and
// stripped of their prefix.
func toString(s zygo.Sexp) (string, error) {
	str, ok := s.(*zygo.SexpStr)
	if !ok {
		return "", fmt.Errorf("expected string, got %T (%s)", s, s.SexpString(nil))
	}
	return strings.TrimPrefix(str.S, kwPrefix), nil
}

// toNode extracts the node behind a reference or a node name.
func toNode(g *graph.Graph, s zygo.Sexp) (*graph.Node, error) {
	switch v := s.(type) {
	case *sexpNodeRef:
		return v.node, nil
	case *zygo.SexpStr:
		if n := g.Node(v.S); n != nil {
			return n, nil
		}
		return nil, fmt.Errorf("%w: %q", graph.ErrNoNode, v.S)
	}
	return nil, fmt.Errorf("expected node reference, got %T (%s)", s, s.SexpString(nil))
}

// sexpListToSlice converts a SexpPair (Lisp list) or SexpArray to a Go slice.
func sexpListToSlice(s zygo.Sexp) ([]zygo.Sexp, error) {
	switch v := s.(type) {
	case *zygo.SexpPair:
		return zygo.ListToArray(v)
	case *zygo.SexpArray:
		return v.Val, nil
	case *zygo.SexpSentinel:
		if v == zygo.SexpNull {
			return nil, nil
		}
	}
	return nil, fmt.Errorf("expected list or array, got %T", s)
}

// toGo converts a Sexp into a plain Go value for graph.AnyField.Set.
func toGo(s zygo.Sexp) (any, error) {
	switch v := s.(type) {
	case *zygo.SexpInt:
		return v.Val, nil
	case *zygo.SexpFloat:
		return v.Val, nil
	case *zygo.SexpBool:
		return v.Val, nil
	case *zygo.SexpStr:
		return strings.TrimPrefix(v.S, kwPrefix), nil
	case *sexpVec3:
		return v.vec, nil
	case *zygo.SexpPair, *zygo.SexpArray:
		items, err := sexpListToSlice(s)
		if err != nil {
			return nil, err
		}
		out := make([]any, len(items))
		for i, it := range items {
			if out[i], err = toGo(it); err != nil {
				return nil, err
			}
		}
		return out, nil
	}
	return nil, fmt.Errorf("unsupported value %T (%s)", s, s.SexpString(nil))
}

// setFields applies keyword arguments to the fields of n. The "name"
// keyword is reserved and skipped.
func setFields(form string, n *graph.Node, pa kwArgs) error {
	for _, key := range pa.order {
		if key == "name" {
			continue
		}
		f := n.Field(key)
		if f == nil {
			return fmt.Errorf("%s: %s has no field %q", form, n.Kind(), key)
		}
		v, err := toGo(pa.kw[key])
		if err != nil {
			return fmt.Errorf("%s: %s: %w", form, key, err)
		}
		if err := f.Set(v); err != nil {
			return fmt.Errorf("%s: %w", form, err)
		}
	}
	return nil
}

// registerGraphBuiltins installs the graph-building forms into env. They
// populate res.Graph during evaluation.
//
// Source code must be preprocessed with preprocessSource() so that
// :keyword tokens are recognizable.
func registerGraphBuiltins(env *zygo.Zlisp, res *Result) {
	g := res.Graph

	// (vec3 1 2 3)
	env.AddFunction("vec3", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 3 {
			return zygo.SexpNull, fmt.Errorf("vec3 requires exactly 3 arguments, got %d", len(args))
		}
		var v vec3.T
		for i, a := range args {
			f, err := toFloat64(a)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("vec3: component %d: %w", i, err)
			}
			v[i] = float32(f)
		}
		return &sexpVec3{vec: v}, nil
	})

	// (node "cube" :name "box" :size 2)
	env.AddFunction("node", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		if len(pa.positional) != 1 {
			return zygo.SexpNull, fmt.Errorf("node requires a kind argument")
		}
		kind, err := toString(pa.positional[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("node: kind: %w", err)
		}
		nodeName := ""
		if v, ok := pa.kw["name"]; ok {
			if nodeName, err = toString(v); err != nil {
				return zygo.SexpNull, fmt.Errorf("node: name: %w", err)
			}
		}
		n, err := g.NewNode(kind, nodeName)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("node: %w", err)
		}
		if err := setFields("node", n, pa); err != nil {
			return zygo.SexpNull, err
		}
		return &sexpNodeRef{node: n}, nil
	})

	// (lookup "box")
	env.AddFunction("lookup", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 1 {
			return zygo.SexpNull, fmt.Errorf("lookup requires a name argument")
		}
		n, err := toNode(g, args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("lookup: %w", err)
		}
		return &sexpNodeRef{node: n}, nil
	})

	// (set-field box :size 3)
	env.AddFunction("set_field", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		if len(pa.positional) != 1 {
			return zygo.SexpNull, fmt.Errorf("set-field requires a node argument")
		}
		n, err := toNode(g, pa.positional[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("set-field: %w", err)
		}
		if err := setFields("set-field", n, pa); err != nil {
			return zygo.SexpNull, err
		}
		return &sexpNodeRef{node: n}, nil
	})

	// (connect src dst :output 0 :input 0)
	env.AddFunction("connect", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		if len(pa.positional) != 2 {
			return zygo.SexpNull, fmt.Errorf("connect requires source and destination nodes")
		}
		src, err := toNode(g, pa.positional[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("connect: source: %w", err)
		}
		dst, err := toNode(g, pa.positional[1])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("connect: destination: %w", err)
		}
		output, input := 0, 0
		if v, ok := pa.kw["output"]; ok {
			if output, err = toInt(v); err != nil {
				return zygo.SexpNull, fmt.Errorf("connect: output: %w", err)
			}
		}
		if v, ok := pa.kw["input"]; ok {
			if input, err = toInt(v); err != nil {
				return zygo.SexpNull, fmt.Errorf("connect: input: %w", err)
			}
		}

		dst.SetInput(input, src, output)
		c := dst.InputConnection(input)
		if c == nil || c.Source() != src || c.SourceIndex() != output {
			return zygo.SexpNull, fmt.Errorf("connect: %s[%d] -> %s[%d] rejected",
				src.Name(), output, dst.Name(), input)
		}
		return &sexpNodeRef{node: dst}, nil
	})

	// (output box)
	env.AddFunction("output", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 1 {
			return zygo.SexpNull, fmt.Errorf("output requires a node argument")
		}
		n, err := toNode(g, args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("output: %w", err)
		}
		res.Output = n
		return &sexpNodeRef{node: n}, nil
	})
}
