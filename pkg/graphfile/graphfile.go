// Package graphfile loads node graphs from description files. TOML, YAML
// and JSON files hold a declarative Document; .lisp files are programs
// evaluated by the engine.
package graphfile

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/chazu/procmesh/pkg/engine"
	"github.com/chazu/procmesh/pkg/graph"
)

// ErrUnknownFormat is returned for file extensions with no decoder.
var ErrUnknownFormat = errors.New("graphfile: unknown format")

// Format names a description encoding.
type Format string

const (
	TOML Format = "toml"
	YAML Format = "yaml"
	JSON Format = "json"
	Lisp Format = "lisp"
)

// FormatOf maps a file extension to its format.
func FormatOf(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		return TOML, nil
	case ".yaml", ".yml":
		return YAML, nil
	case ".json":
		return JSON, nil
	case ".lisp", ".zy":
		return Lisp, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownFormat, filepath.Ext(path))
	}
}

// NodeSpec declares one node. Params are applied to fields of the same
// name with weak typing, so 2 sets a float field and [1, 2, 3] a vector.
type NodeSpec struct {
	Name   string         `toml:"name" yaml:"name" json:"name"`
	Kind   string         `toml:"kind" yaml:"kind" json:"kind"`
	Params map[string]any `toml:"params,omitempty" yaml:"params,omitempty" json:"params,omitempty"`
}

// ConnectionSpec connects output Output of From to input Input of To.
type ConnectionSpec struct {
	From   string `toml:"from" yaml:"from" json:"from"`
	Output int    `toml:"output" yaml:"output" json:"output"`
	To     string `toml:"to" yaml:"to" json:"to"`
	Input  int    `toml:"input" yaml:"input" json:"input"`
}

// Document is a declarative graph description.
type Document struct {
	Output      string           `toml:"output,omitempty" yaml:"output,omitempty" json:"output,omitempty"`
	Nodes       []NodeSpec       `toml:"nodes" yaml:"nodes" json:"nodes"`
	Connections []ConnectionSpec `toml:"connections,omitempty" yaml:"connections,omitempty" json:"connections,omitempty"`
}

// Decode parses data in the given declarative format.
func Decode(data []byte, format Format) (*Document, error) {
	var doc Document
	var err error
	switch format {
	case TOML:
		err = toml.Unmarshal(data, &doc)
	case YAML:
		err = yaml.Unmarshal(data, &doc)
	case JSON:
		err = json.Unmarshal(data, &doc)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", format, err)
	}
	return &doc, nil
}

// Encode writes doc to w in the given declarative format.
func Encode(w io.Writer, doc *Document, format Format) error {
	switch format {
	case TOML:
		return toml.NewEncoder(w).Encode(doc)
	case YAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(doc); err != nil {
			return err
		}
		return enc.Close()
	case JSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(doc)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}

// Build creates the graph described by doc. Node names in the graph
// match the document's; duplicates are an error rather than renamed.
func Build(doc *Document, opts ...graph.Option) (*engine.Result, error) {
	g := graph.New(opts...)
	for i, ns := range doc.Nodes {
		if ns.Name != "" && g.Node(ns.Name) != nil {
			return nil, fmt.Errorf("node %d: duplicate name %q", i, ns.Name)
		}
		n, err := g.NewNode(ns.Kind, ns.Name)
		if err != nil {
			return nil, fmt.Errorf("node %d: %w", i, err)
		}
		if err := applyParams(n, ns.Params); err != nil {
			return nil, err
		}
	}

	for i, cs := range doc.Connections {
		src, dst := g.Node(cs.From), g.Node(cs.To)
		if src == nil {
			return nil, fmt.Errorf("connection %d: %w: %q", i, graph.ErrNoNode, cs.From)
		}
		if dst == nil {
			return nil, fmt.Errorf("connection %d: %w: %q", i, graph.ErrNoNode, cs.To)
		}
		dst.SetInput(cs.Input, src, cs.Output)
		if c := dst.InputConnection(cs.Input); c == nil || c.Source() != src || c.SourceIndex() != cs.Output {
			return nil, fmt.Errorf("connection %d: %s:%d -> %s:%d rejected", i, cs.From, cs.Output, cs.To, cs.Input)
		}
	}

	res := &engine.Result{Graph: g}
	if doc.Output != "" {
		if res.Output = g.Node(doc.Output); res.Output == nil {
			return nil, fmt.Errorf("output: %w: %q", graph.ErrNoNode, doc.Output)
		}
	}
	return res, nil
}

func applyParams(n *graph.Node, params map[string]any) error {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		f := n.Field(k)
		if f == nil {
			return fmt.Errorf("node %s: %s has no field %q", n.Name(), n.Kind(), k)
		}
		if err := f.Set(params[k]); err != nil {
			return fmt.Errorf("node %s: %w", n.Name(), err)
		}
	}
	return nil
}

// FromGraph describes g as a Document, listing every field value and
// every live connection. output may be nil.
func FromGraph(g *graph.Graph, output *graph.Node) *Document {
	doc := &Document{}
	if output != nil {
		doc.Output = output.Name()
	}
	for _, n := range g.Nodes() {
		ns := NodeSpec{Name: n.Name(), Kind: n.Kind()}
		if names := n.FieldNames(); len(names) > 0 {
			ns.Params = make(map[string]any, len(names))
			for _, f := range names {
				ns.Params[f] = n.Field(f).Get()
			}
		}
		doc.Nodes = append(doc.Nodes, ns)
		for i := range n.NumInputs() {
			c := n.InputConnection(i)
			if c == nil || c.Expired() {
				continue
			}
			doc.Connections = append(doc.Connections, ConnectionSpec{
				From:   c.Source().Name(),
				Output: c.SourceIndex(),
				To:     n.Name(),
				Input:  i,
			})
		}
	}
	return doc
}

// Load reads the description at path and builds its graph. Lisp files
// are evaluated with eng; evaluation errors are joined into the returned
// error.
func Load(ctx context.Context, path string, eng *engine.Engine, opts ...graph.Option) (*engine.Result, error) {
	format, err := FormatOf(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read graph: %w", err)
	}

	if format == Lisp {
		res, evalErrs, err := eng.Evaluate(ctx, string(data))
		if err != nil {
			return nil, err
		}
		if len(evalErrs) > 0 {
			errs := make([]error, len(evalErrs))
			for i, e := range evalErrs {
				errs[i] = e
			}
			return nil, fmt.Errorf("%s: %w", path, errors.Join(errs...))
		}
		return res, nil
	}

	doc, err := Decode(bytes.TrimPrefix(data, []byte("\xef\xbb\xbf")), format)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	res, err := Build(doc, opts...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return res, nil
}
