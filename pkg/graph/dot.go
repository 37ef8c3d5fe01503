package graph

import (
	"bytes"
	"fmt"
	"strings"
)

// ToDOT renders the graph in Graphviz DOT format. Edges run from source to
// destination and are labelled "output -> input" when either node has more
// than one slot.
func (g *Graph) ToDOT() string {
	g.mu.RLock()
	defer g.mu.RUnlock()

	var buf bytes.Buffer
	buf.WriteString("digraph G {\n")
	buf.WriteString("  rankdir=TB;\n")
	buf.WriteString("  bgcolor=\"transparent\";\n")
	buf.WriteString("  node [shape=box, style=\"rounded,filled\", fillcolor=white, fontsize=14, margin=\"0.2,0.1\"];\n")
	buf.WriteString("\n")

	for _, s := range g.slots {
		if s.node == nil {
			continue
		}
		n := s.node
		label := n.name
		if n.kind != "" && n.kind != n.name {
			label += "\n" + n.kind
		}
		fmt.Fprintf(&buf, "  %q [label=%q];\n", n.name, label)
	}

	buf.WriteString("\n")
	for _, s := range g.slots {
		if s.node == nil {
			continue
		}
		dst := s.node
		for i, c := range dst.inputs {
			if c == nil {
				continue
			}
			src := c.src()
			if src == nil {
				continue
			}
			var attrs []string
			if len(src.outputs) > 1 || len(dst.inputs) > 1 {
				attrs = append(attrs, fmt.Sprintf("label=%q", fmt.Sprintf("%d -> %d", c.sourceIndex, i)))
			}
			if len(attrs) > 0 {
				fmt.Fprintf(&buf, "  %q -> %q [%s];\n", src.name, dst.name, strings.Join(attrs, ", "))
			} else {
				fmt.Fprintf(&buf, "  %q -> %q;\n", src.name, dst.name)
			}
		}
	}

	buf.WriteString("}\n")
	return buf.String()
}
