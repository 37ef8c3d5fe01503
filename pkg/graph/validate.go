package graph

import (
	"fmt"
	"slices"
)

// ValidationSeverity indicates whether a validation finding is a broken
// invariant or merely informational.
type ValidationSeverity int

const (
	SeverityError   ValidationSeverity = iota // broken invariant
	SeverityWarning                           // informational
)

func (s ValidationSeverity) String() string {
	switch s {
	case SeverityError:
		return "error"
	case SeverityWarning:
		return "warning"
	default:
		return fmt.Sprintf("ValidationSeverity(%d)", int(s))
	}
}

// ValidationError describes a single validation finding.
type ValidationError struct {
	Node     string             // which node has the problem (empty if graph-level)
	Message  string             // human-readable description
	Severity ValidationSeverity // error or warning
}

func (e ValidationError) Error() string {
	if e.Node == "" {
		return fmt.Sprintf("[%s] %s", e.Severity, e.Message)
	}
	return fmt.Sprintf("[%s] node %s: %s", e.Severity, e.Node, e.Message)
}

// Validate audits the whole graph: acyclicity, connection bookkeeping and
// the name index. SetInput already keeps the graph acyclic, so errors here
// indicate a bug; expired inputs are reported as warnings. Validate never
// mutates the graph.
func (g *Graph) Validate() []ValidationError {
	g.mu.RLock()
	defer g.mu.RUnlock()
	var errs []ValidationError
	errs = append(errs, g.validateDAG()...)
	errs = append(errs, g.validateConnections()...)
	errs = append(errs, g.validateNames()...)
	return errs
}

// validateDAG checks for cycles using DFS with 3-color marking over input
// edges. White (0) = unvisited, gray (1) = in current DFS path, black (2) =
// fully explored. Reaching a gray node means a cycle.
func (g *Graph) validateDAG() []ValidationError {
	const (
		white = iota
		gray
		black
	)

	color := make(map[*Node]int)
	var errs []ValidationError

	var visit func(n *Node) bool // returns true if cycle found
	visit = func(n *Node) bool {
		switch color[n] {
		case black:
			return false
		case gray:
			errs = append(errs, ValidationError{
				Node:     n.name,
				Message:  fmt.Sprintf("cycle detected: node %s is part of a cycle", n.name),
				Severity: SeverityError,
			})
			return true
		}

		color[n] = gray
		for _, c := range n.inputs {
			if c == nil {
				continue
			}
			if src := c.src(); src != nil && visit(src) {
				return true
			}
		}
		color[n] = black
		return false
	}

	for _, s := range g.slots {
		if s.node != nil && color[s.node] == white {
			if visit(s.node) {
				// One cycle error is sufficient; stop early.
				break
			}
		}
	}
	return errs
}

// validateConnections checks that every input connection points back at
// its owner and is listed by its source, and that output lists hold only
// connections their destinations still own.
func (g *Graph) validateConnections() []ValidationError {
	var errs []ValidationError
	for _, s := range g.slots {
		n := s.node
		if n == nil {
			continue
		}
		for i, c := range n.inputs {
			if c == nil {
				continue
			}
			if c.dst() != n || c.destIndex != i {
				errs = append(errs, ValidationError{
					Node:     n.name,
					Message:  fmt.Sprintf("input %d holds a connection owned elsewhere", i),
					Severity: SeverityError,
				})
			}
			src := c.src()
			if src == nil {
				errs = append(errs, ValidationError{
					Node:     n.name,
					Message:  fmt.Sprintf("input %d refers to a removed node", i),
					Severity: SeverityWarning,
				})
				continue
			}
			if !slices.Contains(src.outputs[c.sourceIndex], c) {
				errs = append(errs, ValidationError{
					Node:     n.name,
					Message:  fmt.Sprintf("input %d is missing from %s output %d", i, src.name, c.sourceIndex),
					Severity: SeverityError,
				})
			}
		}
		for o, list := range n.outputs {
			for _, c := range list {
				dst := c.dst()
				if dst == nil || dst.inputs[c.destIndex] != c {
					errs = append(errs, ValidationError{
						Node:     n.name,
						Message:  fmt.Sprintf("output %d lists a stale connection", o),
						Severity: SeverityError,
					})
				}
			}
		}
	}
	return errs
}

// validateNames checks that the name index and the node names agree.
func (g *Graph) validateNames() []ValidationError {
	var errs []ValidationError
	for name, h := range g.names {
		n := g.resolve(h)
		switch {
		case n == nil:
			errs = append(errs, ValidationError{
				Message:  fmt.Sprintf("name index entry %q references a removed node", name),
				Severity: SeverityError,
			})
		case n.name != name:
			errs = append(errs, ValidationError{
				Node:     n.name,
				Message:  fmt.Sprintf("name index entry %q disagrees with node name", name),
				Severity: SeverityError,
			})
		}
	}
	return errs
}
