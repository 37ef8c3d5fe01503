package graph

import "slices"

// handle is a weak reference into a graph's node arena. A handle whose
// generation no longer matches its slot is expired.
type handle struct {
	index uint32
	gen   uint32
}

// Connection is a directed edge from an output slot of one node to an
// input slot of another. The destination node owns it. Both endpoints are
// weak: after either node is removed the corresponding accessor returns
// nil.
type Connection struct {
	g           *Graph
	source      handle
	sourceIndex int
	dest        handle
	destIndex   int
}

// Source returns the upstream node, or nil if it was removed.
func (c *Connection) Source() *Node {
	c.g.mu.RLock()
	defer c.g.mu.RUnlock()
	return c.src()
}

// Dest returns the downstream node, or nil if it was removed.
func (c *Connection) Dest() *Node {
	c.g.mu.RLock()
	defer c.g.mu.RUnlock()
	return c.dst()
}

// SourceIndex returns the output slot on the source node.
func (c *Connection) SourceIndex() int { return c.sourceIndex }

// DestIndex returns the input slot on the destination node.
func (c *Connection) DestIndex() int { return c.destIndex }

// Expired reports whether either endpoint has been removed.
func (c *Connection) Expired() bool {
	c.g.mu.RLock()
	defer c.g.mu.RUnlock()
	return c.src() == nil || c.dst() == nil
}

func (c *Connection) src() *Node { return c.g.resolve(c.source) }
func (c *Connection) dst() *Node { return c.g.resolve(c.dest) }

// detach removes c from its source's output list. g.mu must be held.
func (c *Connection) detach() {
	src := c.src()
	if src == nil {
		return
	}
	src.outputs[c.sourceIndex] = slices.DeleteFunc(src.outputs[c.sourceIndex], func(o *Connection) bool {
		return o == c
	})
}
