package graph

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/chazu/procmesh/pkg/mesh"
	"github.com/chazu/procmesh/pkg/observability"
)

// Operator is the node-specific compute step. inputs has one entry per
// input slot; unconnected slots are nil. Returning a nil mesh with a nil
// error means the output is absent.
//
// Operators must not mutate their inputs. They usually Duplicate the
// primary input and edit the copy.
type Operator interface {
	Compute(ctx context.Context, output int, inputs []*mesh.Mesh) (*mesh.Mesh, error)
}

// OperatorFunc adapts a function to the Operator interface.
type OperatorFunc func(ctx context.Context, output int, inputs []*mesh.Mesh) (*mesh.Mesh, error)

func (f OperatorFunc) Compute(ctx context.Context, output int, inputs []*mesh.Mesh) (*mesh.Mesh, error) {
	return f(ctx, output, inputs)
}

// cacheEntry is the memoized result of one output slot.
type cacheEntry struct {
	valid    bool
	result   *mesh.Mesh
	version  uint64
	inputIDs []mesh.ID
}

// Node is a computation unit in a Graph. Nodes are created through
// Graph.AddNode or Graph.NewNode and stay owned by their graph.
type Node struct {
	g    *Graph
	h    handle
	kind string
	op   Operator

	// name, inputs and outputs are guarded by g.mu.
	name    string
	inputs  []*Connection
	outputs [][]*Connection

	fieldsMu   sync.RWMutex
	fields     map[string]AnyField
	fieldOrder []string

	// version counts field edits; a cache entry computed at an older
	// version is stale.
	version atomic.Uint64

	cookMu sync.Mutex
	cache  []cacheEntry
}

// Name returns the node's unique name within its graph.
func (n *Node) Name() string {
	n.g.mu.RLock()
	defer n.g.mu.RUnlock()
	return n.name
}

// SetName renames the node. The name is made unique the same way AddNode
// does; the final name is returned.
func (n *Node) SetName(name string) string {
	n.g.mu.Lock()
	if !n.alive() {
		n.g.mu.Unlock()
		return n.name
	}
	old := n.name
	if name == old {
		n.g.mu.Unlock()
		return old
	}
	delete(n.g.names, old)
	n.name = n.g.uniqueName(name)
	n.g.names[n.name] = n.h
	final := n.name
	n.g.mu.Unlock()

	n.g.emit(Event{Kind: EventRenamed, Node: final, Other: old})
	return final
}

// Kind returns the registry name the node was built from.
func (n *Node) Kind() string { return n.kind }

// NumInputs returns the number of input slots.
func (n *Node) NumInputs() int { return len(n.inputs) }

// NumOutputs returns the number of output slots.
func (n *Node) NumOutputs() int { return len(n.outputs) }

// Graph returns the owning graph.
func (n *Node) Graph() *Graph { return n.g }

// Field returns the field called name, or nil.
func (n *Node) Field(name string) AnyField {
	n.fieldsMu.RLock()
	defer n.fieldsMu.RUnlock()
	return n.fields[name]
}

// FieldNames returns field names in declaration order.
func (n *Node) FieldNames() []string {
	n.fieldsMu.RLock()
	defer n.fieldsMu.RUnlock()
	return append([]string(nil), n.fieldOrder...)
}

func (n *Node) markDirty() { n.version.Add(1) }

// alive reports whether n still occupies its arena slot. g.mu must be held.
func (n *Node) alive() bool { return n.g.resolve(n.h) == n }

// InputConnection returns the connection at input slot i, or nil when the
// slot is unset or out of range. The returned connection may be expired.
func (n *Node) InputConnection(i int) *Connection {
	n.g.mu.RLock()
	defer n.g.mu.RUnlock()
	if i < 0 || i >= len(n.inputs) {
		return nil
	}
	return n.inputs[i]
}

// OutputConnections returns the connections fed by output slot i.
func (n *Node) OutputConnections(i int) []*Connection {
	n.g.mu.RLock()
	defer n.g.mu.RUnlock()
	if i < 0 || i >= len(n.outputs) {
		return nil
	}
	var out []*Connection
	for _, c := range n.outputs[i] {
		if c.dst() != nil {
			out = append(out, c)
		}
	}
	return out
}

// SetInput connects output sourceIndex of source to input destIndex of n,
// replacing any previous connection on that slot. The call is ignored when
// source is n itself, when n already feeds source (the edge would close a
// cycle), when either index is out of range, or when source belongs to
// another graph.
func (n *Node) SetInput(destIndex int, source *Node, sourceIndex int) {
	g := n.g
	g.mu.Lock()
	reason := ""
	switch {
	case source == nil || source.g != g || !source.alive() || !n.alive():
		reason = "foreign or removed node"
	case destIndex < 0 || destIndex >= len(n.inputs):
		reason = "input index out of range"
	case sourceIndex < 0 || sourceIndex >= len(source.outputs):
		reason = "output index out of range"
	case source == n:
		reason = "self connection"
	case source.inInputsHierarchy(n):
		reason = "would create a cycle"
	}
	if reason != "" {
		name := n.name
		g.mu.Unlock()
		g.logger.Debug("connection rejected", "dest", name, "input", destIndex, "reason", reason)
		return
	}

	var events []Event
	if old := n.inputs[destIndex]; old != nil {
		old.detach()
		if src := old.src(); src != nil {
			events = append(events, Event{Kind: EventDisconnected, Node: n.name, Other: src.name, Input: destIndex})
		}
	}
	c := &Connection{g: g, source: source.h, sourceIndex: sourceIndex, dest: n.h, destIndex: destIndex}
	n.inputs[destIndex] = c
	source.outputs[sourceIndex] = append(source.outputs[sourceIndex], c)
	events = append(events, Event{Kind: EventConnected, Node: n.name, Other: source.name, Input: destIndex})
	g.mu.Unlock()

	g.emit(events...)
}

// DeleteInputConnection removes the connection at input slot i, if any,
// from both n and its source.
func (n *Node) DeleteInputConnection(i int) {
	g := n.g
	g.mu.Lock()
	if i < 0 || i >= len(n.inputs) || n.inputs[i] == nil {
		g.mu.Unlock()
		return
	}
	c := n.inputs[i]
	c.detach()
	n.inputs[i] = nil
	var ev []Event
	if src := c.src(); src != nil {
		ev = append(ev, Event{Kind: EventDisconnected, Node: n.name, Other: src.name, Input: i})
	}
	g.mu.Unlock()

	g.emit(ev...)
}

// IsInInputsHierarchy reports whether target feeds n, directly or
// transitively, through n's input connections.
func (n *Node) IsInInputsHierarchy(target *Node) bool {
	n.g.mu.RLock()
	defer n.g.mu.RUnlock()
	return n.inInputsHierarchy(target)
}

// inInputsHierarchy is IsInInputsHierarchy with g.mu held.
func (n *Node) inInputsHierarchy(target *Node) bool {
	seen := map[*Node]bool{}
	stack := []*Node{n}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, c := range cur.inputs {
			if c == nil {
				continue
			}
			src := c.src()
			if src == nil || seen[src] {
				continue
			}
			if src == target {
				return true
			}
			seen[src] = true
			stack = append(stack, src)
		}
	}
	return false
}

// upstream pairs a source node with the output it feeds from.
type upstream struct {
	node  *Node
	index int
}

func (n *Node) inputSources() []upstream {
	n.g.mu.RLock()
	defer n.g.mu.RUnlock()
	srcs := make([]upstream, len(n.inputs))
	for i, c := range n.inputs {
		if c == nil {
			continue
		}
		srcs[i] = upstream{node: c.src(), index: c.sourceIndex}
	}
	return srcs
}

// Cook returns the mesh at output slot output, computing it if needed.
//
// An out-of-range output yields (nil, nil). Connected inputs are cooked
// first; an unset or expired input is passed to the operator as nil. The
// cached result is returned unchanged when no field has been set since it
// was computed and every input produced the same mesh instance as before.
// Otherwise the operator runs and its result replaces the cache.
//
// Operator failures are returned as *CookError and leave the cache as it
// was. Concurrent cooks are safe: each node serializes its own cache
// updates.
func (n *Node) Cook(ctx context.Context, output int) (*mesh.Mesh, error) {
	if output < 0 || output >= len(n.cache) {
		return nil, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	n.cookMu.Lock()
	defer n.cookMu.Unlock()

	srcs := n.inputSources()
	inputs := make([]*mesh.Mesh, len(srcs))
	for i, s := range srcs {
		if s.node == nil {
			continue
		}
		m, err := s.node.Cook(ctx, s.index)
		if err != nil {
			return nil, err
		}
		inputs[i] = m
	}

	version := n.version.Load()
	entry := &n.cache[output]
	name := n.Name()
	if entry.valid && entry.version == version && sameIdentity(entry.inputIDs, inputs) {
		n.g.logger.Debug("cook hit", "node", name, "output", output)
		observability.Cook().OnCookHit(ctx, n.kind, name)
		return entry.result, nil
	}

	n.g.logger.Debug("cook", "node", name, "kind", n.kind, "output", output)
	observability.Cook().OnCookStart(ctx, n.kind, name)
	start := time.Now()
	result, err := n.op.Compute(ctx, output, inputs)
	observability.Cook().OnCookComplete(ctx, n.kind, name, time.Since(start), err)
	if err != nil {
		return nil, &CookError{Node: name, Kind: n.kind, Output: output, Err: err}
	}

	*entry = cacheEntry{
		valid:    true,
		result:   result,
		version:  version,
		inputIDs: identities(inputs),
	}
	return result, nil
}

// Invalidate drops every cached output so the next cook recomputes.
func (n *Node) Invalidate() { n.markDirty() }

func identities(ms []*mesh.Mesh) []mesh.ID {
	ids := make([]mesh.ID, len(ms))
	for i, m := range ms {
		if m != nil {
			ids[i] = m.ID()
		}
	}
	return ids
}

func sameIdentity(ids []mesh.ID, ms []*mesh.Mesh) bool {
	if len(ids) != len(ms) {
		return false
	}
	for i, m := range ms {
		var id mesh.ID
		if m != nil {
			id = m.ID()
		}
		if ids[i] != id {
			return false
		}
	}
	return true
}
