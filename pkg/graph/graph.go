package graph

import (
	"fmt"
	"os"
	"strconv"
	"sync"

	"github.com/charmbracelet/log"
)

// EventKind enumerates graph change notifications.
type EventKind int

const (
	EventAdded        EventKind = iota // node added
	EventRemoved                       // node removed
	EventRenamed                       // node renamed; Other holds the old name
	EventConnected                     // input connected; Other is the source
	EventDisconnected                  // input disconnected; Other is the source
)

func (k EventKind) String() string {
	switch k {
	case EventAdded:
		return "added"
	case EventRemoved:
		return "removed"
	case EventRenamed:
		return "renamed"
	case EventConnected:
		return "connected"
	case EventDisconnected:
		return "disconnected"
	default:
		return fmt.Sprintf("EventKind(%d)", int(k))
	}
}

// Event describes one change to the graph.
type Event struct {
	Kind  EventKind
	Node  string // affected node
	Other string // previous name or connected source, depending on Kind
	Input int    // input slot for connection events
}

type slot struct {
	node *Node
	gen  uint32
}

type subscriber struct {
	id int
	fn func(Event)
}

// Graph owns a set of nodes and the connections between them.
type Graph struct {
	mu    sync.RWMutex
	slots []slot
	free  []uint32
	names map[string]handle

	registry *Registry
	logger   *log.Logger

	subsMu  sync.Mutex
	subs    []subscriber
	nextSub int
}

// Option configures a Graph.
type Option func(*Graph)

// WithLogger sets the logger used for cook and connection diagnostics.
func WithLogger(l *log.Logger) Option {
	return func(g *Graph) {
		if l != nil {
			g.logger = l
		}
	}
}

// WithRegistry sets the registry consulted by NewNode.
func WithRegistry(r *Registry) Option {
	return func(g *Graph) { g.registry = r }
}

// New returns an empty graph.
func New(opts ...Option) *Graph {
	g := &Graph{
		names: make(map[string]handle),
		logger: log.NewWithOptions(os.Stderr, log.Options{
			Level:  log.WarnLevel,
			Prefix: "graph",
		}),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Logger returns the graph's logger.
func (g *Graph) Logger() *log.Logger { return g.logger }

// Registry returns the registry consulted by NewNode, or nil.
func (g *Graph) Registry() *Registry { return g.registry }

// resolve returns the node behind h, or nil if h is expired. g.mu must be
// held.
func (g *Graph) resolve(h handle) *Node {
	if int(h.index) >= len(g.slots) {
		return nil
	}
	s := g.slots[h.index]
	if s.gen != h.gen {
		return nil
	}
	return s.node
}

// uniqueName returns name if unused, otherwise name followed by the
// smallest positive integer that makes it unused. g.mu must be held.
func (g *Graph) uniqueName(name string) string {
	if name == "" {
		name = "node"
	}
	if _, taken := g.names[name]; !taken {
		return name
	}
	for k := 1; ; k++ {
		candidate := name + strconv.Itoa(k)
		if _, taken := g.names[candidate]; !taken {
			return candidate
		}
	}
}

// AddNode builds a node of the given kind and adds it under name, made
// unique if necessary. An empty name defaults to the kind name.
func (g *Graph) AddNode(spec KindSpec, name string) *Node {
	if name == "" {
		name = spec.Name
	}
	n := &Node{
		g:       g,
		kind:    spec.Name,
		inputs:  make([]*Connection, spec.Inputs),
		outputs: make([][]*Connection, spec.Outputs),
		fields:  make(map[string]AnyField),
		cache:   make([]cacheEntry, spec.Outputs),
	}
	n.op = spec.New(n)

	g.mu.Lock()
	if k := len(g.free); k > 0 {
		idx := g.free[k-1]
		g.free = g.free[:k-1]
		n.h = handle{index: idx, gen: g.slots[idx].gen}
		g.slots[idx].node = n
	} else {
		n.h = handle{index: uint32(len(g.slots))}
		g.slots = append(g.slots, slot{node: n})
	}
	n.name = g.uniqueName(name)
	g.names[n.name] = n.h
	final := n.name
	g.mu.Unlock()

	g.logger.Debug("node added", "node", final, "kind", spec.Name)
	g.emit(Event{Kind: EventAdded, Node: final})
	return n
}

// NewNode adds a node of a registered kind.
func (g *Graph) NewNode(kind, name string) (*Node, error) {
	if g.registry == nil {
		return nil, fmt.Errorf("%w: %q (no registry)", ErrUnknownKind, kind)
	}
	spec, ok := g.registry.Lookup(kind)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
	return g.AddNode(spec, name), nil
}

// RemoveNode deletes the named node. Its input connections are removed
// from their sources; connections it fed stay on their destinations but
// expire, so those inputs read as unconnected. It reports whether a node
// was removed.
func (g *Graph) RemoveNode(name string) bool {
	g.mu.Lock()
	h, ok := g.names[name]
	if !ok {
		g.mu.Unlock()
		return false
	}
	n := g.resolve(h)
	for i, c := range n.inputs {
		if c != nil {
			c.detach()
			n.inputs[i] = nil
		}
	}
	for i := range n.outputs {
		n.outputs[i] = nil
	}
	delete(g.names, name)
	g.slots[h.index] = slot{gen: h.gen + 1}
	g.free = append(g.free, h.index)
	g.mu.Unlock()

	g.logger.Debug("node removed", "node", name)
	g.emit(Event{Kind: EventRemoved, Node: name})
	return true
}

// Node returns the node called name, or nil.
func (g *Graph) Node(name string) *Node {
	g.mu.RLock()
	defer g.mu.RUnlock()
	h, ok := g.names[name]
	if !ok {
		return nil
	}
	return g.resolve(h)
}

// Nodes returns the live nodes in arena order.
func (g *Graph) Nodes() []*Node {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]*Node, 0, len(g.names))
	for _, s := range g.slots {
		if s.node != nil {
			out = append(out, s.node)
		}
	}
	return out
}

// Len returns the number of live nodes.
func (g *Graph) Len() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.names)
}

// Subscribe registers fn for change notifications and returns a function
// that cancels the subscription. Callbacks run synchronously on the
// goroutine that made the change, after the graph lock is released.
func (g *Graph) Subscribe(fn func(Event)) (cancel func()) {
	g.subsMu.Lock()
	defer g.subsMu.Unlock()
	id := g.nextSub
	g.nextSub++
	g.subs = append(g.subs, subscriber{id: id, fn: fn})
	return func() {
		g.subsMu.Lock()
		defer g.subsMu.Unlock()
		for i, s := range g.subs {
			if s.id == id {
				g.subs = append(g.subs[:i], g.subs[i+1:]...)
				return
			}
		}
	}
}

func (g *Graph) emit(events ...Event) {
	if len(events) == 0 {
		return
	}
	g.subsMu.Lock()
	subs := append([]subscriber(nil), g.subs...)
	g.subsMu.Unlock()
	for _, ev := range events {
		for _, s := range subs {
			s.fn(ev)
		}
	}
}
