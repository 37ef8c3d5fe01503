// Package observability provides hooks for metrics and tracing of node
// cooks and topology builds.
//
// Libraries call the registered hooks; main registers a backend at startup.
// The defaults are no-ops, so nothing is recorded unless a backend (see
// package prom) is installed:
//
//	observability.SetCookHooks(prom.NewCookHooks(reg))
//
// Graph code emits events around every cook:
//
//	observability.Cook().OnCookStart(ctx, kind, node)
//	// ... compute ...
//	observability.Cook().OnCookComplete(ctx, kind, node, duration, err)
package observability

import (
	"context"
	"sync"
	"time"
)

// CookHooks receives events from node evaluation.
type CookHooks interface {
	// OnCookStart records that a node began computing an output.
	OnCookStart(ctx context.Context, kind, node string)

	// OnCookHit records a cook answered from the node's cache.
	OnCookHit(ctx context.Context, kind, node string)

	// OnCookComplete records the end of a compute, successful or not.
	OnCookComplete(ctx context.Context, kind, node string, duration time.Duration, err error)
}

// TopologyHooks receives events from half-edge construction.
type TopologyHooks interface {
	// OnHalfEdges records one half-edge build.
	OnHalfEdges(ctx context.Context, strategy string, halfEdges int, duration time.Duration)
}

// NoopCookHooks is a no-op implementation of CookHooks.
type NoopCookHooks struct{}

func (NoopCookHooks) OnCookStart(context.Context, string, string)                           {}
func (NoopCookHooks) OnCookHit(context.Context, string, string)                             {}
func (NoopCookHooks) OnCookComplete(context.Context, string, string, time.Duration, error) {}

// NoopTopologyHooks is a no-op implementation of TopologyHooks.
type NoopTopologyHooks struct{}

func (NoopTopologyHooks) OnHalfEdges(context.Context, string, int, time.Duration) {}

var (
	cookHooks     CookHooks     = NoopCookHooks{}
	topologyHooks TopologyHooks = NoopTopologyHooks{}
	hooksMu       sync.RWMutex
)

// SetCookHooks registers custom cook hooks. A nil argument is ignored.
func SetCookHooks(h CookHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		cookHooks = h
	}
}

// SetTopologyHooks registers custom topology hooks. A nil argument is ignored.
func SetTopologyHooks(h TopologyHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		topologyHooks = h
	}
}

// Cook returns the registered cook hooks.
func Cook() CookHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return cookHooks
}

// Topology returns the registered topology hooks.
func Topology() TopologyHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return topologyHooks
}

// Reset restores all hooks to their no-op defaults.
// This is primarily useful for testing.
func Reset() {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	cookHooks = NoopCookHooks{}
	topologyHooks = NoopTopologyHooks{}
}
