// Package prom implements the observability hooks with Prometheus metrics.
package prom

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/chazu/procmesh/pkg/observability"
)

const namespace = "procmesh"

// CookHooks counts cooks and cache hits per node kind and records compute
// durations.
type CookHooks struct {
	cooks    *prometheus.CounterVec
	hits     *prometheus.CounterVec
	errors   *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

var _ observability.CookHooks = (*CookHooks)(nil)

// NewCookHooks creates the cook metrics and registers them on reg.
func NewCookHooks(reg prometheus.Registerer) *CookHooks {
	h := &CookHooks{
		cooks: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cooks_total",
				Help:      "Number of node computes started.",
			},
			[]string{"kind"},
		),
		hits: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cook_cache_hits_total",
				Help:      "Number of cooks answered from the node cache.",
			},
			[]string{"kind"},
		),
		errors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cook_errors_total",
				Help:      "Number of node computes that failed.",
			},
			[]string{"kind"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "cook_duration_seconds",
				Help:      "Duration of node computes.",
				Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 10),
			},
			[]string{"kind"},
		),
	}
	reg.MustRegister(h.cooks, h.hits, h.errors, h.duration)
	return h
}

func (h *CookHooks) OnCookStart(_ context.Context, kind, _ string) {
	h.cooks.WithLabelValues(kind).Inc()
}

func (h *CookHooks) OnCookHit(_ context.Context, kind, _ string) {
	h.hits.WithLabelValues(kind).Inc()
}

func (h *CookHooks) OnCookComplete(_ context.Context, kind, _ string, d time.Duration, err error) {
	h.duration.WithLabelValues(kind).Observe(d.Seconds())
	if err != nil {
		h.errors.WithLabelValues(kind).Inc()
	}
}

// TopologyHooks records half-edge build sizes and durations per sort
// strategy.
type TopologyHooks struct {
	builds   *prometheus.CounterVec
	edges    *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

var _ observability.TopologyHooks = (*TopologyHooks)(nil)

// NewTopologyHooks creates the topology metrics and registers them on reg.
func NewTopologyHooks(reg prometheus.Registerer) *TopologyHooks {
	h := &TopologyHooks{
		builds: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "halfedge_builds_total",
				Help:      "Number of half-edge structures built.",
			},
			[]string{"strategy"},
		),
		edges: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "halfedges_total",
				Help:      "Number of half-edges emitted.",
			},
			[]string{"strategy"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "halfedge_build_duration_seconds",
				Help:      "Duration of half-edge construction.",
				Buckets:   prometheus.ExponentialBuckets(0.00001, 4, 10),
			},
			[]string{"strategy"},
		),
	}
	reg.MustRegister(h.builds, h.edges, h.duration)
	return h
}

func (h *TopologyHooks) OnHalfEdges(_ context.Context, strategy string, n int, d time.Duration) {
	h.builds.WithLabelValues(strategy).Inc()
	h.edges.WithLabelValues(strategy).Add(float64(n))
	h.duration.WithLabelValues(strategy).Observe(d.Seconds())
}

// Install creates both hook sets on reg and registers them globally.
func Install(reg prometheus.Registerer) {
	observability.SetCookHooks(NewCookHooks(reg))
	observability.SetTopologyHooks(NewTopologyHooks(reg))
}
