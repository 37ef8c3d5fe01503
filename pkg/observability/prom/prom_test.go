package prom

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chazu/procmesh/pkg/observability"
)

func TestCookHooksCount(t *testing.T) {
	reg := prometheus.NewRegistry()
	h := NewCookHooks(reg)
	ctx := context.Background()

	h.OnCookStart(ctx, "cube", "cube1")
	h.OnCookComplete(ctx, "cube", "cube1", time.Millisecond, nil)
	h.OnCookStart(ctx, "cube", "cube2")
	h.OnCookComplete(ctx, "cube", "cube2", time.Millisecond, errors.New("bad"))
	h.OnCookHit(ctx, "cube", "cube1")

	assert.Equal(t, 2.0, testutil.ToFloat64(h.cooks.WithLabelValues("cube")))
	assert.Equal(t, 1.0, testutil.ToFloat64(h.hits.WithLabelValues("cube")))
	assert.Equal(t, 1.0, testutil.ToFloat64(h.errors.WithLabelValues("cube")))
	assert.Equal(t, 1, testutil.CollectAndCount(h.duration))
}

func TestTopologyHooksCount(t *testing.T) {
	reg := prometheus.NewRegistry()
	h := NewTopologyHooks(reg)

	h.OnHalfEdges(context.Background(), "radix", 12000, time.Millisecond)
	h.OnHalfEdges(context.Background(), "radix", 3000, time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(h.builds.WithLabelValues("radix")))
	assert.Equal(t, 15000.0, testutil.ToFloat64(h.edges.WithLabelValues("radix")))
}

func TestInstallRegistersGlobally(t *testing.T) {
	defer observability.Reset()
	reg := prometheus.NewRegistry()
	Install(reg)

	_, ok := observability.Cook().(*CookHooks)
	assert.True(t, ok)
	_, ok = observability.Topology().(*TopologyHooks)
	assert.True(t, ok)

	observability.Cook().OnCookStart(context.Background(), "grid", "grid")
	families, err := reg.Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, families)
}
