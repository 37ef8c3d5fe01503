package parallel

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChunksCoverRange(t *testing.T) {
	tests := []struct {
		name             string
		n, workers, minC int
		wantChunks       int
	}{
		{"empty", 0, 4, 10, 0},
		{"smaller than min chunk", 5, 4, 10, 1},
		{"exact split", 40, 4, 10, 4},
		{"capped by workers", 1000, 3, 10, 3},
		{"remainder", 47, 4, 10, 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chunks := Chunks(tt.n, tt.workers, tt.minC)
			require.Len(t, chunks, tt.wantChunks)
			next := 0
			for _, c := range chunks {
				assert.Equal(t, next, c[0])
				assert.Greater(t, c[1], c[0])
				next = c[1]
			}
			if tt.n > 0 {
				assert.Equal(t, tt.n, next)
			}
		})
	}
}

func TestForVisitsEveryIndexOnce(t *testing.T) {
	const n = 100_000
	hits := make([]int32, n)
	For(n, func(lo, hi int) {
		for i := lo; i < hi; i++ {
			atomic.AddInt32(&hits[i], 1)
		}
	})
	for i, h := range hits {
		if h != 1 {
			t.Fatalf("index %d visited %d times", i, h)
		}
	}
}

func TestForErrPropagatesError(t *testing.T) {
	boom := errors.New("boom")
	err := ForErr(context.Background(), 50_000, func(_ context.Context, lo, _ int) error {
		if lo == 0 {
			return boom
		}
		return nil
	})
	assert.ErrorIs(t, err, boom)
}

func TestEachGivesChunkPositions(t *testing.T) {
	chunks := Chunks(10_000, 4, 100)
	require.Len(t, chunks, 4)
	seen := make([]int, len(chunks))
	var total atomic.Int64
	Each(chunks, func(chunk, lo, hi int) {
		seen[chunk] = lo
		total.Add(int64(hi - lo))
	})
	for i, c := range chunks {
		assert.Equal(t, c[0], seen[i])
	}
	assert.EqualValues(t, 10_000, total.Load())

	Each(nil, func(int, int, int) { t.Fatal("called for no chunks") })
}
