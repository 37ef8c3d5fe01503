// Package parallel runs data-parallel loops over disjoint index ranges.
//
// Callers must size every array they write before calling For: workers
// write to their own [lo, hi) range only and nothing is locked.
package parallel

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// MinChunk is the smallest range handed to a worker. Loops shorter than
// this run on the calling goroutine.
const MinChunk = 2048

// Chunks splits [0, n) into at most workers contiguous ranges of at
// least minChunk elements each. The last range absorbs the remainder.
func Chunks(n, workers, minChunk int) [][2]int {
	if n <= 0 {
		return nil
	}
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	if minChunk <= 0 {
		minChunk = 1
	}
	count := min(workers, max(1, n/minChunk))
	size := n / count
	out := make([][2]int, count)
	lo := 0
	for i := range count {
		hi := lo + size
		if i == count-1 {
			hi = n
		}
		out[i] = [2]int{lo, hi}
		lo = hi
	}
	return out
}

// Split returns the ranges For would use for a loop over [0, n).
func Split(n int) [][2]int { return Chunks(n, 0, MinChunk) }

// Each calls fn once per range, concurrently, passing the range's
// position in chunks so callers can keep per-range scratch state. It
// returns when every call has.
func Each(chunks [][2]int, fn func(chunk, lo, hi int)) {
	if len(chunks) == 1 {
		fn(0, chunks[0][0], chunks[0][1])
		return
	}
	var g errgroup.Group
	for i, c := range chunks {
		g.Go(func() error {
			fn(i, c[0], c[1])
			return nil
		})
	}
	_ = g.Wait()
}

// For calls fn over disjoint ranges covering [0, n), in parallel when n
// is large enough to be worth it.
func For(n int, fn func(lo, hi int)) {
	_ = ForErr(context.Background(), n, func(_ context.Context, lo, hi int) error {
		fn(lo, hi)
		return nil
	})
}

// ForErr is For with cancellation and error propagation. The first error
// cancels the context passed to the remaining ranges.
func ForErr(ctx context.Context, n int, fn func(ctx context.Context, lo, hi int) error) error {
	chunks := Split(n)
	switch len(chunks) {
	case 0:
		return nil
	case 1:
		return fn(ctx, 0, n)
	}
	g, gctx := errgroup.WithContext(ctx)
	for _, c := range chunks {
		g.Go(func() error {
			return fn(gctx, c[0], c[1])
		})
	}
	return g.Wait()
}
