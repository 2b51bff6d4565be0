// Package singleflight coalesces concurrent calls for the same key so the
// underlying function runs at most once. The client uses it to collapse
// identical passthrough queries (list/search/count) into one backend call;
// per-ISIN resolution has its own dedup inside the lookup coordinator.
package singleflight

import (
	"context"
	"sync"
)

// Group coalesces concurrent calls per key K. The first caller for a key
// becomes the leader and runs fn; followers wait for the shared result.
// Publishing (val, err) happens-before close(done), so reads after <-done
// observe the final values.
type Group[K comparable, V any] struct {
	mu sync.Mutex
	m  map[K]*flight[V]
}

type flight[V any] struct {
	done chan struct{} // closed once val/err are published
	val  V
	err  error
}

// Do runs fn once for key; concurrent callers share the result. A follower
// whose ctx is cancelled returns ctx.Err() without affecting the leader.
// Cancelling ctx never stops the leader's fn; thread ctx into fn for that.
func (g *Group[K, V]) Do(ctx context.Context, key K, fn func() (V, error)) (V, error) {
	g.mu.Lock()
	if g.m == nil {
		g.m = make(map[K]*flight[V])
	}
	if f, ok := g.m[key]; ok {
		done := f.done
		g.mu.Unlock()
		select {
		case <-done:
			return f.val, f.err
		case <-ctx.Done():
			var zero V
			return zero, ctx.Err()
		}
	}

	f := &flight[V]{done: make(chan struct{})}
	g.m[key] = f
	g.mu.Unlock()

	// Run fn outside the lock so unrelated keys proceed in parallel.
	f.val, f.err = fn()
	close(f.done)

	g.mu.Lock()
	delete(g.m, key)
	g.mu.Unlock()

	return f.val, f.err
}
