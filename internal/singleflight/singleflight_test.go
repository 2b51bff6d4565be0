package singleflight

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// Many concurrent callers for one key: fn runs exactly once and all callers
// observe the same result.
func TestGroup_Coalesce(t *testing.T) {
	var g Group[string, string]
	var calls int64

	const n = 50
	start := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func() {
			defer wg.Done()
			<-start
			v, err := g.Do(context.Background(), "q", func() (string, error) {
				atomic.AddInt64(&calls, 1)
				time.Sleep(5 * time.Millisecond)
				return "result", nil
			})
			if err != nil || v != "result" {
				t.Errorf("Do = %q, %v", v, err)
			}
		}()
	}
	close(start)
	wg.Wait()

	if got := atomic.LoadInt64(&calls); got != 1 {
		t.Fatalf("fn ran %d times, want 1", got)
	}
}

// Errors from the leader fan out to followers.
func TestGroup_SharedError(t *testing.T) {
	var g Group[string, int]
	want := errors.New("backend down")

	_, err := g.Do(context.Background(), "k", func() (int, error) { return 0, want })
	if !errors.Is(err, want) {
		t.Fatalf("err = %v", err)
	}
}

// A cancelled follower unblocks without waiting for the leader.
func TestGroup_FollowerCancel(t *testing.T) {
	var g Group[string, int]

	leaderStarted := make(chan struct{})
	release := make(chan struct{})
	go func() {
		_, _ = g.Do(context.Background(), "k", func() (int, error) {
			close(leaderStarted)
			<-release
			return 42, nil
		})
	}()
	<-leaderStarted

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := g.Do(ctx, "k", func() (int, error) { return 0, nil })
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	close(release)
}
