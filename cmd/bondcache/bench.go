package main

import (
	"context"
	"fmt"
	"math/rand"
	"net/http"
	_ "net/http/pprof" // registers /debug/pprof/* on DefaultServeMux
	"runtime"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/bondmaster/bondcache/bond"
	"github.com/bondmaster/bondcache/cache"
	"github.com/bondmaster/bondcache/lookup"
	pmet "github.com/bondmaster/bondcache/metrics/prom"
)

// benchCmd runs a synthetic lookup-entry workload against the cache layer
// alone (no backend), with optional pprof and Prometheus endpoints. Useful
// for sizing capacity and shard count before deploying in front of a real
// spreadsheet population.
func benchCmd() *cobra.Command {
	var (
		capacity int
		shards   int
		workers  int
		duration time.Duration
		readPct  int
		keys     int
		zipfS    float64
		zipfV    float64
		seed     int64

		pprofAddr   string
		metricsAddr string
	)

	cmd := &cobra.Command{
		Use:   "bench",
		Short: "Run a synthetic workload against the cache layer",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if pprofAddr != "" {
				go func() {
					fmt.Printf("pprof: serving at %s\n", pprofAddr)
					_ = http.ListenAndServe(pprofAddr, nil)
				}()
			}

			var metrics cache.Metrics = cache.NoopMetrics{}
			if metricsAddr != "" {
				metrics = pmet.NewCache(nil, "bondcache", "bench", nil)
				http.Handle("/metrics", promhttp.Handler())
				go func() {
					fmt.Printf("metrics: serving at %s\n", metricsAddr)
					_ = http.ListenAndServe(metricsAddr, nil)
				}()
			}

			c := cache.New[string, lookup.Entry](cache.Options[string, lookup.Entry]{
				Capacity: capacity,
				Shards:   shards,
				Metrics:  metrics,
			})
			defer func() { _ = c.Close() }()

			// Preload half capacity for a realistic hit rate.
			for i := 0; i < capacity/2; i++ {
				c.Set(benchKey(uint64(i)), benchEntry(i))
			}

			if workers <= 0 {
				workers = 1
			}
			keysMax := uint64(keys - 1)

			var reads, writes, hits, total uint64
			ctx, cancel := context.WithTimeout(cmd.Context(), duration)
			defer cancel()

			start := time.Now()
			var wg sync.WaitGroup
			wg.Add(workers)
			for w := 0; w < workers; w++ {
				go func(id int) {
					defer wg.Done()

					// Each worker gets its own RNG + Zipf (rand.Rand is
					// not goroutine-safe).
					localR := rand.New(rand.NewSource(seed + int64(id)*9973))
					localZipf := rand.NewZipf(localR, zipfS, zipfV, keysMax)

					for ctx.Err() == nil {
						atomic.AddUint64(&total, 1)
						n := localZipf.Uint64()
						if int(localR.Int31n(100)) < readPct {
							atomic.AddUint64(&reads, 1)
							if _, ok := c.Get(benchKey(n)); ok {
								atomic.AddUint64(&hits, 1)
							}
						} else {
							atomic.AddUint64(&writes, 1)
							c.Set(benchKey(n), benchEntry(int(n)))
						}
					}
				}(w)
			}
			wg.Wait()
			elapsed := time.Since(start)

			ops := atomic.LoadUint64(&total)
			readsN := atomic.LoadUint64(&reads)
			hitRate := 0.0
			if readsN > 0 {
				hitRate = float64(atomic.LoadUint64(&hits)) / float64(readsN) * 100
			}
			fmt.Printf("cap=%d shards=%d workers=%d keys=%d dur=%v seed=%d\n",
				capacity, shards, workers, keys, elapsed, seed)
			fmt.Printf("ops=%d (%.0f ops/s)  reads=%d  writes=%d  hit-rate=%.2f%%\n",
				ops, float64(ops)/elapsed.Seconds(), readsN, atomic.LoadUint64(&writes), hitRate)
			fmt.Printf("resident=%d\n", c.Len())
			return nil
		},
	}

	cmd.Flags().IntVar(&capacity, "cap", 500, "cache capacity (entries)")
	cmd.Flags().IntVar(&shards, "shards", 0, "number of shards (0=auto)")
	cmd.Flags().IntVar(&workers, "workers", 2*runtime.GOMAXPROCS(0), "worker goroutines")
	cmd.Flags().DurationVar(&duration, "duration", 10*time.Second, "benchmark duration")
	cmd.Flags().IntVar(&readPct, "reads", 80, "read percentage [0..100]")
	cmd.Flags().IntVar(&keys, "keys", 10_000, "keyspace size")
	cmd.Flags().Float64Var(&zipfS, "zipf-s", 1.1, "Zipf s > 1 (skew)")
	cmd.Flags().Float64Var(&zipfV, "zipf-v", 1.0, "Zipf v")
	cmd.Flags().Int64Var(&seed, "seed", time.Now().UnixNano(), "random seed")
	cmd.Flags().StringVar(&pprofAddr, "pprof", "", "serve pprof at addr (e.g. :6060); empty = disabled")
	cmd.Flags().StringVar(&metricsAddr, "metrics", "", "serve Prometheus metrics at addr; empty = disabled")
	return cmd
}

// benchKey shapes synthetic keys like real normalized ISINs so hashing
// behaves as it would in production.
func benchKey(n uint64) string {
	return "US" + fmt.Sprintf("%09d", n) + strconv.FormatUint(n%10, 10)
}

func benchEntry(n int) lookup.Entry {
	return lookup.Entry{
		Status: lookup.StatusFound,
		Record: bond.Record{
			"isin":        benchKey(uint64(n)),
			"coupon_rate": float64(n%500) / 100,
		},
	}
}
