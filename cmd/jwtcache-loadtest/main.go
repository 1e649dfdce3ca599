package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/MrEthical07/jwtcache"
	"github.com/MrEthical07/jwtcache/jwt"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

var secret = []byte("jwtcache-loadtest-secret-0123456789")

func main() {
	var (
		tokens      = flag.Int("tokens", 10000, "number of distinct tokens to sign")
		forged      = flag.Float64("forged", 0.05, "fraction of tokens signed with the wrong key")
		concurrency = flag.Int("concurrency", 64, "number of concurrent workers")
		ops         = flag.Int("ops", 500000, "verifications in the warm phase")
		size        = flag.Int64("size", 64<<20, "cache byte budget")
		backend     = flag.String("backend", string(jwtcache.BackendLRU), "store backend: lru or tinylfu")
		async       = flag.Bool("async", false, "use VerifyAsync instead of Verify")
	)
	flag.Parse()

	if *tokens <= 0 || *concurrency <= 0 || *ops <= 0 {
		fmt.Fprintln(os.Stderr, "tokens, concurrency, and ops must be > 0")
		os.Exit(2)
	}

	cfg := jwtcache.DefaultConfig()
	cfg.Store.Backend = jwtcache.StoreBackend(*backend)
	cfg.Metrics.EnableLatencyHistograms = true
	cache, err := jwtcache.New(*size, secret, cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "new cache: %v\n", err)
		os.Exit(1)
	}
	defer cache.Close()

	fmt.Printf("signing %d tokens...\n", *tokens)
	startSign := time.Now()
	corpus, err := signCorpus(*tokens, *forged)
	if err != nil {
		fmt.Fprintf(os.Stderr, "sign: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("signed in %s\n", time.Since(startSign).Round(time.Millisecond))

	verify := func(ctx context.Context, tok string) error {
		if *async {
			_, err := cache.VerifyAsync(tok).Wait(ctx)
			return err
		}
		_, err := cache.Verify(tok)
		return err
	}

	ctx := context.Background()
	cold, err := runPhase(ctx, corpus, len(corpus), *concurrency, true, verify)
	if err != nil {
		fmt.Fprintf(os.Stderr, "cold phase: %v\n", err)
		os.Exit(1)
	}
	warm, err := runPhase(ctx, corpus, *ops, *concurrency, false, verify)
	if err != nil {
		fmt.Fprintf(os.Stderr, "warm phase: %v\n", err)
		os.Exit(1)
	}

	snap := cache.MetricsSnapshot()
	fmt.Println("---- results ----")
	printStats("cold", cold)
	printStats("warm", warm)
	fmt.Printf("cache: entries=%d weight=%dB hit_ratio=%.4f negative_hits=%d evicted=%d skipped=%d\n",
		cache.Len(),
		cache.Weight(),
		snap.HitRatio(),
		snap.Counters[jwtcache.MetricNegativeHit],
		snap.Counters[jwtcache.MetricEntryEvicted],
		snap.Counters[jwtcache.MetricEntrySkipped],
	)
}

func signCorpus(n int, forgedRatio float64) ([]string, error) {
	good, err := jwt.NewSigner("HS256", secret, "")
	if err != nil {
		return nil, err
	}
	bad, err := jwt.NewSigner("HS256", []byte("wrong-key-wrong-key-wrong-key-0000"), "")
	if err != nil {
		return nil, err
	}

	exp := time.Now().Add(time.Hour).Unix()
	out := make([]string, n)
	for i := range out {
		s := good
		if float64(i) < float64(n)*forgedRatio {
			s = bad
		}
		tok, err := s.Sign(map[string]any{
			"sub": fmt.Sprintf("user-%d", i),
			"jti": uuid.NewString(),
			"exp": exp,
		})
		if err != nil {
			return nil, err
		}
		out[i] = tok
	}
	return out, nil
}

type verifyFunc func(ctx context.Context, token string) error

// runPhase drives ops verifications. Sequential phases walk the corpus in
// order; otherwise tokens are drawn at random.
func runPhase(ctx context.Context, corpus []string, ops, concurrency int, sequential bool, verify verifyFunc) (phaseStats, error) {
	var (
		cursor    int64
		failures  int64
		latencies = make([]time.Duration, 0, ops)
		mu        sync.Mutex
	)

	g, ctx := errgroup.WithContext(ctx)
	start := time.Now()
	for w := 0; w < concurrency; w++ {
		g.Go(func() error {
			r := rand.New(rand.NewSource(time.Now().UnixNano() + int64(w)*7919))
			local := make([]time.Duration, 0, ops/concurrency+1)
			defer func() {
				mu.Lock()
				latencies = append(latencies, local...)
				mu.Unlock()
			}()
			for {
				i := int(atomic.AddInt64(&cursor, 1)) - 1
				if i >= ops {
					return nil
				}
				if err := ctx.Err(); err != nil {
					return err
				}
				idx := i
				if !sequential {
					idx = r.Intn(len(corpus))
				}
				t0 := time.Now()
				if err := verify(ctx, corpus[idx]); err != nil {
					atomic.AddInt64(&failures, 1)
				}
				local = append(local, time.Since(t0))
			}
		})
	}
	if err := g.Wait(); err != nil {
		return phaseStats{}, err
	}
	return computeStats(time.Since(start), latencies, failures), nil
}

type phaseStats struct {
	total    time.Duration
	ops      int
	failures int64
	p50      time.Duration
	p95      time.Duration
	p99      time.Duration
	opsPerS  float64
}

func computeStats(total time.Duration, samples []time.Duration, failures int64) phaseStats {
	if len(samples) == 0 {
		return phaseStats{total: total}
	}
	sort.Slice(samples, func(i, j int) bool { return samples[i] < samples[j] })
	return phaseStats{
		total:    total,
		ops:      len(samples),
		failures: failures,
		p50:      percentile(samples, 50),
		p95:      percentile(samples, 95),
		p99:      percentile(samples, 99),
		opsPerS:  float64(len(samples)) / total.Seconds(),
	}
}

func percentile(samples []time.Duration, p int) time.Duration {
	if len(samples) == 0 {
		return 0
	}
	if p <= 0 {
		return samples[0]
	}
	if p >= 100 {
		return samples[len(samples)-1]
	}
	idx := (len(samples) - 1) * p / 100
	return samples[idx]
}

func printStats(name string, s phaseStats) {
	fmt.Printf("%s: ops=%d rejected=%d total=%s ops/sec=%.0f p50=%s p95=%s p99=%s\n",
		name,
		s.ops,
		s.failures,
		s.total.Round(time.Millisecond),
		s.opsPerS,
		s.p50.Round(time.Microsecond),
		s.p95.Round(time.Microsecond),
		s.p99.Round(time.Microsecond),
	)
}
