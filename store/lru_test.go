package store

import (
	"errors"
	"runtime"
	"strconv"
	"sync"
	"testing"
	"time"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Unix(1_700_000_000, 0)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func byteWeigher(key string, value []byte) int64 {
	return int64(len(key) + len(value))
}

func newTestLRU(t *testing.T, cfg Config[[]byte]) *LRU[[]byte] {
	t.Helper()
	if cfg.Weigher == nil {
		cfg.Weigher = byteWeigher
	}
	l, err := NewLRU(cfg)
	if err != nil {
		t.Fatalf("new lru: %v", err)
	}
	t.Cleanup(func() { _ = l.Close() })
	return l
}

func TestLRUEvictionByWeight(t *testing.T) {
	// Each entry weighs 2; budget fits two.
	l := newTestLRU(t, Config[[]byte]{MaxWeight: 4})

	if err := l.Set("a", []byte("A"), 0); err != nil {
		t.Fatalf("set a: %v", err)
	}
	if err := l.Set("b", []byte("B"), 0); err != nil {
		t.Fatalf("set b: %v", err)
	}

	// Touch a so b becomes LRU.
	if _, ok := l.Get("a"); !ok {
		t.Fatal("expected a to exist")
	}

	// Insert c => should evict b.
	if err := l.Set("c", []byte("C"), 0); err != nil {
		t.Fatalf("set c: %v", err)
	}

	if l.Has("b") {
		t.Fatal("expected b to be evicted")
	}
	if !l.Has("a") {
		t.Fatal("expected a to remain")
	}
	if !l.Has("c") {
		t.Fatal("expected c to exist")
	}
	if got := l.Weight(); got != 4 {
		t.Fatalf("expected weight 4, got %d", got)
	}
}

func TestLRUHeavyEntryEvictsSeveral(t *testing.T) {
	l := newTestLRU(t, Config[[]byte]{MaxWeight: 10})

	for _, k := range []string{"a", "b", "c", "d", "e"} {
		if err := l.Set(k, []byte("x"), 0); err != nil {
			t.Fatalf("set %s: %v", k, err)
		}
	}
	if err := l.Set("big", []byte("0123456"), 0); err != nil {
		t.Fatalf("set big: %v", err)
	}

	// big weighs 10, so everything else has to go.
	if got := l.Keys(); len(got) != 1 || got[0] != "big" {
		t.Fatalf("expected only big to remain, got %v", got)
	}
	if got := l.Weight(); got != 10 {
		t.Fatalf("expected weight 10, got %d", got)
	}
}

func TestLRURejectsOversizedEntry(t *testing.T) {
	l := newTestLRU(t, Config[[]byte]{MaxWeight: 4})

	if err := l.Set("k", []byte("v"), 0); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := l.Set("k", []byte("way too large"), 0); !errors.Is(err, ErrTooLarge) {
		t.Fatalf("expected ErrTooLarge, got %v", err)
	}
	if l.Has("k") {
		t.Fatal("oversized overwrite must drop the previous value")
	}
	if got := l.Weight(); got != 0 {
		t.Fatalf("expected weight 0, got %d", got)
	}
}

func TestLRUOverwriteAdjustsWeight(t *testing.T) {
	l := newTestLRU(t, Config[[]byte]{MaxWeight: 100})

	_ = l.Set("k", []byte("12345"), 0)
	_ = l.Set("k", []byte("1"), 0)

	if got := l.Weight(); got != 2 {
		t.Fatalf("expected weight 2 after overwrite, got %d", got)
	}
	if got := l.Len(); got != 1 {
		t.Fatalf("expected 1 entry, got %d", got)
	}
}

func TestLRUDeadlineFollowsClock(t *testing.T) {
	clock := newFakeClock()
	l := newTestLRU(t, Config[[]byte]{MaxWeight: 100, Now: clock.Now})

	if err := l.Set("k", []byte("v"), 10*time.Second); err != nil {
		t.Fatalf("set: %v", err)
	}

	remaining, ok := l.TTL("k")
	if !ok || remaining != 10*time.Second {
		t.Fatalf("expected 10s TTL, got %v %v", remaining, ok)
	}

	clock.Advance(9 * time.Second)
	if _, ok := l.Get("k"); !ok {
		t.Fatal("expected k to exist before deadline")
	}

	// The deadline itself is already expired.
	clock.Advance(time.Second)
	if l.Has("k") {
		t.Fatal("expected k to be expired at its deadline")
	}
	if got := l.Len(); got != 0 {
		t.Fatalf("expected expired entry to be removed, got len %d", got)
	}
}

func TestLRUNoTTLReportsNoDeadline(t *testing.T) {
	l := newTestLRU(t, Config[[]byte]{MaxWeight: 100})
	_ = l.Set("k", []byte("v"), 0)

	if _, ok := l.TTL("k"); ok {
		t.Fatal("expected no deadline for ttl <= 0")
	}
	if _, ok := l.TTL("missing"); ok {
		t.Fatal("expected no deadline for a missing key")
	}
}

func TestLRUPressureEvictsOldestOnly(t *testing.T) {
	clock := newFakeClock()
	// Each entry weighs 2; budget fits two.
	l := newTestLRU(t, Config[[]byte]{MaxWeight: 4, Now: clock.Now})

	_ = l.Set("a", []byte("1"), 0)
	_ = l.Set("b", []byte("2"), time.Second)
	clock.Advance(2 * time.Second)

	// Pressure pops the LRU entry; the expired one waits for lazy expiry.
	_ = l.Set("c", []byte("3"), 0)

	if l.Has("a") {
		t.Fatal("expected the least recently used entry to be evicted")
	}
	if l.Has("b") {
		t.Fatal("expected the expired entry to be invisible")
	}
	if !l.Has("c") {
		t.Fatal("expected new entry")
	}
	if l.Weight() != 2 {
		t.Fatalf("expected weight 2 after lazy expiry, got %d", l.Weight())
	}
}

func TestLRUPressureDoesNotScan(t *testing.T) {
	const resident = 20000
	l := newTestLRU(t, Config[[]byte]{MaxWeight: resident, Weigher: func(string, []byte) int64 { return 1 }})
	for i := 0; i < resident; i++ {
		_ = l.Set(strconv.Itoa(i), nil, time.Hour)
	}

	const inserts = 100
	var before, after runtime.MemStats
	runtime.ReadMemStats(&before)
	for i := 0; i < inserts; i++ {
		_ = l.Set("hot-"+strconv.Itoa(i), nil, 0)
	}
	runtime.ReadMemStats(&after)

	// A key scan would allocate a resident-sized slice per insert.
	perInsert := (after.TotalAlloc - before.TotalAlloc) / inserts
	if perInsert > 4096 {
		t.Fatalf("expected bounded bytes per over-budget insert, got %d", perInsert)
	}
	if l.Len() != resident {
		t.Fatalf("expected %d entries, got %d", resident, l.Len())
	}
	if l.Has("0") {
		t.Fatal("expected the oldest entry to be evicted")
	}
}

func TestLRUSetUntil(t *testing.T) {
	clock := newFakeClock()
	l := newTestLRU(t, Config[[]byte]{MaxWeight: 100, Now: clock.Now})

	if err := l.SetUntil("past", []byte("v"), clock.Now()); !errors.Is(err, ErrExpired) {
		t.Fatalf("expected ErrExpired, got %v", err)
	}
	if l.Has("past") || l.Weight() != 0 {
		t.Fatal("expired deadline must not be stored")
	}

	if err := l.SetUntil("k", []byte("v"), clock.Now().Add(7*time.Second)); err != nil {
		t.Fatalf("set: %v", err)
	}
	clock.Advance(2 * time.Second)
	if d, ok := l.TTL("k"); !ok || d != 5*time.Second {
		t.Fatalf("expected 5s left, got %v %v", d, ok)
	}

	if err := l.SetUntil("k", []byte("v"), clock.Now().Add(-time.Second)); !errors.Is(err, ErrExpired) {
		t.Fatalf("expected ErrExpired on overwrite, got %v", err)
	}
	if l.Has("k") {
		t.Fatal("a rejected overwrite must not leave the old value behind")
	}
}

func TestLRUSweepRemovesWithoutAccess(t *testing.T) {
	clock := newFakeClock()
	l := newTestLRU(t, Config[[]byte]{MaxWeight: 100, Now: clock.Now, SweepInterval: 5 * time.Millisecond})

	if err := l.Set("ttl", []byte("v"), time.Second); err != nil {
		t.Fatalf("set: %v", err)
	}
	clock.Advance(2 * time.Second)

	// Wait until the sweep goroutine removes it. Use a deadline to avoid flakes.
	deadline := time.Now().Add(500 * time.Millisecond)
	for time.Now().Before(deadline) {
		if len(l.Keys()) == 0 {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("expected sweep to remove expired entry, keys=%v", l.Keys())
}

func TestLRUOnEvictReasons(t *testing.T) {
	clock := newFakeClock()
	reasons := map[string]Reason{}
	l := newTestLRU(t, Config[[]byte]{
		MaxWeight: 4,
		Now:       clock.Now,
		OnEvict: func(key string, _ []byte, reason Reason) {
			reasons[key] = reason
		},
	})

	_ = l.Set("a", []byte("1"), 0)
	_ = l.Set("b", []byte("2"), time.Second)
	_ = l.Set("a", []byte("3"), 0)
	if reasons["a"] != ReasonReplaced {
		t.Fatalf("expected replaced, got %v", reasons["a"])
	}

	clock.Advance(time.Second)
	_ = l.Has("b")
	if reasons["b"] != ReasonExpired {
		t.Fatalf("expected expired, got %v", reasons["b"])
	}

	_ = l.Set("c", []byte("4"), 0)
	_ = l.Set("d", []byte("5"), 0)
	if reasons["a"] != ReasonCapacity {
		t.Fatalf("expected capacity, got %v", reasons["a"])
	}

	l.Delete("c")
	if reasons["c"] != ReasonRemoved {
		t.Fatalf("expected removed, got %v", reasons["c"])
	}

	l.Purge()
	if reasons["d"] != ReasonPurged {
		t.Fatalf("expected purged, got %v", reasons["d"])
	}
	if l.Weight() != 0 || l.Len() != 0 {
		t.Fatalf("expected empty store after purge, weight=%d len=%d", l.Weight(), l.Len())
	}
}

func TestLRUConcurrentAccessKeepsBudget(t *testing.T) {
	l := newTestLRU(t, Config[[]byte]{MaxWeight: 64})

	var wg sync.WaitGroup
	for g := 0; g < 16; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 500; i++ {
				key := string(rune('a'+g)) + string(rune('a'+i%26))
				_ = l.Set(key, []byte("value"), 0)
				l.Get(key)
			}
		}(g)
	}
	wg.Wait()

	if got := l.Weight(); got > 64 {
		t.Fatalf("weight %d exceeds budget", got)
	}
}

func TestLRUCloseIdempotentAndPreventsWrites(t *testing.T) {
	l, err := NewLRU(Config[[]byte]{MaxWeight: 10, SweepInterval: 10 * time.Millisecond})
	if err != nil {
		t.Fatalf("new lru: %v", err)
	}

	if err := l.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := l.Close(); err != nil {
		t.Fatalf("close again: %v", err)
	}
	if err := l.Set("k", []byte("v"), 0); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
}

func TestNewLRURejectsInvalidBudget(t *testing.T) {
	if _, err := NewLRU(Config[[]byte]{}); !errors.Is(err, ErrInvalidBudget) {
		t.Fatalf("expected ErrInvalidBudget, got %v", err)
	}
}
