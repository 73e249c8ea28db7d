package availability

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"bookmap/internal/branch"
	"bookmap/internal/probe"

	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock { return &fakeClock{now: time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC)} }

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

type mockProbe struct {
	answers map[string]bool
	fail    map[string]bool
	delay   time.Duration

	calls    atomic.Int32
	inflight atomic.Int32
	peak     atomic.Int32
}

func (m *mockProbe) Name() string { return "mock" }

func (m *mockProbe) Check(ctx context.Context, branchCode, bookID string) (bool, error) {
	m.calls.Add(1)
	n := m.inflight.Add(1)
	defer m.inflight.Add(-1)
	for {
		p := m.peak.Load()
		if n <= p || m.peak.CompareAndSwap(p, n) {
			break
		}
	}
	if m.delay > 0 {
		time.Sleep(m.delay)
	}
	if m.fail[branchCode] {
		return false, errors.New("service unavailable")
	}
	return m.answers[branchCode], nil
}

func branches() []branch.Branch {
	return []branch.Branch{
		{Code: "A", District: "Gangnam"},
		{Code: "B", District: "Gangnam"},
		{Code: "C", District: "Nowon"},
	}
}

func TestCacheTTL(t *testing.T) {
	clk := newFakeClock()
	c := NewCache(10*time.Minute, clk.Now)

	_, ok := c.Get("book1", "A")
	require.False(t, ok)

	c.Put("book1", "A", true)
	c.Put("book1", "B", false)
	v, ok := c.Get("book1", "A")
	require.True(t, ok)
	require.True(t, v)
	v, ok = c.Get("book1", "B")
	require.True(t, ok)
	require.False(t, v)
	_, ok = c.Get("book2", "A")
	require.False(t, ok)

	clk.Advance(10*time.Minute - time.Nanosecond)
	_, ok = c.Get("book1", "A")
	require.True(t, ok)

	clk.Advance(time.Nanosecond)
	_, ok = c.Get("book1", "A")
	require.False(t, ok, "entry at exactly ttl must be stale")
	require.Equal(t, 2, c.Len(), "stale entries are not deleted")

	c.Put("book1", "A", false)
	v, ok = c.Get("book1", "A")
	require.True(t, ok)
	require.False(t, v)
}

func TestCacheDefaults(t *testing.T) {
	c := NewCache(0, nil)
	require.Equal(t, DefaultTTL, c.TTL())
	c.Put("b", "x", true)
	v, ok := c.Get("b", "x")
	require.True(t, ok)
	require.True(t, v)
}

func TestAggregateCache(t *testing.T) {
	clk := newFakeClock()
	c := NewAggregateCache(time.Minute, clk.Now)
	counts := Counts{"Gangnam": 1, "Nowon": 0}
	c.Put("book1", counts)

	got, ok := c.Get("book1")
	require.True(t, ok)
	require.Equal(t, 1, got.Total())
	require.Equal(t, []string{"Gangnam", "Nowon"}, got.Districts())
	got["Mapo"] = 3
	require.Equal(t, 3, counts["Mapo"], "the cached object is returned as-is")

	clk.Advance(time.Minute)
	_, ok = c.Get("book1")
	require.False(t, ok)
	require.Equal(t, 1, c.Len())
}

func newAggregator(p probe.Probe, clk *fakeClock, limit int) (*Aggregator, *Cache, *AggregateCache) {
	avail := NewCache(DefaultTTL, clk.Now)
	agg := NewAggregateCache(DefaultTTL, clk.Now)
	return NewAggregator(p, avail, agg, limit), avail, agg
}

func TestRunAllDistricts(t *testing.T) {
	clk := newFakeClock()
	p := &mockProbe{answers: map[string]bool{"A": true, "B": false, "C": true}}
	a, avail, agg := newAggregator(p, clk, 0)

	out := a.Run(context.Background(), "book1", branches(), branch.AllDistricts)
	require.Equal(t, map[string]bool{"A": true, "B": false, "C": true}, out.Available)
	require.Equal(t, Counts{"Gangnam": 1, "Nowon": 1}, out.Counts)
	require.Equal(t, 3, out.Probed)
	require.Zero(t, out.CacheHits)
	require.EqualValues(t, 3, p.calls.Load())

	cached, ok := agg.Get("book1")
	require.True(t, ok)
	require.Equal(t, out.Counts, cached)
	require.Equal(t, 3, avail.Len())
}

func TestRunDistrictDoesNotWriteAggregate(t *testing.T) {
	clk := newFakeClock()
	p := &mockProbe{answers: map[string]bool{"A": true}}
	a, _, agg := newAggregator(p, clk, 0)

	bs := branch.Resolve(branch.District("Gangnam"), mustDir(t))
	out := a.Run(context.Background(), "book1", bs, branch.District("Gangnam"))
	require.Nil(t, out.Counts)
	require.Equal(t, map[string]bool{"A": true, "B": false}, out.Available)
	require.Zero(t, agg.Len())
}

func TestRunUsesFreshCacheAndReprobesStale(t *testing.T) {
	clk := newFakeClock()
	p := &mockProbe{answers: map[string]bool{"A": true, "B": false, "C": true}}
	a, avail, _ := newAggregator(p, clk, 0)

	avail.Put("book1", "A", false)
	out := a.Run(context.Background(), "book1", branches(), branch.AllDistricts)
	require.Equal(t, 1, out.CacheHits)
	require.Equal(t, 2, out.Probed)
	require.False(t, out.Available["A"], "fresh cache entry wins over the service")
	require.Equal(t, Counts{"Gangnam": 0, "Nowon": 1}, out.Counts)

	out = a.Run(context.Background(), "book1", branches(), branch.AllDistricts)
	require.Equal(t, 3, out.CacheHits)
	require.Zero(t, out.Probed)
	require.EqualValues(t, 2, p.calls.Load())

	clk.Advance(DefaultTTL)
	out = a.Run(context.Background(), "book1", branches(), branch.AllDistricts)
	require.Equal(t, 3, out.Probed)
	require.True(t, out.Available["A"])
	require.EqualValues(t, 5, p.calls.Load())
}

func TestRunFailuresDegradeToUnavailable(t *testing.T) {
	clk := newFakeClock()
	p := &mockProbe{
		answers: map[string]bool{"A": true, "B": true, "C": true},
		fail:    map[string]bool{"B": true},
	}
	a, avail, _ := newAggregator(p, clk, 0)

	out := a.Run(context.Background(), "book1", branches(), branch.AllDistricts)
	require.Equal(t, 1, out.Failed)
	require.Equal(t, map[string]bool{"A": true, "B": false, "C": true}, out.Available)
	require.Equal(t, 2, out.Counts.Total())

	v, ok := avail.Get("book1", "B")
	require.True(t, ok, "failed probes are cached too")
	require.False(t, v)
}

func TestRunIsolatesPanics(t *testing.T) {
	clk := newFakeClock()
	p := probe.Func(func(ctx context.Context, branchCode, bookID string) (bool, error) {
		if branchCode == "B" {
			panic("bad branch")
		}
		return true, nil
	})
	a, _, _ := newAggregator(p, clk, 2)

	out := a.Run(context.Background(), "book1", branches(), branch.AllDistricts)
	require.Equal(t, 1, out.Failed)
	require.Equal(t, Counts{"Gangnam": 1, "Nowon": 1}, out.Counts)
}

func TestRunEmpty(t *testing.T) {
	clk := newFakeClock()
	p := &mockProbe{}
	a, _, agg := newAggregator(p, clk, 0)

	out := a.Run(context.Background(), "book1", nil, branch.District("Mapo"))
	require.Empty(t, out.Available)
	require.Nil(t, out.Counts)
	require.Zero(t, p.calls.Load())
	require.Zero(t, agg.Len())
}

func TestRunRespectsConcurrencyLimit(t *testing.T) {
	clk := newFakeClock()
	var bs []branch.Branch
	answers := map[string]bool{}
	for i := 0; i < 20; i++ {
		code := string(rune('a' + i))
		bs = append(bs, branch.Branch{Code: code, District: "D"})
		answers[code] = i%2 == 0
	}
	p := &mockProbe{answers: answers, delay: 20 * time.Millisecond}
	a, _, _ := newAggregator(p, clk, 3)

	out := a.Run(context.Background(), "book1", bs, branch.AllDistricts)
	require.Equal(t, 20, out.Probed)
	require.Equal(t, Counts{"D": 10}, out.Counts)
	require.LessOrEqual(t, p.peak.Load(), int32(3))
	require.Greater(t, p.peak.Load(), int32(1))
}

func TestRunUnboundedRunsAllAtOnce(t *testing.T) {
	clk := newFakeClock()
	var bs []branch.Branch
	for i := 0; i < 10; i++ {
		bs = append(bs, branch.Branch{Code: string(rune('a' + i)), District: "D"})
	}
	p := &mockProbe{delay: 50 * time.Millisecond}
	a, _, _ := newAggregator(p, clk, 0)

	a.Run(context.Background(), "book1", bs, branch.AllDistricts)
	require.Greater(t, p.peak.Load(), int32(3))
}

func TestRunIgnoresCallerCancellation(t *testing.T) {
	clk := newFakeClock()
	var sawCancel atomic.Bool
	p := probe.Func(func(ctx context.Context, branchCode, bookID string) (bool, error) {
		if ctx.Err() != nil {
			sawCancel.Store(true)
		}
		return true, nil
	})
	a, _, _ := newAggregator(p, clk, 1)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	out := a.Run(ctx, "book1", branches(), branch.AllDistricts)
	require.Equal(t, 3, out.Probed)
	require.Equal(t, 3, out.Counts.Total())
	require.False(t, sawCancel.Load())
}

func mustDir(t *testing.T) *branch.Directory {
	t.Helper()
	d, err := branch.NewDirectory(branches())
	require.NoError(t, err)
	return d
}

func TestRunAggregateExpiresWithOldestInput(t *testing.T) {
	clk := newFakeClock()
	t0 := clk.Now()
	p := &mockProbe{answers: map[string]bool{"C": true}}
	a, avail, agg := newAggregator(p, clk, 0)

	avail.Put("book1", "A", true)
	avail.Put("book1", "B", false)
	clk.Advance(9 * time.Minute)

	out := a.Run(context.Background(), "book1", branches(), branch.AllDistricts)
	require.Equal(t, 2, out.CacheHits)
	require.Equal(t, 1, out.Probed)
	require.True(t, out.ObservedAt.Equal(t0), "outcome is as old as its oldest cached input")

	counts, at, ok := agg.GetAt("book1")
	require.True(t, ok)
	require.True(t, at.Equal(t0))
	require.Equal(t, Counts{"Gangnam": 1, "Nowon": 1}, counts)

	clk.Advance(time.Minute)
	_, ok = agg.Get("book1")
	require.False(t, ok, "aggregate expires together with the per-branch entries it was folded from")
	_, ok = avail.Get("book1", "A")
	require.False(t, ok)
	_, ok = avail.Get("book1", "C")
	require.True(t, ok)
}

func TestRunObservedAtOfNewChecks(t *testing.T) {
	clk := newFakeClock()
	p := &mockProbe{answers: map[string]bool{"A": true}}
	a, avail, _ := newAggregator(p, clk, 0)

	out := a.Run(context.Background(), "book1", branches(), branch.District("Gangnam"))
	require.True(t, out.ObservedAt.Equal(clk.Now()))
	_, at, ok := avail.GetAt("book1", "A")
	require.True(t, ok)
	require.True(t, at.Equal(clk.Now()))

	empty := a.Run(context.Background(), "book1", nil, branch.AllDistricts)
	require.True(t, empty.ObservedAt.IsZero())
}
