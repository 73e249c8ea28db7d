package availability

import (
	"context"
	"fmt"
	"sync"
	"time"

	"bookmap/internal/branch"
	"bookmap/internal/logger"
	"bookmap/internal/metrics"
	"bookmap/internal/probe"

	"golang.org/x/sync/errgroup"
)

// Outcome：一次扇出运行的结果
// Available 覆盖传入的全部分馆；Counts 仅在全地区范围时非空；
// ObservedAt 为参与本次结果的最旧逐馆探测时间（无分馆时为零值）
type Outcome struct {
	Available  map[string]bool
	Counts     Counts
	ObservedAt time.Time
	CacheHits  int
	Probed     int
	Failed     int
}

// Aggregator：先查逐馆缓存，未命中的分馆并发探测后回填，再按需汇总
// 约束：
// 1) 每个未命中分馆恰好探测一次，不重试；失败按不可借处理且不影响其他探测；
// 2) 并发上限 limit<=0 表示不限；
// 3) 探测不随调用方 ctx 取消而中断，已启动的运行必须完整结束。
type Aggregator struct {
	probe probe.Probe
	avail *Cache
	agg   *AggregateCache
	limit int
}

func NewAggregator(p probe.Probe, avail *Cache, agg *AggregateCache, limit int) *Aggregator {
	return &Aggregator{probe: p, avail: avail, agg: agg, limit: limit}
}

// Run：对 branches 执行一次扇出；scope 为全地区时同时写入按区汇总缓存
func (a *Aggregator) Run(ctx context.Context, bookID string, branches []branch.Branch, scope branch.Scope) Outcome {
	out := Outcome{Available: make(map[string]bool, len(branches))}
	if len(branches) == 0 {
		if scope.IsAll() {
			out.Counts = Counts{}
		}
		return out
	}
	t0 := time.Now()
	var misses []branch.Branch
	for _, b := range branches {
		if ok, at, fresh := a.avail.GetAt(bookID, b.Code); fresh {
			out.Available[b.Code] = ok
			out.ObservedAt = oldest(out.ObservedAt, at)
			out.CacheHits++
			continue
		}
		misses = append(misses, b)
	}
	metrics.AvailabilityCacheTotal.WithLabelValues("hit").Add(float64(out.CacheHits))
	metrics.AvailabilityCacheTotal.WithLabelValues("miss").Add(float64(len(misses)))
	logger.L().Debug("fanout_begin", "book", bookID, "scope", scope.String(), "branches", len(branches), "cache_hits", out.CacheHits, "probes", len(misses))

	if len(misses) > 0 {
		failed, at := a.probeAll(ctx, bookID, misses, out.Available)
		out.Failed = failed
		out.ObservedAt = oldest(out.ObservedAt, at)
		out.Probed = len(misses)
	}
	metrics.FanoutProbes.Observe(float64(out.Probed))

	if scope.IsAll() {
		out.Counts = fold(branches, out.Available)
		a.agg.PutAt(bookID, out.Counts, out.ObservedAt)
	}
	logger.L().Debug("fanout_end", "book", bookID, "scope", scope.String(), "probed", out.Probed, "failed", out.Failed, "duration_ms", time.Since(t0).Milliseconds())
	return out
}

// probeAll：并发探测并把结果写入 into；返回失败数与最早的写入时间
func (a *Aggregator) probeAll(ctx context.Context, bookID string, bs []branch.Branch, into map[string]bool) (int, time.Time) {
	pctx := context.WithoutCancel(ctx)
	var (
		g      errgroup.Group
		mu     sync.Mutex
		failed int
		first  time.Time
	)
	if a.limit > 0 {
		g.SetLimit(a.limit)
	}
	for _, b := range bs {
		code := b.Code
		g.Go(func() error {
			ok, err := a.check(pctx, code, bookID)
			if err != nil {
				ok = false
			}
			at := a.avail.Put(bookID, code, ok)
			mu.Lock()
			into[code] = ok
			first = oldest(first, at)
			if err != nil {
				failed++
			}
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return failed, first
}

// oldest：较早的时间；零值视为未设置
func oldest(cur, t time.Time) time.Time {
	if cur.IsZero() || t.Before(cur) {
		return t
	}
	return cur
}

// check：隔离单次探测的 panic，使其与普通失败等价
func (a *Aggregator) check(ctx context.Context, code, bookID string) (ok bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			logger.L().Error("probe_panic", "branch", code, "book", bookID, "panic", r)
			ok, err = false, fmt.Errorf("probe panic: %v", r)
		}
	}()
	return a.probe.Check(ctx, code, bookID)
}

// fold：按区计数；范围内出现的每个区都有条目，没有可借分馆的区记 0
func fold(branches []branch.Branch, available map[string]bool) Counts {
	c := make(Counts)
	for _, b := range branches {
		if _, ok := c[b.District]; !ok {
			c[b.District] = 0
		}
		if available[b.Code] {
			c[b.District]++
		}
	}
	return c
}
