// 包 lookup：查询编排（去重短路 → 按区汇总缓存 → 范围解析 → 扇出探测）
package lookup

import (
	"context"
	"strings"
	"time"

	"bookmap/internal/availability"
	"bookmap/internal/branch"
	"bookmap/internal/logger"
	"bookmap/internal/metrics"
	"bookmap/internal/probe"
)

// Options：引擎参数
type Options struct {
	TTL         time.Duration
	Concurrency int
	Clock       availability.Clock
}

// Engine：目录、两级缓存与聚合器的共同持有者
// 背景：缓存按书目/分馆键控，与请求无关，多个会话共享同一引擎是安全的；测试中每个用例新建引擎即可得到隔离的缓存。
type Engine struct {
	dir        *branch.Directory
	avail      *availability.Cache
	aggregates *availability.AggregateCache
	aggregator *availability.Aggregator
	ttl        time.Duration
	now        availability.Clock
}

func NewEngine(dir *branch.Directory, p probe.Probe, opts Options) *Engine {
	if opts.TTL <= 0 {
		opts.TTL = availability.DefaultTTL
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	avail := availability.NewCache(opts.TTL, opts.Clock)
	aggs := availability.NewAggregateCache(opts.TTL, opts.Clock)
	return &Engine{
		dir:        dir,
		avail:      avail,
		aggregates: aggs,
		aggregator: availability.NewAggregator(p, avail, aggs, opts.Concurrency),
		ttl:        opts.TTL,
		now:        opts.Clock,
	}
}

func (e *Engine) Directory() *branch.Directory { return e.dir }

// NewSession：新会话拥有独立的去重标记，共享引擎缓存
func (e *Engine) NewSession() *Session {
	return &Session{e: e, dedup: NewDeduplicator(e.ttl, e.now)}
}

// Session：单个调用方的查询会话
// 约束：同一 (书目, 范围) 不可重叠调用；Lookup 永不返回错误，所有失败都降级为可展示的结果
type Session struct {
	e     *Engine
	dedup *Deduplicator
}

// Reset：清除去重标记，下一次查询必然重新计算（缓存仍然生效）
func (s *Session) Reset() { s.dedup.Reset() }

// Last：最近一次完成的查询
func (s *Session) Last() (bookID string, scope branch.Scope, fingerprint string, ok bool) {
	return s.dedup.Last()
}

// Lookup：查询书目在指定范围内的可借情况
func (s *Session) Lookup(ctx context.Context, bookID string, scope branch.Scope) Result {
	t0 := time.Now()
	bookID = strings.TrimSpace(bookID)
	res := s.lookup(ctx, bookID, scope)
	metrics.LookupsTotal.WithLabelValues(scope.Kind(), string(res.Source)).Inc()
	metrics.LookupDurationMs.WithLabelValues(scope.Kind()).Observe(float64(time.Since(t0).Milliseconds()))
	logger.L().Info("lookup_done",
		"book", bookID,
		"scope", scope.String(),
		"source", res.Source,
		"empty", res.Empty(),
		"message", res.Message,
		"duration_ms", time.Since(t0).Milliseconds(),
	)
	return res
}

func (s *Session) lookup(ctx context.Context, bookID string, scope branch.Scope) Result {
	if bookID == "" {
		metrics.EmptyResultsTotal.WithLabelValues("no_book").Inc()
		return s.finish(Result{Scope: scope, Message: MsgNoBook, Source: SourceInvalid}, false)
	}
	if r, ok := s.dedup.Current(bookID, scope); ok {
		logger.L().Debug("lookup_dedup_hit", "book", bookID, "scope", scope.String(), "fingerprint", r.Fingerprint)
		r.Source = SourceDedup
		return r
	}
	res := Result{BookID: bookID, Scope: scope}
	if scope.IsAll() {
		if counts, at, ok := s.e.aggregates.GetAt(bookID); ok {
			metrics.AggregateCacheTotal.WithLabelValues("hit").Inc()
			res.Counts = counts
			res.ObservedAt = at
			res.Source = SourceAggregateCache
			return s.finish(res, true)
		}
		metrics.AggregateCacheTotal.WithLabelValues("miss").Inc()
		out := s.e.aggregator.Run(ctx, bookID, branch.Resolve(scope, s.e.dir), scope)
		res.Counts = out.Counts
		res.ObservedAt = out.ObservedAt
		res.Source = SourceFanout
		return s.finish(res, true)
	}

	candidates := branch.Resolve(scope, s.e.dir)
	if len(candidates) == 0 {
		logger.L().Info("lookup_empty_scope", "book", bookID, "district", scope.DistrictName())
		metrics.EmptyResultsTotal.WithLabelValues("no_branch_data").Inc()
		res.Message = MsgNoBranchData
		res.Source = SourceEmptyScope
		return s.finish(res, true)
	}
	out := s.e.aggregator.Run(ctx, bookID, candidates, scope)
	res.ObservedAt = out.ObservedAt
	res.Branches = make([]branch.Branch, 0, len(candidates))
	for _, b := range candidates {
		if out.Available[b.Code] {
			res.Branches = append(res.Branches, b)
		}
	}
	res.Source = SourceFanout
	return s.finish(res, true)
}

// finish：补齐提示信息、摘要与完成时间，并按需更新去重标记
func (s *Session) finish(res Result, record bool) Result {
	res.ScopeName = res.Scope.String()
	if res.Message == "" && res.Empty() {
		metrics.EmptyResultsTotal.WithLabelValues("none_available").Inc()
		res.Message = MsgNoneAvailable
	}
	res.CompletedAt = s.e.now()
	if res.ObservedAt.IsZero() {
		res.ObservedAt = res.CompletedAt
	}
	res.Fingerprint = fingerprint(res)
	if record {
		s.dedup.Record(res.BookID, res.Scope, res)
	}
	return res
}
