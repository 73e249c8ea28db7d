package probe

import (
	"context"
	"strconv"
	"time"

	"bookmap/internal/logger"
	"bookmap/internal/metrics"
	"bookmap/internal/ratelimit"
)

// limited：在每次调用前向限流器申请配额
type limited struct {
	Probe
	lim ratelimit.Limiter
}

// Limited：包装限流；lim 为 nil 时原样返回
func Limited(p Probe, lim ratelimit.Limiter) Probe {
	if lim == nil {
		return p
	}
	return &limited{Probe: p, lim: lim}
}

func (l *limited) Check(ctx context.Context, branchCode, bookID string) (bool, error) {
	t0 := time.Now()
	if err := l.lim.Wait(ctx); err != nil {
		return false, err
	}
	metrics.ProbeThrottleWaitMs.Observe(float64(time.Since(t0).Milliseconds()))
	return l.Probe.Check(ctx, branchCode, bookID)
}

func (l *limited) Heartbeat(ctx context.Context) error { return heartbeat(ctx, l.Probe) }

// instrumented：记录调用次数、结果与耗时
type instrumented struct {
	Probe
}

func Instrumented(p Probe) Probe { return &instrumented{Probe: p} }

func (i *instrumented) Check(ctx context.Context, branchCode, bookID string) (bool, error) {
	name := i.Probe.Name()
	t0 := time.Now()
	metrics.ProbeRequestsTotal.WithLabelValues(name).Inc()
	ok, err := i.Probe.Check(ctx, branchCode, bookID)
	ms := time.Since(t0).Milliseconds()
	metrics.ProbeDurationMs.WithLabelValues(name).Observe(float64(ms))
	if err != nil {
		metrics.ProbeFailTotal.WithLabelValues(name).Inc()
		logger.L().Debug("probe_fail", "probe", name, "branch", branchCode, "book", bookID, "err", err, "duration_ms", ms)
		return false, err
	}
	metrics.ProbeSuccessTotal.WithLabelValues(name, strconv.FormatBool(ok)).Inc()
	logger.L().Debug("probe_ok", "probe", name, "branch", branchCode, "book", bookID, "available", ok, "duration_ms", ms)
	return ok, nil
}

func (i *instrumented) Heartbeat(ctx context.Context) error { return heartbeat(ctx, i.Probe) }

// heartbeat：被包装实现不支持心跳时视为健康
func heartbeat(ctx context.Context, p Probe) error {
	if hc, ok := p.(HealthChecker); ok {
		return hc.Heartbeat(ctx)
	}
	return nil
}
