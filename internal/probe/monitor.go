package probe

import (
	"context"
	"sync"
	"time"

	"bookmap/internal/logger"
	"bookmap/internal/metrics"
)

// 文档注释：外部服务健康监视
// 背景：周期调用 Heartbeat 记录健康状态与指标；不健康时查询照常进行（失败按不可借处理），仅用于观测与 /health 输出。
// 约束：默认周期 30s；ctx 取消时停止；状态读写线程安全。
type Monitor struct {
	p        Probe
	interval time.Duration

	mu      sync.RWMutex
	healthy bool
	last    time.Time
	lastErr error
}

func NewMonitor(p Probe, interval time.Duration) *Monitor {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &Monitor{p: p, interval: interval, healthy: true}
}

// Start：立即执行一次心跳，之后按周期执行
func (m *Monitor) Start(ctx context.Context) {
	m.beat(ctx)
	t := time.NewTicker(m.interval)
	go func() {
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				m.beat(ctx)
			}
		}
	}()
}

func (m *Monitor) beat(ctx context.Context) {
	name := m.p.Name()
	hctx, cancel := context.WithTimeout(ctx, m.interval)
	defer cancel()
	err := heartbeat(hctx, m.p)
	m.mu.Lock()
	m.healthy = err == nil
	m.last = time.Now()
	m.lastErr = err
	m.mu.Unlock()
	if err != nil {
		logger.L().Warn("probe_heartbeat_fail", "probe", name, "err", err)
		metrics.ProbeHeartbeatTotal.WithLabelValues(name, "fail").Inc()
		metrics.ProbeHealthy.WithLabelValues(name).Set(0)
		return
	}
	logger.L().Debug("probe_heartbeat_ok", "probe", name)
	metrics.ProbeHeartbeatTotal.WithLabelValues(name, "ok").Inc()
	metrics.ProbeHealthy.WithLabelValues(name).Set(1)
}

// Status：最近一次心跳结果
type Status struct {
	Probe   string    `json:"probe"`
	Healthy bool      `json:"healthy"`
	Checked time.Time `json:"checked"`
	Error   string    `json:"error,omitempty"`
}

func (m *Monitor) Status() Status {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s := Status{Probe: m.p.Name(), Healthy: m.healthy, Checked: m.last}
	if m.lastErr != nil {
		s.Error = m.lastErr.Error()
	}
	return s
}
