package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var durationBucketsMs = []float64{1, 5, 10, 20, 50, 100, 200, 500, 1000, 2000, 5000}

var (
	LookupsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "bookmap_lookups_total",
		Help: "Total number of lookups by scope kind and how they were answered",
	}, []string{"scope", "source"})
	LookupDurationMs = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "bookmap_lookup_duration_ms",
		Help:    "Lookup duration in milliseconds",
		Buckets: durationBucketsMs,
	}, []string{"scope"})
	EmptyResultsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "bookmap_empty_results_total",
		Help: "Lookups answered with an informational message instead of data",
	}, []string{"reason"})
	AvailabilityCacheTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "bookmap_availability_cache_total",
		Help: "Per-branch availability cache lookups by result",
	}, []string{"result"})
	AggregateCacheTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "bookmap_aggregate_cache_total",
		Help: "District aggregate cache lookups by result",
	}, []string{"result"})
	FanoutProbes = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "bookmap_fanout_probes",
		Help:    "Number of probes issued per fan-out run",
		Buckets: []float64{0, 1, 5, 10, 25, 50, 100, 200, 400},
	})
	ProbeRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "bookmap_probe_requests_total",
		Help: "Total availability probe calls",
	}, []string{"probe"})
	ProbeSuccessTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "bookmap_probe_success_total",
		Help: "Probe calls that returned an answer, by answer",
	}, []string{"probe", "available"})
	ProbeFailTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "bookmap_probe_fail_total",
		Help: "Probe calls that failed and were treated as unavailable",
	}, []string{"probe"})
	ProbeDurationMs = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "bookmap_probe_duration_ms",
		Help:    "Probe call duration in milliseconds",
		Buckets: durationBucketsMs,
	}, []string{"probe"})
	ProbeThrottleWaitMs = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "bookmap_probe_throttle_wait_ms",
		Help:    "Time spent waiting for the outbound rate limiter",
		Buckets: durationBucketsMs,
	})
	ProbeHealthy = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "bookmap_probe_healthy",
		Help: "1 when the last heartbeat of the availability service succeeded",
	}, []string{"probe"})
	ProbeHeartbeatTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "bookmap_probe_heartbeat_total",
		Help: "Probe heartbeat count by status",
	}, []string{"probe", "status"})
	ActiveSessions = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "bookmap_active_sessions",
		Help: "Number of live HTTP lookup sessions",
	})
)

func init() {
	prometheus.MustRegister(LookupsTotal)
	prometheus.MustRegister(LookupDurationMs)
	prometheus.MustRegister(EmptyResultsTotal)
	prometheus.MustRegister(AvailabilityCacheTotal)
	prometheus.MustRegister(AggregateCacheTotal)
	prometheus.MustRegister(FanoutProbes)
	prometheus.MustRegister(ProbeRequestsTotal)
	prometheus.MustRegister(ProbeSuccessTotal)
	prometheus.MustRegister(ProbeFailTotal)
	prometheus.MustRegister(ProbeDurationMs)
	prometheus.MustRegister(ProbeThrottleWaitMs)
	prometheus.MustRegister(ProbeHealthy)
	prometheus.MustRegister(ProbeHeartbeatTotal)
	prometheus.MustRegister(ActiveSessions)
}

// 文档注释：返回 Prometheus 指标处理器，由主入口挂载到 {API_BASE}/metrics
func Handler() http.Handler { return promhttp.Handler() }
