package middleware

import (
	"net/http"

	"bookmap/internal/logger"
	"bookmap/internal/ratelimit"
)

// 文档注释：入口限流中间件（每秒）
// 背景：查询接口会触发对外部服务的批量探测，入口限速可以避免突发流量把外部配额耗尽。
// 约束：不排队，超额直接返回 429；qps<=0 时不包装。
func RateLimit(next http.Handler, qps int) http.Handler {
	if qps <= 0 {
		return next
	}
	tb := ratelimit.NewTokenBucket(qps)
	logger.L().Info("api_rate_limit_enabled", "qps", qps)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !tb.Allow() {
			logger.L().Debug("api_rate_limited", "path", r.URL.Path, "remote", r.RemoteAddr)
			w.Header().Set("retry-after", "1")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}
