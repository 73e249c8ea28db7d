package logger

import (
	"context"
	"log/slog"
	"net/http"
	"time"
)

// LookupSourceHeader：查询接口回写结果来源（fanout/dedup/aggregate_cache…）的响应头，访问日志据此记录 source
const LookupSourceHeader = "x-lookup-source"

type recorder struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (w *recorder) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *recorder) Write(b []byte) (int, error) {
	n, err := w.ResponseWriter.Write(b)
	w.bytes += n
	return n, err
}

// AccessMiddleware：访问日志
// 约束：不读取请求体；sessionCookie 非空时记录请求携带的会话标识（新会话在 session_created 事件中记录）；
// 5xx 以 warn 级别输出，其余为 debug。
func AccessMiddleware(l *slog.Logger, sessionCookie string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rec := &recorder{ResponseWriter: w, status: http.StatusOK}
			start := time.Now()
			next.ServeHTTP(rec, r)
			attrs := []slog.Attr{
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.String("query", r.URL.RawQuery),
				slog.Int("status", rec.status),
				slog.Int("bytes", rec.bytes),
				slog.Int64("duration_ms", time.Since(start).Milliseconds()),
				slog.String("remote", r.RemoteAddr),
			}
			if sessionCookie != "" {
				if c, err := r.Cookie(sessionCookie); err == nil {
					attrs = append(attrs, slog.String("session", c.Value))
				}
			}
			if src := rec.Header().Get(LookupSourceHeader); src != "" {
				attrs = append(attrs, slog.String("source", src))
			}
			level := slog.LevelDebug
			if rec.status >= http.StatusInternalServerError {
				level = slog.LevelWarn
			}
			l.LogAttrs(context.Background(), level, "http_access", attrs...)
		})
	}
}
