// 程序入口：仅负责读取配置、初始化依赖并启动服务；API 注册在 internal/api 以便扩展
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"bookmap/internal/api"
	"bookmap/internal/branch"
	"bookmap/internal/config"
	"bookmap/internal/logger"
	"bookmap/internal/lookup"
	"bookmap/internal/metrics"
	"bookmap/internal/middleware"
	"bookmap/internal/migrate"
	"bookmap/internal/probe"
	"bookmap/internal/ratelimit"
	"bookmap/internal/store"
	"bookmap/internal/utils"
	"bookmap/internal/version"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.L().Error("config_error", "err", err)
		os.Exit(1)
	}
	l := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	l.Debug("log_init_ok", "commit", version.Commit)
	l.Debug("config_api_base", "base", cfg.APIBase)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dir, err := loadDirectory(ctx, cfg)
	if err != nil {
		l.Error("branch_directory_error", "source", cfg.BranchSource, "err", err)
		os.Exit(1)
	}

	rc := utils.OpenRedis(cfg.Redis)
	if rc == nil {
		l.Info("redis_disabled")
	} else {
		defer rc.Close()
		if err := rc.Ping(ctx).Err(); err != nil {
			l.Error("redis_ping_error", "err", err)
		} else {
			l.Info("redis_ping_ok")
		}
	}

	// 文档注释：探测链路
	// 背景：最内层为 PROBE_KIND 选定的服务客户端，外层依次为出站限速与指标日志。
	base, err := probe.New(cfg.ProbeKind, cfg.ProbeEndpoint, cfg.ProbeAuthKey, cfg.ProbeTimeout, cfg.ProbeRetryMax)
	if err != nil {
		l.Error("probe_config_error", "err", err)
		os.Exit(1)
	}
	if base.Name() == probe.KindData4Library && cfg.ProbeAuthKey == "" {
		l.Warn("probe_auth_key_missing", "probe", base.Name())
	}
	var lim ratelimit.Limiter
	if cfg.ProbeRateQPS > 0 {
		lim = ratelimit.New(rc, "bookmap:probe_rate", cfg.ProbeRateQPS)
	}
	p := probe.Instrumented(probe.Limited(base, lim))
	l.Info("probe_ready", "probe", p.Name(), "endpoint", cfg.ProbeEndpoint, "rate_qps", cfg.ProbeRateQPS)

	mon := probe.NewMonitor(p, cfg.ProbeHeartbeat)
	mon.Start(ctx)

	engine := lookup.NewEngine(dir, p, lookup.Options{TTL: cfg.AvailabilityTTL, Concurrency: cfg.ProbeConcurrency})
	sessions := api.NewSessions(engine, cfg.SessionIdleTTL)
	sessions.Start(ctx)
	l.Info("lookup_engine_ready", "ttl", cfg.AvailabilityTTL.String(), "concurrency", cfg.ProbeConcurrency, "branches", dir.Len())

	mux := http.NewServeMux()
	apiMux := api.BuildRoutes(engine, sessions, mon)
	mux.Handle(cfg.APIBase+"/", http.StripPrefix(cfg.APIBase, apiMux))
	mux.Handle(cfg.APIBase+"/metrics", metrics.Handler())

	var handler http.Handler = mux
	if cfg.RateLimitEnabled {
		handler = middleware.RateLimit(handler, cfg.RateLimitQPS)
	}
	handler = logger.AccessMiddleware(l, api.SessionCookie)(handler)
	s := &http.Server{Addr: cfg.Addr, Handler: handler, ReadHeaderTimeout: 10 * time.Second}

	go func() {
		<-ctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = s.Shutdown(sctx)
	}()
	l.Info("listening", "addr", cfg.Addr)
	if err := s.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		l.Error("listen_error", "err", err)
		os.Exit(1)
	}
	l.Info("shutdown_ok")
}

// loadDirectory：按 BRANCH_SOURCE 从 JSON 文件或 Postgres 加载分馆目录
func loadDirectory(ctx context.Context, cfg config.Config) (*branch.Directory, error) {
	if cfg.BranchSource != "postgres" {
		return branch.LoadFile(cfg.BranchFile)
	}
	db, err := utils.OpenPostgres(cfg.Postgres)
	if err != nil {
		return nil, err
	}
	st := store.AttachDB(db)
	defer st.Close()
	if err := db.PingContext(ctx); err != nil {
		return nil, err
	}
	logger.L().Info("db_ping_ok")
	if err := migrate.EnsureSchema(ctx, db); err != nil {
		return nil, err
	}
	return st.LoadDirectory(ctx)
}
