// bookmap-check：命令行单次查询，输出 JSON 结果；与服务共用配置与探测链路
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"bookmap/internal/branch"
	"bookmap/internal/config"
	"bookmap/internal/logger"
	"bookmap/internal/lookup"
	"bookmap/internal/probe"
	"bookmap/internal/ratelimit"

	"github.com/spf13/pflag"
)

func main() {
	var (
		book     string
		district string
		file     string
	)
	pflag.StringVar(&book, "book", "", "ISBN-13 of the book to look up")
	pflag.StringVar(&district, "district", "all", "district name, or all")
	pflag.StringVar(&file, "branches", "", "branch JSON file (defaults to BRANCH_FILE)")
	pflag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	logger.SetupWriter(os.Stderr, cfg.LogLevel, cfg.LogFormat)
	if file == "" {
		file = cfg.BranchFile
	}
	dir, err := branch.LoadFile(file)
	if err != nil {
		logger.L().Error("branch_directory_error", "err", err)
		os.Exit(1)
	}

	base, err := probe.New(cfg.ProbeKind, cfg.ProbeEndpoint, cfg.ProbeAuthKey, cfg.ProbeTimeout, cfg.ProbeRetryMax)
	if err != nil {
		logger.L().Error("probe_config_error", "err", err)
		os.Exit(1)
	}
	var lim ratelimit.Limiter
	if cfg.ProbeRateQPS > 0 {
		lim = ratelimit.New(nil, "", cfg.ProbeRateQPS)
	}
	p := probe.Instrumented(probe.Limited(base, lim))
	e := lookup.NewEngine(dir, p, lookup.Options{TTL: cfg.AvailabilityTTL, Concurrency: cfg.ProbeConcurrency})
	res := e.NewSession().Lookup(context.Background(), book, branch.ParseScope(district))

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(res)
	if res.Source == lookup.SourceInvalid {
		os.Exit(2)
	}
}
