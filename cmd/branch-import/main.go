// branch-import：把分馆 JSON 文件导入 Postgres（_library_branches），可选删除文件中不存在的分馆
package main

import (
	"context"
	"fmt"
	"os"

	"bookmap/internal/branch"
	"bookmap/internal/config"
	"bookmap/internal/logger"
	"bookmap/internal/migrate"
	"bookmap/internal/store"
	"bookmap/internal/utils"

	"github.com/spf13/pflag"
)

func main() {
	var (
		file  string
		prune bool
	)
	pflag.StringVar(&file, "file", "", "branch JSON file (defaults to BRANCH_FILE)")
	pflag.BoolVar(&prune, "prune", false, "delete branches that are not present in the file")
	pflag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	logger.Setup(cfg.LogLevel, cfg.LogFormat)
	if file == "" {
		file = cfg.BranchFile
	}
	if err := run(context.Background(), cfg, file, prune); err != nil {
		logger.L().Error("branch_import_error", "file", file, "err", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, file string, prune bool) error {
	dir, err := branch.LoadFile(file)
	if err != nil {
		return err
	}
	db, err := utils.OpenPostgres(cfg.Postgres)
	if err != nil {
		return err
	}
	st := store.AttachDB(db)
	defer st.Close()
	if err := migrate.EnsureSchema(ctx, db); err != nil {
		return err
	}
	bs := dir.All()
	n, err := st.UpsertBranches(ctx, bs)
	if err != nil {
		return err
	}
	logger.L().Info("branch_import_upserted", "count", n)
	if prune {
		codes := make([]string, 0, len(bs))
		for _, b := range bs {
			codes = append(codes, b.Code)
		}
		removed, err := st.PruneExcept(ctx, codes)
		if err != nil {
			return err
		}
		logger.L().Info("branch_import_pruned", "count", removed)
	}
	return nil
}
