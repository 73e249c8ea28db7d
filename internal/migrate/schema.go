package migrate

import (
	"context"
	"database/sql"

	"bookmap/internal/logger"
)

// 背景：首次运行自动创建分馆目录表；使用 IF NOT EXISTS，重复执行无副作用
// 约束：仅存放分馆目录，馆藏可用性属于会话内缓存，不落库
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS _library_branches (
            code TEXT PRIMARY KEY,
            name TEXT NOT NULL DEFAULT '',
            district TEXT NOT NULL,
            lat DOUBLE PRECISION NOT NULL DEFAULT 0,
            lng DOUBLE PRECISION NOT NULL DEFAULT 0,
            address TEXT NOT NULL DEFAULT '',
            updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
        )`,
		`CREATE INDEX IF NOT EXISTS idx_library_branches_district ON _library_branches(district)`,
	}
	for i, s := range stmts {
		logger.L().Debug("schema_exec", "idx", i)
		if _, err := db.ExecContext(ctx, s); err != nil {
			return err
		}
	}
	logger.L().Debug("schema_done")
	return nil
}
