// 包 store：PostgreSQL 分馆目录数据源，仅在启动加载与导入工具中使用，不在查询热路径上
package store

import (
	"context"
	"database/sql"
	"fmt"

	"bookmap/internal/branch"
	"bookmap/internal/logger"

	"github.com/lib/pq"
)

// Store：数据库访问入口，持有连接池
type Store struct {
	db *sql.DB
}

func AttachDB(db *sql.DB) *Store { return &Store{db: db} }

// Close：关闭数据库连接
func (s *Store) Close() error { return s.db.Close() }

// LoadBranches：一次性读取全部分馆，按编号排序
func (s *Store) LoadBranches(ctx context.Context) ([]branch.Branch, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT code, name, district, lat, lng, address FROM _library_branches ORDER BY code`)
	if err != nil {
		return nil, fmt.Errorf("query branches: %w", err)
	}
	defer rows.Close()
	var out []branch.Branch
	for rows.Next() {
		var b branch.Branch
		if err := rows.Scan(&b.Code, &b.Name, &b.District, &b.Lat, &b.Lng, &b.Address); err != nil {
			return nil, fmt.Errorf("scan branch: %w", err)
		}
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	logger.L().Debug("db_branches_loaded", "count", len(out))
	return out, nil
}

// LoadDirectory：读取并构建只读目录
func (s *Store) LoadDirectory(ctx context.Context) (*branch.Directory, error) {
	bs, err := s.LoadBranches(ctx)
	if err != nil {
		return nil, err
	}
	dir, err := branch.NewDirectory(bs)
	if err != nil {
		return nil, fmt.Errorf("build directory from postgres: %w", err)
	}
	logger.L().Info("branch_directory_loaded", "source", "postgres", "branches", dir.Len(), "districts", len(dir.Districts()))
	return dir, nil
}

// UpsertBranches：在单个事务内写入或更新分馆；任一失败整体回滚
func (s *Store) UpsertBranches(ctx context.Context, bs []branch.Branch) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO _library_branches(code, name, district, lat, lng, address)
        VALUES($1,$2,$3,$4,$5,$6)
        ON CONFLICT (code) DO UPDATE SET name=EXCLUDED.name, district=EXCLUDED.district, lat=EXCLUDED.lat, lng=EXCLUDED.lng, address=EXCLUDED.address, updated_at=now()`)
	if err != nil {
		return 0, err
	}
	defer stmt.Close()
	n := 0
	for _, b := range bs {
		if _, err := stmt.ExecContext(ctx, b.Code, b.Name, b.District, b.Lat, b.Lng, b.Address); err != nil {
			return n, fmt.Errorf("upsert branch %s: %w", b.Code, err)
		}
		n++
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return n, nil
}

// PruneExcept：删除不在给定编号集合内的分馆，用于导入工具的全量同步模式
func (s *Store) PruneExcept(ctx context.Context, codes []string) (int64, error) {
	if len(codes) == 0 {
		return 0, nil
	}
	res, err := s.db.ExecContext(ctx, `DELETE FROM _library_branches WHERE NOT (code = ANY($1))`, pq.Array(codes))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
