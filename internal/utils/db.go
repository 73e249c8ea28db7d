package utils

import (
	"database/sql"

	"bookmap/internal/config"

	_ "github.com/lib/pq"
)

// OpenPostgres：按配置打开连接池（不主动 Ping，由调用方决定是否校验连通性）
func OpenPostgres(c config.Postgres) (*sql.DB, error) {
	db, err := sql.Open("postgres", c.DSN())
	if err != nil {
		return nil, err
	}
	if c.MaxOpenConns > 0 {
		db.SetMaxOpenConns(c.MaxOpenConns)
	}
	if c.MaxIdleConns > 0 {
		db.SetMaxIdleConns(c.MaxIdleConns)
	}
	return db, nil
}
