// 包 utils：外部存储连接工具（PostgreSQL 分馆目录、Redis 共享限流窗口）
package utils

import (
	"bookmap/internal/config"
	"bookmap/internal/logger"

	"github.com/redis/go-redis/v9"
)

// OpenRedis：按配置打开 Redis 客户端；未启用时返回 nil，调用方据此回退到进程内实现
func OpenRedis(c config.Redis) *redis.Client {
	if !c.Enable {
		return nil
	}
	logger.L().Debug("redis_env", "addr", c.Addr(), "db", c.DB)
	return redis.NewClient(&redis.Options{Addr: c.Addr(), Password: c.Pass, DB: c.DB})
}
