package ratelimit

import (
	"context"
	"strconv"
	"time"

	"bookmap/internal/logger"

	"github.com/redis/go-redis/v9"
)

// RedisWindow：多实例共享的每秒固定窗口
// 背景：键为 prefix:unix秒，INCR 后首次设置 2s 过期；计数超过配额即等待下一秒。
// 约束：Redis 交互失败时改用进程内令牌桶，避免外部依赖故障阻断查询。
type RedisWindow struct {
	rc        *redis.Client
	prefix    string
	perSecond int64
	fallback  *TokenBucket
}

func NewRedisWindow(rc *redis.Client, prefix string, perSecond int) *RedisWindow {
	return &RedisWindow{rc: rc, prefix: prefix, perSecond: int64(perSecond), fallback: NewTokenBucket(perSecond)}
}

func (w *RedisWindow) Wait(ctx context.Context) error {
	if w.rc == nil {
		return w.fallback.Wait(ctx)
	}
	for {
		now := time.Now()
		key := w.prefix + ":" + strconv.FormatInt(now.Unix(), 10)
		n, err := w.rc.Incr(ctx, key).Result()
		if err != nil {
			logger.L().Debug("ratelimit_redis_error", "err", err)
			return w.fallback.Wait(ctx)
		}
		if n == 1 {
			_ = w.rc.Expire(ctx, key, 2*time.Second).Err()
		}
		if n <= w.perSecond {
			return nil
		}
		if err := sleepToNextSecond(ctx, now); err != nil {
			return err
		}
	}
}

// New：按配置选择实现；perSecond<=0 表示不限流
func New(rc *redis.Client, prefix string, perSecond int) Limiter {
	if perSecond <= 0 {
		return Unlimited{}
	}
	if rc != nil {
		return NewRedisWindow(rc, prefix, perSecond)
	}
	return NewTokenBucket(perSecond)
}
