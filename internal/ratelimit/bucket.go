// 包 ratelimit：按秒计的令牌桶与 Redis 固定窗口限流
// 背景：外部馆藏查询服务按秒限频；单实例用进程内令牌桶，多实例共享配额时用 Redis 窗口。
package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Limiter：阻塞直到获得一次调用配额或 ctx 结束
type Limiter interface {
	Wait(ctx context.Context) error
}

// TokenBucket：每秒重置的令牌桶
// 约束：不排队，整秒边界一次性补满；Allow 非阻塞，Wait 轮询到下一秒
type TokenBucket struct {
	mu       sync.Mutex
	capacity int
	tokens   int
	lastSec  int64
	now      func() time.Time
}

func NewTokenBucket(perSecond int) *TokenBucket {
	return newTokenBucket(perSecond, time.Now)
}

func newTokenBucket(perSecond int, now func() time.Time) *TokenBucket {
	return &TokenBucket{capacity: perSecond, tokens: perSecond, lastSec: now().Unix(), now: now}
}

func (tb *TokenBucket) Allow() bool {
	tb.mu.Lock()
	defer tb.mu.Unlock()
	nowSec := tb.now().Unix()
	if tb.lastSec != nowSec {
		tb.lastSec = nowSec
		tb.tokens = tb.capacity
	}
	if tb.tokens > 0 {
		tb.tokens--
		return true
	}
	return false
}

func (tb *TokenBucket) Wait(ctx context.Context) error {
	for {
		if tb.Allow() {
			return nil
		}
		if err := sleepToNextSecond(ctx, tb.now()); err != nil {
			return err
		}
	}
}

func sleepToNextSecond(ctx context.Context, now time.Time) error {
	d := now.Truncate(time.Second).Add(time.Second).Sub(now)
	if d <= 0 {
		d = time.Millisecond
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Unlimited：不做任何限制
type Unlimited struct{}

func (Unlimited) Wait(ctx context.Context) error { return nil }
