// 包 availability：馆藏可用性两级缓存与并发探测聚合
// 背景：逐馆结果与按区汇总各自独立计时；过期在读取时惰性判定，不做主动清理。
package availability

import (
	"sync"
	"time"
)

// DefaultTTL：逐馆结果与按区汇总的默认有效期
const DefaultTTL = 10 * time.Minute

// Clock：可注入的时间源，测试用以推进时间
type Clock func() time.Time

type cacheKey struct {
	book   string
	branch string
}

type cacheEntry struct {
	available  bool
	observedAt time.Time
}

// Cache：(书目, 分馆) → 最近一次探测结果
// 约束：条目只覆盖不删除；now-observedAt >= ttl 即视为未知。容量由分馆数与会话内书目数自然限定。
type Cache struct {
	mu  sync.RWMutex
	ttl time.Duration
	now Clock
	m   map[cacheKey]cacheEntry
}

func NewCache(ttl time.Duration, now Clock) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if now == nil {
		now = time.Now
	}
	return &Cache{ttl: ttl, now: now, m: make(map[cacheKey]cacheEntry)}
}

// Get：返回 (可借, 是否新鲜)；缺失或过期时 ok=false
func (c *Cache) Get(bookID, branchCode string) (available bool, ok bool) {
	available, _, ok = c.GetAt(bookID, branchCode)
	return available, ok
}

// GetAt：同 Get，另返回该结果的探测时间，供上层按最旧输入计算派生结果的有效期
func (c *Cache) GetAt(bookID, branchCode string) (available bool, observedAt time.Time, ok bool) {
	c.mu.RLock()
	e, found := c.m[cacheKey{book: bookID, branch: branchCode}]
	c.mu.RUnlock()
	if !found || c.now().Sub(e.observedAt) >= c.ttl {
		return false, time.Time{}, false
	}
	return e.available, e.observedAt, true
}

// Put：以当前时间写入并返回该时间
func (c *Cache) Put(bookID, branchCode string, available bool) time.Time {
	now := c.now()
	c.mu.Lock()
	c.m[cacheKey{book: bookID, branch: branchCode}] = cacheEntry{available: available, observedAt: now}
	c.mu.Unlock()
	return now
}

// Len：条目总数（含已过期）
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.m)
}

func (c *Cache) TTL() time.Duration { return c.ttl }
