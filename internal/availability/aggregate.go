package availability

import (
	"sort"
	"sync"
	"time"
)

// Counts：区名 → 当前可借分馆数
// 约束：0 表示“已确认无可借”，与键缺失（未知）含义不同；写入缓存后视为只读
type Counts map[string]int

// Total：所有区的可借分馆数之和
func (c Counts) Total() int {
	n := 0
	for _, v := range c {
		n += v
	}
	return n
}

// Districts：按名称排序的区名
func (c Counts) Districts() []string {
	out := make([]string, 0, len(c))
	for d := range c {
		out = append(out, d)
	}
	sort.Strings(out)
	return out
}

type aggregateEntry struct {
	counts     Counts
	observedAt time.Time
}

// AggregateCache：书目 → 全地区按区汇总
// 约束：与 Cache 相同的惰性过期规则，每个条目独立计时
type AggregateCache struct {
	mu  sync.RWMutex
	ttl time.Duration
	now Clock
	m   map[string]aggregateEntry
}

func NewAggregateCache(ttl time.Duration, now Clock) *AggregateCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if now == nil {
		now = time.Now
	}
	return &AggregateCache{ttl: ttl, now: now, m: make(map[string]aggregateEntry)}
}

// Get：返回写入时的同一个 Counts；缺失或过期时 ok=false
func (c *AggregateCache) Get(bookID string) (Counts, bool) {
	counts, _, ok := c.GetAt(bookID)
	return counts, ok
}

// GetAt：同 Get，另返回条目的观测时间
func (c *AggregateCache) GetAt(bookID string) (Counts, time.Time, bool) {
	c.mu.RLock()
	e, found := c.m[bookID]
	c.mu.RUnlock()
	if !found || c.now().Sub(e.observedAt) >= c.ttl {
		return nil, time.Time{}, false
	}
	return e.counts, e.observedAt, true
}

func (c *AggregateCache) Put(bookID string, counts Counts) {
	c.PutAt(bookID, counts, c.now())
}

// PutAt：以给定观测时间写入
// 约束：汇总由逐馆结果折叠而来，observedAt 取参与折叠的最旧逐馆结果时间，使汇总不会比其输入活得更久
func (c *AggregateCache) PutAt(bookID string, counts Counts, observedAt time.Time) {
	c.mu.Lock()
	c.m[bookID] = aggregateEntry{counts: counts, observedAt: observedAt}
	c.mu.Unlock()
}

func (c *AggregateCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.m)
}
