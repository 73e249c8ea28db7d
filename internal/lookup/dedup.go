package lookup

import (
	"sync"
	"time"

	"bookmap/internal/branch"
)

// Deduplicator：记录最近一次完成的查询 (书目, 范围) → 结果摘要
// 背景：与展示层解耦的“当前结果已能回答本次请求”判断。
// 约束：
// 1) 仅在同一书目、同一范围、上次结果非空且其依据的数据未超过 ttl 时短路；
// 2) 出现不同书目即作废；Reset 显式清除。
type Deduplicator struct {
	mu   sync.Mutex
	ttl  time.Duration
	now  func() time.Time
	last *memo
}

type memo struct {
	bookID     string
	scope      branch.Scope
	result     Result
	observedAt time.Time
}

func NewDeduplicator(ttl time.Duration, now func() time.Time) *Deduplicator {
	if now == nil {
		now = time.Now
	}
	return &Deduplicator{ttl: ttl, now: now}
}

// Current：若上次结果仍能回答 (bookID, scope) 则返回它
func (d *Deduplicator) Current(bookID string, scope branch.Scope) (Result, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	m := d.last
	if m == nil {
		return Result{}, false
	}
	if m.bookID != bookID {
		d.last = nil
		return Result{}, false
	}
	if m.scope != scope || m.result.Empty() {
		return Result{}, false
	}
	if d.ttl > 0 && d.now().Sub(m.observedAt) >= d.ttl {
		return Result{}, false
	}
	return m.result, true
}

// Record：查询完成（含确认为空）后更新标记
// 约束：过期时间从 r.ObservedAt 起算，缓存命中得到的结果不会因被记录而续期；零值时取当前时间
func (d *Deduplicator) Record(bookID string, scope branch.Scope, r Result) {
	at := r.ObservedAt
	if at.IsZero() {
		at = d.now()
	}
	d.mu.Lock()
	d.last = &memo{bookID: bookID, scope: scope, result: r, observedAt: at}
	d.mu.Unlock()
}

func (d *Deduplicator) Reset() {
	d.mu.Lock()
	d.last = nil
	d.mu.Unlock()
}

// Last：最近一次完成的查询及其摘要
func (d *Deduplicator) Last() (bookID string, scope branch.Scope, fingerprint string, ok bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.last == nil {
		return "", branch.Scope{}, "", false
	}
	return d.last.bookID, d.last.scope, d.last.result.Fingerprint, true
}
