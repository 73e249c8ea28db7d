package api

import (
	"context"
	"net/http"
	"sync"
	"time"

	"bookmap/internal/logger"
	"bookmap/internal/lookup"
	"bookmap/internal/metrics"

	"github.com/google/uuid"
)

// SessionCookie：会话标识 cookie 名
const SessionCookie = "bookmap_session"

// 文档注释：HTTP 会话注册表
// 背景：每个浏览器持有独立的去重标记，缓存由引擎在全部会话间共享；会话以 uuid cookie 标识。
// 约束：闲置超过 idle 的会话被清理；未知或过期的标识会换发新会话。
type Sessions struct {
	engine *lookup.Engine
	idle   time.Duration
	now    func() time.Time

	mu    sync.Mutex
	items map[string]*sessionEntry
}

type sessionEntry struct {
	s        *lookup.Session
	lastSeen time.Time
}

func NewSessions(e *lookup.Engine, idle time.Duration) *Sessions {
	if idle <= 0 {
		idle = 30 * time.Minute
	}
	return &Sessions{engine: e, idle: idle, now: time.Now, items: make(map[string]*sessionEntry)}
}

// Get：取得请求对应的会话，必要时创建并写回 cookie
func (ss *Sessions) Get(w http.ResponseWriter, r *http.Request) (string, *lookup.Session) {
	now := ss.now()
	id := ""
	if c, err := r.Cookie(SessionCookie); err == nil {
		id = c.Value
	}
	ss.mu.Lock()
	if e, ok := ss.items[id]; ok && now.Sub(e.lastSeen) < ss.idle {
		e.lastSeen = now
		ss.mu.Unlock()
		return id, e.s
	}
	delete(ss.items, id)
	id = uuid.NewString()
	e := &sessionEntry{s: ss.engine.NewSession(), lastSeen: now}
	ss.items[id] = e
	n := len(ss.items)
	ss.mu.Unlock()

	metrics.ActiveSessions.Set(float64(n))
	logger.L().Debug("session_created", "session", id, "visitor", visitorIP(r))
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(ss.idle.Seconds()),
	})
	return id, e.s
}

// Sweep：清理闲置会话，返回清理数量
func (ss *Sessions) Sweep() int {
	now := ss.now()
	ss.mu.Lock()
	removed := 0
	for id, e := range ss.items {
		if now.Sub(e.lastSeen) >= ss.idle {
			delete(ss.items, id)
			removed++
		}
	}
	n := len(ss.items)
	ss.mu.Unlock()
	metrics.ActiveSessions.Set(float64(n))
	if removed > 0 {
		logger.L().Debug("session_sweep", "removed", removed, "active", n)
	}
	return removed
}

func (ss *Sessions) Len() int {
	ss.mu.Lock()
	defer ss.mu.Unlock()
	return len(ss.items)
}

// Start：后台按 idle/2 周期清理，ctx 取消时退出
func (ss *Sessions) Start(ctx context.Context) {
	t := time.NewTicker(ss.idle / 2)
	go func() {
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				ss.Sweep()
			}
		}
	}()
}
