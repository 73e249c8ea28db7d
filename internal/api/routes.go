// 包 api：集中注册 HTTP API 路由，主入口只负责挂载到 API_BASE 前缀
package api

import (
	"encoding/json"
	"net/http"
	"strings"

	"bookmap/internal/branch"
	"bookmap/internal/logger"
	"bookmap/internal/lookup"
	"bookmap/internal/probe"
	"bookmap/internal/version"
)

// 文档注释：区列表返回项
type districtItem struct {
	Name     string `json:"name"`
	Branches int    `json:"branches"`
}

type healthResult struct {
	Status   string        `json:"status"`
	Commit   string        `json:"commit"`
	Branches int           `json:"branches"`
	Sessions int           `json:"sessions"`
	Probe    *probe.Status `json:"probe,omitempty"`
}

type errorResult struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("content-type", "application/json; charset=utf-8")
	w.Header().Set("cache-control", "no-store")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func allowMethod(w http.ResponseWriter, r *http.Request, method string) bool {
	if r.Method == method {
		return true
	}
	w.Header().Set("allow", method)
	writeJSON(w, http.StatusMethodNotAllowed, errorResult{Error: "method not allowed"})
	return false
}

// 文档注释：构建 API 路由
// 背景：独立 ServeMux，便于在主入口挂载到 /api 前缀；mon 可为空（未配置心跳时 /health 不含探测状态）。
// 约束：/lookup 永不返回 5xx，所有降级都体现在结果的 message 字段；ETag 取结果摘要。
func BuildRoutes(e *lookup.Engine, ss *Sessions, mon *probe.Monitor) *http.ServeMux {
	dir := e.Directory()
	mux := http.NewServeMux()

	mux.HandleFunc("/districts", func(w http.ResponseWriter, r *http.Request) {
		if !allowMethod(w, r, http.MethodGet) {
			return
		}
		names := dir.Districts()
		out := make([]districtItem, 0, len(names))
		for _, n := range names {
			out = append(out, districtItem{Name: n, Branches: len(dir.InDistrict(n))})
		}
		writeJSON(w, http.StatusOK, map[string]any{"districts": out})
	})

	mux.HandleFunc("/branches", func(w http.ResponseWriter, r *http.Request) {
		if !allowMethod(w, r, http.MethodGet) {
			return
		}
		scope := branch.ParseScope(r.URL.Query().Get("district"))
		bs := branch.Resolve(scope, dir)
		if bs == nil {
			bs = []branch.Branch{}
		}
		writeJSON(w, http.StatusOK, map[string]any{"scope": scope.String(), "branches": bs})
	})

	mux.HandleFunc("/lookup", func(w http.ResponseWriter, r *http.Request) {
		if !allowMethod(w, r, http.MethodGet) {
			return
		}
		q := r.URL.Query()
		book := strings.TrimSpace(q.Get("book"))
		scope := branch.ParseScope(q.Get("district"))
		id, s := ss.Get(w, r)
		res := s.Lookup(r.Context(), book, scope)
		logger.L().Debug("api_lookup", "session", id, "book", book, "scope", scope.String(), "source", res.Source)

		etag := `"` + res.Fingerprint + `"`
		w.Header().Set("etag", etag)
		w.Header().Set(logger.LookupSourceHeader, string(res.Source))
		if res.Fingerprint != "" && r.Header.Get("if-none-match") == etag {
			w.Header().Set("cache-control", "no-store")
			w.WriteHeader(http.StatusNotModified)
			return
		}
		status := http.StatusOK
		if res.Source == lookup.SourceInvalid {
			status = http.StatusBadRequest
		}
		writeJSON(w, status, res)
	})

	mux.HandleFunc("/lookup/reset", func(w http.ResponseWriter, r *http.Request) {
		if !allowMethod(w, r, http.MethodPost) {
			return
		}
		id, s := ss.Get(w, r)
		s.Reset()
		logger.L().Debug("api_lookup_reset", "session", id)
		w.WriteHeader(http.StatusNoContent)
	})

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		h := healthResult{Status: "ok", Commit: version.Commit, Branches: dir.Len(), Sessions: ss.Len()}
		if mon != nil {
			st := mon.Status()
			h.Probe = &st
			if !st.Healthy {
				h.Status = "degraded"
			}
		}
		writeJSON(w, http.StatusOK, h)
	})

	return mux
}
