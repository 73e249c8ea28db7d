package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRateLimit(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNoContent) })

	h := RateLimit(ok, 2)
	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/lookup", nil))
		codes = append(codes, rec.Code)
	}
	// 三次请求可能跨越秒边界，至少前两次必然放行
	require.Equal(t, http.StatusNoContent, codes[0])
	require.Equal(t, http.StatusNoContent, codes[1])
	require.Contains(t, []int{http.StatusNoContent, http.StatusTooManyRequests}, codes[2])

	rec := httptest.NewRecorder()
	RateLimit(ok, 0).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/lookup", nil))
	require.Equal(t, http.StatusNoContent, rec.Code)
}
