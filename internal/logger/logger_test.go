package logger

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	require.Equal(t, slog.LevelDebug, ParseLevel("DEBUG"))
	require.Equal(t, slog.LevelWarn, ParseLevel("warn"))
	require.Equal(t, slog.LevelError, ParseLevel("error"))
	require.Equal(t, slog.LevelInfo, ParseLevel("verbose"))
}

func TestAccessMiddlewareJSON(t *testing.T) {
	var buf bytes.Buffer
	l := SetupWriter(&buf, "debug", "json")
	h := AccessMiddleware(l, "bookmap_session")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(LookupSourceHeader, "dedup")
		w.WriteHeader(http.StatusTeapot)
		_, _ = w.Write([]byte("hello"))
	}))
	req := httptest.NewRequest(http.MethodGet, "/api/lookup?book=9788936434120", nil)
	req.AddCookie(&http.Cookie{Name: "bookmap_session", Value: "s-1"})
	h.ServeHTTP(httptest.NewRecorder(), req)

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	require.Equal(t, "http_access", rec["msg"])
	require.Equal(t, "/api/lookup", rec["path"])
	require.Equal(t, "book=9788936434120", rec["query"])
	require.EqualValues(t, http.StatusTeapot, rec["status"])
	require.EqualValues(t, 5, rec["bytes"])
	require.Equal(t, "s-1", rec["session"])
	require.Equal(t, "dedup", rec["source"])
	require.Equal(t, "DEBUG", rec["level"])
	require.Same(t, l, L())
}

func TestAccessMiddlewareServerErrorsAtWarn(t *testing.T) {
	var buf bytes.Buffer
	l := SetupWriter(&buf, "warn", "json")
	ok := AccessMiddleware(l, "")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	ok.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/districts", nil))
	require.Zero(t, buf.Len())

	bad := AccessMiddleware(l, "")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	bad.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/lookup", nil))
	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	require.Equal(t, "WARN", rec["level"])
	require.EqualValues(t, http.StatusBadGateway, rec["status"])
	require.NotContains(t, rec, "session")
}
