package probe

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// 文档注释：通用 HTTP 探测适配器
// 背景：用于接入自建代理或测试桩，契约为 GET /check?branch=&book= 返回 {"available":bool}，GET /health 返回 200。
type HTTP struct {
	name     string
	endpoint string
	client   *http.Client
}

func NewHTTP(name, endpoint string, timeout time.Duration, retryMax int) *HTTP {
	return &HTTP{name: name, endpoint: strings.TrimRight(endpoint, "/"), client: newHTTPClient(timeout, retryMax)}
}

func (h *HTTP) Name() string { return h.name }

func (h *HTTP) Check(ctx context.Context, branchCode, bookID string) (bool, error) {
	q := url.Values{}
	q.Set("branch", branchCode)
	q.Set("book", bookID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.endpoint+"/check?"+q.Encode(), nil)
	if err != nil {
		return false, err
	}
	resp, err := h.client.Do(req)
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return false, readStatusError(resp)
	}
	var m struct {
		Available *bool `json:"available"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&m); err != nil {
		return false, fmt.Errorf("%s: decode: %w", h.name, err)
	}
	if m.Available == nil {
		return false, fmt.Errorf("%s: response missing available", h.name)
	}
	return *m.Available, nil
}

// Heartbeat：访问 /health，非 200 视为不可用
func (h *HTTP) Heartbeat(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.endpoint+"/health", nil)
	if err != nil {
		return err
	}
	resp, err := h.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return readStatusError(resp)
	}
	return nil
}
