package probe

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// 文档注释：公共图书馆数据平台 bookExist 接口客户端
// 背景：按 libCode + isbn13 查询单馆馆藏；hasBook 表示是否收藏，loanAvailable 表示当前是否可借。
// 约束：仅 loanAvailable=Y 视为可借；未收藏、已借出都返回 false；接口层错误信息以 error 返回。
type Data4Library struct {
	endpoint string
	authKey  string
	client   *http.Client
}

func NewData4Library(endpoint, authKey string, timeout time.Duration, retryMax int) *Data4Library {
	return &Data4Library{
		endpoint: strings.TrimRight(endpoint, "/"),
		authKey:  authKey,
		client:   newHTTPClient(timeout, retryMax),
	}
}

func (d *Data4Library) Name() string { return "data4library" }

type bookExistResponse struct {
	Response struct {
		Error  string `json:"error"`
		Result *struct {
			HasBook       string `json:"hasBook"`
			LoanAvailable string `json:"loanAvailable"`
		} `json:"result"`
	} `json:"response"`
}

func (d *Data4Library) Check(ctx context.Context, branchCode, bookID string) (bool, error) {
	if d.authKey == "" {
		return false, errors.New("data4library: missing auth key")
	}
	q := url.Values{}
	q.Set("authKey", d.authKey)
	q.Set("libCode", branchCode)
	q.Set("isbn13", bookID)
	q.Set("format", "json")
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, d.endpoint+"/bookExist?"+q.Encode(), nil)
	if err != nil {
		return false, err
	}
	req.Header.Set("accept", "application/json")
	resp, err := d.client.Do(req)
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return false, readStatusError(resp)
	}
	var r bookExistResponse
	if err := json.NewDecoder(resp.Body).Decode(&r); err != nil {
		return false, fmt.Errorf("data4library: decode: %w", err)
	}
	if r.Response.Error != "" {
		return false, fmt.Errorf("data4library: %s", r.Response.Error)
	}
	if r.Response.Result == nil {
		return false, errors.New("data4library: empty result")
	}
	return strings.EqualFold(r.Response.Result.HasBook, "Y") && strings.EqualFold(r.Response.Result.LoanAvailable, "Y"), nil
}

// Heartbeat：以不存在的组合探测服务是否在线；只要接口给出可解析响应即视为健康
func (d *Data4Library) Heartbeat(ctx context.Context) error {
	if d.authKey == "" {
		return errors.New("data4library: missing auth key")
	}
	q := url.Values{}
	q.Set("authKey", d.authKey)
	q.Set("libCode", "0")
	q.Set("isbn13", "0000000000000")
	q.Set("format", "json")
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, d.endpoint+"/bookExist?"+q.Encode(), nil)
	if err != nil {
		return err
	}
	resp, err := d.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return readStatusError(resp)
	}
	return nil
}
