package probe

import (
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
)

// newHTTPClient：带重试的标准 *http.Client
// 约束：retryMax 为传输层重试次数（连接错误与 5xx），与聚合层“单次运行不重试”无关；0 表示不重试
func newHTTPClient(timeout time.Duration, retryMax int) *http.Client {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	if retryMax < 0 {
		retryMax = 0
	}
	rc := &retryablehttp.Client{
		HTTPClient:   &http.Client{Timeout: timeout},
		RetryWaitMin: 100 * time.Millisecond,
		RetryWaitMax: time.Second,
		RetryMax:     retryMax,
		CheckRetry:   retryablehttp.DefaultRetryPolicy,
		Backoff:      retryablehttp.DefaultBackoff,
	}
	return rc.StandardClient()
}

// readStatusError：读取有限长度的错误响应体
func readStatusError(resp *http.Response) error {
	b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	return &StatusError{Status: resp.StatusCode, Body: strings.TrimSpace(string(b))}
}
