package probe

import (
	"fmt"
	"strings"
	"time"
)

// 探测实现类别，对应 PROBE_KIND
const (
	KindData4Library = "data4library"
	KindHTTP         = "http"
)

// New：按类别构建具体探测实现
// 约束：data4library 不因缺少密钥回退到其他实现，缺少密钥时每次探测都失败（按不可借处理）
func New(kind, endpoint, authKey string, timeout time.Duration, retryMax int) (Probe, error) {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case "", KindData4Library:
		return NewData4Library(endpoint, authKey, timeout, retryMax), nil
	case KindHTTP:
		return NewHTTP(KindHTTP, endpoint, timeout, retryMax), nil
	default:
		return nil, fmt.Errorf("unknown probe kind %q", kind)
	}
}
