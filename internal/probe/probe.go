// 包 probe：外部馆藏可用性服务的客户端契约与实现
// 背景：对外服务缓慢且按秒限频；核心只依赖 Probe 接口，具体实现、超时与重试策略都留在本包。
package probe

import (
	"context"
	"fmt"
	"net/http"
)

// Probe：查询单个（分馆，书目）组合是否可借
// 约束：实现自行负责超时；返回 error 时调用方一律按“不可借”处理
type Probe interface {
	Name() string
	Check(ctx context.Context, branchCode, bookID string) (bool, error)
}

// HealthChecker：可选的心跳接口，供 Monitor 周期探测
type HealthChecker interface {
	Heartbeat(ctx context.Context) error
}

// Func：把普通函数适配为 Probe，主要用于测试与命令行调试
type Func func(ctx context.Context, branchCode, bookID string) (bool, error)

func (f Func) Name() string { return "func" }

func (f Func) Check(ctx context.Context, branchCode, bookID string) (bool, error) {
	return f(ctx, branchCode, bookID)
}

// StatusError：外部服务返回非 200
type StatusError struct {
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	if e.Body != "" {
		return fmt.Sprintf("probe: %d %s: %s", e.Status, http.StatusText(e.Status), e.Body)
	}
	return fmt.Sprintf("probe: %d %s", e.Status, http.StatusText(e.Status))
}
