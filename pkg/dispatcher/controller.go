package dispatcher

import (
	"context"
	"fmt"

	metav1 "github.com/fx147/operator-dispatcher/pkg/apis/meta/v1"
	"github.com/fx147/operator-dispatcher/pkg/watch"
	"k8s.io/klog/v2"
)

// Controller 实现某一种资源的调谐逻辑。
//
// 传入的 obj 是观测到的快照的独立副本，Controller 可以随意修改它。
// CreateOrUpdate 必须返回需要持久化的对象（包括 status 等修改）；
// Delete 必须是幂等的：finalizer 的移除被观测到之前，同一个对象可能被再次投递。
type Controller[T metav1.Object] interface {
	CreateOrUpdate(ctx context.Context, obj T, c *Context[T]) (T, error)
	Delete(ctx context.Context, obj T, c *Context[T]) error
}

// Client 是 dispatcher 对持久化层的唯一要求：带版本校验的整体替换。
// expectedResourceVersion 与存储中的版本不一致时必须返回 Conflict 错误
// （apierrors.IsConflict 可识别）。
type Client[T metav1.Object] interface {
	Replace(ctx context.Context, obj T, expectedResourceVersion string) (T, error)
}

// Context 是一次调谐调用的上下文信息
type Context[T metav1.Object] struct {
	// Client 可供 Controller 读写同类型的其他对象
	Client Client[T]
	// Logger 已经带上了 dispatcher 名称和对象引用
	Logger klog.Logger
	// Action 是触发这次调用的事件类型
	Action watch.Action
}

// ControllerError 包装了 Controller 返回的错误（包括 panic）
type ControllerError struct {
	// Operation 是 "createOrUpdate" 或 "delete"
	Operation string
	Err       error
}

func (e *ControllerError) Error() string {
	return fmt.Sprintf("controller %s failed: %v", e.Operation, e.Err)
}

func (e *ControllerError) Unwrap() error {
	return e.Err
}
