package dispatcher

import (
	"context"

	metav1 "github.com/fx147/operator-dispatcher/pkg/apis/meta/v1"
)

// FinalizerManager 管理 dispatcher 自己的 finalizer，不会触碰其他 finalizer。
type FinalizerManager[T metav1.Object] struct {
	finalizer string
	client    Client[T]
}

func NewFinalizerManager[T metav1.Object](finalizer string, client Client[T]) *FinalizerManager[T] {
	return &FinalizerManager[T]{finalizer: finalizer, client: client}
}

// Finalizer 返回管理的 finalizer 名称
func (m *FinalizerManager[T]) Finalizer() string {
	return m.finalizer
}

func (m *FinalizerManager[T]) HasDefaultFinalizer(obj T) bool {
	return ContainsFinalizer(obj, m.finalizer)
}

// AddFinalizerIfNotPresent 在 obj 上追加 finalizer，不做持久化。
// 返回值表示 obj 是否被修改。
func (m *FinalizerManager[T]) AddFinalizerIfNotPresent(obj T) bool {
	return AddFinalizer(obj, m.finalizer)
}

// RemoveDefaultFinalizer 在 obj 的副本上移除一次 finalizer，
// 并以 obj 的 resourceVersion 作为期望版本持久化。obj 本身不会被修改。
func (m *FinalizerManager[T]) RemoveDefaultFinalizer(ctx context.Context, obj T) (T, error) {
	updated := obj.DeepCopyObject().(T)
	RemoveFinalizer(updated, m.finalizer)
	return m.client.Replace(ctx, updated, obj.GetObjectMeta().ResourceVersion)
}

// MarkedForDeletion 判断对象是否已经被标记删除
func MarkedForDeletion(obj metav1.Object) bool {
	ts := obj.GetObjectMeta().DeletionTimestamp
	return ts != nil && !ts.IsZero()
}

func ContainsFinalizer(obj metav1.Object, finalizer string) bool {
	for _, f := range obj.GetObjectMeta().Finalizers {
		if f == finalizer {
			return true
		}
	}
	return false
}

// AddFinalizer 在 finalizer 不存在时追加它，返回 obj 是否被修改
func AddFinalizer(obj metav1.Object, finalizer string) bool {
	if ContainsFinalizer(obj, finalizer) {
		return false
	}
	meta := obj.GetObjectMeta()
	meta.Finalizers = append(meta.Finalizers, finalizer)
	return true
}

// RemoveFinalizer 移除 finalizer 的第一次出现，其他 finalizer 保持原有顺序。
// 返回 obj 是否被修改。
func RemoveFinalizer(obj metav1.Object, finalizer string) bool {
	meta := obj.GetObjectMeta()
	for i, f := range meta.Finalizers {
		if f != finalizer {
			continue
		}
		// 新建切片，不与其他副本共享底层数组
		remaining := make([]string, 0, len(meta.Finalizers)-1)
		remaining = append(remaining, meta.Finalizers[:i]...)
		remaining = append(remaining, meta.Finalizers[i+1:]...)
		meta.Finalizers = remaining
		return true
	}
	return false
}
