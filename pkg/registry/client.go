package registry

import (
	"context"
	"fmt"

	metav1 "github.com/fx147/operator-dispatcher/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime/schema"
)

// Client 是 Registry 上某一类型的强类型视图。
// 它满足 dispatcher 对持久化层的要求（带版本校验的 Replace）。
type Client[T metav1.Object] struct {
	registry Interface
	gvk      schema.GroupVersionKind
}

func NewClient[T metav1.Object](reg Interface, gvk schema.GroupVersionKind) *Client[T] {
	return &Client[T]{registry: reg, gvk: gvk}
}

func (c *Client[T]) Create(ctx context.Context, obj T) (T, error) {
	out, err := c.registry.Create(ctx, obj)
	if err != nil {
		var zero T
		return zero, err
	}
	return c.cast(out)
}

func (c *Client[T]) Get(ctx context.Context, namespace, name string) (T, error) {
	out, err := c.registry.Get(ctx, c.gvk, namespace, name)
	if err != nil {
		var zero T
		return zero, err
	}
	return c.cast(out)
}

func (c *Client[T]) List(ctx context.Context, namespace string) ([]T, error) {
	objs, _, err := c.registry.List(ctx, c.gvk, namespace)
	if err != nil {
		return nil, err
	}
	items := make([]T, 0, len(objs))
	for _, obj := range objs {
		typed, err := c.cast(obj)
		if err != nil {
			return nil, err
		}
		items = append(items, typed)
	}
	return items, nil
}

// Replace 用 obj 替换存储中的对象，expectedResourceVersion 与存储不一致时返回 Conflict。
func (c *Client[T]) Replace(ctx context.Context, obj T, expectedResourceVersion string) (T, error) {
	out, err := c.registry.Replace(ctx, obj, expectedResourceVersion)
	if err != nil {
		var zero T
		return zero, err
	}
	return c.cast(out)
}

func (c *Client[T]) Delete(ctx context.Context, namespace, name string) error {
	return c.registry.Delete(ctx, c.gvk, namespace, name)
}

func (c *Client[T]) cast(obj metav1.Object) (T, error) {
	typed, ok := obj.(T)
	if !ok {
		var zero T
		return zero, fmt.Errorf("registry returned %T for kind %s, not %T", obj, c.gvk.Kind, zero)
	}
	return typed, nil
}
