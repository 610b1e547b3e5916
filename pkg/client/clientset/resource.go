package clientset

import (
	"context"

	metav1 "github.com/fx147/operator-dispatcher/pkg/apis/meta/v1"
	"github.com/fx147/operator-dispatcher/pkg/client/rest"
	"github.com/fx147/operator-dispatcher/pkg/util"
	"k8s.io/apimachinery/pkg/runtime"
)

// ResourceInterface 提供了操作某一种资源的通用方法。
// 它同时满足 dispatcher 对持久化层的要求（Replace）。
type ResourceInterface[T metav1.Object, L runtime.Object] interface {
	Create(ctx context.Context, obj T) (T, error)
	Get(ctx context.Context, namespace, name string) (T, error)
	// List 列出 namespace 下的对象，namespace 为空时列出所有命名空间
	List(ctx context.Context, namespace string) (L, error)
	// Replace 以 expectedResourceVersion 作为期望版本整体替换对象
	Replace(ctx context.Context, obj T, expectedResourceVersion string) (T, error)
	Delete(ctx context.Context, namespace, name string) error
}

type resourceClient[T metav1.Object, L runtime.Object] struct {
	restClient rest.Interface
	resource   string
	newObject  func() T
	newList    func() L
}

func (c *resourceClient[T, L]) Create(ctx context.Context, obj T) (T, error) {
	result := c.newObject()
	err := c.restClient.Post().
		Namespace(namespaceOf(obj)).
		Resource(c.resource).
		Body(obj).
		Do(ctx).
		Into(result)
	return c.orZero(result, err)
}

func (c *resourceClient[T, L]) Get(ctx context.Context, namespace, name string) (T, error) {
	result := c.newObject()
	err := c.restClient.Get().
		Namespace(defaultNamespace(namespace)).
		Resource(c.resource).
		Name(name).
		Do(ctx).
		Into(result)
	return c.orZero(result, err)
}

func (c *resourceClient[T, L]) List(ctx context.Context, namespace string) (L, error) {
	result := c.newList()
	err := c.restClient.Get().
		Namespace(namespace).
		Resource(c.resource).
		Do(ctx).
		Into(result)
	if err != nil {
		var zero L
		return zero, err
	}
	return result, nil
}

func (c *resourceClient[T, L]) Replace(ctx context.Context, obj T, expectedResourceVersion string) (T, error) {
	// 不修改调用方的对象
	body := obj.DeepCopyObject().(T)
	meta := body.GetObjectMeta()
	meta.ResourceVersion = expectedResourceVersion

	result := c.newObject()
	err := c.restClient.Put().
		Namespace(defaultNamespace(meta.Namespace)).
		Resource(c.resource).
		Name(meta.Name).
		Body(body).
		Do(ctx).
		Into(result)
	return c.orZero(result, err)
}

func (c *resourceClient[T, L]) Delete(ctx context.Context, namespace, name string) error {
	return c.restClient.Delete().
		Namespace(defaultNamespace(namespace)).
		Resource(c.resource).
		Name(name).
		Do(ctx).
		Error()
}

func (c *resourceClient[T, L]) orZero(result T, err error) (T, error) {
	if err != nil {
		var zero T
		return zero, err
	}
	return result, nil
}

func namespaceOf(obj metav1.Object) string {
	return defaultNamespace(obj.GetObjectMeta().Namespace)
}

func defaultNamespace(namespace string) string {
	if namespace == "" {
		return util.DefaultNamespace
	}
	return namespace
}
