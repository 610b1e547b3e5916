package kube

import (
	"context"

	metav1 "github.com/fx147/operator-dispatcher/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/api/meta"
	k8smetav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/dynamic"
)

// Client 通过 dynamic client 的 Update 实现 dispatcher 的 Client。
// 版本冲突由 API Server 检测，返回的错误可以用 apierrors.IsConflict 识别。
type Client[T metav1.Object] struct {
	client    dynamic.Interface
	mapping   *meta.RESTMapping
	newObject func() T
}

func NewClient[T metav1.Object](client dynamic.Interface, mapping *meta.RESTMapping, newObject func() T) *Client[T] {
	return &Client[T]{client: client, mapping: mapping, newObject: newObject}
}

func (c *Client[T]) Replace(ctx context.Context, obj T, expectedResourceVersion string) (T, error) {
	var zero T

	body := obj.DeepCopyObject().(T)
	om := body.GetObjectMeta()
	om.ResourceVersion = expectedResourceVersion
	body.GetObjectKind().SetGroupVersionKind(c.mapping.GroupVersionKind)

	u, err := toUnstructured(body)
	if err != nil {
		return zero, err
	}

	out, err := resourceInterface(c.client, c.mapping, om.Namespace).Update(ctx, u, k8smetav1.UpdateOptions{})
	if err != nil {
		return zero, err
	}
	return fromUnstructured(out, c.newObject)
}

func (c *Client[T]) Get(ctx context.Context, namespace, name string) (T, error) {
	out, err := resourceInterface(c.client, c.mapping, namespace).Get(ctx, name, k8smetav1.GetOptions{})
	if err != nil {
		var zero T
		return zero, err
	}
	return fromUnstructured(out, c.newObject)
}
