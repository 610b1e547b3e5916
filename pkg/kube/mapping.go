// Package kube 把 dispatcher 接到真实的 Kubernetes API Server 上：
// 通过 dynamic client 的 watch 投递事件，通过 Update 实现带版本校验的 Replace。
package kube

import (
	"fmt"

	metav1 "github.com/fx147/operator-dispatcher/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/api/meta"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/apimachinery/pkg/runtime/schema"
	"k8s.io/client-go/dynamic"
)

// NewMapping 为一个 kind 构造 RESTMapping，资源名按 Kubernetes 的复数规则推导。
func NewMapping(gvk schema.GroupVersionKind, namespaced bool) (*meta.RESTMapping, error) {
	scope := meta.RESTScopeRoot
	if namespaced {
		scope = meta.RESTScopeNamespace
	}
	mapper := meta.NewDefaultRESTMapper([]schema.GroupVersion{gvk.GroupVersion()})
	mapper.Add(gvk, scope)
	return mapper.RESTMapping(gvk.GroupKind(), gvk.Version)
}

func resourceInterface(client dynamic.Interface, mapping *meta.RESTMapping, namespace string) dynamic.ResourceInterface {
	ri := client.Resource(mapping.Resource)
	if mapping.Scope.Name() == meta.RESTScopeNameNamespace && namespace != "" {
		return ri.Namespace(namespace)
	}
	return ri
}

// fromUnstructured 把 dynamic client 返回的对象转换为强类型对象
func fromUnstructured[T metav1.Object](u *unstructured.Unstructured, newObject func() T) (T, error) {
	obj := newObject()
	if err := runtime.DefaultUnstructuredConverter.FromUnstructured(u.UnstructuredContent(), obj); err != nil {
		var zero T
		return zero, fmt.Errorf("failed to convert %s %s: %w", u.GetKind(), u.GetName(), err)
	}
	obj.GetObjectKind().SetGroupVersionKind(u.GroupVersionKind())
	return obj, nil
}

func toUnstructured(obj metav1.Object) (*unstructured.Unstructured, error) {
	content, err := runtime.DefaultUnstructuredConverter.ToUnstructured(obj)
	if err != nil {
		return nil, err
	}
	return &unstructured.Unstructured{Object: content}, nil
}
