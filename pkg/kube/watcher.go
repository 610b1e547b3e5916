package kube

import (
	"context"
	"fmt"

	metav1 "github.com/fx147/operator-dispatcher/pkg/apis/meta/v1"
	"github.com/fx147/operator-dispatcher/pkg/watch"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	"k8s.io/apimachinery/pkg/api/meta"
	k8smetav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	k8swatch "k8s.io/apimachinery/pkg/watch"
	"k8s.io/client-go/dynamic"
	"k8s.io/klog/v2"
)

// Watcher 打开一个 watch 流，并把其中的事件按顺序交给 watch.Handler。
// 它不负责重连：流结束后 Run 返回，由调用方决定何时重新调用。
type Watcher[T metav1.Object] struct {
	client    dynamic.Interface
	mapping   *meta.RESTMapping
	namespace string
	newObject func() T
}

// NewWatcher 创建一个 Watcher，namespace 为空时监听所有命名空间。
func NewWatcher[T metav1.Object](client dynamic.Interface, mapping *meta.RESTMapping, namespace string, newObject func() T) *Watcher[T] {
	return &Watcher[T]{client: client, mapping: mapping, namespace: namespace, newObject: newObject}
}

// Run 运行一个 watch 流直到它结束或 ctx 被取消，handler.OnClose 总会被调用一次。
func (w *Watcher[T]) Run(ctx context.Context, handler watch.Handler) error {
	resource := w.mapping.Resource.String()
	klog.InfoS("Starting watch", "resource", resource, "namespace", w.namespace)

	wi, err := resourceInterface(w.client, w.mapping, w.namespace).Watch(ctx, k8smetav1.ListOptions{})
	if err != nil {
		err = fmt.Errorf("failed to watch %s: %w", resource, err)
		handler.OnClose(err)
		return err
	}
	defer wi.Stop()

	for {
		select {
		case <-ctx.Done():
			handler.OnClose(nil)
			return nil
		case event, ok := <-wi.ResultChan():
			if !ok {
				klog.V(2).InfoS("Watch channel closed", "resource", resource)
				handler.OnClose(nil)
				return nil
			}
			w.deliver(event, handler)
		}
	}
}

func (w *Watcher[T]) deliver(event k8swatch.Event, handler watch.Handler) {
	switch event.Type {
	case k8swatch.Bookmark:
		return
	case k8swatch.Error:
		err := apierrors.FromObject(event.Object)
		klog.ErrorS(err, "Watch stream reported an error", "resource", w.mapping.Resource.String())
		handler.OnEvent(watch.Error, nil)
		return
	}

	u, ok := event.Object.(*unstructured.Unstructured)
	if !ok {
		klog.ErrorS(nil, "Unexpected object in watch event", "type", fmt.Sprintf("%T", event.Object))
		return
	}
	obj, err := fromUnstructured(u, w.newObject)
	if err != nil {
		klog.ErrorS(err, "Dropping watch event", "object", klog.KObj(u))
		return
	}

	switch event.Type {
	case k8swatch.Added:
		handler.OnEvent(watch.Added, obj)
	case k8swatch.Modified:
		handler.OnEvent(watch.Modified, obj)
	case k8swatch.Deleted:
		handler.OnEvent(watch.Deleted, obj)
	default:
		klog.ErrorS(nil, "Unknown watch event type", "type", event.Type)
	}
}
