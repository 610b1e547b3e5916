// Package dispatcher 把 watch 事件转换成对 Controller 的 createOrUpdate / delete 调用，
// 并执行基于 finalizer 的删除协议：对象被真正删除之前，Controller 的清理逻辑一定已经成功执行。
package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	metav1 "github.com/fx147/operator-dispatcher/pkg/apis/meta/v1"
	"github.com/fx147/operator-dispatcher/pkg/util"
	"github.com/fx147/operator-dispatcher/pkg/watch"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	"k8s.io/apimachinery/pkg/util/validation"
	"k8s.io/klog/v2"
)

// Config 是 EventDispatcher 的配置
type Config struct {
	// Name 出现在日志和指标标签中，为空时使用 Finalizer
	Name string
	// Finalizer 是 dispatcher 拥有的 finalizer，必须是合法的 qualified name
	Finalizer string
	// Metrics 为 nil 时不记录指标
	Metrics *Metrics
}

// EventDispatcher 处理某一种资源的 watch 事件。
//
// 调用方必须按顺序投递事件：同一个对象的上一个事件处理完成之前不能投递下一个。
// EventDispatcher 不重试：失败和冲突都只记录日志，等待下一次事件重新做出决定。
type EventDispatcher[T metav1.Object] struct {
	name       string
	controller Controller[T]
	client     Client[T]
	finalizers *FinalizerManager[T]
	metrics    *Metrics
}

func New[T metav1.Object](controller Controller[T], client Client[T], cfg Config) (*EventDispatcher[T], error) {
	if controller == nil {
		return nil, errors.New("controller must not be nil")
	}
	if client == nil {
		return nil, errors.New("client must not be nil")
	}
	if errs := validation.IsQualifiedName(cfg.Finalizer); len(errs) > 0 {
		return nil, fmt.Errorf("invalid finalizer %q: %s", cfg.Finalizer, strings.Join(errs, "; "))
	}

	name := cfg.Name
	if name == "" {
		name = cfg.Finalizer
	}
	return &EventDispatcher[T]{
		name:       name,
		controller: controller,
		client:     client,
		finalizers: NewFinalizerManager(cfg.Finalizer, client),
		metrics:    cfg.Metrics,
	}, nil
}

// OnEvent 实现 watch.Handler
func (d *EventDispatcher[T]) OnEvent(action watch.Action, obj metav1.Object) {
	var typed T
	if !util.IsNil(obj) {
		var ok bool
		if typed, ok = obj.(T); !ok {
			klog.ErrorS(nil, "Received object of unexpected type", "dispatcher", d.name, "action", action, "type", fmt.Sprintf("%T", obj))
			return
		}
	}
	d.EventReceived(context.Background(), action, typed)
}

// OnClose 实现 watch.Handler。重连由 watch 的提供方负责，这里只记录日志。
func (d *EventDispatcher[T]) OnClose(err error) {
	if err != nil {
		klog.ErrorS(err, "Watch stream closed", "dispatcher", d.name)
		return
	}
	klog.InfoS("Watch stream closed", "dispatcher", d.name)
}

// EventReceived 处理一个事件。它不返回错误，也不会把 Controller 或持久化层的 panic 传播给调用方。
func (d *EventDispatcher[T]) EventReceived(ctx context.Context, action watch.Action, obj T) {
	start := time.Now()
	defer d.metrics.recordEvent(d.name, string(action), start)

	logger := klog.FromContext(ctx).WithValues("dispatcher", d.name, "action", action, "object", util.ObjectRef(obj))
	defer func() {
		if r := recover(); r != nil {
			logger.Error(fmt.Errorf("panic: %v", r), "Recovered from panic while handling event")
		}
	}()

	if err := d.handle(klog.NewContext(ctx, logger), logger, action, obj); err != nil {
		if apierrors.IsConflict(err) {
			// 对象已经被别人修改，下一个事件会带来新的快照
			logger.V(2).Info("Dropping event after conflict", "err", err)
			return
		}
		logger.Error(err, "Failed to handle event")
	}
}

func (d *EventDispatcher[T]) handle(ctx context.Context, logger klog.Logger, action watch.Action, obj T) error {
	switch action {
	case watch.Added, watch.Modified:
		if util.IsNil(obj) {
			return fmt.Errorf("%s event carries no object", action)
		}
		if MarkedForDeletion(obj) && d.finalizers.HasDefaultFinalizer(obj) {
			return d.cleanup(ctx, logger, action, obj)
		}
		return d.reconcile(ctx, logger, action, obj)
	case watch.Error:
		logger.Error(nil, "Watch stream reported an error")
		return nil
	case watch.Deleted:
		// finalizer 在删除标记阶段就已经被移除了
		logger.V(2).Info("Object deleted")
		return nil
	default:
		return fmt.Errorf("unknown action %q", action)
	}
}

// reconcile 调用 CreateOrUpdate，确保 finalizer 存在，然后持久化 Controller 返回的对象
func (d *EventDispatcher[T]) reconcile(ctx context.Context, logger klog.Logger, action watch.Action, obj T) error {
	out, err := d.callCreateOrUpdate(ctx, obj.DeepCopyObject().(T), d.newContext(logger, action))
	if err == nil && util.IsNil(out) {
		err = errors.New("returned a nil object")
	}
	d.metrics.recordControllerCall(d.name, operationCreateOrUpdate, err)
	if err != nil {
		return &ControllerError{Operation: operationCreateOrUpdate, Err: err}
	}

	if d.finalizers.AddFinalizerIfNotPresent(out) {
		logger.V(4).Info("Adding finalizer", "finalizer", d.finalizers.Finalizer())
	}

	// 无条件持久化，Controller 对 status 等的修改也需要写回
	_, err = d.client.Replace(ctx, out, obj.GetObjectMeta().ResourceVersion)
	return d.replaced(err)
}

// cleanup 调用 Delete，成功后移除 finalizer
func (d *EventDispatcher[T]) cleanup(ctx context.Context, logger klog.Logger, action watch.Action, obj T) error {
	err := d.callDelete(ctx, obj.DeepCopyObject().(T), d.newContext(logger, action))
	d.metrics.recordControllerCall(d.name, operationDelete, err)
	if err != nil {
		return &ControllerError{Operation: operationDelete, Err: err}
	}

	logger.V(2).Info("Cleanup finished, removing finalizer", "finalizer", d.finalizers.Finalizer())
	_, err = d.finalizers.RemoveDefaultFinalizer(ctx, obj)
	return d.replaced(err)
}

func (d *EventDispatcher[T]) replaced(err error) error {
	switch {
	case err == nil:
		d.metrics.recordReplace(d.name, resultSuccess)
		return nil
	case apierrors.IsConflict(err):
		d.metrics.recordReplace(d.name, resultConflict)
	default:
		d.metrics.recordReplace(d.name, resultError)
	}
	return fmt.Errorf("failed to replace object: %w", err)
}

func (d *EventDispatcher[T]) newContext(logger klog.Logger, action watch.Action) *Context[T] {
	return &Context[T]{Client: d.client, Logger: logger, Action: action}
}

func (d *EventDispatcher[T]) callCreateOrUpdate(ctx context.Context, obj T, c *Context[T]) (out T, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return d.controller.CreateOrUpdate(ctx, obj, c)
}

func (d *EventDispatcher[T]) callDelete(ctx context.Context, obj T, c *Context[T]) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return d.controller.Delete(ctx, obj, c)
}
