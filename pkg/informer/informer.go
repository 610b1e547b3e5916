// file: pkg/informer/informer.go

package informer

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	metav1 "github.com/fx147/operator-dispatcher/pkg/apis/meta/v1"
	"github.com/fx147/operator-dispatcher/pkg/registry"
	"github.com/fx147/operator-dispatcher/pkg/util"
	"github.com/fx147/operator-dispatcher/pkg/watch"
	"k8s.io/apimachinery/pkg/runtime/schema"
	"k8s.io/apimachinery/pkg/util/wait"
	"k8s.io/klog/v2"
)

// ErrSourceClosed 表示 Registry 关闭了事件 channel
var ErrSourceClosed = errors.New("registry event channel closed")

// Informer 监听 Registry 中某一类型对象的变更，并按顺序把事件交给处理器。
type Informer interface {
	// AddEventHandler 注册一个事件处理器。必须在 Run 之前调用。
	AddEventHandler(handler watch.Handler)
	// Run 启动 Informer 的主循环，阻塞直到 stopCh 关闭。
	Run(stopCh <-chan struct{})
	// HasSynced 在第一次全量同步完成后返回 true。
	HasSynced() bool
}

// informer 是 Informer 接口的具体实现。
type informer struct {
	registry     registry.Interface // 数据源
	gvk          schema.GroupVersionKind
	namespace    string // 为空表示所有命名空间
	resyncPeriod time.Duration

	// lastSeen 是 "namespace/name -> 最近一次投递的对象" 缓存，
	// Deleted 事件的 tombstone 就是其中的对象。
	lastSeen sync.Map

	// processLock 串行化事件处理和 resync，处理器一次只会收到一个事件
	processLock sync.Mutex

	handlers    []watch.Handler
	handlerLock sync.RWMutex

	// listedRV 是最近一次 resync 时 Registry 的全局版本号，
	// 不比它新的事件已经体现在那次 List 的结果里了
	listedRV string

	synced    atomic.Bool
	closeOnce sync.Once
	// closed 在 OnClose 之后置位，由 processLock 保护
	closed bool
}

// NewInformer 创建一个新的 Informer 实例。
// namespace 为空时监听所有命名空间。
func NewInformer(reg registry.Interface, gvk schema.GroupVersionKind, namespace string, resyncPeriod time.Duration) Informer {
	return &informer{
		registry:     reg,
		gvk:          gvk,
		namespace:    namespace,
		resyncPeriod: resyncPeriod,
		handlers:     make([]watch.Handler, 0),
	}
}

func (i *informer) AddEventHandler(handler watch.Handler) {
	i.handlerLock.Lock()
	defer i.handlerLock.Unlock()
	i.handlers = append(i.handlers, handler)
}

func (i *informer) HasSynced() bool {
	return i.synced.Load()
}

func (i *informer) Run(stopCh <-chan struct{}) {
	klog.InfoS("Starting informer", "kind", i.gvk.Kind, "namespace", i.namespace)

	// 先订阅再 List，避免两者之间的变更丢失
	eventCh, cancel := i.registry.Subscribe()

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		i.watchLoop(eventCh, stopCh)
	}()

	// wait.Until 会立即执行第一次 resync，之后每个 resyncPeriod 执行一次
	go func() {
		defer wg.Done()
		wait.Until(i.resync, i.resyncPeriod, stopCh)
	}()

	<-stopCh
	cancel()
	// 两个 goroutine 都退出后才通知 OnClose，Run 返回后不会再有事件投递
	wg.Wait()
	i.closeHandlers(nil)
	klog.InfoS("Shutting down informer", "kind", i.gvk.Kind)
}

// watchLoop 消费来自 Registry 的实时事件
func (i *informer) watchLoop(eventCh <-chan registry.Event, stopCh <-chan struct{}) {
	for {
		select {
		case event, ok := <-eventCh:
			if !ok {
				select {
				case <-stopCh:
					// 正常停止时由 Run 负责通知
				default:
					klog.Warningf("Registry event channel closed, watchLoop is stopping.")
					i.closeHandlers(ErrSourceClosed)
				}
				return
			}
			i.processEvent(event)
		case <-stopCh:
			return
		}
	}
}

func (i *informer) matches(obj metav1.Object) bool {
	if obj == nil {
		return false
	}
	if obj.GetObjectKind().GroupVersionKind() != i.gvk {
		return false
	}
	return i.namespace == "" || obj.GetObjectMeta().Namespace == i.namespace
}

// processEvent 处理单个实时事件
func (i *informer) processEvent(event registry.Event) {
	if !i.matches(event.Object) {
		return
	}

	i.processLock.Lock()
	defer i.processLock.Unlock()

	key := util.ObjectKey(event.Object)
	old, exists := i.lastSeen.Load(key)

	// 如果事件类型是删除，我们直接处理并从缓存中移除
	if event.Type == watch.Deleted {
		if exists {
			i.lastSeen.Delete(key)
			i.distribute(watch.Deleted, event.Object)
		}
		return
	}

	if exists && !isNewer(event.ResourceVersion, old.(metav1.Object).GetObjectMeta().ResourceVersion) {
		// 版本没有前进（重复或乱序的事件），忽略
		return
	}

	if !exists && i.listedRV != "" && !isNewer(event.ResourceVersion, i.listedRV) {
		// resync 之前就已产生的事件，对象此后已被删除
		return
	}

	action := watch.Modified
	if !exists {
		action = watch.Added
	}
	i.lastSeen.Store(key, event.Object)
	i.distribute(action, event.Object)
}

// resync 是我们的“安全网”，修复因事件丢弃造成的不一致
func (i *informer) resync() {
	klog.V(4).InfoS("Running informer resync", "kind", i.gvk.Kind)

	i.processLock.Lock()
	defer i.processLock.Unlock()

	objs, listedRV, err := i.registry.List(context.Background(), i.gvk, i.namespace)
	if err != nil {
		klog.ErrorS(err, "Failed to list objects for resync", "kind", i.gvk.Kind)
		i.distribute(watch.Error, nil)
		return
	}

	current := make(map[string]struct{}, len(objs))

	// 找出 Added 和 Modified
	for _, obj := range objs {
		if !i.matches(obj) {
			continue
		}
		key := util.ObjectKey(obj)
		current[key] = struct{}{}

		old, exists := i.lastSeen.Load(key)
		switch {
		case !exists:
			i.lastSeen.Store(key, obj)
			i.distribute(watch.Added, obj)
		case isNewer(obj.GetObjectMeta().ResourceVersion, old.(metav1.Object).GetObjectMeta().ResourceVersion):
			i.lastSeen.Store(key, obj)
			i.distribute(watch.Modified, obj)
		}
	}

	// 找出 Deleted，tombstone 是最后一次看到的对象
	i.lastSeen.Range(func(key, value interface{}) bool {
		if _, ok := current[key.(string)]; !ok {
			i.lastSeen.Delete(key)
			i.distribute(watch.Deleted, value.(metav1.Object))
		}
		return true
	})

	i.listedRV = listedRV
	if !i.synced.Swap(true) {
		klog.V(2).InfoS("Informer synced", "kind", i.gvk.Kind, "objects", len(current))
	}
	klog.V(4).InfoS("Informer resync complete", "kind", i.gvk.Kind)
}

// distribute 将一个事件分发给所有已注册的处理器。调用方必须持有 processLock。
func (i *informer) distribute(action watch.Action, obj metav1.Object) {
	if i.closed {
		return
	}

	i.handlerLock.RLock()
	defer i.handlerLock.RUnlock()

	for _, handler := range i.handlers {
		// 每个处理器拿到独立的副本
		var delivered metav1.Object
		if obj != nil {
			delivered = obj.DeepCopyObject().(metav1.Object)
		}
		handler.OnEvent(action, delivered)
	}
}

func (i *informer) closeHandlers(err error) {
	i.closeOnce.Do(func() {
		i.processLock.Lock()
		defer i.processLock.Unlock()
		i.closed = true

		i.handlerLock.RLock()
		defer i.handlerLock.RUnlock()
		for _, handler := range i.handlers {
			handler.OnClose(err)
		}
	})
}

// isNewer 判断 candidate 是否比 current 新。
// Registry 的 resourceVersion 是递增整数；无法解析时退化为 "不相等即更新"。
func isNewer(candidate, current string) bool {
	c, err1 := strconv.ParseUint(candidate, 10, 64)
	o, err2 := strconv.ParseUint(current, 10, 64)
	if err1 != nil || err2 != nil {
		return candidate != current
	}
	return c > o
}
