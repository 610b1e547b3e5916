// file: pkg/registry/registry.go

package registry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path"
	"strconv"
	"strings"
	"sync"

	metav1 "github.com/fx147/operator-dispatcher/pkg/apis/meta/v1"
	"github.com/fx147/operator-dispatcher/pkg/util"
	"github.com/fx147/operator-dispatcher/pkg/watch"
	"github.com/google/uuid"
	"k8s.io/apimachinery/pkg/api/equality"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	k8smetav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/apimachinery/pkg/runtime/schema"
	"k8s.io/apimachinery/pkg/util/sets"
	"k8s.io/apimachinery/pkg/util/validation"
	"k8s.io/apimachinery/pkg/util/validation/field"
	"k8s.io/klog/v2"
)

// 每个订阅者 channel 的缓冲大小
const subscriberBufferSize = 100

// 编译时检查
var _ Interface = &Registry{}

// Interface 是 Registry 业务逻辑层的接口。
// 它定义了所有上层组件（如 Informer, Controller, API Server）可以调用的方法。
type Interface interface {
	// Subscribe 订阅 Registry 的变更事件。
	Subscribe() (<-chan Event, func())

	Create(ctx context.Context, obj metav1.Object) (metav1.Object, error)
	Get(ctx context.Context, gvk schema.GroupVersionKind, namespace, name string) (metav1.Object, error)
	// List 返回 namespace 下（为空时表示所有命名空间）某一类型的全部对象，以及当前的全局版本号。
	List(ctx context.Context, gvk schema.GroupVersionKind, namespace string) ([]metav1.Object, string, error)
	// Replace 用 obj 整体替换已存在的对象。
	// expectedResourceVersion 必须等于存储中对象当前的 resourceVersion，否则返回 Conflict。
	Replace(ctx context.Context, obj metav1.Object, expectedResourceVersion string) (metav1.Object, error)
	// Delete 删除对象。带有 finalizer 的对象只会被打上 deletionTimestamp。
	Delete(ctx context.Context, gvk schema.GroupVersionKind, namespace, name string) error
}

// Registry 是业务逻辑层，它使用一个 Store 接口来持久化数据，并广播变更事件。
type Registry struct {
	store  Store
	scheme *runtime.Scheme

	// writeLock 串行化所有 "读-校验-写" 操作
	writeLock sync.Mutex

	// --- 事件相关的字段 ---
	subs      map[int]chan Event // 存储所有订阅者的 channel
	nextSubID int
	subsLock  sync.RWMutex // 保护 subs 字段的锁
}

// NewRegistry 创建一个新的 Registry 实例。
// scheme 中需要注册所有会被存储的类型。
func NewRegistry(store Store, scheme *runtime.Scheme) *Registry {
	return &Registry{
		store:  store,
		scheme: scheme,
		subs:   make(map[int]chan Event),
	}
}

// Subscribe 允许一个 Informer 或其他组件订阅 Registry 的变更事件。
// 它返回一个用于接收事件的 channel 和一个用于取消订阅的函数。
func (r *Registry) Subscribe() (<-chan Event, func()) {
	r.subsLock.Lock()
	defer r.subsLock.Unlock()

	id := r.nextSubID
	r.nextSubID++

	ch := make(chan Event, subscriberBufferSize) // 使用带缓冲的 channel
	r.subs[id] = ch

	cancelFunc := func() {
		r.subsLock.Lock()
		defer r.subsLock.Unlock()
		if ch, ok := r.subs[id]; ok {
			close(ch)
			delete(r.subs, id)
		}
	}

	return ch, cancelFunc
}

// publish 是一个内部方法，用于向所有订阅者广播一个事件。
func (r *Registry) publish(event Event) {
	r.subsLock.RLock()
	defer r.subsLock.RUnlock()

	for _, ch := range r.subs {
		e := event
		e.Object = event.Object.DeepCopyObject().(metav1.Object)
		select {
		case ch <- e:
			// 发送成功
		default:
			// Channel is full, discard event.
			// The informer's periodic resync will eventually
			// correct any inconsistencies caused by missed events.
			klog.Warningf("Registry event channel is full. Discarding event for key %s.", event.Key)
		}
	}
}

func (r *Registry) Create(ctx context.Context, obj metav1.Object) (metav1.Object, error) {
	gvk, err := util.GetGVK(obj, r.scheme)
	if err != nil {
		return nil, err
	}

	out := obj.DeepCopyObject().(metav1.Object)
	out.GetObjectKind().SetGroupVersionKind(gvk)
	meta := out.GetObjectMeta()
	if meta.Name == "" {
		return nil, apierrors.NewBadRequest("metadata.name is required")
	}
	if meta.Namespace == "" {
		meta.Namespace = util.DefaultNamespace
	}
	if err := ValidateObjectName(gvk, meta.Namespace, meta.Name); err != nil {
		return nil, err
	}

	r.writeLock.Lock()
	defer r.writeLock.Unlock()

	key := objectKey(gvk, meta.Namespace, meta.Name)
	if _, err := r.store.Get(key); err == nil {
		return nil, apierrors.NewAlreadyExists(groupResource(gvk), meta.Name)
	} else if !errors.Is(err, ErrKeyNotFound) {
		return nil, err
	}

	// 系统字段由 registry 填充
	meta.UID = uuid.NewString()
	meta.CreationTimestamp = k8smetav1.Now()
	meta.DeletionTimestamp = nil
	meta.Generation = 1

	if err := r.write(key, out); err != nil {
		return nil, err
	}

	klog.V(4).InfoS("Created object", "kind", gvk.Kind, "object", klog.KRef(meta.Namespace, meta.Name), "resourceVersion", meta.ResourceVersion)
	r.publish(Event{Type: watch.Added, Key: key, Object: out, ResourceVersion: meta.ResourceVersion})
	return out, nil
}

func (r *Registry) Get(ctx context.Context, gvk schema.GroupVersionKind, namespace, name string) (metav1.Object, error) {
	if namespace == "" {
		namespace = util.DefaultNamespace
	}
	if err := ValidateObjectName(gvk, namespace, name); err != nil {
		return nil, err
	}
	return r.get(gvk, objectKey(gvk, namespace, name), name)
}

func (r *Registry) List(ctx context.Context, gvk schema.GroupVersionKind, namespace string) ([]metav1.Object, string, error) {
	// 先读版本号，保证返回的版本号不会比列表中的对象更新
	rv, err := r.store.CurrentResourceVersion()
	if err != nil {
		return nil, "", err
	}

	prefix := kindPrefix(gvk)
	if namespace != "" {
		if msgs := validation.IsDNS1123Label(namespace); len(msgs) > 0 {
			return nil, "", apierrors.NewBadRequest(fmt.Sprintf("invalid namespace %q: %s", namespace, strings.Join(msgs, "; ")))
		}
		prefix = prefix + namespace + "/"
	}
	items, err := r.store.List(prefix)
	if err != nil {
		return nil, "", err
	}

	objs := make([]metav1.Object, 0, len(items))
	for _, data := range items {
		obj, err := r.decode(gvk, data)
		if err != nil {
			klog.Warningf("Skipping undecodable %s object: %v", gvk.Kind, err)
			continue
		}
		objs = append(objs, obj)
	}
	return objs, strconv.FormatUint(rv, 10), nil
}

func (r *Registry) Replace(ctx context.Context, obj metav1.Object, expectedResourceVersion string) (metav1.Object, error) {
	gvk, err := util.GetGVK(obj, r.scheme)
	if err != nil {
		return nil, err
	}
	if expectedResourceVersion == "" {
		return nil, apierrors.NewBadRequest("resourceVersion must be specified for a replace")
	}

	out := obj.DeepCopyObject().(metav1.Object)
	out.GetObjectKind().SetGroupVersionKind(gvk)
	meta := out.GetObjectMeta()
	if meta.Namespace == "" {
		meta.Namespace = util.DefaultNamespace
	}
	if err := ValidateObjectName(gvk, meta.Namespace, meta.Name); err != nil {
		return nil, err
	}
	gr := groupResource(gvk)

	r.writeLock.Lock()
	defer r.writeLock.Unlock()

	key := objectKey(gvk, meta.Namespace, meta.Name)
	current, err := r.get(gvk, key, meta.Name)
	if err != nil {
		return nil, err
	}
	currentMeta := current.GetObjectMeta()

	if currentMeta.ResourceVersion != expectedResourceVersion {
		return nil, apierrors.NewConflict(gr, meta.Name,
			fmt.Errorf("the object has been modified; expected resourceVersion %s but found %s", expectedResourceVersion, currentMeta.ResourceVersion))
	}

	// 系统字段以存储中的为准
	meta.UID = currentMeta.UID
	meta.CreationTimestamp = currentMeta.CreationTimestamp
	meta.DeletionTimestamp = currentMeta.DeletionTimestamp
	meta.Generation = currentMeta.Generation
	meta.ResourceVersion = currentMeta.ResourceVersion

	if currentMeta.DeletionTimestamp != nil {
		if added := sets.New(meta.Finalizers...).Difference(sets.New(currentMeta.Finalizers...)); added.Len() > 0 {
			return nil, apierrors.NewInvalid(gvk.GroupKind(), meta.Name, field.ErrorList{
				field.Forbidden(field.NewPath("metadata", "finalizers"), "no new finalizers can be added if the object is being deleted"),
			})
		}
		if len(meta.Finalizers) == 0 {
			// 最后一个 finalizer 被移除，对象被真正删除
			return out, r.remove(key, out)
		}
	}

	changed, specChanged, err := diff(current, out)
	if err != nil {
		return nil, err
	}
	if !changed {
		// 没有任何变化的写入不推进版本号，也不产生事件
		return current, nil
	}
	if specChanged {
		meta.Generation++
	}

	if err := r.write(key, out); err != nil {
		return nil, err
	}

	klog.V(4).InfoS("Replaced object", "kind", gvk.Kind, "object", klog.KRef(meta.Namespace, meta.Name), "resourceVersion", meta.ResourceVersion)
	r.publish(Event{Type: watch.Modified, Key: key, Object: out, ResourceVersion: meta.ResourceVersion})
	return out, nil
}

func (r *Registry) Delete(ctx context.Context, gvk schema.GroupVersionKind, namespace, name string) error {
	if namespace == "" {
		namespace = util.DefaultNamespace
	}
	if err := ValidateObjectName(gvk, namespace, name); err != nil {
		return err
	}

	r.writeLock.Lock()
	defer r.writeLock.Unlock()

	key := objectKey(gvk, namespace, name)
	current, err := r.get(gvk, key, name)
	if err != nil {
		return err
	}
	meta := current.GetObjectMeta()

	if len(meta.Finalizers) == 0 {
		return r.remove(key, current)
	}

	if meta.DeletionTimestamp != nil {
		// 已经在删除中，等待 finalizer 被移除
		return nil
	}

	now := k8smetav1.Now()
	meta.DeletionTimestamp = &now
	if err := r.write(key, current); err != nil {
		return err
	}

	klog.V(2).InfoS("Object marked for deletion", "kind", gvk.Kind, "object", klog.KRef(namespace, name), "finalizers", meta.Finalizers)
	r.publish(Event{Type: watch.Modified, Key: key, Object: current, ResourceVersion: meta.ResourceVersion})
	return nil
}

// write 推进全局版本号，并把对象写入 store。调用方必须持有 writeLock。
func (r *Registry) write(key string, obj metav1.Object) error {
	rv, err := r.store.NextResourceVersion()
	if err != nil {
		return fmt.Errorf("failed to allocate resource version: %w", err)
	}
	obj.GetObjectMeta().ResourceVersion = strconv.FormatUint(rv, 10)

	data, err := json.Marshal(obj)
	if err != nil {
		return fmt.Errorf("failed to marshal object to json: %w", err)
	}
	return r.store.Put(key, data)
}

// remove 从 store 中删除对象并广播 Deleted 事件。调用方必须持有 writeLock。
func (r *Registry) remove(key string, obj metav1.Object) error {
	rv, err := r.store.NextResourceVersion()
	if err != nil {
		return fmt.Errorf("failed to allocate resource version: %w", err)
	}
	if err := r.store.Delete(key); err != nil {
		return err
	}

	meta := obj.GetObjectMeta()
	meta.ResourceVersion = strconv.FormatUint(rv, 10)
	klog.V(2).InfoS("Deleted object", "object", klog.KRef(meta.Namespace, meta.Name))
	r.publish(Event{Type: watch.Deleted, Key: key, Object: obj, ResourceVersion: meta.ResourceVersion})
	return nil
}

func (r *Registry) get(gvk schema.GroupVersionKind, key, name string) (metav1.Object, error) {
	data, err := r.store.Get(key)
	if err != nil {
		if errors.Is(err, ErrKeyNotFound) {
			return nil, apierrors.NewNotFound(groupResource(gvk), name)
		}
		return nil, err
	}
	return r.decode(gvk, data)
}

func (r *Registry) decode(gvk schema.GroupVersionKind, data []byte) (metav1.Object, error) {
	newObj, err := r.scheme.New(gvk)
	if err != nil {
		return nil, err
	}
	obj, ok := newObj.(metav1.Object)
	if !ok {
		return nil, fmt.Errorf("type %T does not carry ObjectMeta", newObj)
	}
	if err := json.Unmarshal(data, obj); err != nil {
		return nil, fmt.Errorf("failed to unmarshal object: %w", err)
	}
	obj.GetObjectKind().SetGroupVersionKind(gvk)
	return obj, nil
}

// diff 比较两个对象序列化后的内容（忽略 resourceVersion），并单独判断 spec 是否变化。
func diff(current, updated metav1.Object) (changed bool, specChanged bool, err error) {
	currentMap, err := runtime.DefaultUnstructuredConverter.ToUnstructured(current)
	if err != nil {
		return false, false, err
	}
	updatedMap, err := runtime.DefaultUnstructuredConverter.ToUnstructured(updated)
	if err != nil {
		return false, false, err
	}
	changed = !equality.Semantic.DeepEqual(currentMap, updatedMap)
	specChanged = !equality.Semantic.DeepEqual(currentMap["spec"], updatedMap["spec"])
	return changed, specChanged, nil
}

func groupResource(gvk schema.GroupVersionKind) schema.GroupResource {
	return util.ResourceForKind(gvk).GroupResource()
}

// kindPrefix 返回某一类型所有对象共享的 key 前缀
func kindPrefix(gvk schema.GroupVersionKind) string {
	gvr := util.ResourceForKind(gvk)
	return path.Join(gvr.Group, gvr.Version, gvr.Resource) + "/"
}

func objectKey(gvk schema.GroupVersionKind, namespace, name string) string {
	return kindPrefix(gvk) + namespace + "/" + name
}
