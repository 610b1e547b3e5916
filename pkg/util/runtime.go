package util

import (
	"fmt"
	"reflect"
	"strings"

	metav1 "github.com/fx147/operator-dispatcher/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/apimachinery/pkg/runtime/schema"
	"k8s.io/client-go/tools/cache"
	"k8s.io/klog/v2"
)

// DefaultNamespace 是未指定命名空间时使用的命名空间
const DefaultNamespace = "default"

// GetGVK 返回对象的 GVK。
// 对象自身的 TypeMeta 为空时，从 scheme 中查找注册的类型信息。
func GetGVK(obj runtime.Object, scheme *runtime.Scheme) (schema.GroupVersionKind, error) {
	gvk := obj.GetObjectKind().GroupVersionKind()
	if !gvk.Empty() && gvk.Kind != "" {
		return gvk, nil
	}
	if scheme == nil {
		return schema.GroupVersionKind{}, fmt.Errorf("object %T has no kind information and no scheme was provided", obj)
	}

	gvks, _, err := scheme.ObjectKinds(obj)
	if err != nil {
		return schema.GroupVersionKind{}, err
	}
	return gvks[0], nil
}

// ResourceForKind 按照 "小写 kind + s" 的约定推导出资源名。
func ResourceForKind(gvk schema.GroupVersionKind) schema.GroupVersionResource {
	kind := strings.TrimSuffix(gvk.Kind, "List")
	return gvk.GroupVersion().WithResource(strings.ToLower(kind) + "s")
}

// ObjectKey 返回 "namespace/name" 形式的 key
func ObjectKey(obj metav1.Object) string {
	meta := obj.GetObjectMeta()
	return cache.NewObjectName(meta.Namespace, meta.Name).String()
}

// ObjectRef 返回用于结构化日志的对象引用。
// obj 为 nil（包括带类型的 nil 指针）时返回空引用。
func ObjectRef(obj metav1.Object) klog.ObjectRef {
	if IsNil(obj) {
		return klog.ObjectRef{}
	}
	meta := obj.GetObjectMeta()
	return klog.KRef(meta.Namespace, meta.Name)
}

// IsNil 判断接口值是否为 nil，带类型的 nil 指针也视为 nil。
func IsNil(obj interface{}) bool {
	if obj == nil {
		return true
	}
	val := reflect.ValueOf(obj)
	switch val.Kind() {
	case reflect.Ptr, reflect.Interface, reflect.Map, reflect.Slice:
		return val.IsNil()
	}
	return false
}
