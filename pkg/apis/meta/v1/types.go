package v1

import (
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/apimachinery/pkg/runtime/schema"
)

// 描述了资源的类型
type TypeMeta struct {
	// 此对象所表示的REST资源
	// +required
	Kind string `json:"kind,omitempty"`

	// 定义了此对象表示的版本，例如"sample.fx147.io/v1"
	// +required
	APIVersion string `json:"apiVersion,omitempty"`
}

// 描述一个资源实例所需要的元数据
type ObjectMeta struct {
	// 用户创建资源实例时指定的名称，同一命名空间下唯一
	// +required
	Name string `json:"name"`

	// 资源所属的命名空间，为空时由 registry 填充为 default
	// +optional
	Namespace string `json:"namespace,omitempty"`

	// 资源实例的唯一标识符，由系统自动生成
	// +readonly
	UID string `json:"uid,omitempty"`

	// 用于筛选和选择对象的标签键值对
	// +optional
	Labels map[string]string `json:"labels,omitempty"`

	// 用于附加任意非标识性元数据的键值对
	// +optional
	Annotations map[string]string `json:"annotations,omitempty"`

	// 不透明的版本号，用于实现乐观并发控制。
	// 每次写入都会推进；Replace 时必须带上读取时看到的值，不一致即为冲突。
	// +readonly
	ResourceVersion string `json:"resourceVersion,omitempty"`

	// Generation 在 spec 发生变化时递增
	// +readonly
	Generation int64 `json:"generation,omitempty"`

	// 创建时间
	// +readonly
	CreationTimestamp metav1.Time `json:"creationTimestamp,omitempty"`

	// 删除时间，如果不为nil，表示对象正在被删除。
	// 只要 Finalizers 不为空，对象就不会被真正删除。
	// +readonly
	DeletionTimestamp *metav1.Time `json:"deletionTimestamp,omitempty"`

	// Finalizers 是一组不透明的令牌，每个令牌代表一项尚未完成的清理工作。
	// 列表清空之前，处于删除中的对象会一直保留。
	// +optional
	Finalizers []string `json:"finalizers,omitempty"`
}

// ListMeta 包含了列表（集合）资源所需的元数据。
type ListMeta struct {
	// ResourceVersion 是 List 时 registry 的全局版本号。
	// +optional
	ResourceVersion string `json:"resourceVersion,omitempty"`

	// Continue 是一个不透明的令牌，用于从服务器获取下一页的结果。
	// 暂不支持分页，保留字段。
	// +optional
	Continue string `json:"continue,omitempty"`
}

// ConditionStatus 是 Condition的状态
type ConditionStatus string

const (
	ConditionStatusTrue    ConditionStatus = "True"
	ConditionStatusFalse   ConditionStatus = "False"
	ConditionStatusUnknown ConditionStatus = "Unknown"
)

type Condition struct {
	// Type 是condition的类型，例如Ready
	// +required
	Type string `json:"type,omitempty"`
	// Status 是condition的状态
	// +required
	Status ConditionStatus `json:"status,omitempty"`
	// LastTransitionTime 是condition最后一次转换的时间
	// +optional
	LastTransitionTime metav1.Time `json:"lastTransitionTime,omitempty"`
	// Reason 是condition转换的原因
	// +optional
	Reason string `json:"reason,omitempty"`
	// Message 是人类可读的详细信息
	// +optional
	Message string `json:"message,omitempty"`
}

// Object 是所有带 ObjectMeta 的 API 对象都满足的接口。
// dispatcher、registry 和 informer 都只依赖这个接口，不需要反射。
type Object interface {
	runtime.Object
	GetObjectMeta() *ObjectMeta
}

// GetObjectMeta 返回元数据本身。
// 资源类型内嵌 ObjectMeta 后即自动实现 Object 接口。
func (m *ObjectMeta) GetObjectMeta() *ObjectMeta {
	return m
}

// GetObjectKind 返回一个指向该对象类型信息的指针。
// 因为 *TypeMeta 实现了 schema.ObjectKind 接口，所以可以直接返回自身。
func (t *TypeMeta) GetObjectKind() schema.ObjectKind {
	return t
}

// SetGroupVersionKind 为对象设置 GroupVersionKind 信息。
func (t *TypeMeta) SetGroupVersionKind(gvk schema.GroupVersionKind) {
	t.APIVersion, t.Kind = gvk.ToAPIVersionAndKind()
}

// GroupVersionKind 返回对象的 GroupVersionKind。
// 如果 APIVersion 或 Kind 为空，它可能返回不完整的 GVK。
func (t *TypeMeta) GroupVersionKind() schema.GroupVersionKind {
	return schema.FromAPIVersionAndKind(t.APIVersion, t.Kind)
}

// FindCondition 按类型查找 condition，找不到时返回 nil。
func FindCondition(conditions []Condition, conditionType string) *Condition {
	for i := range conditions {
		if conditions[i].Type == conditionType {
			return &conditions[i]
		}
	}
	return nil
}

// SetCondition 更新或追加一个 condition。
// 只有 Status 真的变化时才刷新 LastTransitionTime，这样重复调谐写出的对象保持不变。
func SetCondition(conditions *[]Condition, newCondition Condition) {
	existing := FindCondition(*conditions, newCondition.Type)
	if existing == nil {
		if newCondition.LastTransitionTime.IsZero() {
			newCondition.LastTransitionTime = metav1.Now()
		}
		*conditions = append(*conditions, newCondition)
		return
	}

	if existing.Status != newCondition.Status {
		existing.Status = newCondition.Status
		if newCondition.LastTransitionTime.IsZero() {
			existing.LastTransitionTime = metav1.Now()
		} else {
			existing.LastTransitionTime = newCondition.LastTransitionTime
		}
	}
	existing.Reason = newCondition.Reason
	existing.Message = newCondition.Message
}
