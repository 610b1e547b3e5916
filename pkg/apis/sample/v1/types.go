package v1

import metav1 "github.com/fx147/operator-dispatcher/pkg/apis/meta/v1"

const (
	// CustomServiceKind 是 CustomService 的 Kind 名称
	CustomServiceKind = "CustomService"
	// CustomServiceResource 是 CustomService 在 REST 路径中使用的复数资源名
	CustomServiceResource = "customservices"
)

// +k8s:deepcopy-gen:interfaces=k8s.io/apimachinery/pkg/runtime.Object

// CustomService 是 operator 自带的示例资源，描述一个需要在后端维护的服务
type CustomService struct {
	metav1.TypeMeta   `json:",inline"`
	metav1.ObjectMeta `json:"metadata,omitempty"`

	Spec   CustomServiceSpec   `json:"spec,omitempty"`
	Status CustomServiceStatus `json:"status,omitempty"`
}

// +k8s:deepcopy-gen:interfaces=k8s.io/apimachinery/pkg/runtime.Object

// CustomServiceList 包含 CustomService 的列表
type CustomServiceList struct {
	metav1.TypeMeta `json:",inline"`
	metav1.ListMeta `json:"metadata,omitempty"`
	Items           []CustomService `json:"items"`
}

// CustomServiceSpec 定义了服务的期望状态
type CustomServiceSpec struct {
	// ServiceName 是后端中服务的名称，为空时使用对象名
	// +optional
	ServiceName string `json:"serviceName,omitempty"`

	// Label 会被附加到后端服务上
	// +optional
	Label string `json:"label,omitempty"`

	// Port 是服务对外暴露的端口
	// +optional
	Port int32 `json:"port,omitempty"`
}

type CustomServicePhase string

const (
	CustomServicePhasePending CustomServicePhase = "Pending"
	CustomServicePhaseReady   CustomServicePhase = "Ready"
	CustomServicePhaseFailed  CustomServicePhase = "Failed"
)

// ConditionTypeReady 表示后端服务已经就绪
const ConditionTypeReady = "Ready"

// CustomServiceStatus 定义了 CustomService 的观测状态
type CustomServiceStatus struct {
	// ObservedGeneration 是控制器最近一次处理的 metadata.generation
	// +optional
	ObservedGeneration int64 `json:"observedGeneration,omitempty"`

	// Phase 是服务的总体状态
	// +optional
	Phase CustomServicePhase `json:"phase,omitempty"`

	// Endpoint 是后端返回的访问地址
	// +optional
	Endpoint string `json:"endpoint,omitempty"`

	// Conditions 提供了标准的机制来报告服务的当前状态
	// +optional
	Conditions []metav1.Condition `json:"conditions,omitempty"`
}
