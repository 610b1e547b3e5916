// Package operator 组装 operator 的两种运行模式：
// 本地模式（Registry + Informer + API Server）和 Kubernetes 模式（dynamic client watch）。
package operator

import (
	"strings"
	"time"

	samplev1 "github.com/fx147/operator-dispatcher/pkg/apis/sample/v1"
	"github.com/fx147/operator-dispatcher/pkg/controller"
	"k8s.io/apimachinery/pkg/runtime/schema"
	"k8s.io/apimachinery/pkg/util/validation"
	"k8s.io/apimachinery/pkg/util/validation/field"
)

const (
	StoreBolt = "bolt"
	StoreFile = "file"
)

// Options 是 operator 的运行参数，由 cmd/operator 从 viper 中读取
type Options struct {
	// Store 是本地模式的存储后端：bolt 或 file
	Store   string
	DBPath  string
	DataDir string

	Finalizer string
	// Namespace 为空时监听所有命名空间
	Namespace    string
	ResyncPeriod time.Duration

	// ListenAddress 是 API Server（本地模式）或 metrics 端点（Kubernetes 模式）的监听地址
	ListenAddress string

	// Kubeconfig 不为空时进入 Kubernetes 模式
	Kubeconfig string
	Group      string
	Version    string
	Resource   string
}

// NewOptions 返回带默认值的 Options
func NewOptions() *Options {
	return &Options{
		Store:         StoreBolt,
		DBPath:        "operator.db",
		DataDir:       "data",
		Finalizer:     controller.DefaultFinalizer,
		ResyncPeriod:  30 * time.Second,
		ListenAddress: ":8080",
		Group:         samplev1.GroupName,
		Version:       samplev1.SchemeGroupVersion.Version,
		Resource:      samplev1.CustomServiceResource,
	}
}

// Validate 一次性返回所有非法的参数
func (o *Options) Validate() error {
	var errs field.ErrorList
	switch o.Store {
	case StoreBolt:
		if o.DBPath == "" {
			errs = append(errs, field.Required(field.NewPath("db-path"), "required by the bolt store"))
		}
	case StoreFile:
		if o.DataDir == "" {
			errs = append(errs, field.Required(field.NewPath("data-dir"), "required by the file store"))
		}
	default:
		errs = append(errs, field.NotSupported(field.NewPath("store"), o.Store, []string{StoreBolt, StoreFile}))
	}
	if msgs := validation.IsQualifiedName(o.Finalizer); len(msgs) > 0 {
		errs = append(errs, field.Invalid(field.NewPath("finalizer"), o.Finalizer, strings.Join(msgs, "; ")))
	}
	if o.ResyncPeriod <= 0 {
		errs = append(errs, field.Invalid(field.NewPath("resync-period"), o.ResyncPeriod.String(), "must be positive"))
	}
	if o.Version == "" {
		errs = append(errs, field.Required(field.NewPath("version"), ""))
	}
	return errs.ToAggregate()
}

// KubeMode 判断是否运行在 Kubernetes 模式
func (o *Options) KubeMode() bool {
	return o.Kubeconfig != ""
}

// GroupVersionKind 返回 Kubernetes 模式下要监听的 kind
func (o *Options) GroupVersionKind() schema.GroupVersionKind {
	return schema.GroupVersionKind{Group: o.Group, Version: o.Version, Kind: samplev1.CustomServiceKind}
}
