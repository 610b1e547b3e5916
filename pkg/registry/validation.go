package registry

import (
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	"k8s.io/apimachinery/pkg/runtime/schema"
	"k8s.io/apimachinery/pkg/util/validation"
	"k8s.io/apimachinery/pkg/util/validation/field"
)

// ValidateObjectName 校验对象的命名空间和名称。
// 二者都是 store key 的一部分（FileStore 会把 key 映射为文件路径），
// 所以名称必须是 DNS-1123 subdomain，命名空间必须是 DNS-1123 label。
func ValidateObjectName(gvk schema.GroupVersionKind, namespace, name string) error {
	metaPath := field.NewPath("metadata")

	var errs field.ErrorList
	for _, msg := range validation.IsDNS1123Subdomain(name) {
		errs = append(errs, field.Invalid(metaPath.Child("name"), name, msg))
	}
	for _, msg := range validation.IsDNS1123Label(namespace) {
		errs = append(errs, field.Invalid(metaPath.Child("namespace"), namespace, msg))
	}
	if len(errs) == 0 {
		return nil
	}
	return apierrors.NewInvalid(gvk.GroupKind(), name, errs)
}
