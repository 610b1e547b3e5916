package util

import (
	"context"

	samplev1 "github.com/fx147/operator-dispatcher/pkg/apis/sample/v1"
	"github.com/fx147/operator-dispatcher/pkg/client/clientset"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
)

// ApplyResult 描述 Apply 对一个对象做了什么
type ApplyResult string

const (
	Created    ApplyResult = "created"
	Configured ApplyResult = "configured"
)

// Apply 创建或更新一个 CustomService。
// 已存在的对象只更新 spec、labels 和 annotations，finalizers 和 status 保持服务端的值。
func Apply(ctx context.Context, client clientset.CustomServiceInterface, desired *samplev1.CustomService) (ApplyResult, error) {
	current, err := client.Get(ctx, desired.Namespace, desired.Name)
	if apierrors.IsNotFound(err) {
		if _, err := client.Create(ctx, desired); err != nil {
			return "", err
		}
		return Created, nil
	}
	if err != nil {
		return "", err
	}

	updated := current.DeepCopy()
	updated.Spec = desired.Spec
	updated.Labels = desired.Labels
	updated.Annotations = desired.Annotations
	if _, err := client.Replace(ctx, updated, current.ResourceVersion); err != nil {
		return "", err
	}
	return Configured, nil
}
