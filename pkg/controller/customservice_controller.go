// file: pkg/controller/customservice_controller.go

package controller

import (
	"context"
	"errors"
	"fmt"
	"strings"

	metav1 "github.com/fx147/operator-dispatcher/pkg/apis/meta/v1"
	samplev1 "github.com/fx147/operator-dispatcher/pkg/apis/sample/v1"
	"github.com/fx147/operator-dispatcher/pkg/dispatcher"
	"github.com/fx147/operator-dispatcher/pkg/util"
	"k8s.io/apimachinery/pkg/util/validation"
)

const (
	// DefaultFinalizer 是 CustomService 控制器使用的 finalizer
	DefaultFinalizer = "sample.fx147.io/backend-cleanup"

	reasonServiceReady = "ServiceReady"
	reasonInvalidSpec  = "InvalidSpec"
)

// CustomServiceController 负责确保 Backend 中的服务与 CustomService 的 spec 保持一致，
// 并在对象被删除时清理 Backend 中的服务。
type CustomServiceController struct {
	backend Backend
}

var _ dispatcher.Controller[*samplev1.CustomService] = &CustomServiceController{}

func NewCustomServiceController(backend Backend) *CustomServiceController {
	return &CustomServiceController{backend: backend}
}

func (c *CustomServiceController) CreateOrUpdate(ctx context.Context, svc *samplev1.CustomService, dc *dispatcher.Context[*samplev1.CustomService]) (*samplev1.CustomService, error) {
	key := util.ObjectKey(svc)
	dc.Logger.V(4).Info("Reconciling CustomService", "generation", svc.Generation)

	svc.Status.ObservedGeneration = svc.Generation

	if errs := validateSpec(svc.Spec); len(errs) > 0 {
		// spec 不合法时不重试，把原因写进 status
		svc.Status.Phase = samplev1.CustomServicePhaseFailed
		svc.Status.Endpoint = ""
		metav1.SetCondition(&svc.Status.Conditions, metav1.Condition{
			Type:    samplev1.ConditionTypeReady,
			Status:  metav1.ConditionStatusFalse,
			Reason:  reasonInvalidSpec,
			Message: strings.Join(errs, "; "),
		})
		return svc, nil
	}

	endpoint, err := c.backend.Ensure(ctx, key, BackendService{
		Name:  serviceName(svc),
		Label: svc.Spec.Label,
		Port:  svc.Spec.Port,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to ensure backend service %s: %w", key, err)
	}

	svc.Status.Phase = samplev1.CustomServicePhaseReady
	svc.Status.Endpoint = endpoint
	metav1.SetCondition(&svc.Status.Conditions, metav1.Condition{
		Type:    samplev1.ConditionTypeReady,
		Status:  metav1.ConditionStatusTrue,
		Reason:  reasonServiceReady,
		Message: fmt.Sprintf("service is reachable at %s", endpoint),
	})
	return svc, nil
}

// Delete 删除 Backend 中的服务。服务已经不存在时视为成功。
func (c *CustomServiceController) Delete(ctx context.Context, svc *samplev1.CustomService, dc *dispatcher.Context[*samplev1.CustomService]) error {
	key := util.ObjectKey(svc)
	if err := c.backend.Remove(ctx, key); err != nil {
		if errors.Is(err, ErrServiceNotFound) {
			dc.Logger.V(2).Info("Backend service already removed")
			return nil
		}
		return fmt.Errorf("failed to remove backend service %s: %w", key, err)
	}
	dc.Logger.Info("Removed backend service")
	return nil
}

func serviceName(svc *samplev1.CustomService) string {
	if svc.Spec.ServiceName != "" {
		return svc.Spec.ServiceName
	}
	return svc.Name
}

func validateSpec(spec samplev1.CustomServiceSpec) []string {
	var errs []string
	if spec.ServiceName != "" {
		errs = append(errs, validation.IsDNS1123Label(spec.ServiceName)...)
	}
	if spec.Port != 0 {
		errs = append(errs, validation.IsValidPortNum(int(spec.Port))...)
	}
	return errs
}
