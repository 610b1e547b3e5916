package apiserver

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	apierrors "k8s.io/apimachinery/pkg/api/errors"
	k8smetav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	utilruntime "k8s.io/apimachinery/pkg/util/runtime"
)

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		utilruntime.HandleError(err)
	}
}

// writeError 把错误序列化为 metav1.Status，客户端可以用 apierrors.FromObject 还原
func writeError(w http.ResponseWriter, err error) {
	var apiStatus apierrors.APIStatus
	if !errors.As(err, &apiStatus) {
		apiStatus = apierrors.NewInternalError(err)
	}
	status := apiStatus.Status()
	status.Kind = "Status"
	status.APIVersion = "v1"
	if status.Code == 0 {
		status.Code = http.StatusInternalServerError
	}
	writeJSON(w, int(status.Code), &status)
}

func successStatus(message string) k8smetav1.Status {
	return k8smetav1.Status{
		TypeMeta: k8smetav1.TypeMeta{Kind: "Status", APIVersion: "v1"},
		Status:   k8smetav1.StatusSuccess,
		Code:     http.StatusOK,
		Message:  message,
	}
}

func notFoundPath(path string) error {
	return &apierrors.StatusError{ErrStatus: k8smetav1.Status{
		Status:  k8smetav1.StatusFailure,
		Code:    http.StatusNotFound,
		Reason:  k8smetav1.StatusReasonNotFound,
		Message: fmt.Sprintf("the server could not find the requested resource (%s)", path),
	}}
}
