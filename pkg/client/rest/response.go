package rest

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	apierrors "k8s.io/apimachinery/pkg/api/errors"
	k8smetav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime/schema"
)

// Result 封装了请求的结果。
type Result struct {
	body       io.ReadCloser
	statusCode int
	err        error

	verb     string
	resource string
	name     string
}

// StatusCode 返回 HTTP 状态码，请求没有发出时为 0
func (r *Result) StatusCode() int {
	return r.statusCode
}

// Error 返回请求的错误，非 2xx 的响应会被转换为 apierrors.StatusError
func (r *Result) Error() error {
	_, err := r.Raw()
	return err
}

// Into 解码响应体到传入的 obj 对象中。
func (r *Result) Into(obj interface{}) error {
	data, err := r.Raw()
	if err != nil {
		return err
	}

	// 如果请求成功，但没有 body 或者调用者不关心，则直接返回
	if obj == nil || len(data) == 0 || string(data) == "null" {
		return nil
	}

	if err := json.Unmarshal(data, obj); err != nil {
		return fmt.Errorf("failed to unmarshal response into object: %w", err)
	}
	return nil
}

// Raw 读取并返回原始的响应体 []byte。
// 注意：这个操作会消耗掉响应体，只能调用一次。
func (r *Result) Raw() ([]byte, error) {
	if r.err != nil {
		return nil, r.err
	}
	if r.body == nil {
		return nil, fmt.Errorf("response body already consumed")
	}
	defer func() {
		r.body.Close()
		r.body = nil
	}()

	data, err := io.ReadAll(r.body)
	if err != nil {
		r.err = fmt.Errorf("failed to read response body: %w", err)
		return nil, r.err
	}

	if r.statusCode < http.StatusOK || r.statusCode >= http.StatusMultipleChoices {
		r.err = r.transformError(data)
		return nil, r.err
	}
	return data, nil
}

// transformError 把服务端返回的 metav1.Status 还原为 apierrors.StatusError，
// 这样 apierrors.IsConflict / IsNotFound 在客户端同样可用。
func (r *Result) transformError(data []byte) error {
	status := &k8smetav1.Status{}
	if err := json.Unmarshal(data, status); err == nil && status.Kind == "Status" {
		return apierrors.FromObject(status)
	}

	// 不是 Status 对象时，按状态码构造一个通用错误
	return apierrors.NewGenericServerResponse(
		r.statusCode,
		r.verb,
		schema.GroupResource{Resource: r.resource},
		r.name,
		string(data),
		0,
		true,
	)
}
