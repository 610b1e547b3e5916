// file: pkg/client/rest/request.go

package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"

	"k8s.io/klog/v2"
)

// Request 允许以链式方式构建请求。
// 生成的路径为 /apis/{group}/{version}[/namespaces/{namespace}]/{resource}[/{name}]
type Request struct {
	c            *RESTClient
	verb         string
	namespace    string
	namespaceSet bool
	resource     string
	resourceName string
	body         interface{}
	err          error
	params       url.Values
}

func NewRequest(c *RESTClient) *Request {
	return &Request{
		c: c,
	}
}

// Verb 指定 HTTP 方法 (e.g., "GET", "POST")。
func (r *Request) Verb(verb string) *Request {
	r.verb = verb
	return r
}

// Namespace 指定资源所在的命名空间，为空时表示所有命名空间。
func (r *Request) Namespace(namespace string) *Request {
	if r.err != nil {
		return r
	}
	if r.namespaceSet {
		r.err = fmt.Errorf("namespace already set to %q, cannot change to %q", r.namespace, namespace)
		return r
	}
	r.namespaceSet = true
	r.namespace = namespace
	return r
}

// Resource 指定要操作的资源 (e.g., "customservices")。
func (r *Request) Resource(resource string) *Request {
	if r.err != nil {
		return r
	}
	r.resource = resource
	return r
}

// Name 指定要操作的资源的具体名称。
func (r *Request) Name(name string) *Request {
	if r.err != nil {
		return r
	}
	if len(name) == 0 {
		r.err = fmt.Errorf("resource name may not be empty")
		return r
	}
	if len(r.resourceName) != 0 {
		r.err = fmt.Errorf("resource name already set to %q, cannot change to %q", r.resourceName, name)
		return r
	}
	r.resourceName = name
	return r
}

// Body 设置请求体。传入的 obj 会被序列化为 JSON。
func (r *Request) Body(obj interface{}) *Request {
	if r.err != nil {
		return r
	}
	r.body = obj
	return r
}

// Param 向请求添加一个 URL Query 参数。
func (r *Request) Param(key, value string) *Request {
	if r.err != nil {
		return r
	}
	if r.params == nil {
		r.params = make(url.Values)
	}
	r.params.Add(key, value)
	return r
}

// URL 返回请求的完整 URL
func (r *Request) URL() *url.URL {
	gv := r.c.groupVersion
	p := path.Join("/", r.c.apiPath, gv.Group, gv.Version)
	if r.namespace != "" {
		p = path.Join(p, "namespaces", r.namespace)
	}
	p = path.Join(p, r.resource)
	if r.resourceName != "" {
		p = path.Join(p, r.resourceName)
	}
	fullURL := r.c.baseURL.ResolveReference(&url.URL{Path: p})

	if len(r.params) > 0 {
		fullURL.RawQuery = r.params.Encode()
	}
	return fullURL
}

// Do 执行请求并返回一个 Result 对象。
func (r *Request) Do(ctx context.Context) *Result {
	if r.err != nil {
		return &Result{err: r.err}
	}
	if r.resource == "" {
		return &Result{err: fmt.Errorf("resource must be set")}
	}

	fullURL := r.URL()

	var bodyReader io.Reader
	if r.body != nil {
		data, err := json.Marshal(r.body)
		if err != nil {
			r.err = fmt.Errorf("failed to marshal body: %w", err)
			return &Result{err: r.err}
		}
		bodyReader = bytes.NewBuffer(data)
	}

	req, err := http.NewRequestWithContext(ctx, r.verb, fullURL.String(), bodyReader)
	if err != nil {
		r.err = fmt.Errorf("failed to create request: %w", err)
		return &Result{err: r.err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	klog.V(4).InfoS("Executing request", "method", req.Method, "url", req.URL)
	resp, err := r.c.httpClient.Do(req)
	if err != nil {
		r.err = fmt.Errorf("request failed: %w", err)
		return &Result{err: r.err}
	}

	return &Result{
		body:       resp.Body,
		statusCode: resp.StatusCode,
		verb:       r.verb,
		resource:   r.resource,
		name:       r.resourceName,
	}
}
