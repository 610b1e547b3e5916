package rest

import (
	"fmt"
	"net/http"
	"net/url"

	"k8s.io/apimachinery/pkg/runtime/schema"
)

const defaultAPIPath = "apis"

type Interface interface {
	Verb(verb string) *Request
	Get() *Request
	Put() *Request
	Post() *Request
	Delete() *Request
	APIVersion() schema.GroupVersion
}

var _ Interface = &RESTClient{}

// RESTClient 是与 operator API Server 交互的客户端，绑定到一个 GroupVersion。
type RESTClient struct {
	baseURL      *url.URL
	httpClient   *http.Client
	groupVersion schema.GroupVersion
	apiPath      string
}

// NewRESTClient 创建一个新的客户端实例。
func NewRESTClient(protocol, host, port string, gv schema.GroupVersion, httpClient *http.Client) (*RESTClient, error) {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if gv.Version == "" {
		return nil, fmt.Errorf("group version %q has no version", gv.String())
	}

	baseURLStr := fmt.Sprintf("%s://%s:%s", protocol, host, port)
	baseURL, err := url.Parse(baseURLStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse base url: %w", err)
	}
	if baseURL.Host == "" {
		return nil, fmt.Errorf("invalid host in base url %q", baseURLStr)
	}

	return &RESTClient{
		baseURL:      baseURL,
		httpClient:   httpClient,
		groupVersion: gv,
		apiPath:      defaultAPIPath,
	}, nil
}

func (c *RESTClient) Verb(verb string) *Request {
	return NewRequest(c).Verb(verb)
}

// Post begins a POST request. Short for c.Verb("POST").
func (c *RESTClient) Post() *Request {
	return c.Verb(http.MethodPost)
}

// Put begins a PUT request. Short for c.Verb("PUT").
func (c *RESTClient) Put() *Request {
	return c.Verb(http.MethodPut)
}

// Get begins a GET request. Short for c.Verb("GET").
func (c *RESTClient) Get() *Request {
	return c.Verb(http.MethodGet)
}

// Delete begins a DELETE request. Short for c.Verb("DELETE").
func (c *RESTClient) Delete() *Request {
	return c.Verb(http.MethodDelete)
}

// APIVersion returns the GroupVersion this RESTClient is expected to use.
func (c *RESTClient) APIVersion() schema.GroupVersion {
	return c.groupVersion
}
