package clientset

import (
	"net/http"

	samplev1 "github.com/fx147/operator-dispatcher/pkg/apis/sample/v1"
	"github.com/fx147/operator-dispatcher/pkg/client/rest"
)

type Interface interface {
	RESTClient() rest.Interface
	CustomServiceGetter
}

var _ Interface = &Clientset{}

type Clientset struct {
	restClient *rest.RESTClient
}

// NewClientset 创建一个新的 Clientset 实例，用于与 operator API Server 交互
func NewClientset(protocol, host, port string, httpClient *http.Client) (*Clientset, error) {
	restClient, err := rest.NewRESTClient(protocol, host, port, samplev1.SchemeGroupVersion, httpClient)
	if err != nil {
		return nil, err
	}
	return NewForRESTClient(restClient), nil
}

// NewForRESTClient 基于已有的 REST 客户端创建 Clientset
func NewForRESTClient(restClient *rest.RESTClient) *Clientset {
	return &Clientset{restClient: restClient}
}

// RESTClient 返回底层的 REST 客户端
func (c *Clientset) RESTClient() rest.Interface {
	return c.restClient
}

// CustomServices 返回 CustomServiceInterface，用于操作 CustomService 资源
func (c *Clientset) CustomServices() CustomServiceInterface {
	return newCustomServices(c.restClient)
}
