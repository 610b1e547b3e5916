package clientset

import (
	samplev1 "github.com/fx147/operator-dispatcher/pkg/apis/sample/v1"
	"github.com/fx147/operator-dispatcher/pkg/client/rest"
)

type CustomServiceGetter interface {
	CustomServices() CustomServiceInterface
}

// CustomServiceInterface 提供了所有操作 CustomService 资源的方法。
type CustomServiceInterface = ResourceInterface[*samplev1.CustomService, *samplev1.CustomServiceList]

func newCustomServices(restClient rest.Interface) CustomServiceInterface {
	return &resourceClient[*samplev1.CustomService, *samplev1.CustomServiceList]{
		restClient: restClient,
		resource:   samplev1.CustomServiceResource,
		newObject:  func() *samplev1.CustomService { return &samplev1.CustomService{} },
		newList:    func() *samplev1.CustomServiceList { return &samplev1.CustomServiceList{} },
	}
}
