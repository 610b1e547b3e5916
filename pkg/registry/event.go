// file: pkg/registry/event.go

package registry

import (
	metav1 "github.com/fx147/operator-dispatcher/pkg/apis/meta/v1"
	"github.com/fx147/operator-dispatcher/pkg/watch"
)

// Event 是一个描述 API 对象变更的事件。
type Event struct {
	Type watch.Action
	// Key 是对象在 store 中的完整 key，例如 "sample.fx147.io/v1/customservices/default/my-app"
	Key string
	// Object 是事件关联的对象（订阅者之间不共享）
	Object metav1.Object
	// ResourceVersion 是变更后对象的 resourceVersion
	ResourceVersion string
}
