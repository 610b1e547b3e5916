// Package watch 定义了 watch 事件的动作类型和事件处理器的契约。
// registry/informer 与 Kubernetes 适配层都通过它把事件交给 dispatcher。
package watch

import (
	metav1 "github.com/fx147/operator-dispatcher/pkg/apis/meta/v1"
)

// Action 定义了事件的类型
type Action string

const (
	Added    Action = "ADDED"
	Modified Action = "MODIFIED"
	Deleted  Action = "DELETED"
	// Error 表示 watch 流本身的错误，而不是某个资源的状态
	Error Action = "ERROR"
)

// Actions 按固定顺序返回全部已知的动作
func Actions() []Action {
	return []Action{Added, Modified, Deleted, Error}
}

// Handler 接收一个 watch 流上的事件。
// 事件按顺序逐个投递，前一个事件处理完成之前不会投递下一个。
type Handler interface {
	// OnEvent 处理一个事件。Deleted 和 Error 事件的 obj 可能为 nil。
	OnEvent(action Action, obj metav1.Object)
	// OnClose 在 watch 流结束时调用，err 为 nil 表示正常关闭。
	OnClose(err error)
}

// HandlerFuncs 是 Handler 的函数适配器，未设置的回调会被忽略。
type HandlerFuncs struct {
	EventFunc func(action Action, obj metav1.Object)
	CloseFunc func(err error)
}

var _ Handler = HandlerFuncs{}

func (h HandlerFuncs) OnEvent(action Action, obj metav1.Object) {
	if h.EventFunc != nil {
		h.EventFunc(action, obj)
	}
}

func (h HandlerFuncs) OnClose(err error) {
	if h.CloseFunc != nil {
		h.CloseFunc(err)
	}
}
