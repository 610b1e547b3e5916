package registry

import "errors"

// ErrKeyNotFound 由 Store 在 key 不存在时返回
var ErrKeyNotFound = errors.New("key not found")

// Store 是我们对持久化层的核心抽象接口。
// 它只负责按 key 读写序列化后的对象，并维护一个全局递增的版本号；
// 版本校验、删除语义和事件广播都由 Registry 完成。
type Store interface {
	// Get 读取 key 对应的数据，不存在时返回 ErrKeyNotFound。
	Get(key string) ([]byte, error)

	// Put 写入 key 对应的数据。
	Put(key string, data []byte) error

	// Delete 删除 key，key 不存在时不报错。
	Delete(key string) error

	// List 按 key 的字典序返回所有以 prefix 开头的数据。
	List(prefix string) ([][]byte, error)

	// NextResourceVersion 原子性地递增并返回全局 resourceVersion。
	NextResourceVersion() (uint64, error)

	// CurrentResourceVersion 返回当前的全局 resourceVersion。
	CurrentResourceVersion() (uint64, error)

	// Close 释放底层资源。
	Close() error
}
