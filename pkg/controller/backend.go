package controller

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
)

// ErrServiceNotFound 由 Backend.Remove 在服务不存在时返回
var ErrServiceNotFound = errors.New("backend service not found")

// BackendService 是 CustomService 在后端中的表示
type BackendService struct {
	Name  string
	Label string
	Port  int32
}

// Backend 是 CustomService 真正落地的地方（现实世界）。
type Backend interface {
	// Ensure 创建或更新 key 对应的服务，返回它的访问地址。
	Ensure(ctx context.Context, key string, svc BackendService) (string, error)
	// Remove 删除 key 对应的服务，服务不存在时返回 ErrServiceNotFound。
	Remove(ctx context.Context, key string) error
}

// MemoryBackend 是一个进程内的 Backend 实现，用于本地运行和测试。
type MemoryBackend struct {
	mu       sync.RWMutex
	services map[string]BackendService
	domain   string
}

var _ Backend = &MemoryBackend{}

// NewMemoryBackend 创建一个 MemoryBackend，domain 用于拼接访问地址
func NewMemoryBackend(domain string) *MemoryBackend {
	if domain == "" {
		domain = "svc.local"
	}
	return &MemoryBackend{services: make(map[string]BackendService), domain: domain}
}

func (b *MemoryBackend) Ensure(ctx context.Context, key string, svc BackendService) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.services[key] = svc
	return fmt.Sprintf("%s.%s:%d", svc.Name, b.domain, svc.Port), nil
}

func (b *MemoryBackend) Remove(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.services[key]; !ok {
		return ErrServiceNotFound
	}
	delete(b.services, key)
	return nil
}

// Get 返回 key 对应的服务
func (b *MemoryBackend) Get(key string) (BackendService, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	svc, ok := b.services[key]
	return svc, ok
}

// Keys 按字典序返回所有服务的 key
func (b *MemoryBackend) Keys() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	keys := make([]string, 0, len(b.services))
	for k := range b.services {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
