// Copyright 2026 fanjia1024
// 内存凭证源（测试用）

package secrets

import (
	"context"
	"fmt"
	"sync"
)

// MemoryStore 内存凭证源，测试里用 Seed 预置
type MemoryStore struct {
	mu     sync.RWMutex
	values map[string]string
}

// NewMemoryStore 创建内存凭证源
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{values: make(map[string]string)}
}

// Seed 预置一个凭证
func (m *MemoryStore) Seed(key, value string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
}

func (m *MemoryStore) Get(_ context.Context, key string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.values[key]
	if !ok {
		return "", fmt.Errorf("凭证不存在: %s", key)
	}
	return v, nil
}
