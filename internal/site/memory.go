// Copyright 2026 fanjia1024
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package site

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// MemoryStore 内存站点存储，测试用
type MemoryStore struct {
	mu    sync.RWMutex
	sites map[string]*Site
}

// NewMemoryStore 创建内存站点存储
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sites: make(map[string]*Site)}
}

func (s *MemoryStore) Get(ctx context.Context, id string) (*Site, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.sites[id]
	if !ok {
		return nil, nil
	}
	cp := *st
	return &cp, nil
}

func (s *MemoryStore) Ensure(ctx context.Context, id, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sites[id]; ok {
		return nil
	}
	s.sites[id] = &Site{ID: id, Name: name, CreatedAt: time.Now()}
	return nil
}

func (s *MemoryStore) SetProviderToken(ctx context.Context, id string, encrypted *string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.sites[id]
	if !ok {
		return fmt.Errorf("站点 %s 不存在", id)
	}
	st.ProviderToken = encrypted
	return nil
}
