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

package memory

import (
	"context"
	"sync"
)

// MemoryStore 内存翻译记忆，语义与 PGStore 一致
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]map[Key]string // siteID -> key -> text
}

// NewMemoryStore 创建内存翻译记忆
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]map[Key]string)}
}

func (s *MemoryStore) Probe(ctx context.Context, siteID string, keys []Key) (map[Key]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	hits := make(map[Key]string)
	site := s.entries[siteID]
	for _, k := range keys {
		if text, ok := site[k]; ok {
			hits[k] = text
		}
	}
	return hits, nil
}

func (s *MemoryStore) Upsert(ctx context.Context, siteID string, entries []Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	site, ok := s.entries[siteID]
	if !ok {
		site = make(map[Key]string)
		s.entries[siteID] = site
	}
	for _, e := range entries {
		site[Key{Hash: e.Hash, Lang: e.Lang}] = e.Text
	}
	return nil
}
