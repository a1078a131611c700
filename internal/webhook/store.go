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

package webhook

import (
	"context"
	"sync"

	"github.com/jackc/pgx/v5/pgxpool"

	"translate-platform/internal/database"
)

// PGEventStore Postgres 事件去重表
type PGEventStore struct {
	pool *pgxpool.Pool
}

// NewPGEventStore 创建 Postgres 事件存储
func NewPGEventStore(pool *pgxpool.Pool) *PGEventStore {
	return &PGEventStore{pool: pool}
}

func (s *PGEventStore) Insert(ctx context.Context, eventID, eventName string) (bool, error) {
	tag, err := s.pool.Exec(ctx,
		`INSERT INTO webhook_events (event_id, event_name) VALUES ($1, $2)
		 ON CONFLICT (event_id) DO NOTHING`,
		eventID, eventName)
	if err != nil {
		return false, database.WrapError(err, "写入 webhook 事件失败")
	}
	return tag.RowsAffected() == 1, nil
}

// MemoryEventStore 内存事件去重，测试用
type MemoryEventStore struct {
	mu   sync.Mutex
	seen map[string]string
}

// NewMemoryEventStore 创建内存事件存储
func NewMemoryEventStore() *MemoryEventStore {
	return &MemoryEventStore{seen: make(map[string]string)}
}

func (s *MemoryEventStore) Insert(ctx context.Context, eventID, eventName string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.seen[eventID]; ok {
		return false, nil
	}
	s.seen[eventID] = eventName
	return true, nil
}
