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
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"translate-platform/internal/database"
)

// PGStore Postgres 站点存储
type PGStore struct {
	pool *pgxpool.Pool
}

// NewPGStore 创建 Postgres 站点存储
func NewPGStore(pool *pgxpool.Pool) *PGStore {
	return &PGStore{pool: pool}
}

func (s *PGStore) Get(ctx context.Context, id string) (*Site, error) {
	var out Site
	err := s.pool.QueryRow(ctx,
		`SELECT id, name, provider_token, created_at FROM sites WHERE id = $1`, id).
		Scan(&out.ID, &out.Name, &out.ProviderToken, &out.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, database.WrapError(err, "读取站点失败")
	}
	return &out, nil
}

func (s *PGStore) Ensure(ctx context.Context, id, name string) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO sites (id, name) VALUES ($1, $2) ON CONFLICT (id) DO NOTHING`, id, name)
	if err != nil {
		return database.WrapError(err, "写入站点失败")
	}
	return nil
}

func (s *PGStore) SetProviderToken(ctx context.Context, id string, encrypted *string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE sites SET provider_token = $2 WHERE id = $1`, id, encrypted)
	if err != nil {
		return database.WrapError(err, "更新站点凭证失败")
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("站点 %s 不存在", id)
	}
	return nil
}
