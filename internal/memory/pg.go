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

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"translate-platform/internal/database"
)

// PGStore Postgres 翻译记忆
type PGStore struct {
	pool *pgxpool.Pool
}

// NewPGStore 创建 Postgres 翻译记忆
func NewPGStore(pool *pgxpool.Pool) *PGStore {
	return &PGStore{pool: pool}
}

// Probe 单条 SQL 批量探测。hash 与 lang 各自 ANY 匹配会带回
// 非请求的组合，按请求键过滤后返回。
func (s *PGStore) Probe(ctx context.Context, siteID string, keys []Key) (map[Key]string, error) {
	if len(keys) == 0 {
		return map[Key]string{}, nil
	}
	hashSet := make(map[string]bool, len(keys))
	langSet := make(map[string]bool)
	wanted := make(map[Key]bool, len(keys))
	for _, k := range keys {
		hashSet[k.Hash] = true
		langSet[k.Lang] = true
		wanted[k] = true
	}
	hashes := make([]string, 0, len(hashSet))
	for h := range hashSet {
		hashes = append(hashes, h)
	}
	langs := make([]string, 0, len(langSet))
	for l := range langSet {
		langs = append(langs, l)
	}

	rows, err := s.pool.Query(ctx,
		`SELECT segment_hash, target_lang, translated_text
		 FROM translation_memory
		 WHERE site_id = $1 AND segment_hash = ANY($2) AND target_lang = ANY($3)`,
		siteID, hashes, langs)
	if err != nil {
		return nil, database.WrapError(err, "探测翻译记忆失败")
	}
	defer rows.Close()

	hits := make(map[Key]string)
	for rows.Next() {
		var k Key
		var text string
		if err := rows.Scan(&k.Hash, &k.Lang, &text); err != nil {
			return nil, database.WrapError(err, "扫描翻译记忆失败")
		}
		if wanted[k] {
			hits[k] = text
		}
	}
	return hits, database.WrapError(rows.Err(), "读取翻译记忆失败")
}

// Upsert 批量写入，同键冲突时后写覆盖
func (s *PGStore) Upsert(ctx context.Context, siteID string, entries []Entry) error {
	if len(entries) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, e := range entries {
		batch.Queue(
			`INSERT INTO translation_memory (site_id, segment_hash, target_lang, source_lang, translated_text)
			 VALUES ($1, $2, $3, $4, $5)
			 ON CONFLICT (site_id, segment_hash, target_lang)
			 DO UPDATE SET translated_text = EXCLUDED.translated_text, source_lang = EXCLUDED.source_lang`,
			siteID, e.Hash, e.Lang, e.SourceLang, e.Text)
	}
	results := s.pool.SendBatch(ctx, batch)
	defer results.Close()
	for range entries {
		if _, err := results.Exec(); err != nil {
			return database.WrapError(err, "写入翻译记忆失败")
		}
	}
	return nil
}
