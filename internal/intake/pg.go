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

package intake

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"translate-platform/internal/database"
)

// PGAdmitter Postgres 事务性入库：任务、工作单元与队列行
// 要么全部可见要么全部不可见。
type PGAdmitter struct {
	pool *pgxpool.Pool
}

// NewPGAdmitter 创建 Postgres Admitter
func NewPGAdmitter(pool *pgxpool.Pool) *PGAdmitter {
	return &PGAdmitter{pool: pool}
}

func (a *PGAdmitter) Admit(ctx context.Context, adm *Admission) (string, bool, error) {
	tx, err := a.pool.Begin(ctx)
	if err != nil {
		return "", false, database.WrapError(err, "开启接收事务失败")
	}
	defer tx.Rollback(ctx)

	jobID := adm.Job.ID
	if adm.Job.IdempotencyKey != nil {
		// 幂等键冲突时不插入，改查已有任务
		err = tx.QueryRow(ctx,
			`INSERT INTO translation_jobs (id, site_id, source_url, status, idempotency_key, requested_segments)
			 VALUES ($1, $2, NULLIF($3, ''), $4, $5, $6)
			 ON CONFLICT (site_id, idempotency_key) WHERE idempotency_key IS NOT NULL
			 DO NOTHING
			 RETURNING id`,
			adm.Job.ID, adm.Job.SiteID, adm.Job.SourceURL, adm.Job.Status,
			*adm.Job.IdempotencyKey, adm.Job.RequestedSegments).Scan(&jobID)
		if errors.Is(err, pgx.ErrNoRows) {
			var existing string
			err = tx.QueryRow(ctx,
				`SELECT id FROM translation_jobs WHERE site_id = $1 AND idempotency_key = $2`,
				adm.Job.SiteID, *adm.Job.IdempotencyKey).Scan(&existing)
			if err != nil {
				return "", false, database.WrapError(err, "查询幂等任务失败")
			}
			if err := tx.Commit(ctx); err != nil {
				return "", false, database.WrapError(err, "提交接收事务失败")
			}
			return existing, false, nil
		}
		if err != nil {
			return "", false, database.WrapError(err, "插入任务失败")
		}
	} else {
		_, err = tx.Exec(ctx,
			`INSERT INTO translation_jobs (id, site_id, source_url, status, requested_segments)
			 VALUES ($1, $2, NULLIF($3, ''), $4, $5)`,
			adm.Job.ID, adm.Job.SiteID, adm.Job.SourceURL, adm.Job.Status, adm.Job.RequestedSegments)
		if err != nil {
			return "", false, database.WrapError(err, "插入任务失败")
		}
	}

	n := len(adm.Units)
	seqs := make([]int, n)
	sourceLangs := make([]string, n)
	targetLangs := make([]string, n)
	hashes := make([]string, n)
	texts := make([]string, n)
	locators := make([]string, n)
	attrs := make([]string, n)
	for i, u := range adm.Units {
		seqs[i] = u.Seq
		sourceLangs[i] = u.SourceLang
		targetLangs[i] = u.TargetLang
		hashes[i] = u.SegmentHash
		texts[i] = u.SourceText
		locators[i] = u.Locator
		attrs[i] = u.Attr
	}
	_, err = tx.Exec(ctx,
		`INSERT INTO translation_units
		   (job_id, seq, source_lang, target_lang, segment_hash, source_text, locator, attr)
		 SELECT $1, * FROM unnest($2::int[], $3::text[], $4::text[], $5::text[], $6::text[], $7::text[], $8::text[])
		 ON CONFLICT (job_id, segment_hash, target_lang) DO NOTHING`,
		jobID, seqs, sourceLangs, targetLangs, hashes, texts, locators, attrs)
	if err != nil {
		return "", false, database.WrapError(err, "插入工作单元失败")
	}

	// 与 queue.PGQueue.Enqueue 同语义：已有行重新武装并回到队尾
	_, err = tx.Exec(ctx,
		`INSERT INTO translation_queue (job_id) VALUES ($1)
		 ON CONFLICT (job_id) DO UPDATE
		 SET processed = false, processed_at = NULL,
		     locked_by = NULL, locked_at = NULL,
		     lease_expires_at = NULL, lock_token = NULL,
		     enqueued_at = now()`,
		jobID)
	if err != nil {
		return "", false, database.WrapError(err, "任务入队失败")
	}
	if err := tx.Commit(ctx); err != nil {
		return "", false, database.WrapError(err, "提交接收事务失败")
	}
	return jobID, true, nil
}
