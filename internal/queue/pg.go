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

package queue

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"translate-platform/internal/database"
)

// PGQueue Postgres 队列。认领走 FOR UPDATE SKIP LOCKED，
// 多个 worker 并发认领互不阻塞也绝不拿到同一个任务。
type PGQueue struct {
	pool *pgxpool.Pool
}

// NewPGQueue 创建 Postgres 队列
func NewPGQueue(pool *pgxpool.Pool) *PGQueue {
	return &PGQueue{pool: pool}
}

func (q *PGQueue) Enqueue(ctx context.Context, jobID string) error {
	_, err := q.pool.Exec(ctx,
		`INSERT INTO translation_queue (job_id) VALUES ($1)
		 ON CONFLICT (job_id) DO UPDATE
		 SET processed = false, processed_at = NULL,
		     locked_by = NULL, locked_at = NULL,
		     lease_expires_at = NULL, lock_token = NULL,
		     enqueued_at = now()`,
		jobID)
	if err != nil {
		return database.WrapError(err, "任务入队失败")
	}
	return nil
}

func (q *PGQueue) Claim(ctx context.Context, workerID string, lease time.Duration) (*Claim, error) {
	return q.claim(ctx, "", workerID, lease)
}

func (q *PGQueue) ClaimByID(ctx context.Context, jobID, workerID string, lease time.Duration) (*Claim, error) {
	return q.claim(ctx, jobID, workerID, lease)
}

// claim 选取、上锁、递增 attempts 与任务状态转移在同一事务内完成
func (q *PGQueue) claim(ctx context.Context, jobID, workerID string, lease time.Duration) (*Claim, error) {
	tx, err := q.pool.Begin(ctx)
	if err != nil {
		return nil, database.WrapError(err, "开启认领事务失败")
	}
	defer tx.Rollback(ctx)

	query := `WITH next AS (
		SELECT job_id FROM translation_queue
		WHERE processed = false
		  AND (lease_expires_at IS NULL OR lease_expires_at < now())`
	args := []any{workerID, lease.Seconds()}
	if jobID != "" {
		query += ` AND job_id = $4`
		args = append(args, uuid.NewString(), jobID)
	} else {
		args = append(args, uuid.NewString())
	}
	query += `
		ORDER BY enqueued_at, job_id
		LIMIT 1
		FOR UPDATE SKIP LOCKED
	)
	UPDATE translation_queue q
	SET locked_by = $1, locked_at = now(),
	    lease_expires_at = now() + make_interval(secs => $2),
	    lock_token = $3, attempts = q.attempts + 1
	FROM next WHERE q.job_id = next.job_id
	RETURNING q.job_id, q.lock_token, q.attempts`

	var c Claim
	err = tx.QueryRow(ctx, query, args...).Scan(&c.JobID, &c.LockToken, &c.Attempts)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, database.WrapError(err, "认领任务失败")
	}

	_, err = tx.Exec(ctx,
		`UPDATE translation_jobs
		 SET status = 'processing', started_at = COALESCE(started_at, now())
		 WHERE id = $1 AND status IN ('pending', 'processing')`, c.JobID)
	if err != nil {
		return nil, database.WrapError(err, "任务状态转移失败")
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, database.WrapError(err, "提交认领事务失败")
	}
	return &c, nil
}

func (q *PGQueue) Release(ctx context.Context, jobID, lockToken, errText string) (bool, error) {
	tx, err := q.pool.Begin(ctx)
	if err != nil {
		return false, database.WrapError(err, "开启归还事务失败")
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx,
		`UPDATE translation_queue
		 SET locked_by = NULL, locked_at = NULL,
		     lease_expires_at = NULL, lock_token = NULL,
		     last_error = NULLIF($3, '')
		 WHERE job_id = $1 AND lock_token = $2 AND processed = false`,
		jobID, lockToken, errText)
	if err != nil {
		return false, database.WrapError(err, "归还任务失败")
	}
	if tag.RowsAffected() == 0 {
		return false, nil
	}
	_, err = tx.Exec(ctx,
		`UPDATE translation_jobs
		 SET status = 'pending', last_error = NULLIF($2, '')
		 WHERE id = $1 AND status = 'processing'`, jobID, errText)
	if err != nil {
		return false, database.WrapError(err, "任务回退失败")
	}
	return true, tx.Commit(ctx)
}

func (q *PGQueue) Complete(ctx context.Context, jobID, lockToken string, success bool, errText string) (bool, error) {
	tx, err := q.pool.Begin(ctx)
	if err != nil {
		return false, database.WrapError(err, "开启完成事务失败")
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx,
		`UPDATE translation_queue
		 SET processed = true, processed_at = now(),
		     locked_by = NULL, locked_at = NULL,
		     lease_expires_at = NULL, lock_token = NULL,
		     last_error = NULLIF($3, '')
		 WHERE job_id = $1 AND lock_token = $2 AND processed = false`,
		jobID, lockToken, errText)
	if err != nil {
		return false, database.WrapError(err, "完成任务失败")
	}
	if tag.RowsAffected() == 0 {
		return false, nil
	}
	if success {
		_, err = tx.Exec(ctx,
			`UPDATE translation_jobs
			 SET status = 'completed', completed_at = now(), last_error = NULL
			 WHERE id = $1`, jobID)
	} else {
		_, err = tx.Exec(ctx,
			`UPDATE translation_jobs
			 SET status = 'failed', failed_at = now(), last_error = NULLIF($2, '')
			 WHERE id = $1`, jobID, errText)
	}
	if err != nil {
		return false, database.WrapError(err, "任务终态转移失败")
	}
	return true, tx.Commit(ctx)
}

func (q *PGQueue) ExtendLease(ctx context.Context, jobID, lockToken string, lease time.Duration) (bool, error) {
	tag, err := q.pool.Exec(ctx,
		`UPDATE translation_queue
		 SET lease_expires_at = now() + make_interval(secs => $3)
		 WHERE job_id = $1 AND lock_token = $2 AND processed = false`,
		jobID, lockToken, lease.Seconds())
	if err != nil {
		return false, database.WrapError(err, "续租失败")
	}
	return tag.RowsAffected() == 1, nil
}

func (q *PGQueue) Stats(ctx context.Context) (Stats, error) {
	var s Stats
	err := q.pool.QueryRow(ctx,
		`SELECT
		   count(*) FILTER (WHERE processed = false AND (lease_expires_at IS NULL OR lease_expires_at < now())),
		   count(*) FILTER (WHERE processed = false AND lease_expires_at >= now()),
		   count(*) FILTER (WHERE processed = true)
		 FROM translation_queue`).Scan(&s.Pending, &s.Leased, &s.Processed)
	if err != nil {
		return Stats{}, database.WrapError(err, "查询队列计数失败")
	}
	return s, nil
}
