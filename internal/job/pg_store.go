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

package job

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"translate-platform/internal/database"
	apperrors "translate-platform/pkg/errors"
)

const jobColumns = `id, site_id, COALESCE(source_url, ''), status, idempotency_key,
	requested_segments, translated_segments, last_error,
	created_at, started_at, completed_at, failed_at`

const unitColumns = `id, job_id, seq, source_lang, target_lang,
	segment_hash, source_text, locator, attr, translated_text`

// PGStore Postgres 任务存储
type PGStore struct {
	pool *pgxpool.Pool
}

// NewPGStore 创建 Postgres 任务存储
func NewPGStore(pool *pgxpool.Pool) *PGStore {
	return &PGStore{pool: pool}
}

func (s *PGStore) GetJob(ctx context.Context, siteID, jobID string) (*Job, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+jobColumns+` FROM translation_jobs WHERE id = $1 AND site_id = $2`,
		jobID, siteID)
	return scanJob(row)
}

func (s *PGStore) GetJobByID(ctx context.Context, jobID string) (*Job, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+jobColumns+` FROM translation_jobs WHERE id = $1`, jobID)
	return scanJob(row)
}

func scanJob(row pgx.Row) (*Job, error) {
	var j Job
	err := row.Scan(&j.ID, &j.SiteID, &j.SourceURL, &j.Status, &j.IdempotencyKey,
		&j.RequestedSegments, &j.TranslatedSegments, &j.LastError,
		&j.CreatedAt, &j.StartedAt, &j.CompletedAt, &j.FailedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.New(apperrors.KindNotFound, "job not found")
	}
	if err != nil {
		return nil, database.WrapError(err, "查询任务失败")
	}
	return &j, nil
}

func (s *PGStore) ListUnits(ctx context.Context, jobID string) ([]WorkUnit, error) {
	return s.queryUnits(ctx,
		`SELECT `+unitColumns+` FROM translation_units WHERE job_id = $1 ORDER BY seq, id`, jobID)
}

func (s *PGStore) PendingUnits(ctx context.Context, jobID string) ([]WorkUnit, error) {
	return s.queryUnits(ctx,
		`SELECT `+unitColumns+` FROM translation_units
		 WHERE job_id = $1 AND translated_text IS NULL ORDER BY seq, id`, jobID)
}

func (s *PGStore) queryUnits(ctx context.Context, query string, args ...any) ([]WorkUnit, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, database.WrapError(err, "查询工作单元失败")
	}
	defer rows.Close()

	var units []WorkUnit
	for rows.Next() {
		var u WorkUnit
		if err := rows.Scan(&u.ID, &u.JobID, &u.Seq, &u.SourceLang, &u.TargetLang,
			&u.SegmentHash, &u.SourceText, &u.Locator, &u.Attr, &u.TranslatedText); err != nil {
			return nil, database.WrapError(err, "扫描工作单元失败")
		}
		units = append(units, u)
	}
	return units, database.WrapError(rows.Err(), "读取工作单元失败")
}

func (s *PGStore) SetUnitTranslations(ctx context.Context, jobID, targetLang string, translations map[string]string) (int, error) {
	if len(translations) == 0 {
		return 0, nil
	}
	hashes := make([]string, 0, len(translations))
	texts := make([]string, 0, len(translations))
	for h, t := range translations {
		hashes = append(hashes, h)
		texts = append(texts, t)
	}
	tag, err := s.pool.Exec(ctx,
		`UPDATE translation_units u
		 SET translated_text = t.txt
		 FROM (SELECT unnest($3::text[]) AS hash, unnest($4::text[]) AS txt) t
		 WHERE u.job_id = $1 AND u.target_lang = $2 AND u.segment_hash = t.hash`,
		jobID, targetLang, hashes, texts)
	if err != nil {
		return 0, database.WrapError(err, "回填译文失败")
	}
	return int(tag.RowsAffected()), nil
}

func (s *PGStore) RefreshProgress(ctx context.Context, jobID string) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE translation_jobs
		 SET translated_segments = (
		     SELECT count(*) FROM translation_units
		     WHERE job_id = $1 AND translated_text IS NOT NULL)
		 WHERE id = $1`, jobID)
	if err != nil {
		return database.WrapError(err, "更新任务进度失败")
	}
	return nil
}
