package job

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"translate-platform/internal/database"
	apperrors "translate-platform/pkg/errors"
)

// 需要真实 Postgres，设置 TEST_DB_URL 后运行
func testPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	dsn := os.Getenv("TEST_DB_URL")
	if dsn == "" {
		t.Skip("TEST_DB_URL not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	pool, err := database.Connect(ctx, dsn)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(pool.Close)
	return pool
}

func seedSite(t *testing.T, pool *pgxpool.Pool) string {
	t.Helper()
	id := uuid.NewString()
	_, err := pool.Exec(context.Background(),
		`INSERT INTO sites (id, name) VALUES ($1, $2)`, id, "test-site")
	if err != nil {
		t.Fatalf("seed site: %v", err)
	}
	return id
}

func TestPGStoreRoundTrip(t *testing.T) {
	pool := testPool(t)
	ctx := context.Background()
	store := NewPGStore(pool)

	siteID := seedSite(t, pool)
	jobID := uuid.NewString()
	_, err := pool.Exec(ctx,
		`INSERT INTO translation_jobs (id, site_id, source_url, status, requested_segments)
		 VALUES ($1, $2, $3, 'pending', 2)`,
		jobID, siteID, "https://example.com/page")
	if err != nil {
		t.Fatalf("seed job: %v", err)
	}
	_, err = pool.Exec(ctx,
		`INSERT INTO translation_units (job_id, seq, source_lang, target_lang, segment_hash, source_text)
		 VALUES ($1, 0, 'auto', 'fr', 'h1', 'one'), ($1, 1, 'auto', 'fr', 'h2', 'two')`, jobID)
	if err != nil {
		t.Fatalf("seed units: %v", err)
	}

	j, err := store.GetJob(ctx, siteID, jobID)
	if err != nil || j.Status != StatusPending {
		t.Fatalf("GetJob: %+v, %v", j, err)
	}
	if _, err := store.GetJob(ctx, uuid.NewString(), jobID); apperrors.KindOf(err) != apperrors.KindNotFound {
		t.Errorf("cross-site lookup must be not_found, got %v", err)
	}

	n, err := store.SetUnitTranslations(ctx, jobID, "fr", map[string]string{"h1": "un"})
	if err != nil || n != 1 {
		t.Fatalf("SetUnitTranslations: n=%d err=%v", n, err)
	}
	pending, err := store.PendingUnits(ctx, jobID)
	if err != nil || len(pending) != 1 || pending[0].SegmentHash != "h2" {
		t.Fatalf("PendingUnits: %+v, %v", pending, err)
	}
	if err := store.RefreshProgress(ctx, jobID); err != nil {
		t.Fatalf("RefreshProgress: %v", err)
	}
	j, _ = store.GetJobByID(ctx, jobID)
	if j.TranslatedSegments != 1 {
		t.Errorf("TranslatedSegments = %d, want 1", j.TranslatedSegments)
	}
}

// 直接提交 HTML 的任务没有 source_url，读取不能因 NULL 失败
func TestPGStoreJobWithoutSourceURL(t *testing.T) {
	pool := testPool(t)
	ctx := context.Background()
	store := NewPGStore(pool)

	siteID := seedSite(t, pool)
	jobID := uuid.NewString()
	_, err := pool.Exec(ctx,
		`INSERT INTO translation_jobs (id, site_id, source_url, status, requested_segments)
		 VALUES ($1, $2, NULL, 'pending', 0)`, jobID, siteID)
	if err != nil {
		t.Fatalf("seed job: %v", err)
	}

	j, err := store.GetJob(ctx, siteID, jobID)
	if err != nil {
		t.Fatalf("GetJob with NULL source_url: %v", err)
	}
	if j.SourceURL != "" {
		t.Errorf("SourceURL = %q, want empty", j.SourceURL)
	}
	if _, err := store.GetJobByID(ctx, jobID); err != nil {
		t.Errorf("GetJobByID with NULL source_url: %v", err)
	}
}
