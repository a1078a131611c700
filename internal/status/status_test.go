package status

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"translate-platform/internal/job"
	apperrors "translate-platform/pkg/errors"
)

func seed(t *testing.T) (*job.MemoryStore, string, string) {
	t.Helper()
	s := job.NewMemoryStore()
	siteID := uuid.NewString()
	jobID, _, err := s.InsertJob(context.Background(), &job.Job{
		ID: uuid.NewString(), SiteID: siteID, Status: job.StatusPending,
	})
	if err != nil {
		t.Fatalf("InsertJob: %v", err)
	}
	err = s.InsertUnits(context.Background(), jobID, []job.WorkUnit{
		{Seq: 0, TargetLang: "fr", SegmentHash: "h1", SourceText: "Hello world."},
		{Seq: 1, TargetLang: "fr", SegmentHash: "h2", SourceText: "Goodbye."},
		{Seq: 1, TargetLang: "fr", SegmentHash: "h3", SourceText: "alt text", Attr: "alt"},
	})
	if err != nil {
		t.Fatalf("InsertUnits: %v", err)
	}
	return s, siteID, jobID
}

func TestReadPendingHasNoProgress(t *testing.T) {
	s, siteID, jobID := seed(t)
	got, err := NewReader(s).Read(context.Background(), siteID, jobID)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if got.Status != job.StatusPending || got.Progress != nil || got.CompletedHTML != nil {
		t.Errorf("pending report must be status only, got %+v", got)
	}
}

func TestReadProcessingProgress(t *testing.T) {
	s, siteID, jobID := seed(t)
	ctx := context.Background()
	_ = s.SetStatus(ctx, jobID, job.StatusProcessing, nil)
	_, _ = s.SetUnitTranslations(ctx, jobID, "fr", map[string]string{"h1": "Bonjour le monde."})

	got, err := NewReader(s).Read(ctx, siteID, jobID)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if got.Progress == nil || got.Progress.Completed != 1 || got.Progress.Total != 3 {
		t.Errorf("progress = %+v, want 1/3", got.Progress)
	}
	if got.CompletedHTML != nil {
		t.Error("completed_html must be absent while processing")
	}
}

func TestReadCompletedAssemblesPerLocale(t *testing.T) {
	s, siteID, jobID := seed(t)
	ctx := context.Background()
	// h2 故意留空：拼装时回退到原文
	_, _ = s.SetUnitTranslations(ctx, jobID, "fr", map[string]string{
		"h1": "Bonjour le monde.", "h3": "texte alternatif",
	})
	_ = s.SetStatus(ctx, jobID, job.StatusCompleted, nil)

	got, err := NewReader(s).Read(ctx, siteID, jobID)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	want := "Bonjour le monde.\nGoodbye."
	if got.CompletedHTML["fr"] != want {
		t.Errorf("completed_html[fr] = %q, want %q (document order, source fallback, attrs excluded)", got.CompletedHTML["fr"], want)
	}
}

func TestReadTenantIsolation(t *testing.T) {
	s, _, jobID := seed(t)
	_, err := NewReader(s).Read(context.Background(), uuid.NewString(), jobID)
	if apperrors.KindOf(err) != apperrors.KindNotFound {
		t.Errorf("cross-site read must be not_found, got %v", err)
	}
}

func TestReadFailedCarriesLastError(t *testing.T) {
	s, siteID, jobID := seed(t)
	msg := "exceeded maximum attempts"
	_ = s.SetStatus(context.Background(), jobID, job.StatusFailed, &msg)

	got, err := NewReader(s).Read(context.Background(), siteID, jobID)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if got.Status != job.StatusFailed || got.LastError != msg {
		t.Errorf("got %+v, want failed with last error", got)
	}
}
