package worker

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"translate-platform/internal/job"
	"translate-platform/internal/memory"
	"translate-platform/internal/queue"
	apperrors "translate-platform/pkg/errors"
	"translate-platform/pkg/log"
)

type fakeTranslator struct {
	calls int
	fn    func(texts []string, targetLang string) ([]string, error)
}

func (f *fakeTranslator) Translate(ctx context.Context, texts []string, sourceLang, targetLang string) ([]string, error) {
	f.calls++
	if f.fn != nil {
		return f.fn(texts, targetLang)
	}
	out := make([]string, len(texts))
	for i, t := range texts {
		out[i] = t + " [" + strings.ToUpper(targetLang) + "]"
	}
	return out, nil
}

type fixture struct {
	jobs   *job.MemoryStore
	queue  *queue.MemoryQueue
	memory *memory.MemoryStore
	siteID string
	jobID  string
}

func newFixture(t *testing.T, langs ...string) *fixture {
	t.Helper()
	f := &fixture{
		jobs:   job.NewMemoryStore(),
		memory: memory.NewMemoryStore(),
		siteID: uuid.NewString(),
	}
	f.queue = queue.NewMemoryQueue(f.jobs)
	if len(langs) == 0 {
		langs = []string{"fr"}
	}

	ctx := context.Background()
	var units []job.WorkUnit
	for _, lang := range langs {
		units = append(units,
			job.WorkUnit{Seq: 0, SourceLang: "auto", TargetLang: lang, SegmentHash: "h1", SourceText: "Hello world."},
			job.WorkUnit{Seq: 1, SourceLang: "auto", TargetLang: lang, SegmentHash: "h2", SourceText: "Goodbye."},
		)
	}
	jobID, _, err := f.jobs.InsertJob(ctx, &job.Job{
		ID: uuid.NewString(), SiteID: f.siteID, Status: job.StatusPending,
		RequestedSegments: len(units),
	})
	if err != nil {
		t.Fatalf("InsertJob: %v", err)
	}
	f.jobID = jobID
	if err := f.jobs.InsertUnits(ctx, jobID, units); err != nil {
		t.Fatalf("InsertUnits: %v", err)
	}
	if err := f.queue.Enqueue(ctx, jobID); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	return f
}

func newRunner(t *testing.T, f *fixture, tr *fakeTranslator, cfg Config) *Runner {
	t.Helper()
	logger, err := log.NewLogger(nil)
	if err != nil {
		t.Fatalf("NewLogger: %v", err)
	}
	return NewRunner(cfg, f.queue, f.jobs, f.memory, tr, logger)
}

func TestProcessHappyPath(t *testing.T) {
	f := newFixture(t)
	r := newRunner(t, f, &fakeTranslator{}, Config{MaxAttempts: 3})
	ctx := context.Background()

	claim, err := f.queue.Claim(ctx, "w1", time.Minute)
	if err != nil || claim == nil {
		t.Fatalf("Claim: %v %v", claim, err)
	}
	outcome := r.Process(ctx, claim)
	if outcome.Status != "ok" || outcome.SegmentsProcessed != 2 {
		t.Fatalf("outcome = %+v", outcome)
	}

	j, _ := f.jobs.GetJobByID(ctx, f.jobID)
	if j.Status != job.StatusCompleted {
		t.Errorf("job status = %s, want completed", j.Status)
	}
	if j.TranslatedSegments != 2 {
		t.Errorf("translated_segments = %d, want 2", j.TranslatedSegments)
	}
	units, _ := f.jobs.ListUnits(ctx, f.jobID)
	for _, u := range units {
		if !u.Translated() || !strings.HasSuffix(*u.TranslatedText, " [FR]") {
			t.Errorf("unit %s not translated: %+v", u.SegmentHash, u)
		}
	}
	hits, _ := f.memory.Probe(ctx, f.siteID, []memory.Key{
		{Hash: "h1", Lang: "fr"}, {Hash: "h2", Lang: "fr"},
	})
	if len(hits) != 2 {
		t.Errorf("memory must be warmed with 2 fr entries, got %d", len(hits))
	}
	stats, _ := f.queue.Stats(ctx)
	if stats.Processed != 1 {
		t.Errorf("queue row must be terminal, got %+v", stats)
	}
}

func TestProcessRetryableErrorReleases(t *testing.T) {
	f := newFixture(t)
	tr := &fakeTranslator{fn: func([]string, string) ([]string, error) {
		return nil, apperrors.New(apperrors.KindProviderRetryable, "翻译提供商返回 503")
	}}
	r := newRunner(t, f, tr, Config{MaxAttempts: 3})
	ctx := context.Background()

	claim, _ := f.queue.Claim(ctx, "w1", time.Minute)
	outcome := r.Process(ctx, claim)
	if outcome.Status != "error" {
		t.Fatalf("outcome = %+v", outcome)
	}
	j, _ := f.jobs.GetJobByID(ctx, f.jobID)
	if j.Status != job.StatusPending {
		t.Errorf("released job must be pending again, got %s", j.Status)
	}
	next, _ := f.queue.Claim(ctx, "w2", time.Minute)
	if next == nil || next.JobID != f.jobID {
		t.Fatal("released job must be claimable")
	}
	if next.Attempts != 2 {
		t.Errorf("attempts = %d, want 2", next.Attempts)
	}
	if next.LockToken == claim.LockToken {
		t.Error("lock token must rotate on re-claim")
	}
}

func TestProcessFatalErrorFailsJob(t *testing.T) {
	f := newFixture(t)
	tr := &fakeTranslator{fn: func([]string, string) ([]string, error) {
		return nil, apperrors.New(apperrors.KindProviderFatal, "翻译提供商返回 400")
	}}
	r := newRunner(t, f, tr, Config{MaxAttempts: 3})
	ctx := context.Background()

	claim, _ := f.queue.Claim(ctx, "w1", time.Minute)
	outcome := r.Process(ctx, claim)
	if outcome.Status != "error" {
		t.Fatalf("outcome = %+v", outcome)
	}
	j, _ := f.jobs.GetJobByID(ctx, f.jobID)
	if j.Status != job.StatusFailed || j.LastError == nil {
		t.Errorf("fatal provider error must fail the job with last_error, got %+v", j)
	}
	stats, _ := f.queue.Stats(ctx)
	if stats.Processed != 1 {
		t.Errorf("failed job must leave a terminal queue row, got %+v", stats)
	}
}

func TestProcessPoisonPillCap(t *testing.T) {
	f := newFixture(t)
	r := newRunner(t, f, &fakeTranslator{}, Config{MaxAttempts: 3})
	ctx := context.Background()

	// 三轮认领+归还把 attempts 顶到上限
	for i := 0; i < 3; i++ {
		c, _ := f.queue.Claim(ctx, "w1", time.Minute)
		if ok, _ := f.queue.Release(ctx, c.JobID, c.LockToken, "provider unavailable"); !ok {
			t.Fatalf("release %d failed", i)
		}
	}
	claim, _ := f.queue.Claim(ctx, "w1", time.Minute)
	if claim.Attempts != 4 {
		t.Fatalf("attempts = %d, want 4", claim.Attempts)
	}
	outcome := r.Process(ctx, claim)
	if outcome.Status != "error" || outcome.Error != "exceeded maximum attempts" {
		t.Fatalf("outcome = %+v", outcome)
	}
	j, _ := f.jobs.GetJobByID(ctx, f.jobID)
	if j.Status != job.StatusFailed {
		t.Errorf("job status = %s, want failed", j.Status)
	}
	stats, _ := f.queue.Stats(ctx)
	if stats.Processed != 1 {
		t.Errorf("poison pill must be terminal, got %+v", stats)
	}
}

func TestProcessReprobeSkipsProviderSpend(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	// 入队后记忆已被其他任务温好
	_ = f.memory.Upsert(ctx, f.siteID, []memory.Entry{
		{Hash: "h1", Lang: "fr", SourceLang: "auto", Text: "Bonjour le monde."},
		{Hash: "h2", Lang: "fr", SourceLang: "auto", Text: "Au revoir."},
	})
	tr := &fakeTranslator{fn: func([]string, string) ([]string, error) {
		t.Error("provider must not be called when memory covers all units")
		return nil, apperrors.New(apperrors.KindProviderFatal, "unexpected call")
	}}
	r := newRunner(t, f, tr, Config{MaxAttempts: 3})

	claim, _ := f.queue.Claim(ctx, "w1", time.Minute)
	outcome := r.Process(ctx, claim)
	if outcome.Status != "ok" || outcome.CacheHits != 2 || outcome.CacheMisses != 0 {
		t.Fatalf("outcome = %+v", outcome)
	}
	j, _ := f.jobs.GetJobByID(ctx, f.jobID)
	if j.Status != job.StatusCompleted || j.TranslatedSegments != 2 {
		t.Errorf("job = %+v", j)
	}
}

func TestProcessChunksProviderRequests(t *testing.T) {
	f := newFixture(t)
	tr := &fakeTranslator{}
	r := newRunner(t, f, tr, Config{MaxAttempts: 3, ChunkSize: 1})
	ctx := context.Background()

	claim, _ := f.queue.Claim(ctx, "w1", time.Minute)
	outcome := r.Process(ctx, claim)
	if outcome.Status != "ok" {
		t.Fatalf("outcome = %+v", outcome)
	}
	if tr.calls != 2 {
		t.Errorf("calls = %d, want 2 with chunkSize=1", tr.calls)
	}
}

func TestProcessPartialProgressSurvivesLaterGroupFailure(t *testing.T) {
	f := newFixture(t, "de", "fr")
	tr := &fakeTranslator{fn: func(texts []string, lang string) ([]string, error) {
		if lang == "fr" {
			return nil, apperrors.New(apperrors.KindProviderRetryable, "翻译提供商返回 503")
		}
		out := make([]string, len(texts))
		for i, t := range texts {
			out[i] = t + " [DE]"
		}
		return out, nil
	}}
	r := newRunner(t, f, tr, Config{MaxAttempts: 3})
	ctx := context.Background()

	claim, _ := f.queue.Claim(ctx, "w1", time.Minute)
	outcome := r.Process(ctx, claim)
	if outcome.Status != "error" || outcome.SegmentsProcessed != 2 {
		t.Fatalf("outcome = %+v", outcome)
	}
	// de 组的进度已落库，fr 组失败后任务被归还
	j, _ := f.jobs.GetJobByID(ctx, f.jobID)
	if j.Status != job.StatusPending || j.TranslatedSegments != 2 {
		t.Errorf("job = %+v", j)
	}
	pending, _ := f.jobs.PendingUnits(ctx, f.jobID)
	if len(pending) != 2 {
		t.Fatalf("pending = %d, want the 2 fr units", len(pending))
	}
	for _, u := range pending {
		if u.TargetLang != "fr" {
			t.Errorf("de group must be persisted, still pending: %+v", u)
		}
	}
}

func TestRunBatchDrainsQueue(t *testing.T) {
	f := newFixture(t)
	// 第二个任务
	ctx := context.Background()
	jobID2, _, _ := f.jobs.InsertJob(ctx, &job.Job{
		ID: uuid.NewString(), SiteID: f.siteID, Status: job.StatusPending, RequestedSegments: 1,
	})
	_ = f.jobs.InsertUnits(ctx, jobID2, []job.WorkUnit{
		{Seq: 0, SourceLang: "auto", TargetLang: "es", SegmentHash: "h9", SourceText: "More text."},
	})
	_ = f.queue.Enqueue(ctx, jobID2)

	r := newRunner(t, f, &fakeTranslator{}, Config{MaxAttempts: 3})
	outcomes := r.RunBatch(ctx, 10)
	if len(outcomes) != 2 {
		t.Fatalf("outcomes = %d, want 2", len(outcomes))
	}
	for _, o := range outcomes {
		if o.Status != "ok" {
			t.Errorf("outcome %+v", o)
		}
	}
	stats, _ := f.queue.Stats(ctx)
	if stats.Processed != 2 || stats.Pending != 0 {
		t.Errorf("stats = %+v", stats)
	}
}

func TestStartStopDrains(t *testing.T) {
	f := newFixture(t)
	r := newRunner(t, f, &fakeTranslator{}, Config{
		MaxAttempts: 3, IdlePoll: 10 * time.Millisecond, Concurrency: 2,
	})
	ctx := context.Background()
	r.Start(ctx)
	deadline := time.After(2 * time.Second)
	for {
		j, _ := f.jobs.GetJobByID(ctx, f.jobID)
		if j.Status == job.StatusCompleted {
			break
		}
		select {
		case <-deadline:
			t.Fatal("job not completed before deadline")
		case <-time.After(10 * time.Millisecond):
		}
	}
	r.Stop()
}
