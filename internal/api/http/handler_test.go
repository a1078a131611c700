package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/cloudwego/hertz/pkg/app/server"
	"github.com/cloudwego/hertz/pkg/common/ut"
	"github.com/google/uuid"

	"translate-platform/internal/api/http/middleware"
	"translate-platform/internal/intake"
	"translate-platform/internal/job"
	"translate-platform/internal/memory"
	"translate-platform/internal/provider"
	"translate-platform/internal/queue"
	"translate-platform/internal/segment"
	"translate-platform/internal/status"
	"translate-platform/internal/webhook"
	"translate-platform/internal/worker"
	"translate-platform/pkg/log"
)

const (
	testAPIKey       = "tk-api"
	testWorkerSecret = "tk-worker"
	testHookSecret   = "tk-hook"
)

type serverFixture struct {
	hertz *server.Hertz
	jobs  *job.MemoryStore
	queue *queue.MemoryQueue
	mem   *memory.MemoryStore
}

func buildServer(t *testing.T) *serverFixture {
	t.Helper()
	logger, err := log.NewLogger(nil)
	if err != nil {
		t.Fatalf("NewLogger: %v", err)
	}
	jobs := job.NewMemoryStore()
	q := queue.NewMemoryQueue(jobs)
	mem := memory.NewMemoryStore()

	coord := intake.NewCoordinator(mem, intake.NewMemoryAdmitter(jobs, q), nil, nil, intake.Options{}, logger)
	reader := status.NewReader(jobs)
	wh := webhook.NewHandler(testHookSecret, webhook.NewMemoryEventStore(), logger)
	runner := worker.NewRunner(worker.Config{WorkerID: "test-worker"}, q, jobs, mem, provider.NewMock(), logger)

	handler := NewHandler(coord, reader, wh, runner, logger)
	mw := middleware.NewMiddleware(testAPIKey, testWorkerSecret)
	return &serverFixture{
		hertz: NewRouter(handler, mw).Build(":0"),
		jobs:  jobs,
		queue: q,
		mem:   mem,
	}
}

func perform(f *serverFixture, method, path string, body []byte, headers ...ut.Header) *ut.ResponseRecorder {
	var b *ut.Body
	if body != nil {
		b = &ut.Body{Body: bytes.NewReader(body), Len: len(body)}
	}
	return ut.PerformRequest(f.hertz.Engine, method, path, b, headers...)
}

func bearer(token string) ut.Header {
	return ut.Header{Key: "Authorization", Value: "Bearer " + token}
}

func decode(t *testing.T, w *ut.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(w.Result().Body(), &out); err != nil {
		t.Fatalf("decode response %q: %v", w.Result().Body(), err)
	}
	return out
}

func TestHealthCheck(t *testing.T) {
	f := buildServer(t)
	w := perform(f, "GET", "/api/health", nil)
	if w.Result().StatusCode() != 200 {
		t.Fatalf("status = %d, want 200", w.Result().StatusCode())
	}
	if decode(t, w)["status"] != "ok" {
		t.Errorf("body = %s", w.Result().Body())
	}
}

func TestTranslateRequiresAuth(t *testing.T) {
	f := buildServer(t)
	body := []byte(`{}`)

	if w := perform(f, "POST", "/translate", body); w.Result().StatusCode() != 401 {
		t.Errorf("no credential: status = %d, want 401", w.Result().StatusCode())
	}
	if w := perform(f, "POST", "/translate", body, bearer("wrong")); w.Result().StatusCode() != 401 {
		t.Errorf("wrong credential: status = %d, want 401", w.Result().StatusCode())
	}
}

func TestTranslateAdmitsJob(t *testing.T) {
	f := buildServer(t)
	body := []byte(fmt.Sprintf(
		`{"siteId":%q,"html":"<p>Hello world.</p><p>Goodbye.</p>","targetLocales":["es"]}`,
		uuid.NewString()))

	w := perform(f, "POST", "/translate", body, bearer(testAPIKey))
	if w.Result().StatusCode() != 200 {
		t.Fatalf("status = %d, body = %s", w.Result().StatusCode(), w.Result().Body())
	}
	resp := decode(t, w)
	if resp["jobId"] == nil {
		t.Fatal("jobId must be set when segments need translation")
	}
	if resp["toTranslateCount"].(float64) != 2 {
		t.Errorf("toTranslateCount = %v, want 2", resp["toTranslateCount"])
	}
	if c, _ := f.queue.Claim(context.Background(), "w", time.Minute); c == nil {
		t.Error("admitted job must be claimable")
	}
}

func TestTranslateFullyCached(t *testing.T) {
	f := buildServer(t)
	siteID := uuid.NewString()
	err := f.mem.Upsert(context.Background(), siteID, []memory.Entry{
		{Hash: segment.Hash("Hello world."), Lang: "es", SourceLang: "auto", Text: "Hola mundo."},
		{Hash: segment.Hash("Goodbye."), Lang: "es", SourceLang: "auto", Text: "Adiós."},
	})
	if err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	body := []byte(fmt.Sprintf(
		`{"siteId":%q,"html":"<p>Hello world.</p><p>Goodbye.</p>","targetLocales":["es"]}`, siteID))

	w := perform(f, "POST", "/translate", body, bearer(testAPIKey))
	resp := decode(t, w)
	if resp["jobId"] != nil {
		t.Errorf("fully cached request must not create a job: %v", resp)
	}
	if resp["cachedCount"].(float64) != 2 || resp["toTranslateCount"].(float64) != 0 {
		t.Errorf("counts = %v", resp)
	}
}

func TestTranslateValidationError(t *testing.T) {
	f := buildServer(t)
	body := []byte(fmt.Sprintf(
		`{"siteId":%q,"url":"https://a.example","html":"<p>x</p>","targetLocales":["es"]}`,
		uuid.NewString()))

	w := perform(f, "POST", "/translate", body, bearer(testAPIKey))
	if w.Result().StatusCode() != 400 {
		t.Errorf("url+html together: status = %d, want 400", w.Result().StatusCode())
	}
}

func TestJobStatus(t *testing.T) {
	f := buildServer(t)
	siteID := uuid.NewString()
	jobID, _, err := f.jobs.InsertJob(context.Background(), &job.Job{
		ID: uuid.NewString(), SiteID: siteID, Status: job.StatusPending,
	})
	if err != nil {
		t.Fatalf("InsertJob: %v", err)
	}

	w := perform(f, "GET", "/translate/"+jobID+"?siteId="+siteID, nil, bearer(testAPIKey))
	if w.Result().StatusCode() != 200 {
		t.Fatalf("status = %d, body = %s", w.Result().StatusCode(), w.Result().Body())
	}
	if decode(t, w)["status"] != "pending" {
		t.Errorf("body = %s", w.Result().Body())
	}

	// 其他站点的任务按不存在处理
	w = perform(f, "GET", "/translate/"+jobID+"?siteId="+uuid.NewString(), nil, bearer(testAPIKey))
	if w.Result().StatusCode() != 404 {
		t.Errorf("foreign site: status = %d, want 404", w.Result().StatusCode())
	}

	w = perform(f, "GET", "/translate/"+jobID, nil, bearer(testAPIKey))
	if w.Result().StatusCode() != 400 {
		t.Errorf("missing siteId: status = %d, want 400", w.Result().StatusCode())
	}
}

func TestWorkerRun(t *testing.T) {
	f := buildServer(t)

	if w := perform(f, "POST", "/worker/run", nil); w.Result().StatusCode() != 401 {
		t.Errorf("no secret: status = %d, want 401", w.Result().StatusCode())
	}

	secret := ut.Header{Key: "X-Worker-Secret", Value: testWorkerSecret}
	w := perform(f, "POST", "/worker/run", nil, secret)
	if w.Result().StatusCode() != 200 {
		t.Fatalf("status = %d, body = %s", w.Result().StatusCode(), w.Result().Body())
	}
	if decode(t, w)["processed"].(float64) != 0 {
		t.Errorf("empty queue must process 0 jobs: %s", w.Result().Body())
	}

	// 入一个任务后排空，mock 提供商应把它译完
	siteID := uuid.NewString()
	body := []byte(fmt.Sprintf(
		`{"siteId":%q,"html":"<p>Hello world.</p>","targetLocales":["fr"]}`, siteID))
	admit := decode(t, perform(f, "POST", "/translate", body, bearer(testAPIKey)))
	jobID := admit["jobId"].(string)

	w = perform(f, "POST", "/worker/run", []byte(`{"batch":5}`), secret)
	resp := decode(t, w)
	if resp["processed"].(float64) != 1 {
		t.Fatalf("processed = %v, want 1: %s", resp["processed"], w.Result().Body())
	}
	j, err := f.jobs.GetJobByID(context.Background(), jobID)
	if err != nil || j.Status != job.StatusCompleted {
		t.Errorf("job after run = %+v, %v", j, err)
	}
}

func TestLemonSqueezyWebhook(t *testing.T) {
	f := buildServer(t)
	body := []byte(`{"meta":{"event_name":"order_created","webhook_id":"evt-http-1"}}`)
	sig := ut.Header{Key: "X-Signature", Value: webhook.Sign(testHookSecret, body)}
	event := ut.Header{Key: "X-Event-Name", Value: "order_created"}

	w := perform(f, "POST", "/webhooks/lemonsqueezy", body, sig, event)
	if w.Result().StatusCode() != 200 {
		t.Fatalf("status = %d, body = %s", w.Result().StatusCode(), w.Result().Body())
	}
	if decode(t, w)["duplicate"] != false {
		t.Errorf("first delivery flagged duplicate: %s", w.Result().Body())
	}

	// 原样重放：仍 200，但标记重复
	w = perform(f, "POST", "/webhooks/lemonsqueezy", body, sig, event)
	if w.Result().StatusCode() != 200 || decode(t, w)["duplicate"] != true {
		t.Errorf("replay: status = %d, body = %s", w.Result().StatusCode(), w.Result().Body())
	}

	bad := ut.Header{Key: "X-Signature", Value: "deadbeef"}
	if w := perform(f, "POST", "/webhooks/lemonsqueezy", body, bad, event); w.Result().StatusCode() != 401 {
		t.Errorf("bad signature: status = %d, want 401", w.Result().StatusCode())
	}
}
