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

// Package api API 应用：装配 intake/status/webhook/worker 触发器与 HTTP 服务
package api

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/cloudwego/hertz/pkg/app/server"
	"github.com/cloudwego/hertz/pkg/common/hlog"
	hertzslog "github.com/hertz-contrib/logger/slog"
	obsprovider "github.com/hertz-contrib/obs-opentelemetry/provider"
	hertztracing "github.com/hertz-contrib/obs-opentelemetry/tracing"

	apihttp "translate-platform/internal/api/http"
	"translate-platform/internal/api/http/middleware"
	"translate-platform/internal/app"
	"translate-platform/internal/intake"
	"translate-platform/internal/job"
	"translate-platform/internal/memory"
	"translate-platform/internal/queue"
	"translate-platform/internal/site"
	"translate-platform/internal/status"
	"translate-platform/internal/webhook"
	"translate-platform/internal/worker"
)

// otelProviderShutdown 用于优雅关闭时关闭 OpenTelemetry provider
type otelProviderShutdown interface {
	Shutdown(ctx context.Context) error
}

// App API 应用
type App struct {
	bootstrap    *app.Bootstrap
	router       *apihttp.Router
	hertz        *server.Hertz
	otelProvider otelProviderShutdown
}

// NewApp 创建 API 应用（由 cmd/api 调用）
func NewApp(b *app.Bootstrap) (*App, error) {
	cfg := b.Config

	jobs := job.NewPGStore(b.Pool)
	q := queue.NewPGQueue(b.Pool)
	var mem memory.Store = memory.NewPGStore(b.Pool)
	if b.Cache != nil {
		mem = memory.NewRedisCache(mem, b.Cache, cfg.Cache.TTL)
	}

	coordinator := intake.NewCoordinator(
		mem,
		intake.NewPGAdmitter(b.Pool),
		intake.NewFetcher(cfg.Fetch.Timeout, cfg.Fetch.MaxHTMLBytes),
		intake.NewSiteLimiter(cfg.Intake.MaxPagesPerMinute),
		intake.Options{
			MaxSegments:     cfg.Intake.MaxSegments,
			MaxSegmentPairs: cfg.Intake.MaxSegmentPairs,
			MaxHTMLBytes:    cfg.Fetch.MaxHTMLBytes,
		},
		b.Logger,
	)
	reader := status.NewReader(jobs)
	wh := webhook.NewHandler(cfg.Auth.WebhookSecret, webhook.NewPGEventStore(b.Pool), b.Logger)

	// /worker/run 的同步排空器；常驻认领循环在 cmd/worker
	runner := worker.NewRunner(worker.Config{
		Lease:       time.Duration(cfg.Worker.LeaseSeconds) * time.Second,
		MaxAttempts: cfg.Worker.MaxAttempts,
		IdlePoll:    cfg.Worker.IdlePoll,
		Concurrency: cfg.Worker.Concurrency,
		Heartbeat:   cfg.Worker.Heartbeat,
		ChunkSize:   cfg.Provider.ChunkSize,
	}, q, jobs, mem, b.NewTranslator(), b.Logger)
	if b.Cipher != nil {
		runner.UseSiteKeys(site.NewKeys(site.NewPGStore(b.Pool), b.Cipher), b.TranslatorFactory())
	}

	handler := apihttp.NewHandler(coordinator, reader, wh, runner, b.Logger)
	mw := middleware.NewMiddleware(cfg.Auth.TranslateAPIKey, cfg.Auth.WorkerRunSecret)
	return &App{
		bootstrap: b,
		router:    apihttp.NewRouter(handler, mw),
	}, nil
}

// Run 构建 Hertz server 并阻塞运行；tracing 端点配置后启用链路追踪
func (a *App) Run(addr string) error {
	if err := a.bridgeHertzLog(); err != nil {
		return err
	}

	tracing := a.bootstrap.Config.Tracing
	if tracing.ExportEndpoint != "" {
		opts := []obsprovider.Option{
			obsprovider.WithServiceName(tracing.ServiceName),
			obsprovider.WithExportEndpoint(tracing.ExportEndpoint),
		}
		if tracing.Insecure {
			opts = append(opts, obsprovider.WithInsecure())
		}
		a.otelProvider = obsprovider.NewOpenTelemetryProvider(opts...)
		tracerOpt, tracerCfg := hertztracing.NewServerTracer()
		a.hertz = a.router.Build(addr, tracerOpt)
		a.hertz.Use(hertztracing.ServerMiddleware(tracerCfg))
		a.bootstrap.Logger.Info("链路追踪已启用",
			"service_name", tracing.ServiceName, "endpoint", tracing.ExportEndpoint)
	} else {
		a.hertz = a.router.Build(addr)
	}
	a.bootstrap.Logger.Info("API 服务启动", "addr", addr)
	return a.hertz.Run()
}

// bridgeHertzLog 把 hertz 框架日志接到进程的 slog 输出
func (a *App) bridgeHertzLog() error {
	logCfg := a.bootstrap.Config.Log
	var output io.Writer = os.Stdout
	if logCfg.File != "" {
		f, err := os.OpenFile(logCfg.File, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
		if err != nil {
			return fmt.Errorf("打开日志文件失败: %w", err)
		}
		output = f
	}
	levelVar := &slog.LevelVar{}
	switch logCfg.Level {
	case "debug":
		levelVar.Set(slog.LevelDebug)
	case "warn":
		levelVar.Set(slog.LevelWarn)
	case "error":
		levelVar.Set(slog.LevelError)
	default:
		levelVar.Set(slog.LevelInfo)
	}
	hlog.SetLogger(hertzslog.NewLogger(
		hertzslog.WithOutput(output),
		hertzslog.WithLevel(levelVar),
	))
	return nil
}

// Shutdown 优雅关闭（传入 ctx 以支持超时）
func (a *App) Shutdown(ctx context.Context) error {
	if a.otelProvider != nil {
		_ = a.otelProvider.Shutdown(ctx)
	}
	if a.hertz != nil {
		if err := a.hertz.Shutdown(ctx); err != nil {
			return err
		}
	}
	a.bootstrap.Close()
	return nil
}
