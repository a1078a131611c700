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

// Package worker Worker 应用：常驻认领循环，关停时归还在途租约
package worker

import (
	"context"
	"time"

	"translate-platform/internal/app"
	"translate-platform/internal/job"
	"translate-platform/internal/memory"
	"translate-platform/internal/queue"
	"translate-platform/internal/site"
	"translate-platform/internal/worker"
)

// App Worker 应用
type App struct {
	bootstrap *app.Bootstrap
	runner    *worker.Runner
	cancel    context.CancelFunc
}

// NewApp 创建 Worker 应用（由 cmd/worker 调用）
func NewApp(b *app.Bootstrap) (*App, error) {
	cfg := b.Config

	jobs := job.NewPGStore(b.Pool)
	q := queue.NewPGQueue(b.Pool)
	var mem memory.Store = memory.NewPGStore(b.Pool)
	if b.Cache != nil {
		mem = memory.NewRedisCache(mem, b.Cache, cfg.Cache.TTL)
	}

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

	return &App{bootstrap: b, runner: runner}, nil
}

// Start 启动认领循环
func (a *App) Start() error {
	ctx, cancel := context.WithCancel(context.Background())
	a.cancel = cancel
	a.runner.Start(ctx)
	a.bootstrap.Logger.Info("worker 启动",
		"concurrency", a.bootstrap.Config.Worker.Concurrency,
		"lease_seconds", a.bootstrap.Config.Worker.LeaseSeconds)
	return nil
}

// Shutdown 取消在途任务并等待归还租约后退出
func (a *App) Shutdown(ctx context.Context) error {
	if a.cancel != nil {
		a.cancel()
	}
	done := make(chan struct{})
	go func() {
		a.runner.Stop()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		a.bootstrap.Logger.Warn("等待在途任务超时，强制退出")
	}
	a.bootstrap.Close()
	return nil
}
