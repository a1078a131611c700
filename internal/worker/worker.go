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

// Package worker 翻译任务执行循环：认领 → 调提供商 → 写回译文与记忆 → 终结
package worker

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"sync"
	"time"

	"translate-platform/internal/job"
	"translate-platform/internal/memory"
	"translate-platform/internal/provider"
	"translate-platform/internal/queue"
	"translate-platform/pkg/log"
	"translate-platform/pkg/metrics"
)

// Config Worker 配置
type Config struct {
	WorkerID    string
	Lease       time.Duration
	MaxAttempts int
	IdlePoll    time.Duration
	Concurrency int
	Heartbeat   time.Duration
	ChunkSize   int
}

func (c *Config) fill() {
	if c.WorkerID == "" {
		c.WorkerID = DefaultWorkerID()
	}
	if c.Lease <= 0 {
		c.Lease = 300 * time.Second
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 5
	}
	if c.IdlePoll <= 0 {
		c.IdlePoll = 2 * time.Second
	}
	if c.Concurrency <= 0 {
		c.Concurrency = 1
	}
	if c.Heartbeat <= 0 {
		c.Heartbeat = 60 * time.Second
	}
	if c.ChunkSize <= 0 {
		c.ChunkSize = 50
	}
}

// Runner 认领循环。信号量限制同时执行的任务数；
// 停止时不再认领，等待在途任务结束。
type Runner struct {
	cfg        Config
	queue      queue.Queue
	jobs       job.Store
	memory     memory.Store
	translator provider.Translator
	logger     *log.Logger

	siteKeys      SiteKeys
	translatorFor func(apiKey string) provider.Translator

	limiter chan struct{}
	stopCh  chan struct{}
	stopped sync.Once
	wg      sync.WaitGroup
}

// SiteKeys 站点自有提供商凭证；返回空串表示走平台凭证
type SiteKeys interface {
	ProviderKey(ctx context.Context, siteID string) (string, error)
}

// UseSiteKeys 启用站点自有提供商凭证；factory 用站点 key 构造 Translator
func (r *Runner) UseSiteKeys(keys SiteKeys, factory func(apiKey string) provider.Translator) {
	r.siteKeys = keys
	r.translatorFor = factory
}

// NewRunner 创建 Worker
func NewRunner(cfg Config, q queue.Queue, jobs job.Store, mem memory.Store, tr provider.Translator, logger *log.Logger) *Runner {
	cfg.fill()
	return &Runner{
		cfg:        cfg,
		queue:      q,
		jobs:       jobs,
		memory:     mem,
		translator: tr,
		logger:     logger,
		limiter:    make(chan struct{}, cfg.Concurrency),
		stopCh:     make(chan struct{}),
	}
}

// Start 启动认领循环与心跳日志
func (r *Runner) Start(ctx context.Context) {
	r.wg.Add(1)
	go r.heartbeatLoop(ctx)
	r.wg.Add(1)
	go r.claimLoop(ctx)
}

// Stop 停止认领并等待在途任务结束
func (r *Runner) Stop() {
	r.stopped.Do(func() { close(r.stopCh) })
	r.wg.Wait()
}

func (r *Runner) claimLoop(ctx context.Context) {
	defer r.wg.Done()
	for {
		select {
		case <-r.stopCh:
			return
		case <-ctx.Done():
			return
		case r.limiter <- struct{}{}:
		}

		claim, err := r.queue.Claim(ctx, r.cfg.WorkerID, r.cfg.Lease)
		if err != nil {
			<-r.limiter
			r.logger.Error("认领任务失败", "error", err)
			if !r.sleep(ctx, r.cfg.IdlePoll) {
				return
			}
			continue
		}
		if claim == nil {
			<-r.limiter
			if !r.sleep(ctx, r.cfg.IdlePoll) {
				return
			}
			continue
		}
		r.wg.Add(1)
		go func(c *queue.Claim) {
			defer r.wg.Done()
			defer func() { <-r.limiter }()
			r.Process(ctx, c)
		}(claim)
	}
}

// sleep 空转等待；停止信号到达时返回 false
func (r *Runner) sleep(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-r.stopCh:
		return false
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

func (r *Runner) heartbeatLoop(ctx context.Context) {
	defer r.wg.Done()
	ticker := time.NewTicker(r.cfg.Heartbeat)
	defer ticker.Stop()
	for {
		select {
		case <-r.stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			stats, err := r.queue.Stats(ctx)
			if err != nil {
				r.logger.Warn("读取队列计数失败", "error", err)
				continue
			}
			metrics.QueueDepth.WithLabelValues("claimable").Set(float64(stats.Pending))
			metrics.QueueDepth.WithLabelValues("leased").Set(float64(stats.Leased))
			metrics.QueueDepth.WithLabelValues("processed").Set(float64(stats.Processed))
			r.logger.Info("worker 心跳",
				"worker_id", r.cfg.WorkerID,
				"in_flight", len(r.limiter),
				"claimable", stats.Pending,
				"leased", stats.Leased)
		}
	}
}

// RunBatch 同步排空队列，最多处理 batch 个任务；/worker/run 触发器使用
func (r *Runner) RunBatch(ctx context.Context, batch int) []Outcome {
	if batch <= 0 {
		batch = 1
	}
	var outcomes []Outcome
	for i := 0; i < batch; i++ {
		claim, err := r.queue.Claim(ctx, r.cfg.WorkerID, r.cfg.Lease)
		if err != nil {
			r.logger.Error("认领任务失败", "error", err)
			break
		}
		if claim == nil {
			break
		}
		outcomes = append(outcomes, r.Process(ctx, claim))
	}
	return outcomes
}

// DefaultWorkerID hostname-pid-random
func DefaultWorkerID() string {
	host, _ := os.Hostname()
	if host == "" {
		host = "worker"
	}
	return fmt.Sprintf("%s-%d-%04x", host, os.Getpid(), rand.Intn(1<<16))
}
