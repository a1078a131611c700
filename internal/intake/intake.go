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

// Package intake 翻译请求的事务性接收：切分 → 记忆探测 → 建任务入队
package intake

import (
	"context"

	"github.com/google/uuid"

	"translate-platform/internal/job"
	"translate-platform/internal/memory"
	"translate-platform/internal/segment"
	apperrors "translate-platform/pkg/errors"
	"translate-platform/pkg/log"
	"translate-platform/pkg/metrics"
)

// Request 一次接收请求；URL 与 HTML 二选一
type Request struct {
	SiteID         string
	URL            string
	HTML           string
	TargetLocales  []string
	IdempotencyKey string
}

// Result 接收结果。全部命中缓存或页面无可翻译内容时 JobID 为 nil。
type Result struct {
	JobID            *string
	CachedCount      int
	ToTranslateCount int
}

// Admission 一次事务性入库的全部内容：任务 + 工作单元 + 队列行
type Admission struct {
	Job   job.Job
	Units []job.WorkUnit
}

// Admitter 原子写入一次 Admission。幂等键冲突时返回已有任务 ID 且
// created=false，不产生新工作单元。任何失败整体回滚。
type Admitter interface {
	Admit(ctx context.Context, adm *Admission) (jobID string, created bool, err error)
}

// Options 接收侧限额
type Options struct {
	MaxSegments     int // 0 表示不限
	MaxSegmentPairs int // 0 表示不限
	MaxHTMLBytes    int64
	SourceLang      string // 默认 "auto"
}

// Coordinator 接收协调器
type Coordinator struct {
	memory   memory.Store
	admitter Admitter
	fetcher  *Fetcher
	limiter  *SiteLimiter
	opts     Options
	logger   *log.Logger
}

// NewCoordinator 创建接收协调器；fetcher 与 limiter 可为 nil（禁用对应能力）
func NewCoordinator(mem memory.Store, admitter Admitter, fetcher *Fetcher, limiter *SiteLimiter, opts Options, logger *log.Logger) *Coordinator {
	if opts.SourceLang == "" {
		opts.SourceLang = "auto"
	}
	if opts.MaxHTMLBytes <= 0 {
		opts.MaxHTMLBytes = 2 << 20
	}
	return &Coordinator{
		memory:   mem,
		admitter: admitter,
		fetcher:  fetcher,
		limiter:  limiter,
		opts:     opts,
		logger:   logger,
	}
}

// Admit 处理一次翻译请求。切分后先探测翻译记忆，只有未命中的
// (segment, locale) 对才进入任务；任务、工作单元与队列行在一个事务内落库。
func (c *Coordinator) Admit(ctx context.Context, req *Request) (*Result, error) {
	if err := c.validate(req); err != nil {
		metrics.IntakeTotal.WithLabelValues("rejected").Inc()
		return nil, err
	}
	if c.limiter != nil && !c.limiter.Allow(req.SiteID) {
		metrics.IntakeTotal.WithLabelValues("rejected").Inc()
		return nil, apperrors.New(apperrors.KindRateLimited, "站点提交频率超限")
	}

	html := req.HTML
	if req.URL != "" {
		body, err := c.fetcher.Fetch(ctx, req.URL)
		if err != nil {
			metrics.IntakeTotal.WithLabelValues("rejected").Inc()
			return nil, err
		}
		html = string(body)
	}
	if int64(len(html)) > c.opts.MaxHTMLBytes {
		metrics.IntakeTotal.WithLabelValues("rejected").Inc()
		return nil, apperrors.Newf(apperrors.KindPayloadTooLarge, "HTML 超过 %d 字节上限", c.opts.MaxHTMLBytes)
	}

	segments := segment.Extract(html)
	if len(segments) == 0 {
		metrics.IntakeTotal.WithLabelValues("empty").Inc()
		return &Result{}, nil
	}
	if c.opts.MaxSegments > 0 && len(segments) > c.opts.MaxSegments {
		metrics.IntakeTotal.WithLabelValues("rejected").Inc()
		return nil, apperrors.Newf(apperrors.KindValidation,
			"片段数 %d 超过上限 %d", len(segments), c.opts.MaxSegments)
	}
	pairCount := len(segments) * len(req.TargetLocales)
	if c.opts.MaxSegmentPairs > 0 && pairCount > c.opts.MaxSegmentPairs {
		metrics.IntakeTotal.WithLabelValues("rejected").Inc()
		return nil, apperrors.Newf(apperrors.KindValidation,
			"片段×目标语言对数 %d 超过上限 %d", pairCount, c.opts.MaxSegmentPairs)
	}

	keys := make([]memory.Key, 0, pairCount)
	for _, s := range segments {
		for _, lang := range req.TargetLocales {
			keys = append(keys, memory.Key{Hash: s.Hash, Lang: lang})
		}
	}
	hits, err := c.memory.Probe(ctx, req.SiteID, keys)
	if err != nil {
		return nil, apperrors.Wrap(err, "探测翻译记忆失败")
	}
	metrics.CacheHitTotal.Add(float64(len(hits)))
	metrics.CacheMissTotal.Add(float64(pairCount - len(hits)))

	units := c.buildUnits(segments, req.TargetLocales, hits)
	result := &Result{CachedCount: len(hits), ToTranslateCount: len(units)}
	if len(units) == 0 {
		metrics.IntakeTotal.WithLabelValues("cached").Inc()
		return result, nil
	}

	adm := &Admission{
		Job: job.Job{
			ID:                uuid.NewString(),
			SiteID:            req.SiteID,
			SourceURL:         req.URL,
			Status:            job.StatusPending,
			RequestedSegments: len(units),
		},
		Units: units,
	}
	if req.IdempotencyKey != "" {
		key := req.IdempotencyKey
		adm.Job.IdempotencyKey = &key
	}
	jobID, created, err := c.admitter.Admit(ctx, adm)
	if err != nil {
		return nil, apperrors.Wrap(err, "任务入库失败")
	}
	if !created && c.logger != nil {
		c.logger.Info("幂等键命中，吸收重试", "site_id", req.SiteID, "job_id", jobID)
	}
	metrics.IntakeTotal.WithLabelValues("admitted").Inc()
	result.JobID = &jobID
	return result, nil
}

func (c *Coordinator) validate(req *Request) error {
	if _, err := uuid.Parse(req.SiteID); err != nil {
		return apperrors.New(apperrors.KindValidation, "siteId 必须是 UUID")
	}
	if len(req.TargetLocales) == 0 {
		return apperrors.New(apperrors.KindValidation, "targetLocales 不能为空")
	}
	for _, lang := range req.TargetLocales {
		if lang == "" {
			return apperrors.New(apperrors.KindValidation, "targetLocales 含空值")
		}
	}
	hasURL := req.URL != ""
	hasHTML := req.HTML != ""
	if hasURL == hasHTML {
		return apperrors.New(apperrors.KindValidation, "url 与 html 必须且只能提供一个")
	}
	if hasURL && c.fetcher == nil {
		return apperrors.New(apperrors.KindValidation, "未启用 URL 抓取")
	}
	return nil
}

// buildUnits 未命中的 (segment, locale) 笛卡尔积展开为工作单元，
// Seq 保持片段的文档顺序
func (c *Coordinator) buildUnits(segments []segment.Segment, locales []string, hits map[memory.Key]string) []job.WorkUnit {
	var units []job.WorkUnit
	for seq, s := range segments {
		for _, lang := range locales {
			if _, ok := hits[memory.Key{Hash: s.Hash, Lang: lang}]; ok {
				continue
			}
			units = append(units, job.WorkUnit{
				Seq:         seq,
				SourceLang:  c.opts.SourceLang,
				TargetLang:  lang,
				SegmentHash: s.Hash,
				SourceText:  s.Text,
				Locator:     s.Locator,
				Attr:        s.Attr,
			})
		}
	}
	return units
}
