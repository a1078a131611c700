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

package worker

import (
	"context"
	"sort"
	"time"

	"translate-platform/internal/job"
	"translate-platform/internal/memory"
	"translate-platform/internal/provider"
	"translate-platform/internal/queue"
	apperrors "translate-platform/pkg/errors"
	"translate-platform/pkg/metrics"
)

// Outcome 单个任务的处理结果（/worker/run 的逐任务回执）
type Outcome struct {
	JobID             string `json:"jobId"`
	Status            string `json:"status"` // ok | error
	SegmentsProcessed int    `json:"segmentsProcessed"`
	CacheHits         int    `json:"cacheHits"`
	CacheMisses       int    `json:"cacheMisses"`
	Error             string `json:"error,omitempty"`
}

const shutdownReason = "worker shutdown"

// Process 处理一个已认领的任务。译文按目标语言分组写回，
// 每组落库后即为不可回退的进度；全部成功才 Complete(true)。
func (r *Runner) Process(ctx context.Context, claim *queue.Claim) Outcome {
	metrics.WorkerBusy.WithLabelValues(r.cfg.WorkerID).Inc()
	defer metrics.WorkerBusy.WithLabelValues(r.cfg.WorkerID).Dec()
	start := time.Now()

	outcome := Outcome{JobID: claim.JobID, Status: "ok"}
	// 毒丸保护：认领次数已超上限的任务直接终结
	if claim.Attempts > r.cfg.MaxAttempts {
		r.complete(ctx, claim, false, "exceeded maximum attempts")
		metrics.JobTotal.WithLabelValues("failed").Inc()
		metrics.JobDuration.WithLabelValues("failed").Observe(time.Since(start).Seconds())
		outcome.Status = "error"
		outcome.Error = "exceeded maximum attempts"
		return outcome
	}

	r.logger.Info("开始处理任务",
		"job_id", claim.JobID, "attempts", claim.Attempts, "worker_id", r.cfg.WorkerID)
	err := r.translateJob(ctx, claim, &outcome)
	if err == nil {
		if ok := r.complete(ctx, claim, true, ""); ok {
			metrics.JobTotal.WithLabelValues("completed").Inc()
			metrics.JobDuration.WithLabelValues("completed").Observe(time.Since(start).Seconds())
			r.logger.Info("任务完成", "job_id", claim.JobID,
				"segments", outcome.SegmentsProcessed, "cache_hits", outcome.CacheHits)
		}
		return outcome
	}

	outcome.Status = "error"
	outcome.Error = err.Error()
	kind := apperrors.KindOf(err)
	switch {
	case ctx.Err() != nil:
		// 进程关停：归还租约让其他 worker 接手
		r.release(ctx, claim, shutdownReason)
		metrics.JobTotal.WithLabelValues("released").Inc()
	case kind == apperrors.KindProviderFatal:
		r.complete(ctx, claim, false, err.Error())
		metrics.JobTotal.WithLabelValues("failed").Inc()
		metrics.JobDuration.WithLabelValues("failed").Observe(time.Since(start).Seconds())
	case claim.Attempts >= r.cfg.MaxAttempts:
		r.complete(ctx, claim, false, err.Error())
		metrics.JobTotal.WithLabelValues("failed").Inc()
		metrics.JobDuration.WithLabelValues("failed").Observe(time.Since(start).Seconds())
	default:
		r.release(ctx, claim, err.Error())
		metrics.JobTotal.WithLabelValues("released").Inc()
	}
	return outcome
}

// translateJob 翻译任务的全部待译单元并写回
func (r *Runner) translateJob(ctx context.Context, claim *queue.Claim, outcome *Outcome) error {
	j, err := r.jobs.GetJobByID(ctx, claim.JobID)
	if err != nil {
		return apperrors.Wrap(err, "读取任务失败")
	}
	pending, err := r.jobs.PendingUnits(ctx, claim.JobID)
	if err != nil {
		return apperrors.Wrap(err, "读取工作单元失败")
	}
	if len(pending) == 0 {
		return nil
	}

	// 入队之后其他任务可能已温好记忆，先回探一轮省掉提供商开销
	pending, err = r.reprobe(ctx, j.SiteID, claim.JobID, pending, outcome)
	if err != nil {
		return err
	}
	outcome.CacheMisses = len(pending)

	translator := r.translatorForSite(ctx, j.SiteID)

	groups := make(map[string][]job.WorkUnit)
	for _, u := range pending {
		groups[u.TargetLang] = append(groups[u.TargetLang], u)
	}
	langs := make([]string, 0, len(groups))
	for lang := range groups {
		langs = append(langs, lang)
	}
	sort.Strings(langs)

	for _, lang := range langs {
		if err := r.translateGroup(ctx, translator, j.SiteID, claim.JobID, lang, groups[lang], outcome); err != nil {
			return err
		}
	}
	return nil
}

// translatorForSite 站点配置了自有提供商凭证时使用站点 key，
// 否则回退平台 Translator
func (r *Runner) translatorForSite(ctx context.Context, siteID string) provider.Translator {
	if r.siteKeys == nil || r.translatorFor == nil {
		return r.translator
	}
	key, err := r.siteKeys.ProviderKey(ctx, siteID)
	if err != nil {
		r.logger.Warn("读取站点提供商凭证失败，回退平台凭证", "site_id", siteID, "error", err)
		return r.translator
	}
	if key == "" {
		return r.translator
	}
	return r.translatorFor(key)
}

// reprobe 用翻译记忆回填已有译文的单元，返回仍需提供商的单元
func (r *Runner) reprobe(ctx context.Context, siteID, jobID string, pending []job.WorkUnit, outcome *Outcome) ([]job.WorkUnit, error) {
	keys := make([]memory.Key, len(pending))
	for i, u := range pending {
		keys[i] = memory.Key{Hash: u.SegmentHash, Lang: u.TargetLang}
	}
	hits, err := r.memory.Probe(ctx, siteID, keys)
	if err != nil {
		return nil, apperrors.Wrap(err, "探测翻译记忆失败")
	}
	if len(hits) == 0 {
		return pending, nil
	}

	byLang := make(map[string]map[string]string)
	var misses []job.WorkUnit
	for _, u := range pending {
		text, ok := hits[memory.Key{Hash: u.SegmentHash, Lang: u.TargetLang}]
		if !ok {
			misses = append(misses, u)
			continue
		}
		if byLang[u.TargetLang] == nil {
			byLang[u.TargetLang] = make(map[string]string)
		}
		byLang[u.TargetLang][u.SegmentHash] = text
	}
	for lang, translations := range byLang {
		n, err := r.jobs.SetUnitTranslations(ctx, jobID, lang, translations)
		if err != nil {
			return nil, apperrors.Wrap(err, "回填缓存译文失败")
		}
		outcome.CacheHits += n
		outcome.SegmentsProcessed += n
		metrics.SegmentsTranslatedTotal.Add(float64(n))
	}
	if err := r.jobs.RefreshProgress(ctx, jobID); err != nil {
		return nil, apperrors.Wrap(err, "更新任务进度失败")
	}
	return misses, nil
}

// translateGroup 翻译一个目标语言组：分片调提供商，整组译完后
// 一次写回单元并温记忆
func (r *Runner) translateGroup(ctx context.Context, translator provider.Translator, siteID, jobID, lang string, units []job.WorkUnit, outcome *Outcome) error {
	translations := make(map[string]string, len(units))
	entries := make([]memory.Entry, 0, len(units))

	for begin := 0; begin < len(units); begin += r.cfg.ChunkSize {
		end := begin + r.cfg.ChunkSize
		if end > len(units) {
			end = len(units)
		}
		chunk := units[begin:end]
		texts := make([]string, len(chunk))
		for i, u := range chunk {
			texts[i] = u.SourceText
		}
		sourceLang := chunk[0].SourceLang
		translated, err := translator.Translate(ctx, texts, sourceLang, lang)
		if err != nil {
			return err
		}
		if len(translated) != len(chunk) {
			return apperrors.Newf(apperrors.KindProviderFatal,
				"提供商返回 %d 条译文，请求 %d 条", len(translated), len(chunk))
		}
		for i, u := range chunk {
			translations[u.SegmentHash] = translated[i]
			entries = append(entries, memory.Entry{
				Hash: u.SegmentHash, Lang: lang, SourceLang: u.SourceLang, Text: translated[i],
			})
		}
	}

	n, err := r.jobs.SetUnitTranslations(ctx, jobID, lang, translations)
	if err != nil {
		return apperrors.Wrap(err, "写回译文失败")
	}
	// 记忆只用提供商成功返回的译文温
	if err := r.memory.Upsert(ctx, siteID, entries); err != nil {
		return apperrors.Wrap(err, "写入翻译记忆失败")
	}
	if err := r.jobs.RefreshProgress(ctx, jobID); err != nil {
		return apperrors.Wrap(err, "更新任务进度失败")
	}
	outcome.SegmentsProcessed += n
	metrics.SegmentsTranslatedTotal.Add(float64(n))
	return nil
}

// complete 终结任务；token 已被轮换时只能记日志丢弃
func (r *Runner) complete(ctx context.Context, claim *queue.Claim, success bool, errText string) bool {
	ok, err := r.queue.Complete(context.WithoutCancel(ctx), claim.JobID, claim.LockToken, success, errText)
	if err != nil {
		r.logger.Error("终结任务失败", "job_id", claim.JobID, "error", err)
		return false
	}
	if !ok {
		r.logger.Warn("租约已被接管，丢弃完成结果", "job_id", claim.JobID, "worker_id", r.cfg.WorkerID)
	}
	return ok
}

func (r *Runner) release(ctx context.Context, claim *queue.Claim, reason string) {
	ok, err := r.queue.Release(context.WithoutCancel(ctx), claim.JobID, claim.LockToken, reason)
	if err != nil {
		r.logger.Error("归还任务失败", "job_id", claim.JobID, "error", err)
		return
	}
	if !ok {
		r.logger.Warn("租约已被接管，丢弃归还请求", "job_id", claim.JobID, "worker_id", r.cfg.WorkerID)
		return
	}
	r.logger.Info("任务已归还", "job_id", claim.JobID, "reason", reason, "attempts", claim.Attempts)
}
