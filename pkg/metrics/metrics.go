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

package metrics

import (
	"bytes"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
)

// 全局 Registry，供 API/Worker 注册与暴露
var DefaultRegistry = prometheus.NewRegistry()

func init() {
	DefaultRegistry.MustRegister(
		IntakeTotal, CacheHitTotal, CacheMissTotal,
		JobDuration, JobTotal, ProviderRetryTotal,
		WorkerBusy, QueueDepth, SegmentsTranslatedTotal,
	)
}

// IntakeTotal intake 请求总数（按结果）
var IntakeTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "l10n_intake_total",
		Help: "Intake 请求总数（按结果）",
	},
	[]string{"result"}, // admitted | cached | empty | rejected
)

// CacheHitTotal Translation Memory 命中数
var CacheHitTotal = prometheus.NewCounter(
	prometheus.CounterOpts{
		Name: "l10n_memory_hit_total",
		Help: "Translation Memory 命中数",
	},
)

// CacheMissTotal Translation Memory 未命中数
var CacheMissTotal = prometheus.NewCounter(
	prometheus.CounterOpts{
		Name: "l10n_memory_miss_total",
		Help: "Translation Memory 未命中数",
	},
)

// JobDuration Job 执行耗时（秒）
var JobDuration = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "l10n_job_duration_seconds",
		Help:    "Job 执行耗时（秒）",
		Buckets: prometheus.DefBuckets,
	},
	[]string{"status"},
)

// JobTotal Job 总数（按终态）
var JobTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "l10n_job_total",
		Help: "Job 总数（按终态）",
	},
	[]string{"status"}, // completed | failed | released
)

// ProviderRetryTotal 提供商调用重试次数（按原因）
var ProviderRetryTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "l10n_provider_retry_total",
		Help: "提供商调用重试次数（按原因）",
	},
	[]string{"reason"}, // rate_limited | server_error | timeout | network
)

// WorkerBusy 正在执行 Job 的 worker 数
var WorkerBusy = prometheus.NewGaugeVec(
	prometheus.GaugeOpts{
		Name: "l10n_worker_busy",
		Help: "正在执行 Job 的 worker 数",
	},
	[]string{"worker_id"},
)

// QueueDepth 队列深度（按状态）
var QueueDepth = prometheus.NewGaugeVec(
	prometheus.GaugeOpts{
		Name: "l10n_queue_depth",
		Help: "队列深度（按状态）",
	},
	[]string{"state"}, // claimable | leased | processed
)

// SegmentsTranslatedTotal 已写回译文的工作单元数
var SegmentsTranslatedTotal = prometheus.NewCounter(
	prometheus.CounterOpts{
		Name: "l10n_segments_translated_total",
		Help: "已写回译文的工作单元数",
	},
)

// Render 以 text exposition format 导出 DefaultRegistry（/metrics 使用）
func Render() ([]byte, error) {
	mfs, err := DefaultRegistry.Gather()
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	enc := expfmt.NewEncoder(&buf, expfmt.NewFormat(expfmt.TypeTextPlain))
	for _, mf := range mfs {
		if err := enc.Encode(mf); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}
