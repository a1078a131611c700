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

// Package status 任务进度只读视图：按站点鉴权、进度计数、按语言拼装结果
package status

import (
	"context"
	"strings"

	"translate-platform/internal/job"
)

// Progress 任务进度
type Progress struct {
	Completed int `json:"completed"`
	Total     int `json:"total"`
}

// Report 状态查询结果。Progress 仅在 processing/completed 时给出，
// CompletedHTML 仅在 completed 时给出。
type Report struct {
	Status        job.Status        `json:"status"`
	Progress      *Progress         `json:"progress,omitempty"`
	CompletedHTML map[string]string `json:"completed_html,omitempty"`
	LastError     string            `json:"last_error,omitempty"`
}

// Reader 状态读取器
type Reader struct {
	jobs job.Store
}

// NewReader 创建状态读取器
func NewReader(jobs job.Store) *Reader {
	return &Reader{jobs: jobs}
}

// Read 读取任务状态。siteID 为鉴权后的租户；
// 任务不存在或属于其他站点时返回 not_found。
func (r *Reader) Read(ctx context.Context, siteID, jobID string) (*Report, error) {
	j, err := r.jobs.GetJob(ctx, siteID, jobID)
	if err != nil {
		return nil, err
	}
	report := &Report{Status: j.Status}
	if j.LastError != nil {
		report.LastError = *j.LastError
	}
	if j.Status != job.StatusProcessing && j.Status != job.StatusCompleted {
		return report, nil
	}

	units, err := r.jobs.ListUnits(ctx, jobID)
	if err != nil {
		return nil, err
	}
	completed := 0
	for _, u := range units {
		if u.Translated() {
			completed++
		}
	}
	report.Progress = &Progress{Completed: completed, Total: len(units)}

	if j.Status == job.StatusCompleted {
		report.CompletedHTML = assemble(units)
	}
	return report, nil
}

// assemble 按目标语言把译文按文档顺序拼接；属性类片段不参与正文拼装，
// 未翻译的片段回退到原文。完整 HTML 重建不在范围内。
func assemble(units []job.WorkUnit) map[string]string {
	parts := make(map[string][]string)
	for _, u := range units {
		if u.Attr != "" {
			continue
		}
		text := u.SourceText
		if u.Translated() {
			text = *u.TranslatedText
		}
		parts[u.TargetLang] = append(parts[u.TargetLang], text)
	}
	out := make(map[string]string, len(parts))
	for lang, texts := range parts {
		out[lang] = strings.Join(texts, "\n")
	}
	return out
}
