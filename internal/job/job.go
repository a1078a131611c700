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

// Package job 翻译任务与工作单元的领域模型和存储
package job

import (
	"context"
	"time"
)

// Status 任务生命周期状态
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// Terminal completed 与 failed 为终态，不再被队列触碰
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Job 一次页面翻译任务；RequestedSegments 统计 segment × locale 对
type Job struct {
	ID                 string
	SiteID             string
	SourceURL          string
	Status             Status
	IdempotencyKey     *string
	RequestedSegments  int
	TranslatedSegments int
	LastError          *string
	CreatedAt          time.Time
	StartedAt          *time.Time
	CompletedAt        *time.Time
	FailedAt           *time.Time
}

// WorkUnit 一个 (segment, target_lang) 对。Seq 保持文档顺序，
// 状态页按 Seq 重组 completed_html。
type WorkUnit struct {
	ID             int64
	JobID          string
	Seq            int
	SourceLang     string
	TargetLang     string
	SegmentHash    string
	SourceText     string
	Locator        string
	Attr           string
	TranslatedText *string
}

// Translated 该单元是否已有译文
func (u WorkUnit) Translated() bool {
	return u.TranslatedText != nil
}

// Store 任务与工作单元的持久化接口
type Store interface {
	// GetJob 站点作用域内查询；jobID 属于其他站点时返回 not_found
	GetJob(ctx context.Context, siteID, jobID string) (*Job, error)
	// GetJobByID 不做站点过滤，仅供 worker 侧使用
	GetJobByID(ctx context.Context, jobID string) (*Job, error)
	// ListUnits 按 Seq 升序返回任务的全部工作单元
	ListUnits(ctx context.Context, jobID string) ([]WorkUnit, error)
	// PendingUnits 仅返回尚无译文的工作单元
	PendingUnits(ctx context.Context, jobID string) ([]WorkUnit, error)
	// SetUnitTranslations 按 (segment_hash -> 译文) 批量回填某个目标语言的单元，
	// 返回实际更新的行数
	SetUnitTranslations(ctx context.Context, jobID, targetLang string, translations map[string]string) (int, error)
	// RefreshProgress 重算 translated_segments 计数
	RefreshProgress(ctx context.Context, jobID string) error
}
