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

package job

import (
	"context"
	"sort"
	"sync"
	"time"

	apperrors "translate-platform/pkg/errors"
)

// MemoryStore 内存任务存储，语义与 PGStore 一致
type MemoryStore struct {
	mu         sync.RWMutex
	jobs       map[string]*Job
	units      map[string][]WorkUnit
	nextUnitID int64
}

// NewMemoryStore 创建内存任务存储
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		jobs:  make(map[string]*Job),
		units: make(map[string][]WorkUnit),
	}
}

// InsertJob 插入任务；同站点幂等键已存在时返回已有任务 ID 且 created=false
func (s *MemoryStore) InsertJob(ctx context.Context, j *Job) (jobID string, created bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if j.IdempotencyKey != nil {
		for _, existing := range s.jobs {
			if existing.SiteID == j.SiteID && existing.IdempotencyKey != nil &&
				*existing.IdempotencyKey == *j.IdempotencyKey {
				return existing.ID, false, nil
			}
		}
	}
	cp := *j
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = time.Now()
	}
	s.jobs[cp.ID] = &cp
	return cp.ID, true, nil
}

// InsertUnits 插入工作单元，(segment_hash, target_lang) 重复的静默跳过
func (s *MemoryStore) InsertUnits(ctx context.Context, jobID string, units []WorkUnit) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing := make(map[string]bool)
	for _, u := range s.units[jobID] {
		existing[u.SegmentHash+"\x00"+u.TargetLang] = true
	}
	for _, u := range units {
		key := u.SegmentHash + "\x00" + u.TargetLang
		if existing[key] {
			continue
		}
		existing[key] = true
		s.nextUnitID++
		u.ID = s.nextUnitID
		u.JobID = jobID
		s.units[jobID] = append(s.units[jobID], u)
	}
	return nil
}

// SetStatus 更新任务状态并打点对应时间戳
func (s *MemoryStore) SetStatus(ctx context.Context, jobID string, status Status, lastError *string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.jobs[jobID]
	if !ok {
		return apperrors.New(apperrors.KindNotFound, "job not found")
	}
	j.Status = status
	if lastError != nil {
		j.LastError = lastError
	}
	now := time.Now()
	switch status {
	case StatusProcessing:
		if j.StartedAt == nil {
			j.StartedAt = &now
		}
	case StatusCompleted:
		j.CompletedAt = &now
	case StatusFailed:
		j.FailedAt = &now
	}
	return nil
}

func (s *MemoryStore) GetJob(ctx context.Context, siteID, jobID string) (*Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	j, ok := s.jobs[jobID]
	if !ok || j.SiteID != siteID {
		return nil, apperrors.New(apperrors.KindNotFound, "job not found")
	}
	cp := *j
	return &cp, nil
}

func (s *MemoryStore) GetJobByID(ctx context.Context, jobID string) (*Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	j, ok := s.jobs[jobID]
	if !ok {
		return nil, apperrors.New(apperrors.KindNotFound, "job not found")
	}
	cp := *j
	return &cp, nil
}

func (s *MemoryStore) ListUnits(ctx context.Context, jobID string) ([]WorkUnit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]WorkUnit, len(s.units[jobID]))
	copy(out, s.units[jobID])
	sort.SliceStable(out, func(i, k int) bool {
		if out[i].Seq != out[k].Seq {
			return out[i].Seq < out[k].Seq
		}
		return out[i].ID < out[k].ID
	})
	return out, nil
}

func (s *MemoryStore) PendingUnits(ctx context.Context, jobID string) ([]WorkUnit, error) {
	all, err := s.ListUnits(ctx, jobID)
	if err != nil {
		return nil, err
	}
	var pending []WorkUnit
	for _, u := range all {
		if !u.Translated() {
			pending = append(pending, u)
		}
	}
	return pending, nil
}

func (s *MemoryStore) SetUnitTranslations(ctx context.Context, jobID, targetLang string, translations map[string]string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	updated := 0
	units := s.units[jobID]
	for i := range units {
		if units[i].TargetLang != targetLang {
			continue
		}
		if text, ok := translations[units[i].SegmentHash]; ok {
			t := text
			units[i].TranslatedText = &t
			updated++
		}
	}
	return updated, nil
}

func (s *MemoryStore) RefreshProgress(ctx context.Context, jobID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.jobs[jobID]
	if !ok {
		return apperrors.New(apperrors.KindNotFound, "job not found")
	}
	count := 0
	for _, u := range s.units[jobID] {
		if u.Translated() {
			count++
		}
	}
	j.TranslatedSegments = count
	return nil
}
