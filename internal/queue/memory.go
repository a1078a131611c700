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

package queue

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"translate-platform/internal/job"
)

type memoryEntry struct {
	jobID       string
	enqueuedAt  time.Time
	processed   bool
	attempts    int
	lockedBy    string
	lockToken   string
	leaseExpiry time.Time
	lastError   string
}

// MemoryQueue 内存队列，与 PGQueue 同语义。任务状态转移写入给定的任务存储。
type MemoryQueue struct {
	mu      sync.Mutex
	entries map[string]*memoryEntry
	jobs    *job.MemoryStore
	now     func() time.Time
}

// NewMemoryQueue 创建内存队列
func NewMemoryQueue(jobs *job.MemoryStore) *MemoryQueue {
	return &MemoryQueue{
		entries: make(map[string]*memoryEntry),
		jobs:    jobs,
		now:     time.Now,
	}
}

func (q *MemoryQueue) Enqueue(ctx context.Context, jobID string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	e, ok := q.entries[jobID]
	if !ok {
		q.entries[jobID] = &memoryEntry{jobID: jobID, enqueuedAt: q.now()}
		return nil
	}
	// 重新武装回到队尾，不继承旧的排队位置
	e.enqueuedAt = q.now()
	e.processed = false
	e.lockedBy = ""
	e.lockToken = ""
	e.leaseExpiry = time.Time{}
	return nil
}

func (e *memoryEntry) claimable(now time.Time) bool {
	return !e.processed && (e.leaseExpiry.IsZero() || e.leaseExpiry.Before(now))
}

func (q *MemoryQueue) Claim(ctx context.Context, workerID string, lease time.Duration) (*Claim, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	now := q.now()
	var candidates []*memoryEntry
	for _, e := range q.entries {
		if e.claimable(now) {
			candidates = append(candidates, e)
		}
	}
	if len(candidates) == 0 {
		return nil, nil
	}
	sort.Slice(candidates, func(i, k int) bool {
		if !candidates[i].enqueuedAt.Equal(candidates[k].enqueuedAt) {
			return candidates[i].enqueuedAt.Before(candidates[k].enqueuedAt)
		}
		return candidates[i].jobID < candidates[k].jobID
	})
	return q.lock(ctx, candidates[0], workerID, lease, now)
}

func (q *MemoryQueue) ClaimByID(ctx context.Context, jobID, workerID string, lease time.Duration) (*Claim, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	now := q.now()
	e, ok := q.entries[jobID]
	if !ok || !e.claimable(now) {
		return nil, nil
	}
	return q.lock(ctx, e, workerID, lease, now)
}

// lock 调用方必须已持有 q.mu
func (q *MemoryQueue) lock(ctx context.Context, e *memoryEntry, workerID string, lease time.Duration, now time.Time) (*Claim, error) {
	e.lockedBy = workerID
	e.lockToken = uuid.NewString()
	e.leaseExpiry = now.Add(lease)
	e.attempts++
	if err := q.jobs.SetStatus(ctx, e.jobID, job.StatusProcessing, nil); err != nil {
		return nil, err
	}
	return &Claim{JobID: e.jobID, LockToken: e.lockToken, Attempts: e.attempts}, nil
}

func (q *MemoryQueue) Release(ctx context.Context, jobID, lockToken, errText string) (bool, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	e, ok := q.entries[jobID]
	if !ok || e.processed || e.lockToken == "" || e.lockToken != lockToken {
		return false, nil
	}
	e.lockedBy = ""
	e.lockToken = ""
	e.leaseExpiry = time.Time{}
	e.lastError = errText
	var errPtr *string
	if errText != "" {
		errPtr = &errText
	}
	if err := q.jobs.SetStatus(ctx, jobID, job.StatusPending, errPtr); err != nil {
		return false, err
	}
	return true, nil
}

func (q *MemoryQueue) Complete(ctx context.Context, jobID, lockToken string, success bool, errText string) (bool, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	e, ok := q.entries[jobID]
	if !ok || e.processed || e.lockToken == "" || e.lockToken != lockToken {
		return false, nil
	}
	e.processed = true
	e.lockedBy = ""
	e.lockToken = ""
	e.leaseExpiry = time.Time{}
	e.lastError = errText

	status := job.StatusCompleted
	var errPtr *string
	if !success {
		status = job.StatusFailed
		if errText != "" {
			errPtr = &errText
		}
	}
	if err := q.jobs.SetStatus(ctx, jobID, status, errPtr); err != nil {
		return false, err
	}
	return true, nil
}

func (q *MemoryQueue) ExtendLease(ctx context.Context, jobID, lockToken string, lease time.Duration) (bool, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	e, ok := q.entries[jobID]
	if !ok || e.processed || e.lockToken == "" || e.lockToken != lockToken {
		return false, nil
	}
	e.leaseExpiry = q.now().Add(lease)
	return true, nil
}

func (q *MemoryQueue) Stats(ctx context.Context) (Stats, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	now := q.now()
	var s Stats
	for _, e := range q.entries {
		switch {
		case e.processed:
			s.Processed++
		case e.claimable(now):
			s.Pending++
		default:
			s.Leased++
		}
	}
	return s, nil
}
