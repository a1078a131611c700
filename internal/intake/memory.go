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

package intake

import (
	"context"

	"translate-platform/internal/job"
	"translate-platform/internal/queue"
)

// MemoryAdmitter 内存 Admitter，语义与 PGAdmitter 一致；测试与单进程模式使用
type MemoryAdmitter struct {
	jobs  *job.MemoryStore
	queue *queue.MemoryQueue
}

// NewMemoryAdmitter 创建内存 Admitter
func NewMemoryAdmitter(jobs *job.MemoryStore, q *queue.MemoryQueue) *MemoryAdmitter {
	return &MemoryAdmitter{jobs: jobs, queue: q}
}

func (a *MemoryAdmitter) Admit(ctx context.Context, adm *Admission) (string, bool, error) {
	jobID, created, err := a.jobs.InsertJob(ctx, &adm.Job)
	if err != nil {
		return "", false, err
	}
	if !created {
		return jobID, false, nil
	}
	if err := a.jobs.InsertUnits(ctx, jobID, adm.Units); err != nil {
		return "", false, err
	}
	if err := a.queue.Enqueue(ctx, jobID); err != nil {
		return "", false, err
	}
	return jobID, true, nil
}
