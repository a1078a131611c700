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

// Package queue 持久化租约队列：每个任务一行，租约到期自动可被再次认领
package queue

import (
	"context"
	"time"
)

// Claim 一次成功认领。LockToken 每次认领轮换，
// 持有过期 token 的调用方对该任务不再有任何权限。
type Claim struct {
	JobID     string
	LockToken string
	Attempts  int
}

// Stats 队列即时计数
type Stats struct {
	Pending   int
	Leased    int
	Processed int
}

// Queue 翻译任务队列。认领将任务转入 processing 并递增 attempts；
// Release 归还为 pending，Complete 置为终态。两者都要求有效 token，
// 并以返回值报告 token 是否仍然有效。
type Queue interface {
	// Enqueue 任务入队；已存在未处理行时保持原 enqueued 位置，
	// 已处理的行重新武装（processed=false、租约清空、attempts 保留）
	Enqueue(ctx context.Context, jobID string) error
	// Claim 认领最老的可认领任务，队列为空返回 (nil, nil)
	Claim(ctx context.Context, workerID string, lease time.Duration) (*Claim, error)
	// ClaimByID 定向认领指定任务，不可认领时返回 (nil, nil)
	ClaimByID(ctx context.Context, jobID, workerID string, lease time.Duration) (*Claim, error)
	// Release 归还任务并清空租约，任务回到 pending
	Release(ctx context.Context, jobID, lockToken, errText string) (bool, error)
	// Complete 终结任务：success 决定 completed 还是 failed
	Complete(ctx context.Context, jobID, lockToken string, success bool, errText string) (bool, error)
	// ExtendLease 心跳续租
	ExtendLease(ctx context.Context, jobID, lockToken string, lease time.Duration) (bool, error)
	Stats(ctx context.Context) (Stats, error)
}
