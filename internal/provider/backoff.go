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

package provider

import (
	"math/rand"
	"time"
)

const (
	backoffFactor = 2
	backoffJitter = 0.2
)

// Backoff 指数退避：d_k = clamp(min·2^(k-1), min, max) × [1-j, 1+j] 均匀抖动
type Backoff struct {
	Min time.Duration
	Max time.Duration
}

// Delay 第 attempt 次重试前的等待时长，attempt 从 1 开始
func (b Backoff) Delay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	d := b.Min
	for i := 1; i < attempt; i++ {
		d *= backoffFactor
		if d >= b.Max {
			d = b.Max
			break
		}
	}
	if d < b.Min {
		d = b.Min
	}
	if d > b.Max {
		d = b.Max
	}
	jitter := 1 - backoffJitter + rand.Float64()*2*backoffJitter
	return time.Duration(float64(d) * jitter)
}

// Clamp 外部给出的等待提示（Retry-After）也不超过退避上限
func (b Backoff) Clamp(d time.Duration) time.Duration {
	if d > b.Max {
		return b.Max
	}
	if d < 0 {
		return 0
	}
	return d
}
