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
	"sync"

	"golang.org/x/time/rate"
)

// SiteLimiter 按站点的页面提交限流器（TRANSLATE_MAX_PAGES_PER_MINUTE）。
// 每个站点独立令牌桶，桶按需创建且不回收；站点数量有限，常驻即可。
type SiteLimiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	perMin   int
}

// NewSiteLimiter 创建站点限流器；perMin <= 0 时不限流
func NewSiteLimiter(perMin int) *SiteLimiter {
	return &SiteLimiter{
		limiters: make(map[string]*rate.Limiter),
		perMin:   perMin,
	}
}

// Allow 非阻塞判定该站点是否还有本分钟配额
func (l *SiteLimiter) Allow(siteID string) bool {
	if l.perMin <= 0 {
		return true
	}
	l.mu.Lock()
	lim, ok := l.limiters[siteID]
	if !ok {
		lim = rate.NewLimiter(rate.Limit(float64(l.perMin)/60.0), l.perMin)
		l.limiters[siteID] = lim
	}
	l.mu.Unlock()
	return lim.Allow()
}
