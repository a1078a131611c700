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
	"context"
	"strings"
)

// Mock 开发与测试用翻译器：译文为 "原文 [目标语言]"，不出网
type Mock struct{}

// NewMock 创建 mock 翻译器（MOCK_PROVIDER=true）
func NewMock() *Mock {
	return &Mock{}
}

func (m *Mock) Translate(ctx context.Context, texts []string, sourceLang, targetLang string) ([]string, error) {
	out := make([]string, len(texts))
	suffix := " [" + strings.ToUpper(targetLang) + "]"
	for i, t := range texts {
		out[i] = t + suffix
	}
	return out, nil
}
