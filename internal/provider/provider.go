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

// Package provider 机器翻译提供商客户端：带重试的批量翻译
package provider

import (
	"context"
	"net/http"

	apperrors "translate-platform/pkg/errors"
)

// Translator 批量翻译接口。texts 与返回值一一对应；
// 条数不一致视为 provider_fatal。
type Translator interface {
	Translate(ctx context.Context, texts []string, sourceLang, targetLang string) ([]string, error)
}

// ClassifyStatus 提供商 HTTP 状态码 → 错误类别。
// 456 是 DeepL 的配额用尽码，与 400/403 一样不可重试。
func ClassifyStatus(status int) apperrors.Kind {
	switch {
	case status == http.StatusTooManyRequests:
		return apperrors.KindProviderRetryable
	case status >= 500:
		return apperrors.KindProviderRetryable
	case status == http.StatusBadRequest,
		status == http.StatusForbidden,
		status == http.StatusUnauthorized,
		status == 456:
		return apperrors.KindProviderFatal
	}
	return apperrors.KindProviderFatal
}
