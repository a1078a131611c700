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
	"errors"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	apperrors "translate-platform/pkg/errors"
	"translate-platform/pkg/metrics"
)

// Config DeepL 客户端配置
type Config struct {
	APIKey     string
	BaseURL    string
	Timeout    time.Duration
	MaxRetries int
	Backoff    Backoff
}

// DeepLClient DeepL 翻译客户端。每次调用内部带重试：
// 429/5xx/超时/网络错误按指数退避重试，400/403/456 直接失败。
type DeepLClient struct {
	config Config
	client *resty.Client
	sleep  func(ctx context.Context, d time.Duration) error
}

// NewDeepLClient 创建 DeepL 客户端
func NewDeepLClient(cfg Config) *DeepLClient {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.Backoff.Min <= 0 {
		cfg.Backoff.Min = 500 * time.Millisecond
	}
	if cfg.Backoff.Max <= 0 {
		cfg.Backoff.Max = 5 * time.Second
	}
	client := resty.New()
	client.SetTimeout(cfg.Timeout)
	client.SetBaseURL(strings.TrimRight(cfg.BaseURL, "/"))
	return &DeepLClient{config: cfg, client: client, sleep: sleepCtx}
}

type translateRequest struct {
	Text       []string `json:"text"`
	TargetLang string   `json:"target_lang"`
	SourceLang string   `json:"source_lang,omitempty"`
}

type translateResponse struct {
	Translations []struct {
		Text string `json:"text"`
	} `json:"translations"`
}

func (c *DeepLClient) Translate(ctx context.Context, texts []string, sourceLang, targetLang string) ([]string, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	body := translateRequest{
		Text:       texts,
		TargetLang: strings.ToUpper(targetLang),
	}
	// "auto" 交给提供商检测
	if sourceLang != "" && sourceLang != "auto" {
		body.SourceLang = strings.ToUpper(sourceLang)
	}

	for attempt := 0; ; attempt++ {
		out, status, retryAfter, err := c.call(ctx, body)
		if err == nil {
			if len(out) != len(texts) {
				return nil, apperrors.Newf(apperrors.KindProviderFatal,
					"提供商返回 %d 条译文，请求 %d 条", len(out), len(texts))
			}
			return out, nil
		}
		if !apperrors.Retryable(apperrors.KindOf(err)) || attempt >= c.config.MaxRetries {
			return nil, err
		}
		metrics.ProviderRetryTotal.WithLabelValues(retryReason(status, err)).Inc()
		delay := c.config.Backoff.Delay(attempt + 1)
		if retryAfter > 0 {
			delay = c.config.Backoff.Clamp(retryAfter)
		}
		if err := c.sleep(ctx, delay); err != nil {
			return nil, apperrors.WithKind(apperrors.KindInternal, err, "翻译重试被中断")
		}
	}
}

// call 单次提供商请求；返回 HTTP 状态码，429 时附带 Retry-After 提示
func (c *DeepLClient) call(ctx context.Context, body translateRequest) ([]string, int, time.Duration, error) {
	var result translateResponse
	resp, err := c.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetHeader("Authorization", "DeepL-Auth-Key "+c.config.APIKey).
		SetBody(body).
		SetResult(&result).
		Post("/v2/translate")
	if err != nil {
		// 超时与网络错误可重试
		return nil, 0, 0, apperrors.WithKind(apperrors.KindProviderRetryable, err, "调用翻译提供商失败")
	}
	if resp.IsError() {
		kind := ClassifyStatus(resp.StatusCode())
		retryAfter := parseRetryAfter(resp.Header().Get("Retry-After"))
		return nil, resp.StatusCode(), retryAfter, apperrors.Newf(kind, "翻译提供商返回 %d", resp.StatusCode())
	}
	out := make([]string, 0, len(result.Translations))
	for _, t := range result.Translations {
		out = append(out, t.Text)
	}
	return out, resp.StatusCode(), 0, nil
}

// retryReason 重试计数的 reason 标签；status 为 0 表示请求没有到达对端
func retryReason(status int, err error) string {
	switch {
	case status == http.StatusTooManyRequests:
		return "rate_limited"
	case status >= 500:
		return "server_error"
	}
	var nerr net.Error
	if errors.As(err, &nerr) && nerr.Timeout() {
		return "timeout"
	}
	return "network"
}

// parseRetryAfter 仅支持秒数形式，HTTP 日期形式忽略
func parseRetryAfter(v string) time.Duration {
	if v == "" {
		return 0
	}
	secs, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil || secs <= 0 {
		return 0
	}
	return time.Duration(secs) * time.Second
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
