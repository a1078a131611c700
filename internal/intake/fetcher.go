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
	"errors"
	"io"
	"net"
	"time"

	"github.com/go-resty/resty/v2"

	apperrors "translate-platform/pkg/errors"
)

// Fetcher 外部页面抓取。SSRF 防护（私网/环回/metadata 目标拒绝）
// 由上游网络策略承担，这里只负责超时与体积上限。
type Fetcher struct {
	client   *resty.Client
	maxBytes int64
}

// NewFetcher 创建抓取器；maxBytes 为响应体上限
func NewFetcher(timeout time.Duration, maxBytes int64) *Fetcher {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	if maxBytes <= 0 {
		maxBytes = 2 << 20
	}
	client := resty.New()
	client.SetTimeout(timeout)
	client.SetDoNotParseResponse(true)
	return &Fetcher{client: client, maxBytes: maxBytes}
}

// Fetch 抓取 URL；体积超限返回 payload_too_large，
// 超时返回 fetch_timeout，其余失败返回 fetch_failed
func (f *Fetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	resp, err := f.client.R().SetContext(ctx).Get(url)
	if err != nil {
		if isTimeout(err) {
			return nil, apperrors.WithKind(apperrors.KindFetchTimeout, err, "抓取页面超时")
		}
		return nil, apperrors.WithKind(apperrors.KindFetchFailed, err, "抓取页面失败")
	}
	body := resp.RawBody()
	defer body.Close()

	if resp.StatusCode() < 200 || resp.StatusCode() >= 300 {
		return nil, apperrors.Newf(apperrors.KindFetchFailed, "抓取页面返回 %d", resp.StatusCode())
	}
	data, err := io.ReadAll(io.LimitReader(body, f.maxBytes+1))
	if err != nil {
		if isTimeout(err) {
			return nil, apperrors.WithKind(apperrors.KindFetchTimeout, err, "读取页面超时")
		}
		return nil, apperrors.WithKind(apperrors.KindFetchFailed, err, "读取页面失败")
	}
	if int64(len(data)) > f.maxBytes {
		return nil, apperrors.Newf(apperrors.KindPayloadTooLarge, "页面超过 %d 字节上限", f.maxBytes)
	}
	return data, nil
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
