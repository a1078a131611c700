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

package http

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"time"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/common/utils"
	"github.com/cloudwego/hertz/pkg/protocol/consts"

	"translate-platform/internal/intake"
	"translate-platform/internal/status"
	"translate-platform/internal/webhook"
	"translate-platform/internal/worker"
	apperrors "translate-platform/pkg/errors"
	"translate-platform/pkg/log"
	"translate-platform/pkg/metrics"
)

// 单次 /worker/run 默认排空的任务数
const defaultRunBatch = 10

// Handler HTTP 处理器
type Handler struct {
	coordinator *intake.Coordinator
	reader      *status.Reader
	webhook     *webhook.Handler
	runner      *worker.Runner
	logger      *log.Logger
}

// NewHandler 创建 HTTP 处理器
func NewHandler(coordinator *intake.Coordinator, reader *status.Reader, wh *webhook.Handler, runner *worker.Runner, logger *log.Logger) *Handler {
	return &Handler{
		coordinator: coordinator,
		reader:      reader,
		webhook:     wh,
		runner:      runner,
		logger:      logger,
	}
}

// HealthCheck 健康检查
func (h *Handler) HealthCheck(ctx context.Context, c *app.RequestContext) {
	c.JSON(consts.StatusOK, utils.H{
		"status":    "ok",
		"timestamp": time.Now().Unix(),
		"service":   "translate-api",
	})
}

// Metrics Prometheus text exposition
func (h *Handler) Metrics(ctx context.Context, c *app.RequestContext) {
	body, err := metrics.Render()
	if err != nil {
		c.JSON(consts.StatusInternalServerError, utils.H{"error": "导出指标失败"})
		return
	}
	c.Data(consts.StatusOK, "text/plain; version=0.0.4; charset=utf-8", body)
}

type translateRequest struct {
	SiteID         string   `json:"siteId"`
	URL            string   `json:"url"`
	HTML           string   `json:"html"`
	TargetLocales  []string `json:"targetLocales"`
	IdempotencyKey string   `json:"idempotencyKey"`
}

// Translate 接收一次翻译请求
func (h *Handler) Translate(ctx context.Context, c *app.RequestContext) {
	var req translateRequest
	if err := json.Unmarshal(c.Request.Body(), &req); err != nil {
		c.JSON(consts.StatusBadRequest, utils.H{"error": "请求体不是合法 JSON"})
		return
	}
	result, err := h.coordinator.Admit(ctx, &intake.Request{
		SiteID:         req.SiteID,
		URL:            req.URL,
		HTML:           req.HTML,
		TargetLocales:  req.TargetLocales,
		IdempotencyKey: req.IdempotencyKey,
	})
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(consts.StatusOK, utils.H{
		"jobId":            result.JobID,
		"cachedCount":      result.CachedCount,
		"toTranslateCount": result.ToTranslateCount,
	})
}

// JobStatus 查询任务状态；siteId 标识租户，归属不符按不存在处理
func (h *Handler) JobStatus(ctx context.Context, c *app.RequestContext) {
	siteID := c.Query("siteId")
	if siteID == "" {
		c.JSON(consts.StatusBadRequest, utils.H{"error": "siteId 参数缺失"})
		return
	}
	report, err := h.reader.Read(ctx, siteID, c.Param("jobId"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(consts.StatusOK, report)
}

type workerRunRequest struct {
	Batch int `json:"batch"`
}

// WorkerRun 同步排空队列，返回逐任务回执；cron/外部调度器触发
func (h *Handler) WorkerRun(ctx context.Context, c *app.RequestContext) {
	var req workerRunRequest
	if body := c.Request.Body(); len(body) > 0 {
		if err := json.Unmarshal(body, &req); err != nil {
			c.JSON(consts.StatusBadRequest, utils.H{"error": "请求体不是合法 JSON"})
			return
		}
	}
	if req.Batch <= 0 {
		req.Batch = defaultRunBatch
	}
	outcomes := h.runner.RunBatch(ctx, req.Batch)
	if outcomes == nil {
		outcomes = []worker.Outcome{}
	}
	c.JSON(consts.StatusOK, utils.H{
		"processed": len(outcomes),
		"outcomes":  outcomes,
	})
}

// LemonSqueezyWebhook 计费回调；验签在 webhook.Handler 内完成
func (h *Handler) LemonSqueezyWebhook(ctx context.Context, c *app.RequestContext) {
	receipt, err := h.webhook.Handle(ctx,
		c.Request.Body(),
		c.Request.Header.Get("X-Signature"),
		c.Request.Header.Get("X-Event-Name"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(consts.StatusOK, utils.H{
		"received":  true,
		"duplicate": receipt.Duplicate,
	})
}

// writeError 按错误类别映射状态码；实现细节不透出给客户端
func (h *Handler) writeError(c *app.RequestContext, err error) {
	kind := apperrors.KindOf(err)
	msg := string(kind)
	var appErr *apperrors.Error
	if stderrors.As(err, &appErr) && appErr.Msg != "" {
		msg = appErr.Msg
	}
	if kind == apperrors.KindInternal {
		h.logger.Error("请求处理失败", "error", err)
		msg = "内部错误"
	}
	c.JSON(apperrors.HTTPStatus(kind), utils.H{"error": msg, "kind": kind})
}
