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

// Package http HTTP 路由与处理器
package http

import (
	"github.com/cloudwego/hertz/pkg/app/server"
	hertzconfig "github.com/cloudwego/hertz/pkg/common/config"

	"translate-platform/internal/api/http/middleware"
)

// Router HTTP 路由器
type Router struct {
	handler    *Handler
	middleware *middleware.Middleware
}

// NewRouter 创建 HTTP 路由器
func NewRouter(handler *Handler, mw *middleware.Middleware) *Router {
	return &Router{handler: handler, middleware: mw}
}

// Build 创建 Hertz server 并注册全部路由；opts 供调用方追加
// 服务器选项（如 tracing）
func (r *Router) Build(addr string, opts ...hertzconfig.Option) *server.Hertz {
	serverOpts := append([]hertzconfig.Option{server.WithHostPorts(addr)}, opts...)
	h := server.Default(serverOpts...)

	h.GET("/api/health", r.handler.HealthCheck)
	h.GET("/metrics", r.handler.Metrics)

	h.POST("/translate", r.middleware.CORS(), r.middleware.BearerAuth(), r.handler.Translate)
	h.OPTIONS("/translate", r.middleware.CORS())
	h.GET("/translate/:jobId", r.middleware.CORS(), r.middleware.BearerAuth(), r.handler.JobStatus)
	h.OPTIONS("/translate/:jobId", r.middleware.CORS())

	h.POST("/worker/run", r.middleware.WorkerSecret(), r.handler.WorkerRun)

	// 验签在 handler 内对原始 body 做，不挂鉴权中间件
	h.POST("/webhooks/lemonsqueezy", r.handler.LemonSqueezyWebhook)

	return h
}
