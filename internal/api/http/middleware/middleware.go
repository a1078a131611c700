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

// Package middleware HTTP 中间件：共享密钥鉴权均为常量时间比较
package middleware

import (
	"context"
	"crypto/subtle"
	"strings"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
)

// Middleware 中间件管理器
type Middleware struct {
	apiKey       string
	workerSecret string
}

// NewMiddleware 创建中间件管理器
func NewMiddleware(apiKey, workerSecret string) *Middleware {
	return &Middleware{apiKey: apiKey, workerSecret: workerSecret}
}

// BearerAuth intake/status 的 bearer 鉴权
func (m *Middleware) BearerAuth() app.HandlerFunc {
	return func(ctx context.Context, c *app.RequestContext) {
		header := c.Request.Header.Get("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || !equal(token, m.apiKey) {
			c.JSON(consts.StatusUnauthorized, map[string]string{"error": "凭证无效"})
			c.Abort()
			return
		}
		c.Next(ctx)
	}
}

// WorkerSecret /worker/run 的共享密钥鉴权（X-Worker-Secret）
func (m *Middleware) WorkerSecret() app.HandlerFunc {
	return func(ctx context.Context, c *app.RequestContext) {
		if !equal(c.Request.Header.Get("X-Worker-Secret"), m.workerSecret) {
			c.JSON(consts.StatusUnauthorized, map[string]string{"error": "凭证无效"})
			c.Abort()
			return
		}
		c.Next(ctx)
	}
}

// CORS 跨域响应头；浏览器端小部件会直接调 intake
func (m *Middleware) CORS() app.HandlerFunc {
	return func(ctx context.Context, c *app.RequestContext) {
		c.Response.Header.Set("Access-Control-Allow-Origin", "*")
		c.Response.Header.Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Response.Header.Set("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization")
		if string(c.Method()) == "OPTIONS" {
			c.AbortWithStatus(consts.StatusNoContent)
			return
		}
		c.Next(ctx)
	}
}

// equal 常量时间比较；密钥未配置时一律拒绝
func equal(got, want string) bool {
	if want == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(got), []byte(want)) == 1
}
