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

// Package webhook 计费回调：HMAC 验签先于解析，事件按 event_id 去重
package webhook

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"

	apperrors "translate-platform/pkg/errors"
	"translate-platform/pkg/log"
)

// EventStore 事件去重存储；Insert 返回 false 表示 event_id 已处理过
type EventStore interface {
	Insert(ctx context.Context, eventID, eventName string) (bool, error)
}

// Receipt 一次回调的处理结果
type Receipt struct {
	EventID   string
	EventName string
	Duplicate bool
}

// Handler Lemon Squeezy 回调处理器
type Handler struct {
	secret []byte
	store  EventStore
	logger *log.Logger
}

// NewHandler 创建回调处理器
func NewHandler(secret string, store EventStore, logger *log.Logger) *Handler {
	return &Handler{secret: []byte(secret), store: store, logger: logger}
}

// 回调体中定位事件标识所需的最小结构
type payload struct {
	Meta struct {
		EventName string `json:"event_name"`
		WebhookID string `json:"webhook_id"`
	} `json:"meta"`
	Data struct {
		ID string `json:"id"`
	} `json:"data"`
}

// Handle 处理一次回调。签名对原始 body 计算并常量时间比较，
// 失败时 body 完全不解析。重复投递短路为 Duplicate，不产生副作用。
func (h *Handler) Handle(ctx context.Context, rawBody []byte, signature, eventName string) (*Receipt, error) {
	if !h.verify(rawBody, signature) {
		return nil, apperrors.New(apperrors.KindUnauthorized, "webhook 签名校验失败")
	}

	var p payload
	if err := json.Unmarshal(rawBody, &p); err != nil {
		return nil, apperrors.WithKind(apperrors.KindValidation, err, "webhook body 不是合法 JSON")
	}
	if eventName == "" {
		eventName = p.Meta.EventName
	}
	eventID := p.Meta.WebhookID
	if eventID == "" {
		eventID = p.Data.ID
	}
	if eventID == "" {
		return nil, apperrors.New(apperrors.KindValidation, "webhook 缺少事件标识")
	}

	inserted, err := h.store.Insert(ctx, eventID, eventName)
	if err != nil {
		return nil, apperrors.Wrap(err, "记录 webhook 事件失败")
	}
	receipt := &Receipt{EventID: eventID, EventName: eventName, Duplicate: !inserted}
	if receipt.Duplicate {
		h.logger.Info("重复 webhook，跳过", "event_id", eventID, "event_name", eventName)
		return receipt, nil
	}

	h.dispatch(eventID, eventName)
	return receipt, nil
}

// dispatch 按事件名分发。计费状态的实际落库在核心管线之外，
// 这里只记录已知/未知事件。
func (h *Handler) dispatch(eventID, eventName string) {
	switch eventName {
	case "order_created", "subscription_created", "subscription_updated",
		"subscription_cancelled", "subscription_expired", "subscription_payment_success":
		h.logger.Info("webhook 事件已受理", "event_id", eventID, "event_name", eventName)
	default:
		h.logger.Warn("未知 webhook 事件，仅记录", "event_id", eventID, "event_name", eventName)
	}
}

// verify 对原始 body 做 HMAC-SHA256，与 x-signature 常量时间比较
func (h *Handler) verify(rawBody []byte, signature string) bool {
	if len(h.secret) == 0 || signature == "" {
		return false
	}
	sig, err := hex.DecodeString(signature)
	if err != nil {
		return false
	}
	mac := hmac.New(sha256.New, h.secret)
	mac.Write(rawBody)
	return hmac.Equal(sig, mac.Sum(nil))
}

// Sign 计算 body 的十六进制 HMAC 签名；测试与本地联调用
func Sign(secret string, rawBody []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(rawBody)
	return hex.EncodeToString(mac.Sum(nil))
}
