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

// Package site 租户（站点）存储与站点自有提供商凭证。
// 凭证以 AES-256-GCM 负载存放在 sites.provider_token，只在进程内解密。
package site

import (
	"context"
	"time"

	"translate-platform/pkg/crypto"
)

// Site 站点行；创建/销毁在核心管线之外
type Site struct {
	ID            string
	Name          string
	ProviderToken *string // iv.tag.cipher，nil 表示使用平台凭证
	CreatedAt     time.Time
}

// Store 站点存储
type Store interface {
	Get(ctx context.Context, id string) (*Site, error)
	Ensure(ctx context.Context, id, name string) error
	SetProviderToken(ctx context.Context, id string, encrypted *string) error
}

// Keys 站点提供商凭证读写；cipher 为 nil 时整体禁用（全部走平台凭证）
type Keys struct {
	store  Store
	cipher *crypto.TokenCipher
}

// NewKeys 创建凭证服务
func NewKeys(store Store, cipher *crypto.TokenCipher) *Keys {
	return &Keys{store: store, cipher: cipher}
}

// ProviderKey 返回站点自有提供商 key 的明文；站点未配置时返回空串
func (k *Keys) ProviderKey(ctx context.Context, siteID string) (string, error) {
	if k.cipher == nil {
		return "", nil
	}
	s, err := k.store.Get(ctx, siteID)
	if err != nil {
		return "", err
	}
	if s == nil || s.ProviderToken == nil || *s.ProviderToken == "" {
		return "", nil
	}
	return k.cipher.Decrypt(*s.ProviderToken)
}

// StoreProviderKey 加密并写入站点自有提供商 key；plaintext 为空时清除
func (k *Keys) StoreProviderKey(ctx context.Context, siteID, plaintext string) error {
	if plaintext == "" {
		return k.store.SetProviderToken(ctx, siteID, nil)
	}
	payload, err := k.cipher.Encrypt(plaintext)
	if err != nil {
		return err
	}
	return k.store.SetProviderToken(ctx, siteID, &payload)
}
