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

// Package app 统一初始化：供 api 与 worker 复用，避免在 cmd 内装配业务
package app

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"translate-platform/internal/database"
	"translate-platform/internal/provider"
	"translate-platform/pkg/config"
	"translate-platform/pkg/crypto"
	"translate-platform/pkg/log"
	"translate-platform/pkg/secrets"
)

// Bootstrap 进程级共享资源；凭证经 secrets.Store 解析后只进内存
type Bootstrap struct {
	Config  *config.Config
	Logger  *log.Logger
	Secrets secrets.Store
	Pool    *pgxpool.Pool
	Cache   redis.UniversalClient // nil 表示未启用旁路缓存
	Cipher  *crypto.TokenCipher   // nil 表示站点凭证加密未启用
}

// NewBootstrap 创建 Bootstrap：日志 → secret 解析 → 配置校验 → DB/Redis
func NewBootstrap(ctx context.Context, cfg *config.Config) (*Bootstrap, error) {
	logger, err := log.NewLogger(&log.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		File:   cfg.Log.File,
	})
	if err != nil {
		return nil, fmt.Errorf("初始化日志失败: %w", err)
	}

	secretStore, err := secrets.NewStore(secrets.Config{
		Provider: os.Getenv("SECRETS_PROVIDER"),
		Config: map[string]string{
			"address":     os.Getenv("VAULT_ADDR"),
			"token":       os.Getenv("VAULT_TOKEN"),
			"path_prefix": os.Getenv("VAULT_PATH_PREFIX"),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("初始化 secret store 失败: %w", err)
	}
	resolveSecrets(ctx, secretStore, cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	pool, err := database.Connect(ctx, cfg.DB.URL)
	if err != nil {
		return nil, err
	}

	var cache redis.UniversalClient
	if cfg.Cache.Addr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Cache.Addr,
			DB:       cfg.Cache.DB,
			Password: cfg.Cache.Password,
		})
		pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		defer cancel()
		if err := client.Ping(pingCtx).Err(); err != nil {
			// 缓存不可用时降级直连 DB，不阻止启动
			logger.Warn("Redis 不可用，禁用记忆旁路缓存", "addr", cfg.Cache.Addr, "error", err)
			_ = client.Close()
		} else {
			cache = client
		}
	}

	var cipher *crypto.TokenCipher
	if cfg.TokenEncKey != "" {
		cipher, err = crypto.NewTokenCipher(cfg.TokenEncKey)
		if err != nil {
			pool.Close()
			return nil, fmt.Errorf("解析 TOKEN_ENC_KEY 失败: %w", err)
		}
	}

	return &Bootstrap{
		Config:  cfg,
		Logger:  logger,
		Secrets: secretStore,
		Pool:    pool,
		Cache:   cache,
		Cipher:  cipher,
	}, nil
}

// resolveSecrets 对未通过环境变量注入的凭证字段向 secret store 兜底；
// 仍缺失的由 Validate 报错
func resolveSecrets(ctx context.Context, store secrets.Store, cfg *config.Config) {
	fill := func(dst *string, key string) {
		if *dst != "" {
			return
		}
		if v, err := store.Get(ctx, key); err == nil {
			*dst = v
		}
	}
	fill(&cfg.Auth.TranslateAPIKey, "TRANSLATE_API_KEY")
	fill(&cfg.Auth.WorkerRunSecret, "WORKER_RUN_SECRET")
	fill(&cfg.Auth.WebhookSecret, "LEMONSQUEEZY_WEBHOOK_SECRET")
	fill(&cfg.DB.URL, "DB_URL")
	fill(&cfg.DB.ServiceKey, "DB_SERVICE_KEY")
	fill(&cfg.Provider.APIKey, "PROVIDER_API_KEY")
	fill(&cfg.TokenEncKey, "TOKEN_ENC_KEY")
}

// NewTranslator 平台级 Translator；MOCK_PROVIDER=true 时为内置 mock
func (b *Bootstrap) NewTranslator() provider.Translator {
	if b.Config.Provider.Mock {
		return provider.NewMock()
	}
	return b.newDeepL(b.Config.Provider.APIKey)
}

// TranslatorFactory 站点自有凭证的 Translator 工厂
func (b *Bootstrap) TranslatorFactory() func(apiKey string) provider.Translator {
	return func(apiKey string) provider.Translator {
		return b.newDeepL(apiKey)
	}
}

func (b *Bootstrap) newDeepL(apiKey string) provider.Translator {
	p := b.Config.Provider
	return provider.NewDeepLClient(provider.Config{
		APIKey:     apiKey,
		BaseURL:    p.BaseURL,
		Timeout:    p.Timeout,
		MaxRetries: p.MaxRetries,
		Backoff:    provider.Backoff{Min: p.BackoffMin, Max: p.BackoffMax},
	})
}

// Close 释放共享资源
func (b *Bootstrap) Close() {
	if b.Cache != nil {
		_ = b.Cache.Close()
	}
	if b.Pool != nil {
		b.Pool.Close()
	}
}
