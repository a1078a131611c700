// Copyright 2026 fanjia1024
// 启动期凭证解析

package secrets

import (
	"context"
)

// Store 只读凭证源。进程启动时解析 API key / webhook secret / DB 凭证，
// 键即环境变量名（如 TRANSLATE_API_KEY）；解析后的值只进内存，不落日志。
// 未配置的键返回错误，由调用方决定是否兜底。
type Store interface {
	Get(ctx context.Context, key string) (string, error)
}

// Config Secret Store 配置
type Config struct {
	Provider string            // vault | env | memory
	Config   map[string]string // Provider-specific config
}

// NewStore 创建 Store；默认 env（生产以环境变量注入凭证）
func NewStore(config Config) (Store, error) {
	switch config.Provider {
	case "memory":
		return NewMemoryStore(), nil
	case "vault":
		return NewVaultStore(VaultConfig{
			Address:    config.Config["address"],
			Token:      config.Config["token"],
			PathPrefix: config.Config["path_prefix"],
		})
	default:
		return NewEnvStore(), nil
	}
}
