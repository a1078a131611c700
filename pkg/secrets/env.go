// Copyright 2026 fanjia1024
// 环境变量凭证源

package secrets

import (
	"context"
	"fmt"
	"os"
)

type envStore struct{}

// NewEnvStore 环境变量凭证源，键名即变量名
func NewEnvStore() Store {
	return envStore{}
}

func (envStore) Get(_ context.Context, key string) (string, error) {
	value := os.Getenv(key)
	if value == "" {
		return "", fmt.Errorf("环境变量未设置: %s", key)
	}
	return value, nil
}
