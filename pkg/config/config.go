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

package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config 应用配置结构体；全部来自环境变量（API 与 Worker 共用）
type Config struct {
	API      APIConfig
	Auth     AuthConfig
	DB       DBConfig
	Cache    CacheConfig
	Provider ProviderConfig
	Fetch    FetchConfig
	Intake   IntakeConfig
	Worker   WorkerConfig
	Log      LogConfig
	Tracing  TracingConfig
	// TokenEncKey base64 编码 32 字节，AES-256-GCM；可选
	TokenEncKey string
}

// APIConfig API 服务配置
type APIConfig struct {
	Port int
	Host string
}

// AuthConfig 鉴权凭证（均为常量时间比较的共享密钥）
type AuthConfig struct {
	TranslateAPIKey string // intake bearer
	WorkerRunSecret string // X-Worker-Secret
	WebhookSecret   string // Lemon Squeezy HMAC key
}

// DBConfig 关系存储配置（jobs / work_units / memory / queue / webhook_events 同库）
type DBConfig struct {
	URL        string
	ServiceKey string
}

// CacheConfig Translation Memory 的 Redis 旁路缓存；Addr 为空时禁用
type CacheConfig struct {
	Addr     string
	DB       int
	Password string
	TTL      time.Duration
}

// ProviderConfig 机器翻译提供商配置
type ProviderConfig struct {
	APIKey     string
	BaseURL    string
	Timeout    time.Duration
	MaxRetries int
	Mock       bool // MOCK_PROVIDER=true 时使用内置 mock，不需要 APIKey
	// 重试退避区间（d_k = clamp(min·2^(k-1)) × jitter）
	BackoffMin time.Duration
	BackoffMax time.Duration
	ChunkSize  int // 单次请求最多文本数
}

// FetchConfig 外部 URL 抓取配置
type FetchConfig struct {
	Timeout      time.Duration
	MaxHTMLBytes int64
}

// IntakeConfig 接收侧限额
type IntakeConfig struct {
	MaxPagesPerMinute int // 按 site 限流
	MaxSegments       int // 单请求片段上限，0 表示不限
	MaxSegmentPairs   int // 片段×目标语言对上限，0 表示不限
}

// WorkerConfig Worker 服务配置
type WorkerConfig struct {
	LeaseSeconds int
	MaxAttempts  int
	IdlePoll     time.Duration
	Concurrency  int
	Heartbeat    time.Duration
}

// LogConfig 日志配置
type LogConfig struct {
	Level  string
	Format string
	File   string
}

// TracingConfig 链路追踪配置（OpenTelemetry，endpoint 为空时禁用）
type TracingConfig struct {
	ServiceName    string
	ExportEndpoint string
	Insecure       bool
}

// Load 从环境变量加载配置并填充默认值；必填项缺失由 Validate 报错
func Load() (*Config, error) {
	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("API_PORT", 8080)
	v.SetDefault("API_HOST", "")
	v.SetDefault("PROVIDER_BASE_URL", "https://api-free.deepl.com")
	v.SetDefault("PROVIDER_TIMEOUT_MS", 10000)
	v.SetDefault("PROVIDER_MAX_RETRIES", 3)
	v.SetDefault("PROVIDER_BACKOFF_MIN_MS", 500)
	v.SetDefault("PROVIDER_BACKOFF_MAX_MS", 5000)
	v.SetDefault("PROVIDER_CHUNK_SIZE", 50)
	v.SetDefault("FETCH_TIMEOUT_MS", 5000)
	v.SetDefault("MAX_HTML_BYTES", 2*1024*1024)
	v.SetDefault("TRANSLATE_MAX_PAGES_PER_MINUTE", 10)
	v.SetDefault("TRANSLATE_MAX_SEGMENTS", 0)
	v.SetDefault("TRANSLATE_MAX_SEGMENT_TARGET_PAIRS", 0)
	v.SetDefault("WORKER_LEASE_SECONDS", 300)
	v.SetDefault("WORKER_MAX_JOB_ATTEMPTS", 5)
	v.SetDefault("WORKER_IDLE_POLL_MS", 2000)
	v.SetDefault("WORKER_CONCURRENCY", 1)
	v.SetDefault("WORKER_HEARTBEAT_MS", 60000)
	v.SetDefault("REDIS_ADDR", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("MEMORY_CACHE_TTL_MS", int64(24*time.Hour/time.Millisecond))
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")
	v.SetDefault("LOG_FILE", "")
	v.SetDefault("OTEL_SERVICE_NAME", "translate-platform")
	v.SetDefault("OTEL_EXPORTER_OTLP_ENDPOINT", "")
	v.SetDefault("OTEL_INSECURE", false)

	cfg := &Config{
		API: APIConfig{
			Port: v.GetInt("API_PORT"),
			Host: v.GetString("API_HOST"),
		},
		Auth: AuthConfig{
			TranslateAPIKey: v.GetString("TRANSLATE_API_KEY"),
			WorkerRunSecret: v.GetString("WORKER_RUN_SECRET"),
			WebhookSecret:   v.GetString("LEMONSQUEEZY_WEBHOOK_SECRET"),
		},
		DB: DBConfig{
			URL:        v.GetString("DB_URL"),
			ServiceKey: v.GetString("DB_SERVICE_KEY"),
		},
		Cache: CacheConfig{
			Addr:     v.GetString("REDIS_ADDR"),
			DB:       v.GetInt("REDIS_DB"),
			Password: v.GetString("REDIS_PASSWORD"),
			TTL:      time.Duration(v.GetInt64("MEMORY_CACHE_TTL_MS")) * time.Millisecond,
		},
		Provider: ProviderConfig{
			APIKey:     v.GetString("PROVIDER_API_KEY"),
			BaseURL:    v.GetString("PROVIDER_BASE_URL"),
			Timeout:    time.Duration(v.GetInt("PROVIDER_TIMEOUT_MS")) * time.Millisecond,
			MaxRetries: v.GetInt("PROVIDER_MAX_RETRIES"),
			Mock:       v.GetBool("MOCK_PROVIDER"),
			BackoffMin: time.Duration(v.GetInt("PROVIDER_BACKOFF_MIN_MS")) * time.Millisecond,
			BackoffMax: time.Duration(v.GetInt("PROVIDER_BACKOFF_MAX_MS")) * time.Millisecond,
			ChunkSize:  v.GetInt("PROVIDER_CHUNK_SIZE"),
		},
		Fetch: FetchConfig{
			Timeout:      time.Duration(v.GetInt("FETCH_TIMEOUT_MS")) * time.Millisecond,
			MaxHTMLBytes: v.GetInt64("MAX_HTML_BYTES"),
		},
		Intake: IntakeConfig{
			MaxPagesPerMinute: v.GetInt("TRANSLATE_MAX_PAGES_PER_MINUTE"),
			MaxSegments:       v.GetInt("TRANSLATE_MAX_SEGMENTS"),
			MaxSegmentPairs:   v.GetInt("TRANSLATE_MAX_SEGMENT_TARGET_PAIRS"),
		},
		Worker: WorkerConfig{
			LeaseSeconds: v.GetInt("WORKER_LEASE_SECONDS"),
			MaxAttempts:  v.GetInt("WORKER_MAX_JOB_ATTEMPTS"),
			IdlePoll:     time.Duration(v.GetInt("WORKER_IDLE_POLL_MS")) * time.Millisecond,
			Concurrency:  v.GetInt("WORKER_CONCURRENCY"),
			Heartbeat:    time.Duration(v.GetInt("WORKER_HEARTBEAT_MS")) * time.Millisecond,
		},
		Log: LogConfig{
			Level:  v.GetString("LOG_LEVEL"),
			Format: v.GetString("LOG_FORMAT"),
			File:   v.GetString("LOG_FILE"),
		},
		Tracing: TracingConfig{
			ServiceName:    v.GetString("OTEL_SERVICE_NAME"),
			ExportEndpoint: v.GetString("OTEL_EXPORTER_OTLP_ENDPOINT"),
			Insecure:       v.GetBool("OTEL_INSECURE"),
		},
		TokenEncKey: v.GetString("TOKEN_ENC_KEY"),
	}
	return cfg, nil
}

// Validate 必填项校验；启动时调用，缺失即 fail fast
func (c *Config) Validate() error {
	if c.Auth.TranslateAPIKey == "" {
		return fmt.Errorf("TRANSLATE_API_KEY 未设置")
	}
	if c.Auth.WorkerRunSecret == "" {
		return fmt.Errorf("WORKER_RUN_SECRET 未设置")
	}
	if c.Auth.WebhookSecret == "" {
		return fmt.Errorf("LEMONSQUEEZY_WEBHOOK_SECRET 未设置")
	}
	if c.DB.URL == "" {
		return fmt.Errorf("DB_URL 未设置")
	}
	if c.DB.ServiceKey == "" {
		return fmt.Errorf("DB_SERVICE_KEY 未设置")
	}
	if !c.Provider.Mock && c.Provider.APIKey == "" {
		return fmt.Errorf("PROVIDER_API_KEY 未设置（MOCK_PROVIDER=true 时可省略）")
	}
	if c.Worker.Concurrency <= 0 {
		return fmt.Errorf("WORKER_CONCURRENCY 必须为正数")
	}
	if c.Worker.LeaseSeconds <= 0 {
		return fmt.Errorf("WORKER_LEASE_SECONDS 必须为正数")
	}
	return nil
}
