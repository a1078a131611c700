// Package errors 提供统一错误辅助：错误分类（Kind）+ 包装函数，不依赖 internal
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind 错误类别（封闭集合）；传输层/库错误在最早处转换为其中之一，
// API 层只按 Kind 映射状态码，不向客户端透出原始实现消息
type Kind string

const (
	KindValidation        Kind = "validation"
	KindUnauthorized      Kind = "unauthorized"
	KindNotFound          Kind = "not_found"
	KindPayloadTooLarge   Kind = "payload_too_large"
	KindFetchTimeout      Kind = "fetch_timeout"
	KindFetchFailed       Kind = "fetch_failed"
	KindRateLimited       Kind = "rate_limited"
	KindProviderRetryable Kind = "provider_retryable"
	KindProviderFatal     Kind = "provider_fatal"
	KindDBTransient       Kind = "db_transient"
	KindInternal          Kind = "internal"
)

// Error 带类别的错误；Unwrap 保留底层错误链
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	switch {
	case e.Msg != "" && e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	case e.Msg != "":
		return e.Msg
	case e.Err != nil:
		return e.Err.Error()
	}
	return string(e.Kind)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New 创建指定类别的错误
func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Msg: msg}
}

// Newf 带格式的 New
func Newf(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// WithKind 为已有错误附加类别；err 为 nil 时返回 nil
func WithKind(kind Kind, err error, msg string) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Msg: msg, Err: err}
}

// KindOf 提取错误类别；非 *Error 时归为 internal
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// HTTPStatus Kind → HTTP 状态码映射（API 边界使用）
func HTTPStatus(kind Kind) int {
	switch kind {
	case KindValidation:
		return http.StatusBadRequest
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindNotFound:
		return http.StatusNotFound
	case KindPayloadTooLarge:
		return http.StatusRequestEntityTooLarge
	case KindRateLimited:
		return http.StatusTooManyRequests
	case KindFetchFailed:
		return http.StatusBadGateway
	case KindFetchTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// Retryable Worker 侧是否可通过 Release+重试恢复
func Retryable(kind Kind) bool {
	switch kind {
	case KindProviderRetryable, KindDBTransient:
		return true
	}
	return false
}

// Wrap 包装错误并附加消息
func Wrap(err error, msg string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", msg, err)
}

// Wrapf 带格式的 Wrap
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}
