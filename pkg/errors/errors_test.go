package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestKindOf(t *testing.T) {
	err := New(KindRateLimited, "too many pages")
	if KindOf(err) != KindRateLimited {
		t.Errorf("KindOf: got %q", KindOf(err))
	}
	// 包装后仍可提取 Kind
	wrapped := fmt.Errorf("intake: %w", err)
	if KindOf(wrapped) != KindRateLimited {
		t.Errorf("KindOf wrapped: got %q", KindOf(wrapped))
	}
	// 未分类错误归为 internal
	if KindOf(errors.New("boom")) != KindInternal {
		t.Errorf("KindOf plain: got %q", KindOf(errors.New("boom")))
	}
	if KindOf(nil) != "" {
		t.Errorf("KindOf nil: got %q", KindOf(nil))
	}
}

func TestWithKind(t *testing.T) {
	if WithKind(KindFetchFailed, nil, "fetch") != nil {
		t.Error("WithKind(nil) should be nil")
	}
	base := errors.New("connection refused")
	err := WithKind(KindFetchFailed, base, "fetch url")
	if KindOf(err) != KindFetchFailed {
		t.Errorf("KindOf: got %q", KindOf(err))
	}
	if !errors.Is(err, base) {
		t.Error("WithKind should preserve error chain")
	}
}

func TestHTTPStatus(t *testing.T) {
	cases := map[Kind]int{
		KindValidation:      http.StatusBadRequest,
		KindUnauthorized:    http.StatusUnauthorized,
		KindNotFound:        http.StatusNotFound,
		KindPayloadTooLarge: http.StatusRequestEntityTooLarge,
		KindRateLimited:     http.StatusTooManyRequests,
		KindFetchFailed:     http.StatusBadGateway,
		KindFetchTimeout:    http.StatusGatewayTimeout,
		KindInternal:        http.StatusInternalServerError,
		KindProviderFatal:   http.StatusInternalServerError,
	}
	for kind, want := range cases {
		if got := HTTPStatus(kind); got != want {
			t.Errorf("HTTPStatus(%s): got %d, want %d", kind, got, want)
		}
	}
}

func TestRetryable(t *testing.T) {
	if !Retryable(KindProviderRetryable) || !Retryable(KindDBTransient) {
		t.Error("provider_retryable/db_transient should be retryable")
	}
	if Retryable(KindProviderFatal) || Retryable(KindValidation) {
		t.Error("provider_fatal/validation should not be retryable")
	}
}

func TestWrap(t *testing.T) {
	if Wrap(nil, "msg") != nil {
		t.Error("Wrap(nil) should be nil")
	}
	base := errors.New("x")
	if !errors.Is(Wrap(base, "msg"), base) {
		t.Error("Wrap should preserve error chain")
	}
}
