package genclient

import (
	"fmt"
	"strings"
	"time"
)

// ErrorType は生成エンドポイントの失敗分類です。
type ErrorType string

const (
	ErrorTypeRateLimit        ErrorType = "rate_limit"
	ErrorTypeTimeout          ErrorType = "timeout"
	ErrorTypeModelUnavailable ErrorType = "model_unavailable"
	ErrorTypeContentFilter    ErrorType = "content_filter"
	ErrorTypeInvalidRequest   ErrorType = "invalid_request"
	ErrorTypeUnknown          ErrorType = "unknown"
)

// Retryable はこの分類がバックオフ付き再試行の対象かを返します。
// 未分類の失敗は既定で再試行対象として扱います。
func (t ErrorType) Retryable() bool {
	switch t {
	case ErrorTypeContentFilter, ErrorTypeInvalidRequest:
		return false
	default:
		return true
	}
}

// classifyPatterns は分類ごとの照合パターンです。メッセージと型名に対する
// 大文字小文字を無視した部分一致で判定します。
var classifyPatterns = []struct {
	errType  ErrorType
	patterns []string
}{
	{ErrorTypeRateLimit, []string{"rate_limit", "rate limit", "resource exhausted", "429", "quota"}},
	{ErrorTypeTimeout, []string{"timeout", "timed out", "deadline exceeded"}},
	{ErrorTypeModelUnavailable, []string{"model_unavailable", "unavailable", "overloaded", "503"}},
	{ErrorTypeContentFilter, []string{"content_filter", "content filter", "safety", "blocked"}},
	{ErrorTypeInvalidRequest, []string{"invalid_request", "invalid request", "invalid argument", "400"}},
}

// Classify はエラーメッセージ・型名の部分一致で失敗を分類します。
func Classify(err error) ErrorType {
	if err == nil {
		return ErrorTypeUnknown
	}

	haystack := strings.ToLower(fmt.Sprintf("%T: %v", err, err))
	for _, entry := range classifyPatterns {
		for _, p := range entry.patterns {
			if strings.Contains(haystack, p) {
				return entry.errType
			}
		}
	}
	return ErrorTypeUnknown
}

// GenerationError は再試行を使い切った（または即時終了した）生成呼び出しの失敗です。
// 呼び出し側はこのエラーを「成果物なし」として扱い、ヒューリスティックへの
// フォールバックか中断を選びます。
type GenerationError struct {
	Op        string
	Type      ErrorType
	Model     string
	RequestID string
	Attempts  int
	Err       error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("生成呼び出し %s に失敗しました (分類=%s, model=%s, request_id=%s, 試行=%d): %v",
		e.Op, e.Type, e.Model, e.RequestID, e.Attempts, e.Err)
}

func (e *GenerationError) Unwrap() error {
	return e.Err
}

// CircuitOpenError はブレーカー開放中の即時失敗です。トランスポートには触れていません。
type CircuitOpenError struct {
	Op         string
	RetryAfter time.Duration
}

func (e *CircuitOpenError) Error() string {
	return fmt.Sprintf("サーキットブレーカー %s が開放中です (retry_after=%s)", e.Op, e.RetryAfter)
}
