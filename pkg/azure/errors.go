package azure

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// 外部エンジンの障害をユーザーが対処可能な種別に分類するためのセンチネルエラー。
// 呼び出し側は errors.Is で判定する。
var (
	// ErrRateLimited はリクエストがレート制限に達したことを示す
	ErrRateLimited = errors.New("azure openai: rate limited")
	// ErrUnavailable はサービス側の一時的な障害を示す
	ErrUnavailable = errors.New("azure openai: service unavailable")
	// ErrUnauthenticated はAPIキーの不備や認可エラーを示す
	ErrUnauthenticated = errors.New("azure openai: authentication failed")
	// ErrMalformedResponse はエンジン応答が期待した構造に解析できないことを示す
	ErrMalformedResponse = errors.New("azure openai: malformed response")
	// ErrUpstream は分類できない外部エンジン障害のフォールバック
	ErrUpstream = errors.New("azure openai: request failed")
)

// Categorize はHTTPステータスとプロバイダのエラーメッセージを既知のフレーズとの
// 部分一致で検査し、対応するセンチネルでラップしたエラーを返す。
func Categorize(status int, message string) error {
	lower := strings.ToLower(message)

	switch {
	case status == http.StatusTooManyRequests,
		strings.Contains(lower, "rate limit"),
		strings.Contains(lower, "too many requests"):
		return fmt.Errorf("%w (status %d): %s", ErrRateLimited, status, message)

	case status == http.StatusUnauthorized,
		status == http.StatusForbidden,
		strings.Contains(lower, "api key"),
		strings.Contains(lower, "unauthorized"),
		strings.Contains(lower, "access denied"):
		return fmt.Errorf("%w (status %d): %s", ErrUnauthenticated, status, message)

	case status >= http.StatusInternalServerError,
		strings.Contains(lower, "unavailable"),
		strings.Contains(lower, "overloaded"),
		strings.Contains(lower, "timeout"):
		return fmt.Errorf("%w (status %d): %s", ErrUnavailable, status, message)

	default:
		return fmt.Errorf("%w (status %d): %s", ErrUpstream, status, message)
	}
}
