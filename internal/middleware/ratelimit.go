package middleware

import (
	"encoding/json"
	"log/slog"
	"math"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/hitoshi/llamadash/internal/ratelimit"
)

// RateLimitRecorder はレート制限の発動をメトリクスに記録する。
type RateLimitRecorder interface {
	RecordRateLimited()
}

// NewRateLimitMiddleware はクライアントIPごとの固定ウィンドウレート制限を
// 適用するミドルウェアを生成する。制限超過時は429と再試行までの秒数を返す。
// recorderはnilでもよい。
func NewRateLimitMiddleware(limiter *ratelimit.Limiter, recorder RateLimitRecorder) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			clientID := clientIDFromRequest(r)

			decision := limiter.Allow(clientID, time.Now())
			if !decision.Allowed {
				if recorder != nil {
					recorder.RecordRateLimited()
				}
				slog.Warn("rate limit exceeded",
					slog.String("client_id", clientID),
					slog.String("path", r.URL.Path),
					slog.Duration("retry_after", decision.RetryAfter),
				)
				writeRateLimitResponse(w, decision.RetryAfter)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// clientIDFromRequest はリクエストからクライアント識別子を導出する。
// RemoteAddrのホスト部を使用し、分解できない場合はRemoteAddr全体を返す。
func clientIDFromRequest(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// writeRateLimitResponse は429 Too Many Requestsレスポンスを書き込む。
// Retry-Afterヘッダーとボディの両方にウィンドウリセットまでの秒数を設定する。
func writeRateLimitResponse(w http.ResponseWriter, retryAfter time.Duration) {
	retryAfterSec := int(math.Ceil(retryAfter.Seconds()))
	if retryAfterSec < 1 {
		retryAfterSec = 1
	}

	w.Header().Set("Retry-After", strconv.Itoa(retryAfterSec))
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusTooManyRequests)

	json.NewEncoder(w).Encode(map[string]any{
		"code":       "RATE_LIMIT_EXCEEDED",
		"message":    "リクエストが多すぎます。しばらく待ってから再度お試しください。",
		"category":   "system",
		"action":     "指定された秒数の経過後に再試行してください。",
		"retryAfter": retryAfterSec,
	})
}
