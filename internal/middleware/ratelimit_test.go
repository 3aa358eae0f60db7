package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/hitoshi/llamadash/internal/ratelimit"
)

// mockRateLimitRecorder はレート制限発動の記録回数を数えるモック。
type mockRateLimitRecorder struct {
	count int
}

func (m *mockRateLimitRecorder) RecordRateLimited() {
	m.count++
}

// 上限以内のリクエストが通過することを検証する。
func TestRateLimitMiddleware_UnderLimit_PassesThrough(t *testing.T) {
	limiter := ratelimit.NewLimiter(3, time.Minute)
	mw := NewRateLimitMiddleware(limiter, nil)

	handlerCalls := 0
	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handlerCalls++
		w.WriteHeader(http.StatusOK)
	}))

	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodGet, "/api/coins", nil)
		req.RemoteAddr = "10.0.0.1:54321"
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)

		if w.Result().StatusCode != http.StatusOK {
			t.Fatalf("request %d: status = %d, want %d", i+1, w.Result().StatusCode, http.StatusOK)
		}
	}

	if handlerCalls != 3 {
		t.Errorf("handler calls = %d, want 3", handlerCalls)
	}
}

// 上限超過時に429とRetry-Afterヘッダーが返されることを検証する。
func TestRateLimitMiddleware_OverLimit_Returns429(t *testing.T) {
	limiter := ratelimit.NewLimiter(1, time.Minute)
	recorder := &mockRateLimitRecorder{}
	mw := NewRateLimitMiddleware(limiter, recorder)

	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	first := httptest.NewRequest(http.MethodGet, "/api/coins", nil)
	first.RemoteAddr = "10.0.0.2:54321"
	w1 := httptest.NewRecorder()
	handler.ServeHTTP(w1, first)
	if w1.Result().StatusCode != http.StatusOK {
		t.Fatalf("first request: status = %d, want %d", w1.Result().StatusCode, http.StatusOK)
	}

	second := httptest.NewRequest(http.MethodGet, "/api/coins", nil)
	second.RemoteAddr = "10.0.0.2:54321"
	w2 := httptest.NewRecorder()
	handler.ServeHTTP(w2, second)

	resp := w2.Result()
	if resp.StatusCode != http.StatusTooManyRequests {
		t.Fatalf("second request: status = %d, want %d", resp.StatusCode, http.StatusTooManyRequests)
	}
	if resp.Header.Get("Retry-After") == "" {
		t.Error("Retry-After header should be set")
	}

	var body map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}
	if body["code"] != "RATE_LIMIT_EXCEEDED" {
		t.Errorf("code = %v, want RATE_LIMIT_EXCEEDED", body["code"])
	}
	if _, ok := body["retryAfter"]; !ok {
		t.Error("body should include retryAfter")
	}

	if recorder.count != 1 {
		t.Errorf("recorded rate limits = %d, want 1", recorder.count)
	}
}

// クライアントIPごとに独立してカウントされることを検証する。
func TestRateLimitMiddleware_PerClientIsolation(t *testing.T) {
	limiter := ratelimit.NewLimiter(1, time.Minute)
	mw := NewRateLimitMiddleware(limiter, nil)

	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	first := httptest.NewRequest(http.MethodGet, "/api/coins", nil)
	first.RemoteAddr = "10.0.0.3:1000"
	w1 := httptest.NewRecorder()
	handler.ServeHTTP(w1, first)

	// 別のクライアントは独立したウィンドウを持つこと
	other := httptest.NewRequest(http.MethodGet, "/api/coins", nil)
	other.RemoteAddr = "10.0.0.4:1000"
	w2 := httptest.NewRecorder()
	handler.ServeHTTP(w2, other)

	if w2.Result().StatusCode != http.StatusOK {
		t.Errorf("other client: status = %d, want %d", w2.Result().StatusCode, http.StatusOK)
	}
}
