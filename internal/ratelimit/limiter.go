// Package ratelimit はクライアント単位の固定ウィンドウレート制限を提供する。
package ratelimit

import (
	"sync"
	"time"
)

// Decision はレート制限の判定結果を表す。
type Decision struct {
	// Allowed はリクエストを許可するかどうか。
	Allowed bool
	// RetryAfter は拒否時にウィンドウがリセットされるまでの時間。許可時はゼロ。
	RetryAfter time.Duration
}

// window は1クライアントの現在ウィンドウのカウンタを保持する。
type window struct {
	count   int
	resetAt time.Time
}

// Limiter はクライアント識別子ごとの固定ウィンドウカウンタ。
// ウィンドウは連続的にスライドせず、リセット時刻を過ぎた最初のリクエストで
// まるごと新しいウィンドウに置き換わる。状態はプロセスローカルで共有されない。
type Limiter struct {
	max      int
	duration time.Duration

	mu      sync.Mutex
	windows map[string]*window
}

// NewLimiter はウィンドウあたり最大max件を許可するLimiterを生成する。
func NewLimiter(max int, duration time.Duration) *Limiter {
	return &Limiter{
		max:      max,
		duration: duration,
		windows:  make(map[string]*window),
	}
}

// Allow は指定クライアントの現在時刻におけるリクエストを判定する。
// 初回リクエストまたはウィンドウ経過後はカウンタを1に初期化して許可する。
// カウンタが上限未満ならインクリメントして許可し、上限到達済みなら
// リセットまでの残り時間とともに拒否する。
func (l *Limiter) Allow(clientID string, now time.Time) Decision {
	l.mu.Lock()
	defer l.mu.Unlock()

	w, ok := l.windows[clientID]
	if !ok || !now.Before(w.resetAt) {
		l.windows[clientID] = &window{
			count:   1,
			resetAt: now.Add(l.duration),
		}
		return Decision{Allowed: true}
	}

	if w.count < l.max {
		w.count++
		return Decision{Allowed: true}
	}

	return Decision{
		Allowed:    false,
		RetryAfter: w.resetAt.Sub(now),
	}
}

// ClientCount は現在追跡しているクライアント数を返す。
// テストおよびメトリクス用。
func (l *Limiter) ClientCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.windows)
}
