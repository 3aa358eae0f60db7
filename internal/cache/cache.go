// Package cache はアップストリームAPIレスポンスのTTL付きインメモリキャッシュを提供する。
package cache

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// FetchFunc はキャッシュミス時に呼び出される取得関数。
// 典型的にはアップストリームAPIへのHTTP呼び出しを行う。
type FetchFunc func(ctx context.Context) ([]byte, error)

// entry はキャッシュされた1件のペイロードと格納時刻を保持する。
type entry struct {
	payload  []byte
	storedAt time.Time
}

// Cache はキー単位のTTL付きレスポンスキャッシュ。
// エントリは書き込みごとに無条件で上書きされ、明示的な削除は行わない。
// Goのハンドラーは並列に実行されるため、マップへのアクセスはミューテックスで保護する。
// 同一キーへの同時ミスはsingleflightで1回の取得にまとめる。
type Cache struct {
	ttl time.Duration

	mu      sync.RWMutex
	entries map[string]entry

	sf singleflight.Group

	// now はテストで時刻を差し替えるためのフック。
	now func() time.Time
}

// New は指定TTLのCacheを生成する。
func New(ttl time.Duration) *Cache {
	return &Cache{
		ttl:     ttl,
		entries: make(map[string]entry),
		now:     time.Now,
	}
}

// GetOrFetch はキーに対応する新鮮なエントリがあればそれを返し、
// なければfetchを1回呼び出して結果を格納してから返す。
// fetchの失敗はそのまま呼び出し元に伝播し、キャッシュは変更されない
// （古いエントリへのフォールバックは呼び出し元の責務）。
// 戻り値のhitは、この呼び出し自身がfetchを実行せずにペイロードを
// 得られたかどうかを示す。hit=falseの回数はアップストリーム呼び出し回数と一致する。
func (c *Cache) GetOrFetch(ctx context.Context, key string, fetch FetchFunc) (payload []byte, hit bool, err error) {
	if payload, ok := c.lookup(key); ok {
		return payload, true, nil
	}

	// 取得結果はsingleflightで待機中の別リクエストとも共有されるため、
	// 最初の呼び出し元のキャンセルを切り離して道連れを防ぐ
	fetchCtx := context.WithoutCancel(ctx)

	// 同一キーへの同時ミスをまとめ、TTLウィンドウ内のアップストリーム呼び出しを1回にする。
	// fetchedはこの呼び出しのクロージャが実際にfetchを実行した場合のみtrueになる
	// （待機側のクロージャは実行されないため、待機側ではfalseのまま）。
	fetched := false
	v, err, _ := c.sf.Do(key, func() (interface{}, error) {
		// singleflight待ちの間に別ゴルーチンが格納済みの場合がある
		if payload, ok := c.lookup(key); ok {
			return payload, nil
		}

		fetched = true
		payload, err := fetch(fetchCtx)
		if err != nil {
			return nil, err
		}

		c.mu.Lock()
		c.entries[key] = entry{payload: payload, storedAt: c.now()}
		c.mu.Unlock()

		return payload, nil
	})
	if err != nil {
		return nil, false, err
	}

	return v.([]byte), !fetched, nil
}

// lookup はキーに対応する新鮮なエントリを返す。
// エントリが存在しないか、TTLを超過している場合はok=falseを返す。
// 期限切れエントリは削除せず、次回の書き込みで上書きされる。
func (c *Cache) lookup(key string) ([]byte, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if c.now().Sub(e.storedAt) >= c.ttl {
		return nil, false
	}

	return e.payload, true
}

// Len は現在保持しているエントリ数を返す（期限切れ含む）。
// メトリクスおよびテスト用。
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
