package upstream

import (
	_ "embed"
	"encoding/json"
)

// fallbackCoins はCoinGeckoがレート制限を返した場合に配信する静的なコイン一覧。
// ビルド時に埋め込まれるスナップショットで、/coins/markets と同じ形式を持つ。
//
//go:embed fallback/coins.json
var fallbackCoins []byte

// FallbackCoins はバンドル済みのフォールバックコイン一覧を返す。
// コイン一覧エンドポイント専用で、他のリソースにはフォールバックデータは存在しない。
func FallbackCoins() json.RawMessage {
	return json.RawMessage(fallbackCoins)
}
