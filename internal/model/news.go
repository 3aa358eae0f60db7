// Package model はドメインモデルを定義する。
package model

// NewsItem は正規化されたニュース記事を表す。
// CryptoCompareのレスポンスおよびRSSフィードから共通の形に変換される。
// JSONフィールド名はCryptoCompareの記事フィールドに合わせている
// （フロントエンドがその形を直接消費するため）。
type NewsItem struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Body        string `json:"body"`
	URL         string `json:"url"`
	ImageURL    string `json:"imageurl,omitempty"`
	Source      string `json:"source"`
	PublishedOn int64  `json:"published_on"`
}

// NewsList はニュース一覧APIのレスポンス形式。
type NewsList struct {
	Results []NewsItem `json:"results"`
}
