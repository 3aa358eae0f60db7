// Package news はDeFiニュースの取得と正規化を提供する。
// CryptoCompareを主ソースとし、オプションでRSSフィードを補助ソースとして統合する。
package news

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/mmcdole/gofeed"

	"github.com/hitoshi/llamadash/internal/model"
)

// Fetcher はニュースAPIクライアントのインターフェース。
// upstream.CryptoCompareClientの部分集合として定義する。
type Fetcher interface {
	LatestNews(ctx context.Context) (json.RawMessage, error)
}

// Service はニュースの取得・正規化・サニタイズを行う。
type Service struct {
	fetcher Fetcher
	rssURL  string // 空の場合はRSSソース無効
	parser  *gofeed.Parser
	policy  *bluemonday.Policy
}

// NewService はServiceを生成する。
// タイトルと本文はプレーンテキストとして扱うため、全タグを除去する
// 厳格なサニタイズポリシーを使用する。
func NewService(fetcher Fetcher, rssURL string) *Service {
	return &Service{
		fetcher: fetcher,
		rssURL:  rssURL,
		parser:  gofeed.NewParser(),
		policy:  bluemonday.StrictPolicy(),
	}
}

// ccNewsResponse はCryptoCompareのニュースレスポンス形式。
type ccNewsResponse struct {
	Data []ccNewsItem `json:"Data"`
}

// ccNewsItem はCryptoCompareの記事1件。必要なフィールドのみデコードする。
type ccNewsItem struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Body        string `json:"body"`
	URL         string `json:"url"`
	ImageURL    string `json:"imageurl"`
	PublishedOn int64  `json:"published_on"`
	SourceInfo  struct {
		Name string `json:"name"`
	} `json:"source_info"`
}

// Latest は正規化されたニュース一覧を返す。
// 主ソース（CryptoCompare）の失敗はエラーとして伝播する。
// RSS補助ソースの失敗はログのみ記録し、主ソースの結果をそのまま返す。
func (s *Service) Latest(ctx context.Context) (*model.NewsList, error) {
	payload, err := s.fetcher.LatestNews(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch news: %w", err)
	}

	var parsed ccNewsResponse
	if err := json.Unmarshal(payload, &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse news response: %w", err)
	}

	results := make([]model.NewsItem, 0, len(parsed.Data))
	for _, item := range parsed.Data {
		results = append(results, model.NewsItem{
			ID:          item.ID,
			Title:       s.sanitize(item.Title),
			Body:        s.sanitize(item.Body),
			URL:         item.URL,
			ImageURL:    item.ImageURL,
			Source:      item.SourceInfo.Name,
			PublishedOn: item.PublishedOn,
		})
	}

	if s.rssURL != "" {
		rssItems, err := s.fetchRSS(ctx)
		if err != nil {
			slog.Warn("RSS news source failed, serving primary source only",
				slog.String("rss_url", s.rssURL),
				slog.String("error", err.Error()),
			)
		} else {
			results = append(results, rssItems...)
		}
	}

	return &model.NewsList{Results: results}, nil
}

// fetchRSS はRSS補助ソースを取得して正規化する。
func (s *Service) fetchRSS(ctx context.Context) ([]model.NewsItem, error) {
	feed, err := s.parser.ParseURLWithContext(s.rssURL, ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to parse RSS feed: %w", err)
	}

	items := make([]model.NewsItem, 0, len(feed.Items))
	for _, item := range feed.Items {
		id := item.GUID
		if id == "" {
			id = item.Link
		}

		var publishedOn int64
		if item.PublishedParsed != nil {
			publishedOn = item.PublishedParsed.Unix()
		}

		items = append(items, model.NewsItem{
			ID:          id,
			Title:       s.sanitize(item.Title),
			Body:        s.sanitize(item.Description),
			URL:         item.Link,
			Source:      feed.Title,
			PublishedOn: publishedOn,
		})
	}

	return items, nil
}

// sanitize はタグを除去したプレーンテキストを返す。
func (s *Service) sanitize(text string) string {
	return strings.TrimSpace(s.policy.Sanitize(text))
}
