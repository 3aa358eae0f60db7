package upstream

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

// CryptoCompareClient はCryptoCompareニュースAPIのクライアント。
type CryptoCompareClient struct {
	httpClient *http.Client
	baseURL    string
}

// NewCryptoCompareClient はCryptoCompareClientを生成する。
func NewCryptoCompareClient(httpClient *http.Client, baseURL string) *CryptoCompareClient {
	return &CryptoCompareClient{
		httpClient: httpClient,
		baseURL:    baseURL,
	}
}

// LatestNews は最新ニュース一覧（/data/v2/news/）を取得する。
// レスポンスは {"Data": [...]} 形式で返るため、正規化は呼び出し元（newsパッケージ）が行う。
func (c *CryptoCompareClient) LatestNews(ctx context.Context) (json.RawMessage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/data/v2/news/", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	return getJSON(c.httpClient, req)
}
