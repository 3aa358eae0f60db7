package upstream

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"golang.org/x/time/rate"
)

// CoinGeckoClient はCoinGecko APIのクライアント。
// 無料プランのレート制限が厳しいため、クライアント側でもスロットルをかける。
type CoinGeckoClient struct {
	httpClient *http.Client
	baseURL    string
	limiter    *rate.Limiter
}

// NewCoinGeckoClient はCoinGeckoClientを生成する。
// rateLimitは自プロセスからCoinGeckoへの呼び出しレート（req/sec）を指定する。
func NewCoinGeckoClient(httpClient *http.Client, baseURL string, rateLimit float64, burst int) *CoinGeckoClient {
	return &CoinGeckoClient{
		httpClient: httpClient,
		baseURL:    baseURL,
		limiter:    rate.NewLimiter(rate.Limit(rateLimit), burst),
	}
}

// Markets はコイン一覧（/coins/markets）を取得する。
// queryには呼び出し元がデフォルト適用済みの全パラメータを渡す。
func (c *CoinGeckoClient) Markets(ctx context.Context, query url.Values) (json.RawMessage, error) {
	return c.get(ctx, "/coins/markets", query)
}

// CoinDetail はコイン詳細（/coins/{id}）を取得する。
func (c *CoinGeckoClient) CoinDetail(ctx context.Context, id string, query url.Values) (json.RawMessage, error) {
	return c.get(ctx, "/coins/"+url.PathEscape(id), query)
}

// MarketChart はコインの価格チャート（/coins/{id}/market_chart）を取得する。
func (c *CoinGeckoClient) MarketChart(ctx context.Context, id string, query url.Values) (json.RawMessage, error) {
	return c.get(ctx, "/coins/"+url.PathEscape(id)+"/market_chart", query)
}

// Tickers はコインの取引所別ティッカー（/coins/{id}/tickers）を取得する。
func (c *CoinGeckoClient) Tickers(ctx context.Context, id string, query url.Values) (json.RawMessage, error) {
	return c.get(ctx, "/coins/"+url.PathEscape(id)+"/tickers", query)
}

// get はスロットルを通してからCoinGeckoにGETリクエストを送る。
func (c *CoinGeckoClient) get(ctx context.Context, path string, query url.Values) (json.RawMessage, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter wait cancelled: %w", err)
	}

	reqURL := c.baseURL + path
	if len(query) > 0 {
		reqURL += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	return getJSON(c.httpClient, req)
}
