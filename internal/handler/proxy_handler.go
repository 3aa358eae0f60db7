package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/llamadash/internal/cache"
	"github.com/hitoshi/llamadash/internal/model"
	"github.com/hitoshi/llamadash/internal/upstream"
)

// CoinGeckoFetcher はCoinGecko APIのプロキシに必要なインターフェース。
type CoinGeckoFetcher interface {
	Markets(ctx context.Context, query url.Values) (json.RawMessage, error)
	CoinDetail(ctx context.Context, id string, query url.Values) (json.RawMessage, error)
	MarketChart(ctx context.Context, id string, query url.Values) (json.RawMessage, error)
	Tickers(ctx context.Context, id string, query url.Values) (json.RawMessage, error)
}

// LlamaFetcher はDefiLlama APIのプロキシに必要なインターフェース。
type LlamaFetcher interface {
	Charts(ctx context.Context) (json.RawMessage, error)
	Protocols(ctx context.Context) (json.RawMessage, error)
	YieldPools(ctx context.Context) (json.RawMessage, error)
	StablecoinCharts(ctx context.Context) (json.RawMessage, error)
}

// ProxyMetrics はプロキシハンドラーが記録するメトリクスのインターフェース。
type ProxyMetrics interface {
	RecordCacheHit()
	RecordCacheMiss()
	RecordUpstreamStatus(statusCode int)
	RecordUpstreamLatency(duration time.Duration)
}

// ProxyHandler は上流APIへのキャッシュ付きプロキシのHTTPハンドラー。
// 上流のJSONペイロードを加工せずそのまま返す。
type ProxyHandler struct {
	coingecko CoinGeckoFetcher
	llama     LlamaFetcher
	cache     *cache.Cache
	metrics   ProxyMetrics
}

// NewProxyHandler はProxyHandlerを生成する。metricsはnilでもよい。
func NewProxyHandler(coingecko CoinGeckoFetcher, llama LlamaFetcher, c *cache.Cache, metrics ProxyMetrics) *ProxyHandler {
	return &ProxyHandler{
		coingecko: coingecko,
		llama:     llama,
		cache:     c,
		metrics:   metrics,
	}
}

// ListCoins は市場データ付きコイン一覧を返す。
// 上流が429の場合のみ、同梱のフォールバックデータで応答する。
// GET /api/coins
func (h *ProxyHandler) ListCoins(w http.ResponseWriter, r *http.Request) {
	query := coinListingQuery(r.URL.Query())
	key := cacheKey("coins/markets", query)

	payload, err := h.cachedFetch(r.Context(), key, func(ctx context.Context) (json.RawMessage, error) {
		return h.coingecko.Markets(ctx, query)
	})
	if err != nil {
		if upstream.IsRateLimited(err) {
			slog.Warn("serving fallback coin listing", slog.String("key", key))
			writeRawJSON(w, http.StatusOK, upstream.FallbackCoins())
			return
		}
		relayUpstreamError(w, err)
		return
	}

	writeRawJSON(w, http.StatusOK, payload)
}

// GetCoinDetail はコイン詳細を返す。
// GET /api/coins/{id}
func (h *ProxyHandler) GetCoinDetail(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	query := coinDetailQuery(r.URL.Query())
	key := cacheKey("coins/"+id, query)

	payload, err := h.cachedFetch(r.Context(), key, func(ctx context.Context) (json.RawMessage, error) {
		return h.coingecko.CoinDetail(ctx, id, query)
	})
	if err != nil {
		relayUpstreamError(w, err)
		return
	}

	writeRawJSON(w, http.StatusOK, payload)
}

// GetMarketChart はコインの価格チャートデータを返す。
// GET /api/coins/{id}/market_chart
func (h *ProxyHandler) GetMarketChart(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	query := marketChartQuery(r.URL.Query())
	key := cacheKey("coins/"+id+"/market_chart", query)

	payload, err := h.cachedFetch(r.Context(), key, func(ctx context.Context) (json.RawMessage, error) {
		return h.coingecko.MarketChart(ctx, id, query)
	})
	if err != nil {
		relayUpstreamError(w, err)
		return
	}

	writeRawJSON(w, http.StatusOK, payload)
}

// GetTickers はコインの取引所別ティッカーを返す。
// GET /api/coins/{id}/tickers
func (h *ProxyHandler) GetTickers(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	query := tickersQuery(r.URL.Query())
	key := cacheKey("coins/"+id+"/tickers", query)

	payload, err := h.cachedFetch(r.Context(), key, func(ctx context.Context) (json.RawMessage, error) {
		return h.coingecko.Tickers(ctx, id, query)
	})
	if err != nil {
		relayUpstreamError(w, err)
		return
	}

	writeRawJSON(w, http.StatusOK, payload)
}

// GetLlamaCharts はDeFi全体のTVLチャートを返す。
// GET /api/llama/charts
func (h *ProxyHandler) GetLlamaCharts(w http.ResponseWriter, r *http.Request) {
	h.serveLlama(w, r, "llama/charts", h.llama.Charts)
}

// GetLlamaProtocols はDeFiプロトコル一覧を返す。
// GET /api/llama/protocols
func (h *ProxyHandler) GetLlamaProtocols(w http.ResponseWriter, r *http.Request) {
	h.serveLlama(w, r, "llama/protocols", h.llama.Protocols)
}

// GetYieldPools はイールドファーミングのプール一覧を返す。
// GET /api/llama/yields/pools
func (h *ProxyHandler) GetYieldPools(w http.ResponseWriter, r *http.Request) {
	h.serveLlama(w, r, "llama/yields/pools", h.llama.YieldPools)
}

// GetStablecoinCharts はステーブルコインの時価総額チャートを返す。
// GET /api/llama/stablecoins/charts
func (h *ProxyHandler) GetStablecoinCharts(w http.ResponseWriter, r *http.Request) {
	h.serveLlama(w, r, "llama/stablecoins/charts", h.llama.StablecoinCharts)
}

// serveLlama はクエリパラメータを持たないDefiLlama系エンドポイントを処理する。
func (h *ProxyHandler) serveLlama(w http.ResponseWriter, r *http.Request, endpoint string, fetch func(ctx context.Context) (json.RawMessage, error)) {
	key := cacheKey(endpoint, nil)

	payload, err := h.cachedFetch(r.Context(), key, func(ctx context.Context) (json.RawMessage, error) {
		return fetch(ctx)
	})
	if err != nil {
		relayUpstreamError(w, err)
		return
	}

	writeRawJSON(w, http.StatusOK, payload)
}

// cachedFetch はキャッシュを介して上流から取得し、メトリクスを記録する。
func (h *ProxyHandler) cachedFetch(ctx context.Context, key string, fetch func(ctx context.Context) (json.RawMessage, error)) (json.RawMessage, error) {
	payload, hit, err := h.cache.GetOrFetch(ctx, key, func(ctx context.Context) ([]byte, error) {
		start := time.Now()
		body, fetchErr := fetch(ctx)
		h.recordUpstream(fetchErr, time.Since(start))
		return body, fetchErr
	})
	if err != nil {
		return nil, err
	}

	if h.metrics != nil {
		if hit {
			h.metrics.RecordCacheHit()
		} else {
			h.metrics.RecordCacheMiss()
		}
	}
	return payload, nil
}

// recordUpstream は上流呼び出しの結果ステータスとレイテンシをメトリクスに記録する。
func (h *ProxyHandler) recordUpstream(err error, latency time.Duration) {
	if h.metrics == nil {
		return
	}

	h.metrics.RecordUpstreamLatency(latency)

	statusCode := http.StatusOK
	var upstreamErr *upstream.Error
	if errors.As(err, &upstreamErr) {
		statusCode = upstreamErr.StatusCode
	} else if err != nil {
		statusCode = 0 // ネットワークエラー等、HTTPステータスなし
	}
	h.metrics.RecordUpstreamStatus(statusCode)
}

// relayUpstreamError は上流エラーをクライアントへのレスポンスに変換する。
// 429は再試行ヒント付きで返し、その他の構造化エラーは上流のステータスを
// そのまま中継する。構造化されていないエラーは500にまとめる。
func relayUpstreamError(w http.ResponseWriter, err error) {
	var upstreamErr *upstream.Error
	if !errors.As(err, &upstreamErr) {
		handleServiceError(w, err)
		return
	}

	if upstreamErr.StatusCode == http.StatusTooManyRequests {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		json.NewEncoder(w).Encode(map[string]any{
			"code":       model.ErrCodeUpstreamRateLimit,
			"message":    "データ提供元のレート制限に達しました。",
			"category":   "upstream",
			"action":     "しばらく待ってから再度お試しください。",
			"retryAfter": 60,
		})
		return
	}

	slog.Warn("relaying upstream error",
		slog.Int("status", upstreamErr.StatusCode),
		slog.String("message", upstreamErr.Message),
	)
	writeAPIErrorResponse(w, upstreamErr.StatusCode, &model.APIError{
		Code:     model.ErrCodeUpstreamFailed,
		Message:  "データ提供元からの取得に失敗しました: " + upstreamErr.Message,
		Category: "upstream",
		Action:   "しばらく待ってから再度お試しください。",
	})
}

// cacheKey はエンドポイント名と正規化済みクエリからキャッシュキーを構築する。
// url.Values.Encodeはキーをソートするため、同一パラメータ集合は常に
// 同一キーに、異なる集合は異なるキーになる。
func cacheKey(endpoint string, query url.Values) string {
	if len(query) == 0 {
		return endpoint
	}
	return endpoint + "?" + query.Encode()
}

// coinListingQuery はコイン一覧のクエリにデフォルト値を適用する。
// クライアントが指定したパラメータはデフォルトを上書きする。
func coinListingQuery(requestQuery url.Values) url.Values {
	query := url.Values{
		"vs_currency": {"usd"},
		"order":       {"market_cap_desc"},
		"per_page":    {"50"},
		"page":        {"1"},
		"sparkline":   {"false"},
	}
	for _, param := range []string{"vs_currency", "order", "per_page", "page", "sparkline"} {
		if v := requestQuery.Get(param); v != "" {
			query.Set(param, v)
		}
	}
	return query
}

// coinDetailQuery はコイン詳細のクエリにデフォルト値を適用する。
func coinDetailQuery(requestQuery url.Values) url.Values {
	query := url.Values{
		"localization":   {"false"},
		"tickers":        {"true"},
		"market_data":    {"true"},
		"community_data": {"true"},
		"developer_data": {"true"},
		"sparkline":      {"false"},
	}
	for _, param := range []string{"localization", "tickers", "market_data", "community_data", "developer_data", "sparkline"} {
		if v := requestQuery.Get(param); v != "" {
			query.Set(param, v)
		}
	}
	return query
}

// marketChartQuery は価格チャートのクエリにデフォルト値を適用する。
func marketChartQuery(requestQuery url.Values) url.Values {
	query := url.Values{
		"vs_currency": {"usd"},
		"days":        {"90"},
	}
	for _, param := range []string{"vs_currency", "days"} {
		if v := requestQuery.Get(param); v != "" {
			query.Set(param, v)
		}
	}
	return query
}

// tickersQuery はティッカーのクエリにデフォルト値を適用する。
func tickersQuery(requestQuery url.Values) url.Values {
	query := url.Values{
		"include_exchange_logo": {"true"},
	}
	if v := requestQuery.Get("include_exchange_logo"); v != "" {
		query.Set("include_exchange_logo", v)
	}
	return query
}

// writeRawJSON は上流のJSONペイロードを加工せずそのまま書き込む。
func writeRawJSON(w http.ResponseWriter, statusCode int, payload json.RawMessage) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Length", strconv.Itoa(len(payload)))
	w.WriteHeader(statusCode)
	w.Write(payload)
}
