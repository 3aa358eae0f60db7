package upstream

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

// LlamaClient はDefiLlama系API（TVL・利回り・ステーブルコイン）のクライアント。
// 3つのサービスはホストが分かれているため、ベースURLを個別に保持する。
type LlamaClient struct {
	httpClient     *http.Client
	baseURL        string // api.llama.fi
	yieldsURL      string // yields.llama.fi
	stablecoinsURL string // stablecoins.llama.fi
}

// NewLlamaClient はLlamaClientを生成する。
func NewLlamaClient(httpClient *http.Client, baseURL, yieldsURL, stablecoinsURL string) *LlamaClient {
	return &LlamaClient{
		httpClient:     httpClient,
		baseURL:        baseURL,
		yieldsURL:      yieldsURL,
		stablecoinsURL: stablecoinsURL,
	}
}

// Charts はTVLの時系列チャート（/charts）を取得する。
func (c *LlamaClient) Charts(ctx context.Context) (json.RawMessage, error) {
	return c.get(ctx, c.baseURL+"/charts")
}

// Protocols はプロトコル一覧（/protocols）を取得する。
func (c *LlamaClient) Protocols(ctx context.Context) (json.RawMessage, error) {
	return c.get(ctx, c.baseURL+"/protocols")
}

// YieldPools は利回りプール一覧（yields.llama.fi/pools）を取得する。
func (c *LlamaClient) YieldPools(ctx context.Context) (json.RawMessage, error) {
	return c.get(ctx, c.yieldsURL+"/pools")
}

// StablecoinCharts は全ステーブルコインの供給量チャート
// （stablecoins.llama.fi/stablecoincharts/all）を取得する。
func (c *LlamaClient) StablecoinCharts(ctx context.Context) (json.RawMessage, error) {
	return c.get(ctx, c.stablecoinsURL+"/stablecoincharts/all")
}

func (c *LlamaClient) get(ctx context.Context, reqURL string) (json.RawMessage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	return getJSON(c.httpClient, req)
}
