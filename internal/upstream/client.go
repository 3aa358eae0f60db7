// Package upstream は外部公開APIのHTTPクライアントを提供する。
// ペイロードはスキーマ検証せず、不透明なJSON値としてそのまま中継する。
package upstream

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

// userAgent は全アップストリーム呼び出しに付与するUser-Agentヘッダー。
const userAgent = "llamadash/1.0 DeFi Dashboard"

// NewHTTPClient はアップストリーム呼び出し用のhttp.Clientを生成する。
// タイムアウト以外のリトライやキャンセルは行わない。
func NewHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{Timeout: timeout}
}

// getJSON は指定URLにGETリクエストを送り、レスポンスボディをそのまま返す。
// 2xx以外のステータスは*Errorとして返す。ボディが
// {"error": "..."} 形式の場合はそのメッセージを、そうでなければ汎用メッセージを使う。
func getJSON(client *http.Client, req *http.Request) (json.RawMessage, error) {
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)

	resp, err := client.Do(req)
	if err != nil {
		slog.Error("upstream request failed",
			slog.String("url", req.URL.String()),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("upstream request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read upstream response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		slog.Warn("upstream returned error status",
			slog.String("url", req.URL.String()),
			slog.Int("http_status", resp.StatusCode),
		)
		return nil, &Error{
			StatusCode: resp.StatusCode,
			Message:    upstreamErrorMessage(body),
		}
	}

	return json.RawMessage(body), nil
}

// upstreamErrorMessage はエラーレスポンスボディから人間向けメッセージを抽出する。
func upstreamErrorMessage(body []byte) string {
	var parsed struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &parsed); err == nil {
		if parsed.Error != "" {
			return parsed.Error
		}
		if parsed.Message != "" {
			return parsed.Message
		}
	}
	return "upstream error"
}
