// Package config は環境変数からのアプリケーション設定読み込みを提供する。
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
type Config struct {
	// Database
	DatabaseURL string

	// Auth
	JWTSecret    string
	JWTExpiresIn time.Duration

	// Proxy
	CacheTTL        time.Duration
	RateLimitMax    int
	RateLimitWindow time.Duration
	UpstreamTimeout time.Duration
	UpstreamRate    float64 // CoinGecko向けスロットル（req/sec）
	UpstreamBurst   int

	// Upstream base URLs（テストで差し替え可能）
	CoinGeckoBaseURL     string
	LlamaBaseURL         string
	YieldsBaseURL        string
	StablecoinsBaseURL   string
	CryptoCompareBaseURL string
	NewsRSSURL           string // 空の場合はRSSソース無効

	// Server
	ServerPort string

	// CORS
	CORSAllowedOrigin string
}

// Load は環境変数からConfigを読み込む。
// 必須環境変数が未設定の場合はエラーを返す。
func Load() (*Config, error) {
	cfg := &Config{}

	// Required fields
	var missing []string

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.DatabaseURL == "" {
		missing = append(missing, "DATABASE_URL")
	}

	cfg.JWTSecret = os.Getenv("JWT_SECRET")
	if cfg.JWTSecret == "" {
		missing = append(missing, "JWT_SECRET")
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("required environment variables are not set: %v", missing)
	}

	// Optional fields with defaults
	cfg.JWTExpiresIn = getEnvDuration("JWT_EXPIRES_IN", 7*24*time.Hour)
	cfg.CacheTTL = getEnvDuration("CACHE_TTL", 10*time.Minute)
	cfg.RateLimitMax = getEnvInt("RATE_LIMIT_MAX", 60)
	cfg.RateLimitWindow = getEnvDuration("RATE_LIMIT_WINDOW", time.Minute)
	cfg.UpstreamTimeout = getEnvDuration("UPSTREAM_TIMEOUT", 10*time.Second)
	cfg.UpstreamRate = getEnvFloat("UPSTREAM_RATE", 0.5)
	cfg.UpstreamBurst = getEnvInt("UPSTREAM_BURST", 5)
	cfg.CoinGeckoBaseURL = getEnvString("COINGECKO_BASE_URL", "https://api.coingecko.com/api/v3")
	cfg.LlamaBaseURL = getEnvString("LLAMA_BASE_URL", "https://api.llama.fi")
	cfg.YieldsBaseURL = getEnvString("YIELDS_BASE_URL", "https://yields.llama.fi")
	cfg.StablecoinsBaseURL = getEnvString("STABLECOINS_BASE_URL", "https://stablecoins.llama.fi")
	cfg.CryptoCompareBaseURL = getEnvString("CRYPTOCOMPARE_BASE_URL", "https://min-api.cryptocompare.com")
	cfg.NewsRSSURL = getEnvString("NEWS_RSS_URL", "")
	cfg.ServerPort = getEnvString("SERVER_PORT", "8080")
	cfg.CORSAllowedOrigin = getEnvString("CORS_ALLOWED_ORIGIN", "http://localhost:5173")

	return cfg, nil
}

func getEnvString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func getEnvFloat(key string, defaultVal float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return defaultVal
	}
	return f
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}
