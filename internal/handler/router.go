package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/llamadash/internal/middleware"
	"github.com/hitoshi/llamadash/internal/ratelimit"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	Logger            *slog.Logger
	CORSAllowedOrigin string
	TokenVerifier     middleware.TokenVerifier
	RateLimiter       *ratelimit.Limiter
	RateLimitRecorder middleware.RateLimitRecorder

	// ハンドラー
	AuthHandler    *AuthHandler
	ProxyHandler   *ProxyHandler
	NewsHandler    *NewsHandler
	CommentHandler *CommentHandler
	HealthHandler  *HealthHandler

	// /metrics で公開するPrometheusハンドラー。nilなら公開しない。
	MetricsHandler http.Handler
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	CORSMiddleware → RecoveryMiddleware → LoggingMiddleware → (ルートごと) RateLimit / Auth
//
// レート制限はプロキシ系ルート（/api/coins*、/api/llama/*）にのみ適用する。
// 認証は /api/auth/verify、/api/auth/signout、コメント投稿にのみ適用する。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	// CORS ミドルウェアを最上位に適用（全ルートに効く）
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))
	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewLoggingMiddleware(deps.Logger))

	authMW := middleware.NewAuthMiddleware(deps.TokenVerifier)
	rateLimitMW := middleware.NewRateLimitMiddleware(deps.RateLimiter, deps.RateLimitRecorder)

	// --- 認証 ---
	r.Route("/api/auth", func(r chi.Router) {
		r.Post("/signup", deps.AuthHandler.SignUp)
		r.Post("/signin", deps.AuthHandler.SignIn)

		r.Group(func(r chi.Router) {
			r.Use(authMW)
			r.Get("/verify", deps.AuthHandler.Verify)
			r.Post("/signout", deps.AuthHandler.SignOut)
		})
	})

	// --- 上流プロキシ（レート制限付き） ---
	r.Group(func(r chi.Router) {
		r.Use(rateLimitMW)

		r.Route("/api/coins", func(r chi.Router) {
			r.Get("/", deps.ProxyHandler.ListCoins)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", deps.ProxyHandler.GetCoinDetail)
				r.Get("/market_chart", deps.ProxyHandler.GetMarketChart)
				r.Get("/tickers", deps.ProxyHandler.GetTickers)
			})
		})

		r.Route("/api/llama", func(r chi.Router) {
			r.Get("/charts", deps.ProxyHandler.GetLlamaCharts)
			r.Get("/protocols", deps.ProxyHandler.GetLlamaProtocols)
			r.Get("/yields/pools", deps.ProxyHandler.GetYieldPools)
			r.Get("/stablecoins/charts", deps.ProxyHandler.GetStablecoinCharts)
		})
	})

	// --- ニュースとコメント ---
	r.Route("/api/news", func(r chi.Router) {
		r.Get("/defi-news", deps.NewsHandler.ListNews)

		r.Route("/{id}/comments", func(r chi.Router) {
			r.Get("/", deps.CommentHandler.ListComments)
			r.With(authMW).Post("/", deps.CommentHandler.CreateComment)
		})
	})

	// --- 運用 ---
	r.Get("/api/health", deps.HealthHandler.Health)
	if deps.MetricsHandler != nil {
		r.Handle("/metrics", deps.MetricsHandler)
	}

	return r
}
