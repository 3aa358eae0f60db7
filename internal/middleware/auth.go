package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/hitoshi/llamadash/internal/model"
)

// contextKey はコンテキスト値のキー衝突を防ぐための非公開型。
type contextKey string

// userContextKey は認証済みユーザーをコンテキストに格納するキー。
const userContextKey contextKey = "authenticated_user"

// ErrNoUserInContext はコンテキストに認証済みユーザーが存在しない場合のエラー。
var ErrNoUserInContext = errors.New("no authenticated user in context")

// TokenVerifier はBearerトークンを検証し、対応するユーザーを解決する。
type TokenVerifier interface {
	VerifyToken(ctx context.Context, tokenString string) (*model.User, error)
}

// ContextWithUser は認証済みユーザーを格納した新しいコンテキストを返す。
func ContextWithUser(ctx context.Context, user *model.User) context.Context {
	return context.WithValue(ctx, userContextKey, user)
}

// UserFromContext はコンテキストから認証済みユーザーを取り出す。
// 存在しない場合はErrNoUserInContextを返す。
func UserFromContext(ctx context.Context) (*model.User, error) {
	user, ok := ctx.Value(userContextKey).(*model.User)
	if !ok || user == nil {
		return nil, ErrNoUserInContext
	}
	return user, nil
}

// NewAuthMiddleware はAuthorizationヘッダーのBearerトークンを検証し、
// 認証済みユーザーをリクエストコンテキストに注入するミドルウェアを生成する。
// トークンが欠落・不正な場合は401を返す。
func NewAuthMiddleware(verifier TokenVerifier) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenString, ok := extractBearerToken(r)
			if !ok {
				WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
				return
			}

			user, err := verifier.VerifyToken(r.Context(), tokenString)
			if err != nil {
				// APIErrorは認証起因（不正トークン、ユーザー消失）のみ。
				// それ以外はDB障害などの内部エラーであり、401ではなく500を返す。
				var apiErr *model.APIError
				if errors.As(err, &apiErr) {
					WriteErrorResponse(w, http.StatusUnauthorized, apiErr)
					return
				}
				slog.Error("token verification failed", slog.String("error", err.Error()))
				WriteInternalServerError(w)
				return
			}

			ctx := ContextWithUser(r.Context(), user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// extractBearerToken はAuthorizationヘッダーからBearerトークンを取り出す。
func extractBearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", false
	}

	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return "", false
	}

	token := strings.TrimSpace(strings.TrimPrefix(header, prefix))
	if token == "" {
		return "", false
	}
	return token, true
}
