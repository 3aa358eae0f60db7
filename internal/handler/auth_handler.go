// Package handler はHTTP APIのハンドラーを提供する。
package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/hitoshi/llamadash/internal/auth"
	"github.com/hitoshi/llamadash/internal/middleware"
	"github.com/hitoshi/llamadash/internal/model"
)

// AuthServiceInterface は認証ハンドラーが必要とするサービスインターフェース。
type AuthServiceInterface interface {
	// SignUp は新規ユーザーを登録しトークンを発行する。
	SignUp(ctx context.Context, email, password, username string) (*auth.AuthResult, error)
	// SignIn は既存ユーザーを認証しトークンを発行する。
	SignIn(ctx context.Context, email, password string) (*auth.AuthResult, error)
}

// AuthHandler は認証のHTTPハンドラー。
type AuthHandler struct {
	service AuthServiceInterface
}

// NewAuthHandler はAuthHandlerを生成する。
func NewAuthHandler(service AuthServiceInterface) *AuthHandler {
	return &AuthHandler{service: service}
}

// signUpRequest はサインアップリクエストのボディ。
type signUpRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Username string `json:"username"`
}

// signInRequest はサインインリクエストのボディ。
type signInRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// authResponse は認証成功時のレスポンス。
type authResponse struct {
	Token string           `json:"token"`
	User  model.PublicUser `json:"user"`
}

// SignUp は新規ユーザー登録を処理する。
// POST /api/auth/signup
func (h *AuthHandler) SignUp(w http.ResponseWriter, r *http.Request) {
	var req signUpRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, invalidRequestBodyError())
		return
	}

	result, err := h.service.SignUp(r.Context(), req.Email, req.Password, req.Username)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSONResponse(w, http.StatusCreated, authResponse{
		Token: result.Token,
		User:  result.User,
	})
}

// SignIn は既存ユーザーの認証を処理する。
// POST /api/auth/signin
func (h *AuthHandler) SignIn(w http.ResponseWriter, r *http.Request) {
	var req signInRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, invalidRequestBodyError())
		return
	}

	result, err := h.service.SignIn(r.Context(), req.Email, req.Password)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSONResponse(w, http.StatusOK, authResponse{
		Token: result.Token,
		User:  result.User,
	})
}

// Verify はトークンが有効な場合に対応するユーザーを返す。
// 認証ミドルウェアの後に配置される。
// GET /api/auth/verify
func (h *AuthHandler) Verify(w http.ResponseWriter, r *http.Request) {
	user, err := middleware.UserFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	writeJSONResponse(w, http.StatusOK, map[string]any{
		"user": user.Public(),
	})
}

// SignOut はサインアウトを処理する。
// トークンはステートレスなため、サーバー側の状態破棄はない。
// クライアント側でのトークン破棄を促すメッセージのみを返す。
// POST /api/auth/signout
func (h *AuthHandler) SignOut(w http.ResponseWriter, r *http.Request) {
	writeJSONResponse(w, http.StatusOK, map[string]string{
		"message": "サインアウトしました。",
	})
}

// invalidRequestBodyError はリクエストボディ解析失敗時のエラーを生成する。
func invalidRequestBodyError() *model.APIError {
	return &model.APIError{
		Code:     "INVALID_REQUEST",
		Message:  "リクエストボディの解析に失敗しました。",
		Category: "validation",
		Action:   "正しいJSON形式でリクエストしてください。",
	}
}
