package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/llamadash/internal/middleware"
	"github.com/hitoshi/llamadash/internal/model"
)

// CommentServiceInterface はコメントハンドラーが必要とするサービスインターフェース。
type CommentServiceInterface interface {
	// Create は認証済みユーザーのコメントを投稿する。
	Create(ctx context.Context, user *model.User, newsID, text string) (*model.Comment, error)
	// ListByNewsID はニュース記事のコメント一覧を作成日時の昇順で返す。
	ListByNewsID(ctx context.Context, newsID string) ([]model.Comment, error)
}

// CommentHandler はニュースコメントのHTTPハンドラー。
type CommentHandler struct {
	service CommentServiceInterface
}

// NewCommentHandler はCommentHandlerを生成する。
func NewCommentHandler(service CommentServiceInterface) *CommentHandler {
	return &CommentHandler{service: service}
}

// createCommentRequest はコメント投稿リクエストのボディ。
type createCommentRequest struct {
	Text string `json:"text"`
}

// ListComments はニュース記事のコメント一覧を返す。
// GET /api/news/{id}/comments
func (h *CommentHandler) ListComments(w http.ResponseWriter, r *http.Request) {
	newsID := chi.URLParam(r, "id")

	comments, err := h.service.ListByNewsID(r.Context(), newsID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSONResponse(w, http.StatusOK, comments)
}

// CreateComment はコメント投稿を処理する。
// 認証ミドルウェアの後に配置される。
// POST /api/news/{id}/comments
func (h *CommentHandler) CreateComment(w http.ResponseWriter, r *http.Request) {
	user, err := middleware.UserFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	newsID := chi.URLParam(r, "id")

	var req createCommentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, invalidRequestBodyError())
		return
	}

	comment, err := h.service.Create(r.Context(), user, newsID, req.Text)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSONResponse(w, http.StatusCreated, comment)
}
