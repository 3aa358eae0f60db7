package handler

import (
	"context"
	"net/http"

	"github.com/hitoshi/llamadash/internal/model"
)

// NewsServiceInterface はニュースハンドラーが必要とするサービスインターフェース。
type NewsServiceInterface interface {
	// Latest は正規化・サニタイズ済みの最新ニュース一覧を返す。
	Latest(ctx context.Context) (*model.NewsList, error)
}

// NewsHandler はDeFiニュースのHTTPハンドラー。
type NewsHandler struct {
	service NewsServiceInterface
}

// NewNewsHandler はNewsHandlerを生成する。
func NewNewsHandler(service NewsServiceInterface) *NewsHandler {
	return &NewsHandler{service: service}
}

// ListNews は最新のDeFiニュース一覧を返す。
// GET /api/news/defi-news
func (h *NewsHandler) ListNews(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.Latest(r.Context())
	if err != nil {
		relayUpstreamError(w, err)
		return
	}

	writeJSONResponse(w, http.StatusOK, list)
}
