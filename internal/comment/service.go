// Package comment はニュース記事へのコメント機能を提供する。
package comment

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/llamadash/internal/model"
	"github.com/hitoshi/llamadash/internal/repository"
)

// Service はコメントの投稿と一覧取得のビジネスロジックを提供する。
type Service struct {
	commentRepo repository.CommentRepository

	// now はテストで時刻を差し替えるためのフック。
	now func() time.Time
}

// NewService はServiceを生成する。
func NewService(commentRepo repository.CommentRepository) *Service {
	return &Service{
		commentRepo: commentRepo,
		now:         time.Now,
	}
}

// Create は認証済みユーザーのコメントを投稿する。
// 本文が空または空白のみの場合はバリデーションエラーを返す。
// 本文は前後の空白を除去して保存し、IDと作成日時はサーバー側で付与する。
func (s *Service) Create(ctx context.Context, user *model.User, newsID, text string) (*model.Comment, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, model.NewCommentTextEmptyError()
	}

	comment := &model.Comment{
		ID:        uuid.New().String(),
		NewsID:    newsID,
		UserID:    user.ID,
		Username:  user.Username,
		Text:      text,
		CreatedAt: s.now(),
	}

	if err := s.commentRepo.Create(ctx, comment); err != nil {
		return nil, fmt.Errorf("failed to create comment: %w", err)
	}

	slog.Info("comment created",
		slog.String("comment_id", comment.ID),
		slog.String("news_id", newsID),
		slog.String("user_id", user.ID),
	)

	return comment, nil
}

// ListByNewsID は指定ニュースIDのコメントを作成日時昇順で返す。
func (s *Service) ListByNewsID(ctx context.Context, newsID string) ([]model.Comment, error) {
	comments, err := s.commentRepo.ListByNewsID(ctx, newsID)
	if err != nil {
		return nil, fmt.Errorf("failed to list comments: %w", err)
	}

	return comments, nil
}
