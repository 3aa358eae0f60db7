// Package repository はデータベースアクセス層を提供する。
package repository

import (
	"context"

	"github.com/hitoshi/llamadash/internal/model"
)

// UserRepository はユーザーの永続化インターフェース。
type UserRepository interface {
	// Create は新規ユーザーを保存する。
	Create(ctx context.Context, user *model.User) error
	// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.User, error)
	// FindByEmail は指定メールアドレスのユーザーを取得する。見つからない場合はnilを返す。
	FindByEmail(ctx context.Context, email string) (*model.User, error)
}

// CommentRepository はコメントの永続化インターフェース。
type CommentRepository interface {
	// Create は新規コメントを保存する。
	Create(ctx context.Context, comment *model.Comment) error
	// ListByNewsID は指定ニュースIDのコメントを作成日時昇順で返す。
	ListByNewsID(ctx context.Context, newsID string) ([]model.Comment, error)
}
