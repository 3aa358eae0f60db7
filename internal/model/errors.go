// Package model はドメインモデルを定義する。
package model

import (
	"fmt"
	"strings"
)

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string   // エラーコード
	Message  string   // エラーメッセージ
	Category string   // カテゴリ: auth, validation, comment, upstream, system
	Action   string   // ユーザー向け対処方法
	Details  []string // バリデーション違反の一覧など（省略可）
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeValidation         = "VALIDATION_ERROR"
	ErrCodeEmailTaken         = "EMAIL_TAKEN"
	ErrCodeInvalidCredentials = "INVALID_CREDENTIALS"
	ErrCodeUnauthorized       = "UNAUTHORIZED"
	ErrCodeUserNotFound       = "USER_NOT_FOUND"
	ErrCodeCommentTextEmpty   = "COMMENT_TEXT_EMPTY"
	ErrCodeUpstreamRateLimit  = "UPSTREAM_RATE_LIMITED"
	ErrCodeUpstreamFailed     = "UPSTREAM_FAILED"
)

// NewValidationError は入力バリデーションエラーを生成する。
// violationsにはすべての違反内容を列挙する。
func NewValidationError(violations []string) *APIError {
	return &APIError{
		Code:     ErrCodeValidation,
		Message:  fmt.Sprintf("入力内容に誤りがあります: %s", strings.Join(violations, "、")),
		Category: "validation",
		Action:   "入力内容を確認して再度お試しください。",
		Details:  violations,
	}
}

// NewEmailTakenError はメールアドレス重複エラーを生成する。
func NewEmailTakenError() *APIError {
	return &APIError{
		Code:     ErrCodeEmailTaken,
		Message:  "このメールアドレスは既に登録されています。",
		Category: "validation",
		Action:   "別のメールアドレスを使用するか、サインインしてください。",
	}
}

// NewInvalidCredentialsError は認証失敗エラーを生成する。
// メールアドレスの存在有無とパスワード誤りを意図的に区別しない。
func NewInvalidCredentialsError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidCredentials,
		Message:  "メールアドレスまたはパスワードが正しくありません。",
		Category: "auth",
		Action:   "入力内容を確認して再度お試しください。",
	}
}

// NewUnauthorizedError は未認証エラーを生成する。
func NewUnauthorizedError() *APIError {
	return &APIError{
		Code:     ErrCodeUnauthorized,
		Message:  "認証が必要です。",
		Category: "auth",
		Action:   "サインインしてください。",
	}
}

// NewUserNotFoundError はトークンが参照するユーザーが存在しない場合のエラーを生成する。
func NewUserNotFoundError() *APIError {
	return &APIError{
		Code:     ErrCodeUserNotFound,
		Message:  "ユーザーが見つかりません。",
		Category: "auth",
		Action:   "サインインし直してください。",
	}
}

// NewCommentTextEmptyError はコメント本文が空の場合のエラーを生成する。
func NewCommentTextEmptyError() *APIError {
	return &APIError{
		Code:     ErrCodeCommentTextEmpty,
		Message:  "コメント本文を入力してください。",
		Category: "comment",
		Action:   "空白のみのコメントは投稿できません。",
	}
}
