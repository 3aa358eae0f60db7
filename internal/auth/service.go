// Package auth はサインアップ・サインイン・トークン検証の認証機能を提供する。
package auth

import (
	"context"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/hitoshi/llamadash/internal/model"
	"github.com/hitoshi/llamadash/internal/repository"
)

const (
	minUsernameLength = 3
	minPasswordLength = 8
)

// AuthResult はサインアップ・サインイン成功時の結果を表す。
type AuthResult struct {
	Token string
	User  model.PublicUser
}

// Service は認証に関するビジネスロジックを提供する。
type Service struct {
	userRepo repository.UserRepository
	tokens   *TokenIssuer
}

// NewService はServiceを生成する。
func NewService(userRepo repository.UserRepository, tokens *TokenIssuer) *Service {
	return &Service{
		userRepo: userRepo,
		tokens:   tokens,
	}
}

// SignUp は新規ユーザーを登録し、署名付きトークンを発行する。
// バリデーション違反はすべて列挙して返す。メールアドレス重複は競合エラーを返す。
func (s *Service) SignUp(ctx context.Context, email, password, username string) (*AuthResult, error) {
	email = strings.TrimSpace(email)
	username = strings.TrimSpace(username)

	if violations := validateSignUp(email, password, username); len(violations) > 0 {
		return nil, model.NewValidationError(violations)
	}

	// メールアドレスの重複チェック
	existing, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("failed to check existing user: %w", err)
	}
	if existing != nil {
		return nil, model.NewEmailTakenError()
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &model.User{
		ID:           uuid.New().String(),
		Email:        email,
		Username:     username,
		PasswordHash: string(hash),
		AuthProvider: model.AuthProviderLocal,
		CreatedAt:    time.Now(),
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	token, err := s.tokens.Issue(user.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to issue token: %w", err)
	}

	slog.Info("new user signed up",
		slog.String("user_id", user.ID),
		slog.String("username", user.Username),
	)

	return &AuthResult{Token: token, User: user.Public()}, nil
}

// SignIn はメールアドレスとパスワードを検証し、新しいトークンを発行する。
// ユーザー不在とパスワード不一致は意図的に同一のエラーとして返す。
func (s *Service) SignIn(ctx context.Context, email, password string) (*AuthResult, error) {
	email = strings.TrimSpace(email)

	if violations := validateSignIn(email, password); len(violations) > 0 {
		return nil, model.NewValidationError(violations)
	}

	user, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	if user == nil {
		return nil, model.NewInvalidCredentialsError()
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, model.NewInvalidCredentialsError()
	}

	token, err := s.tokens.Issue(user.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to issue token: %w", err)
	}

	slog.Info("user signed in", slog.String("user_id", user.ID))

	return &AuthResult{Token: token, User: user.Public()}, nil
}

// VerifyToken はトークンを検証し、参照先のユーザーを返す。
// トークン不正・期限切れ・ユーザー不在の場合は未認証エラーを返す。
func (s *Service) VerifyToken(ctx context.Context, tokenString string) (*model.User, error) {
	userID, err := s.tokens.Verify(tokenString)
	if err != nil {
		return nil, model.NewUnauthorizedError()
	}

	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	if user == nil {
		return nil, model.NewUserNotFoundError()
	}

	return user, nil
}

// validateSignUp はサインアップ入力を検証し、違反の一覧を返す。
func validateSignUp(email, password, username string) []string {
	var violations []string

	if _, err := mail.ParseAddress(email); err != nil {
		violations = append(violations, "メールアドレスの形式が正しくありません")
	}
	if len([]rune(username)) < minUsernameLength {
		violations = append(violations, fmt.Sprintf("ユーザー名は%d文字以上で入力してください", minUsernameLength))
	}
	if len(password) < minPasswordLength {
		violations = append(violations, fmt.Sprintf("パスワードは%d文字以上で入力してください", minPasswordLength))
	}

	return violations
}

// validateSignIn はサインイン入力を検証し、違反の一覧を返す。
func validateSignIn(email, password string) []string {
	var violations []string

	if _, err := mail.ParseAddress(email); err != nil {
		violations = append(violations, "メールアドレスの形式が正しくありません")
	}
	if password == "" {
		violations = append(violations, "パスワードを入力してください")
	}

	return violations
}
