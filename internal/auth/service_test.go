package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/hitoshi/llamadash/internal/model"
)

// --- モック定義 ---

type mockUserRepo struct {
	createFn      func(ctx context.Context, user *model.User) error
	findByIDFn    func(ctx context.Context, id string) (*model.User, error)
	findByEmailFn func(ctx context.Context, email string) (*model.User, error)
}

func (m *mockUserRepo) Create(ctx context.Context, user *model.User) error {
	if m.createFn != nil {
		return m.createFn(ctx, user)
	}
	return nil
}

func (m *mockUserRepo) FindByID(ctx context.Context, id string) (*model.User, error) {
	if m.findByIDFn != nil {
		return m.findByIDFn(ctx, id)
	}
	return nil, nil
}

func (m *mockUserRepo) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	if m.findByEmailFn != nil {
		return m.findByEmailFn(ctx, email)
	}
	return nil, nil
}

func newTestService(repo *mockUserRepo) *Service {
	return NewService(repo, NewTokenIssuer("test-secret", time.Hour))
}

// --- テスト ---

// サインアップ成功でトークンと公開ユーザー情報が返り、トークンのsubjectが保存ユーザーと一致することを検証
func TestService_SignUp_Success(t *testing.T) {
	var savedUser *model.User
	repo := &mockUserRepo{
		createFn: func(ctx context.Context, user *model.User) error {
			savedUser = user
			return nil
		},
	}
	svc := newTestService(repo)

	result, err := svc.SignUp(context.Background(), "a@b.com", "password1", "abc")
	if err != nil {
		t.Fatalf("SignUp failed: %v", err)
	}

	if savedUser == nil {
		t.Fatal("user should be persisted")
	}
	if savedUser.PasswordHash == "password1" {
		t.Error("password must not be stored in plain text")
	}
	if savedUser.AuthProvider != model.AuthProviderLocal {
		t.Errorf("AuthProvider = %q, want %q", savedUser.AuthProvider, model.AuthProviderLocal)
	}
	if result.User.Email != "a@b.com" || result.User.Username != "abc" {
		t.Errorf("unexpected public user: %+v", result.User)
	}

	// 発行されたトークンのsubjectが保存ユーザーのIDと一致すること
	issuer := NewTokenIssuer("test-secret", time.Hour)
	userID, err := issuer.Verify(result.Token)
	if err != nil {
		t.Fatalf("token verification failed: %v", err)
	}
	if userID != savedUser.ID {
		t.Errorf("token subject = %q, want %q", userID, savedUser.ID)
	}
}

// サインアップのバリデーション違反がすべて列挙されることを検証
func TestService_SignUp_ValidationListsAllViolations(t *testing.T) {
	svc := newTestService(&mockUserRepo{})

	_, err := svc.SignUp(context.Background(), "not-an-email", "short", "ab")
	if err == nil {
		t.Fatal("expected validation error")
	}

	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *model.APIError, got %T", err)
	}
	if apiErr.Code != model.ErrCodeValidation {
		t.Errorf("Code = %q, want %q", apiErr.Code, model.ErrCodeValidation)
	}
	if len(apiErr.Details) != 3 {
		t.Errorf("violations = %d, want 3: %v", len(apiErr.Details), apiErr.Details)
	}
}

// メールアドレス重複のサインアップが競合エラーになることを検証
func TestService_SignUp_DuplicateEmail(t *testing.T) {
	repo := &mockUserRepo{
		findByEmailFn: func(ctx context.Context, email string) (*model.User, error) {
			return &model.User{ID: "existing", Email: email}, nil
		},
	}
	svc := newTestService(repo)

	_, err := svc.SignUp(context.Background(), "a@b.com", "password1", "abc")
	if err == nil {
		t.Fatal("expected conflict error")
	}

	var apiErr *model.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodeEmailTaken {
		t.Errorf("expected EMAIL_TAKEN error, got %v", err)
	}
}

// signUpAndSignIn はサインアップ済みユーザーを保持するモックリポジトリを構築するヘルパー。
func signedUpRepo(t *testing.T, email, password string) *mockUserRepo {
	t.Helper()

	users := map[string]*model.User{}
	repo := &mockUserRepo{}
	repo.createFn = func(ctx context.Context, user *model.User) error {
		users[user.Email] = user
		return nil
	}
	repo.findByEmailFn = func(ctx context.Context, e string) (*model.User, error) {
		return users[e], nil
	}
	repo.findByIDFn = func(ctx context.Context, id string) (*model.User, error) {
		for _, u := range users {
			if u.ID == id {
				return u, nil
			}
		}
		return nil, nil
	}

	svc := newTestService(repo)
	if _, err := svc.SignUp(context.Background(), email, password, "abc"); err != nil {
		t.Fatalf("setup sign up failed: %v", err)
	}
	return repo
}

// 正しいパスワードでサインインが成功することを検証
func TestService_SignIn_Success(t *testing.T) {
	repo := signedUpRepo(t, "a@b.com", "password1")
	svc := newTestService(repo)

	result, err := svc.SignIn(context.Background(), "a@b.com", "password1")
	if err != nil {
		t.Fatalf("SignIn failed: %v", err)
	}
	if result.Token == "" {
		t.Error("expected non-empty token")
	}
	if result.User.Email != "a@b.com" {
		t.Errorf("Email = %q, want %q", result.User.Email, "a@b.com")
	}
}

// パスワード誤りと未登録メールアドレスが同一のエラーを返すことを検証
func TestService_SignIn_InvalidCredentialsAreIndistinguishable(t *testing.T) {
	repo := signedUpRepo(t, "a@b.com", "password1")
	svc := newTestService(repo)

	_, wrongPassErr := svc.SignIn(context.Background(), "a@b.com", "wrong-password")
	_, noUserErr := svc.SignIn(context.Background(), "nobody@b.com", "password1")

	var apiErr1, apiErr2 *model.APIError
	if !errors.As(wrongPassErr, &apiErr1) || !errors.As(noUserErr, &apiErr2) {
		t.Fatalf("expected APIErrors, got %v / %v", wrongPassErr, noUserErr)
	}
	if apiErr1.Code != model.ErrCodeInvalidCredentials || apiErr2.Code != model.ErrCodeInvalidCredentials {
		t.Errorf("both errors should be INVALID_CREDENTIALS: %q / %q", apiErr1.Code, apiErr2.Code)
	}
	if apiErr1.Message != apiErr2.Message {
		t.Error("error messages must not reveal whether the email exists")
	}
}

// サインアップで得たトークンのVerifyTokenが同一ユーザーを返すことを検証
func TestService_VerifyToken_ReturnsUser(t *testing.T) {
	repo := signedUpRepo(t, "a@b.com", "password1")
	svc := newTestService(repo)

	result, err := svc.SignIn(context.Background(), "a@b.com", "password1")
	if err != nil {
		t.Fatalf("SignIn failed: %v", err)
	}

	user, err := svc.VerifyToken(context.Background(), result.Token)
	if err != nil {
		t.Fatalf("VerifyToken failed: %v", err)
	}
	if user.Email != "a@b.com" {
		t.Errorf("Email = %q, want %q", user.Email, "a@b.com")
	}
}

// 不正なトークンのVerifyTokenが未認証エラーを返すことを検証
func TestService_VerifyToken_InvalidToken(t *testing.T) {
	svc := newTestService(&mockUserRepo{})

	_, err := svc.VerifyToken(context.Background(), "garbage")
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodeUnauthorized {
		t.Errorf("expected UNAUTHORIZED error, got %v", err)
	}
}

// トークンが参照するユーザーが存在しない場合にエラーになることを検証
func TestService_VerifyToken_UserGone(t *testing.T) {
	repo := &mockUserRepo{
		findByIDFn: func(ctx context.Context, id string) (*model.User, error) {
			return nil, nil
		},
	}
	svc := newTestService(repo)

	issuer := NewTokenIssuer("test-secret", time.Hour)
	token, err := issuer.Issue("deleted-user")
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	_, err = svc.VerifyToken(context.Background(), token)
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodeUserNotFound {
		t.Errorf("expected USER_NOT_FOUND error, got %v", err)
	}
}
