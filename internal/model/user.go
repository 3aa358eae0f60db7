// Package model はドメインモデルを定義する。
package model

import "time"

// AuthProviderLocal はメールアドレスとパスワードによる認証を表す。
// 将来的に外部IdPを追加する場合はここに定数を追加する。
const AuthProviderLocal = "local"

// User はサービス利用ユーザーを表す。
// PasswordHashはbcryptハッシュであり、APIレスポンスには決して含めない。
type User struct {
	ID           string
	Email        string
	Username     string
	PasswordHash string
	AuthProvider string
	CreatedAt    time.Time
}

// PublicUser はAPIレスポンスに含めるユーザーの公開フィールド。
type PublicUser struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	Username string `json:"username"`
}

// Public はUserから公開フィールドのみを抽出する。
func (u *User) Public() PublicUser {
	return PublicUser{
		ID:       u.ID,
		Email:    u.Email,
		Username: u.Username,
	}
}
