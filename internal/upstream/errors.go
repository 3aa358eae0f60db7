package upstream

import (
	"errors"
	"fmt"
	"net/http"
)

// Error はアップストリームAPIが2xx以外を返した場合のエラーを表す。
// ハンドラーがステータスコードをそのまま中継できるよう、元のステータスを保持する。
type Error struct {
	StatusCode int
	Message    string
}

// Error はerrorインターフェースを実装する。
func (e *Error) Error() string {
	return fmt.Sprintf("upstream returned status %d: %s", e.StatusCode, e.Message)
}

// IsRateLimited はエラーがアップストリームのHTTP 429によるものかを判定する。
func IsRateLimited(err error) bool {
	var ue *Error
	return errors.As(err, &ue) && ue.StatusCode == http.StatusTooManyRequests
}
