package httperr

import (
	"errors"
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
)

// Kind はエラーの分類を表す。
type Kind int

const (
	// KindInternal は想定外のエラー。
	KindInternal Kind = iota
	// KindValidation はリクエスト内容の検証エラー。
	KindValidation
	// KindUnauthenticated は認証情報が無いことを表す。
	KindUnauthenticated
	// KindForbidden は権限が無いことを表す。
	KindForbidden
	// KindNotFound はリソースが存在しないことを表す。
	KindNotFound
	// KindConflict はリソースの重複を表す。
	KindConflict
	// KindUpstreamUnavailable は上流サービスに接続できないことを表す。
	KindUpstreamUnavailable
	// KindUpstreamTimeout は上流サービスがタイムアウトしたことを表す。
	KindUpstreamTimeout
)

// Status はKindに対応するHTTPステータスコードを返す。
func (k Kind) Status() int {
	switch k {
	case KindValidation:
		return http.StatusBadRequest
	case KindUnauthenticated:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	case KindUpstreamUnavailable:
		return http.StatusBadGateway
	case KindUpstreamTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// Error はクライアントに返すメッセージを持つ分類済みエラー。
type Error struct {
	// Kind はエラーの分類。
	Kind Kind
	// Message はレスポンスボディのerrorに入るメッセージ。
	Message string
	// Err は原因となったエラー。ログにのみ出力する。
	Err error
}

// Error はerrorインターフェースを実装する。
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap は原因エラーを返す。
func (e *Error) Unwrap() error {
	return e.Err
}

// Validation は400のエラーを生成する。
func Validation(message string) *Error {
	return &Error{Kind: KindValidation, Message: message}
}

// Unauthenticated は401のエラーを生成する。
func Unauthenticated(message string) *Error {
	return &Error{Kind: KindUnauthenticated, Message: message}
}

// Forbidden は403のエラーを生成する。
func Forbidden(message string) *Error {
	return &Error{Kind: KindForbidden, Message: message}
}

// NotFound は404のエラーを生成する。
func NotFound(message string) *Error {
	return &Error{Kind: KindNotFound, Message: message}
}

// Conflict は409のエラーを生成する。
func Conflict(message string) *Error {
	return &Error{Kind: KindConflict, Message: message}
}

// Upstream は上流サービスの呼び出し失敗を502のエラーに包む。
func Upstream(message string, err error) *Error {
	return &Error{Kind: KindUpstreamUnavailable, Message: message, Err: err}
}

// Internal は想定外のエラーを500のエラーに包む。
func Internal(err error) *Error {
	return &Error{Kind: KindInternal, Message: "Internal server error", Err: err}
}

// Respond はエラーをステータスコードとJSONボディに変換してレスポンスを中断する。
// 分類されていないエラーと500はログに記録し、汎用メッセージのみを返す。
func Respond(c *gin.Context, err error) {
	var e *Error
	if !errors.As(err, &e) {
		e = Internal(err)
	}

	status := e.Kind.Status()
	if status >= http.StatusInternalServerError {
		log.Printf("[ERROR] %s %s: %v", c.Request.Method, c.Request.URL.Path, err)
	}
	if e.Kind == KindInternal {
		c.AbortWithStatusJSON(status, gin.H{"error": "Internal server error"})
		return
	}
	c.AbortWithStatusJSON(status, gin.H{"error": e.Message})
}

// Bind はJSONボディをreqにバインドし、失敗時は400のエラーを返す。
func Bind(c *gin.Context, req any) error {
	if err := c.ShouldBindJSON(req); err != nil {
		return &Error{Kind: KindValidation, Message: fmt.Sprintf("Invalid request: %v", err), Err: err}
	}
	return nil
}
