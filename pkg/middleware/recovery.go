package middleware

import (
	"fmt"
	"log"
	"runtime/debug"

	"github.com/gin-gonic/gin"
	"github.com/nao1215/minishop/pkg/httperr"
)

// Recovery はハンドラのパニックを回復し、共通のエラーレスポンスに変換するミドルウェアを返す。
// パニック値はスタックトレースと共にログにのみ出力し、クライアントには500の汎用メッセージを返す。
// レスポンスの書き込みが始まっている場合はボディを追加せずに処理を中断する。
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			r := recover()
			if r == nil {
				return
			}
			log.Printf("[PANIC] %s %s: %v\n%s", c.Request.Method, c.Request.URL.Path, r, debug.Stack())
			if c.Writer.Written() {
				c.Abort()
				return
			}
			httperr.Respond(c, httperr.Internal(fmt.Errorf("panic: %v", r)))
		}()
		c.Next()
	}
}
