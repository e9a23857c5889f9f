package middleware

import (
	"log"
	"time"

	"github.com/gin-gonic/gin"
)

// RequestLogger はリクエストの開始と完了をログに出力するGinミドルウェアを返す。
// 完了時にはステータスコードと処理時間を記録する。
func RequestLogger(service string) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		method := c.Request.Method
		path := c.Request.URL.Path

		log.Printf("[%s] --> %s %s", service, method, path)
		c.Next()

		log.Printf("[%s] <-- %s %s %d %s", service, method, path, c.Writer.Status(), time.Since(start))
	}
}
