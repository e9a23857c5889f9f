package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// UserIdentity はX-User-IDヘッダーからユーザーIDを取り出してコンテキストに設定する。
// バックエンドサービスではgatewayが検証済みのユーザーIDをこのヘッダーで渡す。
// ヘッダーが無い場合は401で中断する。
func UserIdentity() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := strings.TrimSpace(c.GetHeader(HeaderKeyUserID))
		if userID == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "User ID required",
			})
			return
		}
		c.Set(contextKeyUserID, userID)
		c.Next()
	}
}
