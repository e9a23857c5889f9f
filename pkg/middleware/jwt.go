package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

// JWTClaims はJWTトークンのクレーム（ペイロード）を表す。
// SubjectとUserIDのどちらにもユーザーIDが入りうる。
type JWTClaims struct {
	jwt.RegisteredClaims
	// UserID は認証済みユーザーの一意識別子。
	UserID string `json:"user_id,omitempty"`
	// Email はユーザーのメールアドレス。
	Email string `json:"email,omitempty"`
}

// Identity はクレームからユーザーIDを取り出す。user_idが無ければsubを使う。
func (c *JWTClaims) Identity() string {
	if c.UserID != "" {
		return c.UserID
	}
	return c.Subject
}

const (
	// HeaderKeyUserID はサービス間でユーザーIDを伝播するためのHTTPヘッダーキー。
	HeaderKeyUserID = "X-User-ID"

	contextKeyClaims = "claims"
	contextKeyUserID = "user_id"
	contextKeyEmail  = "email"

	// tokenIssuer は開発用トークンのiss。
	tokenIssuer = "minishop-dev"
)

var (
	// ErrTokenMissing はAuthorizationヘッダーが無い、またはBearer形式でないことを表す。
	ErrTokenMissing = errors.New("access token required")
	// ErrTokenInvalid は署名・有効期限・アルゴリズムの検証に失敗したことを表す。
	ErrTokenInvalid = errors.New("invalid or expired token")
)

// GenerateJWT はユーザー情報からHS256署名のJWTトークンを生成する。
// 開発用のトークン発行CLIとテストから使用する。
func GenerateJWT(secret, userID, email string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := JWTClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    tokenIssuer,
		},
		UserID: userID,
		Email:  email,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("JWTトークンの署名に失敗: %w", err)
	}
	return signed, nil
}

// VerifyBearer はAuthorizationヘッダーの値からBearerトークンを取り出して検証する。
// ヘッダーが空またはBearer形式でない場合はErrTokenMissing、
// 検証に失敗した場合はErrTokenInvalidをラップして返す。expの無いトークンも検証失敗とする。
func VerifyBearer(secret, authHeader string) (*JWTClaims, error) {
	tokenString, found := strings.CutPrefix(authHeader, "Bearer ")
	if !found || strings.TrimSpace(tokenString) == "" {
		return nil, ErrTokenMissing
	}

	claims := &JWTClaims{}
	token, err := jwt.ParseWithClaims(strings.TrimSpace(tokenString), claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("想定外の署名アルゴリズム: %v", t.Header["alg"])
		}
		return []byte(secret), nil
	}, jwt.WithExpirationRequired())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}
	if !token.Valid {
		return nil, ErrTokenInvalid
	}
	return claims, nil
}

// JWTAuth はJWTトークンを検証するGinミドルウェアを返す。
// トークンが無ければ401、検証に失敗すれば403で中断する。
// 成功時はコンテキストに "claims"、"user_id"、"email" を設定する。
func JWTAuth(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, err := VerifyBearer(secret, c.GetHeader("Authorization"))
		if errors.Is(err, ErrTokenMissing) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "Access token required",
			})
			return
		}
		if err != nil {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error": "Invalid or expired token",
			})
			return
		}

		c.Set(contextKeyClaims, claims)
		c.Set(contextKeyUserID, claims.Identity())
		c.Set(contextKeyEmail, claims.Email)
		c.Next()
	}
}

// GetClaims はJWTAuthが設定したクレームを取得する。未認証ならnil。
func GetClaims(c *gin.Context) *JWTClaims {
	v, ok := c.Get(contextKeyClaims)
	if !ok {
		return nil
	}
	claims, _ := v.(*JWTClaims)
	return claims
}

// GetUserID はGinコンテキストからユーザーIDを取得する。
// JWTAuthまたはUserIdentityミドルウェアが事前に適用されている必要がある。
func GetUserID(c *gin.Context) string {
	userID, _ := c.Get(contextKeyUserID)
	if id, ok := userID.(string); ok {
		return id
	}
	return ""
}
