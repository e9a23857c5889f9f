package user

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/nao1215/minishop/pkg/event"
	"github.com/nao1215/minishop/pkg/httpclient"
	"github.com/nao1215/minishop/pkg/httperr"
	"github.com/nao1215/minishop/pkg/metrics"
	"github.com/nao1215/minishop/pkg/middleware"
	"golang.org/x/crypto/bcrypt"
)

// serviceName はヘルスチェックで返すサービス名。
const serviceName = "user-service"

// eventTimeout はイベント送信のタイムアウト。
const eventTimeout = 5 * time.Second

// Server はユーザーサービスのHTTPサーバー。
type Server struct {
	// router はGinのHTTPルーター。
	router *gin.Engine
	// port はサーバーのリッスンポート。
	port string
	// store はユーザーの保存先。
	store *Store
	// publisher はドメインイベントの送信先。
	publisher event.Publisher
	// bcryptCost はパスワードハッシュのコスト。
	bcryptCost int
	// metrics はPrometheusメトリクス。
	metrics *metrics.HTTP
	// now は現在時刻を返す。
	now func() time.Time
}

// NewServer は新しいユーザーサーバーを生成する。
// SQLiteデータベースを開き、マイグレーションを適用する。
func NewServer(ctx context.Context, cfg Config) (*Server, error) {
	store, err := OpenStore(ctx, cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("ユーザーストアの初期化に失敗: %w", err)
	}
	publisher := event.NewHTTPPublisher(httpclient.New(cfg.NotificationServiceURL))
	return newServer(cfg.Port, store, publisher, cfg.BcryptCost), nil
}

func newServer(port string, store *Store, publisher event.Publisher, bcryptCost int) *Server {
	m := metrics.NewHTTP("user")

	router := gin.New()
	router.Use(middleware.Recovery())
	router.Use(middleware.RequestLogger("User"))
	router.Use(m.Middleware())

	s := &Server{
		router:     router,
		port:       port,
		store:      store,
		publisher:  publisher,
		bcryptCost: bcryptCost,
		metrics:    m,
		now:        time.Now,
	}
	s.setupRoutes()

	return s
}

// Run はHTTPサーバーを起動する。
func (s *Server) Run() error {
	return s.router.Run(fmt.Sprintf(":%s", s.port))
}

// Close はデータベース接続を閉じる。
func (s *Server) Close() error {
	return s.store.Close()
}

// setupRoutes はAPIルーティングを設定する。
func (s *Server) setupRoutes() {
	s.router.POST("/register", s.handleRegister())
	s.router.POST("/login", s.handleLogin())

	profile := s.router.Group("/profile")
	profile.Use(middleware.UserIdentity())
	{
		profile.GET("", s.handleGetProfile())
		profile.PUT("", s.handleUpdateProfile())
	}

	s.router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "healthy",
			"service":   serviceName,
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		})
	})
	s.router.GET("/metrics", s.metrics.Handler())
}

// registerRequest はユーザー登録リクエストのJSON構造。
type registerRequest struct {
	// Email はメールアドレス。
	Email string `json:"email" binding:"required,email"`
	// Password はパスワード。8文字以上。
	Password string `json:"password" binding:"required,min=8,max=72"`
	// Name は表示名。
	Name string `json:"name" binding:"required"`
}

// loginRequest はログインリクエストのJSON構造。
type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// updateProfileRequest はプロフィール更新リクエストのJSON構造。
type updateProfileRequest struct {
	// Name は新しい表示名。
	Name string `json:"name" binding:"required"`
}

// normalizeEmail は比較用にメールアドレスを正規化する。
func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// handleRegister はユーザーを登録し、UserRegisteredイベントを送信する。
func (s *Server) handleRegister() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req registerRequest
		if err := httperr.Bind(c, &req); err != nil {
			httperr.Respond(c, err)
			return
		}

		hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.bcryptCost)
		if err != nil {
			httperr.Respond(c, httperr.Internal(fmt.Errorf("パスワードのハッシュ化に失敗: %w", err)))
			return
		}

		now := s.now().UTC()
		u := User{
			ID:           uuid.New().String(),
			Email:        normalizeEmail(req.Email),
			Name:         strings.TrimSpace(req.Name),
			PasswordHash: string(hash),
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		if err := s.store.Create(c.Request.Context(), u); err != nil {
			if errors.Is(err, ErrEmailTaken) {
				httperr.Respond(c, httperr.Conflict("User already exists"))
				return
			}
			httperr.Respond(c, httperr.Internal(err))
			return
		}
		log.Printf("[User] ユーザーを登録: id=%s", u.ID)

		s.publish(c.Request.Context(), u.ID, event.TypeUserRegistered, event.UserRegisteredData{
			UserID: u.ID,
			Email:  u.Email,
			Name:   u.Name,
		})

		c.JSON(http.StatusCreated, u)
	}
}

// handleLogin はメールアドレスとパスワードを検証する。
// 存在しないユーザーとパスワード不一致は区別しない。
func (s *Server) handleLogin() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req loginRequest
		if err := httperr.Bind(c, &req); err != nil {
			httperr.Respond(c, err)
			return
		}

		u, err := s.store.GetByEmail(c.Request.Context(), normalizeEmail(req.Email))
		if errors.Is(err, ErrNotFound) {
			httperr.Respond(c, httperr.Unauthenticated("Invalid credentials"))
			return
		}
		if err != nil {
			httperr.Respond(c, httperr.Internal(err))
			return
		}

		if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(req.Password)); err != nil {
			httperr.Respond(c, httperr.Unauthenticated("Invalid credentials"))
			return
		}

		c.JSON(http.StatusOK, gin.H{"user": u})
	}
}

// handleGetProfile はX-User-IDのユーザー情報を返す。
func (s *Server) handleGetProfile() gin.HandlerFunc {
	return func(c *gin.Context) {
		u, err := s.store.GetByID(c.Request.Context(), middleware.GetUserID(c))
		if err != nil {
			httperr.Respond(c, mapStoreError(err))
			return
		}
		c.JSON(http.StatusOK, u)
	}
}

// handleUpdateProfile は表示名を更新する。
func (s *Server) handleUpdateProfile() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req updateProfileRequest
		if err := httperr.Bind(c, &req); err != nil {
			httperr.Respond(c, err)
			return
		}

		ctx := c.Request.Context()
		userID := middleware.GetUserID(c)
		if err := s.store.UpdateName(ctx, userID, strings.TrimSpace(req.Name), s.now().UTC()); err != nil {
			httperr.Respond(c, mapStoreError(err))
			return
		}

		u, err := s.store.GetByID(ctx, userID)
		if err != nil {
			httperr.Respond(c, mapStoreError(err))
			return
		}
		c.JSON(http.StatusOK, u)
	}
}

// publish はイベントを送信する。失敗してもリクエストは成功として扱う。
func (s *Server) publish(ctx context.Context, userID string, eventType event.Type, data any) {
	e, err := event.New(userID, eventType, data)
	if err != nil {
		log.Printf("[User] イベントの生成に失敗: type=%s, error=%v", eventType, err)
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), eventTimeout)
	defer cancel()
	if err := s.publisher.Publish(ctx, e); err != nil {
		log.Printf("[User] イベントの送信に失敗: %v", err)
	}
}

// mapStoreError はStoreのエラーをHTTPエラーに変換する。
func mapStoreError(err error) error {
	if errors.Is(err, ErrNotFound) {
		return httperr.NotFound("User not found")
	}
	return httperr.Internal(err)
}
