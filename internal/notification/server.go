package notification

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/nao1215/minishop/pkg/event"
	"github.com/nao1215/minishop/pkg/httperr"
	"github.com/nao1215/minishop/pkg/metrics"
	"github.com/nao1215/minishop/pkg/middleware"
)

// serviceName はヘルスチェックで返すサービス名。
const serviceName = "notification-service"

// Server は通知サービスのHTTPサーバー。
type Server struct {
	// router はGinのHTTPルーター。
	router *gin.Engine
	// port はサーバーのリッスンポート。
	port string
	// store は通知の保存先。
	store *Store
	// metrics はPrometheusメトリクス。
	metrics *metrics.HTTP
	// now は現在時刻を返す。
	now func() time.Time
}

// NewServer は新しい通知サーバーを生成する。
// SQLiteデータベースを開き、マイグレーションを適用する。
func NewServer(ctx context.Context, cfg Config) (*Server, error) {
	store, err := OpenStore(ctx, cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("通知ストアの初期化に失敗: %w", err)
	}
	return newServer(cfg.Port, store), nil
}

func newServer(port string, store *Store) *Server {
	m := metrics.NewHTTP("notification")

	router := gin.New()
	router.Use(middleware.Recovery())
	router.Use(middleware.RequestLogger("Notification"))
	router.Use(m.Middleware())

	s := &Server{
		router:  router,
		port:    port,
		store:   store,
		metrics: m,
		now:     time.Now,
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
	notifications := s.router.Group("/notifications")
	notifications.Use(middleware.UserIdentity())
	{
		// 通知一覧取得
		notifications.GET("", s.handleList(false))
		// 未読通知一覧取得
		notifications.GET("/unread", s.handleList(true))
		// 通知を既読にする
		notifications.PUT("/:id/read", s.handleMarkAsRead())
		// 全通知を既読にする
		notifications.PUT("/read-all", s.handleMarkAllAsRead())
	}

	// 内部API（他サービスから呼び出される）
	internal := s.router.Group("/internal")
	{
		internal.POST("/send", s.handleSend())
		internal.POST("/events", s.handleEvent())
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

// handleList は認証済みユーザーの通知一覧を返すハンドラ。
func (s *Server) handleList(unreadOnly bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		list, err := s.store.ListByUser(c.Request.Context(), middleware.GetUserID(c), unreadOnly)
		if err != nil {
			httperr.Respond(c, httperr.Internal(err))
			return
		}
		c.JSON(http.StatusOK, list)
	}
}

// handleMarkAsRead は指定された通知を既読にするハンドラ。
// 他のユーザーの通知は403を返す。
func (s *Server) handleMarkAsRead() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		n, err := s.store.Get(ctx, c.Param("id"))
		if errors.Is(err, ErrNotFound) {
			httperr.Respond(c, httperr.NotFound("Notification not found"))
			return
		}
		if err != nil {
			httperr.Respond(c, httperr.Internal(err))
			return
		}
		if n.UserID != middleware.GetUserID(c) {
			httperr.Respond(c, httperr.Forbidden("Not allowed to modify this notification"))
			return
		}

		if err := s.store.MarkAsRead(ctx, n.ID); err != nil {
			httperr.Respond(c, httperr.Internal(err))
			return
		}
		n.IsRead = true
		c.JSON(http.StatusOK, n)
	}
}

// handleMarkAllAsRead は認証済みユーザーの全通知を既読にするハンドラ。
func (s *Server) handleMarkAllAsRead() gin.HandlerFunc {
	return func(c *gin.Context) {
		updated, err := s.store.MarkAllAsRead(c.Request.Context(), middleware.GetUserID(c))
		if err != nil {
			httperr.Respond(c, httperr.Internal(err))
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "All notifications marked as read", "updated": updated})
	}
}

// sendRequest は通知送信リクエストのJSON構造。
type sendRequest struct {
	// UserID は通知先のユーザーID。
	UserID string `json:"user_id" binding:"required"`
	// Title は通知のタイトル。
	Title string `json:"title" binding:"required"`
	// Message は通知メッセージ。
	Message string `json:"message" binding:"required"`
}

// handleSend は通知を直接作成するハンドラ。
func (s *Server) handleSend() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req sendRequest
		if err := httperr.Bind(c, &req); err != nil {
			httperr.Respond(c, err)
			return
		}

		n, err := s.create(c.Request.Context(), req.UserID, req.Title, req.Message)
		if err != nil {
			httperr.Respond(c, httperr.Internal(err))
			return
		}
		c.JSON(http.StatusCreated, n)
	}
}

// handleEvent はドメインイベントを受け取り、対応する通知を作成するハンドラ。
// 通知対象でないイベントは202で受け付けて何もしない。
func (s *Server) handleEvent() gin.HandlerFunc {
	return func(c *gin.Context) {
		var e event.Event
		if err := httperr.Bind(c, &e); err != nil {
			httperr.Respond(c, err)
			return
		}

		m, ok, err := render(&e)
		if err != nil {
			httperr.Respond(c, httperr.Validation("Invalid event data"))
			return
		}
		if !ok {
			log.Printf("[Notification] 通知対象外のイベントを無視: type=%s, id=%s", e.EventType, e.ID)
			c.JSON(http.StatusAccepted, gin.H{"message": "Event ignored"})
			return
		}
		if m.userID == "" {
			httperr.Respond(c, httperr.Validation("Event has no user_id"))
			return
		}

		n, err := s.create(c.Request.Context(), m.userID, m.title, m.body)
		if err != nil {
			httperr.Respond(c, httperr.Internal(err))
			return
		}
		log.Printf("[Notification] イベントから通知を作成: type=%s, aggregate_id=%s, user_id=%s", e.EventType, e.AggregateID, n.UserID)
		c.JSON(http.StatusCreated, n)
	}
}

// create は未読の通知を作成して保存する。
func (s *Server) create(ctx context.Context, userID, title, body string) (Notification, error) {
	n := Notification{
		ID:        uuid.New().String(),
		UserID:    userID,
		Title:     title,
		Message:   body,
		CreatedAt: s.now().UTC(),
	}
	if err := s.store.Create(ctx, n); err != nil {
		return Notification{}, err
	}
	return n, nil
}
