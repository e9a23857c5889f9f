package order

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/nao1215/minishop/pkg/event"
	"github.com/nao1215/minishop/pkg/httpclient"
	"github.com/nao1215/minishop/pkg/httperr"
	"github.com/nao1215/minishop/pkg/metrics"
	"github.com/nao1215/minishop/pkg/middleware"
)

// serviceName はヘルスチェックで返すサービス名。
const serviceName = "order-service"

// sideEffectTimeout はカートのクリアとイベント送信のタイムアウト。
const sideEffectTimeout = 5 * time.Second

// Server は注文サービスのHTTPサーバー。
type Server struct {
	// router はGinのHTTPルーター。
	router *gin.Engine
	// port はサーバーのリッスンポート。
	port string
	// store は注文の保存先。
	store *Store
	// carts はカートサービス。
	carts Carts
	// publisher はドメインイベントの送信先。
	publisher event.Publisher
	// metrics はPrometheusメトリクス。
	metrics *metrics.HTTP
	// now は現在時刻を返す。
	now func() time.Time
}

// NewServer は新しい注文サーバーを生成する。
// SQLiteデータベースを開き、マイグレーションを適用する。
func NewServer(ctx context.Context, cfg Config) (*Server, error) {
	store, err := OpenStore(ctx, cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("注文ストアの初期化に失敗: %w", err)
	}
	carts := NewCartClient(httpclient.New(cfg.CartServiceURL))
	publisher := event.NewHTTPPublisher(httpclient.New(cfg.NotificationServiceURL))
	return newServer(cfg.Port, store, carts, publisher), nil
}

func newServer(port string, store *Store, carts Carts, publisher event.Publisher) *Server {
	m := metrics.NewHTTP("order")

	router := gin.New()
	router.Use(middleware.Recovery())
	router.Use(middleware.RequestLogger("Order"))
	router.Use(m.Middleware())

	s := &Server{
		router:    router,
		port:      port,
		store:     store,
		carts:     carts,
		publisher: publisher,
		metrics:   m,
		now:       time.Now,
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
	orders := s.router.Group("/orders")
	orders.Use(middleware.UserIdentity())
	{
		// カートから注文を作成
		orders.POST("", s.handleCreate())
		// 注文一覧
		orders.GET("", s.handleList())
		// 注文詳細
		orders.GET("/:id", s.handleGet())
		// ステータス変更
		orders.PUT("/:id/status", s.handleUpdateStatus())
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

// updateStatusRequest はステータス変更リクエストのJSON構造。
type updateStatusRequest struct {
	// Status は変更後のステータス。
	Status string `json:"status" binding:"required"`
}

// handleCreate はカートの内容から注文を作成する。
func (s *Server) handleCreate() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		userID := middleware.GetUserID(c)

		cart, err := s.carts.Cart(ctx, userID)
		if err != nil {
			log.Printf("[Order] カートの取得に失敗: user_id=%s, error=%v", userID, err)
			httperr.Respond(c, httperr.Upstream("Cart service unavailable", err))
			return
		}
		if len(cart.Items) == 0 {
			httperr.Respond(c, httperr.Validation("Cart is empty"))
			return
		}

		o := buildOrder(uuid.New().String(), userID, cart, s.now().UTC())
		if err := s.store.Create(ctx, o); err != nil {
			httperr.Respond(c, httperr.Internal(err))
			return
		}
		log.Printf("[Order] 注文を作成: id=%s, user_id=%s, total=%.2f", o.ID, userID, o.Total)

		bg, cancel := context.WithTimeout(context.WithoutCancel(ctx), sideEffectTimeout)
		defer cancel()
		if err := s.carts.RemoveItems(bg, userID, orderedProductIDs(o)); err != nil {
			log.Printf("[Order] 注文済み明細のカートからの削除に失敗: order_id=%s, error=%v", o.ID, err)
		}
		s.publish(bg, o.ID, event.TypeOrderPlaced, event.OrderPlacedData{
			UserID:    userID,
			Total:     o.Total,
			ItemCount: o.ItemCount,
		})

		c.JSON(http.StatusCreated, o)
	}
}

// handleList はユーザーの注文一覧を返す。
func (s *Server) handleList() gin.HandlerFunc {
	return func(c *gin.Context) {
		orders, err := s.store.ListByUser(c.Request.Context(), middleware.GetUserID(c))
		if err != nil {
			httperr.Respond(c, httperr.Internal(err))
			return
		}
		c.JSON(http.StatusOK, orders)
	}
}

// handleGet は注文詳細を返す。他のユーザーの注文は存在しないものとして扱う。
func (s *Server) handleGet() gin.HandlerFunc {
	return func(c *gin.Context) {
		o, err := s.ownedOrder(c)
		if err != nil {
			httperr.Respond(c, err)
			return
		}
		c.JSON(http.StatusOK, o)
	}
}

// handleUpdateStatus は注文ステータスを変更する。
func (s *Server) handleUpdateStatus() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req updateStatusRequest
		if err := httperr.Bind(c, &req); err != nil {
			httperr.Respond(c, err)
			return
		}
		next, ok := ParseStatus(req.Status)
		if !ok {
			httperr.Respond(c, httperr.Validation("Invalid status"))
			return
		}

		o, err := s.ownedOrder(c)
		if err != nil {
			httperr.Respond(c, err)
			return
		}
		if !o.Status.CanTransitionTo(next) {
			httperr.Respond(c, httperr.Validation("Invalid status transition"))
			return
		}

		ctx := c.Request.Context()
		now := s.now().UTC()
		if err := s.store.UpdateStatus(ctx, o.ID, o.Status, next, now); err != nil {
			if errors.Is(err, ErrStatusConflict) {
				httperr.Respond(c, httperr.Conflict("Order status was changed by another request"))
				return
			}
			httperr.Respond(c, httperr.Internal(err))
			return
		}
		log.Printf("[Order] ステータスを変更: id=%s, %s -> %s", o.ID, o.Status, next)

		bg, cancel := context.WithTimeout(context.WithoutCancel(ctx), sideEffectTimeout)
		defer cancel()
		s.publish(bg, o.ID, event.TypeOrderStatusChanged, event.OrderStatusChangedData{
			UserID: o.UserID,
			From:   string(o.Status),
			To:     string(next),
		})

		o.Status = next
		o.UpdatedAt = now
		c.JSON(http.StatusOK, o)
	}
}

// ownedOrder はパスの注文を取得し、リクエストしたユーザーの注文であることを確認する。
func (s *Server) ownedOrder(c *gin.Context) (Order, error) {
	o, err := s.store.Get(c.Request.Context(), c.Param("id"))
	if errors.Is(err, ErrNotFound) {
		return Order{}, httperr.NotFound("Order not found")
	}
	if err != nil {
		return Order{}, httperr.Internal(err)
	}
	if o.UserID != middleware.GetUserID(c) {
		return Order{}, httperr.NotFound("Order not found")
	}
	return o, nil
}

// publish はイベントを送信する。失敗してもリクエストは成功として扱う。
func (s *Server) publish(ctx context.Context, orderID string, eventType event.Type, data any) {
	e, err := event.New(orderID, eventType, data)
	if err != nil {
		log.Printf("[Order] イベントの生成に失敗: type=%s, error=%v", eventType, err)
		return
	}
	if err := s.publisher.Publish(ctx, e); err != nil {
		log.Printf("[Order] イベントの送信に失敗: %v", err)
	}
}

// buildOrder はカートの内容から注文を組み立てる。金額は注文側で計算し直す。
func buildOrder(id, userID string, cart CartSnapshot, now time.Time) Order {
	o := Order{
		ID:        id,
		UserID:    userID,
		Status:    StatusPending,
		Items:     make([]Item, 0, len(cart.Items)),
		CreatedAt: now,
		UpdatedAt: now,
	}
	var total float64
	for _, ci := range cart.Items {
		subtotal := roundCents(ci.Price * float64(ci.Quantity))
		o.Items = append(o.Items, Item{
			ProductID: ci.ProductID,
			Name:      ci.Name,
			Price:     ci.Price,
			Quantity:  ci.Quantity,
			Subtotal:  subtotal,
		})
		total += subtotal
		o.ItemCount += ci.Quantity
	}
	o.Total = roundCents(total)
	return o
}

// orderedProductIDs は注文に含まれる商品IDを返す。
func orderedProductIDs(o Order) []string {
	ids := make([]string, 0, len(o.Items))
	for _, it := range o.Items {
		ids = append(ids, it.ProductID)
	}
	return ids
}

func roundCents(v float64) float64 {
	return math.Round(v*100) / 100
}
