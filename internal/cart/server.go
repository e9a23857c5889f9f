package cart

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/gin-gonic/gin"
	"github.com/nao1215/minishop/pkg/httperr"
	"github.com/nao1215/minishop/pkg/metrics"
	"github.com/nao1215/minishop/pkg/middleware"
)

// serviceName はヘルスチェックで返すサービス名。
const serviceName = "cart-service"

// lockStripes はユーザーロックの数。ユーザー数に関係なく一定。
const lockStripes = 256

// Server はカートサービスのHTTPサーバー。
type Server struct {
	// router はGinのHTTPルーター。
	router *gin.Engine
	// port はサーバーのリッスンポート。
	port string
	// store はカートの保存先。
	store Store
	// catalog は商品情報の取得元。
	catalog Catalog
	// metrics はPrometheusメトリクス。
	metrics *metrics.HTTP
	// locks はユーザーIDのハッシュで選ぶ固定数のロック。
	// 同じユーザーの読み込み・更新・保存を直列化する。
	locks [lockStripes]sync.Mutex
	// now は現在時刻を返す。
	now func() time.Time
}

// NewServer は新しいカートサーバーを生成する。
func NewServer(port string, store Store, catalog Catalog) *Server {
	m := metrics.NewHTTP("cart")

	router := gin.New()
	router.Use(middleware.Recovery())
	router.Use(middleware.RequestLogger("Cart"))
	router.Use(m.Middleware())

	s := &Server{
		router:  router,
		port:    port,
		store:   store,
		catalog: catalog,
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

// setupRoutes はAPIルーティングを設定する。
func (s *Server) setupRoutes() {
	cart := s.router.Group("/cart")
	cart.Use(middleware.UserIdentity())
	{
		// カート取得
		cart.GET("", s.handleGet())
		// カートクリア
		cart.DELETE("", s.handleClear())
		// 商品追加
		cart.POST("/items", s.handleAddItem())
		// 数量変更
		cart.PUT("/items/:productId", s.handleUpdateItem())
		// 商品削除
		cart.DELETE("/items/:productId", s.handleRemoveItem())
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

// addItemRequest は商品追加リクエストのJSON構造。
type addItemRequest struct {
	// ProductID は追加する商品のID。
	ProductID string `json:"product_id" binding:"required"`
	// Quantity は追加する数量。
	Quantity int `json:"quantity" binding:"required,gte=1"`
}

// updateItemRequest は数量変更リクエストのJSON構造。0は削除を意味する。
type updateItemRequest struct {
	// Quantity は変更後の数量。
	Quantity *int `json:"quantity" binding:"required,gte=0"`
}

// lockUser はユーザーのカート操作を排他する。返り値の関数で解放する。
func (s *Server) lockUser(userID string) func() {
	mu := s.lockFor(userID)
	mu.Lock()
	return mu.Unlock
}

// lockFor はユーザーIDに対応するロックを返す。別のユーザーが同じロックを共有することがある。
func (s *Server) lockFor(userID string) *sync.Mutex {
	return &s.locks[xxhash.Sum64String(userID)%lockStripes]
}

// loadCart は保存済みのカートを取得する。無ければ空のカートを返す。
func (s *Server) loadCart(c *gin.Context, userID string) (*Cart, error) {
	cart, err := s.store.Get(c.Request.Context(), userID)
	if errors.Is(err, ErrCartNotFound) {
		return newCart(userID, s.now().UTC()), nil
	}
	if err != nil {
		return nil, httperr.Internal(err)
	}
	return cart, nil
}

// lookupProduct は商品情報を取得し、エラーをHTTPエラーに変換する。
func (s *Server) lookupProduct(c *gin.Context, productID string) (ProductInfo, error) {
	info, err := s.catalog.Product(c.Request.Context(), productID)
	switch {
	case errors.Is(err, ErrProductNotFound):
		return ProductInfo{}, httperr.NotFound("Product not found")
	case err != nil:
		log.Printf("[Cart] 商品情報の取得に失敗: product_id=%s, error=%v", productID, err)
		return ProductInfo{}, httperr.Upstream("Product service unavailable", err)
	}
	return info, nil
}

// saveCart は合計を計算し直して保存する。
func (s *Server) saveCart(c *gin.Context, cart *Cart) error {
	cart.recalculate(s.now().UTC())
	if err := s.store.Save(c.Request.Context(), cart); err != nil {
		return httperr.Internal(err)
	}
	return nil
}

// handleGet はカートを返す。保存されていなければ空のカートを返す。
func (s *Server) handleGet() gin.HandlerFunc {
	return func(c *gin.Context) {
		cart, err := s.loadCart(c, middleware.GetUserID(c))
		if err != nil {
			httperr.Respond(c, err)
			return
		}
		c.JSON(http.StatusOK, cart)
	}
}

// handleAddItem は商品をカートに追加する。既にある商品は数量を加算する。
// 加算後の数量が在庫を超える場合は400を返し、カートは変更しない。
func (s *Server) handleAddItem() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := middleware.GetUserID(c)

		var req addItemRequest
		if err := httperr.Bind(c, &req); err != nil {
			httperr.Respond(c, err)
			return
		}

		product, err := s.lookupProduct(c, req.ProductID)
		if err != nil {
			httperr.Respond(c, err)
			return
		}

		unlock := s.lockUser(userID)
		defer unlock()

		cart, err := s.loadCart(c, userID)
		if err != nil {
			httperr.Respond(c, err)
			return
		}

		quantity := cart.quantityOf(req.ProductID) + req.Quantity
		if quantity > product.Stock {
			httperr.Respond(c, httperr.Validation("Insufficient stock"))
			return
		}

		cart.setItem(Item{
			ProductID: req.ProductID,
			Name:      product.Name,
			Price:     product.Price,
			Quantity:  quantity,
		})
		if err := s.saveCart(c, cart); err != nil {
			httperr.Respond(c, err)
			return
		}

		log.Printf("[Cart] 商品を追加: user_id=%s, product_id=%s, quantity=%d", userID, req.ProductID, quantity)
		c.JSON(http.StatusOK, cart)
	}
}

// handleUpdateItem は明細の数量を変更する。0の場合は明細を削除する。
func (s *Server) handleUpdateItem() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := middleware.GetUserID(c)
		productID := c.Param("productId")

		var req updateItemRequest
		if err := httperr.Bind(c, &req); err != nil {
			httperr.Respond(c, err)
			return
		}

		unlock := s.lockUser(userID)
		defer unlock()

		cart, err := s.loadCart(c, userID)
		if err != nil {
			httperr.Respond(c, err)
			return
		}
		i := cart.indexOf(productID)
		if i < 0 {
			httperr.Respond(c, httperr.NotFound("Item not found in cart"))
			return
		}

		if *req.Quantity == 0 {
			cart.removeItem(productID)
		} else {
			product, err := s.lookupProduct(c, productID)
			if err != nil {
				httperr.Respond(c, err)
				return
			}
			if *req.Quantity > product.Stock {
				httperr.Respond(c, httperr.Validation("Insufficient stock"))
				return
			}
			cart.setItem(Item{
				ProductID: productID,
				Name:      product.Name,
				Price:     product.Price,
				Quantity:  *req.Quantity,
			})
		}

		if err := s.saveCart(c, cart); err != nil {
			httperr.Respond(c, err)
			return
		}
		c.JSON(http.StatusOK, cart)
	}
}

// handleRemoveItem は明細を削除する。
func (s *Server) handleRemoveItem() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := middleware.GetUserID(c)
		productID := c.Param("productId")

		unlock := s.lockUser(userID)
		defer unlock()

		cart, err := s.loadCart(c, userID)
		if err != nil {
			httperr.Respond(c, err)
			return
		}
		if !cart.removeItem(productID) {
			httperr.Respond(c, httperr.NotFound("Item not found in cart"))
			return
		}

		if err := s.saveCart(c, cart); err != nil {
			httperr.Respond(c, err)
			return
		}
		c.JSON(http.StatusOK, cart)
	}
}

// handleClear はカートを空にする。
func (s *Server) handleClear() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := middleware.GetUserID(c)

		unlock := s.lockUser(userID)
		defer unlock()

		if err := s.store.Delete(c.Request.Context(), userID); err != nil {
			httperr.Respond(c, httperr.Internal(err))
			return
		}
		log.Printf("[Cart] カートをクリア: user_id=%s", userID)
		c.JSON(http.StatusOK, gin.H{"message": "Cart cleared"})
	}
}
