package product

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/nao1215/minishop/pkg/httperr"
	"github.com/nao1215/minishop/pkg/metrics"
	"github.com/nao1215/minishop/pkg/middleware"
)

// serviceName はヘルスチェックで返すサービス名。
const serviceName = "product-service"

// Server は商品サービスのHTTPサーバー。
type Server struct {
	// router はGinのHTTPルーター。
	router *gin.Engine
	// port はサーバーのリッスンポート。
	port string
	// store は商品カタログ。
	store *Store
	// metrics はPrometheusメトリクス。
	metrics *metrics.HTTP
}

// NewServer は新しい商品サーバーを生成する。
func NewServer(cfg Config) *Server {
	var seed []Product
	if cfg.SeedCatalog {
		seed = DefaultCatalog()
	}
	store := NewStore(seed)
	log.Printf("[Product] 初期カタログを投入: %d件", len(seed))

	m := metrics.NewHTTP("product")

	router := gin.New()
	router.Use(middleware.Recovery())
	router.Use(middleware.RequestLogger("Product"))
	router.Use(m.Middleware())

	s := &Server{
		router:  router,
		port:    cfg.Port,
		store:   store,
		metrics: m,
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
	products := s.router.Group("/products")
	{
		products.GET("", s.handleList())
		products.GET("/:id", s.handleGet())
		products.POST("", s.handleCreate())
		products.PUT("/:id", s.handleUpdate())
		products.DELETE("/:id", s.handleDelete())
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

// createProductRequest は商品作成リクエストのJSON構造。
type createProductRequest struct {
	// Name は商品名。
	Name string `json:"name" binding:"required"`
	// Description は商品の説明。
	Description string `json:"description"`
	// Price は単価。0より大きい必要がある。
	Price float64 `json:"price" binding:"required,gt=0"`
	// Stock は在庫数。0を許すためポインタにしている。
	Stock *int `json:"stock" binding:"required,gte=0"`
	// Category はカテゴリ。
	Category string `json:"category"`
}

// updateProductRequest は商品更新リクエストのJSON構造。省略したフィールドは変更しない。
type updateProductRequest struct {
	Name        *string  `json:"name" binding:"omitempty,min=1"`
	Description *string  `json:"description"`
	Price       *float64 `json:"price" binding:"omitempty,gt=0"`
	Stock       *int     `json:"stock" binding:"omitempty,gte=0"`
	Category    *string  `json:"category"`
}

// handleList は商品一覧を返す。categoryとsearchで絞り込める。
func (s *Server) handleList() gin.HandlerFunc {
	return func(c *gin.Context) {
		products := s.store.List(Filter{
			Category: c.Query("category"),
			Search:   c.Query("search"),
		})
		c.JSON(http.StatusOK, products)
	}
}

// handleGet は商品詳細を返す。
func (s *Server) handleGet() gin.HandlerFunc {
	return func(c *gin.Context) {
		p, err := s.store.Get(c.Param("id"))
		if err != nil {
			httperr.Respond(c, mapStoreError(err))
			return
		}
		c.JSON(http.StatusOK, p)
	}
}

// handleCreate は商品を登録する。
func (s *Server) handleCreate() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req createProductRequest
		if err := httperr.Bind(c, &req); err != nil {
			httperr.Respond(c, err)
			return
		}

		p := s.store.Create(Product{
			Name:        req.Name,
			Description: req.Description,
			Price:       req.Price,
			Stock:       *req.Stock,
			Category:    req.Category,
		})
		log.Printf("[Product] 商品を登録: id=%s, name=%s", p.ID, p.Name)
		c.JSON(http.StatusCreated, p)
	}
}

// handleUpdate は商品を部分更新する。
func (s *Server) handleUpdate() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req updateProductRequest
		if err := httperr.Bind(c, &req); err != nil {
			httperr.Respond(c, err)
			return
		}

		p, err := s.store.Update(c.Param("id"), Patch{
			Name:        req.Name,
			Description: req.Description,
			Price:       req.Price,
			Stock:       req.Stock,
			Category:    req.Category,
		})
		if err != nil {
			httperr.Respond(c, mapStoreError(err))
			return
		}
		c.JSON(http.StatusOK, p)
	}
}

// handleDelete は商品を削除する。
func (s *Server) handleDelete() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.Param("id")
		if err := s.store.Delete(id); err != nil {
			httperr.Respond(c, mapStoreError(err))
			return
		}
		log.Printf("[Product] 商品を削除: id=%s", id)
		c.JSON(http.StatusOK, gin.H{"message": "Product deleted"})
	}
}

// mapStoreError はStoreのエラーをHTTPエラーに変換する。
func mapStoreError(err error) error {
	if errors.Is(err, ErrNotFound) {
		return httperr.NotFound("Product not found")
	}
	return httperr.Internal(err)
}
