package gateway

import (
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/nao1215/minishop/pkg/metrics"
	"github.com/nao1215/minishop/pkg/middleware"
)

// contextKeyRule は一致したルールをGinコンテキストに格納するためのキー。
const contextKeyRule = "gateway_rule"

// Server はAPI GatewayサービスのHTTPサーバー。
type Server struct {
	// router はGinのHTTPルーター。
	router *gin.Engine
	// port はサーバーのリッスンポート。
	port string
	// jwtSecret はJWT検証用の秘密鍵。
	jwtSecret string
	// routes はルーティングルールの一覧。
	routes *Table
	// proxy は内部サービスへの転送処理。
	proxy *proxy
	// metrics はPrometheusメトリクス。
	metrics *metrics.HTTP
}

// NewServer は新しいGatewayサーバーを生成する。
// 組み込みルールにROUTES_FILEのルールを加えたルーティングテーブルを構築する。
func NewServer(cfg Config) (*Server, error) {
	rules := DefaultRules(cfg.UserServiceURL, cfg.ProductServiceURL)
	if cfg.RoutesFile != "" {
		extra, err := LoadRulesFile(cfg.RoutesFile)
		if err != nil {
			return nil, err
		}
		rules = append(rules, extra...)
	}

	table, err := NewTable(rules)
	if err != nil {
		return nil, fmt.Errorf("ルーティングテーブルの構築に失敗: %w", err)
	}
	for _, r := range table.Rules() {
		log.Printf("[Gateway] ルート登録: name=%s, target=%s, auth=%t", r.Name, r.Target, r.RequireAuth)
	}

	m := metrics.NewHTTP("gateway")

	router := gin.New()
	router.Use(middleware.Recovery())
	router.Use(middleware.RequestLogger("Gateway"))
	router.Use(middleware.CORS(cfg.CORSAllowedOrigins))
	router.Use(m.Middleware())

	s := &Server{
		router:    router,
		port:      cfg.Port,
		jwtSecret: cfg.JWTSecret,
		routes:    table,
		proxy:     newProxy(cfg.ProxyTimeout, m),
		metrics:   m,
	}
	s.setupRoutes()

	return s, nil
}

// Run はHTTPサーバーを起動する。
func (s *Server) Run() error {
	return s.router.Run(fmt.Sprintf(":%s", s.port))
}

// setupRoutes はAPIルーティングを設定する。
// /healthと/metrics以外のリクエストはルール照合 → 認証 → 転送の順に処理する。
func (s *Server) setupRoutes() {
	s.router.GET("/health", s.handleHealth())
	s.router.GET("/metrics", s.metrics.Handler())

	s.router.NoRoute(s.matchRoute(), s.authGate(), s.forward())
}

// handleHealth はヘルスチェックのハンドラを返す。依存サービスの状態は確認しない。
func (s *Server) handleHealth() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "healthy",
			"service":   "api-gateway",
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		})
	}
}

// matchRoute はリクエストに一致するルールを探す。無ければ404で中断する。
func (s *Server) matchRoute() gin.HandlerFunc {
	return func(c *gin.Context) {
		rule := s.routes.Match(c.Request.Method, c.Request.URL.Path)
		if rule == nil {
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{
				"error": "Route not found",
				"path":  c.Request.URL.Path,
			})
			return
		}
		c.Set(contextKeyRule, rule)
		metrics.SetRoute(c, rule.Name)
	}
}

// authGate は認証必須のルールに対してのみJWTを検証する。
func (s *Server) authGate() gin.HandlerFunc {
	verify := middleware.JWTAuth(s.jwtSecret)
	return func(c *gin.Context) {
		if ruleFrom(c).RequireAuth {
			verify(c)
		}
	}
}

// forward は一致したルールの転送先にリクエストをプロキシする。
func (s *Server) forward() gin.HandlerFunc {
	return func(c *gin.Context) {
		s.proxy.forward(c, ruleFrom(c))
	}
}

// ruleFrom はmatchRouteが設定したルールを取り出す。
func ruleFrom(c *gin.Context) *Rule {
	v, _ := c.Get(contextKeyRule)
	rule, _ := v.(*Rule)
	return rule
}
