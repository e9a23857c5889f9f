package gateway

import (
	"log"
	"time"

	"github.com/nao1215/minishop/pkg/config"
)

// devJWTSecret はJWT_SECRET未設定時に使う開発用の秘密鍵。
const devJWTSecret = "dev-secret-key"

// Config はGatewayサービスの設定。
type Config struct {
	// Port はリッスンポート。
	Port string `mapstructure:"port" validate:"required"`
	// JWTSecret はトークン検証用の共有秘密鍵。
	JWTSecret string `mapstructure:"jwt_secret"`
	// UserServiceURL はユーザーサービスのベースURL。
	UserServiceURL string `mapstructure:"user_service_url" validate:"required,url"`
	// ProductServiceURL は商品サービスのベースURL。
	ProductServiceURL string `mapstructure:"product_service_url" validate:"required,url"`
	// ProxyTimeout は転送1回あたりのタイムアウト。
	ProxyTimeout time.Duration `mapstructure:"proxy_timeout" validate:"gt=0"`
	// CORSAllowedOrigins はCORSで許可するオリジン。"*" で全許可。
	CORSAllowedOrigins []string `mapstructure:"cors_allowed_origins"`
	// RoutesFile は追加のルーティングルールを定義するYAMLファイルのパス。
	RoutesFile string `mapstructure:"routes_file"`
}

// LoadConfig は環境変数からGatewayの設定を読み込む。
func LoadConfig() (Config, error) {
	var cfg Config
	err := config.Load(&cfg, map[string]any{
		"port":                 "3000",
		"jwt_secret":           "",
		"user_service_url":     "http://localhost:3001",
		"product_service_url":  "http://localhost:3002",
		"proxy_timeout":        "30s",
		"cors_allowed_origins": []string{"*"},
		"routes_file":          "",
	})
	if err != nil {
		return Config{}, err
	}

	if cfg.JWTSecret == "" {
		log.Printf("[Gateway] JWT_SECRETが未設定のため開発用の秘密鍵を使用します")
		cfg.JWTSecret = devJWTSecret
	}
	return cfg, nil
}
