package cart

import (
	"time"

	"github.com/nao1215/minishop/pkg/config"
)

// Config はカートサービスの設定。
type Config struct {
	// Port はリッスンポート。
	Port string `mapstructure:"port" validate:"required"`
	// RedisURL はRedisの接続URL（例: redis://redis:6379/0）。空ならインメモリストアを使う。
	RedisURL string `mapstructure:"redis_url"`
	// ProductServiceURL は商品サービスのベースURL。
	ProductServiceURL string `mapstructure:"product_service_url" validate:"required,url"`
	// ProductServiceTimeout は商品サービス呼び出しのタイムアウト。
	ProductServiceTimeout time.Duration `mapstructure:"product_service_timeout" validate:"gt=0"`
	// CartTTL はカートの有効期限。書き込みのたびに延長される。
	CartTTL time.Duration `mapstructure:"cart_ttl" validate:"gt=0"`
}

// LoadConfig は環境変数からカートサービスの設定を読み込む。
func LoadConfig() (Config, error) {
	var cfg Config
	err := config.Load(&cfg, map[string]any{
		"port":                    "3003",
		"redis_url":               "",
		"product_service_url":     "http://localhost:3002",
		"product_service_timeout": "10s",
		"cart_ttl":                "24h",
	})
	return cfg, err
}
