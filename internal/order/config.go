package order

import "github.com/nao1215/minishop/pkg/config"

// Config は注文サービスの設定。
type Config struct {
	// Port はリッスンポート。
	Port string `mapstructure:"port" validate:"required"`
	// DatabasePath はSQLiteデータベースのパス。
	DatabasePath string `mapstructure:"database_path" validate:"required"`
	// CartServiceURL はカートサービスのベースURL。
	CartServiceURL string `mapstructure:"cart_service_url" validate:"required,url"`
	// NotificationServiceURL はイベント送信先の通知サービスのベースURL。
	NotificationServiceURL string `mapstructure:"notification_service_url" validate:"required,url"`
}

// LoadConfig は環境変数から注文サービスの設定を読み込む。
func LoadConfig() (Config, error) {
	var cfg Config
	err := config.Load(&cfg, map[string]any{
		"port":                     "3004",
		"database_path":            "/data/orders.db",
		"cart_service_url":         "http://localhost:3003",
		"notification_service_url": "http://localhost:3005",
	})
	return cfg, err
}
