package user

import (
	"github.com/nao1215/minishop/pkg/config"
	"golang.org/x/crypto/bcrypt"
)

// Config はユーザーサービスの設定。
type Config struct {
	// Port はリッスンポート。
	Port string `mapstructure:"port" validate:"required"`
	// DatabasePath はSQLiteデータベースのパス。
	DatabasePath string `mapstructure:"database_path" validate:"required"`
	// NotificationServiceURL はイベント送信先の通知サービスのベースURL。
	NotificationServiceURL string `mapstructure:"notification_service_url" validate:"required,url"`
	// BcryptCost はパスワードハッシュのコスト。
	BcryptCost int `mapstructure:"bcrypt_cost" validate:"min=4,max=31"`
}

// LoadConfig は環境変数からユーザーサービスの設定を読み込む。
func LoadConfig() (Config, error) {
	var cfg Config
	err := config.Load(&cfg, map[string]any{
		"port":                     "3001",
		"database_path":            "/data/users.db",
		"notification_service_url": "http://localhost:3005",
		"bcrypt_cost":              bcrypt.DefaultCost,
	})
	return cfg, err
}
