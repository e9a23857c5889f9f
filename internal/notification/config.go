package notification

import "github.com/nao1215/minishop/pkg/config"

// Config は通知サービスの設定。
type Config struct {
	// Port はリッスンポート。
	Port string `mapstructure:"port" validate:"required"`
	// DatabasePath はSQLiteデータベースのパス。
	DatabasePath string `mapstructure:"database_path" validate:"required"`
}

// LoadConfig は環境変数から通知サービスの設定を読み込む。
func LoadConfig() (Config, error) {
	var cfg Config
	err := config.Load(&cfg, map[string]any{
		"port":          "3005",
		"database_path": "/data/notifications.db",
	})
	return cfg, err
}
