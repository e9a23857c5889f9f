package product

import "github.com/nao1215/minishop/pkg/config"

// Config は商品サービスの設定。
type Config struct {
	// Port はリッスンポート。
	Port string `mapstructure:"port" validate:"required"`
	// SeedCatalog は起動時に初期カタログを投入するかどうか。
	SeedCatalog bool `mapstructure:"seed_catalog"`
}

// LoadConfig は環境変数から商品サービスの設定を読み込む。
func LoadConfig() (Config, error) {
	var cfg Config
	err := config.Load(&cfg, map[string]any{
		"port":         "3002",
		"seed_catalog": true,
	})
	return cfg, err
}
