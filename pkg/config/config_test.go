package config

import (
	"testing"
	"time"
)

// testConfig はテスト用の設定構造体。
type testConfig struct {
	Port       string        `mapstructure:"port" validate:"required"`
	ServiceURL string        `mapstructure:"minishop_test_service_url" validate:"required,url"`
	Timeout    time.Duration `mapstructure:"minishop_test_timeout" validate:"gt=0"`
	Origins    []string      `mapstructure:"minishop_test_origins"`
}

// testDefaults はtestConfigのデフォルト値。
func testDefaults() map[string]any {
	return map[string]any{
		"port":                      "3000",
		"minishop_test_service_url": "http://localhost:3001",
		"minishop_test_timeout":     "30s",
		"minishop_test_origins":     []string{"*"},
	}
}

// TestLoad は環境変数の読み込みを検証する。
// t.Setenvを使うため並列実行しない。
func TestLoad(t *testing.T) {
	t.Run("環境変数が無い場合はデフォルト値が使われること", func(t *testing.T) {
		var cfg testConfig
		if err := Load(&cfg, testDefaults()); err != nil {
			t.Fatalf("Load()でエラーが発生: %v", err)
		}
		if cfg.ServiceURL != "http://localhost:3001" {
			t.Errorf("ServiceURL = %q, want %q", cfg.ServiceURL, "http://localhost:3001")
		}
		if cfg.Timeout != 30*time.Second {
			t.Errorf("Timeout = %v, want 30s", cfg.Timeout)
		}
		if len(cfg.Origins) != 1 || cfg.Origins[0] != "*" {
			t.Errorf("Origins = %v, want [*]", cfg.Origins)
		}
	})

	t.Run("環境変数がデフォルト値より優先されること", func(t *testing.T) {
		t.Setenv("MINISHOP_TEST_SERVICE_URL", "http://users:9000")
		t.Setenv("MINISHOP_TEST_TIMEOUT", "5s")
		t.Setenv("MINISHOP_TEST_ORIGINS", "http://a.example,http://b.example")

		var cfg testConfig
		if err := Load(&cfg, testDefaults()); err != nil {
			t.Fatalf("Load()でエラーが発生: %v", err)
		}
		if cfg.ServiceURL != "http://users:9000" {
			t.Errorf("ServiceURL = %q, want %q", cfg.ServiceURL, "http://users:9000")
		}
		if cfg.Timeout != 5*time.Second {
			t.Errorf("Timeout = %v, want 5s", cfg.Timeout)
		}
		if len(cfg.Origins) != 2 || cfg.Origins[1] != "http://b.example" {
			t.Errorf("Origins = %v, want 2 origins", cfg.Origins)
		}
	})

	t.Run("検証に失敗した場合はエラーを返すこと", func(t *testing.T) {
		t.Setenv("MINISHOP_TEST_SERVICE_URL", "not a url")

		var cfg testConfig
		if err := Load(&cfg, testDefaults()); err == nil {
			t.Fatal("不正なURLでエラーが返るべき")
		}
	})
}
