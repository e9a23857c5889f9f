// Package config は環境変数から各サービスの設定を読み込む。
//
// spf13/viperでデフォルト値と環境変数をマージし、構造体のmapstructureタグに
// 従ってデコードした後、validateタグで値を検証する。
package config

import (
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Load はdefaultsをデフォルト値として環境変数を読み込み、cfgにデコードする。
// キーは小文字のスネークケースで、対応する環境変数は大文字になる
// （例: "user_service_url" は USER_SERVICE_URL）。
// defaultsに無いキーは環境変数からも読み込まれない。
func Load(cfg any, defaults map[string]any) error {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.AutomaticEnv()

	if err := v.Unmarshal(cfg); err != nil {
		return fmt.Errorf("設定のデコードに失敗: %w", err)
	}
	if err := validator.New().Struct(cfg); err != nil {
		return fmt.Errorf("設定値が不正です: %w", err)
	}
	return nil
}
