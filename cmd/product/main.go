// 商品サービスのエントリポイント。
// メモリ上の商品カタログを提供する。再起動するとカタログは初期状態に戻る。
package main

import (
	"log"

	"github.com/nao1215/minishop/internal/product"
)

func main() {
	cfg, err := product.LoadConfig()
	if err != nil {
		log.Fatalf("商品サービスの設定読み込みに失敗: %v", err)
	}

	server := product.NewServer(cfg)

	log.Printf("商品サービスを起動します: :%s", cfg.Port)
	if err := server.Run(); err != nil {
		log.Fatalf("商品サービスの起動に失敗: %v", err)
	}
}
