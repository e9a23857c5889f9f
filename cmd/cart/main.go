// カートサービスのエントリポイント。
// ユーザーごとのカートをRedis（未設定時はメモリ）に保存し、
// 商品サービスに在庫と価格を問い合わせる。
package main

import (
	"context"
	"log"

	"github.com/nao1215/minishop/internal/cart"
	"github.com/nao1215/minishop/pkg/httpclient"
)

func main() {
	cfg, err := cart.LoadConfig()
	if err != nil {
		log.Fatalf("カートサービスの設定読み込みに失敗: %v", err)
	}

	store, closeStore, err := cart.NewStore(context.Background(), cfg)
	if err != nil {
		log.Fatalf("カートストアの初期化に失敗: %v", err)
	}
	defer func() {
		if err := closeStore(); err != nil {
			log.Printf("カートストアのクローズに失敗: %v", err)
		}
	}()

	catalog := cart.NewProductClient(httpclient.NewWithTimeout(cfg.ProductServiceURL, cfg.ProductServiceTimeout))
	server := cart.NewServer(cfg.Port, store, catalog)

	log.Printf("カートサービスを起動します: :%s", cfg.Port)
	if err := server.Run(); err != nil {
		log.Fatalf("カートサービスの起動に失敗: %v", err)
	}
}
