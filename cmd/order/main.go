// 注文サービスのエントリポイント。
// カートの内容から注文を作成し、注文ステータスの遷移を管理する。
package main

import (
	"context"
	"log"

	"github.com/nao1215/minishop/internal/order"
)

func main() {
	cfg, err := order.LoadConfig()
	if err != nil {
		log.Fatalf("注文サービスの設定読み込みに失敗: %v", err)
	}

	server, err := order.NewServer(context.Background(), cfg)
	if err != nil {
		log.Fatalf("注文サーバーの初期化に失敗: %v", err)
	}
	defer server.Close()

	log.Printf("注文サービスを起動します: :%s", cfg.Port)
	if err := server.Run(); err != nil {
		log.Fatalf("注文サービスの起動に失敗: %v", err)
	}
}
