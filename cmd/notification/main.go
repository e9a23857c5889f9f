// 通知サービスのエントリポイント。
// 他サービスから送られるイベントを受け取り、ユーザーへの通知を生成・保存する。
package main

import (
	"context"
	"log"

	"github.com/nao1215/minishop/internal/notification"
)

func main() {
	cfg, err := notification.LoadConfig()
	if err != nil {
		log.Fatalf("通知サービスの設定読み込みに失敗: %v", err)
	}

	server, err := notification.NewServer(context.Background(), cfg)
	if err != nil {
		log.Fatalf("通知サーバーの初期化に失敗: %v", err)
	}
	defer server.Close()

	log.Printf("通知サービスを起動します: :%s", cfg.Port)
	if err := server.Run(); err != nil {
		log.Fatalf("通知サービスの起動に失敗: %v", err)
	}
}
