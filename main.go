package main

import (
	"context"
	"log"

	"aisatsu/internal/config"
	"aisatsu/internal/server"
)

func main() {
	// 設定を読み込む
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("設定の読み込みに失敗しました: %v", err)
	}

	if cfg.Server.Debug {
		log.Printf("設定: host=%s port=%d debug=%v",
			cfg.Server.Host, cfg.Server.Port, cfg.Server.Debug)
	}

	// ネイティブ実装（生ソケット）のサーバーを作成
	srv := server.New(cfg)

	// コンテキストを作成
	ctx := context.Background()

	// サーバーを起動
	if err := srv.Start(ctx); err != nil {
		log.Fatalf("サーバーの起動に失敗しました: %v", err)
	}
}
