// Package main はGinルーティング版サーバーコマンドの実装です
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"aisatsu/internal/config"
	"aisatsu/internal/server"
)

func main() {
	// コマンドラインオプション
	var (
		host  = flag.String("host", "", "サーバーのホスト (デフォルト: 127.0.0.1)")
		port  = flag.Int("port", 0, "サーバーのポート (デフォルト: 3000)")
		debug = flag.Bool("debug", false, "デバッグログを有効にする")
		help  = flag.Bool("help", false, "ヘルプを表示")
	)

	flag.Parse()

	// ヘルプ表示
	if *help {
		fmt.Println("aisatsu (Ginルーティング版)")
		fmt.Println()
		fmt.Println("使用方法:")
		fmt.Println("  server [オプション]")
		fmt.Println()
		fmt.Println("オプション:")
		flag.PrintDefaults()
		os.Exit(0)
	}

	// 設定を読み込む
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("設定の読み込みに失敗しました: %v", err)
	}

	// コマンドラインオプションで設定を上書き
	if *host != "" {
		cfg.Server.Host = *host
	}
	if *port != 0 {
		cfg.Server.Port = *port
	}
	if *debug {
		cfg.Server.Debug = true
	}

	// 上書き後の設定を再検証する
	if err := cfg.Validate(); err != nil {
		log.Fatalf("設定が不正です: %v", err)
	}

	// Ginサーバーを作成
	srv := server.NewGin(cfg)

	// コンテキストを作成
	ctx := context.Background()

	// サーバーを起動
	log.Printf("aisatsu サーバーを起動します: %s", cfg.ServerAddress())
	if err := srv.Start(ctx); err != nil {
		log.Fatalf("サーバーの起動に失敗しました: %v", err)
	}
}
