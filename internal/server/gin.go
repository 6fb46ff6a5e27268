package server

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"aisatsu/internal/config"

	"github.com/gin-gonic/gin"
)

// GinServer はGinのルーティングで同じエンドポイント群を提供するサーバー
// ネイティブ実装とはルーティング方式が異なるだけで、
// レスポンスの生成はdispatch/buildResponseを共有する
type GinServer struct {
	config     *config.Config
	engine     *gin.Engine
	httpServer *http.Server
}

// NewGin は新しいGinServerインスタンスを作成する
func NewGin(cfg *config.Config) *GinServer {
	if !cfg.Server.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	engine.Use(gin.Logger(), gin.Recovery())

	s := &GinServer{
		config: cfg,
		engine: engine,
		httpServer: &http.Server{
			Addr:    cfg.ServerAddress(),
			Handler: engine,
		},
	}

	s.setupRoutes()
	return s
}

// setupRoutes は宣言的なルーティングテーブルを構築する
// 登録するパスはネイティブ実装と同じ固定テーブルから導出する
func (s *GinServer) setupRoutes() {
	for path := range routes {
		s.engine.GET(path, s.handle)
	}

	// 未定義パスも共有ロジックの404に委ねる
	s.engine.NoRoute(s.handle)
}

// handle は共有のディスパッチとレスポンス構築へ委譲するアダプター
func (s *GinServer) handle(c *gin.Context) {
	path := c.Request.URL.Path
	resp := safeBuildResponse(dispatch(path), path, c.Request.URL.Query())

	// Content-TypeとContent-Lengthはnet/http側が扱うため、それ以外を引き継ぐ
	for _, h := range resp.headers {
		if strings.EqualFold(h.key, "Content-Type") || strings.EqualFold(h.key, "Content-Length") {
			continue
		}
		c.Header(h.key, h.value)
	}

	c.Data(resp.StatusCode, resp.Header("Content-Type"), resp.Body)
}

// Start はサーバーを起動し、シグナルまたはコンテキストの終了を待つ
func (s *GinServer) Start(ctx context.Context) error {
	// シャットダウン用のチャンネル
	shutdownCh := make(chan error, 1)

	// サーバーを別ゴルーチンで起動
	go func() {
		log.Printf("Gin HTTPサーバーを起動しています: %s", s.config.ServerAddress())
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			shutdownCh <- fmt.Errorf("サーバーの起動に失敗: %w", err)
		}
	}()

	// シグナルハンドリング
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	// コンテキストかシグナルを待つ
	select {
	case <-ctx.Done():
		log.Println("コンテキストがキャンセルされました")
	case sig := <-sigCh:
		log.Printf("シグナルを受信しました: %v", sig)
	case err := <-shutdownCh:
		return err
	}

	// グレースフルシャットダウン
	return s.Shutdown()
}

// Shutdown はサーバーをグレースフルにシャットダウンする
func (s *GinServer) Shutdown() error {
	log.Println("サーバーをシャットダウンしています...")

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("サーバーのシャットダウンに失敗: %w", err)
	}

	log.Println("サーバーが正常にシャットダウンされました")
	return nil
}
