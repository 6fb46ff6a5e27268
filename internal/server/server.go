package server

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"aisatsu/internal/config"

	"github.com/google/uuid"
)

// shutdownTimeout は処理中のリクエスト完了を待つ上限
const shutdownTimeout = 5 * time.Second

// Server は生のTCPソケット上でHTTPを話すサーバーを管理する構造体
type Server struct {
	config *config.Config

	mu       sync.Mutex // listenerの設定と参照を保護する
	listener net.Listener

	// 稼働統計。受付ループだけが更新し、ループ停止後に読み取る
	startedAt       time.Time
	requestsHandled int64

	loopDone chan struct{}
}

// Stats はサーバーの稼働統計
type Stats struct {
	StartedAt       time.Time
	RequestsHandled int64
}

// New は新しいServerインスタンスを作成する
func New(cfg *config.Config) *Server {
	return &Server{
		config:   cfg,
		loopDone: make(chan struct{}),
	}
}

// Start はサーバーを起動し、シグナルまたはコンテキストの終了を待つ
// バインドに失敗した場合（ポート使用中、ホスト解決不能など）は
// エラーを呼び出し元へそのまま伝播する
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.config.ServerAddress())
	if err != nil {
		return fmt.Errorf("アドレス %s のバインドに失敗: %w", s.config.ServerAddress(), err)
	}
	s.mu.Lock()
	s.listener = ln
	s.mu.Unlock()
	s.startedAt = time.Now()

	log.Printf("HTTPサーバーを起動しています: http://%s", ln.Addr())

	// 受付ループは専用ゴルーチンで実行し、
	// このゴルーチンはシャットダウン契機の監視に専念する
	go s.acceptLoop()

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
	}

	// グレースフルシャットダウン
	return s.Shutdown()
}

// Addr はバインド済みのリッスンアドレスを返す（起動前はnil）
// ポート0で起動した場合に実際のポートを知るために使う
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Stats は稼働統計を返す
// 受付ループの停止後に読み取ることを想定している
func (s *Server) Stats() Stats {
	return Stats{
		StartedAt:       s.startedAt,
		RequestsHandled: s.requestsHandled,
	}
}

// acceptLoop はコネクションを1つずつ受け付けて同期的に処理する
// 意図的に単一ワーカーで動作し、処理の多重化は行わない
func (s *Server) acceptLoop() {
	defer close(s.loopDone)

	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				// リスナーが閉じられた（シャットダウン中）
				return
			}
			log.Printf("コネクションの受付に失敗しました: %v", err)
			continue
		}

		s.requestsHandled++
		s.handleConn(conn)
	}
}

// handleConn は1つのコネクションを処理する
// 1件のリクエストを読み込み、ディスパッチし、1つのレスポンスを書き込んで閉じる
func (s *Server) handleConn(conn net.Conn) {
	defer func() {
		if err := conn.Close(); err != nil {
			log.Printf("コネクションのクローズに失敗しました: %v", err)
		}
	}()

	var connID string
	if s.config.Server.Debug {
		connID = uuid.New().String()
		log.Printf("[%s] コネクションを受け付けました: %s", connID, conn.RemoteAddr())
	}

	var resp *Response
	req, err := readRequest(conn)
	if err != nil {
		// 解析できないリクエストにも必ず有効なレスポンスを返す
		if s.config.Server.Debug {
			log.Printf("[%s] リクエストの解析に失敗しました: %v", connID, err)
		}
		resp = buildBadRequest()
	} else {
		resp = safeBuildResponse(dispatch(req.Path), req.Path, req.Query)
		if s.config.Server.Debug {
			log.Printf("[%s] %s %s -> %d", connID, req.Method, req.Path, resp.StatusCode)
		}
	}

	if err := resp.Write(conn); err != nil {
		log.Printf("レスポンスの書き込みに失敗しました: %v", err)
	}
}

// Shutdown は新規受付を止め、処理中のリクエスト完了を待ってから統計を報告する
func (s *Server) Shutdown() error {
	log.Println("サーバーをシャットダウンしています...")

	s.mu.Lock()
	ln := s.listener
	s.mu.Unlock()

	if ln != nil {
		if err := ln.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
			return fmt.Errorf("リスナーのクローズに失敗: %w", err)
		}
	}

	// 処理中のコネクションが終わるまで待つ
	select {
	case <-s.loopDone:
	case <-time.After(shutdownTimeout):
		log.Println("処理中のリクエストの完了待ちがタイムアウトしました")
	}

	stats := s.Stats()
	log.Printf("サーバーが正常にシャットダウンされました (稼働時間: %s, 処理リクエスト数: %d)",
		time.Since(stats.StartedAt).Round(time.Millisecond), stats.RequestsHandled)

	return nil
}
