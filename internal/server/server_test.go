package server

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"testing"
	"time"

	"aisatsu/internal/config"
)

// testConfig はテスト用の設定を作成する
func testConfig(port int) *config.Config {
	return &config.Config{
		Server: config.ServerConfig{
			Host:  "127.0.0.1",
			Port:  port,
			Debug: false,
		},
	}
}

// startTestServer はサーバーを起動してベースURLと停止関数を返す
func startTestServer(t *testing.T, port int) (*Server, string, context.CancelFunc, chan error) {
	t.Helper()

	srv := New(testConfig(port))

	ctx, cancel := context.WithCancel(context.Background())

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start(ctx)
	}()

	// サーバーが起動するまで少し待つ
	time.Sleep(100 * time.Millisecond)

	addr := srv.Addr()
	if addr == nil {
		cancel()
		t.Fatal("サーバーがバインドされていません")
	}

	return srv, fmt.Sprintf("http://%s", addr), cancel, errCh
}

// waitShutdown はサーバーの停止完了を待つ
func waitShutdown(t *testing.T, errCh chan error) {
	t.Helper()

	select {
	case err := <-errCh:
		if err != nil {
			t.Fatalf("サーバーの起動/停止でエラーが発生しました: %v", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("サーバーの停止がタイムアウトしました")
	}
}

// TestServerStartAndShutdown はサーバーの起動とシャットダウンをテストする
func TestServerStartAndShutdown(t *testing.T) {
	// ランダムポートを使用
	_, _, cancel, errCh := startTestServer(t, 0)

	// コンテキストをキャンセルしてサーバーを停止
	cancel()

	waitShutdown(t, errCh)
}

// TestServerEndpoints は各エンドポイントの応答をテストする
func TestServerEndpoints(t *testing.T) {
	_, baseURL, cancel, errCh := startTestServer(t, 0)
	defer cancel()

	testCases := []struct {
		name           string
		endpoint       string
		expectedStatus int
		expectedBody   string // 空文字列なら検証しない
	}{
		{"挨拶エンドポイント", "/hello", http.StatusOK, "Hello world"},
		{"名前付き挨拶", "/hello?name=Ada", http.StatusOK, "Hello Ada"},
		{"同名クエリは1つ目を使用", "/hello?name=Ada&name=Grace", http.StatusOK, "Hello Ada"},
		{"ルートエンドポイント", "/", http.StatusOK, ""},
		{"ヘルスチェックエンドポイント", "/health", http.StatusOK, ""},
		{"未定義パスは404", "/does-not-exist", http.StatusNotFound, ""},
		{"404の後も応答する", "/hello", http.StatusOK, "Hello world"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			resp, err := http.Get(baseURL + tc.endpoint)
			if err != nil {
				t.Fatalf("HTTPリクエストでエラーが発生しました: %v", err)
			}
			defer resp.Body.Close()

			body, err := io.ReadAll(resp.Body)
			if err != nil {
				t.Fatalf("ボディの読み込みに失敗しました: %v", err)
			}

			if resp.StatusCode != tc.expectedStatus {
				t.Errorf("予期しないステータスコード: got %d, want %d", resp.StatusCode, tc.expectedStatus)
			}
			if tc.expectedBody != "" && string(body) != tc.expectedBody {
				t.Errorf("ボディが一致しません: got %q, want %q", string(body), tc.expectedBody)
			}
		})
	}

	cancel()
	waitShutdown(t, errCh)
}

// TestServerHealthEndpoint はヘルスチェックのJSONレスポンスをテストする
func TestServerHealthEndpoint(t *testing.T) {
	_, baseURL, cancel, errCh := startTestServer(t, 0)
	defer cancel()

	resp, err := http.Get(baseURL + "/health")
	if err != nil {
		t.Fatalf("HTTPリクエストでエラーが発生しました: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("予期しないステータスコード: got %d, want %d", resp.StatusCode, http.StatusOK)
	}

	var payload HealthResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		t.Fatalf("ボディをJSONとして解析できません: %v", err)
	}
	if payload.Status != "healthy" {
		t.Errorf("statusフィールドが一致しません: got %q, want %q", payload.Status, "healthy")
	}

	cancel()
	waitShutdown(t, errCh)
}

// TestServerSupportedPorts は推奨ポートでの起動と応答をテストする
func TestServerSupportedPorts(t *testing.T) {
	for _, port := range []int{3000, 8000, 8080} {
		t.Run(fmt.Sprintf("port_%d", port), func(t *testing.T) {
			_, baseURL, cancel, errCh := startTestServer(t, port)
			defer cancel()

			resp, err := http.Get(baseURL + "/hello")
			if err != nil {
				t.Fatalf("HTTPリクエストでエラーが発生しました: %v", err)
			}
			defer resp.Body.Close()

			body, err := io.ReadAll(resp.Body)
			if err != nil {
				t.Fatalf("ボディの読み込みに失敗しました: %v", err)
			}

			if resp.StatusCode != http.StatusOK {
				t.Errorf("予期しないステータスコード: got %d, want %d", resp.StatusCode, http.StatusOK)
			}
			if string(body) != "Hello world" {
				t.Errorf("ボディが一致しません: got %q, want %q", string(body), "Hello world")
			}

			cancel()
			waitShutdown(t, errCh)
		})
	}
}

// TestServerMalformedRequest は解析できないリクエストへの400応答をテストする
func TestServerMalformedRequest(t *testing.T) {
	srv, _, cancel, errCh := startTestServer(t, 0)
	defer cancel()

	conn, err := net.Dial("tcp", srv.Addr().String())
	if err != nil {
		t.Fatalf("接続に失敗しました: %v", err)
	}
	defer conn.Close()

	if _, err := conn.Write([]byte("GARBAGE\r\n\r\n")); err != nil {
		t.Fatalf("リクエストの送信に失敗しました: %v", err)
	}

	raw, err := io.ReadAll(conn)
	if err != nil {
		t.Fatalf("レスポンスの読み込みに失敗しました: %v", err)
	}
	if got := string(raw); !strings.HasPrefix(got, "HTTP/1.1 400") {
		t.Errorf("400レスポンスが返っていません: %q", got)
	}

	cancel()
	waitShutdown(t, errCh)
}

// TestServerStats はリクエスト数の集計をテストする
func TestServerStats(t *testing.T) {
	srv, baseURL, cancel, errCh := startTestServer(t, 0)
	defer cancel()

	const requests = 3
	for i := 0; i < requests; i++ {
		resp, err := http.Get(baseURL + "/hello")
		if err != nil {
			t.Fatalf("HTTPリクエストでエラーが発生しました: %v", err)
		}
		_, _ = io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
	}

	cancel()
	waitShutdown(t, errCh)

	// 統計は受付ループ停止後に読み取る
	stats := srv.Stats()
	if stats.RequestsHandled < requests {
		t.Errorf("処理リクエスト数が不足しています: got %d, want >= %d", stats.RequestsHandled, requests)
	}
	if stats.StartedAt.IsZero() {
		t.Error("起動時刻が記録されていません")
	}
}

// TestServerPortInUse は使用中ポートへのバインド失敗が伝播することをテストする
func TestServerPortInUse(t *testing.T) {
	// 先にポートを確保しておく
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("リスナーの作成に失敗しました: %v", err)
	}
	defer ln.Close()

	port := ln.Addr().(*net.TCPAddr).Port
	srv := New(testConfig(port))

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := srv.Start(ctx); err == nil {
		t.Error("使用中ポートへのバインドがエラーになりませんでした")
	}
}
