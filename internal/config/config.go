package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
)

// デフォルト値
const (
	DefaultHost = "127.0.0.1"
	DefaultPort = 3000
)

// 環境変数名
const (
	envPortOverride = "AISATSU_PORT" // アプリ固有のポート指定（PORTより優先）
	envPort         = "PORT"
	envHost         = "HOST"
	envDebug        = "DEBUG"
)

// supportedPorts は推奨ポートの一覧
// これ以外でも [1024,65535] の範囲なら警告付きでそのまま使用する
var supportedPorts = []int{3000, 8000, 8080}

// Config はアプリケーション全体の設定を保持する構造体
type Config struct {
	Server ServerConfig
}

// ServerConfig はHTTPサーバーの設定
type ServerConfig struct {
	Host  string // リッスンするホスト
	Port  int    // リッスンするポート番号
	Debug bool   // デバッグログの有効化
}

// Load は環境変数から設定を読み込む
// 環境変数が未設定の場合はデフォルト値を使用する
// 不正なポート指定はエラーにせず、警告を出してデフォルトにフォールバックする
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Host:  getEnvOrDefault(envHost, DefaultHost),
			Port:  resolvePort(),
			Debug: resolveDebug(),
		},
	}

	// 設定の検証
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("設定の検証に失敗: %w", err)
	}

	return cfg, nil
}

// resolvePort はポート番号を解決する
// 優先順位: AISATSU_PORT → PORT → デフォルト(3000)
func resolvePort() int {
	portStr := os.Getenv(envPortOverride)
	if portStr == "" {
		portStr = os.Getenv(envPort)
	}
	if portStr == "" {
		return DefaultPort
	}

	port, err := strconv.Atoi(portStr)
	if err != nil {
		log.Printf("警告: ポート指定 %q を数値として解釈できません。デフォルトポート %d を使用します", portStr, DefaultPort)
		return DefaultPort
	}

	// 特権ポートおよびポート番号の上限を超える指定は受け付けない
	if port < 1024 || port > 65535 {
		log.Printf("警告: ポート %d は有効範囲 (1024-65535) 外です。デフォルトポート %d を使用します", port, DefaultPort)
		return DefaultPort
	}

	if !isSupportedPort(port) {
		log.Printf("警告: ポート %d は推奨ポート %v に含まれていませんが、そのまま使用します", port, supportedPorts)
	}

	return port
}

// resolveDebug はデバッグフラグを解決する
// 未設定の場合は有効（教育用途のため詳細ログをデフォルトとする）
func resolveDebug() bool {
	value, ok := os.LookupEnv(envDebug)
	if !ok {
		return true
	}

	switch strings.ToLower(strings.TrimSpace(value)) {
	case "true", "1", "yes", "on", "enable", "enabled":
		return true
	default:
		return false
	}
}

// isSupportedPort はポートが推奨一覧に含まれるかを返す
func isSupportedPort(port int) bool {
	for _, p := range supportedPorts {
		if p == port {
			return true
		}
	}
	return false
}

// Validate は設定の妥当性を検証する
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Server.Host) == "" {
		return fmt.Errorf("ホストが空です")
	}
	if c.Server.Port < 1024 || c.Server.Port > 65535 {
		return fmt.Errorf("無効なポート番号: %d", c.Server.Port)
	}

	return nil
}

// ServerAddress はサーバーのリッスンアドレスを返す
func (c *Config) ServerAddress() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// getEnvOrDefault は環境変数を取得し、設定されていない場合はデフォルト値を返す
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
