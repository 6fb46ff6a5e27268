package server

import (
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
)

// serverVersion はServerヘッダーに載せる識別子
const serverVersion = "aisatsu/1.0"

// headerField は1つのレスポンスヘッダー
// マップではなくスライスで持ち、書き込み時の順序を挿入順に保つ
type headerField struct {
	key   string
	value string
}

// Response はハンドラーが構築し、コネクションへ1回だけ書き込まれるHTTPレスポンス
type Response struct {
	StatusCode int
	headers    []headerField
	Body       []byte
}

// newResponse は指定ステータスのレスポンスを作成する
// Keep-Alive非対応のため、常にConnection: closeを宣言する
func newResponse(statusCode int) *Response {
	resp := &Response{StatusCode: statusCode}
	resp.SetHeader("Server", serverVersion)
	resp.SetHeader("Connection", "close")
	return resp
}

// SetHeader はヘッダーを設定する
// キーは大文字小文字を区別せずに照合し、既存なら位置を保ったまま置換する
func (r *Response) SetHeader(key, value string) {
	for i := range r.headers {
		if strings.EqualFold(r.headers[i].key, key) {
			r.headers[i].value = value
			return
		}
	}
	r.headers = append(r.headers, headerField{key: key, value: value})
}

// Header はヘッダー値を返す（未設定なら空文字列）
func (r *Response) Header(key string) string {
	for i := range r.headers {
		if strings.EqualFold(r.headers[i].key, key) {
			return r.headers[i].value
		}
	}
	return ""
}

// SetBody はボディとContent-Typeを設定する
func (r *Response) SetBody(contentType string, body []byte) {
	r.SetHeader("Content-Type", contentType)
	r.Body = body
}

// Write はレスポンス全体を書き込む
// ステータスラインは1コネクションにつき必ず1本だけ書き込まれる
func (r *Response) Write(w io.Writer) error {
	statusText := http.StatusText(r.StatusCode)
	if statusText == "" {
		statusText = "Unknown"
	}

	// ボディ長は書き込み直前に確定させる
	r.SetHeader("Content-Length", strconv.Itoa(len(r.Body)))

	if _, err := fmt.Fprintf(w, "HTTP/1.1 %d %s\r\n", r.StatusCode, statusText); err != nil {
		return fmt.Errorf("ステータスラインの書き込みに失敗: %w", err)
	}

	for _, h := range r.headers {
		if _, err := fmt.Fprintf(w, "%s: %s\r\n", h.key, h.value); err != nil {
			return fmt.Errorf("ヘッダーの書き込みに失敗: %w", err)
		}
	}

	if _, err := io.WriteString(w, "\r\n"); err != nil {
		return fmt.Errorf("ヘッダー終端の書き込みに失敗: %w", err)
	}

	if _, err := w.Write(r.Body); err != nil {
		return fmt.Errorf("ボディの書き込みに失敗: %w", err)
	}

	return nil
}
