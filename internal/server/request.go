package server

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"
)

// errMalformedRequest はリクエストラインが解析できなかったことを示す
var errMalformedRequest = errors.New("リクエストラインを解析できません")

// Request は1つのコネクションから読み取ったHTTPリクエストを表す
// ハンドラーの処理が完了したら破棄される
type Request struct {
	Method string
	Path   string
	Query  url.Values
}

// readRequest は接続から1件のHTTPリクエストを読み取る
// リクエストラインは「METHOD SP ターゲット SP HTTP/x.y」の形式のみ受理し、
// ヘッダーは空行まで読み進めるだけで内容は使用しない（単発GETのため）
func readRequest(r io.Reader) (*Request, error) {
	br := bufio.NewReader(r)

	line, err := br.ReadString('\n')
	if err != nil {
		return nil, fmt.Errorf("リクエストラインの読み込みに失敗: %w", err)
	}
	line = strings.TrimRight(line, "\r\n")

	parts := strings.Split(line, " ")
	if len(parts) != 3 {
		return nil, fmt.Errorf("%w: %q", errMalformedRequest, line)
	}

	method, target, version := parts[0], parts[1], parts[2]
	if method == "" || !strings.HasPrefix(target, "/") || !strings.HasPrefix(version, "HTTP/") {
		return nil, fmt.Errorf("%w: %q", errMalformedRequest, line)
	}

	// ヘッダー部を空行まで読み飛ばす
	// ヘッダー途中でEOFになっても、リクエストラインが読めていれば処理は続行する
	for {
		header, err := br.ReadString('\n')
		if err != nil || strings.TrimRight(header, "\r\n") == "" {
			break
		}
	}

	path, rawQuery, _ := strings.Cut(target, "?")

	return &Request{
		Method: method,
		Path:   path,
		Query:  parseQuery(rawQuery),
	}, nil
}

// parseQuery はクエリ文字列を解析する
// キーごとの値は出現順を保持する（同名キーの1つ目が優先される仕様のため）
// パーセントデコードに失敗した要素は元の文字列のまま扱う
func parseQuery(rawQuery string) url.Values {
	query := url.Values{}
	if rawQuery == "" {
		return query
	}

	for _, pair := range strings.Split(rawQuery, "&") {
		if pair == "" {
			continue
		}
		key, value, _ := strings.Cut(pair, "=")
		query.Add(unescapeOrRaw(key), unescapeOrRaw(value))
	}

	return query
}

// unescapeOrRaw はパーセントデコードを試み、失敗したら入力をそのまま返す
func unescapeOrRaw(s string) string {
	decoded, err := url.QueryUnescape(s)
	if err != nil {
		return s
	}
	return decoded
}
