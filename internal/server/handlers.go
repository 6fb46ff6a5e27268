package server

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"time"
)

// handlerID はディスパッチ結果として選ばれるハンドラーの識別子
type handlerID int

const (
	handlerHello handlerID = iota
	handlerInfo
	handlerHealth
	handlerNotFound
)

// routes は固定のルーティングテーブル
// 完全一致かつ大文字小文字を区別する。ルート数が少ないため平坦なマップで十分
var routes = map[string]handlerID{
	"/hello":  handlerHello,
	"/":       handlerInfo,
	"/health": handlerHealth,
}

// dispatch はリクエストパスをハンドラー識別子に解決する純粋関数
func dispatch(path string) handlerID {
	if id, ok := routes[path]; ok {
		return id
	}
	return handlerNotFound
}

// HealthResponse はヘルスチェックエンドポイントのレスポンス
type HealthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

// infoBody はルートパスで返すエンドポイント一覧
const infoBody = `aisatsu - 教育用HTTPサーバー

利用可能なエンドポイント:
- GET /hello           "Hello world" を返します
- GET /hello?name=Ada  "Hello Ada" のように挨拶を返します
- GET /                このページ
- GET /health          ヘルスチェック (JSON)
`

// buildResponse はハンドラー識別子とクエリからレスポンスを構築する
// 1リクエストにつき必ず1つのレスポンスを返す
func buildResponse(id handlerID, path string, query url.Values) *Response {
	switch id {
	case handlerHello:
		return buildHello(query)
	case handlerInfo:
		return buildInfo()
	case handlerHealth:
		return buildHealth()
	case handlerNotFound:
		return buildNotFound(path)
	default:
		return buildServerError(fmt.Sprintf("未知のハンドラー: %d", id))
	}
}

// safeBuildResponse はbuildResponseのパニックを500レスポンスに変換する
// レスポンスを返せないままコネクションを終えることはあってはならない
func safeBuildResponse(id handlerID, path string, query url.Values) (resp *Response) {
	defer func() {
		if rec := recover(); rec != nil {
			log.Printf("レスポンス構築中にパニックが発生しました: %v", rec)
			resp = buildServerError("レスポンスの生成に失敗しました")
		}
	}()
	return buildResponse(id, path, query)
}

// buildHello は挨拶レスポンスを構築する
// nameクエリが複数指定された場合は1つ目の値を使用する
func buildHello(query url.Values) *Response {
	body := "Hello world"
	if name := query.Get("name"); name != "" {
		body = "Hello " + name
	}

	resp := newResponse(http.StatusOK)
	resp.SetBody("text/plain; charset=utf-8", []byte(body))
	return resp
}

// buildInfo はエンドポイント一覧レスポンスを構築する
func buildInfo() *Response {
	resp := newResponse(http.StatusOK)
	resp.SetBody("text/plain; charset=utf-8", []byte(infoBody))
	return resp
}

// buildHealth はヘルスチェックレスポンスを構築する
func buildHealth() *Response {
	payload := HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now(),
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return buildServerError("ヘルスチェックのエンコードに失敗しました")
	}

	resp := newResponse(http.StatusOK)
	resp.SetBody("application/json; charset=utf-8", body)
	return resp
}

// buildNotFound は未定義パスへの404レスポンスを構築する
func buildNotFound(path string) *Response {
	body := fmt.Sprintf(`404 - Not Found

パス %q はこのサーバーに存在しません。

利用可能なエンドポイント:
- GET /hello
- GET /
- GET /health
`, path)

	resp := newResponse(http.StatusNotFound)
	resp.SetBody("text/plain; charset=utf-8", []byte(body))
	return resp
}

// buildBadRequest は解析できなかったリクエストへの400レスポンスを構築する
func buildBadRequest() *Response {
	resp := newResponse(http.StatusBadRequest)
	resp.SetBody("text/plain; charset=utf-8", []byte("400 - Bad Request\n\nリクエストラインを解析できませんでした。\n"))
	return resp
}

// buildServerError は汎用の500レスポンスを構築する
func buildServerError(details string) *Response {
	body := fmt.Sprintf("500 - Internal Server Error\n\n%s\n", details)

	resp := newResponse(http.StatusInternalServerError)
	resp.SetBody("text/plain; charset=utf-8", []byte(body))
	return resp
}
