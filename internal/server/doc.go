// Package server は、挨拶を返す教育用HTTPサーバーを実装します。
//
// このパッケージは、同じエンドポイント群を2つの方式で提供します。
// ひとつは生のTCPソケット上でHTTPリクエストを手動で解析・応答する
// ネイティブ実装、もうひとつはGinのルーティングに委ねるフレームワーク
// 実装です。ルーティングとレスポンス生成のロジックは両者で共有します。
//
// 責務:
//   - リスニングソケットの確保とライフサイクル管理
//   - HTTPリクエストラインとヘッダーの手動解析（ネイティブ実装）
//   - パスからハンドラーへのディスパッチ
//   - HTTPレスポンスの構築と書き込み
//   - シグナルによるグレースフルシャットダウン
//
// 仕様:
//   - 1コネクション1リクエスト（Keep-Aliveは非対応）
//   - 受付ループは単一ワーカーで動作し、処理は同期的
//   - リクエスト読み込みにタイムアウトは設けない（既知の制限）
package server
