// Package httperr はサービス共通のエラー分類とHTTPレスポンスへの変換を提供する。
//
// ハンドラはドメインエラーを*Errorとして返し、Respondがステータスコードと
// {"error": "..."} 形式のボディに変換する。分類されていないエラーは
// サーバー側でログに記録し、内部情報を含まない500として返す。
package httperr
