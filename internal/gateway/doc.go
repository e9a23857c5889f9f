// Package gateway はAPI Gatewayサービスの内部実装を提供する。
//
// 外部からアクセス可能な唯一のサービスであり、パスとメソッドでルールを選び、
// 必要なルールでのみJWTを検証してから内部サービスへ転送する。
// レスポンスはステータス・ヘッダー・ボディをそのまま返す。
package gateway
