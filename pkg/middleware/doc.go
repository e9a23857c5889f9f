// Package middleware はGinベースのHTTP APIで使用する共通ミドルウェアを提供する。
//
// JWT認証トークンの検証、X-User-IDヘッダーによるユーザー識別、リクエストログ、
// パニックリカバリ、CORS設定など、gatewayと各バックエンドサービスで共通して
// 使用するミドルウェアを含む。
package middleware
