// Package user はユーザーの登録・ログイン・プロフィール管理を行うサービスを提供する。
//
// ユーザーはSQLiteに保存し、パスワードはbcryptでハッシュ化する。
// ログインは資格情報の検証のみを行い、トークンは発行しない。
// 登録時にはUserRegisteredイベントを通知サービスに送信する。
package user
