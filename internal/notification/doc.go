// Package notification は通知サービスの内部実装を提供する。
//
// ユーザー登録や注文確定、注文ステータス変更のイベントを受け取り、
// ユーザーへの通知を生成・保存する。通知の一覧取得や既読管理も行う。
package notification
