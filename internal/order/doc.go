// Package order は注文サービスを提供する。
//
// 注文はカートサービスから取得したカートの内容で作成し、SQLiteに保存する。
// 注文と明細は1つのトランザクションで書き込む。作成後に注文した明細をカートから削除する処理と
// イベント送信はベストエフォートで行い、失敗してもログに残すだけにする。
//
// ステータスは次の遷移のみ許可する。
//
//	pending -> paid | cancelled
//	paid    -> shipped | cancelled
//	shipped -> delivered
package order
