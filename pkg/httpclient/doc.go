// Package httpclient はサービス間のHTTP通信を行うクライアントを提供する。
//
// カートサービスから商品サービスへの在庫・価格の問い合わせ、注文サービスから
// カートサービスや通知サービスへの呼び出しなど、サービス間の通信パターンを統一する。
// 2xx以外の応答は*StatusErrorとして返す。
package httpclient
