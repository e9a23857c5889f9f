// Package cart はユーザーごとのショッピングカートサービスを提供する。
//
// カートはユーザーIDをキーにJSONで保存し、書き込みのたびに有効期限を更新する。
// REDIS_URLが設定されていればRedis、無ければプロセス内のストアを使う。
// 商品の価格と在庫は追加・更新のたびに商品サービスから取得する。
package cart
