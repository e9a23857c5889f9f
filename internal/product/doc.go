// Package product は商品カタログサービスを提供する。
//
// 商品はプロセス内のStoreが所有し、sync.RWMutexで保護する。
// 参照は並行に行え、作成・更新・削除は排他的に行う。
// 永続化はせず、起動時に初期カタログを投入する。
package product
