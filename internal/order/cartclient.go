package order

import (
	"context"
	"fmt"
	"net/url"

	"github.com/nao1215/minishop/pkg/httpclient"
)

// CartItem はカートサービスが返す明細。
type CartItem struct {
	ProductID string  `json:"product_id"`
	Name      string  `json:"name"`
	Price     float64 `json:"price"`
	Quantity  int     `json:"quantity"`
}

// CartSnapshot は注文作成時点のカートの内容。
type CartSnapshot struct {
	// UserID は所有者のユーザーID。
	UserID string `json:"user_id"`
	// Items は明細の一覧。
	Items []CartItem `json:"items"`
}

// Carts はカートの取得元。
type Carts interface {
	// Cart はユーザーのカートを取得する。
	Cart(ctx context.Context, userID string) (CartSnapshot, error)
	// RemoveItems は注文した商品の明細だけをカートから削除する。
	RemoveItems(ctx context.Context, userID string, productIDs []string) error
}

// CartClient はカートサービスのHTTP APIを呼び出す。
type CartClient struct {
	client *httpclient.Client
}

// NewCartClient はCartClientを生成する。
func NewCartClient(client *httpclient.Client) *CartClient {
	return &CartClient{client: client}
}

// Cart はX-User-ID付きでGET /cartを呼び出す。
func (c *CartClient) Cart(ctx context.Context, userID string) (CartSnapshot, error) {
	var snap CartSnapshot
	if err := c.client.GetJSON(httpclient.WithUserID(ctx, userID), "/cart", &snap); err != nil {
		return CartSnapshot{}, fmt.Errorf("カートの取得に失敗: %w", err)
	}
	return snap, nil
}

// RemoveItems はX-User-ID付きでDELETE /cart/items/:productIdを明細ごとに呼び出す。
// 既にカートに無い明細(404)は削除済みとして扱う。
// カート全体を消さないので、取得後に追加された商品は残る。
func (c *CartClient) RemoveItems(ctx context.Context, userID string, productIDs []string) error {
	ctx = httpclient.WithUserID(ctx, userID)
	for _, id := range productIDs {
		err := c.client.Delete(ctx, "/cart/items/"+url.PathEscape(id))
		if err != nil && !httpclient.IsNotFound(err) {
			return fmt.Errorf("カート明細の削除に失敗: product_id=%s: %w", id, err)
		}
	}
	return nil
}
