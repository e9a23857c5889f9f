package cart

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	"github.com/nao1215/minishop/pkg/httpclient"
)

var (
	// ErrProductNotFound は商品サービスが404を返したことを表す。
	ErrProductNotFound = errors.New("product not found")
	// ErrCatalogUnavailable は商品サービスに問い合わせできなかったことを表す。
	ErrCatalogUnavailable = errors.New("product service unavailable")
)

// ProductInfo はカートが必要とする商品情報。
type ProductInfo struct {
	// ID は商品ID。
	ID string `json:"id"`
	// Name は商品名。
	Name string `json:"name"`
	// Price は単価。
	Price float64 `json:"price"`
	// Stock は在庫数。
	Stock int `json:"stock"`
}

// Catalog は商品情報の取得元。
type Catalog interface {
	// Product は商品情報を取得する。
	Product(ctx context.Context, productID string) (ProductInfo, error)
}

// ProductClient は商品サービスのHTTP APIから商品情報を取得する。
type ProductClient struct {
	client *httpclient.Client
}

// NewProductClient はProductClientを生成する。
func NewProductClient(client *httpclient.Client) *ProductClient {
	return &ProductClient{client: client}
}

// Product はGET /products/:idを呼び出す。
func (p *ProductClient) Product(ctx context.Context, productID string) (ProductInfo, error) {
	var info ProductInfo
	err := p.client.GetJSON(ctx, "/products/"+url.PathEscape(productID), &info)
	if httpclient.IsNotFound(err) {
		return ProductInfo{}, ErrProductNotFound
	}
	if err != nil {
		return ProductInfo{}, fmt.Errorf("%w: %v", ErrCatalogUnavailable, err)
	}
	return info, nil
}
