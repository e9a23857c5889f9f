package cart

import (
	"math"
	"slices"
	"time"
)

// Item はカート内の1商品分の明細。
type Item struct {
	// ProductID は商品ID。
	ProductID string `json:"product_id"`
	// Name は追加時点の商品名。
	Name string `json:"name"`
	// Price は追加・更新時点の単価。
	Price float64 `json:"price"`
	// Quantity は数量。
	Quantity int `json:"quantity"`
	// Subtotal は単価×数量。
	Subtotal float64 `json:"subtotal"`
}

// Cart はユーザーのショッピングカート。
type Cart struct {
	// UserID は所有者のユーザーID。
	UserID string `json:"user_id"`
	// Items は明細の一覧。追加順に並ぶ。
	Items []Item `json:"items"`
	// Total は合計金額（セント単位で丸める）。
	Total float64 `json:"total"`
	// ItemCount は数量の合計。
	ItemCount int `json:"item_count"`
	// UpdatedAt は最終更新日時。
	UpdatedAt time.Time `json:"updated_at"`
}

// newCart は空のカートを生成する。
func newCart(userID string, now time.Time) *Cart {
	return &Cart{
		UserID:    userID,
		Items:     []Item{},
		UpdatedAt: now,
	}
}

// indexOf は商品IDの明細位置を返す。無ければ-1。
func (c *Cart) indexOf(productID string) int {
	return slices.IndexFunc(c.Items, func(it Item) bool {
		return it.ProductID == productID
	})
}

// quantityOf は商品IDの現在の数量を返す。
func (c *Cart) quantityOf(productID string) int {
	if i := c.indexOf(productID); i >= 0 {
		return c.Items[i].Quantity
	}
	return 0
}

// setItem は明細を追加または置き換える。
func (c *Cart) setItem(it Item) {
	if i := c.indexOf(it.ProductID); i >= 0 {
		c.Items[i] = it
		return
	}
	c.Items = append(c.Items, it)
}

// removeItem は明細を削除する。削除した場合trueを返す。
func (c *Cart) removeItem(productID string) bool {
	i := c.indexOf(productID)
	if i < 0 {
		return false
	}
	c.Items = slices.Delete(c.Items, i, i+1)
	return true
}

// recalculate は小計・合計・数量合計を計算し直す。
func (c *Cart) recalculate(now time.Time) {
	var total float64
	count := 0
	for i := range c.Items {
		c.Items[i].Subtotal = roundCents(c.Items[i].Price * float64(c.Items[i].Quantity))
		total += c.Items[i].Subtotal
		count += c.Items[i].Quantity
	}
	c.Total = roundCents(total)
	c.ItemCount = count
	c.UpdatedAt = now
}

// roundCents は金額を小数点以下2桁に丸める。
func roundCents(v float64) float64 {
	return math.Round(v*100) / 100
}
