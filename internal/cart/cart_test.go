package cart

import (
	"testing"
	"time"
)

// TestRecalculate は合計と数量合計の計算を検証する。
func TestRecalculate(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)
	c := newCart("u1", now)
	c.setItem(Item{ProductID: "1", Price: 0.1, Quantity: 3})
	c.setItem(Item{ProductID: "2", Price: 19.999, Quantity: 1})
	c.recalculate(now.Add(time.Minute))

	if c.Items[0].Subtotal != 0.3 {
		t.Errorf("Items[0].Subtotal = %v, want 0.3", c.Items[0].Subtotal)
	}
	if c.Items[1].Subtotal != 20 {
		t.Errorf("Items[1].Subtotal = %v, want 20", c.Items[1].Subtotal)
	}
	if c.Total != 20.3 {
		t.Errorf("Total = %v, want 20.3", c.Total)
	}
	if c.ItemCount != 4 {
		t.Errorf("ItemCount = %d, want 4", c.ItemCount)
	}
	if !c.UpdatedAt.Equal(now.Add(time.Minute)) {
		t.Errorf("UpdatedAt = %v", c.UpdatedAt)
	}
}

// TestCartItems は明細の追加・置き換え・削除を検証する。
func TestCartItems(t *testing.T) {
	t.Parallel()

	c := newCart("u1", time.Now())
	c.setItem(Item{ProductID: "1", Quantity: 1})
	c.setItem(Item{ProductID: "2", Quantity: 2})
	c.setItem(Item{ProductID: "1", Quantity: 5})

	if len(c.Items) != 2 {
		t.Fatalf("明細数 = %d, want 2", len(c.Items))
	}
	if got := c.quantityOf("1"); got != 5 {
		t.Errorf("quantityOf(1) = %d, want 5", got)
	}
	if got := c.quantityOf("3"); got != 0 {
		t.Errorf("quantityOf(3) = %d, want 0", got)
	}
	if !c.removeItem("1") {
		t.Error("removeItem(1) = false, want true")
	}
	if c.removeItem("1") {
		t.Error("2回目のremoveItem(1) = true, want false")
	}
	if len(c.Items) != 1 || c.Items[0].ProductID != "2" {
		t.Errorf("Items = %+v", c.Items)
	}

	c.recalculate(time.Now())
	if c.Total != 0 || c.ItemCount != 2 {
		t.Errorf("Total/ItemCount = %v/%d, want 0/2", c.Total, c.ItemCount)
	}
}
