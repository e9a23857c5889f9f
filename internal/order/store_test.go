package order

import (
	"context"
	"errors"
	"testing"
	"time"
)

// newTestStore はインメモリSQLiteのStoreを生成する。
func newTestStore(t *testing.T) *Store {
	t.Helper()

	s, err := OpenStore(context.Background(), ":memory:")
	if err != nil {
		t.Fatalf("OpenStore()でエラーが発生: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

// TestStore は注文の保存・取得・ステータス更新を検証する。
func TestStore(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := newTestStore(t)
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	first := buildOrder("o-1", "u-1", CartSnapshot{Items: []CartItem{
		{ProductID: "2", Name: "Keyboard", Price: 89.5, Quantity: 1},
		{ProductID: "1", Name: "Mouse", Price: 24.99, Quantity: 2},
	}}, base)
	second := buildOrder("o-2", "u-1", CartSnapshot{Items: []CartItem{
		{ProductID: "5", Name: "Mug", Price: 12, Quantity: 1},
	}}, base.Add(time.Hour))
	other := buildOrder("o-3", "u-2", CartSnapshot{Items: []CartItem{
		{ProductID: "5", Name: "Mug", Price: 12, Quantity: 3},
	}}, base)

	for _, o := range []Order{first, second, other} {
		if err := s.Create(ctx, o); err != nil {
			t.Fatalf("Create(%s)でエラーが発生: %v", o.ID, err)
		}
	}

	t.Run("明細を含めて取得できること", func(t *testing.T) {
		got, err := s.Get(ctx, "o-1")
		if err != nil {
			t.Fatalf("Get()でエラーが発生: %v", err)
		}
		if got.Total != 139.48 || got.ItemCount != 3 || got.Status != StatusPending {
			t.Errorf("order = %+v", got)
		}
		if len(got.Items) != 2 || got.Items[0].ProductID != "2" || got.Items[1].Subtotal != 49.98 {
			t.Errorf("items = %+v", got.Items)
		}
		if !got.CreatedAt.Equal(base) {
			t.Errorf("CreatedAt = %v, want %v", got.CreatedAt, base)
		}

		if _, err := s.Get(ctx, "missing"); !errors.Is(err, ErrNotFound) {
			t.Errorf("err = %v, want ErrNotFound", err)
		}
	})

	t.Run("ユーザーの注文を新しい順に返すこと", func(t *testing.T) {
		got, err := s.ListByUser(ctx, "u-1")
		if err != nil {
			t.Fatalf("ListByUser()でエラーが発生: %v", err)
		}
		if len(got) != 2 || got[0].ID != "o-2" || got[1].ID != "o-1" {
			t.Fatalf("orders = %+v", got)
		}
		if len(got[1].Items) != 2 {
			t.Errorf("明細が読み込まれていない: %+v", got[1])
		}

		none, err := s.ListByUser(ctx, "nobody")
		if err != nil {
			t.Fatalf("ListByUser()でエラーが発生: %v", err)
		}
		if none == nil || len(none) != 0 {
			t.Errorf("orders = %#v, want empty slice", none)
		}
	})

	t.Run("ステータスが一致する場合のみ更新されること", func(t *testing.T) {
		if err := s.UpdateStatus(ctx, "o-1", StatusPending, StatusPaid, base.Add(time.Minute)); err != nil {
			t.Fatalf("UpdateStatus()でエラーが発生: %v", err)
		}
		if err := s.UpdateStatus(ctx, "o-1", StatusPending, StatusCancelled, base.Add(time.Minute)); !errors.Is(err, ErrStatusConflict) {
			t.Errorf("err = %v, want ErrStatusConflict", err)
		}

		got, _ := s.Get(ctx, "o-1")
		if got.Status != StatusPaid || !got.UpdatedAt.Equal(base.Add(time.Minute)) {
			t.Errorf("order = %+v", got)
		}
	})
}

// TestBuildOrder は注文の組み立てを検証する。
func TestBuildOrder(t *testing.T) {
	t.Parallel()

	now := time.Now().UTC()
	o := buildOrder("id", "u", CartSnapshot{Items: []CartItem{
		{ProductID: "a", Price: 0.1, Quantity: 3},
		{ProductID: "b", Price: 0.2, Quantity: 1},
	}}, now)

	if o.Total != 0.5 {
		t.Errorf("Total = %v, want 0.5", o.Total)
	}
	if o.ItemCount != 4 {
		t.Errorf("ItemCount = %d, want 4", o.ItemCount)
	}
	if o.Status != StatusPending {
		t.Errorf("Status = %q, want %q", o.Status, StatusPending)
	}
}
