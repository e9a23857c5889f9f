package cart

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

// TestMemoryStore はインメモリストアの保存と有効期限を検証する。
func TestMemoryStore(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	current := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	s := NewMemoryStore(24 * time.Hour)
	s.now = func() time.Time { return current }

	if _, err := s.Get(ctx, "u1"); !errors.Is(err, ErrCartNotFound) {
		t.Fatalf("err = %v, want ErrCartNotFound", err)
	}

	cart := newCart("u1", current)
	cart.setItem(Item{ProductID: "1", Name: "Mouse", Price: 10, Quantity: 2})
	cart.recalculate(current)
	if err := s.Save(ctx, cart); err != nil {
		t.Fatalf("Save()でエラーが発生: %v", err)
	}

	got, err := s.Get(ctx, "u1")
	if err != nil {
		t.Fatalf("Get()でエラーが発生: %v", err)
	}
	if got.Total != 20 || len(got.Items) != 1 {
		t.Errorf("cart = %+v", got)
	}

	// 取得したカートを変更しても保存内容は変わらない
	got.Items[0].Quantity = 99
	again, _ := s.Get(ctx, "u1")
	if again.Items[0].Quantity != 2 {
		t.Errorf("保存内容が変更された: %+v", again.Items[0])
	}

	t.Run("書き込みで有効期限が延長されること", func(t *testing.T) {
		current = current.Add(23 * time.Hour)
		if err := s.Save(ctx, again); err != nil {
			t.Fatalf("Save()でエラーが発生: %v", err)
		}
		current = current.Add(23 * time.Hour)
		if _, err := s.Get(ctx, "u1"); err != nil {
			t.Fatalf("延長後のGet()でエラーが発生: %v", err)
		}
	})

	t.Run("有効期限を過ぎると取得できないこと", func(t *testing.T) {
		current = current.Add(time.Hour)
		if _, err := s.Get(ctx, "u1"); !errors.Is(err, ErrCartNotFound) {
			t.Errorf("err = %v, want ErrCartNotFound", err)
		}
	})

	t.Run("削除後は取得できないこと", func(t *testing.T) {
		if err := s.Save(ctx, newCart("u2", current)); err != nil {
			t.Fatalf("Save()でエラーが発生: %v", err)
		}
		if err := s.Delete(ctx, "u2"); err != nil {
			t.Fatalf("Delete()でエラーが発生: %v", err)
		}
		if _, err := s.Get(ctx, "u2"); !errors.Is(err, ErrCartNotFound) {
			t.Errorf("err = %v, want ErrCartNotFound", err)
		}
		if err := s.Delete(ctx, "missing"); err != nil {
			t.Errorf("存在しないカートのDelete()でエラーが発生: %v", err)
		}
	})
}

// TestRedisStore はRedisストアの保存と有効期限を検証する。
func TestRedisStore(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	s := NewRedisStore(client, 24*time.Hour)

	if _, err := s.Get(ctx, "u1"); !errors.Is(err, ErrCartNotFound) {
		t.Fatalf("err = %v, want ErrCartNotFound", err)
	}

	cart := newCart("u1", time.Now().UTC())
	cart.setItem(Item{ProductID: "3", Name: "Hub", Price: 39, Quantity: 1})
	cart.recalculate(time.Now().UTC())
	if err := s.Save(ctx, cart); err != nil {
		t.Fatalf("Save()でエラーが発生: %v", err)
	}

	if !mr.Exists("cart:u1") {
		t.Fatal("キー cart:u1 が保存されていない")
	}
	if ttl := mr.TTL("cart:u1"); ttl != 24*time.Hour {
		t.Errorf("TTL = %v, want 24h", ttl)
	}

	got, err := s.Get(ctx, "u1")
	if err != nil {
		t.Fatalf("Get()でエラーが発生: %v", err)
	}
	if got.Total != 39 || got.ItemCount != 1 || got.Items[0].Name != "Hub" {
		t.Errorf("cart = %+v", got)
	}

	mr.FastForward(25 * time.Hour)
	if _, err := s.Get(ctx, "u1"); !errors.Is(err, ErrCartNotFound) {
		t.Errorf("期限切れ後のerr = %v, want ErrCartNotFound", err)
	}

	if err := s.Save(ctx, cart); err != nil {
		t.Fatalf("Save()でエラーが発生: %v", err)
	}
	if err := s.Delete(ctx, "u1"); err != nil {
		t.Fatalf("Delete()でエラーが発生: %v", err)
	}
	if mr.Exists("cart:u1") {
		t.Error("削除後もキーが残っている")
	}
}

// TestRedisStoreCorruptValue は不正な保存値をエラーとして扱うことを検証する。
func TestRedisStoreCorruptValue(t *testing.T) {
	t.Parallel()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	if err := mr.Set("cart:broken", "{not json"); err != nil {
		t.Fatalf("テストデータの投入に失敗: %v", err)
	}

	_, err := NewRedisStore(client, time.Hour).Get(context.Background(), "broken")
	if err == nil || errors.Is(err, ErrCartNotFound) {
		t.Errorf("err = %v, want decode error", err)
	}
}

// TestNewStore は設定に応じたストアの選択を検証する。
func TestNewStore(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("REDIS_URLが空ならインメモリストアになること", func(t *testing.T) {
		t.Parallel()

		s, closeFn, err := NewStore(ctx, Config{CartTTL: time.Hour})
		if err != nil {
			t.Fatalf("NewStore()でエラーが発生: %v", err)
		}
		defer closeFn()
		if _, ok := s.(*MemoryStore); !ok {
			t.Errorf("store = %T, want *MemoryStore", s)
		}
	})

	t.Run("Redisに接続できればRedisストアになること", func(t *testing.T) {
		t.Parallel()

		mr := miniredis.RunT(t)
		s, closeFn, err := NewStore(ctx, Config{RedisURL: "redis://" + mr.Addr() + "/0", CartTTL: time.Hour})
		if err != nil {
			t.Fatalf("NewStore()でエラーが発生: %v", err)
		}
		defer closeFn()
		if _, ok := s.(*RedisStore); !ok {
			t.Errorf("store = %T, want *RedisStore", s)
		}
	})

	t.Run("Redisに接続できなければインメモリストアになること", func(t *testing.T) {
		t.Parallel()

		s, closeFn, err := NewStore(ctx, Config{RedisURL: "redis://127.0.0.1:1/0", CartTTL: time.Hour})
		if err != nil {
			t.Fatalf("NewStore()でエラーが発生: %v", err)
		}
		defer closeFn()
		if _, ok := s.(*MemoryStore); !ok {
			t.Errorf("store = %T, want *MemoryStore", s)
		}
	})

	t.Run("不正なREDIS_URLはエラーになること", func(t *testing.T) {
		t.Parallel()

		if _, _, err := NewStore(ctx, Config{RedisURL: "http://redis:6379", CartTTL: time.Hour}); err == nil {
			t.Error("NewStore()がエラーを返すべきだが、nilが返った")
		}
	})
}
