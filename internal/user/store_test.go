package user

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

// TestStore はユーザーの登録・取得・更新を検証する。
func TestStore(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := newTestStore(t)
	created := time.Date(2025, 4, 1, 9, 0, 0, 123, time.UTC)

	u := User{ID: "u-1", Email: "alice@example.com", Name: "Alice", PasswordHash: "hash", CreatedAt: created, UpdatedAt: created}
	if err := s.Create(ctx, u); err != nil {
		t.Fatalf("Create()でエラーが発生: %v", err)
	}

	t.Run("同じメールアドレスは登録できないこと", func(t *testing.T) {
		dup := u
		dup.ID = "u-2"
		if err := s.Create(ctx, dup); !errors.Is(err, ErrEmailTaken) {
			t.Errorf("err = %v, want ErrEmailTaken", err)
		}
	})

	t.Run("IDとメールアドレスで取得できること", func(t *testing.T) {
		byID, err := s.GetByID(ctx, "u-1")
		if err != nil {
			t.Fatalf("GetByID()でエラーが発生: %v", err)
		}
		if byID.Email != "alice@example.com" || byID.PasswordHash != "hash" || !byID.CreatedAt.Equal(created) {
			t.Errorf("user = %+v", byID)
		}

		byEmail, err := s.GetByEmail(ctx, "alice@example.com")
		if err != nil {
			t.Fatalf("GetByEmail()でエラーが発生: %v", err)
		}
		if byEmail.ID != "u-1" {
			t.Errorf("ID = %q, want %q", byEmail.ID, "u-1")
		}

		if _, err := s.GetByID(ctx, "missing"); !errors.Is(err, ErrNotFound) {
			t.Errorf("err = %v, want ErrNotFound", err)
		}
	})

	t.Run("表示名を更新できること", func(t *testing.T) {
		later := created.Add(time.Hour)
		if err := s.UpdateName(ctx, "u-1", "Alice B", later); err != nil {
			t.Fatalf("UpdateName()でエラーが発生: %v", err)
		}
		got, _ := s.GetByID(ctx, "u-1")
		if got.Name != "Alice B" || !got.UpdatedAt.Equal(later) || !got.CreatedAt.Equal(created) {
			t.Errorf("user = %+v", got)
		}

		if err := s.UpdateName(ctx, "missing", "x", later); !errors.Is(err, ErrNotFound) {
			t.Errorf("err = %v, want ErrNotFound", err)
		}
	})
}
