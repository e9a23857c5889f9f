package main

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/nao1215/minishop/pkg/middleware"
)

// TestRun はトークン発行CLIを検証する。
// t.Setenvを使うため並列実行しない。
func TestRun(t *testing.T) {
	t.Setenv("JWT_SECRET", "cli-test-secret")

	t.Run("秘密鍵で検証できるトークンを出力すること", func(t *testing.T) {
		var out bytes.Buffer
		if err := run([]string{"--user-id", "u-1", "--email", "alice@example.com", "--ttl", "1h"}, &out); err != nil {
			t.Fatalf("run()でエラーが発生: %v", err)
		}

		token := strings.TrimSpace(out.String())
		claims, err := middleware.VerifyBearer("cli-test-secret", "Bearer "+token)
		if err != nil {
			t.Fatalf("VerifyBearer()でエラーが発生: %v", err)
		}
		if claims.Identity() != "u-1" || claims.Email != "alice@example.com" {
			t.Errorf("claims = %+v", claims)
		}
		if ttl := time.Until(claims.ExpiresAt.Time); ttl > time.Hour || ttl < 59*time.Minute {
			t.Errorf("有効期限までの残り = %s, want 約1h", ttl)
		}
	})

	t.Run("別の秘密鍵では検証に失敗すること", func(t *testing.T) {
		var out bytes.Buffer
		if err := run([]string{"--user-id", "u-1"}, &out); err != nil {
			t.Fatalf("run()でエラーが発生: %v", err)
		}
		if _, err := middleware.VerifyBearer("other-secret", "Bearer "+strings.TrimSpace(out.String())); err == nil {
			t.Error("VerifyBearer()がエラーを返すべきだが、nilが返った")
		}
	})

	t.Run("user-idが無い場合はエラーになること", func(t *testing.T) {
		if err := run(nil, &bytes.Buffer{}); err == nil {
			t.Error("run()がエラーを返すべきだが、nilが返った")
		}
	})

	t.Run("ttlが0以下の場合はエラーになること", func(t *testing.T) {
		if err := run([]string{"--user-id", "u-1", "--ttl", "0s"}, &bytes.Buffer{}); err == nil {
			t.Error("run()がエラーを返すべきだが、nilが返った")
		}
	})
}
