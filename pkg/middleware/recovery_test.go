package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
)

// newRecoveryRouter はRecoveryを適用したテスト用ルーターを構築する。
func newRecoveryRouter() *gin.Engine {
	router := gin.New()
	router.Use(Recovery())
	router.GET("/cart", func(_ *gin.Context) {
		panic("cart store: connection refused user=u-1")
	})
	router.GET("/orders/count", func(_ *gin.Context) {
		panic(42)
	})
	router.POST("/orders", func(_ *gin.Context) {
		panic(http.ErrAbortHandler)
	})
	router.GET("/products", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/notifications", func(c *gin.Context) {
		c.String(http.StatusOK, "partial")
		panic("書き込み後のパニック")
	})
	return router
}

// TestRecovery はRecoveryミドルウェアを検証する。
func TestRecovery(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		method     string
		path       string
		wantStatus int
		wantError  string
	}{
		{
			name:       "文字列のパニックは汎用メッセージの500になること",
			method:     http.MethodGet,
			path:       "/cart",
			wantStatus: http.StatusInternalServerError,
			wantError:  "Internal server error",
		},
		{
			name:       "文字列以外のパニック値でも500になること",
			method:     http.MethodGet,
			path:       "/orders/count",
			wantStatus: http.StatusInternalServerError,
			wantError:  "Internal server error",
		},
		{
			name:       "error型のパニック値でも500になること",
			method:     http.MethodPost,
			path:       "/orders",
			wantStatus: http.StatusInternalServerError,
			wantError:  "Internal server error",
		},
		{
			name:       "パニックしない場合はハンドラのレスポンスが返ること",
			method:     http.MethodGet,
			path:       "/products",
			wantStatus: http.StatusOK,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			w := httptest.NewRecorder()
			newRecoveryRouter().ServeHTTP(w, httptest.NewRequest(tt.method, tt.path, nil))

			if w.Code != tt.wantStatus {
				t.Errorf("ステータスコード = %d, want %d", w.Code, tt.wantStatus)
			}
			if tt.wantError == "" {
				return
			}
			var body map[string]string
			if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
				t.Fatalf("レスポンスボディのパースに失敗: %v", err)
			}
			if body["error"] != tt.wantError {
				t.Errorf("error = %q, want %q", body["error"], tt.wantError)
			}
		})
	}

	t.Run("パニック値がレスポンスに含まれないこと", func(t *testing.T) {
		t.Parallel()

		w := httptest.NewRecorder()
		newRecoveryRouter().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/cart", nil))

		for _, leaked := range []string{"connection refused", "u-1", "panic"} {
			if strings.Contains(w.Body.String(), leaked) {
				t.Errorf("レスポンスに %q が含まれている: %s", leaked, w.Body.String())
			}
		}
	})

	t.Run("書き込み済みのレスポンスにはエラーを追記しないこと", func(t *testing.T) {
		t.Parallel()

		w := httptest.NewRecorder()
		newRecoveryRouter().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/notifications", nil))

		if w.Code != http.StatusOK {
			t.Errorf("ステータスコード = %d, want %d", w.Code, http.StatusOK)
		}
		if got := w.Body.String(); got != "partial" {
			t.Errorf("ボディ = %q, want %q", got, "partial")
		}
	})

	t.Run("パニック後もサーバーが次のリクエストを処理できること", func(t *testing.T) {
		t.Parallel()

		router := newRecoveryRouter()
		w1 := httptest.NewRecorder()
		router.ServeHTTP(w1, httptest.NewRequest(http.MethodGet, "/cart", nil))
		if w1.Code != http.StatusInternalServerError {
			t.Errorf("1回目のステータスコード = %d, want %d", w1.Code, http.StatusInternalServerError)
		}

		w2 := httptest.NewRecorder()
		router.ServeHTTP(w2, httptest.NewRequest(http.MethodGet, "/products", nil))
		if w2.Code != http.StatusOK {
			t.Errorf("2回目のステータスコード = %d, want %d", w2.Code, http.StatusOK)
		}
	})
}
