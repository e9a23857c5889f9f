package user

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/nao1215/minishop/pkg/event"
	"golang.org/x/crypto/bcrypt"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// recordingPublisher は送信されたイベントを記録する。
type recordingPublisher struct {
	mu     sync.Mutex
	events []*event.Event
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, e *event.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return p.err
}

func (p *recordingPublisher) published() []*event.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]*event.Event(nil), p.events...)
}

// newTestServer はインメモリSQLiteを使うテスト用サーバーを生成する。
func newTestServer(t *testing.T) (*Server, *recordingPublisher) {
	t.Helper()

	pub := &recordingPublisher{}
	return newServer("0", newTestStore(t), pub, bcrypt.MinCost), pub
}

func doRequest(s *Server, method, path, userID, body string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	if userID != "" {
		req.Header.Set("X-User-ID", userID)
	}
	s.router.ServeHTTP(w, req)
	return w
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()

	var body map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("レスポンスのパースに失敗: %v", err)
	}
	return body["error"]
}

// register はテスト用にユーザーを登録してIDを返す。
func register(t *testing.T, s *Server, email string) string {
	t.Helper()

	w := doRequest(s, http.MethodPost, "/register", "", `{"email":"`+email+`","password":"password123","name":"Test User"}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("登録のステータスコード = %d, want %d, body = %s", w.Code, http.StatusCreated, w.Body.String())
	}
	var u map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &u); err != nil {
		t.Fatalf("レスポンスのパースに失敗: %v", err)
	}
	return u["id"].(string)
}

// TestHandleRegister はユーザー登録を検証する。
func TestHandleRegister(t *testing.T) {
	t.Parallel()

	t.Run("登録に成功しパスワードハッシュを返さないこと", func(t *testing.T) {
		t.Parallel()

		s, pub := newTestServer(t)
		w := doRequest(s, http.MethodPost, "/register", "", `{"email":"Alice@Example.com","password":"password123","name":"Alice"}`)
		if w.Code != http.StatusCreated {
			t.Fatalf("ステータスコード = %d, want %d, body = %s", w.Code, http.StatusCreated, w.Body.String())
		}
		body := w.Body.String()
		if strings.Contains(body, "password") || strings.Contains(body, "$2a$") {
			t.Errorf("レスポンスにパスワード情報が含まれる: %s", body)
		}

		var u User
		if err := json.Unmarshal(w.Body.Bytes(), &u); err != nil {
			t.Fatalf("レスポンスのパースに失敗: %v", err)
		}
		if u.ID == "" || u.Email != "alice@example.com" || u.Name != "Alice" {
			t.Errorf("user = %+v", u)
		}

		events := pub.published()
		if len(events) != 1 {
			t.Fatalf("イベント数 = %d, want 1", len(events))
		}
		if events[0].EventType != event.TypeUserRegistered || events[0].AggregateID != u.ID {
			t.Errorf("event = %+v", events[0])
		}
		data, err := event.DecodeData[event.UserRegisteredData](events[0])
		if err != nil {
			t.Fatalf("DecodeData()でエラーが発生: %v", err)
		}
		if data.UserID != u.ID || data.Email != "alice@example.com" {
			t.Errorf("data = %+v", data)
		}
	})

	t.Run("重複したメールアドレスは409を返すこと", func(t *testing.T) {
		t.Parallel()

		s, _ := newTestServer(t)
		register(t, s, "bob@example.com")

		w := doRequest(s, http.MethodPost, "/register", "", `{"email":"BOB@example.com","password":"password123","name":"Bob"}`)
		if w.Code != http.StatusConflict {
			t.Fatalf("ステータスコード = %d, want %d", w.Code, http.StatusConflict)
		}
		if got := decodeError(t, w); got != "User already exists" {
			t.Errorf("error = %q, want %q", got, "User already exists")
		}
	})

	t.Run("イベント送信に失敗しても登録は成功すること", func(t *testing.T) {
		t.Parallel()

		s, pub := newTestServer(t)
		pub.err = errors.New("notification down")

		w := doRequest(s, http.MethodPost, "/register", "", `{"email":"carol@example.com","password":"password123","name":"Carol"}`)
		if w.Code != http.StatusCreated {
			t.Fatalf("ステータスコード = %d, want %d", w.Code, http.StatusCreated)
		}
	})

	tests := []struct {
		name string
		body string
	}{
		{name: "メールアドレスの形式が不正", body: `{"email":"not-an-email","password":"password123","name":"x"}`},
		{name: "パスワードが短い", body: `{"email":"a@example.com","password":"short","name":"x"}`},
		{name: "名前が無い", body: `{"email":"a@example.com","password":"password123"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name+"場合は400を返すこと", func(t *testing.T) {
			t.Parallel()

			s, _ := newTestServer(t)
			w := doRequest(s, http.MethodPost, "/register", "", tt.body)
			if w.Code != http.StatusBadRequest {
				t.Fatalf("ステータスコード = %d, want %d", w.Code, http.StatusBadRequest)
			}
		})
	}
}

// TestHandleLogin はログインを検証する。
func TestHandleLogin(t *testing.T) {
	t.Parallel()

	s, _ := newTestServer(t)
	id := register(t, s, "dave@example.com")

	t.Run("正しい資格情報でユーザーを返すこと", func(t *testing.T) {
		t.Parallel()

		w := doRequest(s, http.MethodPost, "/login", "", `{"email":"Dave@example.com","password":"password123"}`)
		if w.Code != http.StatusOK {
			t.Fatalf("ステータスコード = %d, want %d", w.Code, http.StatusOK)
		}
		var body struct {
			User User `json:"user"`
		}
		if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
			t.Fatalf("レスポンスのパースに失敗: %v", err)
		}
		if body.User.ID != id {
			t.Errorf("user.id = %q, want %q", body.User.ID, id)
		}
		if strings.Contains(w.Body.String(), "token") {
			t.Errorf("トークンが発行された: %s", w.Body.String())
		}
	})

	tests := []struct {
		name string
		body string
	}{
		{name: "パスワードが違う", body: `{"email":"dave@example.com","password":"wrong-password"}`},
		{name: "ユーザーが存在しない", body: `{"email":"nobody@example.com","password":"password123"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name+"場合は401を返すこと", func(t *testing.T) {
			t.Parallel()

			w := doRequest(s, http.MethodPost, "/login", "", tt.body)
			if w.Code != http.StatusUnauthorized {
				t.Fatalf("ステータスコード = %d, want %d", w.Code, http.StatusUnauthorized)
			}
			if got := decodeError(t, w); got != "Invalid credentials" {
				t.Errorf("error = %q, want %q", got, "Invalid credentials")
			}
		})
	}
}

// TestHandleProfile はプロフィールの取得と更新を検証する。
func TestHandleProfile(t *testing.T) {
	t.Parallel()

	s, _ := newTestServer(t)
	id := register(t, s, "erin@example.com")

	t.Run("X-User-IDが無い場合は401を返すこと", func(t *testing.T) {
		w := doRequest(s, http.MethodGet, "/profile", "", "")
		if w.Code != http.StatusUnauthorized {
			t.Fatalf("ステータスコード = %d, want %d", w.Code, http.StatusUnauthorized)
		}
		if got := decodeError(t, w); got != "User ID required" {
			t.Errorf("error = %q, want %q", got, "User ID required")
		}
	})

	t.Run("プロフィールを取得できること", func(t *testing.T) {
		w := doRequest(s, http.MethodGet, "/profile", id, "")
		if w.Code != http.StatusOK {
			t.Fatalf("ステータスコード = %d, want %d", w.Code, http.StatusOK)
		}
		var u User
		if err := json.Unmarshal(w.Body.Bytes(), &u); err != nil {
			t.Fatalf("レスポンスのパースに失敗: %v", err)
		}
		if u.Email != "erin@example.com" {
			t.Errorf("email = %q", u.Email)
		}
	})

	t.Run("表示名を更新できること", func(t *testing.T) {
		w := doRequest(s, http.MethodPut, "/profile", id, `{"name":"Erin Updated"}`)
		if w.Code != http.StatusOK {
			t.Fatalf("ステータスコード = %d, want %d, body = %s", w.Code, http.StatusOK, w.Body.String())
		}
		var u User
		if err := json.Unmarshal(w.Body.Bytes(), &u); err != nil {
			t.Fatalf("レスポンスのパースに失敗: %v", err)
		}
		if u.Name != "Erin Updated" {
			t.Errorf("name = %q, want %q", u.Name, "Erin Updated")
		}
	})

	t.Run("存在しないユーザーは404を返すこと", func(t *testing.T) {
		if w := doRequest(s, http.MethodGet, "/profile", "ghost", ""); w.Code != http.StatusNotFound {
			t.Errorf("GETのステータスコード = %d, want %d", w.Code, http.StatusNotFound)
		}
		if w := doRequest(s, http.MethodPut, "/profile", "ghost", `{"name":"x"}`); w.Code != http.StatusNotFound {
			t.Errorf("PUTのステータスコード = %d, want %d", w.Code, http.StatusNotFound)
		}
	})
}
