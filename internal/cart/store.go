package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrCartNotFound は保存されたカートが無い、または期限切れであることを表す。
var ErrCartNotFound = errors.New("cart not found")

// Store はカートの保存先。
type Store interface {
	// Get はユーザーのカートを取得する。無ければErrCartNotFoundを返す。
	Get(ctx context.Context, userID string) (*Cart, error)
	// Save はカートを保存し、有効期限を延長する。
	Save(ctx context.Context, cart *Cart) error
	// Delete はカートを削除する。無くてもエラーにしない。
	Delete(ctx context.Context, userID string) error
}

// cartKey はユーザーIDから保存キーを作る。
func cartKey(userID string) string {
	return "cart:" + userID
}

// NewStore は設定に応じたStoreを生成する。
// REDIS_URLが空、またはRedisに接続できない場合はインメモリストアを使う。
// 返り値の関数でRedis接続を閉じる。
func NewStore(ctx context.Context, cfg Config) (Store, func() error, error) {
	noop := func() error { return nil }
	if cfg.RedisURL == "" {
		log.Printf("[Cart] REDIS_URLが未設定のためインメモリストアを使用します")
		return NewMemoryStore(cfg.CartTTL), noop, nil
	}

	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, nil, fmt.Errorf("REDIS_URLが不正です: %w", err)
	}
	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		log.Printf("[Cart] Redisに接続できないためインメモリストアを使用します: %v", err)
		_ = client.Close()
		return NewMemoryStore(cfg.CartTTL), noop, nil
	}

	log.Printf("[Cart] Redisに接続しました: addr=%s, db=%d", opts.Addr, opts.DB)
	return NewRedisStore(client, cfg.CartTTL), client.Close, nil
}

// RedisStore はRedisにカートを保存する。
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisStore はRedisStoreを生成する。
func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

// Get はユーザーのカートを取得する。
func (s *RedisStore) Get(ctx context.Context, userID string) (*Cart, error) {
	raw, err := s.client.Get(ctx, cartKey(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrCartNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("カートの取得に失敗: %w", err)
	}
	return decodeCart(raw)
}

// Save はカートをSET EXで保存する。
func (s *RedisStore) Save(ctx context.Context, cart *Cart) error {
	raw, err := json.Marshal(cart)
	if err != nil {
		return fmt.Errorf("カートのシリアライズに失敗: %w", err)
	}
	if err := s.client.Set(ctx, cartKey(cart.UserID), raw, s.ttl).Err(); err != nil {
		return fmt.Errorf("カートの保存に失敗: %w", err)
	}
	return nil
}

// Delete はカートを削除する。
func (s *RedisStore) Delete(ctx context.Context, userID string) error {
	if err := s.client.Del(ctx, cartKey(userID)).Err(); err != nil {
		return fmt.Errorf("カートの削除に失敗: %w", err)
	}
	return nil
}

// memoryEntry はインメモリストアの1件分。
type memoryEntry struct {
	raw       []byte
	expiresAt time.Time
}

// MemoryStore はプロセス内にカートを保存する。期限切れのエントリは読み出し時に捨てる。
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	ttl     time.Duration
	now     func() time.Time
}

// NewMemoryStore はMemoryStoreを生成する。
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]memoryEntry),
		ttl:     ttl,
		now:     time.Now,
	}
}

// Get はユーザーのカートを取得する。
func (s *MemoryStore) Get(_ context.Context, userID string) (*Cart, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := cartKey(userID)
	e, ok := s.entries[key]
	if !ok {
		return nil, ErrCartNotFound
	}
	if !s.now().Before(e.expiresAt) {
		delete(s.entries, key)
		return nil, ErrCartNotFound
	}
	return decodeCart(e.raw)
}

// Save はカートを保存し、有効期限を設定し直す。
func (s *MemoryStore) Save(_ context.Context, cart *Cart) error {
	raw, err := json.Marshal(cart)
	if err != nil {
		return fmt.Errorf("カートのシリアライズに失敗: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[cartKey(cart.UserID)] = memoryEntry{raw: raw, expiresAt: s.now().Add(s.ttl)}
	return nil
}

// Delete はカートを削除する。
func (s *MemoryStore) Delete(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, cartKey(userID))
	return nil
}

func decodeCart(raw []byte) (*Cart, error) {
	var c Cart
	if err := json.Unmarshal(raw, &c); err != nil {
		return nil, fmt.Errorf("カートのデシリアライズに失敗: %w", err)
	}
	if c.Items == nil {
		c.Items = []Item{}
	}
	return &c, nil
}
