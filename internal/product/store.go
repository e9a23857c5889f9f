package product

import (
	"cmp"
	"errors"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"
)

// ErrNotFound は商品が存在しないことを表す。
var ErrNotFound = errors.New("product not found")

// Product は商品を表す。
type Product struct {
	// ID は連番の商品ID。
	ID string `json:"id"`
	// Name は商品名。
	Name string `json:"name"`
	// Description は商品の説明。
	Description string `json:"description"`
	// Price は単価。
	Price float64 `json:"price"`
	// Stock は在庫数。
	Stock int `json:"stock"`
	// Category はカテゴリ。
	Category string `json:"category"`
	// CreatedAt は作成日時。
	CreatedAt time.Time `json:"created_at"`
	// UpdatedAt は更新日時。
	UpdatedAt time.Time `json:"updated_at"`
}

// Filter は一覧取得の絞り込み条件。空のフィールドは条件にしない。
type Filter struct {
	// Category はカテゴリの完全一致（大文字小文字を区別しない）。
	Category string
	// Search は商品名または説明の部分一致（大文字小文字を区別しない）。
	Search string
}

// Patch は部分更新の内容。nilのフィールドは変更しない。
type Patch struct {
	Name        *string
	Description *string
	Price       *float64
	Stock       *int
	Category    *string
}

// Store は商品カタログを保持する。並行アクセスに対して安全。
type Store struct {
	mu       sync.RWMutex
	products map[string]Product
	nextID   int
	now      func() time.Time
}

// NewStore は初期商品を投入したStoreを生成する。
// 初期商品のIDは無視し、1から順に採番する。
func NewStore(seed []Product) *Store {
	s := &Store{
		products: make(map[string]Product, len(seed)),
		nextID:   1,
		now:      time.Now,
	}
	for _, p := range seed {
		s.Create(p)
	}
	return s
}

// List は条件に一致する商品をID順に返す。
func (s *Store) List(f Filter) []Product {
	s.mu.RLock()
	defer s.mu.RUnlock()

	search := strings.ToLower(f.Search)
	out := make([]Product, 0, len(s.products))
	for _, p := range s.products {
		if f.Category != "" && !strings.EqualFold(p.Category, f.Category) {
			continue
		}
		if search != "" &&
			!strings.Contains(strings.ToLower(p.Name), search) &&
			!strings.Contains(strings.ToLower(p.Description), search) {
			continue
		}
		out = append(out, p)
	}
	slices.SortFunc(out, func(a, b Product) int {
		return cmp.Compare(idNumber(a.ID), idNumber(b.ID))
	})
	return out
}

// Get はIDで商品を取得する。
func (s *Store) Get(id string) (Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.products[id]
	if !ok {
		return Product{}, ErrNotFound
	}
	return p, nil
}

// Create は新しいIDを採番して商品を登録する。
func (s *Store) Create(p Product) Product {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now().UTC()
	p.ID = strconv.Itoa(s.nextID)
	p.CreatedAt = now
	p.UpdatedAt = now
	s.nextID++
	s.products[p.ID] = p
	return p
}

// Update は商品を部分更新する。
func (s *Store) Update(id string, patch Patch) (Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.products[id]
	if !ok {
		return Product{}, ErrNotFound
	}
	if patch.Name != nil {
		p.Name = *patch.Name
	}
	if patch.Description != nil {
		p.Description = *patch.Description
	}
	if patch.Price != nil {
		p.Price = *patch.Price
	}
	if patch.Stock != nil {
		p.Stock = *patch.Stock
	}
	if patch.Category != nil {
		p.Category = *patch.Category
	}
	p.UpdatedAt = s.now().UTC()
	s.products[id] = p
	return p, nil
}

// Delete は商品を削除する。
func (s *Store) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.products[id]; !ok {
		return ErrNotFound
	}
	delete(s.products, id)
	return nil
}

// idNumber は並び替え用にIDを数値に変換する。数値でないIDは末尾に並ぶ。
func idNumber(id string) int {
	n, err := strconv.Atoi(id)
	if err != nil {
		return int(^uint(0) >> 1)
	}
	return n
}

// DefaultCatalog は起動時に投入する初期カタログ。
func DefaultCatalog() []Product {
	return []Product{
		{Name: "Wireless Mouse", Description: "Ergonomic 2.4GHz wireless mouse", Price: 24.99, Stock: 120, Category: "electronics"},
		{Name: "Mechanical Keyboard", Description: "Tenkeyless keyboard with brown switches", Price: 89.5, Stock: 40, Category: "electronics"},
		{Name: "USB-C Hub", Description: "7-in-1 hub with HDMI and card reader", Price: 39, Stock: 75, Category: "electronics"},
		{Name: "The Go Programming Language", Description: "Book covering the Go language and its standard library", Price: 34.95, Stock: 25, Category: "books"},
		{Name: "Ceramic Mug", Description: "350ml mug, dishwasher safe", Price: 12, Stock: 200, Category: "home"},
		{Name: "Desk Lamp", Description: "LED lamp with adjustable color temperature", Price: 45.25, Stock: 0, Category: "home"},
	}
}
