package order

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/nao1215/minishop/pkg/sqlitedb"
)

//go:embed migrations/*.sql
var migrations embed.FS

var (
	// ErrNotFound は注文が存在しないことを表す。
	ErrNotFound = errors.New("order not found")
	// ErrStatusConflict は更新中に別のリクエストがステータスを変更したことを表す。
	ErrStatusConflict = errors.New("order status changed concurrently")
)

// Item は注文明細。
type Item struct {
	// ProductID は商品ID。
	ProductID string `json:"product_id"`
	// Name は注文時点の商品名。
	Name string `json:"name"`
	// Price は注文時点の単価。
	Price float64 `json:"price"`
	// Quantity は数量。
	Quantity int `json:"quantity"`
	// Subtotal は単価×数量。
	Subtotal float64 `json:"subtotal"`
}

// Order は注文。
type Order struct {
	// ID は注文の一意識別子。
	ID string `json:"id"`
	// UserID は注文したユーザーのID。
	UserID string `json:"user_id"`
	// Status は現在のステータス。
	Status Status `json:"status"`
	// Items は明細の一覧。
	Items []Item `json:"items"`
	// Total は合計金額。
	Total float64 `json:"total"`
	// ItemCount は数量の合計。
	ItemCount int `json:"item_count"`
	// CreatedAt は作成日時。
	CreatedAt time.Time `json:"created_at"`
	// UpdatedAt は更新日時。
	UpdatedAt time.Time `json:"updated_at"`
}

// Store は注文テーブルへのアクセスを提供する。
type Store struct {
	db *sql.DB
}

// OpenStore はデータベースを開いてStoreを生成する。
func OpenStore(ctx context.Context, path string) (*Store, error) {
	db, err := sqlitedb.Open(ctx, path, migrations, "migrations")
	if err != nil {
		return nil, err
	}
	return &Store{db: db}, nil
}

// Close はデータベース接続を閉じる。
func (s *Store) Close() error {
	return s.db.Close()
}

// Create は注文と明細を1つのトランザクションで保存する。
func (s *Store) Create(ctx context.Context, o Order) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("トランザクション開始に失敗: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO orders (id, user_id, status, total, item_count, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		o.ID, o.UserID, string(o.Status), o.Total, o.ItemCount, sqlitedb.FormatTime(o.CreatedAt), sqlitedb.FormatTime(o.UpdatedAt),
	); err != nil {
		return fmt.Errorf("注文の保存に失敗: %w", err)
	}

	for i, it := range o.Items {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO order_items (order_id, position, product_id, name, price, quantity, subtotal) VALUES (?, ?, ?, ?, ?, ?, ?)`,
			o.ID, i, it.ProductID, it.Name, it.Price, it.Quantity, it.Subtotal,
		); err != nil {
			return fmt.Errorf("注文明細の保存に失敗: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("トランザクションのコミットに失敗: %w", err)
	}
	return nil
}

// Get はIDで注文を取得する。
func (s *Store) Get(ctx context.Context, id string) (Order, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, user_id, status, total, item_count, created_at, updated_at FROM orders WHERE id = ?`, id)
	o, err := scanOrder(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Order{}, ErrNotFound
	}
	if err != nil {
		return Order{}, err
	}

	if o.Items, err = s.items(ctx, o.ID); err != nil {
		return Order{}, err
	}
	return o, nil
}

// ListByUser はユーザーの注文を新しい順に返す。
func (s *Store) ListByUser(ctx context.Context, userID string) ([]Order, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_id, status, total, item_count, created_at, updated_at FROM orders WHERE user_id = ? ORDER BY created_at DESC, id`, userID)
	if err != nil {
		return nil, fmt.Errorf("注文一覧の取得に失敗: %w", err)
	}

	orders := []Order{}
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			_ = rows.Close()
			return nil, err
		}
		orders = append(orders, o)
	}
	if err := rows.Close(); err != nil {
		return nil, fmt.Errorf("注文一覧の取得に失敗: %w", err)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("注文一覧の取得に失敗: %w", err)
	}

	// 接続は1本なので、注文の読み出しを終えてから明細を読む
	for i := range orders {
		if orders[i].Items, err = s.items(ctx, orders[i].ID); err != nil {
			return nil, err
		}
	}
	return orders, nil
}

// UpdateStatus はステータスがfromのままである場合に限りtoへ更新する。
func (s *Store) UpdateStatus(ctx context.Context, id string, from, to Status, now time.Time) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE orders SET status = ?, updated_at = ? WHERE id = ? AND status = ?`,
		string(to), sqlitedb.FormatTime(now), id, string(from),
	)
	if err != nil {
		return fmt.Errorf("ステータスの更新に失敗: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("更新件数の取得に失敗: %w", err)
	}
	if n == 0 {
		return ErrStatusConflict
	}
	return nil
}

func (s *Store) items(ctx context.Context, orderID string) ([]Item, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT product_id, name, price, quantity, subtotal FROM order_items WHERE order_id = ? ORDER BY position`, orderID)
	if err != nil {
		return nil, fmt.Errorf("注文明細の取得に失敗: %w", err)
	}
	defer func() { _ = rows.Close() }()

	items := []Item{}
	for rows.Next() {
		var it Item
		if err := rows.Scan(&it.ProductID, &it.Name, &it.Price, &it.Quantity, &it.Subtotal); err != nil {
			return nil, fmt.Errorf("注文明細の読み取りに失敗: %w", err)
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

// rowScanner は*sql.Rowと*sql.Rowsの共通インターフェース。
type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrder(r rowScanner) (Order, error) {
	var (
		o                    Order
		status               string
		createdAt, updatedAt string
	)
	if err := r.Scan(&o.ID, &o.UserID, &status, &o.Total, &o.ItemCount, &createdAt, &updatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Order{}, err
		}
		return Order{}, fmt.Errorf("注文の読み取りに失敗: %w", err)
	}
	o.Status = Status(status)

	var err error
	if o.CreatedAt, err = sqlitedb.ParseTime(createdAt); err != nil {
		return Order{}, err
	}
	if o.UpdatedAt, err = sqlitedb.ParseTime(updatedAt); err != nil {
		return Order{}, err
	}
	return o, nil
}
