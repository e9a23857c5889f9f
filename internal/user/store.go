package user

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
	// ErrNotFound はユーザーが存在しないことを表す。
	ErrNotFound = errors.New("user not found")
	// ErrEmailTaken はメールアドレスが登録済みであることを表す。
	ErrEmailTaken = errors.New("email already registered")
)

// User はユーザーを表す。パスワードハッシュはJSONに含めない。
type User struct {
	// ID はユーザーの一意識別子。
	ID string `json:"id"`
	// Email はメールアドレス。
	Email string `json:"email"`
	// Name は表示名。
	Name string `json:"name"`
	// PasswordHash はbcryptハッシュ。
	PasswordHash string `json:"-"`
	// CreatedAt は作成日時。
	CreatedAt time.Time `json:"created_at"`
	// UpdatedAt は更新日時。
	UpdatedAt time.Time `json:"updated_at"`
}

// Store はユーザーテーブルへのアクセスを提供する。
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

// Create はユーザーを登録する。メールアドレスが重複する場合はErrEmailTakenを返す。
func (s *Store) Create(ctx context.Context, u User) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO users (id, email, name, password_hash, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)`,
		u.ID, u.Email, u.Name, u.PasswordHash, sqlitedb.FormatTime(u.CreatedAt), sqlitedb.FormatTime(u.UpdatedAt),
	)
	if sqlitedb.IsUniqueViolation(err) {
		return ErrEmailTaken
	}
	if err != nil {
		return fmt.Errorf("ユーザーの登録に失敗: %w", err)
	}
	return nil
}

// GetByID はIDでユーザーを取得する。
func (s *Store) GetByID(ctx context.Context, id string) (User, error) {
	return s.get(ctx, `SELECT id, email, name, password_hash, created_at, updated_at FROM users WHERE id = ?`, id)
}

// GetByEmail はメールアドレスでユーザーを取得する。
func (s *Store) GetByEmail(ctx context.Context, email string) (User, error) {
	return s.get(ctx, `SELECT id, email, name, password_hash, created_at, updated_at FROM users WHERE email = ?`, email)
}

func (s *Store) get(ctx context.Context, query string, arg string) (User, error) {
	var (
		u                    User
		createdAt, updatedAt string
	)
	err := s.db.QueryRowContext(ctx, query, arg).Scan(&u.ID, &u.Email, &u.Name, &u.PasswordHash, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return User{}, ErrNotFound
	}
	if err != nil {
		return User{}, fmt.Errorf("ユーザーの取得に失敗: %w", err)
	}
	if u.CreatedAt, err = sqlitedb.ParseTime(createdAt); err != nil {
		return User{}, err
	}
	if u.UpdatedAt, err = sqlitedb.ParseTime(updatedAt); err != nil {
		return User{}, err
	}
	return u, nil
}

// UpdateName は表示名を更新する。
func (s *Store) UpdateName(ctx context.Context, id, name string, now time.Time) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE users SET name = ?, updated_at = ? WHERE id = ?`,
		name, sqlitedb.FormatTime(now), id,
	)
	if err != nil {
		return fmt.Errorf("ユーザーの更新に失敗: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("更新件数の取得に失敗: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
