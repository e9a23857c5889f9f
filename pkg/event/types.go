// Package event はサービス間で受け渡すドメインイベントを定義する。
//
// ユーザーサービスと注文サービスが発行し、通知サービスが受け取って
// ユーザー向けの通知に変換する。メッセージキューは使わず、HTTPで直接送信する。
package event

import (
	"encoding/json"
	"time"
)

// AggregateType はイベントの対象となるエンティティの種類を表す。
type AggregateType string

const (
	// AggregateTypeUser はユーザーエンティティを表す。
	AggregateTypeUser AggregateType = "User"
	// AggregateTypeOrder は注文エンティティを表す。
	AggregateTypeOrder AggregateType = "Order"
)

// Type はイベントの種類を表す。
type Type string

const (
	// TypeUserRegistered はユーザーが登録されたことを表す。
	TypeUserRegistered Type = "UserRegistered"
	// TypeOrderPlaced は注文が確定したことを表す。
	TypeOrderPlaced Type = "OrderPlaced"
	// TypeOrderStatusChanged は注文ステータスが変化したことを表す。
	TypeOrderStatusChanged Type = "OrderStatusChanged"
)

// Event はサービス間で送信される不変のイベントレコードを表す。
type Event struct {
	// ID はイベントの一意識別子（UUID）。
	ID string `json:"id"`
	// AggregateID は対象エンティティの識別子。
	AggregateID string `json:"aggregate_id" binding:"required"`
	// AggregateType は対象エンティティの種類。
	AggregateType AggregateType `json:"aggregate_type" binding:"required"`
	// EventType はイベントの種類。
	EventType Type `json:"event_type" binding:"required"`
	// Data はイベント固有のデータ（JSON形式）。
	Data json.RawMessage `json:"data"`
	// Version はAggregate内でのイベントの順序番号。
	Version int64 `json:"version"`
	// CreatedAt はイベントが作成された日時。
	CreatedAt time.Time `json:"created_at"`
}

// UserRegisteredData はUserRegisteredイベントのデータ。
type UserRegisteredData struct {
	// UserID は登録されたユーザーのID。
	UserID string `json:"user_id"`
	// Email はユーザーのメールアドレス。
	Email string `json:"email"`
	// Name はユーザーの表示名。
	Name string `json:"name"`
}

// OrderPlacedData はOrderPlacedイベントのデータ。
type OrderPlacedData struct {
	// UserID は注文したユーザーのID。
	UserID string `json:"user_id"`
	// Total は注文の合計金額。
	Total float64 `json:"total"`
	// ItemCount は注文に含まれる商品の個数。
	ItemCount int `json:"item_count"`
}

// OrderStatusChangedData はOrderStatusChangedイベントのデータ。
type OrderStatusChangedData struct {
	// UserID は注文したユーザーのID。
	UserID string `json:"user_id"`
	// From は変更前のステータス。
	From string `json:"from"`
	// To は変更後のステータス。
	To string `json:"to"`
}
