package event

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// aggregateTypes はイベントの種類ごとの対象エンティティ。
var aggregateTypes = map[Type]AggregateType{
	TypeUserRegistered:     AggregateTypeUser,
	TypeOrderPlaced:        AggregateTypeOrder,
	TypeOrderStatusChanged: AggregateTypeOrder,
}

// initialVersion は発行するイベントのバージョン。イベントログを持たないので常に1。
const initialVersion = 1

// New はイベントを生成する。対象エンティティの種類はeventTypeから決まる。
// dataはJSONにシリアライズされる。
func New(aggregateID string, eventType Type, data any) (*Event, error) {
	aggregateType, ok := aggregateTypes[eventType]
	if !ok {
		return nil, fmt.Errorf("未知のイベント種別: %s", eventType)
	}
	if aggregateID == "" {
		return nil, errors.New("aggregate_idが空です")
	}

	jsonData, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("イベントデータのシリアライズに失敗: %w", err)
	}

	return &Event{
		ID:            uuid.New().String(),
		AggregateID:   aggregateID,
		AggregateType: aggregateType,
		EventType:     eventType,
		Data:          jsonData,
		Version:       initialVersion,
		CreatedAt:     time.Now().UTC(),
	}, nil
}

// DecodeData はイベントのDataを指定された型にデシリアライズする。Dataが空ならエラー。
func DecodeData[T any](e *Event) (*T, error) {
	if len(e.Data) == 0 || string(e.Data) == "null" {
		return nil, fmt.Errorf("イベントデータが空です: type=%s", e.EventType)
	}
	var data T
	if err := json.Unmarshal(e.Data, &data); err != nil {
		return nil, fmt.Errorf("イベントデータのデシリアライズに失敗: type=%s: %w", e.EventType, err)
	}
	return &data, nil
}
