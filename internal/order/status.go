package order

import "slices"

// Status は注文ステータス。
type Status string

const (
	// StatusPending は支払い待ち。
	StatusPending Status = "pending"
	// StatusPaid は支払い済み。
	StatusPaid Status = "paid"
	// StatusShipped は発送済み。
	StatusShipped Status = "shipped"
	// StatusDelivered は配達済み。
	StatusDelivered Status = "delivered"
	// StatusCancelled はキャンセル済み。
	StatusCancelled Status = "cancelled"
)

// transitions は各ステータスから遷移できるステータス。
var transitions = map[Status][]Status{
	StatusPending: {StatusPaid, StatusCancelled},
	StatusPaid:    {StatusShipped, StatusCancelled},
	StatusShipped: {StatusDelivered},
}

// ParseStatus は文字列を既知のステータスに変換する。
func ParseStatus(s string) (Status, bool) {
	switch st := Status(s); st {
	case StatusPending, StatusPaid, StatusShipped, StatusDelivered, StatusCancelled:
		return st, true
	}
	return "", false
}

// CanTransitionTo はnextへの遷移が許可されているかどうかを返す。
func (s Status) CanTransitionTo(next Status) bool {
	return slices.Contains(transitions[s], next)
}
