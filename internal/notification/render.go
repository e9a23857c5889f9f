package notification

import (
	"fmt"

	"github.com/nao1215/minishop/pkg/event"
)

// message はイベントから生成した通知の内容。
type message struct {
	userID string
	title  string
	body   string
}

// render はイベントを通知の内容に変換する。
// 通知対象でないイベントの場合はokにfalseを返す。
func render(e *event.Event) (m message, ok bool, err error) {
	switch e.EventType {
	case event.TypeUserRegistered:
		data, err := event.DecodeData[event.UserRegisteredData](e)
		if err != nil {
			return message{}, false, err
		}
		return message{
			userID: data.UserID,
			title:  "Welcome to minishop",
			body:   fmt.Sprintf("Hi %s, your account has been created.", data.Name),
		}, true, nil

	case event.TypeOrderPlaced:
		data, err := event.DecodeData[event.OrderPlacedData](e)
		if err != nil {
			return message{}, false, err
		}
		return message{
			userID: data.UserID,
			title:  "Order placed",
			body:   fmt.Sprintf("Your order %s with %d item(s) totaling $%.2f has been placed.", e.AggregateID, data.ItemCount, data.Total),
		}, true, nil

	case event.TypeOrderStatusChanged:
		data, err := event.DecodeData[event.OrderStatusChangedData](e)
		if err != nil {
			return message{}, false, err
		}
		return message{
			userID: data.UserID,
			title:  "Order " + data.To,
			body:   fmt.Sprintf("Your order %s is now %s (was %s).", e.AggregateID, data.To, data.From),
		}, true, nil
	}
	return message{}, false, nil
}
