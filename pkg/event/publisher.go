package event

import (
	"context"
	"fmt"

	"github.com/nao1215/minishop/pkg/httpclient"
)

// Publisher はイベントの送信先。
type Publisher interface {
	// Publish はイベントを1回だけ送信する。再送はしない。
	Publish(ctx context.Context, e *Event) error
}

// HTTPPublisher は通知サービスのPOST /internal/eventsにイベントを送信する。
type HTTPPublisher struct {
	client *httpclient.Client
}

// NewHTTPPublisher はHTTPPublisherを生成する。
func NewHTTPPublisher(client *httpclient.Client) *HTTPPublisher {
	return &HTTPPublisher{client: client}
}

// Publish はイベントを送信する。
func (p *HTTPPublisher) Publish(ctx context.Context, e *Event) error {
	if err := p.client.PostJSON(ctx, "/internal/events", e, nil); err != nil {
		return fmt.Errorf("イベント %s の送信に失敗: %w", e.EventType, err)
	}
	return nil
}
