package notifications

import (
	"context"
	"encoding/json"
	"fmt"

	pubsub "cloud.google.com/go/pubsub/v2"

	"github.com/peakkart/peakkart-backend/internal/orders"
	"github.com/peakkart/peakkart-backend/pkg/db/models"
	"github.com/peakkart/peakkart-backend/pkg/enums"
	"github.com/peakkart/peakkart-backend/pkg/logger"
)

// eventPublisher matches the Pub/Sub publisher handle so tests can fake it.
type eventPublisher interface {
	Publish(ctx context.Context, msg *pubsub.Message) *pubsub.PublishResult
}

// Dispatcher turns order lifecycle events into stored notifications and
// queue messages for the delivery worker. It satisfies the order service's
// notifier contract: every failure is logged and swallowed so a flaky
// notification path never fails a checkout.
type Dispatcher struct {
	repo      Repository
	publisher eventPublisher
	logger    *logger.Logger
}

// NewDispatcher wires the dispatcher. The publisher may be nil, in which case
// notifications are persisted but not queued for immediate delivery.
func NewDispatcher(repo Repository, publisher eventPublisher, logg *logger.Logger) *Dispatcher {
	return &Dispatcher{repo: repo, publisher: publisher, logger: logg}
}

// QueuedEvent is the message body published for the notification worker.
type QueuedEvent struct {
	NotificationID string            `json:"notification_id"`
	Event          string            `json:"event"`
	OrderID        string            `json:"order_id"`
	OrderNumber    string            `json:"order_number"`
	UserID         string            `json:"user_id"`
	Channel        string            `json:"channel"`
	Attributes     map[string]string `json:"attributes,omitempty"`
}

func (d *Dispatcher) OrderEvent(ctx context.Context, event orders.OrderEvent) {
	if d == nil || d.repo == nil {
		return
	}

	subject, body := renderOrderEvent(event)
	notification := &models.Notification{
		UserID:  event.UserID,
		Channel: enums.NotificationChannelEmail,
		Event:   event.Event,
		Subject: subject,
		Body:    body,
		Payload: map[string]any{
			"order_id":     event.OrderID.String(),
			"order_number": event.OrderNumber,
			"status":       event.Status,
			"total":        event.Total.String(),
		},
	}
	if err := d.repo.Create(ctx, notification); err != nil {
		d.warn(ctx, "failed to persist notification", err)
		return
	}

	if d.publisher == nil {
		return
	}
	payload, err := json.Marshal(QueuedEvent{
		NotificationID: notification.ID.String(),
		Event:          event.Event,
		OrderID:        event.OrderID.String(),
		OrderNumber:    event.OrderNumber,
		UserID:         event.UserID.String(),
		Channel:        notification.Channel.String(),
	})
	if err != nil {
		d.warn(ctx, "failed to encode notification event", err)
		return
	}
	result := d.publisher.Publish(ctx, &pubsub.Message{
		Data: payload,
		Attributes: map[string]string{
			"event": event.Event,
		},
	})
	if result == nil {
		return
	}
	if _, err := result.Get(ctx); err != nil {
		d.warn(ctx, "failed to publish notification event", err)
	}
}

func (d *Dispatcher) warn(ctx context.Context, msg string, err error) {
	if d.logger == nil {
		return
	}
	d.logger.Error(ctx, msg, err)
}

func renderOrderEvent(event orders.OrderEvent) (subject, body string) {
	switch event.Event {
	case "order.created":
		subject = "Order " + event.OrderNumber + " confirmed"
		body = fmt.Sprintf("Your order %s for ₹%s has been placed.", event.OrderNumber, event.Total.StringFixed(2))
	case "order.status_changed":
		subject = "Order " + event.OrderNumber + " update"
		body = fmt.Sprintf("Your order %s is now %s.", event.OrderNumber, event.Status)
	case "order.routed":
		subject = "New order " + event.OrderNumber + " for your store"
		body = fmt.Sprintf("Order %s worth ₹%s has been routed to your store.", event.OrderNumber, event.Total.StringFixed(2))
	default:
		subject = "Order " + event.OrderNumber
		body = fmt.Sprintf("Update for order %s: %s.", event.OrderNumber, event.Status)
	}
	return subject, body
}
