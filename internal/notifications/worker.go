package notifications

import (
	"context"
	"encoding/json"
	"fmt"

	pubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/peakkart/peakkart-backend/pkg/logger"
)

// Sender delivers a rendered notification over one channel.
type Sender interface {
	Channel() string
	Send(ctx context.Context, userID uuid.UUID, subject, body string) error
}

type subscriber interface {
	Receive(ctx context.Context, f func(context.Context, *pubsub.Message)) error
}

// Worker drains the notification queue and records delivery outcomes.
// Messages that cannot be decoded are acked so a poison payload does not
// wedge the subscription; transient delivery failures are nacked for retry.
type Worker struct {
	repo         Repository
	subscription subscriber
	senders      map[string][]Sender
	logg         *logger.Logger
}

func NewWorker(repo Repository, subscription subscriber, logg *logger.Logger, senders ...Sender) (*Worker, error) {
	if repo == nil {
		return nil, fmt.Errorf("notifications repository required")
	}
	if subscription == nil {
		return nil, fmt.Errorf("notification subscription required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	byChannel := make(map[string][]Sender, len(senders))
	for _, s := range senders {
		if s != nil {
			byChannel[s.Channel()] = append(byChannel[s.Channel()], s)
		}
	}
	return &Worker{repo: repo, subscription: subscription, senders: byChannel, logg: logg}, nil
}

// Run blocks on the subscription until the context is canceled.
func (w *Worker) Run(ctx context.Context) error {
	return w.subscription.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		if w.process(ctx, msg) {
			msg.Ack()
			return
		}
		msg.Nack()
	})
}

func (w *Worker) process(ctx context.Context, msg *pubsub.Message) bool {
	logCtx := w.logg.WithFields(ctx, map[string]any{
		"message_id": msg.ID,
		"event":      msg.Attributes["event"],
	})

	var event QueuedEvent
	if err := json.Unmarshal(msg.Data, &event); err != nil {
		w.logg.Error(logCtx, "failed to decode notification event", err)
		return true
	}

	notificationID, err := uuid.Parse(event.NotificationID)
	if err != nil {
		w.logg.Error(logCtx, "invalid notification id", err)
		return true
	}
	logCtx = w.logg.WithField(logCtx, "notification_id", notificationID.String())

	notification, err := w.repo.FindByID(ctx, notificationID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			w.logg.Warn(logCtx, "notification row missing, dropping event")
			return true
		}
		w.logg.Error(logCtx, "failed to load notification", err)
		return false
	}
	if notification.SentAt != nil {
		return true
	}

	if err := w.deliver(ctx, notification.UserID, notification.Channel.String(), notification.Subject, notification.Body); err != nil {
		w.logg.Error(logCtx, "notification delivery failed", err)
		if markErr := w.repo.MarkFailed(ctx, notificationID, err.Error()); markErr != nil {
			w.logg.Error(logCtx, "failed to record delivery failure", markErr)
		}
		return false
	}

	if err := w.repo.MarkSent(ctx, notificationID); err != nil {
		w.logg.Error(logCtx, "failed to mark notification sent", err)
		return false
	}
	w.logg.Info(logCtx, "notification delivered")
	return true
}

// deliver fans out to every sender registered for the channel. When no sender
// is configured the delivery is treated as a no-op success so environments
// without an email provider still drain the queue.
func (w *Worker) deliver(ctx context.Context, userID uuid.UUID, channel, subject, body string) error {
	var errs error
	for _, sender := range w.senders[channel] {
		if err := sender.Send(ctx, userID, subject, body); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("channel %s: %w", channel, err))
		}
	}
	return errs
}
