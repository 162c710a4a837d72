// Package notify delivers stored alerts to live consumers.
package notify

import (
	"context"
	"errors"
	"time"

	"smartbin-api-server/internal/models"
)

// EventAlertRaised is the event name carried by every alert envelope.
const EventAlertRaised = "alert.raised"

// AlertEvent is the wire envelope pushed to websocket clients and NATS.
type AlertEvent struct {
	Event  string       `json:"event"`
	SentAt time.Time    `json:"sentAt"`
	Alert  models.Alert `json:"alert"`
}

func NewAlertEvent(alert models.Alert) AlertEvent {
	return AlertEvent{Event: EventAlertRaised, SentAt: time.Now().UTC(), Alert: alert}
}

type Notifier interface {
	Notify(ctx context.Context, alert models.Alert) error
}

// Multi fans an alert out to every notifier. All notifiers are tried; the
// errors are joined.
type Multi []Notifier

func (m Multi) Notify(ctx context.Context, alert models.Alert) error {
	var errs []error
	for _, n := range m {
		if n == nil {
			continue
		}
		if err := n.Notify(ctx, alert); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
