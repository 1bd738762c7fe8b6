package notifications

import (
	"context"
	"log/slog"

	"mumble/internal/middleware"
	"mumble/internal/observability"
)

// Dispatcher publishes events on exactly one path: through Redis when the
// bridge is enabled (the subscriber feeds the local hub), directly into the
// local hub otherwise. Publishing locally AND over Redis would deliver
// every event twice on the publishing instance.
type Dispatcher struct {
	hub      *Hub
	notifier *Notifier
}

// NewDispatcher wires the hub and the optional Redis bridge together.
func NewDispatcher(hub *Hub, notifier *Notifier) *Dispatcher {
	return &Dispatcher{hub: hub, notifier: notifier}
}

// Start begins feeding bridged events into the local hub.
func (d *Dispatcher) Start(ctx context.Context) error {
	if !d.notifier.Enabled() {
		return nil
	}
	return d.notifier.StartSubscriber(ctx, d.hub.Broadcast)
}

// Publish builds and delivers an event. Delivery failures are logged, not
// returned: the triggering request has already succeeded at this point.
func (d *Dispatcher) Publish(ctx context.Context, eventType string, payload any) {
	event, err := NewEvent(eventType, payload)
	if err != nil {
		middleware.Logger.ErrorContext(ctx, "Failed to build event",
			slog.String("event_type", eventType),
			slog.String("error", err.Error()),
		)
		return
	}

	observability.EventsPublished.WithLabelValues(eventType).Inc()

	if d.notifier.Enabled() {
		if err := d.notifier.Publish(ctx, event); err != nil {
			middleware.Logger.ErrorContext(ctx, "Failed to publish event to Redis",
				slog.String("event_type", eventType),
				slog.String("error", err.Error()),
			)
		}
		return
	}

	d.hub.Broadcast(event)
}
