package notifications

import (
	"context"
	"encoding/json"
	"log/slog"
	"runtime/debug"

	"github.com/redis/go-redis/v9"

	"mumble/internal/middleware"
	"mumble/internal/observability"
)

// eventsChannel is the Redis channel all instances publish post events to.
const eventsChannel = "mumble:events"

// Notifier bridges the event stream over Redis so that every instance
// delivers every event, regardless of which instance handled the request.
type Notifier struct {
	rdb *redis.Client
}

// NewNotifier creates a new Notifier instance using the provided Redis client.
// The client may be nil, which disables the bridge.
func NewNotifier(rdb *redis.Client) *Notifier {
	return &Notifier{rdb: rdb}
}

// Enabled reports whether the Redis bridge is active.
func (n *Notifier) Enabled() bool {
	return n != nil && n.rdb != nil
}

// Publish sends the event to the shared channel.
func (n *Notifier) Publish(ctx context.Context, event Event) error {
	if !n.Enabled() {
		return nil
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	if err := n.rdb.Publish(ctx, eventsChannel, payload).Err(); err != nil {
		observability.RedisErrorRate.WithLabelValues("events_publish").Inc()
		return err
	}
	return nil
}

// StartSubscriber subscribes to the shared channel and calls onEvent for
// each incoming event until the context is cancelled.
func (n *Notifier) StartSubscriber(ctx context.Context, onEvent func(Event)) error {
	if !n.Enabled() {
		return nil
	}
	sub := n.rdb.Subscribe(ctx, eventsChannel)
	ch := sub.Channel()

	go func() {
		defer func() { _ = sub.Close() }()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				var event Event
				if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
					middleware.Logger.Warn("Dropping malformed event from Redis", slog.String("error", err.Error()))
					observability.EventsDropped.WithLabelValues("malformed").Inc()
					continue
				}
				func() {
					defer func() {
						if r := recover(); r != nil {
							middleware.Logger.Error("PANIC in event subscriber",
								slog.Any("panic", r),
								slog.String("stack", string(debug.Stack())),
							)
						}
					}()
					onEvent(event)
				}()
			}
		}
	}()

	return nil
}
