package notifications

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHub_BroadcastReachesAllSubscribers(t *testing.T) {
	hub := NewHub()

	first, err := hub.Subscribe()
	require.NoError(t, err)
	second, err := hub.Subscribe()
	require.NoError(t, err)
	assert.Equal(t, 2, hub.Len())

	event, err := NewEvent(EventPostLiked, LikeInfo{UserID: "user-1", PostID: "post-1"})
	require.NoError(t, err)
	hub.Broadcast(event)

	for _, sub := range []*Subscriber{first, second} {
		select {
		case got := <-sub.Events():
			assert.Equal(t, EventPostLiked, got.Type)
			var info LikeInfo
			require.NoError(t, json.Unmarshal(got.Data, &info))
			assert.Equal(t, "user-1", info.UserID)
		case <-time.After(time.Second):
			t.Fatal("subscriber did not receive the event")
		}
	}
}

func TestHub_UnsubscribeStopsDelivery(t *testing.T) {
	hub := NewHub()

	sub, err := hub.Subscribe()
	require.NoError(t, err)
	hub.Unsubscribe(sub)
	assert.Equal(t, 0, hub.Len())

	select {
	case <-sub.Done():
	default:
		t.Fatal("Done must be signalled after Unsubscribe")
	}

	// Unsubscribing twice is safe.
	hub.Unsubscribe(sub)
}

func TestHub_SlowSubscriberDoesNotBlockBroadcast(t *testing.T) {
	hub := NewHub()

	sub, err := hub.Subscribe()
	require.NoError(t, err)
	defer hub.Unsubscribe(sub)

	event, err := NewEvent(EventPostDeleted, DeleteInfo{ID: "post-1"})
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		defer close(done)
		// Never read from the subscriber; overflow must be dropped.
		for i := 0; i < subscriberBuffer*2; i++ {
			hub.Broadcast(event)
		}
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("broadcast blocked on a slow subscriber")
	}
}

func TestEvent_SSEFraming(t *testing.T) {
	event := Event{ID: "abc", Type: EventPostDeleted, Data: json.RawMessage(`{"id":"post-1"}`)}
	assert.Equal(t, "id: abc\nevent: postDeleted\ndata: {\"id\":\"post-1\"}\n\n", event.SSE())
}

func TestDispatcher_LocalDeliveryWithoutRedis(t *testing.T) {
	hub := NewHub()
	dispatcher := NewDispatcher(hub, NewNotifier(nil))
	require.NoError(t, dispatcher.Start(context.Background()))

	sub, err := hub.Subscribe()
	require.NoError(t, err)
	defer hub.Unsubscribe(sub)

	dispatcher.Publish(context.Background(), EventPostDeleted, DeleteInfo{ID: "post-1"})

	select {
	case got := <-sub.Events():
		assert.Equal(t, EventPostDeleted, got.Type)
	case <-time.After(time.Second):
		t.Fatal("event was not delivered locally")
	}
}

func TestDispatcher_DeliversExactlyOnceThroughRedis(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hub := NewHub()
	dispatcher := NewDispatcher(hub, NewNotifier(rdb))
	require.NoError(t, dispatcher.Start(ctx))

	sub, err := hub.Subscribe()
	require.NoError(t, err)
	defer hub.Unsubscribe(sub)

	// Give the subscriber goroutine time to attach.
	time.Sleep(50 * time.Millisecond)

	dispatcher.Publish(ctx, EventPostLiked, LikeInfo{UserID: "user-1", PostID: "post-1"})

	select {
	case got := <-sub.Events():
		assert.Equal(t, EventPostLiked, got.Type)
	case <-time.After(2 * time.Second):
		t.Fatal("event was not bridged through Redis")
	}

	select {
	case extra := <-sub.Events():
		t.Fatalf("event delivered twice: %+v", extra)
	case <-time.After(200 * time.Millisecond):
	}
}
