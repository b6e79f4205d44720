package notify

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func TestPublishSubscribe(t *testing.T) {
	s := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: s.Addr()})
	defer client.Close()

	notifier := NewRedisWithClient(client)

	ctx := context.Background()
	events, cancel := notifier.Subscribe(ctx)
	defer cancel()

	// Give the subscription pump a moment to attach.
	time.Sleep(50 * time.Millisecond)

	notifier.Publish(ctx, Event{Kind: "cases", UserID: "user-1"})

	select {
	case event, ok := <-events:
		if !ok {
			t.Fatal("event channel closed unexpectedly")
		}
		if event.Kind != "cases" || event.UserID != "user-1" {
			t.Fatalf("unexpected event: %+v", event)
		}
		if event.OccurredAt.IsZero() {
			t.Fatal("expected OccurredAt to be stamped")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
	}
}

func TestNopNotifier(t *testing.T) {
	var notifier Notifier = Nop{}

	ctx := context.Background()
	notifier.Publish(ctx, Event{Kind: "cases"})

	events, cancel := notifier.Subscribe(ctx)
	cancel()

	select {
	case _, ok := <-events:
		if ok {
			t.Fatal("nop subscription should never deliver events")
		}
	case <-time.After(100 * time.Millisecond):
		t.Fatal("expected channel to close after cancel")
	}
}
