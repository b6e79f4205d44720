// Package notify broadcasts data-change events so connected clients can
// refetch without polling. Events fan out over a Redis channel, which keeps
// delivery working across multiple API instances.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

const channel = "casedesk:changes"

// Event tells listeners what kind of record changed and for whom.
type Event struct {
	Kind       string    `json:"kind"` // "cases" or "disputes"
	UserID     string    `json:"user_id,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// Notifier publishes change events and lets callers subscribe to them.
type Notifier interface {
	Publish(ctx context.Context, event Event)
	Subscribe(ctx context.Context) (<-chan Event, func())
}

// Redis is a Notifier backed by Redis pub/sub.
type Redis struct {
	client *redis.Client
}

// NewRedis connects to Redis and verifies the connection.
func NewRedis(redisURL string) (*Redis, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	return &Redis{client: client}, nil
}

// NewRedisWithClient wraps an existing Redis client.
func NewRedisWithClient(client *redis.Client) *Redis {
	return &Redis{client: client}
}

// Publish sends an event. Failures are logged, never surfaced; a missed
// notification only delays a client refetch.
func (r *Redis) Publish(ctx context.Context, event Event) {
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}
	payload, err := json.Marshal(event)
	if err != nil {
		log.Printf("notify: marshal event: %v", err)
		return
	}
	if err := r.client.Publish(ctx, channel, payload).Err(); err != nil {
		log.Printf("notify: publish: %v", err)
	}
}

// Subscribe returns a channel of events and a cancel function. The channel
// closes when the subscription ends.
func (r *Redis) Subscribe(ctx context.Context) (<-chan Event, func()) {
	sub := r.client.Subscribe(ctx, channel)
	events := make(chan Event, 16)

	go func() {
		defer close(events)
		for msg := range sub.Channel() {
			var event Event
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				log.Printf("notify: decode event: %v", err)
				continue
			}
			select {
			case events <- event:
			default:
				// Slow consumer; drop rather than block the pump.
			}
		}
	}()

	return events, func() { _ = sub.Close() }
}

// Close releases the Redis connection.
func (r *Redis) Close() error {
	return r.client.Close()
}

// Nop is a Notifier used when Redis is not configured.
type Nop struct{}

func (Nop) Publish(ctx context.Context, event Event) {}

func (Nop) Subscribe(ctx context.Context) (<-chan Event, func()) {
	events := make(chan Event)
	return events, func() { close(events) }
}
