package realtime

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/HammerMeetNail/dailydoodle/internal/logging"
)

// RedisFeed fans events out across server instances through Redis Pub/Sub.
type RedisFeed struct {
	client *redis.Client
	prefix string
}

func NewRedisFeed(client *redis.Client, prefix string) *RedisFeed {
	return &RedisFeed{client: client, prefix: prefix}
}

func (f *RedisFeed) channel(topic string) string {
	if f.prefix == "" {
		return topic
	}
	return f.prefix + ":" + topic
}

func (f *RedisFeed) Publish(ctx context.Context, topic string, ev ChangeEvent) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encoding change event: %w", err)
	}
	if err := f.client.Publish(ctx, f.channel(topic), data).Err(); err != nil {
		return fmt.Errorf("publishing to %s: %w", topic, err)
	}
	return nil
}

func (f *RedisFeed) Subscribe(ctx context.Context, topics ...string) (*Subscription, error) {
	channels := make([]string, len(topics))
	for i, topic := range topics {
		channels[i] = f.channel(topic)
	}

	ps := f.client.Subscribe(ctx, channels...)
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, fmt.Errorf("subscribing to %v: %w", topics, err)
	}

	stop := make(chan struct{})
	out := make(chan ChangeEvent, defaultBuffer)
	go pumpRedis(ps.Channel(), out, stop)

	release := func() error {
		close(stop)
		return ps.Close()
	}
	return newSubscription(topics, out, release), nil
}

func pumpRedis(in <-chan *redis.Message, out chan<- ChangeEvent, stop <-chan struct{}) {
	defer close(out)
	for {
		select {
		case <-stop:
			return
		case msg, ok := <-in:
			if !ok {
				return
			}
			var ev ChangeEvent
			if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
				logging.Warn("discarding malformed change event", map[string]interface{}{
					"channel": msg.Channel,
					"error":   err.Error(),
				})
				continue
			}
			select {
			case out <- ev:
			case <-stop:
				return
			}
		}
	}
}
