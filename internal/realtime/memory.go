package realtime

import (
	"context"
	"sync"

	"github.com/HammerMeetNail/dailydoodle/internal/logging"
)

const defaultBuffer = 64

// MemoryFeed fans events out inside a single process.
type MemoryFeed struct {
	mu     sync.Mutex
	subs   map[string]map[*memoryListener]struct{}
	buffer int
}

type memoryListener struct {
	ch     chan ChangeEvent
	closed bool
}

func NewMemoryFeed() *MemoryFeed {
	return &MemoryFeed{
		subs:   make(map[string]map[*memoryListener]struct{}),
		buffer: defaultBuffer,
	}
}

// Publish never blocks; a listener whose buffer is full misses the event.
func (f *MemoryFeed) Publish(ctx context.Context, topic string, ev ChangeEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	for l := range f.subs[topic] {
		select {
		case l.ch <- ev:
		default:
			logging.Warn("dropping change event for slow listener", map[string]interface{}{
				"topic": topic,
				"type":  string(ev.Type),
			})
		}
	}
	return nil
}

func (f *MemoryFeed) Subscribe(ctx context.Context, topics ...string) (*Subscription, error) {
	l := &memoryListener{ch: make(chan ChangeEvent, f.buffer)}

	f.mu.Lock()
	for _, topic := range topics {
		set := f.subs[topic]
		if set == nil {
			set = make(map[*memoryListener]struct{})
			f.subs[topic] = set
		}
		set[l] = struct{}{}
	}
	f.mu.Unlock()

	release := func() error {
		f.mu.Lock()
		defer f.mu.Unlock()
		for _, topic := range topics {
			if set := f.subs[topic]; set != nil {
				delete(set, l)
				if len(set) == 0 {
					delete(f.subs, topic)
				}
			}
		}
		if !l.closed {
			l.closed = true
			close(l.ch)
		}
		return nil
	}

	return newSubscription(topics, l.ch, release), nil
}

// Listeners reports how many subscriptions are attached to topic.
func (f *MemoryFeed) Listeners(topic string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.subs[topic])
}
