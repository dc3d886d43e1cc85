package realtime

import (
	"context"
	"sync"
)

// Subscription is a handle on a live stream of change events. Events are read
// with Next until the subscription is closed or its source ends.
type Subscription struct {
	topics  []string
	events  <-chan ChangeEvent
	release func() error

	once     sync.Once
	closeErr error
	done     chan struct{}
}

func newSubscription(topics []string, events <-chan ChangeEvent, release func() error) *Subscription {
	return &Subscription{
		topics:  topics,
		events:  events,
		release: release,
		done:    make(chan struct{}),
	}
}

func (s *Subscription) Topics() []string {
	return append([]string(nil), s.topics...)
}

// Next blocks until an event arrives, ctx ends or the subscription closes.
func (s *Subscription) Next(ctx context.Context) (ChangeEvent, error) {
	select {
	case <-s.done:
		return ChangeEvent{}, ErrSubscriptionClosed
	default:
	}

	select {
	case ev, ok := <-s.events:
		if !ok {
			return ChangeEvent{}, ErrSubscriptionClosed
		}
		return ev, nil
	case <-s.done:
		return ChangeEvent{}, ErrSubscriptionClosed
	case <-ctx.Done():
		return ChangeEvent{}, ctx.Err()
	}
}

// Close releases the listener. Safe to call more than once.
func (s *Subscription) Close() error {
	s.once.Do(func() {
		close(s.done)
		if s.release != nil {
			s.closeErr = s.release()
		}
	})
	return s.closeErr
}

// Done is closed once Close has been called.
func (s *Subscription) Done() <-chan struct{} {
	return s.done
}
