package realtime

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/HammerMeetNail/dailydoodle/internal/logging"
)

type ViewState int

const (
	ViewIdle ViewState = iota
	ViewSubscribed
	ViewMerged
)

func (s ViewState) String() string {
	switch s {
	case ViewIdle:
		return "idle"
	case ViewSubscribed:
		return "subscribed"
	case ViewMerged:
		return "merged"
	default:
		return "unknown"
	}
}

// View is an in-memory list kept in step with a change feed. Merges are keyed
// by identity so replaying an event leaves the list unchanged.
type View[T any] struct {
	mu    sync.Mutex
	items []T
	id    func(T) uuid.UUID
	state ViewState
}

func NewView[T any](initial []T, id func(T) uuid.UUID) *View[T] {
	items := make([]T, len(initial))
	copy(items, initial)
	return &View[T]{items: items, id: id}
}

func (v *View[T]) State() ViewState {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.state
}

// Items returns a copy of the current list.
func (v *View[T]) Items() []T {
	v.mu.Lock()
	defer v.mu.Unlock()
	out := make([]T, len(v.items))
	copy(out, v.items)
	return out
}

// Apply merges ev and reports whether the list changed.
func (v *View[T]) Apply(ev ChangeEvent) (bool, error) {
	var record T
	if ev.Type == EventInsert || ev.Type == EventUpdate {
		if err := ev.Decode(&record); err != nil {
			return false, fmt.Errorf("decoding %s record: %w", ev.Table, err)
		}
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	idx := v.indexOf(ev.ID)
	changed := false
	switch ev.Type {
	case EventInsert:
		if idx < 0 {
			v.items = append(v.items, record)
			changed = true
		}
	case EventUpdate:
		if idx < 0 {
			v.items = append(v.items, record)
		} else {
			v.items[idx] = record
		}
		changed = true
	case EventDelete:
		if idx >= 0 {
			v.items = append(v.items[:idx], v.items[idx+1:]...)
			changed = true
		}
	default:
		return false, fmt.Errorf("unknown event type %q", ev.Type)
	}
	if v.state != ViewIdle {
		v.state = ViewMerged
	}
	return changed, nil
}

func (v *View[T]) indexOf(id uuid.UUID) int {
	for i, item := range v.items {
		if v.id(item) == id {
			return i
		}
	}
	return -1
}

func (v *View[T]) setState(s ViewState) {
	v.mu.Lock()
	v.state = s
	v.mu.Unlock()
}

// Sync merges events from sub until ctx ends or the subscription closes,
// calling onChange with a snapshot after every effective change. Events that
// cannot be decoded are skipped. The subscription is closed on return.
func (v *View[T]) Sync(ctx context.Context, sub *Subscription, onChange func([]T)) error {
	defer sub.Close()
	defer v.setState(ViewIdle)

	v.setState(ViewSubscribed)
	for {
		ev, err := sub.Next(ctx)
		if err != nil {
			if errors.Is(err, ErrSubscriptionClosed) || errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		}
		changed, err := v.Apply(ev)
		if err != nil {
			logging.Warn("skipping change event", map[string]interface{}{
				"table": ev.Table,
				"id":    ev.ID.String(),
				"error": err.Error(),
			})
			continue
		}
		if changed && onChange != nil {
			onChange(v.Items())
		}
		v.setState(ViewSubscribed)
	}
}
