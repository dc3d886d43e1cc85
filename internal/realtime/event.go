// Package realtime carries row-level change notifications from writers to
// live views.
package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type EventType string

const (
	EventInsert EventType = "INSERT"
	EventUpdate EventType = "UPDATE"
	EventDelete EventType = "DELETE"
)

const (
	TableDrawings     = "drawings"
	TableComments     = "comments"
	TableReactions    = "reactions"
	TableCommentLikes = "comment_likes"
)

var ErrSubscriptionClosed = errors.New("subscription closed")

// ChangeEvent describes one insert, update or delete of a row scoped to a drawing.
type ChangeEvent struct {
	Table     string          `json:"table"`
	Type      EventType       `json:"type"`
	ID        uuid.UUID       `json:"id"`
	DrawingID uuid.UUID       `json:"drawing_id"`
	Record    json.RawMessage `json:"record,omitempty"`
	At        time.Time       `json:"at"`
}

// Decode unmarshals the row payload into v.
func (e ChangeEvent) Decode(v any) error {
	if len(e.Record) == 0 {
		return fmt.Errorf("%s %s event has no record", e.Table, e.Type)
	}
	return json.Unmarshal(e.Record, v)
}

// Topic names the feed for one table's rows attached to a drawing.
func Topic(table string, drawingID uuid.UUID) string {
	return fmt.Sprintf("%s:drawing=%s", table, drawingID)
}

// GalleryTopic carries drawing rows themselves, which are not scoped to a
// parent drawing.
const GalleryTopic = TableDrawings + ":all"

// TopicFor is the topic an event for table is published on.
func TopicFor(table string, drawingID uuid.UUID) string {
	if table == TableDrawings {
		return GalleryTopic
	}
	return Topic(table, drawingID)
}

// NewEvent builds an event, encoding record when it is non-nil.
func NewEvent(table string, typ EventType, id, drawingID uuid.UUID, record any) (ChangeEvent, error) {
	ev := ChangeEvent{
		Table:     table,
		Type:      typ,
		ID:        id,
		DrawingID: drawingID,
		At:        time.Now().UTC(),
	}
	if record != nil {
		data, err := json.Marshal(record)
		if err != nil {
			return ChangeEvent{}, fmt.Errorf("encoding %s record: %w", table, err)
		}
		ev.Record = data
	}
	return ev, nil
}

type Publisher interface {
	Publish(ctx context.Context, topic string, ev ChangeEvent) error
}

// Feed is a Publisher that can also be subscribed to.
type Feed interface {
	Publisher
	Subscribe(ctx context.Context, topics ...string) (*Subscription, error)
}

// PublishChange builds an event for a row and publishes it on TopicFor(table, drawingID).
func PublishChange(ctx context.Context, p Publisher, table string, typ EventType, id, drawingID uuid.UUID, record any) error {
	if p == nil {
		return nil
	}
	ev, err := NewEvent(table, typ, id, drawingID, record)
	if err != nil {
		return err
	}
	if err := p.Publish(ctx, TopicFor(table, drawingID), ev); err != nil {
		return fmt.Errorf("publishing %s %s: %w", table, typ, err)
	}
	return nil
}
