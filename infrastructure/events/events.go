// Package events decouples request-time enqueue calls from later job
// execution. Channels are named topics; delivery is at-least-once, so
// handlers must be idempotent.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// Event is the envelope published on a channel.
type Event struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Timestamp time.Time       `json:"timestamp"`
	Data      json.RawMessage `json:"data,omitempty"`
}

// NewEvent builds an envelope with the payload marshaled into Data.
func NewEvent(name string, payload any) (*Event, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal event payload: %w", err)
	}
	return &Event{
		ID:        fmt.Sprintf("evt_%d", time.Now().UnixNano()),
		Name:      name,
		Timestamp: time.Now().UTC(),
		Data:      data,
	}, nil
}

// Decode unmarshals the payload into out.
func (e *Event) Decode(out any) error {
	return json.Unmarshal(e.Data, out)
}

// Handler processes one delivered event.
type Handler func(ctx context.Context, event *Event)

// Bus is the publish/subscribe contract.
type Bus interface {
	Publish(ctx context.Context, channel string, event *Event) error

	// Subscribe registers a handler on a channel. The label names the
	// subscriber in logs.
	Subscribe(channel, label string, handler Handler) error

	Close() error
}
