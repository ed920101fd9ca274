package events

import (
	"context"
	"sync"
	"time"
)

// Routing keys for booking events.
const (
	BookingCreated        = "booking.created"
	BookingUpdated        = "booking.updated"
	BookingDeleted        = "booking.deleted"
	BookingStatusChanged  = "booking.status_changed"
	BookingHistoryChanged = "booking.history_changed"
)

type Event struct {
	BookingID  string    `json:"bookingId"`
	Action     string    `json:"action,omitempty"`
	Status     string    `json:"status,omitempty"`
	Index      *int      `json:"index,omitempty"`
	OccurredAt time.Time `json:"occurredAt"`
}

type Publisher interface {
	Publish(ctx context.Context, key string, ev Event) error
}

// Nop drops every event. Used when no broker is configured.
type Nop struct{}

func (Nop) Publish(context.Context, string, Event) error { return nil }

// Recorder keeps published events in memory.
type Recorder struct {
	mu     sync.Mutex
	Keys   []string
	Events []Event
}

func (r *Recorder) Publish(_ context.Context, key string, ev Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Keys = append(r.Keys, key)
	r.Events = append(r.Events, ev)
	return nil
}

func (r *Recorder) Snapshot() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.Keys...)
}
