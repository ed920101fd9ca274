package audit

import (
	"context"
	"fmt"
	"sort"
	"time"

	"receiving/internal/docstore"
)

const Collection = "audit_logs"

// SystemActor is recorded when a change is made without an authenticated
// operator.
const SystemActor = "system"

type Entry struct {
	ID        string    `json:"id,omitempty"`
	BookingID string    `json:"bookingId"`
	Action    string    `json:"action"`
	Actor     string    `json:"actor"`
	Metadata  any       `json:"metadata,omitempty"`
	At        time.Time `json:"at"`
}

type Repository struct {
	store docstore.Store
}

func NewRepository(store docstore.Store) *Repository {
	return &Repository{store: store}
}

func (r *Repository) Insert(ctx context.Context, e Entry) error {
	if e.Actor == "" {
		e.Actor = SystemActor
	}
	e.ID = ""
	if _, err := r.store.Create(ctx, Collection, e); err != nil {
		return fmt.Errorf("insert audit entry: %w", err)
	}
	return nil
}

// ListByBooking returns a booking's audit trail, oldest first.
func (r *Repository) ListByBooking(ctx context.Context, bookingID string) ([]Entry, error) {
	recs, err := r.store.Query(ctx, Collection, docstore.Eq("bookingId", bookingID))
	if err != nil {
		return nil, fmt.Errorf("query audit entries: %w", err)
	}
	out := make([]Entry, 0, len(recs))
	for _, rec := range recs {
		var e Entry
		if err := rec.Decode(&e); err != nil {
			return nil, fmt.Errorf("decode audit entry %s: %w", rec.ID, err)
		}
		e.ID = rec.ID
		out = append(out, e)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].At.Before(out[j].At) })
	return out, nil
}
