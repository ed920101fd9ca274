package booking

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"receiving/internal/docstore"
)

const Collection = "bookings"

// Repository maps bookings onto documents in the bookings collection.
type Repository struct {
	store docstore.Store
}

func NewRepository(store docstore.Store) *Repository {
	return &Repository{store: store}
}

func (r *Repository) Get(ctx context.Context, id string) (*Booking, error) {
	rec, err := r.store.Get(ctx, Collection, id)
	if err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return nil, bookingNotFound(id)
		}
		return nil, fmt.Errorf("get booking %s: %w", id, err)
	}
	return decode(*rec)
}

func (r *Repository) Create(ctx context.Context, b *Booking) (string, error) {
	doc := *b
	doc.ID, doc.CreatedAt, doc.UpdatedAt = "", nil, nil
	id, err := r.store.Create(ctx, Collection, doc)
	if err != nil {
		return "", fmt.Errorf("create booking: %w", err)
	}
	return id, nil
}

func (r *Repository) Update(ctx context.Context, id string, fields map[string]any) error {
	if err := r.store.Update(ctx, Collection, id, fields); err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return bookingNotFound(id)
		}
		return fmt.Errorf("update booking %s: %w", id, err)
	}
	return nil
}

func (r *Repository) Delete(ctx context.Context, id string) error {
	if err := r.store.Delete(ctx, Collection, id); err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return bookingNotFound(id)
		}
		return fmt.Errorf("delete booking %s: %w", id, err)
	}
	return nil
}

// Mutate hands fn the current booking and writes back the fields it
// returns, atomically with respect to other mutations of the same booking.
// Errors returned by fn pass through unwrapped.
func (r *Repository) Mutate(ctx context.Context, id string, fn func(b *Booking) (map[string]any, error)) error {
	var fnErr error
	err := r.store.Mutate(ctx, Collection, id, func(rec docstore.Record) (map[string]any, error) {
		b, err := decode(rec)
		if err != nil {
			return nil, err
		}
		fields, err := fn(b)
		fnErr = err
		return fields, err
	})
	switch {
	case err == nil:
		return nil
	case fnErr != nil:
		return fnErr
	case errors.Is(err, docstore.ErrNotFound):
		return bookingNotFound(id)
	default:
		return fmt.Errorf("mutate booking %s: %w", id, err)
	}
}

// Query returns matching bookings ordered by scheduled date. Forecasts,
// which have no date, sort last.
func (r *Repository) Query(ctx context.Context, preds ...docstore.Predicate) ([]Booking, error) {
	recs, err := r.store.Query(ctx, Collection, preds...)
	if err != nil {
		return nil, fmt.Errorf("query bookings: %w", err)
	}
	out := make([]Booking, 0, len(recs))
	for _, rec := range recs {
		b, err := decode(rec)
		if err != nil {
			return nil, err
		}
		out = append(out, *b)
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i].ScheduledDate, out[j].ScheduledDate
		switch {
		case a == nil:
			return false
		case b == nil:
			return true
		default:
			return a.Before(*b)
		}
	})
	return out, nil
}

func decode(rec docstore.Record) (*Booking, error) {
	var b Booking
	if err := rec.Decode(&b); err != nil {
		return nil, fmt.Errorf("decode booking %s: %w", rec.ID, err)
	}
	b.ID = rec.ID
	if !rec.CreatedAt.IsZero() {
		created, updated := rec.CreatedAt, rec.UpdatedAt
		b.CreatedAt, b.UpdatedAt = &created, &updated
	}
	return &b, nil
}
