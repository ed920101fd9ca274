package booking

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"receiving/internal/api"
	"receiving/internal/audit"
	"receiving/internal/client"
	"receiving/internal/docstore"
	"receiving/internal/events"
)

// accessKeyLength is the length of an electronic invoice access key.
const accessKeyLength = 44

// Service implements the booking operations exposed to the HTTP layer.
//
// Ledger operations read and write the booking inside one Repository.Mutate
// call, so concurrent requests against the same booking cannot drop each
// other's changes. Only SetStatus and ResetHistory move Booking.Status;
// manual entries, edits and deletions leave it as it was.
type Service struct {
	Bookings *Repository
	Clients  client.Directory
	Events   events.Publisher
	Log      *logrus.Logger

	// Audit records who made each change. Nil disables the trail.
	Audit *audit.Repository

	// Location is the zone calendar days are read in.
	Location *time.Location

	// InvoiceNumber derives an invoice number from an access key when the
	// caller does not supply one. Nil leaves the number empty.
	InvoiceNumber func(accessKey string) string

	Now func() time.Time
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

func (s *Service) loc() *time.Location {
	if s.Location != nil {
		return s.Location
	}
	return time.Local
}

func (s *Service) CreateBooking(ctx context.Context, in CreateInput) (*Result, error) {
	in.ClientRef = strings.TrimSpace(in.ClientRef)
	in.ScheduledDate = strings.TrimSpace(in.ScheduledDate)
	if err := in.Validate(); err != nil {
		return nil, err
	}
	volumes, err := ParseVolumes(in.Volumes)
	if err != nil {
		return nil, err
	}

	cl, err := s.resolveClient(ctx, in.ClientRef)
	if err != nil {
		return nil, err
	}

	var warnings []string
	date, warn := NormalizeDate(in.ScheduledDate, in.IsForecast, s.loc())
	if warn != nil {
		s.warnDate("CreateBooking", "", warn)
		warnings = append(warnings, warn.Error())
	}

	invoice := in.InvoiceNumber
	if invoice == "" && s.InvoiceNumber != nil {
		invoice = s.InvoiceNumber(in.AccessKey)
	}

	now := s.now()
	b := &Booking{
		ClientRef:      in.ClientRef,
		ClientSnapshot: ClientSnapshot{Name: cl.Name, TaxID: cl.TaxID},
		InvoiceNumber:  invoice,
		AccessKey:      in.AccessKey,
		ScheduledDate:  date,
		IsForecast:     in.IsForecast,
		Volumes:        volumes,
		Notes:          in.Notes,
		Status:         InitialStatus,
		History:        []Entry{foundingEntry(now)},
	}

	id, err := s.Bookings.Create(ctx, b)
	if err != nil {
		return nil, err
	}
	b.ID = id
	b.CreatedAt, b.UpdatedAt = &now, &now

	s.publish(ctx, events.BookingCreated, events.Event{BookingID: id, Status: string(b.Status)})
	return &Result{Booking: b, Warnings: warnings}, nil
}

func (s *Service) GetBooking(ctx context.Context, id string) (*Booking, error) {
	return s.Bookings.Get(ctx, id)
}

func (s *Service) UpdateBooking(ctx context.Context, id string, in UpdateInput) (*Result, error) {
	var volumes *int64
	if len(in.Volumes) > 0 {
		v, err := ParseVolumes(in.Volumes)
		if err != nil {
			return nil, err
		}
		volumes = &v
	}

	// The client is resolved before the booking is locked. Lookups may hit
	// the same store or Redis and must not run under the lock.
	var ref string
	var snapshot ClientSnapshot
	if in.ClientRef != nil {
		ref = strings.TrimSpace(*in.ClientRef)
	}
	if ref != "" {
		cl, err := s.resolveClient(ctx, ref)
		if err != nil {
			return nil, err
		}
		snapshot = ClientSnapshot{Name: cl.Name, TaxID: cl.TaxID}
	}

	var warnings []string
	var changed bool
	err := s.Bookings.Mutate(ctx, id, func(cur *Booking) (map[string]any, error) {
		fields := map[string]any{}
		next := *cur

		if in.InvoiceNumber != nil && *in.InvoiceNumber != "" {
			next.InvoiceNumber = *in.InvoiceNumber
			fields["invoiceNumber"] = next.InvoiceNumber
		}
		if in.AccessKey != nil && *in.AccessKey != "" {
			next.AccessKey = *in.AccessKey
			fields["accessKey"] = next.AccessKey
		}
		if in.IsForecast != nil {
			next.IsForecast = *in.IsForecast
			fields["isForecast"] = next.IsForecast
		}
		if in.ScheduledDate.Set {
			// An explicit null or empty string clears the date.
			date, warn := NormalizeDate(in.ScheduledDate.Value, false, s.loc())
			if warn != nil {
				s.warnDate("UpdateBooking", id, warn)
				warnings = append(warnings, warn.Error())
			}
			next.ScheduledDate = date
			fields["scheduledDate"] = date
		}
		if next.IsForecast && next.ScheduledDate != nil {
			next.ScheduledDate = nil
			fields["scheduledDate"] = nil
		}
		if volumes != nil {
			next.Volumes = *volumes
			fields["volumes"] = next.Volumes
		}
		if in.Notes != nil {
			next.Notes = *in.Notes
			fields["notes"] = next.Notes
		}
		if ref != "" && ref != cur.ClientRef {
			fields["clientRef"] = ref
			fields["clientSnapshot"] = snapshot
		}

		if len(fields) == 0 {
			return nil, nil
		}
		changed = true
		return fields, nil
	})
	if err != nil {
		return nil, err
	}

	updated, err := s.Bookings.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if changed {
		s.publish(ctx, events.BookingUpdated, events.Event{BookingID: id})
	}
	return &Result{Booking: updated, Warnings: warnings}, nil
}

func (s *Service) DeleteBooking(ctx context.Context, id string) error {
	if err := s.Bookings.Delete(ctx, id); err != nil {
		return err
	}
	s.publish(ctx, events.BookingDeleted, events.Event{BookingID: id})
	return nil
}

// SetStatus records an automatic transition: a new ledger entry stamped
// now, and Booking.Status moved to match it.
func (s *Service) SetStatus(ctx context.Context, id, status string) (*Booking, error) {
	st, err := ParseStatus(status)
	if err != nil {
		return nil, err
	}

	var updated *Booking
	var prev Status
	err = s.Bookings.Mutate(ctx, id, func(cur *Booking) (map[string]any, error) {
		prev = cur.Status
		next := *cur
		next.History = appendEntry(cur.History, Entry{Status: st, Timestamp: s.now()})
		next.Status = st
		updated = &next
		return map[string]any{"status": next.Status, "history": next.History}, nil
	})
	if err != nil {
		return nil, err
	}

	if s.Log != nil {
		s.Log.WithFields(logrus.Fields{"bookingId": id, "from": prev, "to": st}).Debug("status changed")
	}
	s.publish(ctx, events.BookingStatusChanged, events.Event{BookingID: id, Status: string(st)})
	return updated, nil
}

func (s *Service) GetHistory(ctx context.Context, id string) (*HistoryView, error) {
	b, err := s.Bookings.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	entries := b.History
	if entries == nil {
		entries = []Entry{}
	}
	return &HistoryView{BookingID: b.ID, CurrentStatus: b.Status, Entries: entries}, nil
}

// AppendHistoryEntry adds a caller-authored entry at the end of the ledger.
// The booking's current status is not changed.
func (s *Service) AppendHistoryEntry(ctx context.Context, id string, in ManualEntryInput) (*Entry, error) {
	st, err := ParseStatus(in.Status)
	if err != nil {
		return nil, err
	}
	at := s.now()
	if strings.TrimSpace(in.Timestamp) != "" {
		if at, err = ParseTimestamp(in.Timestamp, s.loc()); err != nil {
			return nil, err
		}
	}
	e := Entry{Status: st, Timestamp: at, Note: in.Note, ManuallyAdded: true}

	err = s.Bookings.Mutate(ctx, id, func(cur *Booking) (map[string]any, error) {
		return map[string]any{"history": appendEntry(cur.History, e)}, nil
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, events.BookingHistoryChanged, events.Event{BookingID: id, Action: "append", Status: string(st)})
	return &e, nil
}

// EditHistoryEntry merges the supplied fields onto the entry at index.
// The founding entry may be edited. The booking's current status is not
// recomputed.
func (s *Service) EditHistoryEntry(ctx context.Context, id string, index int, in EntryEditInput) (*Entry, error) {
	var patch EntryPatch
	if in.Status != nil && *in.Status != "" {
		st, err := ParseStatus(*in.Status)
		if err != nil {
			return nil, err
		}
		patch.Status = &st
	}
	if in.Note != nil {
		patch.Note = in.Note
	}
	if in.Timestamp != nil && strings.TrimSpace(*in.Timestamp) != "" {
		at, err := ParseTimestamp(*in.Timestamp, s.loc())
		if err != nil {
			return nil, err
		}
		patch.Timestamp = &at
	}

	var edited Entry
	err := s.Bookings.Mutate(ctx, id, func(cur *Booking) (map[string]any, error) {
		history, e, err := editEntry(cur.History, index, patch, s.now())
		if err != nil {
			return nil, err
		}
		edited = e
		return map[string]any{"history": history}, nil
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, events.BookingHistoryChanged, events.Event{BookingID: id, Action: "edit", Index: &index})
	return &edited, nil
}

// DeleteHistoryEntry removes the entry at index and returns it. Later
// entries shift down by one. The booking's current status is not
// recomputed.
func (s *Service) DeleteHistoryEntry(ctx context.Context, id string, index int) (*Entry, error) {
	var removed Entry
	err := s.Bookings.Mutate(ctx, id, func(cur *Booking) (map[string]any, error) {
		history, e, err := deleteEntry(cur.History, index)
		if err != nil {
			return nil, err
		}
		removed = e
		return map[string]any{"history": history}, nil
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, events.BookingHistoryChanged, events.Event{BookingID: id, Action: "delete", Index: &index})
	return &removed, nil
}

// ResetHistory truncates the ledger to its founding entry and rolls the
// booking's status back to that entry's status.
func (s *Service) ResetHistory(ctx context.Context, id string) ([]Entry, error) {
	var history []Entry
	err := s.Bookings.Mutate(ctx, id, func(cur *Booking) (map[string]any, error) {
		h, err := resetHistory(cur.History)
		if err != nil {
			return nil, err
		}
		history = h
		return map[string]any{"history": h, "status": h[0].Status}, nil
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, events.BookingHistoryChanged, events.Event{BookingID: id, Action: "reset", Status: string(history[0].Status)})
	return history, nil
}

func (s *Service) ListBookings(ctx context.Context, f Filter) ([]Booking, error) {
	var preds []docstore.Predicate
	if f.Status != "" {
		st, err := ParseStatus(f.Status)
		if err != nil {
			return nil, err
		}
		preds = append(preds, docstore.Eq("status", string(st)))
	}
	if f.ClientRef != "" {
		preds = append(preds, docstore.Eq("clientRef", f.ClientRef))
	}
	if f.Date != "" {
		from, to, err := DayBounds(f.Date, s.loc())
		if err != nil {
			return nil, err
		}
		preds = append(preds, docstore.Gte("scheduledDate", from), docstore.Lte("scheduledDate", to))
	}
	if f.Month != "" {
		from, to, err := MonthBounds(f.Month, s.loc())
		if err != nil {
			return nil, err
		}
		preds = append(preds, docstore.Gte("scheduledDate", from), docstore.Lte("scheduledDate", to))
	}
	return s.Bookings.Query(ctx, preds...)
}

// SearchBookings matches term against invoice numbers, falling back to an
// exact access key match when term has the length of one.
func (s *Service) SearchBookings(ctx context.Context, term string) ([]Booking, error) {
	term = strings.TrimSpace(term)
	if term == "" {
		return nil, ValidationError{Code: CodeSearchTerm, Message: "search term is required"}
	}

	number := term
	if s.InvoiceNumber != nil {
		if n := s.InvoiceNumber(term); n != "" {
			number = n
		}
	}
	out, err := s.Bookings.Query(ctx, docstore.Eq("invoiceNumber", number))
	if err != nil {
		return nil, err
	}
	if len(out) == 0 && len(term) == accessKeyLength {
		return s.Bookings.Query(ctx, docstore.Eq("accessKey", term))
	}
	return out, nil
}

func (s *Service) resolveClient(ctx context.Context, ref string) (*client.Client, error) {
	cl, err := s.Clients.Lookup(ctx, ref)
	if err != nil {
		if errors.Is(err, client.ErrNotFound) {
			return nil, &NotFoundError{Resource: "client", ID: ref}
		}
		return nil, fmt.Errorf("lookup client %s: %w", ref, err)
	}
	return cl, nil
}

// AuditTrail lists who changed a booking and how. The trail outlives the
// booking itself.
func (s *Service) AuditTrail(ctx context.Context, id string) ([]audit.Entry, error) {
	if s.Audit == nil {
		return []audit.Entry{}, nil
	}
	return s.Audit.ListByBooking(ctx, id)
}

// publish announces a completed write and appends it to the audit trail.
// Neither can fail the write.
func (s *Service) publish(ctx context.Context, key string, ev events.Event) {
	ev.OccurredAt = s.now()
	fields := logrus.Fields{
		"module":    "booking",
		"event":     key,
		"bookingId": ev.BookingID,
	}

	if s.Events != nil {
		if err := s.Events.Publish(ctx, key, ev); err != nil && s.Log != nil {
			s.Log.WithFields(fields).WithError(err).Warn("publish event failed")
		}
	}

	if s.Audit != nil {
		var actor string
		if id := api.IdentityFromContext(ctx); id != nil {
			actor = id.Subject
		}
		err := s.Audit.Insert(ctx, audit.Entry{
			BookingID: ev.BookingID,
			Action:    key,
			Actor:     actor,
			Metadata:  ev,
			At:        ev.OccurredAt,
		})
		if err != nil && s.Log != nil {
			s.Log.WithFields(fields).WithError(err).Warn("write audit entry failed")
		}
	}
}

func (s *Service) warnDate(funcName, id string, warn *DateWarning) {
	if s.Log == nil {
		return
	}
	s.Log.WithFields(logrus.Fields{
		"module":    "booking",
		"funcName":  funcName,
		"bookingId": id,
		"input":     warn.Input,
	}).Warn("invalid date, storing booking without one")
}
