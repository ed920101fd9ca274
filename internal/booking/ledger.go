package booking

import (
	"fmt"
	"time"
)

// Entry is one row of a booking's status ledger.
type Entry struct {
	Status        Status     `json:"status"`
	Timestamp     time.Time  `json:"timestamp"`
	Note          string     `json:"note,omitempty"`
	ManuallyAdded bool       `json:"manuallyAdded,omitempty"`
	EditedAt      *time.Time `json:"editedAt,omitempty"`
}

// EntryPatch carries the fields an edit replaces. Nil fields keep their
// current value.
type EntryPatch struct {
	Status    *Status
	Note      *string
	Timestamp *time.Time
}

// The ledger helpers below never modify their input slice. Entry 0 is the
// founding entry written with the booking.

func foundingEntry(at time.Time) Entry {
	return Entry{Status: InitialStatus, Timestamp: at}
}

func appendEntry(history []Entry, e Entry) []Entry {
	out := make([]Entry, 0, len(history)+1)
	out = append(out, history...)
	return append(out, e)
}

func checkIndex(history []Entry, index int) error {
	if index < 0 || index >= len(history) {
		return ValidationError{
			Code:    CodeInvalidIndex,
			Message: fmt.Sprintf("history index %d out of range [0, %d)", index, len(history)),
		}
	}
	return nil
}

func editEntry(history []Entry, index int, p EntryPatch, now time.Time) ([]Entry, Entry, error) {
	if err := checkIndex(history, index); err != nil {
		return nil, Entry{}, err
	}
	out := append([]Entry(nil), history...)

	e := out[index]
	if p.Status != nil {
		e.Status = *p.Status
	}
	if p.Note != nil {
		e.Note = *p.Note
	}
	if p.Timestamp != nil {
		e.Timestamp = *p.Timestamp
	}
	editedAt := now
	e.EditedAt = &editedAt
	out[index] = e
	return out, e, nil
}

func deleteEntry(history []Entry, index int) ([]Entry, Entry, error) {
	if err := checkIndex(history, index); err != nil {
		return nil, Entry{}, err
	}
	if index == 0 {
		return nil, Entry{}, ValidationError{Code: CodeFoundingEntry, Message: "the founding history entry cannot be removed"}
	}
	removed := history[index]
	out := make([]Entry, 0, len(history)-1)
	out = append(out, history[:index]...)
	out = append(out, history[index+1:]...)
	return out, removed, nil
}

func resetHistory(history []Entry) ([]Entry, error) {
	if len(history) <= 1 {
		return nil, ValidationError{Code: CodeHistoryMinimal, Message: "history is already at its minimal state"}
	}
	return []Entry{history[0]}, nil
}
