// Package docstore is a small JSON document store: records live in named
// collections, are addressed by an opaque id, and are merged at the top
// level on update.
package docstore

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

var ErrNotFound = errors.New("document not found")

type Record struct {
	ID        string
	Data      json.RawMessage
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Decode unmarshals the record payload into v.
func (r Record) Decode(v any) error {
	return json.Unmarshal(r.Data, v)
}

type Op string

const (
	OpEq  Op = "="
	OpGte Op = ">="
	OpLte Op = "<="
)

// Predicate filters on a top-level field. Value is a string, bool or
// time.Time; time values compare chronologically.
type Predicate struct {
	Field string
	Op    Op
	Value any
}

func Eq(field string, v any) Predicate  { return Predicate{Field: field, Op: OpEq, Value: v} }
func Gte(field string, v any) Predicate { return Predicate{Field: field, Op: OpGte, Value: v} }
func Lte(field string, v any) Predicate { return Predicate{Field: field, Op: OpLte, Value: v} }

// MutateFunc receives the current record and returns the fields to merge.
// Returning nil fields skips the write; returning an error aborts it.
type MutateFunc func(current Record) (map[string]any, error)

type Store interface {
	Get(ctx context.Context, collection, id string) (*Record, error)
	Create(ctx context.Context, collection string, data any) (string, error)
	Update(ctx context.Context, collection, id string, fields map[string]any) error
	Delete(ctx context.Context, collection, id string) error
	Query(ctx context.Context, collection string, preds ...Predicate) ([]Record, error)

	// Mutate is a read-modify-write of one document that no concurrent
	// Update or Mutate on the same document can interleave with.
	Mutate(ctx context.Context, collection, id string, fn MutateFunc) error
}

func encodeFields(fields map[string]any) ([]byte, error) {
	if fields == nil {
		fields = map[string]any{}
	}
	return json.Marshal(fields)
}
