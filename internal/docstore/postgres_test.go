package docstore

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildWhere(t *testing.T) {
	from := time.Date(2024, 3, 10, 3, 0, 0, 0, time.UTC)
	to := time.Date(2024, 3, 11, 2, 59, 59, 0, time.UTC)

	tests := []struct {
		name      string
		preds     []Predicate
		wantWhere string
		wantArgs  []any
	}{
		{
			name:      "collection only",
			wantWhere: "collection = $1",
			wantArgs:  []any{"bookings"},
		},
		{
			name:      "string equality",
			preds:     []Predicate{Eq("status", "scheduled")},
			wantWhere: "collection = $1 AND data->>$2::text = $3",
			wantArgs:  []any{"bookings", "status", "scheduled"},
		},
		{
			name:      "time range",
			preds:     []Predicate{Gte("scheduledDate", from), Lte("scheduledDate", to)},
			wantWhere: "collection = $1 AND (data->>$2::text)::timestamptz >= $3 AND (data->>$4::text)::timestamptz <= $5",
			wantArgs:  []any{"bookings", "scheduledDate", from, "scheduledDate", to},
		},
		{
			name:      "bool",
			preds:     []Predicate{Eq("isForecast", true)},
			wantWhere: "collection = $1 AND (data->>$2::text)::boolean = $3",
			wantArgs:  []any{"bookings", "isForecast", true},
		},
		{
			name:      "non-string values bind as text",
			preds:     []Predicate{Eq("volumes", 30)},
			wantWhere: "collection = $1 AND data->>$2::text = $3",
			wantArgs:  []any{"bookings", "volumes", "30"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			where, args, err := buildWhere("bookings", tt.preds)
			require.NoError(t, err)
			assert.Equal(t, tt.wantWhere, where)
			assert.Equal(t, tt.wantArgs, args)
		})
	}
}

func TestBuildWhere_RejectsUnsupportedOperators(t *testing.T) {
	_, _, err := buildWhere("bookings", []Predicate{{Field: "name", Op: "LIKE", Value: "a%"}})
	assert.ErrorContains(t, err, "unsupported operator")

	_, _, err = buildWhere("bookings", []Predicate{Gte("isForecast", true)})
	assert.ErrorContains(t, err, "not supported for bool")
}
