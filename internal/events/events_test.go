package events

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecorder(t *testing.T) {
	var p Publisher = &Recorder{}
	idx := 2
	require.NoError(t, p.Publish(context.Background(), BookingHistoryChanged, Event{BookingID: "b1", Action: "delete", Index: &idx}))
	require.NoError(t, p.Publish(context.Background(), BookingDeleted, Event{BookingID: "b1"}))

	r := p.(*Recorder)
	assert.Equal(t, []string{BookingHistoryChanged, BookingDeleted}, r.Snapshot())
	require.NotNil(t, r.Events[0].Index)
	assert.Equal(t, 2, *r.Events[0].Index)

	assert.NoError(t, Nop{}.Publish(context.Background(), BookingCreated, Event{}))
}

func TestEvent_JSON(t *testing.T) {
	zero := 0
	b, err := json.Marshal(Event{
		BookingID:  "b1",
		Action:     "edit",
		Index:      &zero,
		OccurredAt: time.Date(2024, 3, 10, 15, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	assert.JSONEq(t, `{"bookingId":"b1","action":"edit","index":0,"occurredAt":"2024-03-10T15:00:00Z"}`, string(b))
}
