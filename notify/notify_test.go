package notify_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/garnzell/riding-school/notify"
	"github.com/garnzell/riding-school/school"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubNotifier struct {
	calls int
	err   error
}

func (s *stubNotifier) MilestoneCrossed(context.Context, school.MilestoneCrossing) error {
	s.calls++
	return s.err
}

var crossing = school.MilestoneCrossing{
	StudentID: 7,
	Milestone: 20,
	Total:     20,
	Date:      school.MustDate("2024-06-12"),
	SlotID:    3,
}

func TestLogNotifier_WritesStructuredLine(t *testing.T) {
	var buf bytes.Buffer
	n := notify.NewLogNotifier(zerolog.New(&buf))

	require.NoError(t, n.MilestoneCrossed(context.Background(), crossing))

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "info", line["level"])
	assert.EqualValues(t, 7, line["student_id"])
	assert.EqualValues(t, 20, line["milestone"])
	assert.EqualValues(t, 3, line["slot_id"])
	assert.Equal(t, "2024-06-12", line["date"])
}

func TestMulti_DeliversToAllAndJoinsErrors(t *testing.T) {
	failing := &stubNotifier{err: errors.New("broker down")}
	ok := &stubNotifier{}

	err := notify.Multi{failing, ok}.MilestoneCrossed(context.Background(), crossing)

	assert.ErrorContains(t, err, "broker down")
	assert.Equal(t, 1, failing.calls)
	assert.Equal(t, 1, ok.calls)
}

func TestNewMilestoneEvent(t *testing.T) {
	at := time.Date(2024, 6, 12, 18, 30, 0, 0, time.UTC)

	body, err := json.Marshal(notify.NewMilestoneEvent(crossing, at))
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"event": "milestone.crossed",
		"student_id": 7,
		"milestone": 20,
		"total": 20,
		"date": "2024-06-12",
		"slot_id": 3,
		"occurred_at": "2024-06-12T18:30:00Z"
	}`, string(body))
}
