package school_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/garnzell/riding-school/school"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDate(t *testing.T) {
	d, err := school.ParseDate("2024-06-12")
	require.NoError(t, err)
	assert.Equal(t, "2024-06-12", d.String())
	assert.Equal(t, time.Wednesday, d.Weekday())

	for _, bad := range []string{"", "12.06.2024", "2024-13-01", "2024-02-30"} {
		_, err := school.ParseDate(bad)
		assert.ErrorIs(t, err, school.ErrInvalidDate, bad)
	}
}

func TestDate_ZeroAndArithmetic(t *testing.T) {
	var zero school.Date
	assert.True(t, zero.IsZero())
	assert.Equal(t, "", zero.String())

	d := school.MustDate("2024-02-28")
	assert.Equal(t, "2024-03-01", d.AddDays(2).String())
	assert.True(t, d.Before(d.AddDays(1)))
	assert.True(t, d.Equal(school.NewDate(2024, time.February, 28)))
}

func TestDate_JSON(t *testing.T) {
	var v struct {
		Date school.Date `json:"date"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"date":"2024-06-12"}`), &v))
	assert.Equal(t, "2024-06-12", v.Date.String())

	out, err := json.Marshal(v)
	require.NoError(t, err)
	assert.JSONEq(t, `{"date":"2024-06-12"}`, string(out))

	err = json.Unmarshal([]byte(`{"date":"tomorrow"}`), &v)
	assert.ErrorIs(t, err, school.ErrInvalidDate)
}

func TestParseTimeOfDay(t *testing.T) {
	tests := []struct {
		in   string
		want school.TimeOfDay
		ok   bool
	}{
		{"09:00", "09:00", true},
		{"9:05", "09:05", true},
		{"23:59", "23:59", true},
		{"24:00", "", false},
		{"9am", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		got, err := school.ParseTimeOfDay(tt.in)
		if !tt.ok {
			assert.ErrorIs(t, err, school.ErrInvalidTime, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got)
	}
}

func TestParseWeekday(t *testing.T) {
	wd, err := school.ParseWeekday(0)
	require.NoError(t, err)
	assert.Equal(t, time.Sunday, wd)

	_, err = school.ParseWeekday(7)
	assert.ErrorIs(t, err, school.ErrInvalidWeekday)
	_, err = school.ParseWeekday(-1)
	assert.ErrorIs(t, err, school.ErrInvalidWeekday)
}
