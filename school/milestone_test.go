package school_test

import (
	"errors"
	"testing"

	"github.com/garnzell/riding-school/school"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// CARD ARITHMETIC
// =============================================================================

func TestCurrentMilestone(t *testing.T) {
	tests := []struct {
		total     int
		milestone int
		ok        bool
	}{
		{0, 0, false},
		{9, 0, false},
		{10, 10, true},
		{19, 10, true},
		{27, 20, true},
		{30, 30, true},
	}
	for _, tt := range tests {
		m, ok := school.CurrentMilestone(tt.total)
		assert.Equal(t, tt.ok, ok, "total %d", tt.total)
		assert.Equal(t, tt.milestone, m, "total %d", tt.total)
	}
}

func TestCrossed(t *testing.T) {
	tests := []struct {
		name          string
		before, after int
		milestone     int
		ok            bool
	}{
		{"ninth lesson", 8, 9, 0, false},
		{"tenth lesson", 9, 10, 10, true},
		{"eleventh lesson", 10, 11, 0, false},
		{"twentieth lesson", 19, 20, 20, true},
		{"excluded lesson", 9, 9, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, ok := school.Crossed(tt.before, tt.after)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.milestone, m)
		})
	}
}

func TestBuildReportInfo(t *testing.T) {
	tests := []struct {
		name       string
		total      int
		printed    map[int]bool
		milestones []school.MilestoneStatus
		progress   int
	}{
		{
			name:       "below first card",
			total:      9,
			milestones: []school.MilestoneStatus{},
			progress:   9,
		},
		{
			name:       "first card due",
			total:      10,
			milestones: []school.MilestoneStatus{{Milestone: 10}},
		},
		{
			name:       "previous not printed stays hidden",
			total:      27,
			milestones: []school.MilestoneStatus{{Milestone: 20}},
			progress:   7,
		},
		{
			name:       "previous printed is shown",
			total:      27,
			printed:    map[int]bool{10: true},
			milestones: []school.MilestoneStatus{{Milestone: 10, IsPrinted: true}, {Milestone: 20}},
			progress:   7,
		},
		{
			name:       "both printed",
			total:      30,
			printed:    map[int]bool{20: true, 30: true},
			milestones: []school.MilestoneStatus{{Milestone: 20, IsPrinted: true}, {Milestone: 30, IsPrinted: true}},
		},
		{
			name:       "no lessons",
			total:      0,
			milestones: []school.MilestoneStatus{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			info := school.BuildReportInfo(school.LessonTotal{StudentID: 1, StudentName: "Anna", Total: tt.total}, tt.printed)

			assert.Equal(t, tt.total, info.TotalLessons)
			assert.Equal(t, tt.milestones, info.Milestones)
			assert.Equal(t, tt.progress, info.ProgressTowardsNext)
		})
	}
}

func TestValidateMilestone(t *testing.T) {
	tests := []struct {
		name      string
		milestone int
		total     int
		want      error
	}{
		{"reached", 10, 10, nil},
		{"older card", 10, 27, nil},
		{"zero", 0, 27, school.ErrInvalidMilestone},
		{"negative", -10, 27, school.ErrInvalidMilestone},
		{"not a multiple", 15, 27, school.ErrInvalidMilestone},
		{"not reached", 30, 27, school.ErrMilestoneNotReached},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := school.ValidateMilestone(7, tt.milestone, tt.total)
			if tt.want == nil {
				assert.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, tt.want)
			assert.True(t, school.IsClientError(err))

			var me *school.MilestoneError
			require.True(t, errors.As(err, &me))
			assert.Equal(t, tt.total, me.Total)
		})
	}
}

func TestMilestoneOffset(t *testing.T) {
	assert.Equal(t, 0, school.MilestoneOffset(10))
	assert.Equal(t, 10, school.MilestoneOffset(20))
}

func TestCountPolicy(t *testing.T) {
	assert.True(t, school.CountPolicy{}.Counts(true))
	assert.True(t, school.CountPolicy{ExcludeSingleLessons: true}.Counts(false))
	assert.False(t, school.CountPolicy{ExcludeSingleLessons: true}.Counts(true))
}
