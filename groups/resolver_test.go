package groups_test

import (
	"context"
	"testing"
	"time"

	"github.com/garnzell/riding-school/groups"
	"github.com/garnzell/riding-school/schedule"
	"github.com/garnzell/riding-school/school"
	"github.com/garnzell/riding-school/store/sqlite"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestResolver(t *testing.T) (*groups.Resolver, *sqlite.Store) {
	store, err := sqlite.New(":memory:", zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return groups.NewResolver(store, zerolog.Nop()), store
}

func createStudents(t *testing.T, store *sqlite.Store, names ...string) []school.StudentID {
	var ids []school.StudentID
	for _, name := range names {
		id, err := store.CreateStudent(context.Background(), school.Student{Name: name})
		require.NoError(t, err)
		ids = append(ids, id)
	}
	return ids
}

// 2024-06-12 is a Wednesday.
var wednesday = school.MustDate("2024-06-12")

func TestGroupsForDate_MatchesWeekday(t *testing.T) {
	// GIVEN: Groups on Wednesday at 17:00 and 09:00, and one on Thursday
	// WHEN: Resolving 2024-06-12 (a Wednesday)
	// THEN: Only the Wednesday groups, earliest first
	resolver, _ := newTestResolver(t)
	ctx := context.Background()

	_, err := resolver.Create(ctx, school.RiderGroup{Name: "Evening", Weekday: time.Wednesday, Time: "17:00"})
	require.NoError(t, err)
	_, err = resolver.Create(ctx, school.RiderGroup{Name: "Morning", Weekday: time.Wednesday, Time: "9:00"})
	require.NoError(t, err)
	_, err = resolver.Create(ctx, school.RiderGroup{Name: "Thursday", Weekday: time.Thursday, Time: "17:00"})
	require.NoError(t, err)

	got, err := resolver.GroupsForDate(ctx, wednesday)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "Morning", got[0].Name)
	assert.Equal(t, school.TimeOfDay("09:00"), got[0].Time)
	assert.Equal(t, "Evening", got[1].Name)

	none, err := resolver.GroupsForDate(ctx, wednesday.AddDays(3))
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestLoadForSchedule_CancellationOverlay(t *testing.T) {
	// GIVEN: A Wednesday group with Zoe, Anna and Ben; Ben cancelled on 2024-06-12
	// WHEN: Loading the roster for that date and for the next week
	// THEN: Ben is inactive only on 2024-06-12
	resolver, store := newTestResolver(t)
	ctx := context.Background()
	ids := createStudents(t, store, "Zoe", "Anna", "Ben")

	g, err := resolver.Create(ctx, school.RiderGroup{Name: "Wed", Weekday: time.Wednesday, Time: "17:00"})
	require.NoError(t, err)
	_, err = resolver.SaveMembers(ctx, g.ID, ids)
	require.NoError(t, err)

	cancelled, err := resolver.ToggleCancellation(ctx, g.ID, ids[2], wednesday)
	require.NoError(t, err)
	assert.True(t, cancelled)

	roster, err := resolver.LoadForSchedule(ctx, g.ID, wednesday)
	require.NoError(t, err)
	require.Len(t, roster.Members, 3)
	assert.Equal(t, "Anna", roster.Members[0].StudentName)
	assert.Equal(t, []school.StudentID{ids[2]}, roster.Cancelled)

	active := roster.Active()
	require.Len(t, active, 2)
	assert.Equal(t, "Anna", active[0].StudentName)
	assert.Equal(t, "Zoe", active[1].StudentName)

	nextWeek, err := resolver.LoadForSchedule(ctx, g.ID, wednesday.AddDays(7))
	require.NoError(t, err)
	assert.Empty(t, nextWeek.Cancelled)
	assert.Len(t, nextWeek.Active(), 3)
}

func TestLoadForSchedule_UnknownGroup(t *testing.T) {
	resolver, _ := newTestResolver(t)

	_, err := resolver.LoadForSchedule(context.Background(), 42, wednesday)
	assert.ErrorIs(t, err, school.ErrGroupNotFound)
}

func TestToggleCancellation_TwiceRestores(t *testing.T) {
	resolver, store := newTestResolver(t)
	ctx := context.Background()
	ids := createStudents(t, store, "Alice")

	g, err := resolver.Create(ctx, school.RiderGroup{Name: "Wed", Weekday: time.Wednesday, Time: "17:00"})
	require.NoError(t, err)
	_, err = resolver.SaveMembers(ctx, g.ID, ids)
	require.NoError(t, err)

	first, err := resolver.ToggleCancellation(ctx, g.ID, ids[0], wednesday)
	require.NoError(t, err)
	assert.True(t, first)

	second, err := resolver.ToggleCancellation(ctx, g.ID, ids[0], wednesday)
	require.NoError(t, err)
	assert.False(t, second)

	got, err := resolver.Cancellations(ctx, g.ID, wednesday)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestToggleCancellation_RequiresMembership(t *testing.T) {
	resolver, store := newTestResolver(t)
	ctx := context.Background()
	ids := createStudents(t, store, "Alice")

	g, err := resolver.Create(ctx, school.RiderGroup{Name: "Wed", Weekday: time.Wednesday, Time: "17:00"})
	require.NoError(t, err)

	_, err = resolver.ToggleCancellation(ctx, g.ID, ids[0], wednesday)
	assert.ErrorIs(t, err, school.ErrNotGroupMember)

	_, err = resolver.ToggleCancellation(ctx, 99, ids[0], wednesday)
	assert.ErrorIs(t, err, school.ErrGroupNotFound)
}

func TestToggleCancellation_FormerMemberCanBeCleared(t *testing.T) {
	// GIVEN: Alice cancelled, then left the group
	// WHEN: Toggling her cancellation again
	// THEN: The row is removed and nothing is cancelled
	resolver, store := newTestResolver(t)
	ctx := context.Background()
	ids := createStudents(t, store, "Alice", "Bob")

	g, err := resolver.Create(ctx, school.RiderGroup{Name: "Wed", Weekday: time.Wednesday, Time: "17:00"})
	require.NoError(t, err)
	_, err = resolver.SaveMembers(ctx, g.ID, ids)
	require.NoError(t, err)

	cancelled, err := resolver.ToggleCancellation(ctx, g.ID, ids[0], wednesday)
	require.NoError(t, err)
	require.True(t, cancelled)

	_, err = resolver.SaveMembers(ctx, g.ID, ids[1:])
	require.NoError(t, err)

	cancelled, err = resolver.ToggleCancellation(ctx, g.ID, ids[0], wednesday)
	require.NoError(t, err)
	assert.False(t, cancelled)

	got, err := resolver.Cancellations(ctx, g.ID, wednesday)
	require.NoError(t, err)
	assert.Empty(t, got)

	// Cancelling again needs membership.
	_, err = resolver.ToggleCancellation(ctx, g.ID, ids[0], wednesday)
	assert.ErrorIs(t, err, school.ErrNotGroupMember)
}

func TestCancellations_UnknownGroup(t *testing.T) {
	resolver, _ := newTestResolver(t)

	_, err := resolver.Cancellations(context.Background(), 9999, wednesday)
	assert.ErrorIs(t, err, school.ErrGroupNotFound)
}

func TestLoadForSchedule_ActiveMembersBecomeSlot(t *testing.T) {
	// GIVEN: Alice and Bob in a group, Alice cancelled for the date
	// WHEN: Saving a slot from the active roster
	// THEN: The slot holds only Bob, and only Bob gets a lesson
	resolver, store := newTestResolver(t)
	ctx := context.Background()
	ids := createStudents(t, store, "Alice", "Bob")
	star, err := store.CreateHorse(ctx, school.Horse{Name: "Star"})
	require.NoError(t, err)

	g, err := resolver.Create(ctx, school.RiderGroup{Name: "Wed", Weekday: time.Wednesday, Time: "17:00"})
	require.NoError(t, err)
	_, err = resolver.SaveMembers(ctx, g.ID, ids)
	require.NoError(t, err)
	_, err = resolver.ToggleCancellation(ctx, g.ID, ids[0], wednesday)
	require.NoError(t, err)

	roster, err := resolver.LoadForSchedule(ctx, g.ID, wednesday)
	require.NoError(t, err)

	var pairs []school.Pair
	for _, m := range roster.Active() {
		pairs = append(pairs, school.Pair{StudentID: m.StudentID, HorseID: star})
	}
	mutator := schedule.NewMutator(store, school.CountPolicy{}, nil, zerolog.Nop())
	result, err := mutator.CreateSlot(ctx, schedule.SlotInput{Date: wednesday, Time: g.Time, Pairs: pairs})
	require.NoError(t, err)

	require.Len(t, result.Slot.Participants, 1)
	assert.Equal(t, ids[1], result.Slot.Participants[0].StudentID)

	lessons, err := store.ListLessons(ctx)
	require.NoError(t, err)
	require.Len(t, lessons, 1)
	assert.Equal(t, ids[1], lessons[0].StudentID)
}

func TestCreate_Validation(t *testing.T) {
	resolver, _ := newTestResolver(t)
	ctx := context.Background()

	tests := []struct {
		name  string
		group school.RiderGroup
		want  error
	}{
		{"blank name", school.RiderGroup{Name: "  ", Weekday: time.Monday, Time: "10:00"}, school.ErrNameRequired},
		{"weekday out of range", school.RiderGroup{Name: "X", Weekday: 7, Time: "10:00"}, school.ErrInvalidWeekday},
		{"bad time", school.RiderGroup{Name: "X", Weekday: time.Monday, Time: "noon"}, school.ErrInvalidTime},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := resolver.Create(ctx, tt.group)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestSaveMembers_DeduplicatesAndRejectsUnknown(t *testing.T) {
	resolver, store := newTestResolver(t)
	ctx := context.Background()
	ids := createStudents(t, store, "Alice", "Bob")

	g, err := resolver.Create(ctx, school.RiderGroup{Name: "Wed", Weekday: time.Wednesday, Time: "17:00"})
	require.NoError(t, err)

	members, err := resolver.SaveMembers(ctx, g.ID, []school.StudentID{ids[1], ids[0], ids[1]})
	require.NoError(t, err)
	require.Len(t, members, 2)
	assert.Equal(t, "Alice", members[0].StudentName)

	_, err = resolver.SaveMembers(ctx, g.ID, []school.StudentID{ids[0], 999})
	assert.ErrorIs(t, err, school.ErrUnknownStudent)

	// The failed save left the previous list in place.
	members, err = resolver.Members(ctx, g.ID)
	require.NoError(t, err)
	assert.Len(t, members, 2)
}

func TestDelete_UnknownGroup(t *testing.T) {
	resolver, _ := newTestResolver(t)
	assert.ErrorIs(t, resolver.Delete(context.Background(), 7), school.ErrGroupNotFound)
}

func TestNextOccurrence(t *testing.T) {
	g := school.RiderGroup{Weekday: time.Friday}

	assert.Equal(t, "2024-06-14", groups.NextOccurrence(g, wednesday).String())
	assert.Equal(t, "2024-06-14", groups.NextOccurrence(g, school.MustDate("2024-06-14")).String())
	assert.Equal(t, "2024-06-21", groups.NextOccurrence(g, school.MustDate("2024-06-15")).String())
}
