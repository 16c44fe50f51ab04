package sqlite_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/garnzell/riding-school/school"
	"github.com/garnzell/riding-school/store/sqlite"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func newTestStore(t *testing.T) *sqlite.Store {
	store, err := sqlite.New(":memory:", zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func seedStudent(t *testing.T, store *sqlite.Store, name string) school.StudentID {
	id, err := store.CreateStudent(context.Background(), school.Student{Name: name})
	require.NoError(t, err)
	return id
}

func seedHorse(t *testing.T, store *sqlite.Store, name string) school.HorseID {
	id, err := store.CreateHorse(context.Background(), school.Horse{Name: name})
	require.NoError(t, err)
	return id
}

// =============================================================================
// MIGRATIONS
// =============================================================================

func TestNew_AppliesAllMigrations(t *testing.T) {
	store := newTestStore(t)

	version, err := store.SchemaVersion(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, version)
}

// =============================================================================
// ENTITIES
// =============================================================================

func TestStudents_CRUD(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	id, err := store.CreateStudent(ctx, school.Student{Name: "Alice", IsMember: true})
	require.NoError(t, err)

	got, err := store.GetStudent(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Alice", got.Name)
	assert.True(t, got.IsMember)
	assert.False(t, got.CreatedAt.IsZero())

	got.ContactInfo = "alice@example.com"
	require.NoError(t, store.UpdateStudent(ctx, *got))

	require.NoError(t, store.DeleteStudent(ctx, id))
	missing, err := store.GetStudent(ctx, id)
	require.NoError(t, err)
	assert.Nil(t, missing)

	assert.ErrorIs(t, store.DeleteStudent(ctx, id), school.ErrStudentNotFound)
}

func TestStudents_DuplicateName(t *testing.T) {
	store := newTestStore(t)
	seedStudent(t, store, "Alice")

	_, err := store.CreateStudent(context.Background(), school.Student{Name: "Alice"})
	assert.ErrorIs(t, err, school.ErrDuplicateName)
	assert.True(t, school.IsConflict(err))
}

func TestDeleteHorse_BlockedByLessonHistory(t *testing.T) {
	// GIVEN: A horse used in one lesson
	// WHEN: Deleting it
	// THEN: ErrHorseInUse, the horse stays
	store := newTestStore(t)
	ctx := context.Background()
	alice := seedStudent(t, store, "Alice")
	star := seedHorse(t, store, "Star")

	_, err := store.InsertLesson(ctx, school.Lesson{StudentID: alice, HorseID: star, Date: school.MustDate("2024-06-12")})
	require.NoError(t, err)

	assert.ErrorIs(t, store.DeleteHorse(ctx, star), school.ErrHorseInUse)

	h, err := store.GetHorse(ctx, star)
	require.NoError(t, err)
	assert.NotNil(t, h)
}

func TestDeleteHorse_Unreferenced(t *testing.T) {
	store := newTestStore(t)
	star := seedHorse(t, store, "Star")

	require.NoError(t, store.DeleteHorse(context.Background(), star))
	assert.ErrorIs(t, store.DeleteHorse(context.Background(), star), school.ErrHorseNotFound)
}

// =============================================================================
// LESSONS
// =============================================================================

func TestCardLessons_OrderedByDateThenInsertion(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	alice := seedStudent(t, store, "Alice")
	star := seedHorse(t, store, "Star")

	// Inserted out of date order; two on the same day.
	dates := []string{"2024-03-05", "2024-03-01", "2024-03-05", "2024-03-02"}
	var ids []school.LessonID
	for _, d := range dates {
		id, err := store.InsertLesson(ctx, school.Lesson{StudentID: alice, HorseID: star, Date: school.MustDate(d)})
		require.NoError(t, err)
		ids = append(ids, id)
	}

	lessons, err := store.CardLessons(ctx, alice, 0, school.CountPolicy{})
	require.NoError(t, err)
	require.Len(t, lessons, 4)
	assert.Equal(t, []school.LessonID{ids[1], ids[3], ids[0], ids[2]},
		[]school.LessonID{lessons[0].ID, lessons[1].ID, lessons[2].ID, lessons[3].ID})
	assert.Equal(t, "Star", lessons[0].HorseName)
}

func TestCountLessons_Policy(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	alice := seedStudent(t, store, "Alice")
	star := seedHorse(t, store, "Star")

	for i := 0; i < 3; i++ {
		_, err := store.InsertLesson(ctx, school.Lesson{
			StudentID: alice, HorseID: star, Date: school.MustDate("2024-01-01").AddDays(i),
			IsSingleLesson: i == 0,
		})
		require.NoError(t, err)
	}

	all, err := store.CountLessons(ctx, alice, school.CountPolicy{})
	require.NoError(t, err)
	assert.Equal(t, 3, all)

	counted, err := store.CountLessons(ctx, alice, school.CountPolicy{ExcludeSingleLessons: true})
	require.NoError(t, err)
	assert.Equal(t, 2, counted)

	totals, err := store.LessonTotals(ctx, school.CountPolicy{ExcludeSingleLessons: true})
	require.NoError(t, err)
	require.Len(t, totals, 1)
	assert.Equal(t, 2, totals[0].Total)
}

// =============================================================================
// SLOTS
// =============================================================================

func TestSlots_ParticipantsCascadeWithSlot(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	alice := seedStudent(t, store, "Alice")
	star := seedHorse(t, store, "Star")
	date := school.MustDate("2024-06-12")

	id, err := store.InsertSlot(ctx, date, "10:00")
	require.NoError(t, err)
	require.NoError(t, store.InsertParticipant(ctx, id, school.Pair{StudentID: alice, HorseID: star}))

	require.NoError(t, store.DeleteSlot(ctx, id))

	n, err := store.CountParticipants(ctx, id)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.ErrorIs(t, store.DeleteSlot(ctx, id), school.ErrSlotNotFound)
}

func TestSlots_UniqueHorseAndStudentPerSlot(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	alice := seedStudent(t, store, "Alice")
	bob := seedStudent(t, store, "Bob")
	star := seedHorse(t, store, "Star")
	moon := seedHorse(t, store, "Moon")

	id, err := store.InsertSlot(ctx, school.MustDate("2024-06-12"), "10:00")
	require.NoError(t, err)
	require.NoError(t, store.InsertParticipant(ctx, id, school.Pair{StudentID: alice, HorseID: star}))

	err = store.InsertParticipant(ctx, id, school.Pair{StudentID: bob, HorseID: star})
	assert.ErrorIs(t, err, school.ErrDuplicateHorse)

	err = store.InsertParticipant(ctx, id, school.Pair{StudentID: alice, HorseID: moon})
	assert.ErrorIs(t, err, school.ErrDuplicateStudent)
}

func TestSlotsForDate_Ordering(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	zoe := seedStudent(t, store, "Zoe")
	anna := seedStudent(t, store, "Anna")
	star := seedHorse(t, store, "Star")
	moon := seedHorse(t, store, "Moon")
	date := school.MustDate("2024-06-12")

	late, err := store.InsertSlot(ctx, date, "14:00")
	require.NoError(t, err)
	early, err := store.InsertSlot(ctx, date, "09:30")
	require.NoError(t, err)
	_, err = store.InsertSlot(ctx, date.AddDays(1), "08:00")
	require.NoError(t, err)

	require.NoError(t, store.InsertParticipant(ctx, early, school.Pair{StudentID: zoe, HorseID: star}))
	require.NoError(t, store.InsertParticipant(ctx, early, school.Pair{StudentID: anna, HorseID: moon}))

	slots, err := store.SlotsForDate(ctx, date)
	require.NoError(t, err)
	require.Len(t, slots, 2)
	assert.Equal(t, early, slots[0].ID)
	assert.Equal(t, late, slots[1].ID)
	require.Len(t, slots[0].Participants, 2)
	assert.Equal(t, "Anna", slots[0].Participants[0].StudentName)
	assert.Equal(t, "Zoe", slots[0].Participants[1].StudentName)
	assert.Empty(t, slots[1].Participants)
}

// =============================================================================
// GROUPS & CANCELLATIONS
// =============================================================================

func TestGroups_ByWeekdayOrderedByTimeThenName(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	for _, g := range []school.RiderGroup{
		{Name: "B", Weekday: time.Wednesday, Time: "17:00"},
		{Name: "A", Weekday: time.Wednesday, Time: "17:00"},
		{Name: "C", Weekday: time.Wednesday, Time: "09:00"},
		{Name: "D", Weekday: time.Friday, Time: "09:00"},
	} {
		_, err := store.CreateGroup(ctx, g)
		require.NoError(t, err)
	}

	groups, err := store.GroupsByWeekday(ctx, time.Wednesday)
	require.NoError(t, err)
	require.Len(t, groups, 3)
	assert.Equal(t, []string{"C", "A", "B"}, []string{groups[0].Name, groups[1].Name, groups[2].Name})
}

func TestCancellations_UniquePerTriple(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	alice := seedStudent(t, store, "Alice")
	gid, err := store.CreateGroup(ctx, school.RiderGroup{Name: "Wed", Weekday: time.Wednesday, Time: "17:00"})
	require.NoError(t, err)
	date := school.MustDate("2024-06-12")

	c := school.Cancellation{GroupID: gid, StudentID: alice, Date: date}
	require.NoError(t, store.InsertCancellation(ctx, c))
	assert.Error(t, store.InsertCancellation(ctx, c))

	ids, err := store.CancelledStudents(ctx, gid, date)
	require.NoError(t, err)
	assert.Equal(t, []school.StudentID{alice}, ids)

	other, err := store.CancelledStudents(ctx, gid, date.AddDays(7))
	require.NoError(t, err)
	assert.Empty(t, other)
}

func TestDeleteGroup_CascadesMembersAndCancellations(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	alice := seedStudent(t, store, "Alice")
	gid, err := store.CreateGroup(ctx, school.RiderGroup{Name: "Wed", Weekday: time.Wednesday, Time: "17:00"})
	require.NoError(t, err)

	require.NoError(t, store.ReplaceMembers(ctx, gid, []school.StudentID{alice}))
	require.NoError(t, store.InsertCancellation(ctx, school.Cancellation{GroupID: gid, StudentID: alice, Date: school.MustDate("2024-06-12")}))

	require.NoError(t, store.DeleteGroup(ctx, gid))

	members, err := store.GroupMembers(ctx, gid)
	require.NoError(t, err)
	assert.Empty(t, members)
	has, err := store.HasCancellation(ctx, gid, alice, school.MustDate("2024-06-12"))
	require.NoError(t, err)
	assert.False(t, has)
}

// =============================================================================
// REPORT LEDGER
// =============================================================================

func TestLogPrintedReport_FirstWriteWins(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	alice := seedStudent(t, store, "Alice")

	created, err := store.LogPrintedReport(ctx, school.PrintedReport{StudentID: alice, Milestone: 10, DocumentID: "doc-1"})
	require.NoError(t, err)
	assert.True(t, created)

	created, err = store.LogPrintedReport(ctx, school.PrintedReport{StudentID: alice, Milestone: 10, DocumentID: "doc-2"})
	require.NoError(t, err)
	assert.False(t, created)

	reports, err := store.PrintedReports(ctx, alice)
	require.NoError(t, err)
	require.Len(t, reports, 1)
	assert.Equal(t, "doc-1", reports[0].DocumentID)

	printed, err := store.PrintedMilestones(ctx)
	require.NoError(t, err)
	assert.True(t, printed[alice][10])
	assert.False(t, printed[alice][20])
}

// =============================================================================
// TRANSACTIONS
// =============================================================================

func TestWithTx_RollsBackOnError(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	boom := errors.New("boom")

	var slotID school.SlotID
	err := store.WithTx(ctx, func(repo school.Repository) error {
		id, err := repo.InsertSlot(ctx, school.MustDate("2024-06-12"), "10:00")
		if err != nil {
			return err
		}
		slotID = id
		return boom
	})
	assert.ErrorIs(t, err, boom)

	slot, err := store.GetSlot(ctx, slotID)
	require.NoError(t, err)
	assert.Nil(t, slot)
}

func TestReset_ClearsData(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	seedStudent(t, store, "Alice")

	require.NoError(t, store.Reset(ctx))

	students, err := store.ListStudents(ctx)
	require.NoError(t, err)
	assert.Empty(t, students)
}
