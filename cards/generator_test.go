package cards

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/garnzell/riding-school/reports"
	"github.com/garnzell/riding-school/school"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memorySink struct {
	docs map[string][]byte
	err  error
}

func (s *memorySink) Put(_ context.Context, name, _ string, data []byte) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	if s.docs == nil {
		s.docs = make(map[string][]byte)
	}
	s.docs[name] = data
	return "mem://" + name, nil
}

func testOptions() Options {
	return Options{
		SchoolName:     "Riding School",
		MemberPrice:    decimal.RequireFromString("100"),
		NonMemberPrice: decimal.RequireFromString("120.5"),
		Currency:       "EUR",
	}
}

func newTestGenerator(sink Sink) *Generator {
	g := NewGenerator(testOptions(), sink, zerolog.Nop())
	g.newID = func() string { return "fixed-id" }
	return g
}

func cardLessons(n int) []school.Lesson {
	lessons := make([]school.Lesson, n)
	start := school.MustDate("2024-06-10") // Monday
	for i := range lessons {
		lessons[i] = school.Lesson{Date: start.AddDays(i), HorseName: "Star"}
	}
	return lessons
}

func TestMilestoneCard_Content(t *testing.T) {
	sink := &memorySink{}
	g := newTestGenerator(sink)

	doc, err := g.MilestoneCard(context.Background(), reports.CardRequest{
		Student:   school.Student{Name: "Anna Maria", IsMember: false},
		Milestone: 20,
		Lessons:   cardLessons(10),
	})
	require.NoError(t, err)

	assert.Equal(t, "fixed-id", doc.ID)
	assert.Equal(t, "card-11-20-anna-maria-fixed-id.txt", doc.Name)
	assert.Equal(t, "mem://"+doc.Name, doc.Location)

	text := string(sink.docs[doc.Name])
	assert.Equal(t, int64(len(text)), doc.Size)
	assert.Contains(t, text, "Lesson card 11-20")
	assert.Contains(t, text, "Rider:  Anna Maria")
	assert.Contains(t, text, "120.50 EUR")
	assert.Contains(t, text, "Mon 10.06.2024")
	assert.Contains(t, text, "Wed 19.06.2024")
	assert.Equal(t, 10, strings.Count(text, "Star"))
}

func TestPrice_ByMembership(t *testing.T) {
	g := newTestGenerator(&memorySink{})

	assert.True(t, g.Price(school.Student{IsMember: true}).Equal(decimal.NewFromInt(100)))
	assert.True(t, g.Price(school.Student{IsMember: false}).Equal(decimal.RequireFromString("120.50")))
}

func TestMilestoneCard_NoLessons(t *testing.T) {
	g := newTestGenerator(&memorySink{})

	_, err := g.MilestoneCard(context.Background(), reports.CardRequest{Student: school.Student{Name: "A"}, Milestone: 10})
	assert.Error(t, err)
}

func TestMilestoneCard_SinkFailure(t *testing.T) {
	g := newTestGenerator(&memorySink{err: errors.New("bucket gone")})

	_, err := g.MilestoneCard(context.Background(), reports.CardRequest{
		Student: school.Student{Name: "A"}, Milestone: 10, Lessons: cardLessons(10),
	})
	assert.ErrorContains(t, err, "bucket gone")
}

func TestDaySheet(t *testing.T) {
	sink := &memorySink{}
	g := newTestGenerator(sink)
	date := school.MustDate("2024-06-12")

	doc, err := g.DaySheet(context.Background(), date, []school.Slot{
		{Time: "09:00", Participants: []school.Participant{{StudentName: "Anna", HorseName: "Star"}}},
		{Time: "17:00", Participants: []school.Participant{{StudentName: "Ben", HorseName: "Moon"}}},
	})
	require.NoError(t, err)

	assert.Equal(t, "day-2024-06-12-fixed-id.txt", doc.Name)
	text := string(sink.docs[doc.Name])
	assert.Contains(t, text, "Schedule for Wed 12.06.2024")
	assert.Less(t, strings.Index(text, "09:00"), strings.Index(text, "17:00"))
	assert.Contains(t, text, "Moon")
}

func TestDaySheet_Empty(t *testing.T) {
	sink := &memorySink{}
	g := newTestGenerator(sink)

	doc, err := g.DaySheet(context.Background(), school.MustDate("2024-06-12"), nil)
	require.NoError(t, err)
	assert.Contains(t, string(sink.docs[doc.Name]), "No lessons scheduled.")
}

func TestFileSink_WritesIntoDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "cards")
	sink, err := NewFileSink(dir)
	require.NoError(t, err)

	path, err := sink.Put(context.Background(), "card.txt", contentType, []byte("hello"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "card.txt"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))
}

func TestSlug(t *testing.T) {
	tests := map[string]string{
		"Anna Maria":  "anna-maria",
		"  Jörg  ":    "jörg",
		"O'Neil, Sam": "o-neil-sam",
		"///":         "student",
	}
	for in, want := range tests {
		assert.Equal(t, want, slug(in), in)
	}
}
