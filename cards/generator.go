/*
generator.go - Plain-text lesson cards and day sheets

PURPOSE:
  Renders the two printable documents of the school:
  - the 10-lesson card billed when a rider reaches a milestone
  - the day sheet listing every slot of a date

  Documents are plain text laid out with tabwriter so they print cleanly
  on any printer. Every document gets a fresh UUID; the ledger records the
  id of the first card issued per milestone.

PRICING:
  Members and non-members pay different card prices. Amounts are
  decimal.Decimal, never float, and printed with two decimals.

STORAGE:
  Bytes go to a Sink: a local directory or a MinIO bucket (see sink.go).

SEE ALSO:
  - reports/service.go: Calls MilestoneCard
*/
package cards

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"text/tabwriter"
	"unicode"

	"github.com/garnzell/riding-school/reports"
	"github.com/garnzell/riding-school/school"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

const contentType = "text/plain; charset=utf-8"

// Options holds the school-specific parts of a document.
type Options struct {
	SchoolName     string
	MemberPrice    decimal.Decimal
	NonMemberPrice decimal.Decimal
	Currency       string
}

// Generator renders documents and stores them in a Sink.
type Generator struct {
	opts  Options
	sink  Sink
	log   zerolog.Logger
	newID func() string
}

var _ reports.DocumentGenerator = (*Generator)(nil)

func NewGenerator(opts Options, sink Sink, log zerolog.Logger) *Generator {
	return &Generator{
		opts:  opts,
		sink:  sink,
		log:   log.With().Str("component", "cards").Logger(),
		newID: func() string { return uuid.New().String() },
	}
}

// Price is the card price for a student.
func (g *Generator) Price(s school.Student) decimal.Decimal {
	if s.IsMember {
		return g.opts.MemberPrice
	}
	return g.opts.NonMemberPrice
}

// MilestoneCard renders and stores the card for req.
func (g *Generator) MilestoneCard(ctx context.Context, req reports.CardRequest) (*reports.Document, error) {
	if len(req.Lessons) == 0 {
		return nil, fmt.Errorf("card %d for %s has no lessons", req.Milestone, req.Student.Name)
	}

	id := g.newID()
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "%s\n", g.opts.SchoolName)
	fmt.Fprintf(&buf, "Lesson card %d-%d\n\n", req.FirstLesson(), req.Milestone)
	fmt.Fprintf(&buf, "Rider:  %s\n", req.Student.Name)
	fmt.Fprintf(&buf, "Price:  %s %s incl. VAT", g.Price(req.Student).StringFixed(2), g.opts.Currency)
	if req.Student.IsMember {
		buf.WriteString(" (member)")
	}
	buf.WriteString("\n\n")

	tw := tabwriter.NewWriter(&buf, 0, 0, 3, ' ', 0)
	fmt.Fprintln(tw, "#\tDate\tHorse")
	for i, l := range req.Lessons {
		fmt.Fprintf(tw, "%d\t%s\t%s\n", req.FirstLesson()+i, formatDate(l.Date), l.HorseName)
	}
	if err := tw.Flush(); err != nil {
		return nil, err
	}

	fmt.Fprintf(&buf, "\nDocument %s\n", id)

	name := fmt.Sprintf("card-%d-%d-%s-%s.txt", req.FirstLesson(), req.Milestone, slug(req.Student.Name), id)
	return g.store(ctx, id, name, buf.Bytes())
}

// DaySheet renders the schedule of one date.
func (g *Generator) DaySheet(ctx context.Context, date school.Date, slots []school.Slot) (*reports.Document, error) {
	id := g.newID()
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "%s\n", g.opts.SchoolName)
	fmt.Fprintf(&buf, "Schedule for %s\n\n", formatDate(date))

	if len(slots) == 0 {
		buf.WriteString("No lessons scheduled.\n")
	}

	tw := tabwriter.NewWriter(&buf, 0, 0, 3, ' ', 0)
	for _, slot := range slots {
		fmt.Fprintf(tw, "%s\t\t\n", slot.Time)
		for _, p := range slot.Participants {
			fmt.Fprintf(tw, "\t%s\t%s\n", p.StudentName, p.HorseName)
		}
	}
	if err := tw.Flush(); err != nil {
		return nil, err
	}

	name := fmt.Sprintf("day-%s-%s.txt", date, id)
	return g.store(ctx, id, name, buf.Bytes())
}

func (g *Generator) store(ctx context.Context, id, name string, data []byte) (*reports.Document, error) {
	location, err := g.sink.Put(ctx, name, contentType, data)
	if err != nil {
		return nil, fmt.Errorf("failed to store %s: %w", name, err)
	}

	g.log.Debug().Str("document_id", id).Str("location", location).Int("bytes", len(data)).Msg("Document stored")
	return &reports.Document{
		ID:          id,
		Name:        name,
		Location:    location,
		ContentType: contentType,
		Size:        int64(len(data)),
	}, nil
}

func formatDate(d school.Date) string {
	return d.Time().Format("Mon 02.01.2006")
}

// slug makes a name safe for file and object keys.
func slug(name string) string {
	s := strings.Map(func(r rune) rune {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			return unicode.ToLower(r)
		default:
			return '-'
		}
	}, strings.TrimSpace(name))
	for strings.Contains(s, "--") {
		s = strings.ReplaceAll(s, "--", "-")
	}
	s = strings.Trim(s, "-")
	if s == "" {
		return "student"
	}
	return s
}
