/*
service.go - Milestone availability and card issuing

PURPOSE:
  Answers "which 10-lesson cards can be printed right now" and issues them.
  Availability is computed on every call from lesson history and the
  printed-reports ledger; nothing is cached.

ISSUING:
  1. Validate the milestone against the counted total.
  2. Load the 10 lessons of the card (offset milestone-10, by date).
  3. Generate the document. Failure stops here: the ledger is untouched.
  4. Insert the ledger row if absent.

  Reprinting an issued card regenerates the document but keeps the first
  ledger row, so History shows when the card was first billed.

SEE ALSO:
  - school/milestone.go: Visibility rules
  - cards/: DocumentGenerator implementation
*/
package reports

import (
	"context"
	"fmt"
	"time"

	"github.com/garnzell/riding-school/school"
	"github.com/rs/zerolog"
)

// CardRequest is everything a generator needs to render one card.
type CardRequest struct {
	Student   school.Student
	Milestone int
	Lessons   []school.Lesson // ordered by date, at most LessonsPerCard
}

// FirstLesson is the 1-based number of the first lesson on the card.
func (r CardRequest) FirstLesson() int {
	return school.MilestoneOffset(r.Milestone) + 1
}

// Document is a rendered and stored artifact.
type Document struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Location    string `json:"location"`
	ContentType string `json:"content_type"`
	Size        int64  `json:"size"`
}

// DocumentGenerator renders milestone cards.
type DocumentGenerator interface {
	MilestoneCard(ctx context.Context, req CardRequest) (*Document, error)
}

// IssueResult is the outcome of an issue request.
type IssueResult struct {
	Document *Document
	Report   school.PrintedReport // the ledger row, first issue
	Created  bool                 // this call created the ledger row
}

// Service computes availability and issues cards.
type Service struct {
	store     school.Repository
	generator DocumentGenerator
	policy    school.CountPolicy
	log       zerolog.Logger
	now       func() time.Time
}

func NewService(store school.Repository, generator DocumentGenerator, policy school.CountPolicy, log zerolog.Logger) *Service {
	return &Service{
		store:     store,
		generator: generator,
		policy:    policy,
		log:       log.With().Str("component", "reports").Logger(),
		now:       time.Now,
	}
}

// Available returns report info for every student with counted lessons, by name.
func (s *Service) Available(ctx context.Context) ([]school.ReportInfo, error) {
	totals, err := s.store.LessonTotals(ctx, s.policy)
	if err != nil {
		return nil, fmt.Errorf("failed to count lessons: %w", err)
	}
	printed, err := s.store.PrintedMilestones(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load printed reports: %w", err)
	}

	infos := make([]school.ReportInfo, 0, len(totals))
	for _, total := range totals {
		infos = append(infos, school.BuildReportInfo(total, printed[total.StudentID]))
	}
	return infos, nil
}

// Issue generates the card for (student, milestone) and records it once.
func (s *Service) Issue(ctx context.Context, studentID school.StudentID, milestone int) (*IssueResult, error) {
	student, err := s.store.GetStudent(ctx, studentID)
	if err != nil {
		return nil, fmt.Errorf("failed to load student %d: %w", studentID, err)
	}
	if student == nil {
		return nil, school.ErrStudentNotFound
	}

	total, err := s.store.CountLessons(ctx, studentID, s.policy)
	if err != nil {
		return nil, fmt.Errorf("failed to count lessons: %w", err)
	}
	if err := school.ValidateMilestone(studentID, milestone, total); err != nil {
		return nil, err
	}

	lessons, err := s.store.CardLessons(ctx, studentID, school.MilestoneOffset(milestone), s.policy)
	if err != nil {
		return nil, fmt.Errorf("failed to load card lessons: %w", err)
	}

	doc, err := s.generator.MilestoneCard(ctx, CardRequest{Student: *student, Milestone: milestone, Lessons: lessons})
	if err != nil {
		s.log.Error().Err(err).Int64("student_id", int64(studentID)).Int("milestone", milestone).Msg("Card generation failed")
		return nil, fmt.Errorf("%w: %w", school.ErrDocumentFailed, err)
	}

	report := school.PrintedReport{
		StudentID:  studentID,
		Milestone:  milestone,
		PrintedAt:  s.now().UTC().Truncate(time.Second),
		DocumentID: doc.ID,
	}
	created, err := s.store.LogPrintedReport(ctx, report)
	if err != nil {
		return nil, fmt.Errorf("card %s generated but not recorded: %w", doc.ID, err)
	}

	if !created {
		history, err := s.store.PrintedReports(ctx, studentID)
		if err != nil {
			return nil, err
		}
		for _, r := range history {
			if r.Milestone == milestone {
				report = r
			}
		}
	}

	s.log.Info().
		Int64("student_id", int64(studentID)).
		Int("milestone", milestone).
		Str("document_id", doc.ID).
		Bool("first_issue", created).
		Msg("Milestone card issued")

	return &IssueResult{Document: doc, Report: report, Created: created}, nil
}

// History returns the ledger rows of a student.
func (s *Service) History(ctx context.Context, studentID school.StudentID) ([]school.PrintedReport, error) {
	student, err := s.store.GetStudent(ctx, studentID)
	if err != nil {
		return nil, err
	}
	if student == nil {
		return nil, school.ErrStudentNotFound
	}
	reports, err := s.store.PrintedReports(ctx, studentID)
	if err != nil {
		return nil, err
	}
	if reports == nil {
		reports = []school.PrintedReport{}
	}
	return reports, nil
}
