/*
mutator.go - Transactional schedule writes with lesson mirroring

PURPOSE:
  Keeps schedule_slots, schedule_participants and the lesson history
  consistent. Creating a slot records the lesson for every participant in
  the same transaction and reports any 10-lesson milestone crossed on the way.

PROTOCOL (CreateSlot):
  1. Validate date, time and pairs. Reject before touching the database.
  2. Begin transaction.
  3. Check every student and horse exists.
  4. Insert slot.
  5. Per pair: insert participant, count before, insert lesson, count after,
     remember a crossing if floor(after/10) > floor(before/10).
  6. Commit. Any error before this point rolls everything back.
  7. Notify crossings. Notification failures are logged, never returned:
     the lessons are already committed.

UPDATES DON'T MIRROR:
  UpdateSlot rewrites the participant list only. Lessons were recorded when
  the slot was created; editing who rode doesn't rewrite history.

EMPTY SLOTS:
  DeleteParticipant can drop the slot in the same transaction when the last
  participant leaves. The caller decides (config schedule.drop_empty_slots).

SEE ALSO:
  - school/milestone.go: Crossing arithmetic
  - notify/: Notifier implementations
*/
package schedule

import (
	"context"
	"errors"
	"fmt"

	"github.com/garnzell/riding-school/school"
	"github.com/rs/zerolog"
)

// Notifier receives milestone crossings after the lessons are committed.
type Notifier interface {
	MilestoneCrossed(ctx context.Context, c school.MilestoneCrossing) error
}

// SlotInput is the payload of a slot write.
type SlotInput struct {
	Date         school.Date
	Time         school.TimeOfDay
	Pairs        []school.Pair
	SingleLesson bool // marks mirrored lessons as single lessons
}

// CreateResult is the stored slot and the milestones its lessons crossed.
type CreateResult struct {
	Slot      *school.Slot
	Crossings []school.MilestoneCrossing
}

// DeleteParticipantResult reports what remains of the slot.
type DeleteParticipantResult struct {
	Remaining   int
	SlotDeleted bool
}

// RecordResult is a directly entered lesson.
type RecordResult struct {
	LessonID school.LessonID
	Total    int
	Crossing *school.MilestoneCrossing
}

// Mutator performs schedule writes.
type Mutator struct {
	store    school.TxRunner
	policy   school.CountPolicy
	notifier Notifier
	log      zerolog.Logger
}

// NewMutator creates a Mutator. notifier may be nil.
func NewMutator(store school.TxRunner, policy school.CountPolicy, notifier Notifier, log zerolog.Logger) *Mutator {
	return &Mutator{
		store:    store,
		policy:   policy,
		notifier: notifier,
		log:      log.With().Str("component", "schedule").Logger(),
	}
}

// =============================================================================
// READS
// =============================================================================

// DailySchedule returns the slots of a date ordered by time, participants by name.
func (m *Mutator) DailySchedule(ctx context.Context, date school.Date) ([]school.Slot, error) {
	if date.IsZero() {
		return nil, school.ErrInvalidDate
	}
	slots, err := m.store.SlotsForDate(ctx, date)
	if err != nil {
		return nil, fmt.Errorf("failed to load schedule for %s: %w", date, err)
	}
	if slots == nil {
		slots = []school.Slot{}
	}
	return slots, nil
}

// =============================================================================
// SLOT WRITES
// =============================================================================

// CreateSlot inserts a slot, its participants and one lesson per participant.
func (m *Mutator) CreateSlot(ctx context.Context, in SlotInput) (*CreateResult, error) {
	t, err := school.ValidateSlot(in.Date, in.Time, in.Pairs)
	if err != nil {
		return nil, err
	}

	var (
		slot      *school.Slot
		crossings []school.MilestoneCrossing
	)
	err = m.store.WithTx(ctx, func(repo school.Repository) error {
		if err := checkReferences(ctx, repo, in.Pairs); err != nil {
			return err
		}

		slotID, err := repo.InsertSlot(ctx, in.Date, t)
		if err != nil {
			return err
		}

		for i, p := range in.Pairs {
			if err := insertParticipant(ctx, repo, slotID, i, p); err != nil {
				return err
			}
			crossing, err := m.mirrorLesson(ctx, repo, school.Lesson{
				StudentID:      p.StudentID,
				HorseID:        p.HorseID,
				Date:           in.Date,
				Notes:          "Group lesson " + string(t),
				IsSingleLesson: in.SingleLesson,
			}, slotID)
			if err != nil {
				return err
			}
			if crossing != nil {
				crossings = append(crossings, *crossing)
			}
		}

		slot, err = repo.GetSlot(ctx, slotID)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create slot: %w", err)
	}

	m.log.Info().
		Int64("slot_id", int64(slot.ID)).
		Str("date", slot.Date.String()).
		Str("time", string(slot.Time)).
		Int("participants", len(slot.Participants)).
		Msg("Slot created")

	m.notify(ctx, crossings)
	return &CreateResult{Slot: slot, Crossings: crossings}, nil
}

// UpdateSlot replaces date, time and participants. Lesson history is not touched.
func (m *Mutator) UpdateSlot(ctx context.Context, id school.SlotID, in SlotInput) (*school.Slot, error) {
	t, err := school.ValidateSlot(in.Date, in.Time, in.Pairs)
	if err != nil {
		return nil, err
	}

	var slot *school.Slot
	err = m.store.WithTx(ctx, func(repo school.Repository) error {
		if err := checkReferences(ctx, repo, in.Pairs); err != nil {
			return err
		}
		if err := repo.UpdateSlot(ctx, id, in.Date, t); err != nil {
			return err
		}
		if err := repo.ClearParticipants(ctx, id); err != nil {
			return err
		}
		for i, p := range in.Pairs {
			if err := insertParticipant(ctx, repo, id, i, p); err != nil {
				return err
			}
		}
		slot, err = repo.GetSlot(ctx, id)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to update slot %d: %w", id, err)
	}

	m.log.Info().Int64("slot_id", int64(id)).Int("participants", len(slot.Participants)).Msg("Slot updated")
	return slot, nil
}

// DeleteSlot removes a slot and its participants. Lessons stay.
func (m *Mutator) DeleteSlot(ctx context.Context, id school.SlotID) error {
	err := m.store.WithTx(ctx, func(repo school.Repository) error {
		return repo.DeleteSlot(ctx, id)
	})
	if err != nil {
		return fmt.Errorf("failed to delete slot %d: %w", id, err)
	}
	m.log.Info().Int64("slot_id", int64(id)).Msg("Slot deleted")
	return nil
}

// DeleteParticipant removes one student from a slot. With dropEmpty the slot
// is deleted as well once nobody is left.
func (m *Mutator) DeleteParticipant(ctx context.Context, slotID school.SlotID, studentID school.StudentID, dropEmpty bool) (*DeleteParticipantResult, error) {
	result := &DeleteParticipantResult{}
	err := m.store.WithTx(ctx, func(repo school.Repository) error {
		slot, err := repo.GetSlot(ctx, slotID)
		if err != nil {
			return err
		}
		if slot == nil {
			return school.ErrSlotNotFound
		}
		if err := repo.DeleteParticipant(ctx, slotID, studentID); err != nil {
			return err
		}
		if result.Remaining, err = repo.CountParticipants(ctx, slotID); err != nil {
			return err
		}
		if result.Remaining == 0 && dropEmpty {
			result.SlotDeleted = true
			return repo.DeleteSlot(ctx, slotID)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to remove student %d from slot %d: %w", studentID, slotID, err)
	}

	m.log.Info().
		Int64("slot_id", int64(slotID)).
		Int64("student_id", int64(studentID)).
		Int("remaining", result.Remaining).
		Bool("slot_deleted", result.SlotDeleted).
		Msg("Participant removed")
	return result, nil
}

// =============================================================================
// DIRECT LESSON ENTRY
// =============================================================================

// RecordLesson appends one lesson outside any slot.
func (m *Mutator) RecordLesson(ctx context.Context, l school.Lesson) (*RecordResult, error) {
	if l.Date.IsZero() {
		return nil, school.ErrInvalidDate
	}

	result := &RecordResult{}
	err := m.store.WithTx(ctx, func(repo school.Repository) error {
		if err := checkReferences(ctx, repo, []school.Pair{{StudentID: l.StudentID, HorseID: l.HorseID}}); err != nil {
			return err
		}
		before, err := repo.CountLessons(ctx, l.StudentID, m.policy)
		if err != nil {
			return err
		}
		if result.LessonID, err = repo.InsertLesson(ctx, l); err != nil {
			return err
		}
		if result.Total, err = repo.CountLessons(ctx, l.StudentID, m.policy); err != nil {
			return err
		}
		if milestone, ok := school.Crossed(before, result.Total); ok {
			result.Crossing = &school.MilestoneCrossing{
				StudentID: l.StudentID,
				Milestone: milestone,
				Total:     result.Total,
				Date:      l.Date,
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to record lesson: %w", err)
	}

	if result.Crossing != nil {
		m.notify(ctx, []school.MilestoneCrossing{*result.Crossing})
	}
	return result, nil
}

// =============================================================================
// HELPERS
// =============================================================================

// mirrorLesson inserts a lesson and returns the crossing it caused, if any.
func (m *Mutator) mirrorLesson(ctx context.Context, repo school.Repository, l school.Lesson, slotID school.SlotID) (*school.MilestoneCrossing, error) {
	before, err := repo.CountLessons(ctx, l.StudentID, m.policy)
	if err != nil {
		return nil, err
	}
	if _, err := repo.InsertLesson(ctx, l); err != nil {
		return nil, err
	}
	after, err := repo.CountLessons(ctx, l.StudentID, m.policy)
	if err != nil {
		return nil, err
	}

	milestone, ok := school.Crossed(before, after)
	if !ok {
		return nil, nil
	}
	return &school.MilestoneCrossing{
		StudentID: l.StudentID,
		Milestone: milestone,
		Total:     after,
		Date:      l.Date,
		SlotID:    slotID,
	}, nil
}

// insertParticipant stores pair i and stamps its position on a duplicate error.
func insertParticipant(ctx context.Context, repo school.Repository, slotID school.SlotID, i int, p school.Pair) error {
	err := repo.InsertParticipant(ctx, slotID, p)
	var dup *school.DuplicateParticipantError
	if errors.As(err, &dup) {
		dup.Index = i
	}
	return err
}

func checkReferences(ctx context.Context, repo school.Repository, pairs []school.Pair) error {
	for _, p := range pairs {
		s, err := repo.GetStudent(ctx, p.StudentID)
		if err != nil {
			return err
		}
		if s == nil {
			return fmt.Errorf("student %d: %w", p.StudentID, school.ErrUnknownStudent)
		}
		h, err := repo.GetHorse(ctx, p.HorseID)
		if err != nil {
			return err
		}
		if h == nil {
			return fmt.Errorf("horse %d: %w", p.HorseID, school.ErrUnknownHorse)
		}
	}
	return nil
}

func (m *Mutator) notify(ctx context.Context, crossings []school.MilestoneCrossing) {
	if m.notifier == nil {
		return
	}
	for _, c := range crossings {
		if err := m.notifier.MilestoneCrossed(ctx, c); err != nil {
			m.log.Error().Err(err).
				Int64("student_id", int64(c.StudentID)).
				Int("milestone", c.Milestone).
				Msg("Failed to deliver milestone notification")
		}
	}
}
