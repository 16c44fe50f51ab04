/*
types.go - Core domain types for the riding school

PURPOSE:
  Defines the vocabulary shared by every package: students, horses, the
  write-once lesson history, schedule slots with their participants, rider
  groups with per-date cancellations, and the printed-report ledger.

OWNERSHIP:
  - A Slot owns its Participants (deleting the slot deletes them).
  - Lessons are history. They are never updated after creation and are the
    only input to milestone counting.
  - Horses are referenced, never owned. A horse cannot serve two riders in
    the same slot.
  - GroupMembers carry no horse. Horses are bound per date, at slot level.

IDS:
  All identifiers are SQLite rowids wrapped in distinct types so a StudentID
  can't be passed where a HorseID is expected.

SEE ALSO:
  - date.go: Date and TimeOfDay
  - milestone.go: 10-lesson card arithmetic
  - store.go: Persistence interfaces
*/
package school

import "time"

// =============================================================================
// IDENTIFIERS
// =============================================================================

type (
	StudentID int64
	HorseID   int64
	LessonID  int64
	SlotID    int64
	GroupID   int64
)

// =============================================================================
// ENTITIES
// =============================================================================

// Student is a rider. Name is unique.
type Student struct {
	ID          StudentID
	Name        string
	ContactInfo string
	IsMember    bool // members pay the reduced card price
	IsYouth     bool
	CreatedAt   time.Time
}

// Horse is a school horse. Name is unique.
type Horse struct {
	ID    HorseID
	Name  string
	Breed string
}

// Lesson is one completed ride in a student's history.
type Lesson struct {
	ID             LessonID
	StudentID      StudentID
	HorseID        HorseID
	Date           Date
	Notes          string
	IsSingleLesson bool

	// Joined for display, empty on insert.
	StudentName string
	HorseName   string
}

// Pair assigns a horse to a student inside a slot.
type Pair struct {
	StudentID StudentID `json:"student_id"`
	HorseID   HorseID   `json:"horse_id"`
}

// Participant is a Pair as stored in a slot, with display names joined.
type Participant struct {
	SlotID      SlotID
	StudentID   StudentID
	StudentName string
	HorseID     HorseID
	HorseName   string
}

// Slot is one lesson group at one date and time.
type Slot struct {
	ID           SlotID
	Date         Date
	Time         TimeOfDay
	Participants []Participant
}

// Pairs returns the (student, horse) pairs of the slot in participant order.
func (s Slot) Pairs() []Pair {
	pairs := make([]Pair, len(s.Participants))
	for i, p := range s.Participants {
		pairs[i] = Pair{StudentID: p.StudentID, HorseID: p.HorseID}
	}
	return pairs
}

// RiderGroup is a recurring weekly cohort.
type RiderGroup struct {
	ID          GroupID
	Name        string
	Description string
	Weekday     time.Weekday // 0 = Sunday
	Time        TimeOfDay
	CreatedAt   time.Time
}

// GroupMember links a student to a group.
type GroupMember struct {
	GroupID     GroupID
	StudentID   StudentID
	StudentName string
}

// Cancellation marks one member absent from one occurrence of a group.
type Cancellation struct {
	GroupID   GroupID
	StudentID StudentID
	Date      Date
	CreatedAt time.Time
}

// PrintedReport is a ledger row: the card for (student, milestone) was issued.
type PrintedReport struct {
	StudentID  StudentID
	Milestone  int
	PrintedAt  time.Time
	DocumentID string // first document produced for this milestone
}

// LessonTotal is the counted lesson total of one student.
type LessonTotal struct {
	StudentID   StudentID
	StudentName string
	Total       int
}
