/*
store.go - Persistence interfaces for the riding school

PURPOSE:
  Defines the boundary between domain services and the database. Services
  depend on these interfaces, never on a concrete driver. store/sqlite is the
  production implementation.

KEY INTERFACES:
  StudentStore, HorseStore:  Entity records
  LessonStore:               Write-once lesson history and counting
  SlotStore:                 Schedule slots and their participants
  GroupStore:                Rider groups and membership
  CancellationStore:         Per-date absence overrides
  ReportLedger:              Printed-card deduplication ledger
  Repository:                All of the above
  TxRunner:                  Repository plus a unit of work

NOT-FOUND CONVENTION:
  Get* methods return (nil, nil) when the row doesn't exist. Update* and
  Delete* methods return the matching Err*NotFound sentinel.

UNIT OF WORK:
  WithTx runs fn against a Repository bound to one database transaction.
  fn returning an error rolls everything back; nil commits. The Repository
  passed to fn must not be used after fn returns.
*/
package school

import (
	"context"
	"time"
)

type StudentStore interface {
	CreateStudent(ctx context.Context, s Student) (StudentID, error)
	GetStudent(ctx context.Context, id StudentID) (*Student, error)
	ListStudents(ctx context.Context) ([]Student, error)
	UpdateStudent(ctx context.Context, s Student) error
	DeleteStudent(ctx context.Context, id StudentID) error
}

type HorseStore interface {
	CreateHorse(ctx context.Context, h Horse) (HorseID, error)
	GetHorse(ctx context.Context, id HorseID) (*Horse, error)
	ListHorses(ctx context.Context) ([]Horse, error)
	UpdateHorse(ctx context.Context, h Horse) error
	// DeleteHorse returns ErrHorseInUse while lessons or participants reference it.
	DeleteHorse(ctx context.Context, id HorseID) error
}

type LessonStore interface {
	InsertLesson(ctx context.Context, l Lesson) (LessonID, error)
	CountLessons(ctx context.Context, studentID StudentID, policy CountPolicy) (int, error)
	// ListLessons returns the full history, newest first, names joined.
	ListLessons(ctx context.Context) ([]Lesson, error)
	// CardLessons returns up to LessonsPerCard counted lessons starting at
	// offset, ordered by date then insertion.
	CardLessons(ctx context.Context, studentID StudentID, offset int, policy CountPolicy) ([]Lesson, error)
	// LessonTotals returns one row per student with at least one counted lesson, by name.
	LessonTotals(ctx context.Context, policy CountPolicy) ([]LessonTotal, error)
}

type SlotStore interface {
	InsertSlot(ctx context.Context, date Date, t TimeOfDay) (SlotID, error)
	UpdateSlot(ctx context.Context, id SlotID, date Date, t TimeOfDay) error
	DeleteSlot(ctx context.Context, id SlotID) error
	GetSlot(ctx context.Context, id SlotID) (*Slot, error)
	SlotsForDate(ctx context.Context, date Date) ([]Slot, error)

	InsertParticipant(ctx context.Context, slotID SlotID, p Pair) error
	ClearParticipants(ctx context.Context, slotID SlotID) error
	DeleteParticipant(ctx context.Context, slotID SlotID, studentID StudentID) error
	CountParticipants(ctx context.Context, slotID SlotID) (int, error)
}

type GroupStore interface {
	CreateGroup(ctx context.Context, g RiderGroup) (GroupID, error)
	GetGroup(ctx context.Context, id GroupID) (*RiderGroup, error)
	ListGroups(ctx context.Context) ([]RiderGroup, error)
	// GroupsByWeekday is ordered by time, then name.
	GroupsByWeekday(ctx context.Context, weekday time.Weekday) ([]RiderGroup, error)
	UpdateGroup(ctx context.Context, g RiderGroup) error
	DeleteGroup(ctx context.Context, id GroupID) error

	// GroupMembers is ordered by student name.
	GroupMembers(ctx context.Context, id GroupID) ([]GroupMember, error)
	ReplaceMembers(ctx context.Context, id GroupID, studentIDs []StudentID) error
	IsMember(ctx context.Context, id GroupID, studentID StudentID) (bool, error)
}

type CancellationStore interface {
	CancelledStudents(ctx context.Context, groupID GroupID, date Date) ([]StudentID, error)
	HasCancellation(ctx context.Context, groupID GroupID, studentID StudentID, date Date) (bool, error)
	InsertCancellation(ctx context.Context, c Cancellation) error
	DeleteCancellation(ctx context.Context, groupID GroupID, studentID StudentID, date Date) error
}

type ReportLedger interface {
	// LogPrintedReport inserts the row if absent and reports whether it did.
	LogPrintedReport(ctx context.Context, r PrintedReport) (bool, error)
	PrintedMilestones(ctx context.Context) (map[StudentID]map[int]bool, error)
	PrintedReports(ctx context.Context, studentID StudentID) ([]PrintedReport, error)
}

// Repository is every store concern behind one handle.
type Repository interface {
	StudentStore
	HorseStore
	LessonStore
	SlotStore
	GroupStore
	CancellationStore
	ReportLedger
}

// TxRunner is a Repository that can run a unit of work atomically.
type TxRunner interface {
	Repository
	WithTx(ctx context.Context, fn func(Repository) error) error
}
