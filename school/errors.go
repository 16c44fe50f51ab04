/*
errors.go - Centralized error types for the riding school domain

ERROR CATEGORIES:
  1. Validation errors - rejected before any write (400)
  2. Not found - referenced record doesn't exist (404)
  3. Conflicts - uniqueness and referential protection (409)
  4. Collaborator failures - document generation (502)

Transactional failures are whatever the store returned, wrapped with
context. The enclosing transaction has already been rolled back by the
time the caller sees them.

USAGE:
  if errors.Is(err, school.ErrDuplicateHorse) { ... }
  if school.IsClientError(err) { ... }
*/
package school

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// Validation
	ErrEmptyParticipants   = errors.New("slot needs at least one participant")
	ErrDuplicateStudent    = errors.New("student appears twice in slot")
	ErrDuplicateHorse      = errors.New("horse appears twice in slot")
	ErrInvalidDate         = errors.New("invalid date (use YYYY-MM-DD)")
	ErrInvalidTime         = errors.New("invalid time of day (use HH:MM)")
	ErrInvalidWeekday      = errors.New("weekday must be between 0 (Sunday) and 6")
	ErrInvalidMilestone    = errors.New("milestone must be a positive multiple of 10")
	ErrMilestoneNotReached = errors.New("milestone not reached")
	ErrNameRequired        = errors.New("name is required")
	ErrUnknownStudent      = errors.New("unknown student")
	ErrUnknownHorse        = errors.New("unknown horse")
	ErrNotGroupMember      = errors.New("student is not a member of the group")

	// Not found
	ErrStudentNotFound     = errors.New("student not found")
	ErrHorseNotFound       = errors.New("horse not found")
	ErrSlotNotFound        = errors.New("schedule slot not found")
	ErrParticipantNotFound = errors.New("participant not found in slot")
	ErrGroupNotFound       = errors.New("rider group not found")

	// Conflicts
	ErrDuplicateName = errors.New("name already exists")
	ErrHorseInUse    = errors.New("horse is referenced by lesson history or schedule")

	// Collaborators
	ErrDocumentFailed = errors.New("document generation failed")
)

// =============================================================================
// STRUCTURED ERRORS
// =============================================================================

// DuplicateParticipantError names the offending pair position.
type DuplicateParticipantError struct {
	Index     int // position of the second occurrence in the input
	StudentID StudentID
	HorseID   HorseID
	Kind      error // ErrDuplicateStudent or ErrDuplicateHorse
}

func (e *DuplicateParticipantError) Error() string {
	if e.Kind == ErrDuplicateHorse {
		return fmt.Sprintf("participant %d: horse %d already assigned in this slot", e.Index, e.HorseID)
	}
	return fmt.Sprintf("participant %d: student %d already in this slot", e.Index, e.StudentID)
}

func (e *DuplicateParticipantError) Unwrap() error {
	return e.Kind
}

// MilestoneError carries the totals behind a rejected issue request.
type MilestoneError struct {
	StudentID StudentID
	Milestone int
	Total     int
	Err       error
}

func (e *MilestoneError) Error() string {
	return fmt.Sprintf("student %d: milestone %d (%d lessons counted): %v",
		e.StudentID, e.Milestone, e.Total, e.Err)
}

func (e *MilestoneError) Unwrap() error {
	return e.Err
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true if the error is due to invalid client input.
func IsClientError(err error) bool {
	for _, target := range []error{
		ErrEmptyParticipants, ErrDuplicateStudent, ErrDuplicateHorse,
		ErrInvalidDate, ErrInvalidTime, ErrInvalidWeekday,
		ErrInvalidMilestone, ErrMilestoneNotReached, ErrNameRequired,
		ErrUnknownStudent, ErrUnknownHorse, ErrNotGroupMember,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// IsNotFound returns true if the error indicates a missing resource.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrStudentNotFound) ||
		errors.Is(err, ErrHorseNotFound) ||
		errors.Is(err, ErrSlotNotFound) ||
		errors.Is(err, ErrParticipantNotFound) ||
		errors.Is(err, ErrGroupNotFound)
}

// IsConflict returns true for uniqueness and referential-protection errors.
func IsConflict(err error) bool {
	return errors.Is(err, ErrDuplicateName) || errors.Is(err, ErrHorseInUse)
}
