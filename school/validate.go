package school

import (
	"fmt"
	"strings"
)

// ValidatePairs enforces the slot invariant: at least one pair, each student
// at most once, each horse at most once.
func ValidatePairs(pairs []Pair) error {
	if len(pairs) == 0 {
		return ErrEmptyParticipants
	}

	students := make(map[StudentID]bool, len(pairs))
	horses := make(map[HorseID]bool, len(pairs))
	for i, p := range pairs {
		if students[p.StudentID] {
			return &DuplicateParticipantError{Index: i, StudentID: p.StudentID, HorseID: p.HorseID, Kind: ErrDuplicateStudent}
		}
		if horses[p.HorseID] {
			return &DuplicateParticipantError{Index: i, StudentID: p.StudentID, HorseID: p.HorseID, Kind: ErrDuplicateHorse}
		}
		students[p.StudentID] = true
		horses[p.HorseID] = true
	}
	return nil
}

// ValidateSlot checks date, time and pairs of a slot write.
func ValidateSlot(date Date, t TimeOfDay, pairs []Pair) (TimeOfDay, error) {
	if date.IsZero() {
		return "", ErrInvalidDate
	}
	normalized, err := ParseTimeOfDay(string(t))
	if err != nil {
		return "", err
	}
	if err := ValidatePairs(pairs); err != nil {
		return "", err
	}
	return normalized, nil
}

// ValidateGroup normalizes and checks a rider group before it is stored.
func ValidateGroup(g *RiderGroup) error {
	g.Name = strings.TrimSpace(g.Name)
	if g.Name == "" {
		return fmt.Errorf("rider group: %w", ErrNameRequired)
	}
	if _, err := ParseWeekday(int(g.Weekday)); err != nil {
		return err
	}
	t, err := ParseTimeOfDay(string(g.Time))
	if err != nil {
		return err
	}
	g.Time = t
	return nil
}

// ValidateStudent trims and requires the name.
func ValidateStudent(s *Student) error {
	s.Name = strings.TrimSpace(s.Name)
	if s.Name == "" {
		return fmt.Errorf("student: %w", ErrNameRequired)
	}
	s.ContactInfo = strings.TrimSpace(s.ContactInfo)
	return nil
}

// ValidateHorse trims and requires the name.
func ValidateHorse(h *Horse) error {
	h.Name = strings.TrimSpace(h.Name)
	if h.Name == "" {
		return fmt.Errorf("horse: %w", ErrNameRequired)
	}
	h.Breed = strings.TrimSpace(h.Breed)
	return nil
}
