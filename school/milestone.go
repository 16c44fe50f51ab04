/*
milestone.go - 10-lesson card arithmetic

PURPOSE:
  Riders pay in cards of 10 lessons. Every multiple of 10 completed lessons
  is a milestone, and each milestone is billed once with a printed card.
  This file holds the pure arithmetic; reports/ applies it to stored data.

RULES:
  total     = counted lessons (see CountPolicy)
  current   = floor(total/10)*10, only when total >= 10
  previous  = current - 10, shown only if >= 10 AND already printed
  progress  = total mod 10

  Showing the previous milestone only when printed keeps a late reprint of
  the last card reachable without listing every historical card.

CROSSING:
  Adding one lesson crosses a milestone when floor(after/10) > floor(before/10).
  Crossing is reported, never written to the ledger. The ledger only changes
  when a card is actually issued.
*/
package school

// LessonsPerCard is the size of one billing card.
const LessonsPerCard = 10

// CountPolicy decides which lesson rows count toward milestones.
type CountPolicy struct {
	ExcludeSingleLessons bool
}

// Counts reports whether a lesson with the given flag is counted.
func (p CountPolicy) Counts(isSingleLesson bool) bool {
	return !(p.ExcludeSingleLessons && isSingleLesson)
}

// MilestoneStatus is one reportable milestone and whether its card was issued.
type MilestoneStatus struct {
	Milestone int
	IsPrinted bool
}

// ReportInfo is the per-student availability summary.
type ReportInfo struct {
	StudentID           StudentID
	StudentName         string
	TotalLessons        int
	Milestones          []MilestoneStatus
	ProgressTowardsNext int
}

// MilestoneCrossing is raised when a new lesson completes a card.
type MilestoneCrossing struct {
	StudentID StudentID
	Milestone int
	Total     int
	Date      Date
	SlotID    SlotID // zero for direct lesson entry
}

// CurrentMilestone returns floor(total/10)*10 and false when total < 10.
func CurrentMilestone(total int) (int, bool) {
	if total < LessonsPerCard {
		return 0, false
	}
	return (total / LessonsPerCard) * LessonsPerCard, true
}

// Crossed reports the milestone reached when the count moves from before to after.
func Crossed(before, after int) (int, bool) {
	if after/LessonsPerCard > before/LessonsPerCard {
		return (after / LessonsPerCard) * LessonsPerCard, true
	}
	return 0, false
}

// BuildReportInfo applies the visibility rules to a total and its printed set.
func BuildReportInfo(total LessonTotal, printed map[int]bool) ReportInfo {
	info := ReportInfo{
		StudentID:           total.StudentID,
		StudentName:         total.StudentName,
		TotalLessons:        total.Total,
		Milestones:          []MilestoneStatus{},
		ProgressTowardsNext: total.Total % LessonsPerCard,
	}

	current, ok := CurrentMilestone(total.Total)
	if !ok {
		return info
	}

	if previous := current - LessonsPerCard; previous >= LessonsPerCard && printed[previous] {
		info.Milestones = append(info.Milestones, MilestoneStatus{Milestone: previous, IsPrinted: true})
	}
	info.Milestones = append(info.Milestones, MilestoneStatus{Milestone: current, IsPrinted: printed[current]})
	return info
}

// ValidateMilestone checks that a card for milestone can be issued at total.
func ValidateMilestone(studentID StudentID, milestone, total int) error {
	if milestone < LessonsPerCard || milestone%LessonsPerCard != 0 {
		return &MilestoneError{StudentID: studentID, Milestone: milestone, Total: total, Err: ErrInvalidMilestone}
	}
	if milestone > total {
		return &MilestoneError{StudentID: studentID, Milestone: milestone, Total: total, Err: ErrMilestoneNotReached}
	}
	return nil
}

// MilestoneOffset is the zero-based index of the first lesson on the card.
func MilestoneOffset(milestone int) int {
	return milestone - LessonsPerCard
}
