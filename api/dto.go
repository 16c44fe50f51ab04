/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the school domain model from the external API contract.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients
  - *Response: Complex response wrappers

DATES:
  Calendar dates are "YYYY-MM-DD", times of day "HH:MM", timestamps RFC3339.
  Weekdays are 0 (Sunday) to 6 (Saturday).

VALIDATION:
  Validation is done by the domain packages, not in DTOs. DTOs are pure
  data carriers.

SEE ALSO:
  - handlers.go: Uses these types
*/
package api

import (
	"time"

	"github.com/garnzell/riding-school/groups"
	"github.com/garnzell/riding-school/reports"
	"github.com/garnzell/riding-school/schedule"
	"github.com/garnzell/riding-school/school"
)

// =============================================================================
// ENTITIES
// =============================================================================

type StudentDTO struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	ContactInfo string `json:"contact_info"`
	IsMember    bool   `json:"is_member"`
	IsYouth     bool   `json:"is_youth"`
	CreatedAt   string `json:"created_at,omitempty"`
}

// StudentRequest creates or updates a student.
type StudentRequest struct {
	Name        string `json:"name"`
	ContactInfo string `json:"contact_info"`
	IsMember    bool   `json:"is_member"`
	IsYouth     bool   `json:"is_youth"`
}

type HorseDTO struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Breed string `json:"breed"`
}

// HorseRequest creates or updates a horse.
type HorseRequest struct {
	Name  string `json:"name"`
	Breed string `json:"breed"`
}

type LessonDTO struct {
	ID             int64  `json:"id"`
	StudentID      int64  `json:"student_id"`
	StudentName    string `json:"student_name,omitempty"`
	HorseID        int64  `json:"horse_id"`
	HorseName      string `json:"horse_name,omitempty"`
	Date           string `json:"date"`
	Notes          string `json:"notes"`
	IsSingleLesson bool   `json:"is_single_lesson"`
}

// CreateLessonRequest enters one lesson directly into the history.
type CreateLessonRequest struct {
	StudentID      int64  `json:"student_id"`
	HorseID        int64  `json:"horse_id"`
	Date           string `json:"date"`
	Notes          string `json:"notes"`
	IsSingleLesson bool   `json:"is_single_lesson"`
}

type CreateLessonResponse struct {
	LessonID     int64        `json:"lesson_id"`
	TotalLessons int          `json:"total_lessons"`
	Crossing     *CrossingDTO `json:"milestone_crossed,omitempty"`
}

// =============================================================================
// SCHEDULE
// =============================================================================

type ParticipantDTO struct {
	StudentID   int64  `json:"student_id"`
	StudentName string `json:"student_name"`
	HorseID     int64  `json:"horse_id"`
	HorseName   string `json:"horse_name"`
}

type SlotDTO struct {
	ID           int64            `json:"id"`
	Date         string           `json:"date"`
	Time         string           `json:"time"`
	Participants []ParticipantDTO `json:"participants"`
}

// SlotRequest creates or updates a slot.
type SlotRequest struct {
	Date           string        `json:"date"`
	Time           string        `json:"time"`
	Participants   []school.Pair `json:"participants"`
	IsSingleLesson bool          `json:"is_single_lesson,omitempty"` // create only
}

type CrossingDTO struct {
	StudentID int64  `json:"student_id"`
	Milestone int    `json:"milestone"`
	Total     int    `json:"total_lessons"`
	Date      string `json:"date"`
	SlotID    int64  `json:"slot_id,omitempty"`
}

type CreateSlotResponse struct {
	Slot      SlotDTO       `json:"slot"`
	Crossings []CrossingDTO `json:"milestones_crossed"`
}

type DeleteParticipantResponse struct {
	Remaining   int  `json:"remaining_participants"`
	SlotDeleted bool `json:"slot_deleted"`
}

// =============================================================================
// RIDER GROUPS
// =============================================================================

type GroupDTO struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Weekday     int    `json:"weekday"`
	WeekdayName string `json:"weekday_name"`
	Time        string `json:"time"`
	CreatedAt   string `json:"created_at,omitempty"`
}

// GroupRequest creates or updates a group.
type GroupRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Weekday     int    `json:"weekday"`
	Time        string `json:"time"`
}

type MemberDTO struct {
	StudentID   int64  `json:"student_id"`
	StudentName string `json:"student_name"`
}

type SaveMembersRequest struct {
	StudentIDs []int64 `json:"student_ids"`
}

type RosterMemberDTO struct {
	StudentID   int64  `json:"student_id"`
	StudentName string `json:"student_name"`
	Cancelled   bool   `json:"cancelled"`
}

// RosterDTO is a group prepared for one date.
type RosterDTO struct {
	Group     GroupDTO          `json:"group"`
	Date      string            `json:"date"`
	Members   []RosterMemberDTO `json:"members"`
	Cancelled []int64           `json:"cancelled_student_ids"`
}

type ToggleCancellationRequest struct {
	StudentID int64  `json:"student_id"`
	Date      string `json:"date"`
}

type ToggleCancellationResponse struct {
	StudentID int64  `json:"student_id"`
	Date      string `json:"date"`
	Cancelled bool   `json:"cancelled"`
}

// =============================================================================
// REPORTS
// =============================================================================

type MilestoneDTO struct {
	Milestone int  `json:"milestone"`
	IsPrinted bool `json:"is_printed"`
}

type ReportInfoDTO struct {
	StudentID           int64          `json:"student_id"`
	StudentName         string         `json:"student_name"`
	TotalLessons        int            `json:"total_lessons"`
	Milestones          []MilestoneDTO `json:"available_milestones"`
	ProgressTowardsNext int            `json:"progress_towards_next"`
}

type PrintedReportDTO struct {
	StudentID  int64  `json:"student_id"`
	Milestone  int    `json:"milestone"`
	PrintedAt  string `json:"printed_at"`
	DocumentID string `json:"document_id"`
}

type IssueReportResponse struct {
	Document   *reports.Document `json:"document"`
	Report     PrintedReportDTO  `json:"report"`
	FirstIssue bool              `json:"first_issue"`
}

// =============================================================================
// SCENARIOS
// =============================================================================

// ScenarioDTO represents a demo scenario.
type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

type LoadScenarioRequest struct {
	ScenarioID string `json:"scenario_id"`
}

// ErrorResponse is the standard error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details any    `json:"details,omitempty"`
}

// =============================================================================
// CONVERSIONS
// =============================================================================

func toStudentDTO(s school.Student) StudentDTO {
	dto := StudentDTO{
		ID:          int64(s.ID),
		Name:        s.Name,
		ContactInfo: s.ContactInfo,
		IsMember:    s.IsMember,
		IsYouth:     s.IsYouth,
	}
	if !s.CreatedAt.IsZero() {
		dto.CreatedAt = s.CreatedAt.Format(time.RFC3339)
	}
	return dto
}

func toHorseDTO(h school.Horse) HorseDTO {
	return HorseDTO{ID: int64(h.ID), Name: h.Name, Breed: h.Breed}
}

func toLessonDTO(l school.Lesson) LessonDTO {
	return LessonDTO{
		ID:             int64(l.ID),
		StudentID:      int64(l.StudentID),
		StudentName:    l.StudentName,
		HorseID:        int64(l.HorseID),
		HorseName:      l.HorseName,
		Date:           l.Date.String(),
		Notes:          l.Notes,
		IsSingleLesson: l.IsSingleLesson,
	}
}

func toSlotDTO(s school.Slot) SlotDTO {
	dto := SlotDTO{
		ID:           int64(s.ID),
		Date:         s.Date.String(),
		Time:         string(s.Time),
		Participants: make([]ParticipantDTO, len(s.Participants)),
	}
	for i, p := range s.Participants {
		dto.Participants[i] = ParticipantDTO{
			StudentID:   int64(p.StudentID),
			StudentName: p.StudentName,
			HorseID:     int64(p.HorseID),
			HorseName:   p.HorseName,
		}
	}
	return dto
}

func toSlotDTOs(slots []school.Slot) []SlotDTO {
	dtos := make([]SlotDTO, len(slots))
	for i, s := range slots {
		dtos[i] = toSlotDTO(s)
	}
	return dtos
}

func toCrossingDTO(c school.MilestoneCrossing) CrossingDTO {
	return CrossingDTO{
		StudentID: int64(c.StudentID),
		Milestone: c.Milestone,
		Total:     c.Total,
		Date:      c.Date.String(),
		SlotID:    int64(c.SlotID),
	}
}

func toCreateSlotResponse(res *schedule.CreateResult) CreateSlotResponse {
	resp := CreateSlotResponse{
		Slot:      toSlotDTO(*res.Slot),
		Crossings: make([]CrossingDTO, len(res.Crossings)),
	}
	for i, c := range res.Crossings {
		resp.Crossings[i] = toCrossingDTO(c)
	}
	return resp
}

func toGroupDTO(g school.RiderGroup) GroupDTO {
	dto := GroupDTO{
		ID:          int64(g.ID),
		Name:        g.Name,
		Description: g.Description,
		Weekday:     int(g.Weekday),
		WeekdayName: g.Weekday.String(),
		Time:        string(g.Time),
	}
	if !g.CreatedAt.IsZero() {
		dto.CreatedAt = g.CreatedAt.Format(time.RFC3339)
	}
	return dto
}

func toGroupDTOs(gs []school.RiderGroup) []GroupDTO {
	dtos := make([]GroupDTO, len(gs))
	for i, g := range gs {
		dtos[i] = toGroupDTO(g)
	}
	return dtos
}

func toMemberDTOs(ms []school.GroupMember) []MemberDTO {
	dtos := make([]MemberDTO, len(ms))
	for i, m := range ms {
		dtos[i] = MemberDTO{StudentID: int64(m.StudentID), StudentName: m.StudentName}
	}
	return dtos
}

func toRosterDTO(r *groups.Roster) RosterDTO {
	dto := RosterDTO{
		Group:     toGroupDTO(r.Group),
		Date:      r.Date.String(),
		Members:   make([]RosterMemberDTO, len(r.Members)),
		Cancelled: toIDs(r.Cancelled),
	}
	for i, m := range r.Members {
		dto.Members[i] = RosterMemberDTO{
			StudentID:   int64(m.StudentID),
			StudentName: m.StudentName,
			Cancelled:   r.IsCancelled(m.StudentID),
		}
	}
	return dto
}

func toIDs(ids []school.StudentID) []int64 {
	out := make([]int64, len(ids))
	for i, id := range ids {
		out[i] = int64(id)
	}
	return out
}

func toReportInfoDTO(info school.ReportInfo) ReportInfoDTO {
	dto := ReportInfoDTO{
		StudentID:           int64(info.StudentID),
		StudentName:         info.StudentName,
		TotalLessons:        info.TotalLessons,
		Milestones:          make([]MilestoneDTO, len(info.Milestones)),
		ProgressTowardsNext: info.ProgressTowardsNext,
	}
	for i, m := range info.Milestones {
		dto.Milestones[i] = MilestoneDTO{Milestone: m.Milestone, IsPrinted: m.IsPrinted}
	}
	return dto
}

func toPrintedReportDTO(r school.PrintedReport) PrintedReportDTO {
	return PrintedReportDTO{
		StudentID:  int64(r.StudentID),
		Milestone:  r.Milestone,
		PrintedAt:  r.PrintedAt.Format(time.RFC3339),
		DocumentID: r.DocumentID,
	}
}
