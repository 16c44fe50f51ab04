/*
handlers.go - HTTP API handlers for the riding school

PURPOSE:
  Exposes the schedule, rider groups and lesson cards via REST API. Handles
  HTTP request/response, JSON serialization, and delegates to the domain
  services.

ENDPOINTS:
  Schedule:
    GET    /api/schedule?date=                      Slots of one day
    POST   /api/schedule                            Create slot, record lessons
    PUT    /api/schedule/{id}                       Replace slot date/time/participants
    DELETE /api/schedule/{id}                       Delete slot (lessons stay)
    DELETE /api/schedule/{id}/participants/{sid}    Remove one participant
    POST   /api/schedule/print?date=                Print the day sheet

  Rider groups:
    GET    /api/groups/for-date?date=               Groups meeting on a date
    GET    /api/groups/{id}/roster?date=            Members with cancellations
    POST   /api/groups/{id}/cancellations/toggle    Flip one absence

  Reports:
    GET    /api/reports                             Available cards per student
    POST   /api/reports/{sid}/milestones/{m}/print  Issue a card
    GET    /api/reports/{sid}/history               Ledger rows

ARCHITECTURE:
  Handler struct holds all dependencies:
  - Store: Entity CRUD, reset, schema version
  - Schedule, Groups, Reports: Domain services
  - Printer: Day sheet rendering

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, invalid input, unknown references
  - 404: Resource not found
  - 409: Conflict (duplicate name, horse in use)
  - 502: Document generation failed
  - 500: Internal errors

SECURITY NOTE:
  Currently NO authentication or authorization. All endpoints are public.

SEE ALSO:
  - dto.go: Request/response data structures
  - scenarios.go: Demo scenario loaders
  - server.go: Router setup and middleware
*/
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/garnzell/riding-school/groups"
	"github.com/garnzell/riding-school/reports"
	"github.com/garnzell/riding-school/schedule"
	"github.com/garnzell/riding-school/school"
	"github.com/garnzell/riding-school/store/sqlite"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// DaySheetPrinter renders the printable schedule of one day.
type DaySheetPrinter interface {
	DaySheet(ctx context.Context, date school.Date, slots []school.Slot) (*reports.Document, error)
}

// Deps are the collaborators of a Handler.
type Deps struct {
	Store    *sqlite.Store
	Schedule *schedule.Mutator
	Groups   *groups.Resolver
	Reports  *reports.Service
	Printer  DaySheetPrinter

	// DropEmptySlots deletes a slot when its last participant is removed.
	DropEmptySlots bool
}

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store    *sqlite.Store
	Schedule *schedule.Mutator
	Groups   *groups.Resolver
	Reports  *reports.Service
	Printer  DaySheetPrinter

	dropEmptySlots bool
	log            zerolog.Logger

	// Track currently loaded scenario
	mu              sync.Mutex
	currentScenario string
}

// NewHandler creates a new handler.
func NewHandler(d Deps, log zerolog.Logger) *Handler {
	return &Handler{
		Store:          d.Store,
		Schedule:       d.Schedule,
		Groups:         d.Groups,
		Reports:        d.Reports,
		Printer:        d.Printer,
		dropEmptySlots: d.DropEmptySlots,
		log:            log.With().Str("component", "api").Logger(),
	}
}

// Health reports liveness and the applied schema version.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	version, err := h.Store.SchemaVersion(r.Context())
	if err != nil {
		h.writeDomainError(w, "Database unavailable", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":         "ok",
		"schema_version": version,
	})
}

// =============================================================================
// SCHEDULE HANDLERS
// =============================================================================

// GetDailySchedule returns the slots of ?date= ordered by time.
func (h *Handler) GetDailySchedule(w http.ResponseWriter, r *http.Request) {
	date, err := dateParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date", err)
		return
	}

	slots, err := h.Schedule.DailySchedule(r.Context(), date)
	if err != nil {
		h.writeDomainError(w, "Failed to load schedule", err)
		return
	}
	writeJSON(w, http.StatusOK, toSlotDTOs(slots))
}

// CreateSlot stores a slot and records one lesson per participant.
func (h *Handler) CreateSlot(w http.ResponseWriter, r *http.Request) {
	var req SlotRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	in, err := req.toInput()
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid slot", err)
		return
	}

	res, err := h.Schedule.CreateSlot(r.Context(), in)
	if err != nil {
		h.writeDomainError(w, "Failed to create slot", err)
		return
	}
	writeJSON(w, http.StatusCreated, toCreateSlotResponse(res))
}

// UpdateSlot replaces date, time and participants. Lessons are not touched.
func (h *Handler) UpdateSlot(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid slot ID", err)
		return
	}

	var req SlotRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	in, err := req.toInput()
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid slot", err)
		return
	}

	slot, err := h.Schedule.UpdateSlot(r.Context(), school.SlotID(id), in)
	if err != nil {
		h.writeDomainError(w, "Failed to update slot", err)
		return
	}
	writeJSON(w, http.StatusOK, toSlotDTO(*slot))
}

func (h *Handler) DeleteSlot(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid slot ID", err)
		return
	}

	if err := h.Schedule.DeleteSlot(r.Context(), school.SlotID(id)); err != nil {
		h.writeDomainError(w, "Failed to delete slot", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// DeleteParticipant removes one student from a slot.
func (h *Handler) DeleteParticipant(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid slot ID", err)
		return
	}
	studentID, err := parseID(r, "studentID")
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid student ID", err)
		return
	}

	res, err := h.Schedule.DeleteParticipant(r.Context(), school.SlotID(id), school.StudentID(studentID), h.dropEmptySlots)
	if err != nil {
		h.writeDomainError(w, "Failed to remove participant", err)
		return
	}
	writeJSON(w, http.StatusOK, DeleteParticipantResponse{
		Remaining:   res.Remaining,
		SlotDeleted: res.SlotDeleted,
	})
}

// PrintDailySchedule renders the day sheet of ?date= and returns the document.
func (h *Handler) PrintDailySchedule(w http.ResponseWriter, r *http.Request) {
	date, err := dateParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date", err)
		return
	}

	slots, err := h.Schedule.DailySchedule(r.Context(), date)
	if err != nil {
		h.writeDomainError(w, "Failed to load schedule", err)
		return
	}
	doc, err := h.Printer.DaySheet(r.Context(), date, slots)
	if err != nil {
		h.writeDomainError(w, "Failed to print schedule", fmt.Errorf("%w: %w", school.ErrDocumentFailed, err))
		return
	}
	writeJSON(w, http.StatusCreated, doc)
}

func (req SlotRequest) toInput() (schedule.SlotInput, error) {
	date, err := school.ParseDate(req.Date)
	if err != nil {
		return schedule.SlotInput{}, err
	}
	return schedule.SlotInput{
		Date:         date,
		Time:         school.TimeOfDay(req.Time),
		Pairs:        req.Participants,
		SingleLesson: req.IsSingleLesson,
	}, nil
}

// =============================================================================
// RIDER GROUP HANDLERS
// =============================================================================

func (h *Handler) ListGroups(w http.ResponseWriter, r *http.Request) {
	gs, err := h.Groups.List(r.Context())
	if err != nil {
		h.writeDomainError(w, "Failed to list groups", err)
		return
	}
	writeJSON(w, http.StatusOK, toGroupDTOs(gs))
}

func (h *Handler) GetGroup(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid group ID", err)
		return
	}

	g, err := h.Groups.Get(r.Context(), school.GroupID(id))
	if err != nil {
		h.writeDomainError(w, "Failed to get group", err)
		return
	}
	writeJSON(w, http.StatusOK, toGroupDTO(*g))
}

func (h *Handler) CreateGroup(w http.ResponseWriter, r *http.Request) {
	var req GroupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	g, err := h.Groups.Create(r.Context(), req.toGroup(0))
	if err != nil {
		h.writeDomainError(w, "Failed to create group", err)
		return
	}
	writeJSON(w, http.StatusCreated, toGroupDTO(*g))
}

func (h *Handler) UpdateGroup(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid group ID", err)
		return
	}

	var req GroupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	g, err := h.Groups.Update(r.Context(), req.toGroup(school.GroupID(id)))
	if err != nil {
		h.writeDomainError(w, "Failed to update group", err)
		return
	}
	writeJSON(w, http.StatusOK, toGroupDTO(*g))
}

func (h *Handler) DeleteGroup(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid group ID", err)
		return
	}

	if err := h.Groups.Delete(r.Context(), school.GroupID(id)); err != nil {
		h.writeDomainError(w, "Failed to delete group", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) GetGroupMembers(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid group ID", err)
		return
	}

	members, err := h.Groups.Members(r.Context(), school.GroupID(id))
	if err != nil {
		h.writeDomainError(w, "Failed to load members", err)
		return
	}
	writeJSON(w, http.StatusOK, toMemberDTOs(members))
}

// SaveGroupMembers replaces the member list of a group.
func (h *Handler) SaveGroupMembers(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid group ID", err)
		return
	}

	var req SaveMembersRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	ids := make([]school.StudentID, len(req.StudentIDs))
	for i, sid := range req.StudentIDs {
		ids[i] = school.StudentID(sid)
	}

	members, err := h.Groups.SaveMembers(r.Context(), school.GroupID(id), ids)
	if err != nil {
		h.writeDomainError(w, "Failed to save members", err)
		return
	}
	writeJSON(w, http.StatusOK, toMemberDTOs(members))
}

// GetGroupsForDate returns the groups meeting on the weekday of ?date=.
func (h *Handler) GetGroupsForDate(w http.ResponseWriter, r *http.Request) {
	date, err := dateParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date", err)
		return
	}

	gs, err := h.Groups.GroupsForDate(r.Context(), date)
	if err != nil {
		h.writeDomainError(w, "Failed to load groups", err)
		return
	}
	writeJSON(w, http.StatusOK, toGroupDTOs(gs))
}

// GetGroupRoster returns the members of a group with their absences on ?date=.
func (h *Handler) GetGroupRoster(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid group ID", err)
		return
	}
	date, err := dateParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date", err)
		return
	}

	roster, err := h.Groups.LoadForSchedule(r.Context(), school.GroupID(id), date)
	if err != nil {
		h.writeDomainError(w, "Failed to load roster", err)
		return
	}
	writeJSON(w, http.StatusOK, toRosterDTO(roster))
}

func (h *Handler) GetCancellations(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid group ID", err)
		return
	}
	date, err := dateParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date", err)
		return
	}

	cancelled, err := h.Groups.Cancellations(r.Context(), school.GroupID(id), date)
	if err != nil {
		h.writeDomainError(w, "Failed to load cancellations", err)
		return
	}
	writeJSON(w, http.StatusOK, toIDs(cancelled))
}

// ToggleCancellation flips one member's absence for a date.
func (h *Handler) ToggleCancellation(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid group ID", err)
		return
	}

	var req ToggleCancellationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	date, err := school.ParseDate(req.Date)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date", err)
		return
	}

	cancelled, err := h.Groups.ToggleCancellation(r.Context(), school.GroupID(id), school.StudentID(req.StudentID), date)
	if err != nil {
		h.writeDomainError(w, "Failed to toggle cancellation", err)
		return
	}
	writeJSON(w, http.StatusOK, ToggleCancellationResponse{
		StudentID: req.StudentID,
		Date:      date.String(),
		Cancelled: cancelled,
	})
}

func (req GroupRequest) toGroup(id school.GroupID) school.RiderGroup {
	return school.RiderGroup{
		ID:          id,
		Name:        req.Name,
		Description: req.Description,
		Weekday:     time.Weekday(req.Weekday),
		Time:        school.TimeOfDay(req.Time),
	}
}

// =============================================================================
// REPORT HANDLERS
// =============================================================================

// ListAvailableReports returns card availability for every student with lessons.
func (h *Handler) ListAvailableReports(w http.ResponseWriter, r *http.Request) {
	infos, err := h.Reports.Available(r.Context())
	if err != nil {
		h.writeDomainError(w, "Failed to compute reports", err)
		return
	}

	dtos := make([]ReportInfoDTO, len(infos))
	for i, info := range infos {
		dtos[i] = toReportInfoDTO(info)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// PrintStudentReport issues the card of one milestone. Reprints return the
// new document with the original ledger row.
func (h *Handler) PrintStudentReport(w http.ResponseWriter, r *http.Request) {
	studentID, err := parseID(r, "studentID")
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid student ID", err)
		return
	}
	milestone, err := strconv.Atoi(chi.URLParam(r, "milestone"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid milestone", school.ErrInvalidMilestone)
		return
	}

	res, err := h.Reports.Issue(r.Context(), school.StudentID(studentID), milestone)
	if err != nil {
		h.writeDomainError(w, "Failed to print report", err)
		return
	}

	status := http.StatusOK
	if res.Created {
		status = http.StatusCreated
	}
	writeJSON(w, status, IssueReportResponse{
		Document:   res.Document,
		Report:     toPrintedReportDTO(res.Report),
		FirstIssue: res.Created,
	})
}

func (h *Handler) GetReportHistory(w http.ResponseWriter, r *http.Request) {
	studentID, err := parseID(r, "studentID")
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid student ID", err)
		return
	}

	history, err := h.Reports.History(r.Context(), school.StudentID(studentID))
	if err != nil {
		h.writeDomainError(w, "Failed to load report history", err)
		return
	}

	dtos := make([]PrintedReportDTO, len(history))
	for i, rep := range history {
		dtos[i] = toPrintedReportDTO(rep)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// STUDENT HANDLERS
// =============================================================================

func (h *Handler) ListStudents(w http.ResponseWriter, r *http.Request) {
	students, err := h.Store.ListStudents(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list students", err)
		return
	}

	dtos := make([]StudentDTO, len(students))
	for i, s := range students {
		dtos[i] = toStudentDTO(s)
	}
	writeJSON(w, http.StatusOK, dtos)
}

func (h *Handler) GetStudent(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid student ID", err)
		return
	}

	s, err := h.Store.GetStudent(r.Context(), school.StudentID(id))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get student", err)
		return
	}
	if s == nil {
		writeError(w, http.StatusNotFound, "Student not found", school.ErrStudentNotFound)
		return
	}
	writeJSON(w, http.StatusOK, toStudentDTO(*s))
}

func (h *Handler) CreateStudent(w http.ResponseWriter, r *http.Request) {
	var req StudentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	s := req.toStudent(0)
	if err := school.ValidateStudent(&s); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid student", err)
		return
	}
	id, err := h.Store.CreateStudent(r.Context(), s)
	if err != nil {
		h.writeDomainError(w, "Failed to create student", err)
		return
	}
	h.respondStudent(w, r.Context(), id, http.StatusCreated)
}

func (h *Handler) UpdateStudent(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid student ID", err)
		return
	}

	var req StudentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	s := req.toStudent(school.StudentID(id))
	if err := school.ValidateStudent(&s); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid student", err)
		return
	}
	if err := h.Store.UpdateStudent(r.Context(), s); err != nil {
		h.writeDomainError(w, "Failed to update student", err)
		return
	}
	h.respondStudent(w, r.Context(), s.ID, http.StatusOK)
}

// DeleteStudent removes a student with their history.
func (h *Handler) DeleteStudent(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid student ID", err)
		return
	}

	if err := h.Store.DeleteStudent(r.Context(), school.StudentID(id)); err != nil {
		h.writeDomainError(w, "Failed to delete student", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) respondStudent(w http.ResponseWriter, ctx context.Context, id school.StudentID, status int) {
	s, err := h.Store.GetStudent(ctx, id)
	if err != nil || s == nil {
		writeError(w, http.StatusInternalServerError, "Failed to reload student", err)
		return
	}
	writeJSON(w, status, toStudentDTO(*s))
}

func (req StudentRequest) toStudent(id school.StudentID) school.Student {
	return school.Student{
		ID:          id,
		Name:        req.Name,
		ContactInfo: req.ContactInfo,
		IsMember:    req.IsMember,
		IsYouth:     req.IsYouth,
	}
}

// =============================================================================
// HORSE HANDLERS
// =============================================================================

func (h *Handler) ListHorses(w http.ResponseWriter, r *http.Request) {
	horses, err := h.Store.ListHorses(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list horses", err)
		return
	}

	dtos := make([]HorseDTO, len(horses))
	for i, hr := range horses {
		dtos[i] = toHorseDTO(hr)
	}
	writeJSON(w, http.StatusOK, dtos)
}

func (h *Handler) GetHorse(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid horse ID", err)
		return
	}

	hr, err := h.Store.GetHorse(r.Context(), school.HorseID(id))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get horse", err)
		return
	}
	if hr == nil {
		writeError(w, http.StatusNotFound, "Horse not found", school.ErrHorseNotFound)
		return
	}
	writeJSON(w, http.StatusOK, toHorseDTO(*hr))
}

func (h *Handler) CreateHorse(w http.ResponseWriter, r *http.Request) {
	var req HorseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	hr := school.Horse{Name: req.Name, Breed: req.Breed}
	if err := school.ValidateHorse(&hr); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid horse", err)
		return
	}
	id, err := h.Store.CreateHorse(r.Context(), hr)
	if err != nil {
		h.writeDomainError(w, "Failed to create horse", err)
		return
	}
	hr.ID = id
	writeJSON(w, http.StatusCreated, toHorseDTO(hr))
}

func (h *Handler) UpdateHorse(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid horse ID", err)
		return
	}

	var req HorseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	hr := school.Horse{ID: school.HorseID(id), Name: req.Name, Breed: req.Breed}
	if err := school.ValidateHorse(&hr); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid horse", err)
		return
	}
	if err := h.Store.UpdateHorse(r.Context(), hr); err != nil {
		h.writeDomainError(w, "Failed to update horse", err)
		return
	}
	writeJSON(w, http.StatusOK, toHorseDTO(hr))
}

// DeleteHorse refuses horses that appear in lessons or slots.
func (h *Handler) DeleteHorse(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid horse ID", err)
		return
	}

	if err := h.Store.DeleteHorse(r.Context(), school.HorseID(id)); err != nil {
		h.writeDomainError(w, "Failed to delete horse", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// LESSON HANDLERS
// =============================================================================

// ListLessons returns the full lesson history, newest first.
func (h *Handler) ListLessons(w http.ResponseWriter, r *http.Request) {
	lessons, err := h.Store.ListLessons(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list lessons", err)
		return
	}

	dtos := make([]LessonDTO, len(lessons))
	for i, l := range lessons {
		dtos[i] = toLessonDTO(l)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateLesson enters a lesson that didn't come from a slot.
func (h *Handler) CreateLesson(w http.ResponseWriter, r *http.Request) {
	var req CreateLessonRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	date, err := school.ParseDate(req.Date)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date", err)
		return
	}

	res, err := h.Schedule.RecordLesson(r.Context(), school.Lesson{
		StudentID:      school.StudentID(req.StudentID),
		HorseID:        school.HorseID(req.HorseID),
		Date:           date,
		Notes:          req.Notes,
		IsSingleLesson: req.IsSingleLesson,
	})
	if err != nil {
		h.writeDomainError(w, "Failed to record lesson", err)
		return
	}

	resp := CreateLessonResponse{LessonID: int64(res.LessonID), TotalLessons: res.Total}
	if res.Crossing != nil {
		c := toCrossingDTO(*res.Crossing)
		resp.Crossing = &c
	}
	writeJSON(w, http.StatusCreated, resp)
}

// =============================================================================
// HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message, Code: errorCodes[status]}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

var errorCodes = map[int]string{
	http.StatusBadRequest:          "invalid_request",
	http.StatusNotFound:            "not_found",
	http.StatusConflict:            "conflict",
	http.StatusInternalServerError: "internal_error",
	http.StatusBadGateway:          "document_failed",
}

// writeDomainError maps a service error onto its HTTP status.
func (h *Handler) writeDomainError(w http.ResponseWriter, message string, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.log.Error().Err(err).Int("status", status).Msg(message)
	}
	writeError(w, status, message, err)
}

func statusFor(err error) int {
	switch {
	case school.IsClientError(err):
		return http.StatusBadRequest
	case school.IsNotFound(err):
		return http.StatusNotFound
	case school.IsConflict(err):
		return http.StatusConflict
	case errors.Is(err, school.ErrDocumentFailed):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func parseID(r *http.Request, param string) (int64, error) {
	raw := chi.URLParam(r, param)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid %s %q", param, raw)
	}
	return id, nil
}

// dateParam reads the required ?date= query parameter.
func dateParam(r *http.Request) (school.Date, error) {
	raw := r.URL.Query().Get("date")
	if raw == "" {
		return school.Date{}, fmt.Errorf("%w: date query parameter is required", school.ErrInvalidDate)
	}
	return school.ParseDate(raw)
}
