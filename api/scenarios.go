/*
scenarios.go - Demo scenario loaders for testing and demonstrations

PURPOSE:

	Provides pre-built scenarios that populate the database with realistic
	data for demos and front desk training. Each scenario creates students,
	horses, groups and lesson history that demonstrate specific features.

AVAILABLE SCENARIOS:

	first-week:     A fresh stable with today's schedule and one weekly group
	cards-due:      Riders at, just below and past a 10-lesson milestone
	cancellations:  Several weekly groups with absences at the next meeting

HOW SCENARIOS WORK:
 1. Reset database (clear all data)
 2. Create students and horses
 3. Create groups and members
 4. Record history through the schedule service, so lessons and
    milestone crossings are produced the same way as at the front desk

Dates are relative to today so the data always looks current.

USAGE VIA API:

	POST /api/scenarios/load
	{"scenario_id": "cards-due"}

ADDING NEW SCENARIOS:
 1. Add to 'scenarios' slice with ID, name, description
 2. Create loader function: loadXxxScenario(ctx)
 3. Add case to LoadScenario handler

NOTE:

	Scenarios reset the database. Only use in development/demo environments.

SEE ALSO:
  - handlers.go: Handler dependencies
  - groups/resolver.go: NextOccurrence
*/
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/garnzell/riding-school/groups"
	"github.com/garnzell/riding-school/schedule"
	"github.com/garnzell/riding-school/school"
)

// =============================================================================
// SCENARIO DEFINITIONS
// =============================================================================

var scenarios = []ScenarioDTO{
	{
		ID:          "first-week",
		Name:        "First Week",
		Description: "Four riders, four horses, today's lessons and a Wednesday group",
	},
	{
		ID:          "cards-due",
		Name:        "Cards Due",
		Description: "Riders at 10, 9 and 21 lessons, one card already printed",
	},
	{
		ID:          "cancellations",
		Name:        "Group Cancellations",
		Description: "Weekly groups with absences at their next meeting",
	},
}

// ListScenarios returns available scenarios.
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, scenarios)
}

// GetCurrentScenario returns the currently loaded scenario, if any.
func (h *Handler) GetCurrentScenario(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	current := h.currentScenario
	h.mu.Unlock()

	if current == "" {
		writeJSON(w, http.StatusOK, nil)
		return
	}
	for _, s := range scenarios {
		if s.ID == current {
			writeJSON(w, http.StatusOK, s)
			return
		}
	}
	writeJSON(w, http.StatusOK, ScenarioDTO{ID: current, Name: current})
}

// LoadScenario resets the database and loads a predefined scenario.
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	var req LoadScenarioRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	var load func(context.Context) error
	switch req.ScenarioID {
	case "first-week":
		load = h.loadFirstWeekScenario
	case "cards-due":
		load = h.loadCardsDueScenario
	case "cancellations":
		load = h.loadCancellationsScenario
	default:
		writeError(w, http.StatusBadRequest, "Unknown scenario", fmt.Errorf("scenario %q", req.ScenarioID))
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	ctx := r.Context()
	if err := h.Store.Reset(ctx); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to reset database", err)
		return
	}
	h.currentScenario = ""

	if err := load(ctx); err != nil {
		h.writeDomainError(w, "Failed to load scenario", err)
		return
	}
	h.currentScenario = req.ScenarioID
	h.log.Info().Str("scenario", req.ScenarioID).Msg("Scenario loaded")

	writeJSON(w, http.StatusOK, map[string]string{"status": "loaded", "scenario": req.ScenarioID})
}

// ResetDatabase clears all data, keeping the schema.
func (h *Handler) ResetDatabase(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if err := h.Store.Reset(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to reset database", err)
		return
	}
	h.currentScenario = ""
	h.log.Warn().Msg("Database reset")
	writeJSON(w, http.StatusOK, map[string]string{"status": "reset"})
}

// =============================================================================
// SCENARIO LOADERS
// =============================================================================

// stable holds the IDs created by seedStable, by name.
type stable struct {
	students map[string]school.StudentID
	horses   map[string]school.HorseID
}

func (h *Handler) seedStable(ctx context.Context, students []school.Student, horses []school.Horse) (*stable, error) {
	st := &stable{
		students: make(map[string]school.StudentID, len(students)),
		horses:   make(map[string]school.HorseID, len(horses)),
	}
	for _, s := range students {
		id, err := h.Store.CreateStudent(ctx, s)
		if err != nil {
			return nil, err
		}
		st.students[s.Name] = id
	}
	for _, hr := range horses {
		id, err := h.Store.CreateHorse(ctx, hr)
		if err != nil {
			return nil, err
		}
		st.horses[hr.Name] = id
	}
	return st, nil
}

func (st *stable) pair(student, horse string) school.Pair {
	return school.Pair{StudentID: st.students[student], HorseID: st.horses[horse]}
}

var demoHorses = []school.Horse{
	{Name: "Blitz", Breed: "Haflinger"},
	{Name: "Luna", Breed: "Connemara"},
	{Name: "Sultan", Breed: "Hanoverian"},
	{Name: "Tinka", Breed: "Shetland Pony"},
}

func (h *Handler) loadFirstWeekScenario(ctx context.Context) error {
	st, err := h.seedStable(ctx, []school.Student{
		{Name: "Anna Berger", ContactInfo: "anna@example.com", IsMember: true},
		{Name: "Ben Krämer", ContactInfo: "+49 151 0000001"},
		{Name: "Clara Hofmann", ContactInfo: "clara@example.com", IsMember: true, IsYouth: true},
		{Name: "David Lenz", ContactInfo: "david@example.com", IsYouth: true},
	}, demoHorses)
	if err != nil {
		return err
	}

	g, err := h.Groups.Create(ctx, school.RiderGroup{
		Name:        "Wednesday beginners",
		Description: "Walk and trot, arena",
		Weekday:     time.Wednesday,
		Time:        "17:00",
	})
	if err != nil {
		return err
	}
	if _, err := h.Groups.SaveMembers(ctx, g.ID, []school.StudentID{
		st.students["Clara Hofmann"], st.students["David Lenz"],
	}); err != nil {
		return err
	}

	today := school.Today()
	slots := []schedule.SlotInput{
		{Date: today, Time: "10:00", Pairs: []school.Pair{
			st.pair("Anna Berger", "Sultan"),
			st.pair("Ben Krämer", "Blitz"),
		}},
		{Date: today, Time: "16:30", Pairs: []school.Pair{
			st.pair("Clara Hofmann", "Tinka"),
		}, SingleLesson: true},
	}
	for _, in := range slots {
		if _, err := h.Schedule.CreateSlot(ctx, in); err != nil {
			return err
		}
	}
	return nil
}

func (h *Handler) loadCardsDueScenario(ctx context.Context) error {
	st, err := h.seedStable(ctx, []school.Student{
		{Name: "Anna Berger", IsMember: true},
		{Name: "Ben Krämer"},
		{Name: "Clara Hofmann", IsMember: true, IsYouth: true},
	}, demoHorses)
	if err != nil {
		return err
	}

	// One weekly lesson each, oldest first, ending last week.
	history := []struct {
		student string
		horse   string
		lessons int
	}{
		{"Anna Berger", "Sultan", 10},
		{"Ben Krämer", "Blitz", 9},
		{"Clara Hofmann", "Luna", 21},
	}
	today := school.Today()
	for _, hist := range history {
		for i := hist.lessons; i > 0; i-- {
			if _, err := h.Schedule.RecordLesson(ctx, school.Lesson{
				StudentID: st.students[hist.student],
				HorseID:   st.horses[hist.horse],
				Date:      today.AddDays(-7 * i),
				Notes:     "Weekly lesson",
			}); err != nil {
				return err
			}
		}
	}

	// Clara's first card went out on time.
	_, err = h.Store.LogPrintedReport(ctx, school.PrintedReport{
		StudentID:  st.students["Clara Hofmann"],
		Milestone:  10,
		PrintedAt:  today.AddDays(-7 * 11).Time(),
		DocumentID: "demo-card",
	})
	return err
}

func (h *Handler) loadCancellationsScenario(ctx context.Context) error {
	st, err := h.seedStable(ctx, []school.Student{
		{Name: "Anna Berger", IsMember: true},
		{Name: "Ben Krämer"},
		{Name: "Clara Hofmann", IsYouth: true},
		{Name: "David Lenz", IsYouth: true},
		{Name: "Emma Vogel", IsMember: true},
	}, demoHorses)
	if err != nil {
		return err
	}

	weekly := []struct {
		group   school.RiderGroup
		members []string
		absent  []string
	}{
		{
			group:   school.RiderGroup{Name: "Monday dressage", Weekday: time.Monday, Time: "18:00"},
			members: []string{"Anna Berger", "Emma Vogel"},
			absent:  []string{"Emma Vogel"},
		},
		{
			group:   school.RiderGroup{Name: "Wednesday youth", Weekday: time.Wednesday, Time: "16:00"},
			members: []string{"Clara Hofmann", "David Lenz"},
		},
		{
			group:   school.RiderGroup{Name: "Saturday trail", Description: "Outdoor ride", Weekday: time.Saturday, Time: "09:30"},
			members: []string{"Anna Berger", "Ben Krämer", "David Lenz"},
			absent:  []string{"Ben Krämer", "David Lenz"},
		},
	}

	today := school.Today()
	for _, wk := range weekly {
		g, err := h.Groups.Create(ctx, wk.group)
		if err != nil {
			return err
		}
		ids := make([]school.StudentID, len(wk.members))
		for i, name := range wk.members {
			ids[i] = st.students[name]
		}
		if _, err := h.Groups.SaveMembers(ctx, g.ID, ids); err != nil {
			return err
		}

		next := groups.NextOccurrence(*g, today)
		for _, name := range wk.absent {
			if _, err := h.Groups.ToggleCancellation(ctx, g.ID, st.students[name], next); err != nil {
				return err
			}
		}
	}
	return nil
}
