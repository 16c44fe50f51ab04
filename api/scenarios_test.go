package api

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadScenario_All(t *testing.T) {
	for _, s := range scenarios {
		t.Run(s.ID, func(t *testing.T) {
			a := newTestAPI(t)

			rec := a.do(t, http.MethodPost, "/api/scenarios/load", LoadScenarioRequest{ScenarioID: s.ID})
			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

			rec = a.do(t, http.MethodGet, "/api/scenarios/current", nil)
			assert.Equal(t, s.ID, decode[ScenarioDTO](t, rec).ID)

			// Loading twice resets first, so names never collide.
			rec = a.do(t, http.MethodPost, "/api/scenarios/load", LoadScenarioRequest{ScenarioID: s.ID})
			assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		})
	}
}

func TestLoadScenario_CardsDue(t *testing.T) {
	a := newTestAPI(t)
	rec := a.do(t, http.MethodPost, "/api/scenarios/load", LoadScenarioRequest{ScenarioID: "cards-due"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = a.do(t, http.MethodGet, "/api/reports", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	byName := make(map[string]ReportInfoDTO)
	for _, info := range decode[[]ReportInfoDTO](t, rec) {
		byName[info.StudentName] = info
	}

	assert.Equal(t, []MilestoneDTO{{Milestone: 10}}, byName["Anna Berger"].Milestones)
	assert.Empty(t, byName["Ben Krämer"].Milestones)
	assert.Equal(t, 9, byName["Ben Krämer"].ProgressTowardsNext)
	assert.Equal(t, []MilestoneDTO{{Milestone: 10, IsPrinted: true}, {Milestone: 20}}, byName["Clara Hofmann"].Milestones)
}

func TestLoadScenario_Unknown(t *testing.T) {
	a := newTestAPI(t)

	rec := a.do(t, http.MethodPost, "/api/scenarios/load", LoadScenarioRequest{ScenarioID: "rodeo"})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = a.do(t, http.MethodGet, "/api/scenarios/current", nil)
	assert.Equal(t, "null\n", rec.Body.String())
}

func TestResetDatabase(t *testing.T) {
	a := newTestAPI(t)
	a.createStudent(t, "Anna", false)

	rec := a.do(t, http.MethodPost, "/api/scenarios/reset", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = a.do(t, http.MethodGet, "/api/students", nil)
	assert.Equal(t, "[]\n", rec.Body.String())
}
