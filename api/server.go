/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. RequestID:      Unique ID per request for tracing
  2. RequestLogger:  One zerolog line per request, carrying the request ID
  3. Recoverer:      Panic recovery (500 instead of crash)
  4. CORS:           Cross-origin requests for the front desk app

ROUTE GROUPS:
  /api/schedule/*       Daily schedule slots and participants
  /api/groups/*         Rider groups, members, cancellations
  /api/reports/*        Milestone cards and the print ledger
  /api/students/*       Student records
  /api/horses/*         Horse records
  /api/lessons          Lesson history and direct entry
  /api/scenarios/*      Demo data
  /health               Liveness and schema version
  /*                    Static files (frontend)

STATIC FILE SERVING:
  Serves the built frontend from web/dist/ when present, falling back to
  index.html for client-side routing.

SECURITY NOTE:
  No authentication. The server is meant for the front desk machine.

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"net/http"
	"os"
	"path/filepath"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// RouterOptions configures the middleware around the API.
type RouterOptions struct {
	AllowedOrigins []string
	StaticDir      string // empty uses ./web/dist
}

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler, opts RouterOptions) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(RequestLogger(h.log))
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   opts.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	r.Get("/health", h.Health)

	// API routes
	r.Route("/api", func(r chi.Router) {
		r.Route("/schedule", func(r chi.Router) {
			r.Get("/", h.GetDailySchedule)
			r.Post("/", h.CreateSlot)
			r.Post("/print", h.PrintDailySchedule)
			r.Put("/{id}", h.UpdateSlot)
			r.Delete("/{id}", h.DeleteSlot)
			r.Delete("/{id}/participants/{studentID}", h.DeleteParticipant)
		})

		r.Route("/groups", func(r chi.Router) {
			r.Get("/", h.ListGroups)
			r.Post("/", h.CreateGroup)
			r.Get("/for-date", h.GetGroupsForDate)
			r.Get("/{id}", h.GetGroup)
			r.Put("/{id}", h.UpdateGroup)
			r.Delete("/{id}", h.DeleteGroup)
			r.Get("/{id}/members", h.GetGroupMembers)
			r.Put("/{id}/members", h.SaveGroupMembers)
			r.Get("/{id}/roster", h.GetGroupRoster)
			r.Get("/{id}/cancellations", h.GetCancellations)
			r.Post("/{id}/cancellations/toggle", h.ToggleCancellation)
		})

		r.Route("/reports", func(r chi.Router) {
			r.Get("/", h.ListAvailableReports)
			r.Get("/{studentID}/history", h.GetReportHistory)
			r.Post("/{studentID}/milestones/{milestone}/print", h.PrintStudentReport)
		})

		r.Route("/students", func(r chi.Router) {
			r.Get("/", h.ListStudents)
			r.Post("/", h.CreateStudent)
			r.Get("/{id}", h.GetStudent)
			r.Put("/{id}", h.UpdateStudent)
			r.Delete("/{id}", h.DeleteStudent)
		})

		r.Route("/horses", func(r chi.Router) {
			r.Get("/", h.ListHorses)
			r.Post("/", h.CreateHorse)
			r.Get("/{id}", h.GetHorse)
			r.Put("/{id}", h.UpdateHorse)
			r.Delete("/{id}", h.DeleteHorse)
		})

		r.Route("/lessons", func(r chi.Router) {
			r.Get("/", h.ListLessons)
			r.Post("/", h.CreateLesson)
		})

		r.Route("/scenarios", func(r chi.Router) {
			r.Get("/", h.ListScenarios)
			r.Get("/current", h.GetCurrentScenario)
			r.Post("/load", h.LoadScenario)
			r.Post("/reset", h.ResetDatabase)
		})
	})

	staticDir := opts.StaticDir
	if staticDir == "" {
		staticDir = "./web/dist"
		if _, err := os.Stat(staticDir); os.IsNotExist(err) {
			exe, _ := os.Executable()
			staticDir = filepath.Join(filepath.Dir(exe), "web", "dist")
		}
	}

	if _, err := os.Stat(staticDir); err == nil {
		fileServer := http.FileServer(http.Dir(staticDir))
		r.Get("/*", func(w http.ResponseWriter, r *http.Request) {
			fullPath := filepath.Join(staticDir, filepath.Clean(r.URL.Path))
			if _, err := os.Stat(fullPath); os.IsNotExist(err) {
				// SPA routing: serve index.html
				http.ServeFile(w, r, filepath.Join(staticDir, "index.html"))
				return
			}
			fileServer.ServeHTTP(w, r)
		})
	} else {
		r.Get("/", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "text/html")
			w.Write([]byte(`<!DOCTYPE html>
<html>
<head><title>Riding School</title></head>
<body style="font-family: system-ui; max-width: 800px; margin: 50px auto; padding: 20px;">
<h1>Riding School API</h1>
<p>The frontend is not built. Run <code>cd web && npm install && npm run build</code></p>
<h2>API Endpoints</h2>
<ul>
<li><a href="/api/schedule">/api/schedule?date=YYYY-MM-DD</a> - Daily schedule</li>
<li><a href="/api/groups">/api/groups</a> - Rider groups</li>
<li><a href="/api/reports">/api/reports</a> - Available lesson cards</li>
<li><a href="/api/students">/api/students</a> - Students</li>
<li><a href="/api/horses">/api/horses</a> - Horses</li>
<li><a href="/api/scenarios">/api/scenarios</a> - Demo scenarios</li>
</ul>
</body>
</html>`))
		})
	}

	return r
}
