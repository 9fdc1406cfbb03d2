package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/prudhvinik1/parlourpunch/internal/middleware"
	"github.com/prudhvinik1/parlourpunch/internal/repositories"
)

type RouterDeps struct {
	Attendance     AttendanceService
	Employees      repositories.EmployeeRepository
	Verifier       middleware.TokenVerifier
	Live           http.Handler
	AllowedOrigins []string
}

func NewRouter(deps RouterDeps) http.Handler {
	router := chi.NewRouter()
	router.Use(chimw.RequestID)
	router.Use(chimw.Logger)
	router.Use(chimw.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   deps.AllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	router.Handle("/metrics", promhttp.Handler())

	// The hub authenticates the upgrade itself.
	if deps.Live != nil {
		router.Handle("/ws", deps.Live)
	}

	attendance := NewAttendanceHandler(deps.Attendance)
	employees := NewEmployeeHandler(deps.Employees)

	router.Route("/api", func(r chi.Router) {
		r.Get("/health", health)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Authenticate(deps.Verifier))
			r.Use(middleware.RequireAdminOrSuperAdmin)

			r.Get("/attendance/logs", attendance.ListLogs)
			r.Post("/attendance/log", attendance.CreateLog)
			r.Get("/attendance/status", attendance.CurrentStatus)

			r.Get("/employees", employees.List)
			r.Get("/employees/{id}", employees.Get)
		})
	})

	router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		middleware.WriteError(w, http.StatusNotFound, "API endpoint not found")
	})

	return router
}

type healthResponse struct {
	Success   bool   `json:"success"`
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
}

func health(w http.ResponseWriter, r *http.Request) {
	middleware.WriteJSON(w, http.StatusOK, healthResponse{
		Success:   true,
		Message:   "Parlour Management API is running",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}
