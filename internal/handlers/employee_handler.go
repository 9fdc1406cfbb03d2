package handlers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prudhvinik1/parlourpunch/internal/middleware"
	"github.com/prudhvinik1/parlourpunch/internal/repositories"
)

// EmployeeHandler exposes the read-only employee directory.
type EmployeeHandler struct {
	repo repositories.EmployeeRepository
}

func NewEmployeeHandler(repo repositories.EmployeeRepository) *EmployeeHandler {
	return &EmployeeHandler{repo: repo}
}

func (h *EmployeeHandler) List(w http.ResponseWriter, r *http.Request) {
	employees, err := h.repo.List(r.Context())
	if err != nil {
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to retrieve employees")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, middleware.Response{
		Success: true,
		Message: "Employees retrieved successfully",
		Data:    employees,
	})
}

func (h *EmployeeHandler) Get(w http.ResponseWriter, r *http.Request) {
	employee, err := h.repo.GetByID(r.Context(), chi.URLParam(r, "id"))
	if errors.Is(err, repositories.ErrNotFound) {
		middleware.WriteError(w, http.StatusNotFound, "Employee not found")
		return
	}
	if err != nil {
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to retrieve employee")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, middleware.Response{
		Success: true,
		Message: "Employee retrieved successfully",
		Data:    employee,
	})
}
