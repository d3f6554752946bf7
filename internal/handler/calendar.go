package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/pthomsen/chorecraft/internal/auth"
	"github.com/pthomsen/chorecraft/internal/chore"
	"github.com/pthomsen/chorecraft/internal/model"
	"github.com/pthomsen/chorecraft/internal/schedule"
)

// maxCalendarDays bounds a single calendar request.
const maxCalendarDays = 92

type CalendarHandler struct {
	service *chore.Service
	loc     *time.Location
	logger  *slog.Logger
}

func NewCalendarHandler(svc *chore.Service, loc *time.Location, logger *slog.Logger) *CalendarHandler {
	return &CalendarHandler{
		service: svc,
		loc:     loc,
		logger:  logger.With("component", "calendar_handler"),
	}
}

// Range resolves the household's chore schedule over [start, end].
// An inverted range resolves to an empty list, not an error.
func (h *CalendarHandler) Range(w http.ResponseWriter, r *http.Request) {
	householdID := auth.HouseholdID(r.Context())

	start, err := parseDateParam(r, "start", h.loc)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid start date, want YYYY-MM-DD")
		return
	}
	end, err := parseDateParam(r, "end", h.loc)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid end date, want YYYY-MM-DD")
		return
	}
	if end.Sub(start) > maxCalendarDays*24*time.Hour {
		writeError(w, http.StatusBadRequest, "date range too large")
		return
	}

	days, err := h.service.Calendar(r.Context(), householdID, start, end)
	if err != nil {
		h.logger.Error("resolve calendar", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to resolve calendar")
		return
	}
	if days == nil {
		days = []schedule.CalendarDay{}
	}
	writeJSON(w, http.StatusOK, days)
}

// Today resolves the current day only.
func (h *CalendarHandler) Today(w http.ResponseWriter, r *http.Request) {
	householdID := auth.HouseholdID(r.Context())

	day, err := h.service.Today(r.Context(), householdID)
	if err != nil {
		h.logger.Error("resolve today", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to resolve today")
		return
	}
	writeJSON(w, http.StatusOK, day)
}

// Overdue lists date-driven chores whose next-due date has passed.
func (h *CalendarHandler) Overdue(w http.ResponseWriter, r *http.Request) {
	householdID := auth.HouseholdID(r.Context())

	chores, err := h.service.Overdue(r.Context(), householdID)
	if err != nil {
		h.logger.Error("list overdue", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list overdue chores")
		return
	}
	if chores == nil {
		chores = []model.Chore{}
	}
	writeJSON(w, http.StatusOK, chores)
}
