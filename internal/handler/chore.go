package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/pthomsen/chorecraft/internal/auth"
	"github.com/pthomsen/chorecraft/internal/chore"
	"github.com/pthomsen/chorecraft/internal/frequency"
	"github.com/pthomsen/chorecraft/internal/model"
	"github.com/pthomsen/chorecraft/internal/push"
	"github.com/pthomsen/chorecraft/internal/store"
	"github.com/pthomsen/chorecraft/internal/websocket"
)

type ChoreHandler struct {
	chores   *store.ChoreStore
	service  *chore.Service
	hub      *websocket.Hub
	notifier *push.Scheduler
	loc      *time.Location
	logger   *slog.Logger
}

func NewChoreHandler(cs *store.ChoreStore, svc *chore.Service, hub *websocket.Hub, notifier *push.Scheduler, loc *time.Location, logger *slog.Logger) *ChoreHandler {
	return &ChoreHandler{
		chores:   cs,
		service:  svc,
		hub:      hub,
		notifier: notifier,
		loc:      loc,
		logger:   logger.With("component", "chore_handler"),
	}
}

func (h *ChoreHandler) broadcast(householdID int64, msg websocket.Message) {
	if h.hub != nil {
		h.hub.Broadcast(householdID, msg)
	}
}

type choreRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Frequency   string `json:"frequency"`
	CustomRule  string `json:"custom_rule"`
	NextDue     string `json:"next_due"`
	Coins       int    `json:"coins"`
}

// validate normalizes the request and returns the parsed next-due date.
func (h *ChoreHandler) validate(req *choreRequest) (*time.Time, string) {
	req.Title = strings.TrimSpace(req.Title)
	if req.Title == "" {
		return nil, "title is required"
	}

	freq := model.Frequency(req.Frequency)
	if !freq.Valid() {
		return nil, "invalid frequency"
	}
	if req.Coins < 0 {
		return nil, "coins must not be negative"
	}

	if freq == model.FreqCustom {
		if _, err := frequency.Parse(req.CustomRule); err != nil {
			return nil, "invalid custom rule: " + err.Error()
		}
	} else {
		req.CustomRule = ""
	}

	if freq.DateDriven() {
		if req.NextDue == "" {
			return nil, "next_due is required for weekly and monthly chores"
		}
		due, err := time.ParseInLocation(dateLayout, req.NextDue, h.loc)
		if err != nil {
			return nil, "invalid next_due date"
		}
		return &due, ""
	}

	return nil, ""
}

func (h *ChoreHandler) Create(w http.ResponseWriter, r *http.Request) {
	householdID := auth.HouseholdID(r.Context())

	var req choreRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	nextDue, msg := h.validate(&req)
	if msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	c, err := h.chores.Create(householdID, req.Title, req.Description, model.Frequency(req.Frequency), req.CustomRule, nextDue, req.Coins, auth.UserID(r.Context()))
	if err != nil {
		h.logger.Error("create chore", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create chore")
		return
	}

	h.broadcast(householdID, websocket.NewMessage("chore", "created", c.ID, nil))
	writeJSON(w, http.StatusCreated, c)
}

func (h *ChoreHandler) List(w http.ResponseWriter, r *http.Request) {
	householdID := auth.HouseholdID(r.Context())
	activeOnly := r.URL.Query().Get("all") != "true"

	chores, err := h.chores.ListByHousehold(householdID, activeOnly)
	if err != nil {
		h.logger.Error("list chores", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list chores")
		return
	}
	if chores == nil {
		chores = []model.Chore{}
	}
	writeJSON(w, http.StatusOK, chores)
}

// getScoped fetches a chore and verifies it belongs to the caller's household.
func (h *ChoreHandler) getScoped(w http.ResponseWriter, r *http.Request) *model.Chore {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return nil
	}

	c, err := h.chores.GetByID(id)
	if err != nil {
		h.logger.Error("get chore", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to get chore")
		return nil
	}
	if c == nil || c.HouseholdID != auth.HouseholdID(r.Context()) {
		writeError(w, http.StatusNotFound, "chore not found")
		return nil
	}
	return c
}

func (h *ChoreHandler) Get(w http.ResponseWriter, r *http.Request) {
	c := h.getScoped(w, r)
	if c == nil {
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (h *ChoreHandler) Update(w http.ResponseWriter, r *http.Request) {
	existing := h.getScoped(w, r)
	if existing == nil {
		return
	}

	var req choreRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	nextDue, msg := h.validate(&req)
	if msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	c, err := h.chores.Update(existing.ID, req.Title, req.Description, model.Frequency(req.Frequency), req.CustomRule, nextDue, req.Coins)
	if err != nil {
		h.logger.Error("update chore", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to update chore")
		return
	}

	h.broadcast(existing.HouseholdID, websocket.NewMessage("chore", "updated", c.ID, nil))
	writeJSON(w, http.StatusOK, c)
}

// Deactivate retires a chore without deleting its completion history.
func (h *ChoreHandler) Deactivate(w http.ResponseWriter, r *http.Request) {
	c := h.getScoped(w, r)
	if c == nil {
		return
	}

	if err := h.chores.SetActive(c.ID, false); err != nil {
		h.logger.Error("deactivate chore", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to deactivate chore")
		return
	}

	h.broadcast(c.HouseholdID, websocket.NewMessage("chore", "deactivated", c.ID, nil))
	w.WriteHeader(http.StatusNoContent)
}

// Complete submits a pending completion for the caller.
func (h *ChoreHandler) Complete(w http.ResponseWriter, r *http.Request) {
	c := h.getScoped(w, r)
	if c == nil {
		return
	}

	record, err := h.service.Complete(r.Context(), c.ID, auth.UserID(r.Context()))
	if err != nil {
		switch {
		case errors.Is(err, chore.ErrNotFound):
			writeError(w, http.StatusNotFound, "chore not found")
		case errors.Is(err, chore.ErrInactive):
			writeError(w, http.StatusConflict, "chore is inactive")
		case errors.Is(err, chore.ErrAlreadyCompleted):
			writeError(w, http.StatusConflict, "chore already completed")
		case errors.Is(err, chore.ErrDuplicateSubmission):
			writeError(w, http.StatusConflict, "already submitted today")
		default:
			h.logger.Error("complete chore", "error", err)
			writeError(w, http.StatusInternalServerError, "failed to complete chore")
		}
		return
	}

	h.broadcast(c.HouseholdID, websocket.NewMessage("completion", "submitted", record.ID, map[string]any{"chore_id": c.ID}))
	writeJSON(w, http.StatusCreated, record)
}

// Approve flips a pending completion to approved, granting its coins and
// advancing the chore's schedule. Admin only.
func (h *ChoreHandler) Approve(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	householdID := auth.HouseholdID(r.Context())

	record, err := h.chores.GetCompletion(id)
	if err != nil {
		h.logger.Error("get completion", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to approve")
		return
	}
	if record == nil {
		writeError(w, http.StatusNotFound, "completion not found")
		return
	}

	c, err := h.chores.GetByID(record.ChoreID)
	if err != nil {
		h.logger.Error("get chore", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to approve")
		return
	}
	if c == nil || c.HouseholdID != householdID {
		writeError(w, http.StatusNotFound, "completion not found")
		return
	}

	approved, err := h.service.Approve(r.Context(), id, auth.UserID(r.Context()))
	if err != nil {
		switch {
		case errors.Is(err, chore.ErrCompletionNotFound):
			writeError(w, http.StatusNotFound, "completion not found")
		case errors.Is(err, chore.ErrNotPending):
			writeError(w, http.StatusConflict, "completion is not pending")
		default:
			h.logger.Error("approve completion", "error", err)
			writeError(w, http.StatusInternalServerError, "failed to approve")
		}
		return
	}

	h.broadcast(householdID, websocket.NewMessage("completion", "approved", approved.ID, map[string]any{"chore_id": c.ID, "coins": c.Coins}))
	if h.notifier != nil {
		go h.notifier.NotifyApproval(approved.CompletedBy, c.Title, c.Coins)
	}

	writeJSON(w, http.StatusOK, approved)
}

// Pending lists the household's pending completions for admin review.
func (h *ChoreHandler) Pending(w http.ResponseWriter, r *http.Request) {
	householdID := auth.HouseholdID(r.Context())

	records, err := h.chores.ListPendingByHousehold(householdID)
	if err != nil {
		h.logger.Error("list pending", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list pending completions")
		return
	}
	if records == nil {
		records = []model.CompletionRecord{}
	}
	writeJSON(w, http.StatusOK, records)
}

// Completions lists a chore's completion history.
func (h *ChoreHandler) Completions(w http.ResponseWriter, r *http.Request) {
	c := h.getScoped(w, r)
	if c == nil {
		return
	}

	records, err := h.chores.ListCompletionsByChore(c.ID)
	if err != nil {
		h.logger.Error("list completions", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list completions")
		return
	}
	if records == nil {
		records = []model.CompletionRecord{}
	}
	writeJSON(w, http.StatusOK, records)
}
