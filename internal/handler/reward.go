package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/pthomsen/chorecraft/internal/auth"
	"github.com/pthomsen/chorecraft/internal/model"
	"github.com/pthomsen/chorecraft/internal/store"
	"github.com/pthomsen/chorecraft/internal/websocket"
)

type RewardHandler struct {
	rewards *store.RewardStore
	hub     *websocket.Hub
	logger  *slog.Logger
}

func NewRewardHandler(rs *store.RewardStore, hub *websocket.Hub, logger *slog.Logger) *RewardHandler {
	return &RewardHandler{
		rewards: rs,
		hub:     hub,
		logger:  logger.With("component", "reward_handler"),
	}
}

type rewardRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	CoinCost    int    `json:"coin_cost"`
	Active      *bool  `json:"active"`
}

func (h *RewardHandler) Create(w http.ResponseWriter, r *http.Request) {
	householdID := auth.HouseholdID(r.Context())

	var req rewardRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	req.Title = strings.TrimSpace(req.Title)
	if req.Title == "" {
		writeError(w, http.StatusBadRequest, "title is required")
		return
	}
	if req.CoinCost <= 0 {
		writeError(w, http.StatusBadRequest, "coin_cost must be positive")
		return
	}

	reward, err := h.rewards.Create(householdID, req.Title, req.Description, req.CoinCost)
	if err != nil {
		h.logger.Error("create reward", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create reward")
		return
	}

	h.hub.Broadcast(householdID, websocket.NewMessage("reward", "created", reward.ID, nil))
	writeJSON(w, http.StatusCreated, reward)
}

func (h *RewardHandler) List(w http.ResponseWriter, r *http.Request) {
	householdID := auth.HouseholdID(r.Context())
	activeOnly := r.URL.Query().Get("all") != "true"

	rewards, err := h.rewards.ListByHousehold(householdID, activeOnly)
	if err != nil {
		h.logger.Error("list rewards", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list rewards")
		return
	}
	if rewards == nil {
		rewards = []model.Reward{}
	}
	writeJSON(w, http.StatusOK, rewards)
}

func (h *RewardHandler) getScoped(w http.ResponseWriter, r *http.Request) *model.Reward {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return nil
	}

	reward, err := h.rewards.GetByID(id)
	if err != nil {
		h.logger.Error("get reward", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to get reward")
		return nil
	}
	if reward == nil || reward.HouseholdID != auth.HouseholdID(r.Context()) {
		writeError(w, http.StatusNotFound, "reward not found")
		return nil
	}
	return reward
}

func (h *RewardHandler) Update(w http.ResponseWriter, r *http.Request) {
	existing := h.getScoped(w, r)
	if existing == nil {
		return
	}

	var req rewardRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	req.Title = strings.TrimSpace(req.Title)
	if req.Title == "" {
		writeError(w, http.StatusBadRequest, "title is required")
		return
	}
	if req.CoinCost <= 0 {
		writeError(w, http.StatusBadRequest, "coin_cost must be positive")
		return
	}

	active := existing.Active
	if req.Active != nil {
		active = *req.Active
	}

	reward, err := h.rewards.Update(existing.ID, req.Title, req.Description, req.CoinCost, active)
	if err != nil {
		h.logger.Error("update reward", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to update reward")
		return
	}

	h.hub.Broadcast(existing.HouseholdID, websocket.NewMessage("reward", "updated", reward.ID, nil))
	writeJSON(w, http.StatusOK, reward)
}

// Redeem spends the caller's coins on a reward. The balance check and
// the redemption are not atomic; a family-scale service tolerates that.
func (h *RewardHandler) Redeem(w http.ResponseWriter, r *http.Request) {
	reward := h.getScoped(w, r)
	if reward == nil {
		return
	}
	if !reward.Active {
		writeError(w, http.StatusConflict, "reward is not active")
		return
	}

	householdID := auth.HouseholdID(r.Context())
	userID := auth.UserID(r.Context())

	balance, err := h.rewards.Balance(householdID, userID)
	if err != nil {
		h.logger.Error("get balance", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to redeem")
		return
	}
	if balance.Balance < reward.CoinCost {
		writeError(w, http.StatusConflict, "not enough coins")
		return
	}

	redemption, err := h.rewards.Redeem(reward.ID, userID, reward.CoinCost)
	if err != nil {
		h.logger.Error("redeem reward", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to redeem")
		return
	}

	h.hub.Broadcast(householdID, websocket.NewMessage("reward", "redeemed", reward.ID, map[string]any{"user_id": userID}))
	writeJSON(w, http.StatusCreated, redemption)
}

// Balance returns the caller's earned, spent, and current coin totals.
func (h *RewardHandler) Balance(w http.ResponseWriter, r *http.Request) {
	balance, err := h.rewards.Balance(auth.HouseholdID(r.Context()), auth.UserID(r.Context()))
	if err != nil {
		h.logger.Error("get balance", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to get balance")
		return
	}
	writeJSON(w, http.StatusOK, balance)
}
