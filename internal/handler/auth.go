package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/pthomsen/chorecraft/internal/auth"
	"github.com/pthomsen/chorecraft/internal/email"
	"github.com/pthomsen/chorecraft/internal/model"
	"github.com/pthomsen/chorecraft/internal/store"
)

const inviteTTL = 7 * 24 * time.Hour

type AuthHandler struct {
	users      *store.UserStore
	households *store.HouseholdStore
	issuer     *auth.TokenIssuer
	mail       *email.Client
	logger     *slog.Logger
	now        func() time.Time
}

func NewAuthHandler(us *store.UserStore, hs *store.HouseholdStore, issuer *auth.TokenIssuer, mail *email.Client, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		users:      us,
		households: hs,
		issuer:     issuer,
		mail:       mail,
		logger:     logger.With("component", "auth"),
		now:        time.Now,
	}
}

type registerRequest struct {
	Email         string `json:"email"`
	Name          string `json:"name"`
	Password      string `json:"password"`
	HouseholdName string `json:"household_name"`
}

type authResponse struct {
	Token     string           `json:"token"`
	User      *model.User      `json:"user"`
	Household *model.Household `json:"household,omitempty"`
	Role      string           `json:"role,omitempty"`
}

// Register creates a user and their household, making them its admin.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.Name = strings.TrimSpace(req.Name)
	req.HouseholdName = strings.TrimSpace(req.HouseholdName)

	if _, err := mail.ParseAddress(req.Email); err != nil {
		writeError(w, http.StatusBadRequest, "invalid email address")
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}
	if len(req.Password) < 8 {
		writeError(w, http.StatusBadRequest, "password must be at least 8 characters")
		return
	}
	if req.HouseholdName == "" {
		writeError(w, http.StatusBadRequest, "household_name is required")
		return
	}

	existing, err := h.users.GetByEmail(req.Email)
	if err != nil {
		h.logger.Error("check existing user", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to register")
		return
	}
	if existing != nil {
		writeError(w, http.StatusConflict, "email already registered")
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		h.logger.Error("hash password", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to register")
		return
	}

	user, err := h.users.Create(req.Email, req.Name, string(hash))
	if err != nil {
		h.logger.Error("create user", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to register")
		return
	}

	household, err := h.households.Create(req.HouseholdName)
	if err != nil {
		h.logger.Error("create household", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to register")
		return
	}
	if _, err := h.households.AddMember(household.ID, user.ID, model.RoleAdmin); err != nil {
		h.logger.Error("add member", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to register")
		return
	}

	token, err := h.issuer.Issue(user.ID, household.ID, model.RoleAdmin)
	if err != nil {
		h.logger.Error("issue token", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to register")
		return
	}

	writeJSON(w, http.StatusCreated, authResponse{
		Token:     token,
		User:      user,
		Household: household,
		Role:      model.RoleAdmin,
	})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login verifies credentials and issues a token scoped to the user's
// household membership.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	req.Email = strings.ToLower(strings.TrimSpace(req.Email))

	user, err := h.users.GetByEmail(req.Email)
	if err != nil {
		h.logger.Error("lookup user", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to log in")
		return
	}
	if user == nil {
		writeError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		writeError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	member, err := h.households.MembershipForUser(user.ID)
	if err != nil {
		h.logger.Error("lookup membership", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to log in")
		return
	}
	if member == nil {
		writeError(w, http.StatusForbidden, "no household membership")
		return
	}

	household, err := h.households.GetByID(member.HouseholdID)
	if err != nil {
		h.logger.Error("lookup household", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to log in")
		return
	}

	token, err := h.issuer.Issue(user.ID, member.HouseholdID, member.Role)
	if err != nil {
		h.logger.Error("issue token", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to log in")
		return
	}

	writeJSON(w, http.StatusOK, authResponse{
		Token:     token,
		User:      user,
		Household: household,
		Role:      member.Role,
	})
}

type inviteRequest struct {
	Email string `json:"email"`
}

// Invite creates a household invite and emails the accept link. Admin only.
func (h *AuthHandler) Invite(w http.ResponseWriter, r *http.Request) {
	householdID := auth.HouseholdID(r.Context())

	var req inviteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if _, err := mail.ParseAddress(req.Email); err != nil {
		writeError(w, http.StatusBadRequest, "invalid email address")
		return
	}

	token := uuid.NewString()
	invite, err := h.households.CreateInvite(householdID, req.Email, token, h.now().Add(inviteTTL))
	if err != nil {
		h.logger.Error("create invite", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create invite")
		return
	}

	if h.mail.Configured() {
		household, err := h.households.GetByID(householdID)
		if err != nil || household == nil {
			h.logger.Error("lookup household for invite", "error", err)
		} else {
			go func() {
				ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
				defer cancel()
				if err := h.mail.SendInvite(ctx, req.Email, token, household.Name); err != nil {
					h.logger.Error("send invite email", "error", err)
				}
			}()
		}
	}

	writeJSON(w, http.StatusCreated, invite)
}

type acceptInviteRequest struct {
	Token    string `json:"token"`
	Name     string `json:"name"`
	Password string `json:"password"`
}

// AcceptInvite redeems an invite token, creating the account if needed,
// and issues a token for the invited household.
func (h *AuthHandler) AcceptInvite(w http.ResponseWriter, r *http.Request) {
	var req acceptInviteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	invite, err := h.households.GetInviteByToken(req.Token)
	if err != nil {
		h.logger.Error("lookup invite", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to accept invite")
		return
	}
	if invite == nil || invite.AcceptedAt != nil || h.now().After(invite.ExpiresAt) {
		writeError(w, http.StatusNotFound, "invite not found or expired")
		return
	}

	user, err := h.users.GetByEmail(invite.Email)
	if err != nil {
		h.logger.Error("lookup user", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to accept invite")
		return
	}
	if user == nil {
		req.Name = strings.TrimSpace(req.Name)
		if req.Name == "" {
			writeError(w, http.StatusBadRequest, "name is required")
			return
		}
		if len(req.Password) < 8 {
			writeError(w, http.StatusBadRequest, "password must be at least 8 characters")
			return
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
		if err != nil {
			h.logger.Error("hash password", "error", err)
			writeError(w, http.StatusInternalServerError, "failed to accept invite")
			return
		}
		user, err = h.users.Create(invite.Email, req.Name, string(hash))
		if err != nil {
			h.logger.Error("create user", "error", err)
			writeError(w, http.StatusInternalServerError, "failed to accept invite")
			return
		}
	}

	if _, err := h.households.AddMember(invite.HouseholdID, user.ID, model.RoleMember); err != nil {
		h.logger.Error("add member", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to accept invite")
		return
	}
	if err := h.households.MarkInviteAccepted(invite.ID, h.now()); err != nil {
		h.logger.Error("mark invite accepted", "error", err)
	}

	household, err := h.households.GetByID(invite.HouseholdID)
	if err != nil {
		h.logger.Error("lookup household", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to accept invite")
		return
	}

	token, err := h.issuer.Issue(user.ID, invite.HouseholdID, model.RoleMember)
	if err != nil {
		h.logger.Error("issue token", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to accept invite")
		return
	}

	writeJSON(w, http.StatusOK, authResponse{
		Token:     token,
		User:      user,
		Household: household,
		Role:      model.RoleMember,
	})
}

// Members lists the caller's household members.
func (h *AuthHandler) Members(w http.ResponseWriter, r *http.Request) {
	householdID := auth.HouseholdID(r.Context())

	members, err := h.households.ListMembers(householdID)
	if err != nil {
		h.logger.Error("list members", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list members")
		return
	}
	if members == nil {
		members = []model.HouseholdMember{}
	}
	writeJSON(w, http.StatusOK, members)
}
