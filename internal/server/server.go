package server

import (
	"database/sql"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/pthomsen/chorecraft/internal/auth"
	"github.com/pthomsen/chorecraft/internal/backup"
	"github.com/pthomsen/chorecraft/internal/chore"
	"github.com/pthomsen/chorecraft/internal/email"
	"github.com/pthomsen/chorecraft/internal/handler"
	"github.com/pthomsen/chorecraft/internal/middleware"
	"github.com/pthomsen/chorecraft/internal/push"
	"github.com/pthomsen/chorecraft/internal/schedule"
	"github.com/pthomsen/chorecraft/internal/store"
	ws "github.com/pthomsen/chorecraft/internal/websocket"
)

// Config carries everything the server needs beyond its database handle.
type Config struct {
	JWTSecret []byte
	Location  *time.Location
	Backup    backup.Config
	Push      push.Config
	PushFrom  string
}

type Server struct {
	db     *sql.DB
	hub    *ws.Hub
	logger *slog.Logger

	authH     *handler.AuthHandler
	choreH    *handler.ChoreHandler
	calendarH *handler.CalendarHandler
	rewardH   *handler.RewardHandler
	pushH     *handler.PushHandler
	backupH   *handler.BackupHandler

	issuer        *auth.TokenIssuer
	rateLimiter   *middleware.RateLimiter
	backupManager *backup.Manager
	pushScheduler *push.Scheduler
}

func New(db *sql.DB, cfg Config, emailClient *email.Client, logger *slog.Logger) *Server {
	hub := ws.NewHub(logger.With("component", "websocket"))

	userStore := store.NewUserStore(db)
	householdStore := store.NewHouseholdStore(db)
	choreStore := store.NewChoreStore(db)
	rewardStore := store.NewRewardStore(db)
	pushStore := store.NewPushStore(db)
	backupStore := store.NewBackupStore(db)

	issuer := auth.NewTokenIssuer(cfg.JWTSecret, time.Now)
	resolver := schedule.NewResolver(time.Now, cfg.Location, logger.With("component", "resolver"))
	choreService := chore.NewService(choreStore, resolver, logger.With("component", "chore_service"))

	backupMgr := backup.NewManager(cfg.Backup, db, backupStore, logger)

	var pushSvc *push.Service
	var pushSched *push.Scheduler
	if cfg.Push.VAPIDPublicKey != "" && cfg.Push.VAPIDPrivateKey != "" {
		pushSvc = push.NewService(cfg.Push.VAPIDPublicKey, cfg.Push.VAPIDPrivateKey, cfg.PushFrom)
		pushSched = push.NewScheduler(pushSvc, pushStore, choreService, householdStore, logger)
	}

	s := &Server{
		db:            db,
		hub:           hub,
		logger:        logger,
		issuer:        issuer,
		rateLimiter:   middleware.NewRateLimiter(),
		backupManager: backupMgr,
		pushScheduler: pushSched,
	}

	s.authH = handler.NewAuthHandler(userStore, householdStore, issuer, emailClient, logger)
	s.choreH = handler.NewChoreHandler(choreStore, choreService, hub, pushSched, cfg.Location, logger)
	s.calendarH = handler.NewCalendarHandler(choreService, cfg.Location, logger)
	s.rewardH = handler.NewRewardHandler(rewardStore, hub, logger)
	s.backupH = handler.NewBackupHandler(backupMgr, backupStore, logger)
	if pushSvc != nil {
		s.pushH = handler.NewPushHandler(pushStore, pushSvc, logger.With("component", "push_handler"))
	}

	return s
}

// BackupManager returns the backup manager for lifecycle control.
func (s *Server) BackupManager() *backup.Manager {
	return s.backupManager
}

// PushScheduler returns the push scheduler, nil when VAPID keys are unset.
func (s *Server) PushScheduler() *push.Scheduler {
	return s.pushScheduler
}

// RateLimiter returns the rate limiter for cleanup tasks.
func (s *Server) RateLimiter() *middleware.RateLimiter {
	return s.rateLimiter
}

func (s *Server) Router() http.Handler {
	outerMux := http.NewServeMux()

	// Public routes (no auth required)
	outerMux.HandleFunc("POST /api/auth/register", s.rateLimited(s.authH.Register))
	outerMux.HandleFunc("POST /api/auth/login", s.rateLimited(s.authH.Login))
	outerMux.HandleFunc("POST /api/invites/accept", s.rateLimited(s.authH.AcceptInvite))
	outerMux.HandleFunc("GET /health", s.healthHandler)

	// Protected routes behind bearer-token auth
	protectedMux := http.NewServeMux()
	s.registerProtectedRoutes(protectedMux)

	authMiddleware := middleware.RequireAuth(s.issuer)
	outerMux.Handle("/", authMiddleware(protectedMux))

	return middleware.RequestLogger(s.logger.With("component", "http"))(outerMux)
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (s *Server) rateLimited(h http.HandlerFunc) http.HandlerFunc {
	rl := middleware.RateLimit(s.rateLimiter, middleware.RealIP, 10, time.Minute)
	return func(w http.ResponseWriter, r *http.Request) {
		rl(h).ServeHTTP(w, r)
	}
}

func (s *Server) registerProtectedRoutes(mux *http.ServeMux) {
	admin := middleware.RequireAdmin

	// Household routes
	mux.HandleFunc("GET /api/household/members", s.authH.Members)
	mux.Handle("POST /api/invites", admin(http.HandlerFunc(s.authH.Invite)))

	// Chore routes
	mux.HandleFunc("GET /api/chores", s.choreH.List)
	mux.HandleFunc("GET /api/chores/{id}", s.choreH.Get)
	mux.Handle("POST /api/chores", admin(http.HandlerFunc(s.choreH.Create)))
	mux.Handle("PUT /api/chores/{id}", admin(http.HandlerFunc(s.choreH.Update)))
	mux.Handle("DELETE /api/chores/{id}", admin(http.HandlerFunc(s.choreH.Deactivate)))
	mux.HandleFunc("POST /api/chores/{id}/complete", s.choreH.Complete)
	mux.HandleFunc("GET /api/chores/{id}/completions", s.choreH.Completions)

	// Completion review
	mux.Handle("GET /api/completions/pending", admin(http.HandlerFunc(s.choreH.Pending)))
	mux.Handle("POST /api/completions/{id}/approve", admin(http.HandlerFunc(s.choreH.Approve)))

	// Calendar projection
	mux.HandleFunc("GET /api/calendar", s.calendarH.Range)
	mux.HandleFunc("GET /api/calendar/today", s.calendarH.Today)
	mux.HandleFunc("GET /api/calendar/overdue", s.calendarH.Overdue)

	// Reward routes
	mux.HandleFunc("GET /api/rewards", s.rewardH.List)
	mux.Handle("POST /api/rewards", admin(http.HandlerFunc(s.rewardH.Create)))
	mux.Handle("PUT /api/rewards/{id}", admin(http.HandlerFunc(s.rewardH.Update)))
	mux.HandleFunc("POST /api/rewards/{id}/redeem", s.rewardH.Redeem)
	mux.HandleFunc("GET /api/coins/balance", s.rewardH.Balance)

	// Push notification routes
	if s.pushH != nil {
		mux.HandleFunc("GET /api/push/vapid-key", s.pushH.VAPIDKey)
		mux.HandleFunc("POST /api/push/subscribe", s.pushH.Subscribe)
		mux.HandleFunc("GET /api/push/subscriptions", s.pushH.List)
		mux.HandleFunc("DELETE /api/push/subscriptions/{id}", s.pushH.Unsubscribe)
	}

	// Backup routes
	mux.Handle("GET /api/backups", admin(http.HandlerFunc(s.backupH.List)))
	mux.Handle("GET /api/backups/status", admin(http.HandlerFunc(s.backupH.Status)))
	mux.Handle("POST /api/backups/run", admin(http.HandlerFunc(s.backupH.Run)))

	// Real-time sync
	mux.HandleFunc("GET /ws", ws.Handle(s.hub, s.logger.With("component", "websocket")))
}
