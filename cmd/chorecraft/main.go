package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/pthomsen/chorecraft/internal/backup"
	"github.com/pthomsen/chorecraft/internal/database"
	"github.com/pthomsen/chorecraft/internal/email"
	"github.com/pthomsen/chorecraft/internal/logging"
	"github.com/pthomsen/chorecraft/internal/push"
	"github.com/pthomsen/chorecraft/internal/server"
)

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func main() {
	logger := logging.Setup(envOr("CHORECRAFT_LOG_LEVEL", "info"), envOr("CHORECRAFT_LOG_FORMAT", "text"))

	port := envOr("CHORECRAFT_PORT", "8080")
	dbPath := envOr("CHORECRAFT_DB_PATH", "chorecraft.db")

	secret := os.Getenv("CHORECRAFT_JWT_SECRET")
	if secret == "" {
		log.Fatal("CHORECRAFT_JWT_SECRET is required")
	}

	loc, err := time.LoadLocation(envOr("CHORECRAFT_TIMEZONE", "Local"))
	if err != nil {
		log.Fatalf("invalid timezone: %v", err)
	}

	db, err := database.Open(dbPath)
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}
	defer db.Close()

	scheduleHour, err := strconv.Atoi(envOr("CHORECRAFT_BACKUP_HOUR", "3"))
	if err != nil || scheduleHour < 0 || scheduleHour > 23 {
		log.Fatal("CHORECRAFT_BACKUP_HOUR must be an hour between 0 and 23")
	}
	keep, err := strconv.Atoi(envOr("CHORECRAFT_BACKUP_KEEP", "30"))
	if err != nil {
		log.Fatal("CHORECRAFT_BACKUP_KEEP must be a number")
	}

	cfg := server.Config{
		JWTSecret: []byte(secret),
		Location:  loc,
		Backup: backup.Config{
			S3: backup.S3Config{
				Endpoint:  os.Getenv("CHORECRAFT_S3_ENDPOINT"),
				Bucket:    os.Getenv("CHORECRAFT_S3_BUCKET"),
				Region:    envOr("CHORECRAFT_S3_REGION", "auto"),
				AccessKey: os.Getenv("CHORECRAFT_S3_ACCESS_KEY"),
				SecretKey: os.Getenv("CHORECRAFT_S3_SECRET_KEY"),
			},
			DBPath:       dbPath,
			ScheduleHour: scheduleHour,
			Keep:         keep,
		},
		Push: push.Config{
			VAPIDPublicKey:  os.Getenv("CHORECRAFT_VAPID_PUBLIC_KEY"),
			VAPIDPrivateKey: os.Getenv("CHORECRAFT_VAPID_PRIVATE_KEY"),
		},
		PushFrom: envOr("CHORECRAFT_PUSH_SUBSCRIBER", "mailto:admin@chorecraft.app"),
	}

	emailClient := email.NewClient(
		os.Getenv("CHORECRAFT_RESEND_API_KEY"),
		envOr("CHORECRAFT_EMAIL_FROM", "noreply@chorecraft.app"),
		envOr("CHORECRAFT_BASE_URL", "http://localhost:"+port),
	)

	srv := server.New(db, cfg, emailClient, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv.BackupManager().Start(ctx)
	defer srv.BackupManager().Stop()

	if sched := srv.PushScheduler(); sched != nil {
		sched.Start(ctx)
		defer sched.Stop()
	}

	// Sweep expired rate-limit entries hourly.
	go func() {
		ticker := time.NewTicker(time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				srv.RateLimiter().Cleanup()
			}
		}
	}()

	httpServer := &http.Server{
		Addr:         ":" + port,
		Handler:      srv.Router(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		logger.Info("chorecraft listening", "port", port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	<-ctx.Done()

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("shutdown error: %v", err)
	}
}
