package handler

import (
	"log/slog"
	"net/http"

	"github.com/pthomsen/chorecraft/internal/backup"
	"github.com/pthomsen/chorecraft/internal/model"
	"github.com/pthomsen/chorecraft/internal/store"
)

type BackupHandler struct {
	manager *backup.Manager
	backups *store.BackupStore
	logger  *slog.Logger
}

func NewBackupHandler(m *backup.Manager, bs *store.BackupStore, logger *slog.Logger) *BackupHandler {
	return &BackupHandler{
		manager: m,
		backups: bs,
		logger:  logger.With("component", "backup_handler"),
	}
}

// Status reports the backup manager state.
func (h *BackupHandler) Status(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.manager.Status())
}

// Run triggers an immediate backup. Admin only.
func (h *BackupHandler) Run(w http.ResponseWriter, r *http.Request) {
	id, err := h.manager.RunNow(r.Context())
	if err != nil {
		h.logger.Error("run backup", "error", err)
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}

	record, err := h.backups.GetByID(id)
	if err != nil {
		h.logger.Error("get backup", "error", err)
		writeError(w, http.StatusInternalServerError, "backup ran but could not load record")
		return
	}
	writeJSON(w, http.StatusCreated, record)
}

// List returns recent backup records, newest first. Admin only.
func (h *BackupHandler) List(w http.ResponseWriter, r *http.Request) {
	records, err := h.backups.List(50)
	if err != nil {
		h.logger.Error("list backups", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list backups")
		return
	}
	if records == nil {
		records = []model.Backup{}
	}
	writeJSON(w, http.StatusOK, records)
}
