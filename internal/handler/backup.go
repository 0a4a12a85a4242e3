package handler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/dukerupert/majo/internal/backup"
	"github.com/dukerupert/majo/internal/model"
	"github.com/dukerupert/majo/internal/store"
)

const backupHistoryLimit = 50

// backupService is the part of backup.Manager the HTTP layer uses.
type backupService interface {
	Status() backup.Status
	RunNow(ctx context.Context, passphrase string) (*model.Backup, error)
	Download(ctx context.Context, id int64) (io.ReadCloser, *model.Backup, error)
	SetPassphrase(passphrase string) error
	CacheKey(passphrase string) error
	Storage() backup.S3Config
	SetStorage(cfg backup.S3Config) error
}

type BackupHandler struct {
	service backupService
	store   *store.BackupStore
	logger  *slog.Logger
}

func NewBackupHandler(svc backupService, bs *store.BackupStore, logger *slog.Logger) *BackupHandler {
	return &BackupHandler{service: svc, store: bs, logger: logger}
}

func writeBackupError(w http.ResponseWriter, logger *slog.Logger, err error, what string) {
	switch {
	case errors.Is(err, backup.ErrNotConfigured):
		writeError(w, http.StatusServiceUnavailable, err.Error())
	case errors.Is(err, backup.ErrWrongPassphrase):
		writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, backup.ErrWeakPassphrase), errors.Is(err, backup.ErrNoPassphrase),
		errors.Is(err, backup.ErrInvalidSettings):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, backup.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, backup.ErrInProgress):
		writeError(w, http.StatusConflict, err.Error())
	default:
		logger.Error(what, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to "+what)
	}
}

// Status handles GET /api/backups/status
func (h *BackupHandler) Status(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.service.Status())
}

// Run handles POST /api/backups
func (h *BackupHandler) Run(w http.ResponseWriter, r *http.Request) {
	var req passphraseRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	b, err := h.service.RunNow(r.Context(), req.Passphrase)
	if err != nil {
		writeBackupError(w, h.logger, err, "run backup")
		return
	}
	writeJSON(w, http.StatusCreated, b)
}

// List handles GET /api/backups
func (h *BackupHandler) List(w http.ResponseWriter, r *http.Request) {
	backups, err := h.store.List(backupHistoryLimit)
	if err != nil {
		h.logger.Error("list backups", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list backups")
		return
	}
	if backups == nil {
		backups = []model.Backup{}
	}
	writeJSON(w, http.StatusOK, backups)
}

// Download handles GET /api/backups/{id}/download and streams the
// encrypted object as stored.
func (h *BackupHandler) Download(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	body, b, err := h.service.Download(r.Context(), id)
	if err != nil {
		writeBackupError(w, h.logger, err, "download backup")
		return
	}
	defer body.Close()

	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", b.Filename))
	if b.SizeBytes > 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(b.SizeBytes, 10))
	}
	if _, err := io.Copy(w, body); err != nil {
		h.logger.Warn("stream backup", "backup_id", id, "error", err)
	}
}
