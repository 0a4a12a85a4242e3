package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/dukerupert/majo/internal/backup"
	"github.com/dukerupert/majo/internal/push"
	"github.com/dukerupert/majo/internal/store"
	"github.com/dukerupert/majo/internal/tracker"
)

type SettingsHandler struct {
	tracker  *tracker.Tracker
	store    *store.SettingsStore
	backups  backupService
	notifier tracker.Notifier
	logger   *slog.Logger
}

func NewSettingsHandler(t *tracker.Tracker, ss *store.SettingsStore, backups backupService, notifier tracker.Notifier, logger *slog.Logger) *SettingsHandler {
	return &SettingsHandler{tracker: t, store: ss, backups: backups, notifier: notifier, logger: logger}
}

// Get handles GET /api/settings
func (h *SettingsHandler) Get(w http.ResponseWriter, r *http.Request) {
	s, err := h.tracker.Settings()
	if err != nil {
		writeTrackerError(w, h.logger, err, "", "get settings")
		return
	}
	writeJSON(w, http.StatusOK, s)
}

type settingsRequest struct {
	DarkMode    *bool   `json:"dark_mode"`
	Language    *string `json:"language_code"`
	AccentColor *string `json:"accent_color"`
}

// Update handles PUT /api/settings. Omitted fields are left unchanged.
func (h *SettingsHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req settingsRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	s, err := h.tracker.UpdateSettings(tracker.SettingsPatch{
		DarkMode:    req.DarkMode,
		Language:    req.Language,
		AccentColor: req.AccentColor,
	})
	if err != nil {
		writeTrackerError(w, h.logger, err, "", "update settings")
		return
	}
	writeJSON(w, http.StatusOK, s)
}

// GetBackup handles GET /api/settings/backup
func (h *SettingsHandler) GetBackup(w http.ResponseWriter, r *http.Request) {
	s, err := backup.LoadSettings(h.store)
	if err != nil {
		h.logger.Error("load backup settings", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load backup settings")
		return
	}
	writeJSON(w, http.StatusOK, s)
}

// UpdateBackup handles PUT /api/settings/backup
func (h *SettingsHandler) UpdateBackup(w http.ResponseWriter, r *http.Request) {
	current, err := backup.LoadSettings(h.store)
	if err != nil {
		h.logger.Error("load backup settings", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load backup settings")
		return
	}

	var req struct {
		Enabled       *bool `json:"enabled"`
		ScheduleHour  *int  `json:"schedule_hour"`
		RetentionDays *int  `json:"retention_days"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Enabled != nil {
		current.Enabled = *req.Enabled
	}
	if req.ScheduleHour != nil {
		current.ScheduleHour = *req.ScheduleHour
	}
	if req.RetentionDays != nil {
		current.RetentionDays = *req.RetentionDays
	}

	if err := backup.SaveSettings(h.store, current); err != nil {
		if errors.Is(err, backup.ErrInvalidSettings) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.logger.Error("save backup settings", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to save backup settings")
		return
	}
	notify(h.notifier, tracker.EntitySettings, "updated", 0)
	writeJSON(w, http.StatusOK, current)
}

// storageResponse never echoes the secret key.
type storageResponse struct {
	Endpoint   string `json:"endpoint"`
	Bucket     string `json:"bucket"`
	Region     string `json:"region"`
	AccessKey  string `json:"access_key"`
	SecretSet  bool   `json:"secret_key_set"`
	Configured bool   `json:"configured"`
}

func newStorageResponse(cfg backup.S3Config) storageResponse {
	return storageResponse{
		Endpoint:   cfg.Endpoint,
		Bucket:     cfg.Bucket,
		Region:     cfg.Region,
		AccessKey:  cfg.AccessKey,
		SecretSet:  cfg.SecretKey != "",
		Configured: cfg.Bucket != "" && cfg.AccessKey != "" && cfg.SecretKey != "",
	}
}

// GetStorage handles GET /api/settings/backup/storage
func (h *SettingsHandler) GetStorage(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, newStorageResponse(h.backups.Storage()))
}

// UpdateStorage handles PUT /api/settings/backup/storage and switches the
// backup target without a restart. Omitted fields keep their value; an
// empty bucket with empty keys turns backups off.
func (h *SettingsHandler) UpdateStorage(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Endpoint  *string `json:"endpoint"`
		Bucket    *string `json:"bucket"`
		Region    *string `json:"region"`
		AccessKey *string `json:"access_key"`
		SecretKey *string `json:"secret_key"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}

	cfg := h.backups.Storage()
	for _, f := range []struct {
		src *string
		dst *string
	}{
		{req.Endpoint, &cfg.Endpoint},
		{req.Bucket, &cfg.Bucket},
		{req.Region, &cfg.Region},
		{req.AccessKey, &cfg.AccessKey},
		{req.SecretKey, &cfg.SecretKey},
	} {
		if f.src != nil {
			*f.dst = strings.TrimSpace(*f.src)
		}
	}

	if err := h.backups.SetStorage(cfg); err != nil {
		writeBackupError(w, h.logger, err, "save storage settings")
		return
	}
	notify(h.notifier, tracker.EntitySettings, "updated", 0)
	writeJSON(w, http.StatusOK, newStorageResponse(h.backups.Storage()))
}

type passphraseRequest struct {
	Passphrase string `json:"passphrase"`
}

// SetPassphrase handles PUT /api/settings/backup/passphrase. Changing the
// passphrase generates a new salt; older backups keep their own.
func (h *SettingsHandler) SetPassphrase(w http.ResponseWriter, r *http.Request) {
	var req passphraseRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := h.backups.SetPassphrase(req.Passphrase); err != nil {
		writeBackupError(w, h.logger, err, "set passphrase")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Unlock handles POST /api/settings/backup/unlock and keeps the key in
// memory so scheduled backups can run.
func (h *SettingsHandler) Unlock(w http.ResponseWriter, r *http.Request) {
	var req passphraseRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := h.backups.CacheKey(req.Passphrase); err != nil {
		writeBackupError(w, h.logger, err, "unlock backups")
		return
	}
	writeJSON(w, http.StatusOK, h.backups.Status())
}

// GetReminder handles GET /api/settings/reminder
func (h *SettingsHandler) GetReminder(w http.ResponseWriter, r *http.Request) {
	s, err := push.LoadReminderSettings(h.store)
	if err != nil {
		h.logger.Error("load reminder settings", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load reminder settings")
		return
	}
	writeJSON(w, http.StatusOK, s)
}

// UpdateReminder handles PUT /api/settings/reminder
func (h *SettingsHandler) UpdateReminder(w http.ResponseWriter, r *http.Request) {
	current, err := push.LoadReminderSettings(h.store)
	if err != nil {
		h.logger.Error("load reminder settings", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load reminder settings")
		return
	}

	var req struct {
		Enabled *bool `json:"enabled"`
		Hour    *int  `json:"hour"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Enabled != nil {
		current.Enabled = *req.Enabled
	}
	if req.Hour != nil {
		current.Hour = *req.Hour
	}

	if err := push.SaveReminderSettings(h.store, current); err != nil {
		if errors.Is(err, push.ErrInvalidSettings) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.logger.Error("save reminder settings", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to save reminder settings")
		return
	}
	notify(h.notifier, tracker.EntitySettings, "updated", 0)
	writeJSON(w, http.StatusOK, current)
}
