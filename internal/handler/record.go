package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/dukerupert/majo/internal/tracker"
)

type RecordHandler struct {
	tracker *tracker.Tracker
	logger  *slog.Logger
}

func NewRecordHandler(t *tracker.Tracker, logger *slog.Logger) *RecordHandler {
	return &RecordHandler{tracker: t, logger: logger}
}

type recordRequest struct {
	ActionID   int64      `json:"action_id"`
	Value      flexString `json:"value"`
	RecordedAt *time.Time `json:"recorded_at"`
}

func (h *RecordHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req recordRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	rec, err := h.tracker.LogRecord(tracker.RecordForm{
		ActionID:   req.ActionID,
		Value:      string(req.Value),
		RecordedAt: req.RecordedAt,
	})
	if err != nil {
		writeTrackerError(w, h.logger, err, "action not found", "log record")
		return
	}
	writeJSON(w, http.StatusCreated, rec)
}

func (h *RecordHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	if err := h.tracker.DeleteRecord(id); err != nil {
		writeTrackerError(w, h.logger, err, "record not found", "delete record")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
