package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/dukerupert/majo/internal/tracker"
)

const maxBodyBytes = 1 << 20

func parseIDParam(r *http.Request) (int64, error) {
	return strconv.ParseInt(r.PathValue("id"), 10, 64)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return false
	}
	return true
}

// writeTrackerError maps tracker errors onto status codes. what names the
// failed operation in the log and the 500 message.
func writeTrackerError(w http.ResponseWriter, logger *slog.Logger, err error, notFound, what string) {
	var ve *tracker.ValidationError
	switch {
	case errors.As(err, &ve):
		writeError(w, http.StatusBadRequest, ve.Message)
	case errors.Is(err, tracker.ErrNotFound):
		writeError(w, http.StatusNotFound, notFound)
	default:
		logger.Error(what, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to "+what)
	}
}

// flexString decodes either a JSON string or a bare number, so clients may
// send {"value": 2.5} or {"value": "2.5"}.
type flexString string

func (f *flexString) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = flexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*f = flexString(n)
	return nil
}

func notify(n tracker.Notifier, entity, action string, id int64) {
	if n != nil {
		n.Notify(entity, action, id)
	}
}
