package handler

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/dukerupert/majo/internal/model"
	"github.com/dukerupert/majo/internal/points"
	"github.com/dukerupert/majo/internal/tracker"
)

type ActionHandler struct {
	tracker *tracker.Tracker
	logger  *slog.Logger
}

func NewActionHandler(t *tracker.Tracker, logger *slog.Logger) *ActionHandler {
	return &ActionHandler{tracker: t, logger: logger}
}

type actionRequest struct {
	Name          string     `json:"name"`
	Type          string     `json:"type"`
	Unit          string     `json:"unit"`
	PointsPerUnit flexString `json:"points_per_unit"`
	Category      string     `json:"category"`
	Active        *bool      `json:"active"`
}

func (req actionRequest) form(id int64) tracker.ActionForm {
	return tracker.ActionForm{
		ID:            id,
		Name:          req.Name,
		Type:          req.Type,
		Unit:          req.Unit,
		PointsPerUnit: string(req.PointsPerUnit),
		Category:      req.Category,
		Active:        req.Active,
	}
}

// List handles GET /api/actions[?active=true]
func (h *ActionHandler) List(w http.ResponseWriter, r *http.Request) {
	var actions []model.Action
	var err error
	if r.URL.Query().Get("active") == "true" {
		actions, err = h.tracker.ListActiveActions()
	} else {
		actions, err = h.tracker.ListActions()
	}
	if err != nil {
		writeTrackerError(w, h.logger, err, "", "list actions")
		return
	}
	writeJSON(w, http.StatusOK, actions)
}

// Defaults handles GET /api/actions/new and returns the prefilled form.
func (h *ActionHandler) Defaults(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, tracker.NewActionForm())
}

func (h *ActionHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req actionRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	a, err := h.tracker.SaveAction(req.form(0))
	if err != nil {
		writeTrackerError(w, h.logger, err, "action not found", "create action")
		return
	}
	writeJSON(w, http.StatusCreated, a)
}

func (h *ActionHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	a, err := h.tracker.GetAction(id)
	if err != nil {
		writeTrackerError(w, h.logger, err, "action not found", "get action")
		return
	}
	writeJSON(w, http.StatusOK, a)
}

func (h *ActionHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	var req actionRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	a, err := h.tracker.SaveAction(req.form(id))
	if err != nil {
		writeTrackerError(w, h.logger, err, "action not found", "update action")
		return
	}
	writeJSON(w, http.StatusOK, a)
}

// SetActive handles POST /api/actions/{id}/active with {"active": bool}.
func (h *ActionHandler) SetActive(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	var req struct {
		Active *bool `json:"active"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Active == nil {
		writeError(w, http.StatusBadRequest, "active is required")
		return
	}
	a, err := h.tracker.SetActionActive(id, *req.Active)
	if err != nil {
		writeTrackerError(w, h.logger, err, "action not found", "update action")
		return
	}
	writeJSON(w, http.StatusOK, a)
}

func (h *ActionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	if err := h.tracker.DeleteAction(id); err != nil {
		writeTrackerError(w, h.logger, err, "action not found", "delete action")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Records handles GET /api/actions/{id}/records
func (h *ActionHandler) Records(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	recs, err := h.tracker.ListRecordsForAction(id)
	if err != nil {
		writeTrackerError(w, h.logger, err, "action not found", "list records")
		return
	}
	writeJSON(w, http.StatusOK, recs)
}

// Preview handles GET /api/actions/{id}/preview?value=
func (h *ActionHandler) Preview(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	value := r.URL.Query().Get("value")
	pts, err := h.tracker.PreviewPoints(id, value)
	if err != nil {
		writeTrackerError(w, h.logger, err, "action not found", "preview points")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"action_id": id, "value": value, "points": pts})
}

// UnitTypes handles GET /api/unit-types[?type=]
func (h *ActionHandler) UnitTypes(w http.ResponseWriter, r *http.Request) {
	if ts := r.URL.Query().Get("type"); ts != "" {
		t, err := model.ParseActionType(strings.ToUpper(ts))
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"type": t, "units": points.ValidUnits(t)})
		return
	}

	all := make(map[model.ActionType][]model.UnitType)
	for _, t := range model.ActionTypes() {
		all[t] = points.ValidUnits(t)
	}
	writeJSON(w, http.StatusOK, all)
}
