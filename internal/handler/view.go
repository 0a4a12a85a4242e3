package handler

import (
	"log/slog"
	"net/http"

	"github.com/dukerupert/majo/internal/tracker"
)

// ViewHandler serves the read-only day and summary views.
type ViewHandler struct {
	tracker *tracker.Tracker
	logger  *slog.Logger
}

func NewViewHandler(t *tracker.Tracker, logger *slog.Logger) *ViewHandler {
	return &ViewHandler{tracker: t, logger: logger}
}

type dayResponse struct {
	*tracker.DayView
	Previous string `json:"previous"`
	Next     string `json:"next,omitempty"`
}

// Day handles GET /api/days/{date} where date is YYYY-MM-DD or "today".
func (h *ViewHandler) Day(w http.ResponseWriter, r *http.Request) {
	day, err := h.tracker.ParseDay(r.PathValue("date"))
	if err != nil {
		writeTrackerError(w, h.logger, err, "", "parse date")
		return
	}
	view, err := h.tracker.DayView(day)
	if err != nil {
		writeTrackerError(w, h.logger, err, "", "load day")
		return
	}

	resp := dayResponse{
		DayView:  view,
		Previous: h.tracker.PreviousDay(day).Format("2006-01-02"),
	}
	if view.HasNext {
		resp.Next = h.tracker.NextDay(day).Format("2006-01-02")
	}
	writeJSON(w, http.StatusOK, resp)
}

// Summary handles GET /api/summary?period=day|week|month&date= and
// GET /api/summary?start=&end= (inclusive dates).
func (h *ViewHandler) Summary(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	if q.Has("start") || q.Has("end") {
		start, err := h.tracker.ParseDay(q.Get("start"))
		if err != nil {
			writeTrackerError(w, h.logger, err, "", "parse start")
			return
		}
		endDay, err := h.tracker.ParseDay(q.Get("end"))
		if err != nil {
			writeTrackerError(w, h.logger, err, "", "parse end")
			return
		}
		_, end := h.tracker.PeriodBounds(tracker.PeriodDay, endDay)
		summary, err := h.tracker.SummaryRange(start, end)
		if err != nil {
			writeTrackerError(w, h.logger, err, "", "summarize")
			return
		}
		writeJSON(w, http.StatusOK, summary)
		return
	}

	period, err := tracker.ParsePeriod(q.Get("period"))
	if err != nil {
		writeTrackerError(w, h.logger, err, "", "parse period")
		return
	}
	anchor, err := h.tracker.ParseDay(q.Get("date"))
	if err != nil {
		writeTrackerError(w, h.logger, err, "", "parse date")
		return
	}
	summary, err := h.tracker.Summary(period, anchor)
	if err != nil {
		writeTrackerError(w, h.logger, err, "", "summarize")
		return
	}
	writeJSON(w, http.StatusOK, summary)
}
