package observability

import (
	"time"

	"github.com/dukerupert/majo/internal/model"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	recordsLogged = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "majo",
		Subsystem: "tracker",
		Name:      "records_logged_total",
		Help:      "Records logged, by action type.",
	}, []string{"type"})
	pointsAwarded = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "majo",
		Subsystem: "tracker",
		Name:      "points_awarded_total",
		Help:      "Points awarded by logged records, by action type.",
	}, []string{"type"})
	lastRecordGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "majo",
		Subsystem: "tracker",
		Name:      "last_record_timestamp_seconds",
		Help:      "Unix timestamp of the most recently logged record.",
	})
	backupRuns = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "majo",
		Subsystem: "backup",
		Name:      "runs_total",
		Help:      "Backup runs, by final status.",
	}, []string{"status"})
	pushSent = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "majo",
		Subsystem: "push",
		Name:      "notifications_total",
		Help:      "Push notification attempts, by result.",
	}, []string{"result"})
)

func init() {
	prometheus.MustRegister(recordsLogged, pointsAwarded, lastRecordGauge, backupRuns, pushSent)
}

// Recorder feeds tracker events into the tracker metrics.
type Recorder struct {
	now func() time.Time
}

func NewRecorder() *Recorder {
	return &Recorder{now: time.Now}
}

func (r *Recorder) RecordLogged(t model.ActionType, points float64) {
	recordsLogged.WithLabelValues(string(t)).Inc()
	pointsAwarded.WithLabelValues(string(t)).Add(points)
	lastRecordGauge.Set(float64(r.now().Unix()))
}

// RecordBackup counts a finished backup run.
func RecordBackup(status model.BackupStatus) {
	backupRuns.WithLabelValues(string(status)).Inc()
}

// RecordPush counts a push attempt. result is "sent", "expired" or "failed".
func RecordPush(result string) {
	pushSent.WithLabelValues(result).Inc()
}
