package observability

import (
	"testing"
	"time"

	"github.com/dukerupert/majo/internal/model"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecorderCountsRecordsAndPoints(t *testing.T) {
	r := &Recorder{now: func() time.Time { return time.Unix(1_700_000_000, 0) }}

	beforeRecords := testutil.ToFloat64(recordsLogged.WithLabelValues("DISTANCE"))
	beforePoints := testutil.ToFloat64(pointsAwarded.WithLabelValues("DISTANCE"))

	r.RecordLogged(model.ActionTypeDistance, 25)
	r.RecordLogged(model.ActionTypeDistance, 5)

	if got := testutil.ToFloat64(recordsLogged.WithLabelValues("DISTANCE")) - beforeRecords; got != 2 {
		t.Errorf("records delta = %v, want 2", got)
	}
	if got := testutil.ToFloat64(pointsAwarded.WithLabelValues("DISTANCE")) - beforePoints; got != 30 {
		t.Errorf("points delta = %v, want 30", got)
	}
	if got := testutil.ToFloat64(lastRecordGauge); got != 1_700_000_000 {
		t.Errorf("last record = %v", got)
	}
}

func TestRecordBackupAndPush(t *testing.T) {
	before := testutil.ToFloat64(backupRuns.WithLabelValues("failed"))
	RecordBackup(model.BackupStatusFailed)
	if got := testutil.ToFloat64(backupRuns.WithLabelValues("failed")) - before; got != 1 {
		t.Errorf("backup delta = %v, want 1", got)
	}

	before = testutil.ToFloat64(pushSent.WithLabelValues("expired"))
	RecordPush("expired")
	if got := testutil.ToFloat64(pushSent.WithLabelValues("expired")) - before; got != 1 {
		t.Errorf("push delta = %v, want 1", got)
	}
}
