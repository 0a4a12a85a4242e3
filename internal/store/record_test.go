package store

import (
	"testing"
	"time"

	"github.com/dukerupert/majo/internal/model"
)

func TestRecordCreateAndGet(t *testing.T) {
	as, rs := setupActionTestDB(t)

	action, err := as.Create(running())
	if err != nil {
		t.Fatalf("create action: %v", err)
	}

	at := time.Date(2025, 3, 2, 7, 30, 0, 0, time.UTC)
	rec, err := rs.Create(model.ActionRecord{ActionID: action.ID, Value: 5.5, RecordedAt: at, TotalPoints: 55})
	if err != nil {
		t.Fatalf("create record: %v", err)
	}
	if rec.ID == 0 {
		t.Error("expected non-zero id")
	}
	if rec.ActionID != action.ID {
		t.Errorf("action_id = %d, want %d", rec.ActionID, action.ID)
	}
	if rec.Value != 5.5 || rec.TotalPoints != 55 {
		t.Errorf("value/points = %v/%v, want 5.5/55", rec.Value, rec.TotalPoints)
	}
	if !rec.RecordedAt.Equal(at) {
		t.Errorf("recorded_at = %v, want %v", rec.RecordedAt, at)
	}

	if err := rs.Delete(rec.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	got, err := rs.GetByID(rec.ID)
	if err != nil {
		t.Fatalf("get after delete: %v", err)
	}
	if got != nil {
		t.Error("expected nil after delete")
	}
}

func TestRecordRequiresExistingAction(t *testing.T) {
	_, rs := setupActionTestDB(t)

	_, err := rs.Create(model.ActionRecord{ActionID: 42, Value: 1, RecordedAt: time.Now(), TotalPoints: 1})
	if err == nil {
		t.Fatal("expected foreign key error for unknown action")
	}
}

func TestRecordListByAction(t *testing.T) {
	as, rs := setupActionTestDB(t)

	run, _ := as.Create(running())
	other := running()
	other.Name = "Reading"
	read, _ := as.Create(other)

	base := time.Date(2025, 3, 2, 8, 0, 0, 0, time.UTC)
	rs.Create(model.ActionRecord{ActionID: run.ID, Value: 1, RecordedAt: base, TotalPoints: 10})
	rs.Create(model.ActionRecord{ActionID: run.ID, Value: 2, RecordedAt: base.Add(time.Hour), TotalPoints: 20})
	rs.Create(model.ActionRecord{ActionID: read.ID, Value: 3, RecordedAt: base, TotalPoints: 30})

	records, err := rs.ListByAction(run.ID)
	if err != nil {
		t.Fatalf("list by action: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	if records[0].Value != 2 {
		t.Errorf("records[0].Value = %v, want most recent (2)", records[0].Value)
	}
}

func TestRecordListForPeriodInclusiveBounds(t *testing.T) {
	as, rs := setupActionTestDB(t)
	action, _ := as.Create(running())

	start := time.Date(2025, 3, 2, 0, 0, 0, 0, time.UTC)
	end := start.Add(24*time.Hour - time.Millisecond)

	times := []time.Time{
		start.Add(-time.Millisecond), // previous day
		start,
		start.Add(12 * time.Hour),
		end,
		end.Add(time.Millisecond), // next day
	}
	for i, at := range times {
		if _, err := rs.Create(model.ActionRecord{ActionID: action.ID, Value: float64(i), RecordedAt: at, TotalPoints: 1}); err != nil {
			t.Fatalf("create record %d: %v", i, err)
		}
	}

	records, err := rs.ListForPeriod(start, end)
	if err != nil {
		t.Fatalf("list for period: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("expected 3 records in period, got %d", len(records))
	}
	wantValues := []float64{3, 2, 1}
	for i, v := range wantValues {
		if records[i].Value != v {
			t.Errorf("records[%d].Value = %v, want %v", i, records[i].Value, v)
		}
	}
}

func TestRecordSummarize(t *testing.T) {
	as, rs := setupActionTestDB(t)

	run, _ := as.Create(running())
	other := running()
	other.Name = "Meditate"
	other.Type = model.ActionTypeBinary
	other.Unit = model.UnitNone
	med, _ := as.Create(other)

	day := time.Date(2025, 3, 2, 0, 0, 0, 0, time.UTC)
	rs.Create(model.ActionRecord{ActionID: run.ID, Value: 3, RecordedAt: day.Add(7 * time.Hour), TotalPoints: 30})
	rs.Create(model.ActionRecord{ActionID: run.ID, Value: 2, RecordedAt: day.Add(18 * time.Hour), TotalPoints: 20})
	rs.Create(model.ActionRecord{ActionID: med.ID, Value: 1, RecordedAt: day.Add(8 * time.Hour), TotalPoints: 15})
	rs.Create(model.ActionRecord{ActionID: med.ID, Value: 1, RecordedAt: day.Add(30 * time.Hour), TotalPoints: 15})

	summary, err := rs.Summarize(day, day.Add(24*time.Hour-time.Millisecond))
	if err != nil {
		t.Fatalf("summarize: %v", err)
	}
	if summary.TotalPoints != 65 {
		t.Errorf("total = %v, want 65", summary.TotalPoints)
	}
	if summary.RecordCount != 3 {
		t.Errorf("record_count = %d, want 3", summary.RecordCount)
	}
	if summary.PointsByAction[run.ID] != 50 {
		t.Errorf("points for run = %v, want 50", summary.PointsByAction[run.ID])
	}
	if summary.PointsByAction[med.ID] != 15 {
		t.Errorf("points for meditate = %v, want 15", summary.PointsByAction[med.ID])
	}
}

func TestRecordSummarizeEmpty(t *testing.T) {
	_, rs := setupActionTestDB(t)

	day := time.Date(2025, 3, 2, 0, 0, 0, 0, time.UTC)
	summary, err := rs.Summarize(day, day.Add(time.Hour))
	if err != nil {
		t.Fatalf("summarize: %v", err)
	}
	if summary.TotalPoints != 0 || summary.RecordCount != 0 {
		t.Errorf("summary = %+v, want empty", summary)
	}
	if summary.PointsByAction == nil {
		t.Error("points_by_action should be an empty map, not nil")
	}
}

func TestRecordCountSince(t *testing.T) {
	as, rs := setupActionTestDB(t)
	action, _ := as.Create(running())

	day := time.Date(2025, 3, 2, 0, 0, 0, 0, time.UTC)
	rs.Create(model.ActionRecord{ActionID: action.ID, Value: 1, RecordedAt: day.Add(-time.Hour), TotalPoints: 10})
	rs.Create(model.ActionRecord{ActionID: action.ID, Value: 1, RecordedAt: day.Add(time.Hour), TotalPoints: 10})

	n, err := rs.CountSince(day)
	if err != nil {
		t.Fatalf("count since: %v", err)
	}
	if n != 1 {
		t.Errorf("count = %d, want 1", n)
	}
}
