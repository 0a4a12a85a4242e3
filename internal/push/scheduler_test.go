package push

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/dukerupert/majo/internal/database"
	"github.com/dukerupert/majo/internal/model"
	"github.com/dukerupert/majo/internal/store"
)

type fakeSender struct {
	mu      sync.Mutex
	sent    []string
	results map[string]error
}

func (f *fakeSender) Send(_ context.Context, sub *model.PushSubscription, _ Payload) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, sub.Endpoint)
	return f.results[sub.Endpoint]
}

type fakeCounter struct {
	n     int
	since time.Time
}

func (f *fakeCounter) CountSince(t time.Time) (int, error) {
	f.since = t
	return f.n, nil
}

var msk = time.FixedZone("MSK", 3*60*60)

type schedEnv struct {
	s        *Scheduler
	sender   *fakeSender
	counter  *fakeCounter
	push     *store.PushStore
	settings *store.SettingsStore
}

func setupScheduler(t *testing.T, now time.Time) *schedEnv {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	env := &schedEnv{
		sender:   &fakeSender{results: map[string]error{}},
		counter:  &fakeCounter{},
		push:     store.NewPushStore(db),
		settings: store.NewSettingsStore(db),
	}
	env.s = NewScheduler(nil, env.push, env.settings, env.counter, msk, slog.Default())
	env.s.service = env.sender
	env.s.now = func() time.Time { return now }
	return env
}

func TestDailyReminderSentOnce(t *testing.T) {
	env := setupScheduler(t, time.Date(2026, 3, 11, 20, 1, 0, 0, msk))
	ctx := context.Background()

	env.push.CreateSubscription("https://push.example.com/a", "k", "a", "phone")
	env.push.CreateSubscription("https://push.example.com/b", "k", "a", "laptop")
	SaveReminderSettings(env.settings, ReminderSettings{Enabled: true, Hour: 20})

	env.s.checkDailyReminder(ctx)
	env.s.checkDailyReminder(ctx)

	if len(env.sender.sent) != 2 {
		t.Errorf("sent = %v, want one per device", env.sender.sent)
	}
	if want := time.Date(2026, 3, 11, 0, 0, 0, 0, msk); !env.counter.since.Equal(want) {
		t.Errorf("counted since %v, want %v", env.counter.since, want)
	}
	if sent, _ := env.push.WasSent(model.NotifTypeDailyReminder, "2026-03-11"); !sent {
		t.Error("expected sent log entry")
	}
}

func TestDailyReminderSkippedWhenLogged(t *testing.T) {
	env := setupScheduler(t, time.Date(2026, 3, 11, 21, 0, 0, 0, msk))
	env.push.CreateSubscription("https://push.example.com/a", "k", "a", "")
	SaveReminderSettings(env.settings, ReminderSettings{Enabled: true, Hour: 20})
	env.counter.n = 3

	env.s.checkDailyReminder(context.Background())
	if len(env.sender.sent) != 0 {
		t.Errorf("sent = %v, want none", env.sender.sent)
	}
}

func TestDailyReminderRespectsHourAndToggle(t *testing.T) {
	env := setupScheduler(t, time.Date(2026, 3, 11, 19, 59, 0, 0, msk))
	env.push.CreateSubscription("https://push.example.com/a", "k", "a", "")

	// Disabled by default.
	env.s.now = func() time.Time { return time.Date(2026, 3, 11, 22, 0, 0, 0, msk) }
	env.s.checkDailyReminder(context.Background())
	if len(env.sender.sent) != 0 {
		t.Fatal("reminder sent while disabled")
	}

	SaveReminderSettings(env.settings, ReminderSettings{Enabled: true, Hour: 20})
	env.s.now = func() time.Time { return time.Date(2026, 3, 11, 19, 59, 0, 0, msk) }
	env.s.checkDailyReminder(context.Background())
	if len(env.sender.sent) != 0 {
		t.Error("reminder sent before its hour")
	}
}

func TestBroadcastDropsExpired(t *testing.T) {
	env := setupScheduler(t, time.Now())
	env.push.CreateSubscription("https://push.example.com/ok", "k", "a", "")
	env.push.CreateSubscription("https://push.example.com/gone", "k", "a", "")
	env.push.CreateSubscription("https://push.example.com/flaky", "k", "a", "")
	env.sender.results["https://push.example.com/gone"] = ErrExpired
	env.sender.results["https://push.example.com/flaky"] = errors.New("timeout")

	if n := env.s.Broadcast(context.Background(), Payload{Title: "x"}); n != 1 {
		t.Errorf("delivered = %d, want 1", n)
	}
	subs, _ := env.push.List()
	if len(subs) != 2 {
		t.Errorf("subscriptions left = %d, want 2", len(subs))
	}
	for _, s := range subs {
		if s.Endpoint == "https://push.example.com/gone" {
			t.Error("expired subscription not removed")
		}
	}
}

func TestReminderSettings(t *testing.T) {
	env := setupScheduler(t, time.Now())

	s, err := LoadReminderSettings(env.settings)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if s.Enabled || s.Hour != 20 {
		t.Errorf("defaults = %+v", s)
	}
	if err := SaveReminderSettings(env.settings, ReminderSettings{Hour: 24}); !errors.Is(err, ErrInvalidSettings) {
		t.Errorf("err = %v, want ErrInvalidSettings", err)
	}
	SaveReminderSettings(env.settings, ReminderSettings{Enabled: true, Hour: 7})
	s, _ = LoadReminderSettings(env.settings)
	if !s.Enabled || s.Hour != 7 {
		t.Errorf("saved = %+v", s)
	}
}

func TestSchedulerStopSafety(t *testing.T) {
	env := setupScheduler(t, time.Now())
	env.s.Start(context.Background())
	env.s.Stop()
	env.s.Stop()
}
