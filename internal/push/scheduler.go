package push

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/dukerupert/majo/internal/model"
	"github.com/dukerupert/majo/internal/observability"
	"github.com/dukerupert/majo/internal/store"
)

const (
	DefaultReminderHour = 20
	sentLogRetention    = 30 * 24 * time.Hour
)

var ErrInvalidSettings = errors.New("invalid reminder settings")

type sender interface {
	Send(ctx context.Context, sub *model.PushSubscription, payload Payload) error
}

// RecordCounter reports how many records were logged since a moment.
type RecordCounter interface {
	CountSince(t time.Time) (int, error)
}

// ReminderSettings controls the daily "nothing logged" reminder.
type ReminderSettings struct {
	Enabled bool `json:"enabled"`
	Hour    int  `json:"hour"`
}

func LoadReminderSettings(ss *store.SettingsStore) (ReminderSettings, error) {
	raw, err := ss.GetReminderSettings()
	if err != nil {
		return ReminderSettings{}, fmt.Errorf("get reminder settings: %w", err)
	}
	s := ReminderSettings{Enabled: raw["reminder_enabled"] == "true", Hour: DefaultReminderHour}
	if h, err := strconv.Atoi(raw["reminder_hour"]); err == nil && h >= 0 && h <= 23 {
		s.Hour = h
	}
	return s, nil
}

func SaveReminderSettings(ss *store.SettingsStore, s ReminderSettings) error {
	if s.Hour < 0 || s.Hour > 23 {
		return fmt.Errorf("%w: hour must be between 0 and 23", ErrInvalidSettings)
	}
	if err := ss.Set("reminder_enabled", strconv.FormatBool(s.Enabled)); err != nil {
		return fmt.Errorf("set reminder_enabled: %w", err)
	}
	if err := ss.Set("reminder_hour", strconv.Itoa(s.Hour)); err != nil {
		return fmt.Errorf("set reminder_hour: %w", err)
	}
	return nil
}

// Scheduler sends the daily reminder once the configured local hour is
// reached and nothing has been logged that day.
type Scheduler struct {
	mu       sync.RWMutex
	service  sender
	push     *store.PushStore
	settings *store.SettingsStore
	records  RecordCounter
	loc      *time.Location
	now      func() time.Time
	interval time.Duration
	logger   *slog.Logger
	cancel   context.CancelFunc
	done     chan struct{}
}

func NewScheduler(svc *Service, pushStore *store.PushStore, settings *store.SettingsStore, records RecordCounter, loc *time.Location, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		service:  svc,
		push:     pushStore,
		settings: settings,
		records:  records,
		loc:      loc,
		now:      time.Now,
		interval: time.Minute,
		logger:   logger.With("component", "push"),
	}
}

func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	if s.cancel != nil {
		s.mu.Unlock()
		return
	}
	ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})
	s.mu.Unlock()

	go func() {
		defer close(s.done)
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.checkDailyReminder(ctx)
			}
		}
	}()
}

func (s *Scheduler) Stop() {
	s.mu.RLock()
	cancel := s.cancel
	done := s.done
	s.mu.RUnlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
}

func (s *Scheduler) checkDailyReminder(ctx context.Context) {
	now := s.now().In(s.loc)

	cfg, err := LoadReminderSettings(s.settings)
	if err != nil {
		s.logger.Error("load reminder settings", "error", err)
		return
	}
	if !cfg.Enabled || now.Hour() < cfg.Hour {
		return
	}

	day := now.Format("2006-01-02")
	sent, err := s.push.WasSent(model.NotifTypeDailyReminder, day)
	if err != nil {
		s.logger.Error("check sent log", "error", err)
		return
	}
	if sent {
		return
	}

	startOfDay := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, s.loc)
	logged, err := s.records.CountSince(startOfDay)
	if err != nil {
		s.logger.Error("count today's records", "error", err)
		return
	}

	if logged == 0 {
		n := s.Broadcast(ctx, Payload{
			Title: "MaJo",
			Body:  "Nothing logged today",
			URL:   "/",
			Tag:   "daily-reminder",
		})
		s.logger.Info("daily reminder sent", "devices", n)
	}

	if err := s.push.RecordSent(model.NotifTypeDailyReminder, day); err != nil {
		s.logger.Error("record sent", "error", err)
	}
	if _, err := s.push.CleanupSent(s.now().Add(-sentLogRetention)); err != nil {
		s.logger.Warn("cleanup sent log", "error", err)
	}
}

// Broadcast sends payload to every subscription, drops expired ones and
// returns how many deliveries succeeded.
func (s *Scheduler) Broadcast(ctx context.Context, payload Payload) int {
	subs, err := s.push.List()
	if err != nil {
		s.logger.Error("list subscriptions", "error", err)
		return 0
	}

	delivered := 0
	for i := range subs {
		sub := &subs[i]
		err := s.service.Send(ctx, sub, payload)
		switch {
		case err == nil:
			delivered++
			observability.RecordPush("sent")
		case errors.Is(err, ErrExpired):
			observability.RecordPush("expired")
			if err := s.push.DeleteSubscription(sub.ID); err != nil {
				s.logger.Warn("delete expired subscription", "subscription_id", sub.ID, "error", err)
			}
		default:
			observability.RecordPush("failed")
			s.logger.Warn("send failed", "subscription_id", sub.ID, "error", err)
		}
	}
	return delivered
}
