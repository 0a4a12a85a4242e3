package server

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dukerupert/majo/internal/backup"
	"github.com/dukerupert/majo/internal/config"
	"github.com/dukerupert/majo/internal/handler"
	"github.com/dukerupert/majo/internal/middleware"
	"github.com/dukerupert/majo/internal/observability"
	"github.com/dukerupert/majo/internal/push"
	"github.com/dukerupert/majo/internal/store"
	"github.com/dukerupert/majo/internal/tracker"
	ws "github.com/dukerupert/majo/internal/websocket"
)

const (
	sensitiveLimit  = 10
	sensitiveWindow = time.Minute
)

type Server struct {
	db            *sql.DB
	hub           *ws.Hub
	tracker       *tracker.Tracker
	actionH       *handler.ActionHandler
	recordH       *handler.RecordHandler
	viewH         *handler.ViewHandler
	settingsH     *handler.SettingsHandler
	backupH       *handler.BackupHandler
	pushH         *handler.PushHandler
	rateLimiter   *middleware.RateLimiter
	proxies       *middleware.TrustedProxies
	backupManager *backup.Manager
	pushScheduler *push.Scheduler
	wsOrigins     []string
	logger        *slog.Logger
}

func New(cfg *config.Config, db *sql.DB, logger *slog.Logger) (*Server, error) {
	hub := ws.NewHub(logger)

	actionStore := store.NewActionStore(db)
	recordStore := store.NewRecordStore(db)
	settingsStore := store.NewSettingsStore(db)
	backupStore := store.NewBackupStore(db)
	pushStore := store.NewPushStore(db)

	t := tracker.New(actionStore, recordStore, settingsStore,
		tracker.WithNotifier(hub),
		tracker.WithObserver(observability.NewRecorder()),
		tracker.WithLogger(logger),
		tracker.WithLocation(cfg.Location()),
	)

	// storage saved through the settings API replaces the configured target
	s3cfg, err := backup.LoadStorage(settingsStore, backup.S3Config{
		Endpoint:  cfg.S3.Endpoint,
		Bucket:    cfg.S3.Bucket,
		Region:    cfg.S3.Region,
		AccessKey: cfg.S3.AccessKey,
		SecretKey: cfg.S3.SecretKey,
	})
	if err != nil {
		return nil, fmt.Errorf("load backup storage: %w", err)
	}
	backupMgr := backup.NewManager(s3cfg, db, backupStore, settingsStore, logger, func(s backup.Status) {
		hub.Broadcast(ws.NewMessage("backup", string(s.State), 0))
	})

	var pushSvc *push.Service
	var pushSched *push.Scheduler
	if cfg.PushConfigured() {
		pushSvc = push.NewService(cfg.VAPID.PublicKey, cfg.VAPID.PrivateKey, cfg.VAPID.Subscriber)
		pushSched = push.NewScheduler(pushSvc, pushStore, settingsStore, recordStore, cfg.Location(), logger)
	}
	// A nil *push.Scheduler must not become a non-nil interface.
	var broadcaster interface {
		Broadcast(ctx context.Context, payload push.Payload) int
	}
	if pushSched != nil {
		broadcaster = pushSched
	}

	return &Server{
		db:            db,
		hub:           hub,
		tracker:       t,
		actionH:       handler.NewActionHandler(t, logger.With("component", "action")),
		recordH:       handler.NewRecordHandler(t, logger.With("component", "record")),
		viewH:         handler.NewViewHandler(t, logger.With("component", "view")),
		settingsH:     handler.NewSettingsHandler(t, settingsStore, backupMgr, hub, logger.With("component", "settings")),
		backupH:       handler.NewBackupHandler(backupMgr, backupStore, logger.With("component", "backup_handler")),
		pushH:         handler.NewPushHandler(pushStore, pushSvc, broadcaster, logger.With("component", "push_handler")),
		rateLimiter:   middleware.NewRateLimiter(),
		proxies:       cfg.Proxies(),
		backupManager: backupMgr,
		pushScheduler: pushSched,
		wsOrigins:     cfg.WSOrigins,
		logger:        logger,
	}, nil
}

// Tracker returns the tracker the HTTP layer drives.
func (s *Server) Tracker() *tracker.Tracker {
	return s.tracker
}

// RateLimiter returns the rate limiter for cleanup tasks.
func (s *Server) RateLimiter() *middleware.RateLimiter {
	return s.rateLimiter
}

// BackupManager returns the backup manager.
func (s *Server) BackupManager() *backup.Manager {
	return s.backupManager
}

// PushScheduler returns the reminder scheduler, nil when push is not configured.
func (s *Server) PushScheduler() *push.Scheduler {
	return s.pushScheduler
}

func (s *Server) Router() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", s.healthHandler)
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("GET /ws", ws.Handler(s.hub, s.wsOrigins))

	mux.HandleFunc("GET /api/actions", s.actionH.List)
	mux.HandleFunc("POST /api/actions", s.actionH.Create)
	mux.HandleFunc("GET /api/actions/new", s.actionH.Defaults)
	mux.HandleFunc("GET /api/actions/{id}", s.actionH.Get)
	mux.HandleFunc("PUT /api/actions/{id}", s.actionH.Update)
	mux.HandleFunc("DELETE /api/actions/{id}", s.actionH.Delete)
	mux.HandleFunc("POST /api/actions/{id}/active", s.actionH.SetActive)
	mux.HandleFunc("GET /api/actions/{id}/records", s.actionH.Records)
	mux.HandleFunc("GET /api/actions/{id}/preview", s.actionH.Preview)
	mux.HandleFunc("GET /api/unit-types", s.actionH.UnitTypes)

	mux.HandleFunc("POST /api/records", s.recordH.Create)
	mux.HandleFunc("DELETE /api/records/{id}", s.recordH.Delete)

	mux.HandleFunc("GET /api/days/{date}", s.viewH.Day)
	mux.HandleFunc("GET /api/summary", s.viewH.Summary)

	mux.HandleFunc("GET /api/settings", s.settingsH.Get)
	mux.HandleFunc("PUT /api/settings", s.settingsH.Update)
	mux.HandleFunc("GET /api/settings/backup", s.settingsH.GetBackup)
	mux.HandleFunc("PUT /api/settings/backup", s.settingsH.UpdateBackup)
	mux.HandleFunc("GET /api/settings/backup/storage", s.settingsH.GetStorage)
	mux.HandleFunc("PUT /api/settings/backup/storage", s.rateLimited(s.settingsH.UpdateStorage))
	mux.HandleFunc("PUT /api/settings/backup/passphrase", s.rateLimited(s.settingsH.SetPassphrase))
	mux.HandleFunc("POST /api/settings/backup/unlock", s.rateLimited(s.settingsH.Unlock))
	mux.HandleFunc("GET /api/settings/reminder", s.settingsH.GetReminder)
	mux.HandleFunc("PUT /api/settings/reminder", s.settingsH.UpdateReminder)

	mux.HandleFunc("POST /api/backups", s.rateLimited(s.backupH.Run))
	mux.HandleFunc("GET /api/backups", s.backupH.List)
	mux.HandleFunc("GET /api/backups/status", s.backupH.Status)
	mux.HandleFunc("GET /api/backups/{id}/download", s.backupH.Download)

	mux.HandleFunc("POST /api/push/subscribe", s.pushH.Subscribe)
	mux.HandleFunc("GET /api/push/subscriptions", s.pushH.ListSubscriptions)
	mux.HandleFunc("DELETE /api/push/subscriptions/{id}", s.pushH.Unsubscribe)
	mux.HandleFunc("GET /api/push/vapid-key", s.pushH.VAPIDKey)
	mux.HandleFunc("POST /api/push/test", s.rateLimited(s.pushH.Test))

	httpLogger := s.logger.With("component", "http")
	var h http.Handler = mux
	h = middleware.RequestLogger(httpLogger)(h)
	h = middleware.RequestID(h)
	h = middleware.Recover(httpLogger)(h)
	return h
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	status := "ok"
	code := http.StatusOK
	if err := s.db.PingContext(r.Context()); err != nil {
		status = "database unavailable"
		code = http.StatusServiceUnavailable
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"status": status})
}

func (s *Server) rateLimited(h http.HandlerFunc) http.HandlerFunc {
	rl := middleware.RateLimit(s.rateLimiter, s.proxies.ByIP, sensitiveLimit, sensitiveWindow)
	return rl(h).ServeHTTP
}
