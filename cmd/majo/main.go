package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/dukerupert/majo/internal/backup"
	"github.com/dukerupert/majo/internal/config"
	"github.com/dukerupert/majo/internal/database"
	"github.com/dukerupert/majo/internal/logging"
	"github.com/dukerupert/majo/internal/push"
	"github.com/dukerupert/majo/internal/server"
)

const usage = `usage:
  majo                          run the server
  majo restore <backup-id> <dst> restore a backup into a new file (passphrase from MAJO_BACKUP_PASSPHRASE)
  majo vapid-keys               print a new VAPID key pair`

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}
	logger := logging.Setup(cfg.LogLevel, cfg.LogFormat)

	args := os.Args[1:]
	if len(args) > 0 {
		switch args[0] {
		case "restore":
			if err := restore(cfg, logger, args[1:]); err != nil {
				slog.Error("restore failed", "error", err)
				os.Exit(1)
			}
			return
		case "vapid-keys":
			pub, priv, err := push.GenerateVAPIDKeys()
			if err != nil {
				slog.Error("generate VAPID keys", "error", err)
				os.Exit(1)
			}
			fmt.Printf("MAJO_VAPID_PUBLIC_KEY=%s\nMAJO_VAPID_PRIVATE_KEY=%s\n", pub, priv)
			return
		case "serve":
		default:
			fmt.Fprintln(os.Stderr, usage)
			os.Exit(2)
		}
	}

	db, err := database.Open(cfg.DBPath)
	if err != nil {
		slog.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	serve(cfg, db, logger)
}

func serve(cfg *config.Config, db *sql.DB, logger *slog.Logger) {
	srv, err := server.New(cfg, db, logger)
	if err != nil {
		slog.Error("failed to build server", "error", err)
		os.Exit(1)
	}

	bgCtx, bgCancel := context.WithCancel(context.Background())
	defer bgCancel()

	srv.BackupManager().Start(bgCtx)
	defer srv.BackupManager().Stop()
	if srv.BackupManager().Status().State == backup.StateDisabled {
		slog.Info("backups disabled: S3 storage not configured")
	}
	if sched := srv.PushScheduler(); sched != nil {
		sched.Start(bgCtx)
		defer sched.Stop()
	} else {
		slog.Info("push reminders disabled: VAPID keys not configured")
	}
	go srv.RateLimiter().RunCleanup(bgCtx, time.Hour)

	httpServer := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           srv.Router(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      time.Minute,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		slog.Info("majo starting", "addr", httpServer.Addr, "db", cfg.DBPath, "timezone", cfg.Location().String())
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down")
	bgCancel()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		slog.Error("shutdown error", "error", err)
	}
}

func restore(cfg *config.Config, logger *slog.Logger, args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("restore needs <backup-id> <dst>\n%s", usage)
	}
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid backup id %q", args[0])
	}
	passphrase := os.Getenv("MAJO_BACKUP_PASSPHRASE")
	if passphrase == "" {
		return fmt.Errorf("MAJO_BACKUP_PASSPHRASE is not set")
	}

	db, err := database.Open(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	srv, err := server.New(cfg, db, logger)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()
	return srv.BackupManager().Restore(ctx, id, passphrase, args[1])
}
