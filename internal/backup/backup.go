// Package backup snapshots the tracker database, encrypts it with a
// user passphrase and keeps the copies in S3-compatible storage.
package backup

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/dukerupert/majo/internal/model"
	"github.com/dukerupert/majo/internal/observability"
	"github.com/dukerupert/majo/internal/store"
	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

var (
	ErrNotConfigured   = errors.New("backup not configured: S3 credentials missing")
	ErrNoPassphrase    = errors.New("backup passphrase not set")
	ErrWrongPassphrase = errors.New("backup passphrase does not match")
	ErrWeakPassphrase  = errors.New("backup passphrase must be at least 8 characters")
	ErrNotFound        = errors.New("backup not found")
	ErrInProgress      = errors.New("backup already in progress")
)

const minPassphraseLen = 8

// s3Client is an interface for testability.
type s3Client interface {
	PutObject(ctx context.Context, input *s3.PutObjectInput, opts ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, input *s3.GetObjectInput, opts ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	DeleteObject(ctx context.Context, input *s3.DeleteObjectInput, opts ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

type S3Config struct {
	Endpoint  string
	Bucket    string
	Region    string
	AccessKey string
	SecretKey string
}

func (c S3Config) complete() bool {
	return c.Bucket != "" && c.AccessKey != "" && c.SecretKey != ""
}

type State string

const (
	StateIdle     State = "idle"
	StateRunning  State = "running"
	StateDisabled State = "disabled"
	StateError    State = "error"
)

type Status struct {
	State      State      `json:"state"`
	LastBackup *time.Time `json:"last_backup,omitempty"`
	Error      string     `json:"error,omitempty"`
	InProgress bool       `json:"in_progress"`
	KeyCached  bool       `json:"key_cached"`
}

// StatusCallback is called whenever the backup state changes.
type StatusCallback func(Status)

// cachedCreds lets scheduled backups run without asking for the
// passphrase. Memory only.
type cachedCreds struct {
	passphrase string
	salt       []byte
}

type Manager struct {
	mu       sync.RWMutex
	s3cfg    S3Config
	status   Status
	callback StatusCallback

	db        *sql.DB
	backups   *store.BackupStore
	settings  *store.SettingsStore
	client    s3Client
	creds     *cachedCreds
	lastRun   string
	warnedRun string // slot for which the missing key was last logged
	running   bool

	logger *slog.Logger
	now    func() time.Time

	cancel context.CancelFunc
	done   chan struct{}
}

func NewManager(s3cfg S3Config, db *sql.DB, bs *store.BackupStore, ss *store.SettingsStore, logger *slog.Logger, callback StatusCallback) *Manager {
	m := &Manager{
		s3cfg:    s3cfg,
		db:       db,
		backups:  bs,
		settings: ss,
		callback: callback,
		status:   Status{State: StateDisabled},
		logger:   logger.With("component", "backup"),
		now:      time.Now,
	}
	if s3cfg.complete() {
		m.client = newS3Client(s3cfg)
		m.status.State = StateIdle
	}
	return m
}

func newS3Client(cfg S3Config) *s3.Client {
	opts := s3.Options{
		Region:       cfg.Region,
		Credentials:  credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		UsePathStyle: true,
	}
	if cfg.Endpoint != "" {
		opts.BaseEndpoint = aws.String(cfg.Endpoint)
	}
	return s3.New(opts)
}

// UpdateS3Config swaps the storage target at runtime.
func (m *Manager) UpdateS3Config(s3cfg S3Config) {
	m.mu.Lock()
	m.s3cfg = s3cfg
	if s3cfg.complete() {
		m.client = newS3Client(s3cfg)
		m.status.State = StateIdle
	} else {
		m.client = nil
		m.status.State = StateDisabled
	}
	status := m.status
	m.mu.Unlock()
	if m.callback != nil {
		m.callback(status)
	}
}

// Storage returns the current storage target.
func (m *Manager) Storage() S3Config {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.s3cfg
}

// SetStorage validates, persists and applies a new storage target. An
// empty config disables backups.
func (m *Manager) SetStorage(cfg S3Config) error {
	if cfg.Region == "" && cfg.complete() {
		cfg.Region = "auto"
	}
	if err := SaveStorage(m.settings, cfg); err != nil {
		return err
	}
	m.UpdateS3Config(cfg)
	m.logger.Info("storage updated", "bucket", cfg.Bucket, "endpoint", cfg.Endpoint)
	return nil
}

// Start runs the schedule check once a minute until ctx is done or Stop
// is called. Ticks are no-ops while storage is unconfigured, so storage set
// later through SetStorage is picked up without a restart.
func (m *Manager) Start(ctx context.Context) {
	m.mu.Lock()
	if m.cancel != nil {
		m.mu.Unlock()
		return
	}
	ctx, m.cancel = context.WithCancel(ctx)
	m.done = make(chan struct{})
	m.mu.Unlock()

	go func() {
		defer close(m.done)
		ticker := time.NewTicker(time.Minute)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				m.checkSchedule(ctx)
			}
		}
	}()
}

// Stop ends the schedule loop and waits for it. Safe to call twice.
func (m *Manager) Stop() {
	m.mu.RLock()
	cancel := m.cancel
	done := m.done
	m.mu.RUnlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
}

func (m *Manager) Status() Status {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s := m.status
	s.KeyCached = m.creds != nil
	return s
}

func (m *Manager) setStatus(s Status) {
	m.mu.Lock()
	m.status = s
	s.KeyCached = m.creds != nil
	m.mu.Unlock()
	if m.callback != nil {
		m.callback(s)
	}
}

// SetPassphrase stores a fresh salt and key fingerprint for passphrase and
// caches it for scheduled runs. Older backups keep their own salt and still
// decrypt with the passphrase they were made with.
func (m *Manager) SetPassphrase(passphrase string) error {
	if len(passphrase) < minPassphraseLen {
		return ErrWeakPassphrase
	}
	salt, err := GenerateSalt()
	if err != nil {
		return err
	}
	if err := m.settings.Set("backup_passphrase_salt", hex.EncodeToString(salt)); err != nil {
		return fmt.Errorf("store salt: %w", err)
	}
	if err := m.settings.Set("backup_passphrase_check", KeyCheck(passphrase, salt)); err != nil {
		return fmt.Errorf("store key check: %w", err)
	}
	m.cache(passphrase, salt)
	m.logger.Info("passphrase updated")
	return nil
}

// CacheKey verifies passphrase against the stored fingerprint and keeps it
// in memory so scheduled backups can run.
func (m *Manager) CacheKey(passphrase string) error {
	salt, err := m.verify(passphrase)
	if err != nil {
		return err
	}
	m.cache(passphrase, salt)
	return nil
}

func (m *Manager) cache(passphrase string, salt []byte) {
	m.mu.Lock()
	m.creds = &cachedCreds{passphrase: passphrase, salt: salt}
	m.mu.Unlock()
}

func (m *Manager) HasCachedKey() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.creds != nil
}

// verify returns the stored salt when passphrase matches the fingerprint.
func (m *Manager) verify(passphrase string) ([]byte, error) {
	settings, err := m.settings.GetBackupSettings()
	if err != nil {
		return nil, fmt.Errorf("get backup settings: %w", err)
	}
	saltHex := settings["backup_passphrase_salt"]
	if saltHex == "" {
		return nil, ErrNoPassphrase
	}
	salt, err := hex.DecodeString(saltHex)
	if err != nil {
		return nil, fmt.Errorf("decode salt: %w", err)
	}
	if check := settings["backup_passphrase_check"]; check != "" && !CheckPassphrase(passphrase, salt, check) {
		return nil, ErrWrongPassphrase
	}
	return salt, nil
}

func (m *Manager) checkSchedule(ctx context.Context) {
	now := m.now().UTC()

	cfg, err := LoadSettings(m.settings)
	if err != nil {
		m.logger.Error("load settings", "error", err)
		return
	}
	if !cfg.Enabled || now.Hour() != cfg.ScheduleHour {
		return
	}

	slot := now.Format("2006-01-02T15")
	m.mu.Lock()
	if m.lastRun == slot || m.client == nil {
		m.mu.Unlock()
		return
	}
	creds := m.creds
	if creds == nil {
		warn := m.warnedRun != slot
		m.warnedRun = slot
		m.mu.Unlock()
		if warn {
			m.logger.Warn("scheduled backup waiting: passphrase not cached")
		}
		return
	}
	m.lastRun = slot
	m.mu.Unlock()

	if _, err := m.runBackup(ctx, creds.passphrase, creds.salt); err != nil {
		m.logger.Error("scheduled backup failed", "error", err)
	}
	if err := m.Cleanup(ctx, cfg.RetentionDays); err != nil {
		m.logger.Error("cleanup failed", "error", err)
	}
}

// RunNow runs a backup immediately. The passphrase must match the stored one.
func (m *Manager) RunNow(ctx context.Context, passphrase string) (*model.Backup, error) {
	m.mu.RLock()
	client := m.client
	m.mu.RUnlock()
	if client == nil {
		return nil, ErrNotConfigured
	}

	salt, err := m.verify(passphrase)
	if err != nil {
		return nil, err
	}
	id, err := m.runBackup(ctx, passphrase, salt)
	if err != nil {
		return nil, err
	}
	return m.backups.GetByID(id)
}

func (m *Manager) runBackup(ctx context.Context, passphrase string, salt []byte) (int64, error) {
	m.mu.Lock()
	client := m.client
	bucket := m.s3cfg.Bucket
	if client == nil {
		m.mu.Unlock()
		return 0, ErrNotConfigured
	}
	if m.running {
		m.mu.Unlock()
		return 0, ErrInProgress
	}
	m.running = true
	m.mu.Unlock()
	defer func() {
		m.mu.Lock()
		m.running = false
		m.mu.Unlock()
	}()

	m.setStatus(Status{State: StateRunning, InProgress: true})

	started := m.now().UTC()
	filename := fmt.Sprintf("majo-%s-%s.db.enc", started.Format("20060102T150405Z"), uuid.NewString()[:8])
	objectKey := "backups/" + filename

	record, err := m.backups.Create(filename, objectKey)
	if err != nil {
		m.setStatus(Status{State: StateError, Error: err.Error()})
		return 0, fmt.Errorf("create backup record: %w", err)
	}
	log := m.logger.With("backup_id", record.ID)

	fail := func(step string, err error) (int64, error) {
		m.backups.UpdateStatus(record.ID, model.BackupStatusFailed, err.Error())
		m.setStatus(Status{State: StateError, Error: err.Error()})
		observability.RecordBackup(model.BackupStatusFailed)
		log.Error("backup failed", "step", step, "error", err)
		return 0, fmt.Errorf("%s: %w", step, err)
	}

	if err := m.backups.UpdateStatus(record.ID, model.BackupStatusUploading, ""); err != nil {
		return fail("mark uploading", err)
	}

	snapshot, err := m.snapshot(ctx, record.ID)
	if err != nil {
		return fail("snapshot", err)
	}

	sealed, err := Encrypt(snapshot, passphrase, salt)
	if err != nil {
		return fail("encrypt", err)
	}

	_, err = client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(bucket),
		Key:           aws.String(objectKey),
		Body:          bytes.NewReader(sealed),
		ContentLength: aws.Int64(int64(len(sealed))),
	})
	if err != nil {
		return fail("upload", err)
	}

	if err := m.backups.UpdateCompleted(record.ID, int64(len(sealed))); err != nil {
		return fail("mark completed", err)
	}

	done := m.now().UTC()
	m.setStatus(Status{State: StateIdle, LastBackup: &done})
	observability.RecordBackup(model.BackupStatusCompleted)
	log.Info("backup completed", "object_key", objectKey, "size_bytes", len(sealed))
	return record.ID, nil
}

// snapshot writes a consistent copy of the live database with VACUUM INTO
// and returns its bytes.
func (m *Manager) snapshot(ctx context.Context, id int64) ([]byte, error) {
	dir, err := os.MkdirTemp("", "majo-backup-")
	if err != nil {
		return nil, fmt.Errorf("temp dir: %w", err)
	}
	defer os.RemoveAll(dir)

	path := filepath.Join(dir, fmt.Sprintf("snapshot-%d.db", id))
	if _, err := m.db.ExecContext(ctx, `VACUUM INTO ?`, path); err != nil {
		return nil, fmt.Errorf("vacuum into: %w", err)
	}
	return os.ReadFile(path)
}

// Download streams a completed encrypted backup from storage.
func (m *Manager) Download(ctx context.Context, backupID int64) (io.ReadCloser, *model.Backup, error) {
	m.mu.RLock()
	client := m.client
	bucket := m.s3cfg.Bucket
	m.mu.RUnlock()
	if client == nil {
		return nil, nil, ErrNotConfigured
	}

	record, err := m.backups.GetByID(backupID)
	if err != nil {
		return nil, nil, fmt.Errorf("get backup: %w", err)
	}
	if !record.Downloadable() {
		return nil, nil, ErrNotFound
	}

	result, err := client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(record.ObjectKey),
	})
	if err != nil {
		return nil, nil, fmt.Errorf("download from s3: %w", err)
	}
	return result.Body, record, nil
}

// Restore downloads and decrypts a backup into dstPath and checks that the
// result is a healthy SQLite database. The live database is not touched.
func (m *Manager) Restore(ctx context.Context, backupID int64, passphrase, dstPath string) error {
	body, _, err := m.Download(ctx, backupID)
	if err != nil {
		return err
	}
	defer body.Close()

	sealed, err := io.ReadAll(body)
	if err != nil {
		return fmt.Errorf("read backup: %w", err)
	}
	plain, err := Decrypt(sealed, passphrase)
	if err != nil {
		return err
	}

	out, err := os.OpenFile(dstPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return fmt.Errorf("create %s: %w", dstPath, err)
	}
	if _, err := out.Write(plain); err != nil {
		out.Close()
		return fmt.Errorf("write restored db: %w", err)
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("close restored db: %w", err)
	}

	if err := integrityCheck(dstPath); err != nil {
		os.Remove(dstPath)
		return err
	}
	m.logger.Info("backup restored", "backup_id", backupID, "path", dstPath)
	return nil
}

func integrityCheck(path string) error {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return fmt.Errorf("open restored db: %w", err)
	}
	defer db.Close()

	var result string
	if err := db.QueryRow("PRAGMA integrity_check").Scan(&result); err != nil {
		return fmt.Errorf("integrity check: %w", err)
	}
	if result != "ok" {
		return fmt.Errorf("integrity check failed: %s", result)
	}
	return nil
}

// Cleanup deletes backups older than the retention period, both the
// history rows and the stored objects.
func (m *Manager) Cleanup(ctx context.Context, retentionDays int) error {
	m.mu.RLock()
	client := m.client
	bucket := m.s3cfg.Bucket
	m.mu.RUnlock()
	if client == nil {
		return nil
	}
	if retentionDays <= 0 {
		retentionDays = DefaultRetentionDays
	}

	before := m.now().UTC().AddDate(0, 0, -retentionDays)
	keys, err := m.backups.DeleteOlderThan(before)
	if err != nil {
		return fmt.Errorf("delete old backups: %w", err)
	}

	for _, key := range keys {
		if _, err := client.DeleteObject(ctx, &s3.DeleteObjectInput{
			Bucket: aws.String(bucket),
			Key:    aws.String(key),
		}); err != nil {
			m.logger.Warn("delete object failed", "object_key", key, "error", err)
		}
	}
	if len(keys) > 0 {
		m.logger.Info("old backups removed", "count", len(keys))
	}
	return nil
}
