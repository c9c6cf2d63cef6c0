// Package backup periodically snapshots the SQLite database into object
// storage and prunes old snapshots.
package backup

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Muragesh-24/ENGIGROW/internal/observability"
	"github.com/Muragesh-24/ENGIGROW/internal/storage"
)

const keyTimeLayout = "20060102T150405Z"

// Worker coordinates scheduled snapshots and their upload lifecycle.
type Worker interface {
	Start(ctx context.Context) error
	Shutdown()
	RunOnce(ctx context.Context) (string, error)
}

// Snapshotter writes a consistent copy of the live database to dest.
type Snapshotter interface {
	Snapshot(ctx context.Context, dest string) error
}

type Config struct {
	Interval  time.Duration
	Retain    int
	Bucket    string
	KeyPrefix string
	TempDir   string
	Logger    *logrus.Logger
	Now       func() time.Time
}

type worker struct {
	cfg      Config
	snapshot Snapshotter
	storage  storage.Service

	mu     sync.Mutex // one run at a time
	wg     sync.WaitGroup
	cancel context.CancelFunc
}

func NewWorker(cfg Config, snapshot Snapshotter, store storage.Service) Worker {
	if cfg.Retain <= 0 {
		cfg.Retain = 7
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	cfg.KeyPrefix = strings.Trim(cfg.KeyPrefix, "/")
	return &worker{
		cfg:      cfg,
		snapshot: snapshot,
		storage:  store,
	}
}

func (w *worker) Start(ctx context.Context) error {
	if w.cfg.Interval <= 0 {
		w.cfg.Logger.Info("snapshot backups disabled")
		return nil
	}
	if w.storage == nil || w.cfg.Bucket == "" {
		return errors.New("snapshot backups need a storage bucket")
	}

	runCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		ticker := time.NewTicker(w.cfg.Interval)
		defer ticker.Stop()
		for {
			select {
			case <-runCtx.Done():
				return
			case <-ticker.C:
				if _, err := w.RunOnce(runCtx); err != nil && !errors.Is(err, context.Canceled) {
					w.cfg.Logger.WithError(err).Error("snapshot backup failed")
				}
			}
		}
	}()

	w.cfg.Logger.Infof("snapshot backups started, every %s to s3://%s/%s", w.cfg.Interval, w.cfg.Bucket, w.snapshotPrefix())
	return nil
}

func (w *worker) Shutdown() {
	if w.cancel != nil {
		w.cancel()
	}
	w.wg.Wait()
	w.cfg.Logger.Info("snapshot backups stopped")
}

// RunOnce takes one snapshot, uploads it and prunes beyond the retention count.
// It returns the uploaded object location.
func (w *worker) RunOnce(ctx context.Context) (location string, err error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	start := time.Now()
	defer func() {
		result := "success"
		if err != nil {
			result = "failure"
		}
		observability.BackupRuns.WithLabelValues(result).Inc()
		observability.BackupDuration.Observe(time.Since(start).Seconds())
	}()

	dir, err := os.MkdirTemp(w.cfg.TempDir, "engigrow-snapshot-*")
	if err != nil {
		return "", fmt.Errorf("create snapshot dir: %w", err)
	}
	defer os.RemoveAll(dir)

	local := filepath.Join(dir, "engigrow.db")
	if err := w.snapshot.Snapshot(ctx, local); err != nil {
		return "", fmt.Errorf("snapshot database: %w", err)
	}

	key := path.Join(w.snapshotPrefix(), fmt.Sprintf("engigrow-%s.db", w.cfg.Now().UTC().Format(keyTimeLayout)))
	logger := w.cfg.Logger.WithField("key", key)
	progressLogger := newUploadProgressLogger(logger)

	location, err = w.storage.UploadFile(ctx, local, storage.UploadOptions{
		Bucket:           w.cfg.Bucket,
		Key:              key,
		ProgressCallback: progressLogger,
	})
	if err != nil {
		return "", fmt.Errorf("upload snapshot: %w", err)
	}
	logger.Infof("snapshot uploaded to %s", location)

	if err := w.prune(ctx); err != nil {
		// the upload itself succeeded
		logger.WithError(err).Warn("prune old snapshots")
	}
	return location, nil
}

func (w *worker) prune(ctx context.Context) error {
	prefix := w.snapshotPrefix() + "/"
	objects, err := w.storage.ListObjects(ctx, w.cfg.Bucket, prefix)
	if err != nil {
		return err
	}

	var keys []string
	for _, obj := range objects {
		if strings.HasSuffix(obj.Key, ".db") {
			keys = append(keys, obj.Key)
		}
	}
	if len(keys) <= w.cfg.Retain {
		return nil
	}

	// timestamped names sort chronologically
	slices.Sort(keys)
	stale := keys[:len(keys)-w.cfg.Retain]
	if err := w.storage.DeleteObjects(ctx, w.cfg.Bucket, stale); err != nil {
		return err
	}
	w.cfg.Logger.Infof("pruned %d old snapshots", len(stale))
	return nil
}

func (w *worker) snapshotPrefix() string {
	if w.cfg.KeyPrefix == "" {
		return "snapshots"
	}
	return w.cfg.KeyPrefix + "/snapshots"
}

func newUploadProgressLogger(logger *logrus.Entry) func(done, total int64) {
	var lastLog time.Time
	return func(done, total int64) {
		now := time.Now()
		if now.Sub(lastLog) < 500*time.Millisecond && done != total {
			return
		}
		lastLog = now
		if total == 0 {
			logger.Debugf("upload progress: %s uploaded", formatBytes(done))
			return
		}
		percent := float64(done) / float64(total) * 100
		logger.Debugf("upload progress: %.1f%% (%s/%s)", percent, formatBytes(done), formatBytes(total))
	}
}

func formatBytes(b int64) string {
	const unit = 1024
	if b < unit {
		return fmt.Sprintf("%dB", b)
	}
	div, exp := int64(unit), 0
	for n := b / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f%ciB", float64(b)/float64(div), "KMGTPE"[exp])
}
