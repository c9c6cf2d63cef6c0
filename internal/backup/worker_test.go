package backup

import (
	"context"
	"errors"
	"io"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Muragesh-24/ENGIGROW/internal/storage"
)

type fileSnapshotter struct {
	err error
}

func (s fileSnapshotter) Snapshot(_ context.Context, dest string) error {
	if s.err != nil {
		return s.err
	}
	return os.WriteFile(dest, []byte("SQLite format 3\x00"), 0o600)
}

// memStorage keeps uploaded objects in memory.
type memStorage struct {
	mu        sync.Mutex
	objects   map[string][]byte
	uploadErr error
	deleted   []string
}

func newMemStorage() *memStorage {
	return &memStorage{objects: make(map[string][]byte)}
}

func (m *memStorage) UploadFile(_ context.Context, localPath string, opts storage.UploadOptions) (string, error) {
	if m.uploadErr != nil {
		return "", m.uploadErr
	}
	data, err := os.ReadFile(localPath)
	if err != nil {
		return "", err
	}
	if opts.ProgressCallback != nil {
		opts.ProgressCallback(int64(len(data)), int64(len(data)))
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[opts.Key] = data
	return "s3://" + opts.Bucket + "/" + opts.Key, nil
}

func (m *memStorage) ListObjects(_ context.Context, _ string, prefix string) ([]storage.ObjectInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []storage.ObjectInfo
	for key, data := range m.objects {
		if strings.HasPrefix(key, prefix) {
			out = append(out, storage.ObjectInfo{Key: key, Size: int64(len(data))})
		}
	}
	return out, nil
}

func (m *memStorage) DeleteObjects(_ context.Context, _ string, keys []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, key := range keys {
		delete(m.objects, key)
		m.deleted = append(m.deleted, key)
	}
	return nil
}

func (m *memStorage) keys() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.objects))
	for key := range m.objects {
		out = append(out, key)
	}
	return out
}

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func hourlyClock(base time.Time) func() time.Time {
	var n int
	return func() time.Time {
		t := base.Add(time.Duration(n) * time.Hour)
		n++
		return t
	}
}

func TestRunOnce_UploadsSnapshot(t *testing.T) {
	store := newMemStorage()
	w := NewWorker(Config{
		Bucket:    "feed-backups",
		KeyPrefix: "/prod/",
		TempDir:   t.TempDir(),
		Logger:    quietLogger(),
		Now:       func() time.Time { return time.Date(2024, 4, 5, 6, 7, 8, 0, time.UTC) },
	}, fileSnapshotter{}, store)

	location, err := w.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "s3://feed-backups/prod/snapshots/engigrow-20240405T060708Z.db", location)
	assert.Equal(t, []string{"prod/snapshots/engigrow-20240405T060708Z.db"}, store.keys())
}

func TestRunOnce_PrunesBeyondRetention(t *testing.T) {
	store := newMemStorage()
	store.objects["snapshots/notes.txt"] = []byte("keep me")
	w := NewWorker(Config{
		Retain:  2,
		Bucket:  "b",
		TempDir: t.TempDir(),
		Logger:  quietLogger(),
		Now:     hourlyClock(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)),
	}, fileSnapshotter{}, store)

	for range 4 {
		_, err := w.RunOnce(context.Background())
		require.NoError(t, err)
	}

	assert.ElementsMatch(t, []string{
		"snapshots/engigrow-20240101T020000Z.db",
		"snapshots/engigrow-20240101T030000Z.db",
		"snapshots/notes.txt",
	}, store.keys())
	assert.ElementsMatch(t, []string{
		"snapshots/engigrow-20240101T000000Z.db",
		"snapshots/engigrow-20240101T010000Z.db",
	}, store.deleted)
}

func TestRunOnce_Failures(t *testing.T) {
	snapErr := errors.New("database is locked")
	w := NewWorker(Config{Bucket: "b", TempDir: t.TempDir(), Logger: quietLogger()}, fileSnapshotter{err: snapErr}, newMemStorage())
	_, err := w.RunOnce(context.Background())
	assert.ErrorIs(t, err, snapErr)

	uploadErr := errors.New("access denied")
	store := newMemStorage()
	store.uploadErr = uploadErr
	w = NewWorker(Config{Bucket: "b", TempDir: t.TempDir(), Logger: quietLogger()}, fileSnapshotter{}, store)
	_, err = w.RunOnce(context.Background())
	assert.ErrorIs(t, err, uploadErr)
}

func TestRunOnce_RemovesTempFiles(t *testing.T) {
	tmp := t.TempDir()
	w := NewWorker(Config{Bucket: "b", TempDir: tmp, Logger: quietLogger()}, fileSnapshotter{}, newMemStorage())

	_, err := w.RunOnce(context.Background())
	require.NoError(t, err)

	entries, err := os.ReadDir(tmp)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestStart_Disabled(t *testing.T) {
	w := NewWorker(Config{Logger: quietLogger()}, fileSnapshotter{}, nil)
	require.NoError(t, w.Start(context.Background()))
	w.Shutdown()
}

func TestStart_RequiresBucket(t *testing.T) {
	w := NewWorker(Config{Interval: time.Minute, Logger: quietLogger()}, fileSnapshotter{}, newMemStorage())
	assert.Error(t, w.Start(context.Background()))
}

func TestStart_RunsOnTicker(t *testing.T) {
	store := newMemStorage()
	var mu sync.Mutex
	n := 0
	w := NewWorker(Config{
		Interval: 10 * time.Millisecond,
		Bucket:   "b",
		TempDir:  t.TempDir(),
		Logger:   quietLogger(),
		Now: func() time.Time {
			mu.Lock()
			defer mu.Unlock()
			n++
			return time.Date(2024, 1, 1, 0, 0, n, 0, time.UTC)
		},
	}, fileSnapshotter{}, store)

	require.NoError(t, w.Start(context.Background()))
	assert.Eventually(t, func() bool { return len(store.keys()) >= 2 }, 2*time.Second, 5*time.Millisecond)
	w.Shutdown()
}

func TestFormatBytes(t *testing.T) {
	assert.Equal(t, "512B", formatBytes(512))
	assert.Equal(t, "1.5KiB", formatBytes(1536))
	assert.Equal(t, "2.0MiB", formatBytes(2*1024*1024))
}
