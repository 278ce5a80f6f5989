package worker

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"questTracker/internal/config"
	"questTracker/internal/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	snapshotPrefix = "quests-"
	snapshotSuffix = ".json"
	// UTC, lexically sortable, millisecond resolution
	snapshotLayout = "20060102T150405.000Z"
)

type Exporter interface {
	Export(ctx context.Context, w io.Writer) (int, error)
}

type SnapshotWorker struct {
	exporter Exporter
	dir      string
	interval time.Duration
	keep     int
	now      func() time.Time
}

type Option func(*SnapshotWorker)

func WithClock(now func() time.Time) Option {
	return func(w *SnapshotWorker) {
		w.now = now
	}
}

func NewSnapshotWorker(exporter Exporter, cfg config.BackupConfig, opts ...Option) *SnapshotWorker {
	w := &SnapshotWorker{
		exporter: exporter,
		dir:      cfg.Dir,
		interval: cfg.Interval,
		keep:     cfg.Keep,
		now:      time.Now,
	}
	if w.interval <= 0 {
		w.interval = 30 * time.Minute
	}
	if w.keep <= 0 {
		w.keep = 10
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Start writes a snapshot every interval until ctx is cancelled.
func (w *SnapshotWorker) Start(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	logger.Info("Worker: Snapshot worker started",
		zap.String("dir", w.dir),
		zap.Duration("interval", w.interval),
		zap.Int("keep", w.keep))

	for {
		select {
		case <-ticker.C:
			if _, err := w.Snapshot(ctx); err != nil {
				logger.Warn("Worker: Snapshot failed", zap.Error(err))
			}
		case <-ctx.Done():
			logger.Info("Worker: Snapshot worker stopping")
			return
		}
	}
}

// Snapshot writes one export into the backup directory, prunes old ones and
// returns the new file's path.
func (w *SnapshotWorker) Snapshot(ctx context.Context) (string, error) {
	start := time.Now()

	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return "", fmt.Errorf("create backup dir: %w", err)
	}

	tmp := filepath.Join(w.dir, "."+uuid.NewString()+".tmp")
	f, err := os.Create(tmp)
	if err != nil {
		return "", fmt.Errorf("create snapshot: %w", err)
	}
	n, err := w.exporter.Export(ctx, f)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(tmp)
		return "", fmt.Errorf("write snapshot: %w", err)
	}

	name := snapshotPrefix + w.now().UTC().Format(snapshotLayout) + snapshotSuffix
	path := filepath.Join(w.dir, name)
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return "", fmt.Errorf("rename snapshot: %w", err)
	}

	removed, err := w.prune()
	if err != nil {
		logger.Warn("Worker: Could not prune snapshots", zap.Error(err))
	}

	logger.Info("Worker: Snapshot written",
		zap.String("path", path),
		zap.Int("quests", n),
		zap.Int("pruned", removed),
		zap.Duration("ms", time.Since(start)))
	return path, nil
}

// Snapshots lists snapshot files in the backup directory, oldest first.
func (w *SnapshotWorker) Snapshots() ([]string, error) {
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var names []string
	for _, e := range entries {
		name := e.Name()
		if e.Type().IsRegular() && strings.HasPrefix(name, snapshotPrefix) && strings.HasSuffix(name, snapshotSuffix) {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names, nil
}

func (w *SnapshotWorker) prune() (int, error) {
	names, err := w.Snapshots()
	if err != nil {
		return 0, err
	}
	removed := 0
	for len(names)-removed > w.keep {
		if err := os.Remove(filepath.Join(w.dir, names[removed])); err != nil {
			return removed, err
		}
		removed++
	}
	return removed, nil
}
