package store

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/starford/notifsync/internal/metrics"
	"github.com/starford/notifsync/internal/models"
	"github.com/starford/notifsync/internal/parser"
	"github.com/starford/notifsync/internal/storage"
)

// DefaultPollInterval is how often the reconciler checks the file.
const DefaultPollInterval = 30 * time.Second

const (
	fsDebounce     = 200 * time.Millisecond
	maxLoggedBytes = 512
)

// snapshot is a fully parsed file version, built without holding the lock.
type snapshot struct {
	records  []models.Commitment
	stamp    storage.Stamp
	checksum string
	gen      uint64 // store generation when the file was read
}

// buildSnapshot parses data, logging and counting every skipped element.
func (s *Store) buildSnapshot(data []byte, stamp storage.Stamp, gen uint64) *snapshot {
	res := parser.Parse(data)
	for _, f := range res.Failures {
		s.logger.Warn("store: skipped malformed record",
			slog.Int("index", f.Index),
			slog.String("candidate", truncate(f.Candidate, maxLoggedBytes)),
			slog.String("error", f.Err.Error()))
	}
	metrics.LoadSkipped.Add(float64(res.Skipped()))

	return &snapshot{
		records:  res.Records,
		stamp:    stamp,
		checksum: storage.Checksum(data),
		gen:      gen,
	}
}

// installLocked replaces the index with snap. Records without an id get one;
// if any did, the file is rewritten so the ids stick. Duplicate ids keep the
// first position and the last content. Returns false if snap is stale.
func (s *Store) installLocked(ctx context.Context, snap *snapshot) bool {
	if snap.gen != s.gen {
		return false
	}

	known := make(map[string]struct{}, len(snap.records))
	ids := make([]string, 0, len(snap.records))
	for _, c := range snap.records {
		if c.ID != "" {
			known[c.ID] = struct{}{}
			ids = append(ids, c.ID)
		}
	}
	taken := func(id string) bool {
		_, ok := known[id]
		return ok
	}
	floor := maxNumericID(ids)

	next := newRecordIndex()
	assigned := 0
	for _, c := range snap.records {
		if c.ID == "" {
			id, err := s.allocateLocked(ctx, floor, taken)
			if err != nil {
				s.logger.Warn("store: record without id dropped",
					slog.String("title", c.Title),
					slog.String("error", err.Error()))
				continue
			}
			c.ID = id
			known[id] = struct{}{}
			assigned++
		}
		if next.put(c) {
			s.logger.Warn("store: duplicate id, later record wins", slog.String("id", c.ID))
		}
	}

	s.idx = next
	s.stamp = snap.stamp
	s.checksum = snap.checksum
	metrics.Records.Set(float64(next.len()))

	if assigned > 0 {
		s.logger.Info("store: assigned ids to new records", slog.Int("count", assigned))
		if err := s.flushLocked(); err != nil {
			// The ids live in memory only; the next reload reassigns fresh ones.
			s.logger.Warn("store: persisting assigned ids failed", slog.String("error", err.Error()))
		}
	}
	return true
}

// refreshLocked absorbs an external edit before a mutation rewrites the file
// and reports whether the index was replaced. Failures leave the current
// index in place.
func (s *Store) refreshLocked(ctx context.Context) bool {
	stamp, err := s.file.Stat()
	if err != nil || stamp.Equal(s.stamp) {
		return false
	}
	data, err := s.file.Read()
	if err != nil {
		return false
	}
	if storage.Checksum(data) == s.checksum {
		s.stamp = stamp
		return false
	}
	if !s.installLocked(ctx, s.buildSnapshot(data, stamp, s.gen)) {
		return false
	}
	metrics.Reloads.WithLabelValues(metrics.ReloadApplied).Inc()
	s.logger.Info("store: absorbed external edit before write", slog.Int("records", s.idx.len()))
	return true
}

// Reconcile checks the file once and reloads the index if someone else
// changed it. The file is read and parsed without holding the lock; the
// result is discarded if the store flushed in the meantime. It reports
// whether a new index was installed. Errors only mean this pass was skipped.
func (s *Store) Reconcile(ctx context.Context) (bool, error) {
	stamp, err := s.file.Stat()
	if err != nil {
		return false, err
	}

	s.mu.RLock()
	known, gen, sum := s.stamp, s.gen, s.checksum
	s.mu.RUnlock()

	if stamp.Equal(known) {
		return false, nil
	}

	data, err := s.file.Read()
	if err != nil {
		metrics.Reloads.WithLabelValues(metrics.ReloadError).Inc()
		return false, err
	}

	if storage.Checksum(data) == sum {
		s.mu.Lock()
		if s.gen == gen {
			s.stamp = stamp
		}
		s.mu.Unlock()
		metrics.Reloads.WithLabelValues(metrics.ReloadUnchanged).Inc()
		return false, nil
	}

	snap := s.buildSnapshot(data, stamp, gen)

	s.mu.Lock()
	applied := s.installLocked(ctx, snap)
	count := s.idx.len()
	s.mu.Unlock()

	if !applied {
		metrics.Reloads.WithLabelValues(metrics.ReloadStale).Inc()
		s.logger.Debug("reconcile: snapshot superseded by a local write")
		return false, nil
	}
	metrics.Reloads.WithLabelValues(metrics.ReloadApplied).Inc()
	s.logger.Info("reconcile: reloaded after external change",
		slog.String("path", s.file.Path()),
		slog.Int("records", count))
	s.notify(EventReloaded, "")
	return true, nil
}

// WatchConfig controls the reconciler loop.
type WatchConfig struct {
	// Interval between polls. Zero means DefaultPollInterval.
	Interval time.Duration
	// FSNotify additionally wakes the loop on file system events for the
	// file. Polling stays authoritative.
	FSNotify bool
}

// Watch runs the reconciler until ctx is cancelled.
func (s *Store) Watch(ctx context.Context, cfg WatchConfig) error {
	interval := cfg.Interval
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var fsEvents <-chan fsnotify.Event
	var fsErrors <-chan error
	if cfg.FSNotify {
		w, err := s.newFSWatcher()
		if err != nil {
			s.logger.Warn("reconcile: fsnotify unavailable, polling only", slog.String("error", err.Error()))
		} else {
			defer w.Close()
			fsEvents, fsErrors = w.Events, w.Errors
		}
	}

	// debounce bursts of events from one atomic write.
	var debounce *time.Timer
	var debounceCh <-chan time.Time
	schedule := func() {
		if debounce == nil {
			debounce = time.NewTimer(fsDebounce)
			debounceCh = debounce.C
		} else {
			debounce.Reset(fsDebounce)
		}
	}

	s.logger.Info("reconcile: started",
		slog.String("path", s.file.Path()),
		slog.Duration("interval", interval),
		slog.Bool("fsnotify", fsEvents != nil))

	for {
		select {
		case <-ctx.Done():
			if debounce != nil {
				debounce.Stop()
			}
			s.logger.Info("reconcile: stopped")
			return nil

		case <-ticker.C:
			s.reconcileAndLog(ctx)

		case <-debounceCh:
			s.reconcileAndLog(ctx)

		case ev, ok := <-fsEvents:
			if !ok {
				fsEvents = nil
				continue
			}
			if filepath.Clean(ev.Name) == s.file.Path() {
				schedule()
			}

		case err, ok := <-fsErrors:
			if !ok {
				fsErrors = nil
				continue
			}
			s.logger.Warn("reconcile: fsnotify error", slog.String("error", err.Error()))
		}
	}
}

func (s *Store) newFSWatcher() (*fsnotify.Watcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	// Watch the directory: atomic writes replace the file's inode.
	if err := w.Add(filepath.Dir(s.file.Path())); err != nil {
		w.Close()
		return nil, err
	}
	return w, nil
}

func (s *Store) reconcileAndLog(ctx context.Context) {
	if _, err := s.Reconcile(ctx); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			s.logger.Debug("reconcile: file missing, skipped", slog.String("path", s.file.Path()))
			return
		}
		s.logger.Warn("reconcile: skipped", slog.String("error", err.Error()))
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
