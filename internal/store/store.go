// Package store is the commitment store: an in-memory index over the backing
// JSON file, flushed on every mutation and reconciled with external edits.
package store

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/starford/notifsync/internal/apperr"
	"github.com/starford/notifsync/internal/metrics"
	"github.com/starford/notifsync/internal/models"
	"github.com/starford/notifsync/internal/storage"
)

// Event kinds passed to an EventCallback.
const (
	EventCreated  = "created"
	EventUpdated  = "updated"
	EventDeleted  = "deleted"
	EventPurged   = "purged"
	EventReloaded = "reloaded"
)

// EventCallback is called after a change to the index has been persisted or
// absorbed. id is empty for purged and reloaded.
type EventCallback func(kind string, id string)

// Sequence allocates ids. *sequence.DB implements it.
type Sequence interface {
	// Next returns a value greater than both its own counter and floor.
	Next(ctx context.Context, floor uint64) (uint64, error)
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) {
		s.logger = l
	}
}

// WithEventCallback registers cb for change notifications.
func WithEventCallback(cb EventCallback) Option {
	return func(s *Store) {
		s.onChange = cb
	}
}

// WithSeed replaces the records written when the file does not exist yet.
func WithSeed(records []models.Commitment) Option {
	return func(s *Store) {
		s.seed = records
	}
}

// Store owns the record index and the backing file.
//
// mu covers every read of idx, every mutation together with its flush, and
// the installation of reloaded snapshots. stamp and checksum describe the
// last file version the index is known to match; gen increases on every
// flush so that a snapshot read before a flush is never installed after it.
type Store struct {
	file     storage.Provider
	seq      Sequence
	logger   *slog.Logger
	onChange EventCallback
	seed     []models.Commitment

	mu       sync.RWMutex
	idx      *recordIndex
	stamp    storage.Stamp
	checksum string
	gen      uint64
}

// Open loads the store from file. A missing file is seeded and written; an
// unreadable one leaves the index empty and is retried by the reconciler.
// Only a failure to write the seed file is returned.
func Open(ctx context.Context, file storage.Provider, seq Sequence, opts ...Option) (*Store, error) {
	s := &Store{
		file:   file,
		seq:    seq,
		logger: slog.Default(),
		seed:   SeedCommitments(),
		idx:    newRecordIndex(),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := file.Read()
	switch {
	case errors.Is(err, fs.ErrNotExist):
		for _, c := range s.seed {
			s.idx.put(c)
		}
		if err := s.flushLocked(); err != nil {
			return nil, fmt.Errorf("store: seed: %w", err)
		}
		s.logger.Info("store: seeded new file",
			slog.String("path", file.Path()),
			slog.Int("records", s.idx.len()))
	case err != nil:
		s.logger.Error("store: load failed, starting empty",
			slog.String("path", file.Path()),
			slog.String("error", err.Error()))
	default:
		stamp, statErr := file.Stat()
		if statErr != nil {
			s.logger.Warn("store: stat failed", slog.String("error", statErr.Error()))
		}
		s.installLocked(ctx, s.buildSnapshot(data, stamp, s.gen))
		s.logger.Info("store: loaded",
			slog.String("path", file.Path()),
			slog.Int("records", s.idx.len()))
	}
	metrics.Records.Set(float64(s.idx.len()))
	return s, nil
}

// List returns every commitment, soft-deleted ones included, in insertion order.
func (s *Store) List() []models.Commitment {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.idx.list()
}

// Get returns the commitment with the given id.
func (s *Store) Get(id string) (models.Commitment, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.idx.get(id)
}

// Create stores c, assigning an id when c.ID is empty, and flushes.
// A caller-supplied id that is already taken yields apperr.ErrAlreadyExists.
func (s *Store) Create(ctx context.Context, c models.Commitment) (models.Commitment, error) {
	s.mu.Lock()
	reloaded := s.refreshLocked(ctx)
	out, err := s.createLocked(ctx, c)
	s.mu.Unlock()

	if reloaded {
		s.notify(EventReloaded, "")
	}
	if err != nil {
		return models.Commitment{}, err
	}
	s.notify(EventCreated, out.ID)
	return out, nil
}

func (s *Store) createLocked(ctx context.Context, c models.Commitment) (models.Commitment, error) {
	if c.ID == "" {
		id, err := s.allocateLocked(ctx, s.idx.maxNumericID(), s.idx.has)
		if err != nil {
			return models.Commitment{}, err
		}
		c.ID = id
	} else if s.idx.has(c.ID) {
		return models.Commitment{}, fmt.Errorf("store: create %s: %w", c.ID, apperr.ErrAlreadyExists)
	}

	s.idx.put(c)
	if err := s.flushLocked(); err != nil {
		s.idx.remove(c.ID)
		return models.Commitment{}, err
	}
	return c.Clone(), nil
}

// Update replaces the commitment stored under id with c. The id argument
// always wins over c.ID. Unknown ids yield apperr.ErrNotFound.
func (s *Store) Update(ctx context.Context, id string, c models.Commitment) (models.Commitment, error) {
	c.ID = id
	if err := s.replace(ctx, id, func(models.Commitment) models.Commitment { return c }); err != nil {
		return models.Commitment{}, err
	}
	s.notify(EventUpdated, id)
	return c.Clone(), nil
}

// SoftDelete marks the commitment as deleted and returns it. Unknown ids
// yield apperr.ErrNotFound.
func (s *Store) SoftDelete(ctx context.Context, id string) (models.Commitment, error) {
	var out models.Commitment
	err := s.replace(ctx, id, func(old models.Commitment) models.Commitment {
		out = old.Clone()
		out.Deleted = models.FlagTrue
		return out
	})
	if err != nil {
		return models.Commitment{}, err
	}
	s.notify(EventDeleted, id)
	return out.Clone(), nil
}

// replace swaps the entry under id for fn(old) and flushes, restoring the
// old entry if the flush fails.
func (s *Store) replace(ctx context.Context, id string, fn func(models.Commitment) models.Commitment) error {
	s.mu.Lock()
	reloaded := s.refreshLocked(ctx)
	err := s.replaceLocked(id, fn)
	s.mu.Unlock()

	if reloaded {
		s.notify(EventReloaded, "")
	}
	return err
}

func (s *Store) replaceLocked(id string, fn func(models.Commitment) models.Commitment) error {
	old, ok := s.idx.get(id)
	if !ok {
		return fmt.Errorf("store: %s: %w", id, apperr.ErrNotFound)
	}
	s.idx.put(fn(old))
	if err := s.flushLocked(); err != nil {
		s.idx.put(old)
		return err
	}
	return nil
}

// PurgeDeleted permanently removes every soft-deleted commitment and
// returns how many were removed.
func (s *Store) PurgeDeleted(ctx context.Context) (int, error) {
	s.mu.Lock()
	reloaded := s.refreshLocked(ctx)
	prev := s.idx
	next, removed := prev.filter(func(c models.Commitment) bool { return !c.IsDeleted() })
	s.idx = next
	err := s.flushLocked()
	if err != nil {
		s.idx = prev
	}
	s.mu.Unlock()

	if reloaded {
		s.notify(EventReloaded, "")
	}
	if err != nil {
		return 0, err
	}
	s.notify(EventPurged, "")
	return removed, nil
}

// allocateLocked returns a fresh numeric id not accepted by taken.
func (s *Store) allocateLocked(ctx context.Context, floor uint64, taken func(string) bool) (string, error) {
	for {
		n, err := s.seq.Next(ctx, floor)
		if err != nil {
			return "", fmt.Errorf("store: allocate id: %w", err)
		}
		id := strconv.FormatUint(n, 10)
		if !taken(id) {
			return id, nil
		}
		floor = n
	}
}

// flushLocked writes the whole index to the file and records the new stamp.
func (s *Store) flushLocked() error {
	data, err := encode(s.idx.list())
	if err != nil {
		return fmt.Errorf("store: encode: %w", err)
	}

	start := time.Now()
	if err := s.file.Write(data); err != nil {
		metrics.FlushErrors.Inc()
		s.logger.Error("store: flush failed",
			slog.String("path", s.file.Path()),
			slog.String("error", err.Error()))
		return fmt.Errorf("store: flush: %w", err)
	}
	metrics.FlushDuration.Observe(time.Since(start).Seconds())
	metrics.Records.Set(float64(s.idx.len()))

	s.gen++
	s.checksum = storage.Checksum(data)
	stamp, err := s.file.Stat()
	if err != nil {
		// A zero stamp makes the reconciler re-check; the checksum then
		// recognises our own content.
		s.logger.Warn("store: stat after flush failed", slog.String("error", err.Error()))
		stamp = storage.Stamp{}
	}
	s.stamp = stamp
	return nil
}

func (s *Store) notify(kind, id string) {
	if s.onChange != nil {
		s.onChange(kind, id)
	}
}
