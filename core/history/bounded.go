package history

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"sync"
	"time"

	"github.com/kilianp07/solarcast/core/features"
	"github.com/kilianp07/solarcast/core/logger"
	"github.com/kilianp07/solarcast/core/model"
)

// Option configures a history store.
type Option func(*options)

type options struct {
	loc *time.Location
	log logger.Logger
}

// WithLocation sets the time zone timestamps are persisted in. Defaults to
// time.Local.
func WithLocation(loc *time.Location) Option {
	return func(o *options) {
		if loc != nil {
			o.loc = loc
		}
	}
}

// WithLogger sets the logger used for store diagnostics.
func WithLogger(l logger.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.log = l
		}
	}
}

func buildOptions(opts []Option) options {
	o := options{loc: time.Local, log: logger.NopLogger{}}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// BoundedStore implements Store on top of a Storage holding the history as
// CSV. Every Append rewrites the whole (bounded) file.
type BoundedStore struct {
	mu       sync.Mutex
	storage  Storage
	capacity int
	opts     options
}

// NewBoundedStore returns a store keeping at most capacity readings in
// storage. A non-positive capacity falls back to DefaultCapacity.
func NewBoundedStore(storage Storage, capacity int, opts ...Option) *BoundedStore {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &BoundedStore{storage: storage, capacity: capacity, opts: buildOptions(opts)}
}

// Capacity returns the maximum number of readings kept.
func (s *BoundedStore) Capacity() int { return s.capacity }

// Append validates r, appends it, evicts the oldest readings beyond capacity
// and saves the result. A store that does not exist yet is created.
func (s *BoundedStore) Append(ctx context.Context, r model.Reading) error {
	r = normalize(r, s.opts.loc)
	if err := features.ValidateReading(r); err != nil {
		return fmt.Errorf("append reading: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	rows, err := s.load(ctx)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return err
		}
		s.opts.log.Infof("creating history store %s", s.storage)
		rows = nil
	}
	rows = append(rows, r)
	if len(rows) > s.capacity {
		rows = rows[len(rows)-s.capacity:]
	}
	data, err := EncodeCSV(rows)
	if err != nil {
		return fmt.Errorf("encode history: %w", err)
	}
	if err := s.storage.Save(ctx, data); err != nil {
		return fmt.Errorf("save history %s: %w", s.storage, err)
	}
	return nil
}

// ReadAll returns the stored readings oldest first. A missing or corrupt
// backing file yields a *StoreUnavailableError.
func (s *BoundedStore) ReadAll(ctx context.Context) ([]model.Reading, error) {
	rows, err := s.load(ctx)
	if err != nil {
		return nil, s.unavailable(err)
	}
	if rows == nil {
		rows = []model.Reading{}
	}
	return rows, nil
}

// Tail returns the newest n readings oldest first.
func (s *BoundedStore) Tail(ctx context.Context, n int) ([]model.Reading, error) {
	if n < 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidLimit, n)
	}
	rows, err := s.ReadAll(ctx)
	if err != nil {
		return nil, err
	}
	return tail(rows, n, s.capacity)
}

// Close is a no-op; every Append is already durable.
func (s *BoundedStore) Close() error { return nil }

// load returns fs.ErrNotExist untouched and wraps decode failures in a
// *StoreUnavailableError.
func (s *BoundedStore) load(ctx context.Context) ([]model.Reading, error) {
	data, err := s.storage.Load(ctx)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
		return nil, s.unavailable(err)
	}
	rows, err := DecodeCSV(data, s.opts.loc)
	if err != nil {
		return nil, s.unavailable(fmt.Errorf("corrupt history: %w", err))
	}
	if len(rows) > s.capacity {
		rows = rows[len(rows)-s.capacity:]
	}
	return rows, nil
}

func (s *BoundedStore) unavailable(err error) error {
	var sue *StoreUnavailableError
	if errors.As(err, &sue) {
		return err
	}
	return &StoreUnavailableError{Source: s.storage.String(), Err: err}
}

// normalize moves r into loc, re-deriving the calendar fields so they stay
// consistent with the persisted timestamp.
func normalize(r model.Reading, loc *time.Location) model.Reading {
	if r.Timestamp.IsZero() || r.Timestamp.Location() == loc {
		return r
	}
	return features.NewReading(r.Timestamp.In(loc), r.AmbientTemperature, r.ModuleTemperature, r.Irradiation, r.ACPower)
}
