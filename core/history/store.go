// Package history keeps the bounded log of recent sensor readings shared by
// the simulator (sole writer) and the prediction service (reader).
package history

import (
	"context"
	"errors"
	"fmt"

	"github.com/kilianp07/solarcast/core/model"
)

// DefaultCapacity is the number of readings kept when no capacity is configured.
const DefaultCapacity = 100

// ErrInvalidLimit is returned by Tail for negative limits.
var ErrInvalidLimit = errors.New("invalid history limit")

// Store is an append-only, size-bounded sequence of readings. Oldest readings
// are evicted first once Capacity is exceeded.
type Store interface {
	// Append adds r and persists the store before returning.
	Append(ctx context.Context, r model.Reading) error
	// ReadAll returns every stored reading, oldest first.
	ReadAll(ctx context.Context) ([]model.Reading, error)
	// Tail returns the newest n readings, oldest first.
	Tail(ctx context.Context, n int) ([]model.Reading, error)
	Capacity() int
	Close() error
}

// Config selects and configures the history backend.
type Config struct {
	// Backend is "csv" or "sqlite".
	Backend  string `json:"backend"`
	Path     string `json:"path"`
	Capacity int    `json:"capacity"`
}

// SetDefaults applies sane defaults.
func (c *Config) SetDefaults() {
	if c.Backend == "" {
		c.Backend = "csv"
	}
	if c.Path == "" {
		if c.Backend == "sqlite" {
			c.Path = "sensor_history.db"
		} else {
			c.Path = "sensor_history.csv"
		}
	}
	if c.Capacity == 0 {
		c.Capacity = DefaultCapacity
	}
}

// Validate checks mandatory fields.
func (c Config) Validate() error {
	if c.Backend != "csv" && c.Backend != "sqlite" {
		return fmt.Errorf("unknown history backend %s", c.Backend)
	}
	if c.Path == "" {
		return fmt.Errorf("history path is required")
	}
	if c.Capacity <= 0 {
		return fmt.Errorf("history capacity must be positive")
	}
	return nil
}

// Open returns the Store described by cfg.
func Open(cfg Config, opts ...Option) (Store, error) {
	switch cfg.Backend {
	case "csv", "":
		return NewBoundedStore(NewFileStorage(cfg.Path), cfg.Capacity, opts...), nil
	case "sqlite":
		return NewSQLiteStore(cfg.Path, cfg.Capacity, opts...)
	default:
		return nil, fmt.Errorf("unknown history backend %s", cfg.Backend)
	}
}

func tail(rows []model.Reading, n, capacity int) ([]model.Reading, error) {
	if n < 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidLimit, n)
	}
	if n > capacity {
		n = capacity
	}
	if n > len(rows) {
		n = len(rows)
	}
	out := make([]model.Reading, n)
	copy(out, rows[len(rows)-n:])
	return out, nil
}
