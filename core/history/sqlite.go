package history

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/kilianp07/solarcast/core/features"
	"github.com/kilianp07/solarcast/core/model"
)

// SQLiteStore keeps the bounded history in a SQLite table. Eviction happens
// in the same transaction as the insert.
type SQLiteStore struct {
	db       *sql.DB
	capacity int
	opts     options
	source   string
}

// NewSQLiteStore opens or creates the database at path and ensures schema.
func NewSQLiteStore(path string, capacity int, opts ...Option) (*SQLiteStore, error) {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	schema := `CREATE TABLE IF NOT EXISTS readings (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        ts INTEGER NOT NULL,
        ambient_temperature REAL NOT NULL,
        module_temperature REAL NOT NULL,
        irradiation REAL NOT NULL,
        ac_power REAL NOT NULL
    );`
	if _, err := db.Exec(schema); err != nil {
		if cerr := db.Close(); cerr != nil {
			return nil, fmt.Errorf("close db: %v (schema err: %w)", cerr, err)
		}
		return nil, err
	}
	return &SQLiteStore{db: db, capacity: capacity, opts: buildOptions(opts), source: path}, nil
}

// Capacity returns the maximum number of readings kept.
func (s *SQLiteStore) Capacity() int { return s.capacity }

// Append inserts r and deletes everything older than the newest Capacity rows.
func (s *SQLiteStore) Append(ctx context.Context, r model.Reading) error {
	r = normalize(r, s.opts.loc)
	if err := features.ValidateReading(r); err != nil {
		return fmt.Errorf("append reading: %w", err)
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return &StoreUnavailableError{Source: s.source, Err: err}
	}
	defer func() { _ = tx.Rollback() }()
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO readings (ts, ambient_temperature, module_temperature, irradiation, ac_power) VALUES (?, ?, ?, ?, ?)`,
		r.Timestamp.Unix(), r.AmbientTemperature, r.ModuleTemperature, r.Irradiation, r.ACPower); err != nil {
		return fmt.Errorf("insert reading: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM readings WHERE id NOT IN (SELECT id FROM readings ORDER BY id DESC LIMIT ?)`,
		s.capacity); err != nil {
		return fmt.Errorf("evict readings: %w", err)
	}
	return tx.Commit()
}

// ReadAll returns the stored readings oldest first.
func (s *SQLiteStore) ReadAll(ctx context.Context) ([]model.Reading, error) {
	return s.query(ctx, s.capacity)
}

// Tail returns the newest n readings oldest first.
func (s *SQLiteStore) Tail(ctx context.Context, n int) ([]model.Reading, error) {
	if n < 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidLimit, n)
	}
	if n > s.capacity {
		n = s.capacity
	}
	return s.query(ctx, n)
}

func (s *SQLiteStore) query(ctx context.Context, limit int) ([]model.Reading, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT ts, ambient_temperature, module_temperature, irradiation, ac_power FROM
            (SELECT * FROM readings ORDER BY id DESC LIMIT ?) ORDER BY id ASC`, limit)
	if err != nil {
		return nil, &StoreUnavailableError{Source: s.source, Err: err}
	}
	defer func() { _ = rows.Close() }()
	res := []model.Reading{}
	for rows.Next() {
		var ts int64
		var ambient, module, irr, acPower float64
		if err := rows.Scan(&ts, &ambient, &module, &irr, &acPower); err != nil {
			return nil, &StoreUnavailableError{Source: s.source, Err: err}
		}
		res = append(res, features.NewReading(time.Unix(ts, 0).In(s.opts.loc), ambient, module, irr, acPower))
	}
	if err := rows.Err(); err != nil {
		return nil, &StoreUnavailableError{Source: s.source, Err: err}
	}
	return res, nil
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error { return s.db.Close() }
