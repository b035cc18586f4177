// Package audit keeps a queryable trail of served predictions.
package audit

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
)

// Record kinds.
const (
	KindNow     = "now"
	KindHorizon = "horizon"
)

// LogRecord captures one prediction request and its outcome.
type LogRecord struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Kind      string    `json:"kind"`
	// Vector is the model input of a single prediction.
	Vector []float64 `json:"vector,omitempty"`
	// Prediction holds one value per horizon step, or a single value.
	Prediction []float64 `json:"prediction,omitempty"`
	Steps      int       `json:"steps,omitempty"`
	Error      string    `json:"error,omitempty"`
}

// NewRecord returns a record with a fresh ID.
func NewRecord(kind string, ts time.Time) LogRecord {
	return LogRecord{ID: uuid.NewString(), Timestamp: ts, Kind: kind}
}

// LogQuery defines filters for retrieving records. Zero values match
// everything; Limit keeps the newest matches.
type LogQuery struct {
	Start time.Time
	End   time.Time
	Kind  string
	Limit int
}

func (q LogQuery) match(r LogRecord) bool {
	if !q.Start.IsZero() && r.Timestamp.Before(q.Start) {
		return false
	}
	if !q.End.IsZero() && r.Timestamp.After(q.End) {
		return false
	}
	return q.Kind == "" || r.Kind == q.Kind
}

// finish orders records chronologically and applies the limit.
func (q LogQuery) finish(res []LogRecord) []LogRecord {
	sort.SliceStable(res, func(i, j int) bool { return res[i].Timestamp.Before(res[j].Timestamp) })
	if q.Limit > 0 && len(res) > q.Limit {
		res = res[len(res)-q.Limit:]
	}
	if res == nil {
		res = []LogRecord{}
	}
	return res
}

func withID(rec LogRecord) LogRecord {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	return rec
}

// LogStore persists LogRecords and supports querying.
type LogStore interface {
	Append(ctx context.Context, rec LogRecord) error
	Query(ctx context.Context, q LogQuery) ([]LogRecord, error)
	Close() error
}

// NopStore keeps nothing.
type NopStore struct{}

func (NopStore) Append(context.Context, LogRecord) error { return nil }
func (NopStore) Query(context.Context, LogQuery) ([]LogRecord, error) {
	return []LogRecord{}, nil
}
func (NopStore) Close() error { return nil }
