package events

import (
	"time"

	"github.com/kilianp07/solarcast/core/model"
)

// ReadingAppended is published after a reading is appended to the history.
// Rows is the store size after the append, or -1 when unknown.
type ReadingAppended struct {
	Reading model.Reading
	Source  string
	Rows    int
}

// PredictionServed is published once per prediction request.
type PredictionServed struct {
	Kind    string
	Value   float64
	Steps   int
	Latency time.Duration
	Err     error
	Time    time.Time
}
