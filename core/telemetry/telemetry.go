// Package telemetry exposes the live state of the plant: the newest sensor
// reading and the per-panel output.
package telemetry

import (
	"context"
	"errors"
	"fmt"

	"github.com/kilianp07/solarcast/core/history"
	"github.com/kilianp07/solarcast/core/model"
)

// ErrNoReading is returned when no reading has been recorded yet.
var ErrNoReading = errors.New("no reading available")

// PanelReading is the measured and expected AC output of one panel string.
type PanelReading struct {
	ID            string  `json:"id"`
	ACPower       float64 `json:"ac_power"`
	ExpectedPower float64 `json:"expected_power"`
}

// Source reports the current plant state.
type Source interface {
	Current(ctx context.Context) (model.Reading, error)
	Panels(ctx context.Context) ([]PanelReading, error)
}

// DefaultPanels is the panel inventory used when none is configured.
func DefaultPanels() []PanelReading {
	return []PanelReading{
		{ID: "Panel_1", ACPower: 100, ExpectedPower: 150},
		{ID: "Panel_2", ACPower: 0, ExpectedPower: 150},
		{ID: "Panel_3", ACPower: 120, ExpectedPower: 150},
	}
}

// HistorySource reads the current state from the history store. Panel
// readings come from configuration until per-panel sensors are wired.
type HistorySource struct {
	store  history.Store
	panels []PanelReading
}

// NewHistorySource returns a HistorySource. A nil panels slice selects
// DefaultPanels.
func NewHistorySource(store history.Store, panels []PanelReading) *HistorySource {
	if panels == nil {
		panels = DefaultPanels()
	}
	return &HistorySource{store: store, panels: panels}
}

// Current returns the newest stored reading.
func (s *HistorySource) Current(ctx context.Context) (model.Reading, error) {
	rows, err := s.store.Tail(ctx, 1)
	if err != nil {
		return model.Reading{}, err
	}
	if len(rows) == 0 {
		return model.Reading{}, fmt.Errorf("%w in history", ErrNoReading)
	}
	return rows[0], nil
}

// Panels returns a copy of the panel inventory.
func (s *HistorySource) Panels(ctx context.Context) ([]PanelReading, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := make([]PanelReading, len(s.panels))
	copy(out, s.panels)
	return out, nil
}
