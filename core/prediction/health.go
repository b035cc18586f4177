package prediction

import (
	"context"

	"github.com/kilianp07/solarcast/core/features"
	"github.com/kilianp07/solarcast/core/health"
)

// CheckMaintenance compares the newest reading's AC power with the model's
// prediction for the same conditions.
func (s *Service) CheckMaintenance(ctx context.Context) (health.MaintenanceStatus, error) {
	cur, err := s.Current(ctx)
	if err != nil {
		return health.MaintenanceStatus{}, err
	}
	predicted, err := s.Predict(features.FromReading(cur))
	if err != nil {
		return health.MaintenanceStatus{}, err
	}
	return health.CheckMaintenance(cur.ACPower, predicted), nil
}

// FaultyPanels lists the panels producing under their fault threshold.
func (s *Service) FaultyPanels(ctx context.Context) ([]string, error) {
	panels, err := s.Panels(ctx)
	if err != nil {
		return nil, err
	}
	return health.FaultyPanels(panels), nil
}

// Alerts aggregates the maintenance check and faulty panels.
func (s *Service) Alerts(ctx context.Context) ([]string, error) {
	st, err := s.CheckMaintenance(ctx)
	if err != nil {
		return nil, err
	}
	faulty, err := s.FaultyPanels(ctx)
	if err != nil {
		return nil, err
	}
	return health.Alerts(st, faulty), nil
}
