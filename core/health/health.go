// Package health derives maintenance and fault alerts from measured and
// predicted plant output.
package health

import (
	"fmt"
	"sort"

	"github.com/kilianp07/solarcast/core/telemetry"
)

const (
	// MaintenanceRatio is the share of the predicted output below which
	// maintenance is flagged.
	MaintenanceRatio = 0.9
	// FaultRatio is the share of the expected panel output below which a
	// panel is considered faulty.
	FaultRatio = 0.5
)

// Alert messages.
const (
	MsgMaintenanceRequired = "Maintenance required: production below expectations."
	MsgNoMaintenance       = "No maintenance required."
)

// MaintenanceStatus is the outcome of a maintenance check.
type MaintenanceStatus struct {
	Required  bool    `json:"required"`
	Message   string  `json:"maintenance_alert"`
	Actual    float64 `json:"actual"`
	Predicted float64 `json:"predicted"`
}

// CheckMaintenance flags maintenance when actual < predicted·MaintenanceRatio.
func CheckMaintenance(actual, predicted float64) MaintenanceStatus {
	st := MaintenanceStatus{Actual: actual, Predicted: predicted, Message: MsgNoMaintenance}
	if actual < predicted*MaintenanceRatio {
		st.Required = true
		st.Message = MsgMaintenanceRequired
	}
	return st
}

// FaultyPanels returns the ids of panels producing less than
// ExpectedPower·FaultRatio, sorted.
func FaultyPanels(panels []telemetry.PanelReading) []string {
	out := []string{}
	for _, p := range panels {
		if p.ACPower < p.ExpectedPower*FaultRatio {
			out = append(out, p.ID)
		}
	}
	sort.Strings(out)
	return out
}

// Alerts turns a maintenance status and the faulty panel list into
// user-facing messages.
func Alerts(st MaintenanceStatus, faulty []string) []string {
	out := []string{}
	if st.Required {
		out = append(out, MsgMaintenanceRequired)
	}
	for _, id := range faulty {
		out = append(out, fmt.Sprintf("Faulty equipment detected: %s.", id))
	}
	return out
}
