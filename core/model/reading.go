package model

import (
	"encoding/json"
	"fmt"
	"time"
)

// TimestampLayout is the layout used for DATE_TIME values in API payloads and
// in history files written without an offset.
const TimestampLayout = "2006-01-02 15:04:05"

// StoredTimestampLayout is the layout history files are written with. The
// offset keeps the repeated hour of a DST fall-back apart.
const StoredTimestampLayout = "2006-01-02 15:04:05-07:00"

// Column names shared by the history file, the training datasets and the API.
const (
	FieldDateTime           = "DATE_TIME"
	FieldAmbientTemperature = "AMBIENT_TEMPERATURE"
	FieldModuleTemperature  = "MODULE_TEMPERATURE"
	FieldIrradiation        = "IRRADIATION"
	FieldACPower            = "AC_POWER"
	FieldHour               = "HOUR"
	FieldDayOfWeek          = "DAY_OF_WEEK"
	FieldMonth              = "MONTH"
)

// ReadingColumns is the stable column order of a persisted Reading.
var ReadingColumns = [...]string{
	FieldDateTime,
	FieldAmbientTemperature,
	FieldModuleTemperature,
	FieldIrradiation,
	FieldACPower,
	FieldHour,
	FieldDayOfWeek,
	FieldMonth,
}

// Reading is one observation of a solar installation. Hour, DayOfWeek and
// Month are always derived from Timestamp; build readings with
// features.NewReading.
type Reading struct {
	Timestamp          time.Time
	AmbientTemperature float64 // °C
	ModuleTemperature  float64 // °C
	Irradiation        float64 // kW/m²
	ACPower            float64 // kW, never negative
	Hour               int     // 0-23
	DayOfWeek          int     // 0-6, Monday = 0
	Month              int     // 1-12
}

type readingJSON struct {
	DateTime           string  `json:"DATE_TIME"`
	AmbientTemperature float64 `json:"AMBIENT_TEMPERATURE"`
	ModuleTemperature  float64 `json:"MODULE_TEMPERATURE"`
	Irradiation        float64 `json:"IRRADIATION"`
	ACPower            float64 `json:"AC_POWER"`
	Hour               int     `json:"HOUR"`
	DayOfWeek          int     `json:"DAY_OF_WEEK"`
	Month              int     `json:"MONTH"`
}

// MarshalJSON encodes the reading with the upper-case column names.
func (r Reading) MarshalJSON() ([]byte, error) {
	return json.Marshal(readingJSON{
		DateTime:           r.Timestamp.Format(TimestampLayout),
		AmbientTemperature: r.AmbientTemperature,
		ModuleTemperature:  r.ModuleTemperature,
		Irradiation:        r.Irradiation,
		ACPower:            r.ACPower,
		Hour:               r.Hour,
		DayOfWeek:          r.DayOfWeek,
		Month:              r.Month,
	})
}

// UnmarshalJSON decodes a reading produced by MarshalJSON.
func (r *Reading) UnmarshalJSON(data []byte) error {
	var raw readingJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	ts, err := time.ParseInLocation(TimestampLayout, raw.DateTime, time.Local)
	if err != nil {
		return fmt.Errorf("decode %s: %w", FieldDateTime, err)
	}
	*r = Reading{
		Timestamp:          ts,
		AmbientTemperature: raw.AmbientTemperature,
		ModuleTemperature:  raw.ModuleTemperature,
		Irradiation:        raw.Irradiation,
		ACPower:            raw.ACPower,
		Hour:               raw.Hour,
		DayOfWeek:          raw.DayOfWeek,
		Month:              raw.Month,
	}
	return nil
}
