// Package features turns raw sensor and weather fields into model inputs.
// The same derivation is used when building training sets and when serving
// requests, so offline and online vectors always agree.
package features

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/kilianp07/solarcast/core/model"
)

// FieldTimestamp is accepted as an alias of model.FieldDateTime in requests.
const FieldTimestamp = "TIMESTAMP"

// RawFields holds untyped input fields keyed by column name. Keys are
// matched case-insensitively.
type RawFields map[string]any

// ToVector builds a FeatureVector from raw fields. The weather fields are
// required. Calendar features come from DATE_TIME (or TIMESTAMP) when present,
// otherwise from the explicit HOUR, DAY_OF_WEEK and MONTH fields.
func ToVector(raw RawFields) (model.FeatureVector, error) {
	values := make(map[string]float64, model.FeatureCount)
	for _, name := range []string{
		model.FieldAmbientTemperature,
		model.FieldModuleTemperature,
		model.FieldIrradiation,
	} {
		v, err := raw.Float(name)
		if err != nil {
			return model.FeatureVector{}, err
		}
		values[name] = v
	}
	hour, dow, month, err := raw.calendar()
	if err != nil {
		return model.FeatureVector{}, err
	}
	values[model.FieldHour] = float64(hour)
	values[model.FieldDayOfWeek] = float64(dow)
	values[model.FieldMonth] = float64(month)
	return assemble(values), nil
}

// FromReading returns the FeatureVector of a stored reading.
func FromReading(r model.Reading) model.FeatureVector {
	return assemble(map[string]float64{
		model.FieldAmbientTemperature: r.AmbientTemperature,
		model.FieldModuleTemperature:  r.ModuleTemperature,
		model.FieldIrradiation:        r.Irradiation,
		model.FieldHour:               float64(r.Hour),
		model.FieldDayOfWeek:          float64(r.DayOfWeek),
		model.FieldMonth:              float64(r.Month),
	})
}

func assemble(values map[string]float64) model.FeatureVector {
	var v model.FeatureVector
	for i, name := range model.FeatureOrder {
		v[i] = values[name]
	}
	return v
}

// NewReading builds a Reading whose calendar fields are derived from ts.
// The timestamp is truncated to the second.
func NewReading(ts time.Time, ambient, module, irradiation, acPower float64) model.Reading {
	ts = ts.Truncate(time.Second)
	hour, dow, month := DecomposeTime(ts)
	return model.Reading{
		Timestamp:          ts,
		AmbientTemperature: ambient,
		ModuleTemperature:  module,
		Irradiation:        irradiation,
		ACPower:            acPower,
		Hour:               hour,
		DayOfWeek:          dow,
		Month:              month,
	}
}

// ValidateReading checks that r can be persisted: finite values, non-negative
// power and calendar fields consistent with the timestamp.
func ValidateReading(r model.Reading) error {
	if r.Timestamp.IsZero() {
		return &MissingFieldError{Field: model.FieldDateTime}
	}
	for name, v := range map[string]float64{
		model.FieldAmbientTemperature: r.AmbientTemperature,
		model.FieldModuleTemperature:  r.ModuleTemperature,
		model.FieldIrradiation:        r.Irradiation,
		model.FieldACPower:            r.ACPower,
	} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return &InvalidFieldError{Field: name, Value: v, Reason: "not finite"}
		}
	}
	if r.ACPower < 0 {
		return &InvalidFieldError{Field: model.FieldACPower, Value: r.ACPower, Reason: "negative power"}
	}
	hour, dow, month := DecomposeTime(r.Timestamp)
	switch {
	case r.Hour != hour:
		return &InvalidFieldError{Field: model.FieldHour, Value: r.Hour, Reason: "inconsistent with DATE_TIME"}
	case r.DayOfWeek != dow:
		return &InvalidFieldError{Field: model.FieldDayOfWeek, Value: r.DayOfWeek, Reason: "inconsistent with DATE_TIME"}
	case r.Month != month:
		return &InvalidFieldError{Field: model.FieldMonth, Value: r.Month, Reason: "inconsistent with DATE_TIME"}
	}
	return nil
}

func (f RawFields) lookup(name string) (any, bool) {
	if v, ok := f[name]; ok {
		return v, v != nil
	}
	for k, v := range f {
		if strings.EqualFold(k, name) {
			return v, v != nil
		}
	}
	return nil, false
}

// Float returns the named field as a finite float64.
func (f RawFields) Float(name string) (float64, error) {
	raw, ok := f.lookup(name)
	if !ok {
		return 0, &MissingFieldError{Field: name}
	}
	var v float64
	switch x := raw.(type) {
	case float64:
		v = x
	case float32:
		v = float64(x)
	case int:
		v = float64(x)
	case int32:
		v = float64(x)
	case int64:
		v = float64(x)
	case uint:
		v = float64(x)
	case json.Number:
		p, err := x.Float64()
		if err != nil {
			return 0, &InvalidFieldError{Field: name, Value: raw, Reason: "not numeric"}
		}
		v = p
	case string:
		p, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		if err != nil {
			return 0, &InvalidFieldError{Field: name, Value: raw, Reason: "not numeric"}
		}
		v = p
	default:
		return 0, &InvalidFieldError{Field: name, Value: raw, Reason: "not numeric"}
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, &InvalidFieldError{Field: name, Value: raw, Reason: "not finite"}
	}
	return v, nil
}

func (f RawFields) integer(name string, lo, hi int) (int, error) {
	v, err := f.Float(name)
	if err != nil {
		return 0, err
	}
	if v != math.Trunc(v) {
		return 0, &InvalidFieldError{Field: name, Value: v, Reason: "not an integer"}
	}
	n := int(v)
	if n < lo || n > hi {
		return 0, &InvalidFieldError{Field: name, Value: n, Reason: "out of range"}
	}
	return n, nil
}

// Timestamp returns the DATE_TIME (or TIMESTAMP) field. ok is false when
// neither is present.
func (f RawFields) Timestamp() (t time.Time, ok bool, err error) {
	for _, name := range []string{model.FieldDateTime, FieldTimestamp} {
		raw, found := f.lookup(name)
		if !found {
			continue
		}
		switch x := raw.(type) {
		case time.Time:
			return x, true, nil
		case string:
			t, err := ParseTimestamp(x)
			if err != nil {
				return time.Time{}, true, &InvalidFieldError{Field: name, Value: raw, Reason: err.Error()}
			}
			return t, true, nil
		default:
			return time.Time{}, true, &InvalidFieldError{Field: name, Value: raw, Reason: "not a timestamp"}
		}
	}
	return time.Time{}, false, nil
}

func (f RawFields) calendar() (hour, dow, month int, err error) {
	ts, ok, err := f.Timestamp()
	if err != nil {
		return 0, 0, 0, err
	}
	if ok {
		hour, dow, month = DecomposeTime(ts)
		return hour, dow, month, nil
	}
	if hour, err = f.integer(model.FieldHour, 0, 23); err != nil {
		return 0, 0, 0, err
	}
	if dow, err = f.integer(model.FieldDayOfWeek, 0, 6); err != nil {
		return 0, 0, 0, err
	}
	if month, err = f.integer(model.FieldMonth, 1, 12); err != nil {
		return 0, 0, 0, err
	}
	return hour, dow, month, nil
}
