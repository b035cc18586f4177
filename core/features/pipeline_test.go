package features

import (
	"encoding/json"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/solarcast/core/model"
)

func TestDecomposeTime(t *testing.T) {
	cases := []struct {
		ts               string
		hour, dow, month int
	}{
		{"2021-06-15 14:00:00", 14, 1, 6}, // Tuesday
		{"2021-06-14 00:00:00", 0, 0, 6},  // Monday
		{"2021-06-20 23:59:59", 23, 6, 6}, // Sunday
		{"2020-01-01 12:30:00", 12, 2, 1},
		{"2020-12-31 05:00:00", 5, 3, 12},
	}
	for _, c := range cases {
		ts, err := time.ParseInLocation(model.TimestampLayout, c.ts, time.UTC)
		require.NoError(t, err)
		h, d, m := DecomposeTime(ts)
		assert.Equal(t, c.hour, h, c.ts)
		assert.Equal(t, c.dow, d, c.ts)
		assert.Equal(t, c.month, m, c.ts)
	}
}

func TestDecomposeTime_Deterministic(t *testing.T) {
	ts := time.Date(2022, 3, 9, 7, 15, 0, 0, time.UTC)
	h1, d1, m1 := DecomposeTime(ts)
	for i := 0; i < 100; i++ {
		h, d, m := DecomposeTime(ts)
		if h != h1 || d != d1 || m != m1 {
			t.Fatalf("non deterministic result on call %d", i)
		}
	}
}

func TestToVector_FromTimestamp(t *testing.T) {
	v, err := ToVector(RawFields{
		"ambient_temperature": 25.0,
		"module_temperature":  30.0,
		"irradiation":         0.8,
		"timestamp":           "2021-06-15T14:00:00",
	})
	require.NoError(t, err)
	assert.Equal(t, model.FeatureVector{25, 30, 0.8, 14, 1, 6}, v)
}

func TestToVector_ExplicitCalendar(t *testing.T) {
	v, err := ToVector(RawFields{
		"AMBIENT_TEMPERATURE": 21,
		"MODULE_TEMPERATURE":  "27.5",
		"IRRADIATION":         json.Number("0.4"),
		"HOUR":                9,
		"DAY_OF_WEEK":         4.0,
		"MONTH":               "7",
	})
	require.NoError(t, err)
	assert.Equal(t, model.FeatureVector{21, 27.5, 0.4, 9, 4, 7}, v)
}

func TestToVector_TimestampWinsOverExplicitCalendar(t *testing.T) {
	v, err := ToVector(RawFields{
		"AMBIENT_TEMPERATURE": 20.0,
		"MODULE_TEMPERATURE":  25.0,
		"IRRADIATION":         0.5,
		"DATE_TIME":           "2021-06-15 14:00:00",
		"HOUR":                3,
		"DAY_OF_WEEK":         6,
		"MONTH":               1,
	})
	require.NoError(t, err)
	assert.Equal(t, 14.0, v[3])
	assert.Equal(t, 1.0, v[4])
	assert.Equal(t, 6.0, v[5])
}

func TestToVector_MissingIrradiation(t *testing.T) {
	_, err := ToVector(RawFields{
		"AMBIENT_TEMPERATURE": 20.0,
		"MODULE_TEMPERATURE":  25.0,
		"DATE_TIME":           "2021-06-15 14:00:00",
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMissingField))
	var mf *MissingFieldError
	require.True(t, errors.As(err, &mf))
	assert.Equal(t, model.FieldIrradiation, mf.Field)
}

func TestToVector_MissingCalendar(t *testing.T) {
	_, err := ToVector(RawFields{
		"AMBIENT_TEMPERATURE": 20.0,
		"MODULE_TEMPERATURE":  25.0,
		"IRRADIATION":         0.5,
		"HOUR":                10,
	})
	require.ErrorIs(t, err, ErrMissingField)
	var mf *MissingFieldError
	require.ErrorAs(t, err, &mf)
	assert.Equal(t, model.FieldDayOfWeek, mf.Field)
}

func TestToVector_NullIsMissing(t *testing.T) {
	_, err := ToVector(RawFields{
		"AMBIENT_TEMPERATURE": nil,
		"MODULE_TEMPERATURE":  25.0,
		"IRRADIATION":         0.5,
		"DATE_TIME":           "2021-06-15 14:00:00",
	})
	assert.ErrorIs(t, err, ErrMissingField)
}

func TestToVector_InvalidValues(t *testing.T) {
	base := func() RawFields {
		return RawFields{
			"AMBIENT_TEMPERATURE": 20.0,
			"MODULE_TEMPERATURE":  25.0,
			"IRRADIATION":         0.5,
			"HOUR":                10,
			"DAY_OF_WEEK":         2,
			"MONTH":               5,
		}
	}
	cases := map[string]func(RawFields){
		"text":        func(f RawFields) { f["IRRADIATION"] = "sunny" },
		"bool":        func(f RawFields) { f["AMBIENT_TEMPERATURE"] = true },
		"nan":         func(f RawFields) { f["MODULE_TEMPERATURE"] = math.NaN() },
		"inf":         func(f RawFields) { f["MODULE_TEMPERATURE"] = math.Inf(1) },
		"hour range":  func(f RawFields) { f["HOUR"] = 24 },
		"dow range":   func(f RawFields) { f["DAY_OF_WEEK"] = 7 },
		"month range": func(f RawFields) { f["MONTH"] = 0 },
		"fractional":  func(f RawFields) { f["HOUR"] = 10.5 },
		"bad time":    func(f RawFields) { f["DATE_TIME"] = "yesterday" },
		"time type":   func(f RawFields) { f["DATE_TIME"] = 12 },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			f := base()
			mutate(f)
			_, err := ToVector(f)
			assert.ErrorIs(t, err, ErrInvalidField)
		})
	}
}

func TestFromReadingMatchesToVector(t *testing.T) {
	ts := time.Date(2021, 6, 15, 14, 0, 0, 0, time.Local)
	r := NewReading(ts, 25, 30, 0.8, 6)
	fromRow := FromReading(r)
	fromRaw, err := ToVector(RawFields{
		"AMBIENT_TEMPERATURE": 25.0,
		"MODULE_TEMPERATURE":  30.0,
		"IRRADIATION":         0.8,
		"DATE_TIME":           ts.Format(model.TimestampLayout),
	})
	require.NoError(t, err)
	assert.Equal(t, fromRaw, fromRow)
}

func TestNewReadingDerivesCalendar(t *testing.T) {
	ts := time.Date(2023, 12, 24, 18, 5, 7, 999, time.UTC)
	r := NewReading(ts, 10, 15, 0.1, 1)
	assert.Equal(t, 18, r.Hour)
	assert.Equal(t, 6, r.DayOfWeek)
	assert.Equal(t, 12, r.Month)
	assert.Equal(t, 0, r.Timestamp.Nanosecond())
	assert.NoError(t, ValidateReading(r))
}

func TestValidateReading(t *testing.T) {
	ok := NewReading(time.Date(2023, 5, 1, 10, 0, 0, 0, time.UTC), 10, 15, 0.5, 2)

	bad := ok
	bad.Hour = 11
	assert.ErrorIs(t, ValidateReading(bad), ErrInvalidField)

	bad = ok
	bad.Month = 6
	assert.ErrorIs(t, ValidateReading(bad), ErrInvalidField)

	bad = ok
	bad.ACPower = -1
	assert.ErrorIs(t, ValidateReading(bad), ErrInvalidField)

	bad = ok
	bad.Irradiation = math.NaN()
	assert.ErrorIs(t, ValidateReading(bad), ErrInvalidField)

	assert.ErrorIs(t, ValidateReading(model.Reading{}), ErrMissingField)
}

func TestParseTimestamp(t *testing.T) {
	for _, s := range []string{
		"2020-05-15 00:00:00",
		"2020-05-15T00:00:00Z",
		"2020-05-15T00:00:00",
		"15-05-2020 00:00",
	} {
		ts, err := ParseTimestamp(s)
		require.NoError(t, err, s)
		assert.Equal(t, 2020, ts.Year())
		assert.Equal(t, time.May, ts.Month())
		assert.Equal(t, 15, ts.Day())
	}
	_, err := ParseTimestamp("15/05/2020")
	assert.Error(t, err)
}
