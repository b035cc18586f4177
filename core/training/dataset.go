// Package training turns plant generation and weather exports into a fitted
// forecast artifact.
package training

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/kilianp07/solarcast/core/features"
	"github.com/kilianp07/solarcast/core/model"
)

// Column names of the plant exports.
const (
	ColumnDCPower    = "DC_POWER"
	ColumnDailyYield = "DAILY_YIELD"
)

var (
	// ErrEmptySplit is returned when the split date leaves no train or no test rows.
	ErrEmptySplit = errors.New("empty train or test split")
	// ErrNoRows is returned when the merged dataset is empty.
	ErrNoRows = errors.New("no rows after merge")
)

// GenerationRow is the plant output at one timestamp, summed over inverters.
type GenerationRow struct {
	Timestamp  time.Time
	ACPower    float64
	DCPower    float64
	DailyYield float64
}

// WeatherRow is one weather sensor sample. Blank cells are NaN.
type WeatherRow struct {
	Timestamp          time.Time
	AmbientTemperature float64
	ModuleTemperature  float64
	Irradiation        float64
}

// LoadGeneration reads a generation export and aggregates it per timestamp:
// AC and DC power are summed, daily yield is averaged. Rows come out sorted.
func LoadGeneration(r io.Reader) ([]GenerationRow, error) {
	recs, cols, err := readTable(r, model.FieldDateTime, model.FieldACPower, ColumnDCPower, ColumnDailyYield)
	if err != nil {
		return nil, fmt.Errorf("generation: %w", err)
	}
	type agg struct {
		ac, dc, yield float64
		yields        int
	}
	groups := make(map[time.Time]*agg)
	for i, rec := range recs {
		ts, err := features.ParseTimestamp(rec[cols[model.FieldDateTime]])
		if err != nil {
			return nil, fmt.Errorf("generation line %d: %w", i+2, err)
		}
		vals, err := parseCells(rec, cols, model.FieldACPower, ColumnDCPower, ColumnDailyYield)
		if err != nil {
			return nil, fmt.Errorf("generation line %d: %w", i+2, err)
		}
		g := groups[ts]
		if g == nil {
			g = &agg{}
			groups[ts] = g
		}
		if !math.IsNaN(vals[0]) {
			g.ac += vals[0]
		}
		if !math.IsNaN(vals[1]) {
			g.dc += vals[1]
		}
		if !math.IsNaN(vals[2]) {
			g.yield += vals[2]
			g.yields++
		}
	}
	out := make([]GenerationRow, 0, len(groups))
	for ts, g := range groups {
		row := GenerationRow{Timestamp: ts, ACPower: g.ac, DCPower: g.dc, DailyYield: math.NaN()}
		if g.yields > 0 {
			row.DailyYield = g.yield / float64(g.yields)
		}
		out = append(out, row)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })
	return out, nil
}

// LoadWeather reads a weather sensor export.
func LoadWeather(r io.Reader) ([]WeatherRow, error) {
	recs, cols, err := readTable(r, model.FieldDateTime, model.FieldAmbientTemperature, model.FieldModuleTemperature, model.FieldIrradiation)
	if err != nil {
		return nil, fmt.Errorf("weather: %w", err)
	}
	out := make([]WeatherRow, 0, len(recs))
	for i, rec := range recs {
		ts, err := features.ParseTimestamp(rec[cols[model.FieldDateTime]])
		if err != nil {
			return nil, fmt.Errorf("weather line %d: %w", i+2, err)
		}
		vals, err := parseCells(rec, cols, model.FieldAmbientTemperature, model.FieldModuleTemperature, model.FieldIrradiation)
		if err != nil {
			return nil, fmt.Errorf("weather line %d: %w", i+2, err)
		}
		out = append(out, WeatherRow{Timestamp: ts, AmbientTemperature: vals[0], ModuleTemperature: vals[1], Irradiation: vals[2]})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })
	return out, nil
}

// Merge inner-joins generation and weather on timestamp and forward-fills
// blank weather cells from the previous merged row. Rows still blank after
// the fill (leading gaps) are dropped.
func Merge(gen []GenerationRow, weather []WeatherRow) []model.Reading {
	byTime := make(map[time.Time]WeatherRow, len(weather))
	for _, w := range weather {
		if _, dup := byTime[w.Timestamp]; !dup {
			byTime[w.Timestamp] = w
		}
	}
	out := make([]model.Reading, 0, len(gen))
	last := [3]float64{math.NaN(), math.NaN(), math.NaN()}
	for _, g := range gen {
		w, ok := byTime[g.Timestamp]
		if !ok {
			continue
		}
		cur := [3]float64{w.AmbientTemperature, w.ModuleTemperature, w.Irradiation}
		for i, v := range cur {
			if math.IsNaN(v) {
				cur[i] = last[i]
			}
		}
		last = cur
		if math.IsNaN(cur[0]) || math.IsNaN(cur[1]) || math.IsNaN(cur[2]) {
			continue
		}
		out = append(out, features.NewReading(g.Timestamp, cur[0], cur[1], cur[2], g.ACPower))
	}
	return out
}

// Split partitions rows into train (strictly before at) and test (at or after).
func Split(rows []model.Reading, at time.Time) (train, test []model.Reading, err error) {
	for _, r := range rows {
		if r.Timestamp.Before(at) {
			train = append(train, r)
		} else {
			test = append(test, r)
		}
	}
	if len(train) == 0 || len(test) == 0 {
		return nil, nil, fmt.Errorf("%w: %d train, %d test rows at %s", ErrEmptySplit, len(train), len(test), at.Format(time.DateOnly))
	}
	return train, test, nil
}

// Matrix converts readings into model inputs and AC power targets.
func Matrix(rows []model.Reading) ([][]float64, []float64) {
	X := make([][]float64, len(rows))
	y := make([]float64, len(rows))
	for i, r := range rows {
		X[i] = features.FromReading(r).Slice()
		y[i] = r.ACPower
	}
	return X, y
}

func readTable(r io.Reader, required ...string) ([][]string, map[string]int, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	header, err := cr.Read()
	if err != nil {
		return nil, nil, fmt.Errorf("read header: %w", err)
	}
	cols := make(map[string]int, len(header))
	for i, h := range header {
		cols[strings.ToUpper(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))] = i
	}
	for _, name := range required {
		if _, ok := cols[name]; !ok {
			return nil, nil, fmt.Errorf("missing column %s", name)
		}
	}
	recs, err := cr.ReadAll()
	if err != nil {
		return nil, nil, err
	}
	return recs, cols, nil
}

// parseCells returns NaN for blank cells.
func parseCells(rec []string, cols map[string]int, names ...string) ([]float64, error) {
	out := make([]float64, len(names))
	for i, name := range names {
		cell := strings.TrimSpace(rec[cols[name]])
		if cell == "" {
			out[i] = math.NaN()
			continue
		}
		v, err := strconv.ParseFloat(cell, 64)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		out[i] = v
	}
	return out, nil
}
