package history

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strconv"
	"time"

	"github.com/kilianp07/solarcast/core/features"
	"github.com/kilianp07/solarcast/core/model"
)

// EncodeCSV writes rows under the fixed history header.
func EncodeCSV(rows []model.Reading) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(model.ReadingColumns[:]); err != nil {
		return nil, err
	}
	for _, r := range rows {
		rec := []string{
			r.Timestamp.Format(model.StoredTimestampLayout),
			formatFloat(r.AmbientTemperature),
			formatFloat(r.ModuleTemperature),
			formatFloat(r.Irradiation),
			formatFloat(r.ACPower),
			strconv.Itoa(r.Hour),
			strconv.Itoa(r.DayOfWeek),
			strconv.Itoa(r.Month),
		}
		if err := w.Write(rec); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// DecodeCSV parses a history file. Timestamps carrying an offset keep it;
// those without one are read in loc. An empty input decodes to no rows.
func DecodeCSV(data []byte, loc *time.Location) ([]model.Reading, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, nil
	}
	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = len(model.ReadingColumns)
	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	for i, col := range model.ReadingColumns {
		if header[i] != col {
			return nil, fmt.Errorf("unexpected column %q at %d, want %q", header[i], i, col)
		}
	}
	recs, err := r.ReadAll()
	if err != nil {
		return nil, err
	}
	rows := make([]model.Reading, 0, len(recs))
	for i, rec := range recs {
		row, err := decodeRecord(rec, loc)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", i+2, err)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func decodeRecord(rec []string, loc *time.Location) (model.Reading, error) {
	ts, err := parseStored(rec[0], loc)
	if err != nil {
		return model.Reading{}, err
	}
	var floats [4]float64
	for i := range floats {
		if floats[i], err = strconv.ParseFloat(rec[i+1], 64); err != nil {
			return model.Reading{}, fmt.Errorf("%s: %w", model.ReadingColumns[i+1], err)
		}
	}
	var ints [3]int
	for i := range ints {
		if ints[i], err = strconv.Atoi(rec[i+5]); err != nil {
			return model.Reading{}, fmt.Errorf("%s: %w", model.ReadingColumns[i+5], err)
		}
	}
	row := model.Reading{
		Timestamp:          ts,
		AmbientTemperature: floats[0],
		ModuleTemperature:  floats[1],
		Irradiation:        floats[2],
		ACPower:            floats[3],
		Hour:               ints[0],
		DayOfWeek:          ints[1],
		Month:              ints[2],
	}
	if err := features.ValidateReading(row); err != nil {
		return model.Reading{}, err
	}
	row.Timestamp = row.Timestamp.In(loc)
	return row, nil
}

func parseStored(v string, loc *time.Location) (time.Time, error) {
	if ts, err := time.Parse(model.StoredTimestampLayout, v); err == nil {
		return ts, nil
	}
	return time.ParseInLocation(model.TimestampLayout, v, loc)
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}
