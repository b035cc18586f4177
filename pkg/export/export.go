// Package export writes history readings and forecasts as CSV or JSON
// downloads.
package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/kilianp07/solarcast/core/history"
	"github.com/kilianp07/solarcast/core/model"
	"github.com/kilianp07/solarcast/core/prediction"
)

// Format is an export encoding.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatJSON Format = "json"
)

// ParseFormat accepts csv or json, case-insensitively. Empty means CSV.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case "":
		return FormatCSV, nil
	case FormatCSV, FormatJSON:
		return f, nil
	default:
		return "", fmt.Errorf("unsupported export format %q", s)
	}
}

// ContentType is the MIME type of f.
func (f Format) ContentType() string {
	if f == FormatJSON {
		return "application/json"
	}
	return "text/csv"
}

// WriteReadings writes rows to w, using the history column names.
func WriteReadings(w io.Writer, f Format, rows []model.Reading) error {
	if f == FormatJSON {
		if rows == nil {
			rows = []model.Reading{}
		}
		return json.NewEncoder(w).Encode(rows)
	}
	b, err := history.EncodeCSV(rows)
	if err != nil {
		return err
	}
	_, err = w.Write(b)
	return err
}

// WriteForecast writes horizon points to w.
func WriteForecast(w io.Writer, f Format, points []prediction.ForecastPoint) error {
	if f == FormatJSON {
		if points == nil {
			points = []prediction.ForecastPoint{}
		}
		return json.NewEncoder(w).Encode(points)
	}
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{model.FieldDateTime, "PREDICTION"}); err != nil {
		return err
	}
	for _, p := range points {
		rec := []string{
			p.Timestamp.Format(model.TimestampLayout),
			strconv.FormatFloat(p.Prediction, 'f', -1, 64),
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
