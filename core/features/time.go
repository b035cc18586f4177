package features

import (
	"fmt"
	"strings"
	"time"

	"github.com/kilianp07/solarcast/core/model"
)

// GenerationTimestampLayout is the DATE_TIME layout of plant generation exports.
const GenerationTimestampLayout = "02-01-2006 15:04"

var timestampLayouts = []string{
	model.TimestampLayout,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	GenerationTimestampLayout,
}

// DecomposeTime derives the calendar features of t in t's own location.
// Weeks start on Monday (0) and end on Sunday (6).
func DecomposeTime(t time.Time) (hour, dayOfWeek, month int) {
	return t.Hour(), (int(t.Weekday()) + 6) % 7, int(t.Month())
}

// ParseTimestamp parses the timestamp layouts found in history files,
// training datasets and API requests. Layouts without a zone are read in
// local time.
func ParseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range timestampLayouts {
		var (
			t   time.Time
			err error
		)
		if layout == time.RFC3339 {
			t, err = time.Parse(layout, s)
		} else {
			t, err = time.ParseInLocation(layout, s, time.Local)
		}
		if err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised timestamp %q", s)
}
