package logger

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	corelogger "github.com/kilianp07/solarcast/core/logger"
)

var (
	_ corelogger.Logger      = (*ZerologLogger)(nil)
	_ corelogger.FieldLogger = (*ZerologLogger)(nil)
)

func TestZerologLogger_JSON(t *testing.T) {
	t.Setenv("LOG_LEVEL", "")
	var buf bytes.Buffer
	l := NewWithWriter("api", &buf)
	l.Infow("request", map[string]any{"status": 200, "path": "/predict"})

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "api", line["component"])
	assert.Equal(t, "request", line["message"])
	assert.Equal(t, "info", line["level"])
	assert.Equal(t, "/predict", line["path"])
	assert.EqualValues(t, 200, line["status"])
}

func TestZerologLogger_Level(t *testing.T) {
	t.Setenv("LOG_LEVEL", "warn")
	var buf bytes.Buffer
	l := NewWithWriter("sim", &buf)
	l.Infof("hidden")
	l.Debugw("hidden", nil)
	l.Warnf("shown %d", 1)
	l.Errorf("shown %d", 2)
	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Equal(t, 2, strings.Count(out, "shown"))
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zerolog.DebugLevel, ParseLevel("DEBUG"))
	assert.Equal(t, zerolog.WarnLevel, ParseLevel("warning"))
	assert.Equal(t, zerolog.ErrorLevel, ParseLevel("error"))
	assert.Equal(t, zerolog.InfoLevel, ParseLevel("verbose"))
}

func TestNew_DevConsole(t *testing.T) {
	t.Setenv("APP_ENV", "dev")
	assert.NotNil(t, New("test"))
}

func TestConfigure(t *testing.T) {
	t.Setenv("LOG_LEVEL", "")
	Configure("debug", false)
	t.Cleanup(func() { Configure("info", false) })
	var buf bytes.Buffer
	NewWithWriter("cfg", &buf).Debugf("visible")
	assert.Contains(t, buf.String(), "visible")

	t.Setenv("LOG_LEVEL", "error")
	buf.Reset()
	NewWithWriter("cfg", &buf).Warnf("hidden")
	assert.Empty(t, buf.String())
}
