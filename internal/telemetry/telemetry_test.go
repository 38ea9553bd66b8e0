package telemetry

import (
	"net/http/httptest"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

func TestNewLoggerParsesKnownLevels(t *testing.T) {
	cases := map[string]logrus.Level{
		"":         logrus.InfoLevel,
		"NOTSET":   logrus.InfoLevel,
		"CRITICAL": logrus.FatalLevel,
		"ERROR":    logrus.ErrorLevel,
		"WARNING":  logrus.WarnLevel,
		"INFO":     logrus.InfoLevel,
		"DEBUG":    logrus.DebugLevel,
	}
	for level, want := range cases {
		logger := NewLogger(level)
		assert.Equal(t, want, logger.GetLevel(), "level %q", level)
	}
}

func TestNewLoggerParsesMixedCaseLevels(t *testing.T) {
	cases := map[string]logrus.Level{
		"Debug":  logrus.DebugLevel,
		"warn":   logrus.WarnLevel,
		"Trace":  logrus.TraceLevel,
		" info ": logrus.InfoLevel,
	}
	for level, want := range cases {
		logger := NewLogger(level)
		assert.Equal(t, want, logger.GetLevel(), "level %q", level)
	}
}

func TestNewLoggerFallsBackToInfoOnUnknownLevel(t *testing.T) {
	logger := NewLogger("not-a-real-level")
	assert.Equal(t, logrus.InfoLevel, logger.GetLevel())
}

func TestNewLoggerUsesJSONFormatterOutsideDebug(t *testing.T) {
	logger := NewLogger("INFO")
	_, ok := logger.Formatter.(*logrus.JSONFormatter)
	assert.True(t, ok)
}

func TestNewMetricsRegistersDistinctCollectorsPerNamespace(t *testing.T) {
	a := NewMetrics("sql2arc")
	b := NewMetrics("inspire2arc")

	a.RecordsFound.Inc()
	a.RecordsFailed.WithLabelValues("build_failed").Inc()

	srv := httptest.NewServer(a.Handler())
	defer srv.Close()

	resp, err := srv.Client().Get(srv.URL)
	assert.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, 200, resp.StatusCode)

	assert.NotNil(t, b.RecordsFound)
}
