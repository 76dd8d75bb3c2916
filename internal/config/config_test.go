package config

import (
	"testing"
	_ "time/tzdata"

	"syllacal/internal/caldav"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func envOf(m map[string]string) func(string) string {
	return func(k string) string { return m[k] }
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := load(envOf(nil))
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "default", cfg.GoogleAccount)
	assert.Equal(t, "America/New_York", cfg.TimeZone.String())
	assert.Equal(t, "gemini-1.5-pro", cfg.GeminiModel)
	assert.Equal(t, caldav.DefaultEndpoint, cfg.CalDAVEndpoint)
	assert.Equal(t, "data/extractions", cfg.ExtractionsDir)
	assert.Equal(t, "import-state.json", cfg.ImportStateFile)
	assert.Equal(t, 5.0, cfg.CalendarQPS)
}

func TestLoadOverrides(t *testing.T) {
	cfg, err := load(envOf(map[string]string{
		"PRIMARY_TIMEZONE": "Europe/Berlin",
		"GOOGLE_ACCOUNT":   "work",
		"CALENDAR_QPS":     "2.5",
		"LOG_LEVEL":        "debug",
	}))
	require.NoError(t, err)

	assert.Equal(t, "Europe/Berlin", cfg.TimeZone.String())
	assert.Equal(t, "work", cfg.GoogleAccount)
	assert.Equal(t, 2.5, cfg.CalendarQPS)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestLoadRejectsBadValues(t *testing.T) {
	_, err := load(envOf(map[string]string{"PRIMARY_TIMEZONE": "Mars/Olympus"}))
	assert.Error(t, err)

	_, err = load(envOf(map[string]string{"CALENDAR_QPS": "0"}))
	assert.Error(t, err)

	_, err = load(envOf(map[string]string{"CALENDAR_QPS": "fast"}))
	assert.Error(t, err)
}

func TestRequireChecks(t *testing.T) {
	cfg, err := load(envOf(map[string]string{"CALDAV_USERNAME": "me"}))
	require.NoError(t, err)

	assert.Error(t, cfg.RequireGemini())
	err = cfg.RequireCalDAV()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "CALDAV_PASSWORD")
	assert.NotContains(t, err.Error(), "CALDAV_USERNAME")

	cfg.GeminiAPIKey = "k"
	assert.NoError(t, cfg.RequireGemini())
}
