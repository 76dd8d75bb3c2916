package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"syllacal/internal/caldav"
)

const (
	defaultAccount       = "default"
	defaultTimeZone      = "America/New_York"
	defaultGeminiModel   = "gemini-1.5-pro"
	defaultExtractionDir = "data/extractions"
	defaultStateFile     = "import-state.json"
	defaultCalendarQPS   = 5.0
)

// Config holds everything read from the environment.
type Config struct {
	LogLevel string

	GoogleClientID     string
	GoogleClientSecret string
	GoogleAccount      string

	GeminiAPIKey string
	GeminiModel  string

	TimeZone *time.Location

	CalDAVEndpoint     string
	CalDAVUsername     string
	CalDAVPassword     string
	CalDAVCalendarName string

	ExtractionsDir  string
	ImportStateFile string
	CalendarQPS     float64
}

// FromEnv builds a Config from environment variables. Call godotenv.Load first
// so values in .env are visible.
func FromEnv() (*Config, error) {
	return load(os.Getenv)
}

func load(getenv func(string) string) (*Config, error) {
	get := func(key, def string) string {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			return v
		}
		return def
	}

	tzName := get("PRIMARY_TIMEZONE", defaultTimeZone)
	loc, err := time.LoadLocation(tzName)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone '%s': %w", tzName, err)
	}

	qps := defaultCalendarQPS
	if raw := getenv("CALENDAR_QPS"); raw != "" {
		qps, err = strconv.ParseFloat(raw, 64)
		if err != nil || qps <= 0 {
			return nil, fmt.Errorf("CALENDAR_QPS must be a positive number, got '%s'", raw)
		}
	}

	return &Config{
		LogLevel:           get("LOG_LEVEL", "info"),
		GoogleClientID:     getenv("GOOGLE_CLIENT_ID"),
		GoogleClientSecret: getenv("GOOGLE_CLIENT_SECRET"),
		GoogleAccount:      get("GOOGLE_ACCOUNT", defaultAccount),
		GeminiAPIKey:       getenv("GEMINI_API_KEY"),
		GeminiModel:        get("GEMINI_MODEL", defaultGeminiModel),
		TimeZone:           loc,
		CalDAVEndpoint:     get("CALDAV_ENDPOINT", caldav.DefaultEndpoint),
		CalDAVUsername:     getenv("CALDAV_USERNAME"),
		CalDAVPassword:     getenv("CALDAV_PASSWORD"),
		CalDAVCalendarName: getenv("CALDAV_CALENDAR_NAME"),
		ExtractionsDir:     get("EXTRACTIONS_DIR", defaultExtractionDir),
		ImportStateFile:    get("IMPORT_STATE_FILE", defaultStateFile),
		CalendarQPS:        qps,
	}, nil
}

// RequireGemini reports a missing LLM key.
func (c *Config) RequireGemini() error {
	if c.GeminiAPIKey == "" {
		return fmt.Errorf("GEMINI_API_KEY environment variable not set")
	}
	return nil
}

// RequireCalDAV reports missing CalDAV settings.
func (c *Config) RequireCalDAV() error {
	var missing []string
	if c.CalDAVUsername == "" {
		missing = append(missing, "CALDAV_USERNAME")
	}
	if c.CalDAVPassword == "" {
		missing = append(missing, "CALDAV_PASSWORD")
	}
	if c.CalDAVCalendarName == "" {
		missing = append(missing, "CALDAV_CALENDAR_NAME")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing CalDAV settings: %s", strings.Join(missing, ", "))
	}
	return nil
}
