package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"fluxo/internal/analytics"
	"fluxo/internal/log"
)

type Config struct {
	// HTTP Server
	Port         string
	RateLimitRPM int

	// Backend selection
	DataBackend string
	DataDir     string

	// Database
	SQLiteDBPath string

	// AMQP
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Google Sheets
	GoogleSpreadsheetID       string
	GoogleLedgerSheet         string
	GoogleGoalsSheet          string
	GoogleServiceAccountJSON  string
	GoogleServiceAccountFile  string
	GoogleApplicationCredPath string

	// Analytics
	WindowMonths  int
	TopCategories int
	Timezone      string
	ColorPolicy   string
	TagsFile      string

	// Snapshot cache
	SnapshotCacheSize int
	SnapshotCacheTTL  time.Duration

	// Report worker
	ReportOrganizations []string
	ReportRetention     int

	LogLevel string
}

var validBackends = []string{"memory", "sqlite", "sheets"}

func Load() *Config {
	return &Config{
		Port:         getEnv("PORT", "8081"),
		RateLimitRPM: getEnvInt("RATE_LIMIT_RPM", 60),

		DataBackend: getEnv("DATA_BACKEND", "memory"),
		DataDir:     getEnv("DATA_DIR", "./data"),

		SQLiteDBPath: getEnv("SQLITE_DB_PATH", "./data/fluxo.db"),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "fluxo"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "ledger_changed"),

		GoogleSpreadsheetID:       getEnv("GOOGLE_SPREADSHEET_ID", ""),
		GoogleLedgerSheet:         getEnv("GOOGLE_LEDGER_SHEET", "Ledger"),
		GoogleGoalsSheet:          getEnv("GOOGLE_GOALS_SHEET", "Goals"),
		GoogleServiceAccountJSON:  getEnv("GOOGLE_SERVICE_ACCOUNT_JSON", ""),
		GoogleServiceAccountFile:  getEnv("GOOGLE_SERVICE_ACCOUNT_FILE", ""),
		GoogleApplicationCredPath: getEnv("GOOGLE_APPLICATION_CREDENTIALS", ""),

		WindowMonths:  getEnvInt("ANALYTICS_WINDOW_MONTHS", analytics.DefaultWindowMonths),
		TopCategories: getEnvInt("ANALYTICS_TOP_CATEGORIES", analytics.DefaultTopCategories),
		Timezone:      getEnv("ANALYTICS_TIMEZONE", "UTC"),
		ColorPolicy:   getEnv("ANALYTICS_COLOR_POLICY", string(analytics.ColorByRank)),
		TagsFile:      getEnv("ANALYTICS_TAGS_FILE", ""),

		SnapshotCacheSize: getEnvInt("SNAPSHOT_CACHE_SIZE", 100),
		SnapshotCacheTTL:  getEnvDuration("SNAPSHOT_CACHE_TTL", 5*time.Minute),

		ReportOrganizations: getEnvList("REPORT_ORGANIZATIONS"),
		ReportRetention:     getEnvInt("REPORT_RETENTION", 10),

		LogLevel: getEnv("LOG_LEVEL", "info"),
	}
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	if c.RateLimitRPM < 1 {
		errors = append(errors, fmt.Sprintf("invalid rate limit %d: must be at least 1 request per minute", c.RateLimitRPM))
	}

	if !slices.Contains(validBackends, c.DataBackend) {
		errors = append(errors, fmt.Sprintf("invalid data backend '%s': must be one of %v", c.DataBackend, validBackends))
	}

	switch c.DataBackend {
	case "memory":
		if c.DataDir == "" {
			errors = append(errors, "data directory cannot be empty when using memory backend")
		}
	case "sqlite":
		if c.SQLiteDBPath == "" {
			errors = append(errors, "SQLite database path cannot be empty when using sqlite backend")
		} else {
			dir := filepath.Dir(c.SQLiteDBPath)
			if dir != "." && dir != "" {
				if _, err := os.Stat(dir); os.IsNotExist(err) {
					if err := os.MkdirAll(dir, 0755); err != nil {
						errors = append(errors, fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err))
					}
				}
			}
		}
	case "sheets":
		if c.GoogleSpreadsheetID == "" {
			errors = append(errors, "Google Spreadsheet ID is required when using sheets backend")
		}
		if c.GoogleLedgerSheet == "" {
			errors = append(errors, "Google ledger sheet name is required when using sheets backend")
		}
		if c.GoogleServiceAccountJSON == "" && c.GoogleServiceAccountFile == "" && c.GoogleApplicationCredPath == "" {
			errors = append(errors, "one of GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE or GOOGLE_APPLICATION_CREDENTIALS must be provided for sheets backend")
		}
		if c.GoogleServiceAccountFile != "" {
			if _, err := os.Stat(c.GoogleServiceAccountFile); os.IsNotExist(err) {
				errors = append(errors, fmt.Sprintf("Google service account file does not exist: %s", c.GoogleServiceAccountFile))
			}
		}
	}

	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			errors = append(errors, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	if c.WindowMonths < 1 || c.WindowMonths > 120 {
		errors = append(errors, fmt.Sprintf("invalid analytics window %d: must be between 1 and 120 months", c.WindowMonths))
	}
	if c.TopCategories < 1 || c.TopCategories > 50 {
		errors = append(errors, fmt.Sprintf("invalid analytics top categories %d: must be between 1 and 50", c.TopCategories))
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		errors = append(errors, fmt.Sprintf("invalid analytics timezone '%s': %v", c.Timezone, err))
	}
	if _, ok := analytics.ParseColorPolicy(c.ColorPolicy); !ok {
		errors = append(errors, fmt.Sprintf("invalid analytics color policy '%s': must be 'rank' or 'hash'", c.ColorPolicy))
	}
	if c.TagsFile != "" {
		if _, err := os.Stat(c.TagsFile); err != nil {
			errors = append(errors, fmt.Sprintf("analytics tags file is not readable: %v", err))
		}
	}

	if c.SnapshotCacheSize < 1 {
		errors = append(errors, fmt.Sprintf("invalid snapshot cache size %d: must be at least 1", c.SnapshotCacheSize))
	}
	if c.SnapshotCacheTTL < time.Second {
		errors = append(errors, fmt.Sprintf("invalid snapshot cache TTL %v: must be at least 1 second", c.SnapshotCacheTTL))
	}

	if c.ReportRetention < 1 {
		errors = append(errors, fmt.Sprintf("invalid report retention %d: must keep at least 1 report", c.ReportRetention))
	}

	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		errors = append(errors, fmt.Sprintf("invalid log level: %v", err))
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

// AnalyticsOptions builds engine options from the analytics settings and the
// optional tags file. The config must have passed Validate.
func (c *Config) AnalyticsOptions() (analytics.Options, error) {
	opts := analytics.DefaultOptions()
	opts.WindowMonths = c.WindowMonths
	opts.TopCategories = c.TopCategories

	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return analytics.Options{}, fmt.Errorf("load timezone: %w", err)
	}
	opts.Location = loc

	if policy, ok := analytics.ParseColorPolicy(c.ColorPolicy); ok {
		opts.ColorPolicy = policy
	}

	if c.TagsFile != "" {
		tags, err := LoadTags(c.TagsFile)
		if err != nil {
			return analytics.Options{}, err
		}
		tags.Apply(&opts)
	}

	if err := opts.Validate(); err != nil {
		return analytics.Options{}, err
	}
	return opts, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

// getEnvList splits a comma separated variable, dropping blanks.
func getEnvList(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
