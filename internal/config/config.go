package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"earntracker/internal/core"
)

// ConfigPathEnv names the variable that points at the YAML config file.
const ConfigPathEnv = "EARNTRACKER_CONFIG"

// DefaultRatesURL is the NBU exchange rate endpoint.
const DefaultRatesURL = "https://bank.gov.ua/NBUStatService/v1/statdirectory/exchange"

var defaultConfigFiles = []string{"earntracker.yaml", "earntracker.yml"}

type Config struct {
	// HTTP Server
	Port               string   `yaml:"port"`
	RateLimitPerMinute int      `yaml:"rate_limit_per_minute"`
	TrustedProxies     []string `yaml:"trusted_proxies"`

	// Database
	SQLiteDBPath string `yaml:"sqlite_db_path"`

	// Logging
	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`

	// Auth
	JWTSecret string        `yaml:"jwt_secret"`
	TokenTTL  time.Duration `yaml:"token_ttl"`

	// Exchange rates
	BaseCurrency   string        `yaml:"base_currency"`
	RatesURL       string        `yaml:"rates_url"`
	RatesCacheTTL  time.Duration `yaml:"rates_cache_ttl"`
	RatesCacheSize int           `yaml:"rates_cache_size"`

	// AMQP; an empty URL disables the message bus.
	AMQPURL      string `yaml:"amqp_url"`
	AMQPExchange string `yaml:"amqp_exchange"`
	AMQPQueue    string `yaml:"amqp_queue"`

	// Report export
	ReportBackend         string `yaml:"report_backend"`
	GoogleSpreadsheetID   string `yaml:"google_spreadsheet_id"`
	GoogleSheetName       string `yaml:"google_sheet_name"`
	GoogleCredentialsFile string `yaml:"google_credentials_file"`
	GoogleCredentialsJSON string `yaml:"google_credentials_json"`

	// Worker
	SnapshotBatchSize int           `yaml:"snapshot_batch_size"`
	SnapshotInterval  time.Duration `yaml:"snapshot_interval"`
}

// Defaults returns the configuration used when nothing is set.
func Defaults() *Config {
	return &Config{
		Port:               "8081",
		RateLimitPerMinute: 120,
		SQLiteDBPath:       "./data/earntracker.db",
		LogLevel:           "info",
		LogFormat:          "text",
		TokenTTL:           24 * time.Hour,
		BaseCurrency:       "UAH",
		RatesURL:           DefaultRatesURL,
		RatesCacheTTL:      12 * time.Hour,
		RatesCacheSize:     256,
		AMQPExchange:       "earntracker",
		AMQPQueue:          "period_changed",
		ReportBackend:      "memory",
		SnapshotBatchSize:  20,
		SnapshotInterval:   time.Minute,
	}
}

// Load builds the configuration from defaults, then the YAML file named by
// EARNTRACKER_CONFIG (or earntracker.yaml in the working directory), then
// environment variables. Later sources win.
func Load() (*Config, error) {
	cfg := Defaults()

	path := os.Getenv(ConfigPathEnv)
	if path == "" {
		path = findConfigFile()
	}
	if path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	cfg.applyEnv()
	return cfg, nil
}

func findConfigFile() string {
	for _, loc := range defaultConfigFiles {
		if _, err := os.Stat(loc); err == nil {
			return loc
		}
	}
	return ""
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() {
	setString(&c.Port, "PORT")
	setInt(&c.RateLimitPerMinute, "RATE_LIMIT_PER_MINUTE")
	setList(&c.TrustedProxies, "TRUSTED_PROXIES")
	setString(&c.SQLiteDBPath, "SQLITE_DB_PATH")
	setString(&c.LogLevel, "LOG_LEVEL")
	setString(&c.LogFormat, "LOG_FORMAT")
	setString(&c.JWTSecret, "JWT_SECRET")
	setDuration(&c.TokenTTL, "TOKEN_TTL")
	setString(&c.BaseCurrency, "BASE_CURRENCY")
	setString(&c.RatesURL, "RATES_URL")
	setDuration(&c.RatesCacheTTL, "RATES_CACHE_TTL")
	setInt(&c.RatesCacheSize, "RATES_CACHE_SIZE")
	setString(&c.AMQPURL, "AMQP_URL")
	setString(&c.AMQPExchange, "AMQP_EXCHANGE")
	setString(&c.AMQPQueue, "AMQP_QUEUE")
	setString(&c.ReportBackend, "REPORT_BACKEND")
	setString(&c.GoogleSpreadsheetID, "GOOGLE_SPREADSHEET_ID")
	setString(&c.GoogleSheetName, "GOOGLE_SHEET_NAME")
	setString(&c.GoogleCredentialsFile, "GOOGLE_CREDENTIALS_FILE")
	setString(&c.GoogleCredentialsJSON, "GOOGLE_CREDENTIALS_JSON")
	setInt(&c.SnapshotBatchSize, "SNAPSHOT_BATCH_SIZE")
	setDuration(&c.SnapshotInterval, "SNAPSHOT_INTERVAL")

	c.BaseCurrency = core.NormalizeCurrency(c.BaseCurrency)
}

// BusEnabled reports whether an AMQP broker is configured.
func (c *Config) BusEnabled() bool {
	return c.AMQPURL != ""
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errs []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errs = append(errs, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errs = append(errs, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	if c.RateLimitPerMinute < 0 {
		errs = append(errs, fmt.Sprintf("invalid rate limit %d: must not be negative", c.RateLimitPerMinute))
	}

	if c.SQLiteDBPath == "" {
		errs = append(errs, "SQLite database path cannot be empty")
	}

	if !slices.Contains([]string{"debug", "info", "warn", "error"}, strings.ToLower(c.LogLevel)) {
		errs = append(errs, fmt.Sprintf("invalid log level '%s': must be one of debug, info, warn, error", c.LogLevel))
	}
	if c.LogFormat != "text" && c.LogFormat != "json" {
		errs = append(errs, fmt.Sprintf("invalid log format '%s': must be 'text' or 'json'", c.LogFormat))
	}

	if len(c.JWTSecret) < 16 {
		errs = append(errs, "JWT secret must be at least 16 characters")
	}
	if c.TokenTTL < time.Minute {
		errs = append(errs, fmt.Sprintf("invalid token TTL %v: must be at least 1 minute", c.TokenTTL))
	}

	if !core.IsCurrencyCode(c.BaseCurrency) {
		errs = append(errs, fmt.Sprintf("invalid base currency '%s': must be a 3-letter ISO code", c.BaseCurrency))
	}
	if u, err := url.Parse(c.RatesURL); err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		errs = append(errs, fmt.Sprintf("invalid rates URL '%s': must be http or https", c.RatesURL))
	}
	if c.RatesCacheTTL < 0 {
		errs = append(errs, fmt.Sprintf("invalid rates cache TTL %v: must not be negative", c.RatesCacheTTL))
	}
	if c.RatesCacheSize < 1 {
		errs = append(errs, fmt.Sprintf("invalid rates cache size %d: must be at least 1", c.RatesCacheSize))
	}

	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errs = append(errs, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errs = append(errs, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errs = append(errs, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			errs = append(errs, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	switch c.ReportBackend {
	case "memory":
	case "sheets":
		if c.GoogleSpreadsheetID == "" {
			errs = append(errs, "Google Spreadsheet ID is required when using sheets report backend")
		}
		if c.GoogleSheetName == "" {
			errs = append(errs, "Google Sheet name is required when using sheets report backend")
		}
		if c.GoogleCredentialsFile == "" && c.GoogleCredentialsJSON == "" {
			errs = append(errs, "either GOOGLE_CREDENTIALS_FILE or GOOGLE_CREDENTIALS_JSON must be provided for sheets report backend")
		}
		if c.GoogleCredentialsFile != "" {
			if _, err := os.Stat(c.GoogleCredentialsFile); errors.Is(err, fs.ErrNotExist) {
				errs = append(errs, fmt.Sprintf("Google credentials file does not exist: %s", c.GoogleCredentialsFile))
			}
		}
	default:
		errs = append(errs, fmt.Sprintf("invalid report backend '%s': must be one of [memory sheets]", c.ReportBackend))
	}

	if c.SnapshotBatchSize < 1 {
		errs = append(errs, fmt.Sprintf("invalid snapshot batch size %d: must be at least 1", c.SnapshotBatchSize))
	} else if c.SnapshotBatchSize > 1000 {
		errs = append(errs, fmt.Sprintf("invalid snapshot batch size %d: must be at most 1000", c.SnapshotBatchSize))
	}

	if c.SnapshotInterval < time.Second {
		errs = append(errs, fmt.Sprintf("invalid snapshot interval %v: must be at least 1 second", c.SnapshotInterval))
	} else if c.SnapshotInterval > 24*time.Hour {
		errs = append(errs, fmt.Sprintf("invalid snapshot interval %v: must be at most 24 hours", c.SnapshotInterval))
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errs, "\n- "))
	}

	return nil
}

func setString(dst *string, key string) {
	if value := os.Getenv(key); value != "" {
		*dst = value
	}
}

// setList splits a comma separated value, dropping empty items.
func setList(dst *[]string, key string) {
	value := os.Getenv(key)
	if value == "" {
		return
	}
	var out []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	*dst = out
}

func setInt(dst *int, key string) {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			*dst = i
		}
	}
}

func setDuration(dst *time.Duration, key string) {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			*dst = d
		}
	}
}
