package config

import (
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"github.com/robfig/cron/v3"
)

type Config struct {
	// HTTP Server
	Port string
	// TrustedProxies are CIDRs, beyond loopback and private ranges, whose
	// forwarding headers are honored.
	TrustedProxies []string

	// Storage
	DataBackend  string
	DataDir      string
	SQLiteDBPath string

	// Gemini
	GeminiAPIKey    string
	GeminiModel     string
	AITimeout       time.Duration
	InsightCacheTTL time.Duration

	// AMQP (optional)
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Google Sheets export of snapshots (optional)
	GoogleSpreadsheetID   string
	GoogleSheetName       string
	GoogleCredentialsJSON string
	GoogleCredentialsFile string

	// Bill reminders (optional)
	SMTPHost           string
	SMTPPort           string
	SMTPUsername       string
	SMTPPassword       string
	ReminderFrom       string
	ReminderTo         []string
	ReminderDays       int
	BillWorkerSchedule string
	AutoResetBills     bool
	// EmbeddedWorker runs the bill schedule inside the web server process.
	EmbeddedWorker bool

	LogLevel string
}

// fileConfig mirrors the TOML layout. Durations are strings ("20s").
type fileConfig struct {
	Server struct {
		Port           string   `toml:"port"`
		TrustedProxies []string `toml:"trusted_proxies"`
	} `toml:"server"`
	Storage struct {
		Backend    string `toml:"backend"`
		DataDir    string `toml:"data_dir"`
		SQLitePath string `toml:"sqlite_path"`
	} `toml:"storage"`
	AI struct {
		APIKey   string `toml:"api_key"`
		Model    string `toml:"model"`
		Timeout  string `toml:"timeout"`
		CacheTTL string `toml:"cache_ttl"`
	} `toml:"ai"`
	AMQP struct {
		URL      string `toml:"url"`
		Exchange string `toml:"exchange"`
		Queue    string `toml:"queue"`
	} `toml:"amqp"`
	Sheets struct {
		SpreadsheetID   string `toml:"spreadsheet_id"`
		SheetName       string `toml:"sheet_name"`
		CredentialsFile string `toml:"credentials_file"`
	} `toml:"sheets"`
	Reminders struct {
		SMTPHost     string   `toml:"smtp_host"`
		SMTPPort     string   `toml:"smtp_port"`
		SMTPUsername string   `toml:"smtp_username"`
		SMTPPassword string   `toml:"smtp_password"`
		From         string   `toml:"from"`
		To           []string `toml:"to"`
		Days         *int     `toml:"days"`
		Schedule     string   `toml:"schedule"`
		AutoReset    *bool    `toml:"auto_reset"`
		Embedded     *bool    `toml:"embedded_worker"`
	} `toml:"reminders"`
	Logging struct {
		Level string `toml:"level"`
	} `toml:"logging"`
}

// Defaults returns the built-in configuration.
func Defaults() *Config {
	return &Config{
		Port:               "8080",
		DataBackend:        "file",
		DataDir:            "./data",
		SQLiteDBPath:       "./data/monthlynet.db",
		GeminiModel:        "gemini-2.5-flash",
		AITimeout:          20 * time.Second,
		InsightCacheTTL:    30 * time.Minute,
		AMQPExchange:       "monthlynet",
		AMQPQueue:          "monthlynet_events",
		GoogleSheetName:    "History",
		SMTPPort:           "587",
		ReminderDays:       3,
		BillWorkerSchedule: "0 8 * * *",
		AutoResetBills:     true,
		LogLevel:           "info",
	}
}

// Load builds the configuration from defaults, then the TOML file named by
// MONTHLYNET_CONFIG (if any), then environment variables.
func Load() (*Config, error) {
	return LoadFromFile(os.Getenv("MONTHLYNET_CONFIG"))
}

// LoadFromFile is Load with an explicit config file path. An empty path
// skips the file layer.
func LoadFromFile(path string) (*Config, error) {
	cfg := Defaults()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file %s: %w", path, err)
		}
		var fc fileConfig
		if err := toml.Unmarshal(data, &fc); err != nil {
			return nil, fmt.Errorf("parse config file %s: %w", path, err)
		}
		if err := cfg.applyFile(fc); err != nil {
			return nil, fmt.Errorf("config file %s: %w", path, err)
		}
	}

	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) applyFile(fc fileConfig) error {
	setString(&c.Port, fc.Server.Port)
	if len(fc.Server.TrustedProxies) > 0 {
		c.TrustedProxies = fc.Server.TrustedProxies
	}
	setString(&c.DataBackend, fc.Storage.Backend)
	setString(&c.DataDir, fc.Storage.DataDir)
	setString(&c.SQLiteDBPath, fc.Storage.SQLitePath)
	setString(&c.GeminiAPIKey, fc.AI.APIKey)
	setString(&c.GeminiModel, fc.AI.Model)
	if fc.AI.Timeout != "" {
		d, err := time.ParseDuration(fc.AI.Timeout)
		if err != nil {
			return fmt.Errorf("ai.timeout: %w", err)
		}
		c.AITimeout = d
	}
	if fc.AI.CacheTTL != "" {
		d, err := time.ParseDuration(fc.AI.CacheTTL)
		if err != nil {
			return fmt.Errorf("ai.cache_ttl: %w", err)
		}
		c.InsightCacheTTL = d
	}
	setString(&c.AMQPURL, fc.AMQP.URL)
	setString(&c.AMQPExchange, fc.AMQP.Exchange)
	setString(&c.AMQPQueue, fc.AMQP.Queue)
	setString(&c.GoogleSpreadsheetID, fc.Sheets.SpreadsheetID)
	setString(&c.GoogleSheetName, fc.Sheets.SheetName)
	setString(&c.GoogleCredentialsFile, fc.Sheets.CredentialsFile)
	setString(&c.SMTPHost, fc.Reminders.SMTPHost)
	setString(&c.SMTPPort, fc.Reminders.SMTPPort)
	setString(&c.SMTPUsername, fc.Reminders.SMTPUsername)
	setString(&c.SMTPPassword, fc.Reminders.SMTPPassword)
	setString(&c.ReminderFrom, fc.Reminders.From)
	if len(fc.Reminders.To) > 0 {
		c.ReminderTo = fc.Reminders.To
	}
	if fc.Reminders.Days != nil {
		c.ReminderDays = *fc.Reminders.Days
	}
	setString(&c.BillWorkerSchedule, fc.Reminders.Schedule)
	if fc.Reminders.AutoReset != nil {
		c.AutoResetBills = *fc.Reminders.AutoReset
	}
	if fc.Reminders.Embedded != nil {
		c.EmbeddedWorker = *fc.Reminders.Embedded
	}
	setString(&c.LogLevel, fc.Logging.Level)
	return nil
}

func (c *Config) applyEnv() {
	c.Port = getEnv("PORT", c.Port)
	if proxies := getEnv("TRUSTED_PROXIES", ""); proxies != "" {
		c.TrustedProxies = splitList(proxies)
	}
	c.DataBackend = getEnv("DATA_BACKEND", c.DataBackend)
	c.DataDir = getEnv("DATA_DIR", c.DataDir)
	c.SQLiteDBPath = getEnv("SQLITE_DB_PATH", c.SQLiteDBPath)

	c.GeminiAPIKey = getEnv("GEMINI_API_KEY", getEnv("API_KEY", c.GeminiAPIKey))
	c.GeminiModel = getEnv("GEMINI_MODEL", c.GeminiModel)
	c.AITimeout = getEnvDuration("AI_TIMEOUT", c.AITimeout)
	c.InsightCacheTTL = getEnvDuration("INSIGHT_CACHE_TTL", c.InsightCacheTTL)

	c.AMQPURL = getEnv("AMQP_URL", c.AMQPURL)
	c.AMQPExchange = getEnv("AMQP_EXCHANGE", c.AMQPExchange)
	c.AMQPQueue = getEnv("AMQP_QUEUE", c.AMQPQueue)

	c.GoogleSpreadsheetID = getEnv("GOOGLE_SPREADSHEET_ID", c.GoogleSpreadsheetID)
	c.GoogleSheetName = getEnv("GOOGLE_SHEET_NAME", c.GoogleSheetName)
	c.GoogleCredentialsJSON = getEnv("GOOGLE_SERVICE_ACCOUNT_JSON", c.GoogleCredentialsJSON)
	c.GoogleCredentialsFile = getEnv("GOOGLE_SERVICE_ACCOUNT_FILE",
		getEnv("GOOGLE_APPLICATION_CREDENTIALS", c.GoogleCredentialsFile))

	c.SMTPHost = getEnv("SMTP_HOST", c.SMTPHost)
	c.SMTPPort = getEnv("SMTP_PORT", c.SMTPPort)
	c.SMTPUsername = getEnv("SMTP_USERNAME", c.SMTPUsername)
	c.SMTPPassword = getEnv("SMTP_PASSWORD", c.SMTPPassword)
	c.ReminderFrom = getEnv("REMINDER_FROM", c.ReminderFrom)
	if to := getEnv("REMINDER_TO", ""); to != "" {
		c.ReminderTo = splitList(to)
	}
	c.ReminderDays = getEnvInt("REMINDER_DAYS", c.ReminderDays)
	c.BillWorkerSchedule = getEnv("BILL_WORKER_SCHEDULE", c.BillWorkerSchedule)
	c.AutoResetBills = getEnvBool("AUTO_RESET_BILLS", c.AutoResetBills)
	c.EmbeddedWorker = getEnvBool("EMBEDDED_WORKER", c.EmbeddedWorker)

	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)
}

// AIEnabled reports whether a Gemini API key is configured.
func (c *Config) AIEnabled() bool {
	return strings.TrimSpace(c.GeminiAPIKey) != ""
}

// EmailEnabled reports whether SMTP reminders are configured.
func (c *Config) EmailEnabled() bool {
	return c.SMTPHost != ""
}

// SheetsEnabled reports whether snapshots are mirrored to Google Sheets.
func (c *Config) SheetsEnabled() bool {
	return c.GoogleSpreadsheetID != ""
}

// AMQPEnabled reports whether events are published to a broker.
func (c *Config) AMQPEnabled() bool {
	return c.AMQPURL != ""
}

// SlogLevel maps LogLevel to a slog level, defaulting to info.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	// Validate port
	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	// Validate data backend
	validBackends := []string{"file", "sqlite", "memory"}
	isValidBackend := false
	for _, backend := range validBackends {
		if c.DataBackend == backend {
			isValidBackend = true
			break
		}
	}
	if !isValidBackend {
		errors = append(errors, fmt.Sprintf("invalid data backend '%s': must be one of %v", c.DataBackend, validBackends))
	}

	switch c.DataBackend {
	case "file":
		if c.DataDir == "" {
			errors = append(errors, "data directory cannot be empty when using file backend")
		}
	case "sqlite":
		if c.SQLiteDBPath == "" {
			errors = append(errors, "SQLite database path cannot be empty when using sqlite backend")
		} else if dir := filepath.Dir(c.SQLiteDBPath); dir != "." && dir != "" {
			if _, err := os.Stat(dir); os.IsNotExist(err) {
				if err := os.MkdirAll(dir, 0755); err != nil {
					errors = append(errors, fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err))
				}
			}
		}
	}

	if c.GeminiModel == "" {
		errors = append(errors, "Gemini model name cannot be empty")
	}
	if c.AITimeout < time.Second {
		errors = append(errors, fmt.Sprintf("invalid AI timeout %v: must be at least 1 second", c.AITimeout))
	} else if c.AITimeout > 2*time.Minute {
		errors = append(errors, fmt.Sprintf("invalid AI timeout %v: must be at most 2 minutes", c.AITimeout))
	}
	if c.InsightCacheTTL < 0 {
		errors = append(errors, fmt.Sprintf("invalid insight cache TTL %v: must not be negative", c.InsightCacheTTL))
	}

	// Validate AMQP URL if provided
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

	if c.GoogleSpreadsheetID != "" && c.GoogleCredentialsJSON == "" && c.GoogleCredentialsFile == "" {
		errors = append(errors, "Google service account credentials are required when GOOGLE_SPREADSHEET_ID is set")
	}

	// Validate reminder configuration if SMTP is enabled
	if c.SMTPHost != "" {
		if port, err := strconv.Atoi(c.SMTPPort); err != nil || port < 1 || port > 65535 {
			errors = append(errors, fmt.Sprintf("invalid SMTP port '%s'", c.SMTPPort))
		}
		if c.ReminderFrom == "" {
			errors = append(errors, "REMINDER_FROM is required when SMTP_HOST is set")
		}
		if len(c.ReminderTo) == 0 {
			errors = append(errors, "REMINDER_TO is required when SMTP_HOST is set")
		}
	}
	if c.ReminderDays < 0 || c.ReminderDays > 31 {
		errors = append(errors, fmt.Sprintf("invalid reminder days %d: must be between 0 and 31", c.ReminderDays))
	}
	if _, err := cron.ParseStandard(c.BillWorkerSchedule); err != nil {
		errors = append(errors, fmt.Sprintf("invalid bill worker schedule '%s': %v", c.BillWorkerSchedule, err))
	}

	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "warning", "error":
	default:
		errors = append(errors, fmt.Sprintf("invalid log level '%s': must be debug, info, warn or error", c.LogLevel))
	}

	// Return combined errors
	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
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

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
