package common

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Config represents the application configuration
type Config struct {
	Environment   string             `toml:"environment"` // "development" or "production"
	Server        ServerConfig       `toml:"server"`
	Queue         QueueConfig        `toml:"queue"`
	Storage       StorageConfig      `toml:"storage"`
	Workflow      WorkflowConfig     `toml:"workflow"`
	Notifications NotificationConfig `toml:"notifications"`
	WebSocket     WebSocketConfig    `toml:"websocket"`
	Logging       LoggingConfig      `toml:"logging"`
}

type ServerConfig struct {
	Port int    `toml:"port"`
	Host string `toml:"host"`
}

type QueueConfig struct {
	QueueName         string `toml:"queue_name"`         // Queue name prefix in Badger
	PollInterval      string `toml:"poll_interval"`      // e.g., "1s" - how often workers poll for messages
	Concurrency       int    `toml:"concurrency"`        // Number of concurrent workers
	VisibilityTimeout string `toml:"visibility_timeout"` // e.g., "5m" - message visibility timeout for redelivery
	MaxAttempts       int    `toml:"max_attempts"`       // Max delivery attempts before a message lands in the failed set
	RetryBaseDelay    string `toml:"retry_base_delay"`   // Backoff base delay, doubled on each retry
	SweepSchedule     string `toml:"sweep_schedule"`     // Cron schedule for the stalled/failed maintenance sweep
}

type StorageConfig struct {
	Badger BadgerConfig `toml:"badger"`
}

// BadgerConfig represents BadgerDB-specific configuration
type BadgerConfig struct {
	Path           string `toml:"path"`             // Database directory path
	ResetOnStartup bool   `toml:"reset_on_startup"` // Delete database on startup for clean test runs
}

// WorkflowConfig contains tunables for quote -> order -> job progression
type WorkflowConfig struct {
	JobDueDays int `toml:"job_due_days"` // Default production job due date offset in days
}

// NotificationConfig contains SMTP settings and notification routing
type NotificationConfig struct {
	SMTPHost            string `toml:"smtp_host"`
	SMTPPort            int    `toml:"smtp_port"`
	SMTPUsername        string `toml:"smtp_username"`
	SMTPPassword        string `toml:"smtp_password"`
	SMTPFrom            string `toml:"smtp_from"`
	SMTPFromName        string `toml:"smtp_from_name"`
	SMTPUseTLS          bool   `toml:"smtp_use_tls"`
	ProductionTeamEmail string `toml:"production_team_email"` // Destination for production alerts
}

type WebSocketConfig struct {
	Enabled           bool              `toml:"enabled"`
	ThrottleIntervals map[string]string `toml:"throttle_intervals"` // Per-event minimum broadcast interval
}

type LoggingConfig struct {
	Level  string   `toml:"level"`  // "debug", "info", "warn", "error"
	Output []string `toml:"output"` // "stdout", "file"
}

// NewDefaultConfig returns the built-in defaults, overridable by file and env
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Server: ServerConfig{
			Host: "localhost",
			Port: 8190,
		},
		Queue: QueueConfig{
			QueueName:         "printflow",
			PollInterval:      "1s",
			Concurrency:       2,
			VisibilityTimeout: "5m",
			MaxAttempts:       3,
			RetryBaseDelay:    "5s",
			SweepSchedule:     "@every 1m",
		},
		Storage: StorageConfig{
			Badger: BadgerConfig{
				Path:           "./data/printflow",
				ResetOnStartup: false,
			},
		},
		Workflow: WorkflowConfig{
			JobDueDays: 7,
		},
		Notifications: NotificationConfig{
			SMTPPort:     587,
			SMTPUseTLS:   true,
			SMTPFromName: "Printflow",
		},
		WebSocket: WebSocketConfig{
			Enabled: true,
			ThrottleIntervals: map[string]string{
				"queue_stats": "1s", // Max 1 stats broadcast per second
			},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Output: []string{"stdout"},
		},
	}
}

// LoadFromFile loads configuration with priority: default -> file -> env
func LoadFromFile(path string) (*Config, error) {
	config := NewDefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	applyEnvOverrides(config)

	return config, nil
}

// applyEnvOverrides applies environment variable overrides to config
func applyEnvOverrides(config *Config) {
	if env := os.Getenv("PRINTFLOW_ENV"); env != "" {
		config.Environment = env
	} else if env := os.Getenv("GO_ENV"); env != "" {
		config.Environment = env
	}

	if port := os.Getenv("PRINTFLOW_SERVER_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}
	if host := os.Getenv("PRINTFLOW_SERVER_HOST"); host != "" {
		config.Server.Host = host
	}

	if queueName := os.Getenv("PRINTFLOW_QUEUE_NAME"); queueName != "" {
		config.Queue.QueueName = queueName
	}
	if pollInterval := os.Getenv("PRINTFLOW_QUEUE_POLL_INTERVAL"); pollInterval != "" {
		config.Queue.PollInterval = pollInterval
	}
	if concurrency := os.Getenv("PRINTFLOW_QUEUE_CONCURRENCY"); concurrency != "" {
		if c, err := strconv.Atoi(concurrency); err == nil {
			config.Queue.Concurrency = c
		}
	}
	if visibilityTimeout := os.Getenv("PRINTFLOW_QUEUE_VISIBILITY_TIMEOUT"); visibilityTimeout != "" {
		config.Queue.VisibilityTimeout = visibilityTimeout
	}
	if maxAttempts := os.Getenv("PRINTFLOW_QUEUE_MAX_ATTEMPTS"); maxAttempts != "" {
		if m, err := strconv.Atoi(maxAttempts); err == nil {
			config.Queue.MaxAttempts = m
		}
	}
	if baseDelay := os.Getenv("PRINTFLOW_QUEUE_RETRY_BASE_DELAY"); baseDelay != "" {
		config.Queue.RetryBaseDelay = baseDelay
	}

	if badgerPath := os.Getenv("PRINTFLOW_BADGER_PATH"); badgerPath != "" {
		config.Storage.Badger.Path = badgerPath
	}

	if dueDays := os.Getenv("PRINTFLOW_JOB_DUE_DAYS"); dueDays != "" {
		if d, err := strconv.Atoi(dueDays); err == nil {
			config.Workflow.JobDueDays = d
		}
	}

	if host := os.Getenv("PRINTFLOW_SMTP_HOST"); host != "" {
		config.Notifications.SMTPHost = host
	}
	if port := os.Getenv("PRINTFLOW_SMTP_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Notifications.SMTPPort = p
		}
	}
	if username := os.Getenv("PRINTFLOW_SMTP_USERNAME"); username != "" {
		config.Notifications.SMTPUsername = username
	}
	if password := os.Getenv("PRINTFLOW_SMTP_PASSWORD"); password != "" {
		config.Notifications.SMTPPassword = password
	}
	if from := os.Getenv("PRINTFLOW_SMTP_FROM"); from != "" {
		config.Notifications.SMTPFrom = from
	}
	if teamEmail := os.Getenv("PRINTFLOW_PRODUCTION_TEAM_EMAIL"); teamEmail != "" {
		config.Notifications.ProductionTeamEmail = teamEmail
	}

	if level := os.Getenv("PRINTFLOW_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}
	if output := os.Getenv("PRINTFLOW_LOG_OUTPUT"); output != "" {
		config.Logging.Output = strings.Split(output, ",")
	}
}

// ParsePollInterval parses the queue poll interval with a safe fallback
func (c *QueueConfig) ParsePollInterval() time.Duration {
	d, err := time.ParseDuration(c.PollInterval)
	if err != nil || d <= 0 {
		return 1 * time.Second
	}
	return d
}

// ParseVisibilityTimeout parses the visibility timeout with a safe fallback
func (c *QueueConfig) ParseVisibilityTimeout() time.Duration {
	d, err := time.ParseDuration(c.VisibilityTimeout)
	if err != nil || d <= 0 {
		return 5 * time.Minute
	}
	return d
}

// ParseRetryBaseDelay parses the retry backoff base delay with a safe fallback
func (c *QueueConfig) ParseRetryBaseDelay() time.Duration {
	d, err := time.ParseDuration(c.RetryBaseDelay)
	if err != nil || d <= 0 {
		return 5 * time.Second
	}
	return d
}

// JobDueOffset returns the configured job due-date offset as a duration
func (c *WorkflowConfig) JobDueOffset() time.Duration {
	days := c.JobDueDays
	if days <= 0 {
		days = 7
	}
	return time.Duration(days) * 24 * time.Hour
}
