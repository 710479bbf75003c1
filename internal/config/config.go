package config

import (
	"errors"
	"fmt"
	"os"

	"spacebook/internal/models"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	App        AppConfig        `yaml:"app"`
	Database   DatabaseConfig   `yaml:"database"`
	Redis      RedisConfig      `yaml:"redis"`
	Monitoring MonitoringConfig `yaml:"monitoring"`
	Logging    LoggingConfig    `yaml:"logging"`
	API        APIConfig        `yaml:"api"`
	Booking    BookingConfig    `yaml:"booking"`
	Backup     BackupConfig     `yaml:"backup"`
	Exports    ExportConfig     `yaml:"exports"`
	Google     GoogleConfig     `yaml:"google"`
}

type BackupConfig struct {
	Enabled       bool   `yaml:"enabled"`
	Schedule      string `yaml:"schedule"`
	RetentionDays int    `yaml:"retention_days"`
	StoragePath   string `yaml:"storage_path"`
}

// BookingConfig holds the scheduling policy knobs. Step and buffer feed the
// busy-slot calculator; the window/cap pair is the rolling pending limit.
// Self-conflict detection inspects only the user's pending reservations
// unless SelfConflictIncludeApproved is set.
type BookingConfig struct {
	SlotStepMinutes             int  `yaml:"slot_step_minutes"`
	SlotBufferMinutes           int  `yaml:"slot_buffer_minutes"`
	MaxDurationMinutes          int  `yaml:"max_duration_minutes"`
	PendingWindowDays           int  `yaml:"pending_window_days"`
	MaxPendingInWindow          int  `yaml:"max_pending_in_window"`
	SelfConflictIncludeApproved bool `yaml:"self_conflict_include_approved"`
	UserLockTTLSeconds          int  `yaml:"user_lock_ttl_seconds"`
}

type APIConfig struct {
	Enabled   bool               `yaml:"enabled"`
	HTTP      APIHTTPConfig      `yaml:"http"`
	Auth      APIAuthConfig      `yaml:"auth"`
	RateLimit APIRateLimitConfig `yaml:"rate_limit"`
}

type APIHTTPConfig struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"`
}

type APIAuthConfig struct {
	Enabled      bool           `yaml:"enabled"`
	HeaderAPIKey string         `yaml:"header_api_key"`
	APIKeys      []APIClientKey `yaml:"api_keys"`
}

type APIClientKey struct {
	Key         string   `yaml:"key"`
	Name        string   `yaml:"name"`
	Permissions []string `yaml:"permissions"`
}

type APIRateLimitConfig struct {
	RPS   float64 `yaml:"rps"`
	Burst int     `yaml:"burst"`
}

type ExportConfig struct {
	Path string `yaml:"path"`
}

type AppConfig struct {
	Name        string `yaml:"name"`
	Environment string `yaml:"environment"`
	Version     string `yaml:"version"`
}

type DatabaseConfig struct {
	Path string `yaml:"path"`
}

type RedisConfig struct {
	Address  string `yaml:"address"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	PoolSize int    `yaml:"pool_size"`
}

type MonitoringConfig struct {
	PrometheusEnabled bool `yaml:"prometheus_enabled"`
	PrometheusPort    int  `yaml:"prometheus_port"`
}

type LoggingConfig struct {
	Level    string `yaml:"level"`
	Format   string `yaml:"format"`
	Output   string `yaml:"output"`
	FilePath string `yaml:"file_path"`
}

type GoogleConfig struct {
	CredentialsFile         string `yaml:"credentials_file"`
	ReservationsSpreadsheet string `yaml:"reservations_spreadsheet_id"`
}

func Load(configPath string) (*Config, error) {
	// .env дополняет окружение, но не обязателен
	_ = godotenv.Load(".env")

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, err
	}

	// Предварительная замена переменных окружения в YAML
	expandedData := []byte(os.ExpandEnv(string(data)))

	var config Config
	if err := yaml.Unmarshal(expandedData, &config); err != nil {
		return nil, err
	}

	config.applyDefaults()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

func (c *Config) Validate() error {
	if c.Database.Path == "" {
		return errors.New("database path is required")
	}
	if c.Booking.SlotStepMinutes <= 0 {
		return errors.New("booking slot step must be positive")
	}
	if c.Booking.SlotBufferMinutes < 0 {
		return errors.New("booking slot buffer cannot be negative")
	}
	if c.Booking.MaxDurationMinutes <= 0 {
		return errors.New("booking max duration must be positive")
	}
	if c.Booking.MaxPendingInWindow <= 0 {
		return errors.New("booking pending cap must be positive")
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.API.HTTP.Port == 0 {
		c.API.HTTP.Port = 8080
	}
	if c.Monitoring.PrometheusEnabled && c.Monitoring.PrometheusPort == 0 {
		c.Monitoring.PrometheusPort = 9090
	}
	if !c.API.HTTP.Enabled && c.API.Enabled {
		c.API.HTTP.Enabled = true
	}
	if c.API.Auth.HeaderAPIKey == "" {
		c.API.Auth.HeaderAPIKey = "x-api-key"
	}

	// Booking policy defaults
	if c.Booking.SlotStepMinutes == 0 {
		c.Booking.SlotStepMinutes = models.DefaultSlotStepMinutes
	}
	if c.Booking.SlotBufferMinutes == 0 {
		c.Booking.SlotBufferMinutes = models.DefaultSlotBufferMinutes
	}
	if c.Booking.MaxDurationMinutes == 0 {
		c.Booking.MaxDurationMinutes = models.DefaultMaxDurationMinutes
	}
	if c.Booking.PendingWindowDays == 0 {
		c.Booking.PendingWindowDays = models.DefaultPendingWindowDays
	}
	if c.Booking.MaxPendingInWindow == 0 {
		c.Booking.MaxPendingInWindow = models.DefaultMaxPendingInWindow
	}
	if c.Booking.UserLockTTLSeconds == 0 {
		c.Booking.UserLockTTLSeconds = models.DefaultUserLockTTLSeconds
	}
}
