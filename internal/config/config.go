package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the tracker
type Config struct {
	// Polling
	PollInterval    time.Duration `validate:"gt=0"`
	ProviderTimeout time.Duration `validate:"gt=0"`
	Provider        string        `validate:"required,oneof=gps network passive"`

	// External commands
	LocationCommand   string `validate:"required"`
	WakeLockCommand   string
	WakeUnlockCommand string
	WakeLockEnabled   bool

	// Output
	RecordsDir string `validate:"required"`
	LogsDir    string

	// Run journal (empty path disables it)
	DatabasePath      string
	RetentionDuration time.Duration `validate:"gte=0"`

	// Browse API
	ServeAddr      string `validate:"required"`
	AllowedOrigins []string
}

// FileConfig is the optional YAML overlay. Zero values leave the
// environment/default value untouched.
type FileConfig struct {
	IntervalSeconds   int      `yaml:"interval_seconds" validate:"gte=0"`
	TimeoutSeconds    int      `yaml:"timeout_seconds" validate:"gte=0"`
	Provider          string   `yaml:"provider" validate:"omitempty,oneof=g n p gps network passive"`
	LocationCommand   string   `yaml:"location_command"`
	WakeLockCommand   string   `yaml:"wakelock_command"`
	WakeUnlockCommand string   `yaml:"wakeunlock_command"`
	WakeLock          *bool    `yaml:"wakelock"`
	RecordsDir        string   `yaml:"records_dir"`
	LogsDir           string   `yaml:"logs_dir"`
	DatabasePath      *string  `yaml:"database_path"`
	RetentionDays     int      `yaml:"retention_days" validate:"gte=0"`
	ServeAddr         string   `yaml:"serve_addr"`
	AllowedOrigins    []string `yaml:"allowed_origins"`
}

// Load reads configuration from environment variables with sensible defaults
func Load() *Config {
	return &Config{
		// Polling
		PollInterval:    time.Duration(getEnvInt("TRACKER_INTERVAL", 60)) * time.Second,
		ProviderTimeout: time.Duration(getEnvInt("TRACKER_TIMEOUT", 10)) * time.Second,
		Provider:        NormalizeProvider(getEnv("TRACKER_PROVIDER", "n")),

		// External commands
		LocationCommand:   getEnv("TRACKER_LOCATION_CMD", "termux-location"),
		WakeLockCommand:   getEnv("TRACKER_WAKELOCK_CMD", "termux-wake-lock"),
		WakeUnlockCommand: getEnv("TRACKER_WAKEUNLOCK_CMD", "termux-wake-unlock"),
		WakeLockEnabled:   getEnvBool("TRACKER_WAKELOCK", true),

		// Output
		RecordsDir: getEnv("TRACKER_RECORDS_DIR", "records"),
		LogsDir:    getEnv("TRACKER_LOGS_DIR", "logs"),

		// Run journal
		DatabasePath:      getEnv("TRACKER_DATABASE", "tracker.db"),
		RetentionDuration: time.Duration(getEnvInt("TRACKER_RETENTION_DAYS", 90)) * 24 * time.Hour,

		// Browse API
		ServeAddr:      getEnv("TRACKER_SERVE_ADDR", ":8090"),
		AllowedOrigins: splitList(getEnv("TRACKER_ALLOWED_ORIGINS", "*")),
	}
}

// LoadFile overlays a YAML config file on top of cfg
func (c *Config) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	var fc FileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	if err := validator.New().Struct(fc); err != nil {
		return fmt.Errorf("invalid config file %s: %w", path, err)
	}

	if fc.IntervalSeconds > 0 {
		c.PollInterval = time.Duration(fc.IntervalSeconds) * time.Second
	}
	if fc.TimeoutSeconds > 0 {
		c.ProviderTimeout = time.Duration(fc.TimeoutSeconds) * time.Second
	}
	if fc.Provider != "" {
		c.Provider = NormalizeProvider(fc.Provider)
	}
	if fc.LocationCommand != "" {
		c.LocationCommand = fc.LocationCommand
	}
	if fc.WakeLockCommand != "" {
		c.WakeLockCommand = fc.WakeLockCommand
	}
	if fc.WakeUnlockCommand != "" {
		c.WakeUnlockCommand = fc.WakeUnlockCommand
	}
	if fc.WakeLock != nil {
		c.WakeLockEnabled = *fc.WakeLock
	}
	if fc.RecordsDir != "" {
		c.RecordsDir = fc.RecordsDir
	}
	if fc.LogsDir != "" {
		c.LogsDir = fc.LogsDir
	}
	// An explicit empty string disables the journal
	if fc.DatabasePath != nil {
		c.DatabasePath = *fc.DatabasePath
	}
	if fc.RetentionDays > 0 {
		c.RetentionDuration = time.Duration(fc.RetentionDays) * 24 * time.Hour
	}
	if fc.ServeAddr != "" {
		c.ServeAddr = fc.ServeAddr
	}
	if len(fc.AllowedOrigins) > 0 {
		c.AllowedOrigins = fc.AllowedOrigins
	}

	return nil
}

// Validate checks the final configuration after all overlays are applied
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// NormalizeProvider maps the short selectors g/n/p to provider names.
// Unknown values are returned lower-cased so validation can reject them.
func NormalizeProvider(s string) string {
	switch s = strings.ToLower(strings.TrimSpace(s)); s {
	case "g":
		return "gps"
	case "n":
		return "network"
	case "p":
		return "passive"
	}
	return s
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
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

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
