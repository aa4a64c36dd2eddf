package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// Config holds every tunable of the service. Values come from an optional YAML
// file (CONFIG_FILE), then environment variables (and .env) override them.
type Config struct {
	DB     DBConfig     `yaml:"db"`
	Redis  RedisConfig  `yaml:"redis"`
	HTTP   HTTPConfig   `yaml:"http"`
	Log    LogConfig    `yaml:"log"`
	Engine EngineConfig `yaml:"engine"`
}

type DBConfig struct {
	Driver     string `yaml:"driver"` // "postgres" or "sqlite"
	Host       string `yaml:"host"`
	Port       string `yaml:"port"`
	User       string `yaml:"user"`
	Password   string `yaml:"password"`
	Name       string `yaml:"name"`
	SSLMode    string `yaml:"sslmode"`
	TimeZone   string `yaml:"timezone"`
	SQLitePath string `yaml:"sqlite_path"`
}

// RedisConfig configures the live-status cache. An empty Addr disables it.
type RedisConfig struct {
	Addr      string        `yaml:"addr"`
	Password  string        `yaml:"password"`
	DB        int           `yaml:"db"`
	StatusTTL time.Duration `yaml:"status_ttl"`
}

type HTTPConfig struct {
	Addr string `yaml:"addr"`
}

type LogConfig struct {
	File       string `yaml:"file"`
	Level      string `yaml:"level"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
	Stdout     bool   `yaml:"stdout"`
}

// EngineConfig carries the matching thresholds and windows.
type EngineConfig struct {
	TickInterval          time.Duration `yaml:"tick_interval"`
	RefreshTimeout        time.Duration `yaml:"refresh_timeout"`
	RefreshQueueSize      int           `yaml:"refresh_queue_size"`
	DefaultGeofenceRadius float64       `yaml:"default_geofence_radius"` // meters
	ReceptionThreshold    float64       `yaml:"reception_threshold"`
	MaxReadingGap         time.Duration `yaml:"max_reading_gap"`
	MatchWindow           time.Duration `yaml:"match_window"`
	DedupWindow           time.Duration `yaml:"dedup_window"`
	PendingTimeout        time.Duration `yaml:"pending_timeout"`
	DiscrepancyThreshold  float64       `yaml:"discrepancy_threshold"` // percent
}

// Default returns the configuration used when nothing is overridden.
func Default() *Config {
	return &Config{
		DB: DBConfig{
			Driver:     "postgres",
			Host:       "localhost",
			Port:       "5432",
			User:       "fuel_admin",
			Password:   "password",
			Name:       "fuel_management",
			SSLMode:    "disable",
			TimeZone:   "UTC",
			SQLitePath: "fuel_tracker.db",
		},
		Redis: RedisConfig{StatusTTL: 10 * time.Minute},
		HTTP:  HTTPConfig{Addr: "0.0.0.0:8080"},
		Log: LogConfig{
			File:       "./logs/app.log",
			Level:      "info",
			MaxSizeMB:  10,
			MaxBackups: 7,
			MaxAgeDays: 7,
		},
		Engine: EngineConfig{
			TickInterval:          60 * time.Minute,
			RefreshTimeout:        30 * time.Second,
			RefreshQueueSize:      16,
			DefaultGeofenceRadius: 50,
			ReceptionThreshold:    5,
			MaxReadingGap:         time.Hour,
			MatchWindow:           30 * time.Minute,
			DedupWindow:           time.Hour,
			PendingTimeout:        time.Hour,
			DiscrepancyThreshold:  5,
		},
	}
}

// Load builds the configuration: defaults, then CONFIG_FILE, then env.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		logrus.Debug("No .env file found – relying on env vars")
	}

	cfg := Default()
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := loadFile(path, cfg); err != nil {
			return nil, err
		}
	}
	if err := applyEnv(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config: read file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("config: decode yaml: %w", err)
	}
	return nil
}

func applyEnv(cfg *Config) error {
	cfg.DB.Driver = getEnv("DB_DRIVER", cfg.DB.Driver)
	cfg.DB.Host = getEnv("DB_HOST", cfg.DB.Host)
	cfg.DB.Port = getEnv("DB_PORT", cfg.DB.Port)
	cfg.DB.User = getEnv("DB_USER", cfg.DB.User)
	cfg.DB.Password = getEnv("DB_PASSWORD", cfg.DB.Password)
	cfg.DB.Name = getEnv("DB_NAME", cfg.DB.Name)
	cfg.DB.SSLMode = getEnv("DB_SSLMODE", cfg.DB.SSLMode)
	cfg.DB.TimeZone = getEnv("DB_TIMEZONE", cfg.DB.TimeZone)
	cfg.DB.SQLitePath = getEnv("DB_SQLITE_PATH", cfg.DB.SQLitePath)

	cfg.Redis.Addr = getEnv("REDIS_ADDR", cfg.Redis.Addr)
	cfg.Redis.Password = getEnv("REDIS_PASSWORD", cfg.Redis.Password)
	cfg.HTTP.Addr = getEnv("HTTP_ADDR", cfg.HTTP.Addr)

	cfg.Log.File = getEnv("LOG_FILE", cfg.Log.File)
	cfg.Log.Level = getEnv("LOG_LEVEL", cfg.Log.Level)

	var err error
	if cfg.Redis.DB, err = getEnvInt("REDIS_DB", cfg.Redis.DB); err != nil {
		return err
	}
	if cfg.Redis.StatusTTL, err = getEnvDuration("REDIS_STATUS_TTL", cfg.Redis.StatusTTL); err != nil {
		return err
	}
	if cfg.Log.Stdout, err = getEnvBool("LOG_STDOUT", cfg.Log.Stdout); err != nil {
		return err
	}

	e := &cfg.Engine
	if e.TickInterval, err = getEnvDuration("POLL_INTERVAL", e.TickInterval); err != nil {
		return err
	}
	if e.RefreshTimeout, err = getEnvDuration("REFRESH_TIMEOUT", e.RefreshTimeout); err != nil {
		return err
	}
	if e.RefreshQueueSize, err = getEnvInt("REFRESH_QUEUE_SIZE", e.RefreshQueueSize); err != nil {
		return err
	}
	if e.DefaultGeofenceRadius, err = getEnvFloat("GEOZONE_PROXIMITY_METERS", e.DefaultGeofenceRadius); err != nil {
		return err
	}
	if e.ReceptionThreshold, err = getEnvFloat("RECEPTION_THRESHOLD", e.ReceptionThreshold); err != nil {
		return err
	}
	if e.MatchWindow, err = getEnvDuration("MATCH_WINDOW", e.MatchWindow); err != nil {
		return err
	}
	if e.PendingTimeout, err = getEnvDuration("PENDING_TIMEOUT", e.PendingTimeout); err != nil {
		return err
	}
	if e.DiscrepancyThreshold, err = getEnvFloat("DISCREPANCY_THRESHOLD", e.DiscrepancyThreshold); err != nil {
		return err
	}
	return nil
}

// Validate rejects configurations the engine cannot run with.
func (c *Config) Validate() error {
	switch c.DB.Driver {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("config: unsupported DB_DRIVER %q", c.DB.Driver)
	}
	e := c.Engine
	if e.TickInterval <= 0 {
		return fmt.Errorf("config: tick interval must be positive, got %s", e.TickInterval)
	}
	if e.RefreshTimeout <= 0 {
		return fmt.Errorf("config: refresh timeout must be positive, got %s", e.RefreshTimeout)
	}
	if e.DefaultGeofenceRadius <= 0 {
		return fmt.Errorf("config: default geofence radius must be positive, got %v", e.DefaultGeofenceRadius)
	}
	if e.MatchWindow <= 0 || e.PendingTimeout <= 0 || e.DedupWindow <= 0 || e.MaxReadingGap <= 0 {
		return fmt.Errorf("config: engine windows must be positive")
	}
	return nil
}

// getEnv reads an environment variable or returns the provided default
func getEnv(key, defaultValue string) string {
	if v, exists := os.LookupEnv(key); exists && strings.TrimSpace(v) != "" {
		return v
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) (int, error) {
	v := getEnv(key, "")
	if v == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("config: parse %s: %w", key, err)
	}
	return n, nil
}

func getEnvFloat(key string, defaultValue float64) (float64, error) {
	v := getEnv(key, "")
	if v == "" {
		return defaultValue, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("config: parse %s: %w", key, err)
	}
	return f, nil
}

func getEnvBool(key string, defaultValue bool) (bool, error) {
	v := getEnv(key, "")
	if v == "" {
		return defaultValue, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("config: parse %s: %w", key, err)
	}
	return b, nil
}

// getEnvDuration accepts Go durations ("90s", "15m") or a bare number of minutes,
// which is how POLL_INTERVAL has always been expressed.
func getEnvDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	v := getEnv(key, "")
	if v == "" {
		return defaultValue, nil
	}
	if n, err := strconv.Atoi(v); err == nil {
		return time.Duration(n) * time.Minute, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("config: parse %s: %w", key, err)
	}
	return d, nil
}
