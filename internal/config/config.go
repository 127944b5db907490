package config

import (
	"errors"
	"fmt"
	"net/netip"
	"os"
	"strings"
	"time"

	"salonbook/internal/models"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	App        AppConfig        `yaml:"app"`
	Database   DatabaseConfig   `yaml:"database"`
	Redis      RedisConfig      `yaml:"redis"`
	Backup     BackupConfig     `yaml:"backup"`
	Monitoring MonitoringConfig `yaml:"monitoring"`
	Logging    LoggingConfig    `yaml:"logging"`
	API        APIConfig        `yaml:"api"`
	Booking    BookingConfig    `yaml:"booking"`
	Events     EventsConfig     `yaml:"events"`
}

type AppConfig struct {
	Name        string `yaml:"name"`
	Environment string `yaml:"environment"`
	Version     string `yaml:"version"`
}

type APIConfig struct {
	HTTP      APIHTTPConfig      `yaml:"http"`
	RateLimit APIRateLimitConfig `yaml:"rate_limit"`
}

type APIHTTPConfig struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"`
}

type APIRateLimitConfig struct {
	RPS   float64 `yaml:"rps"`
	Burst int     `yaml:"burst"`
	// TrustedProxies lists addresses or CIDRs whose X-Forwarded-For is honoured.
	TrustedProxies []string      `yaml:"trusted_proxies"`
	IdleTTL        time.Duration `yaml:"idle_ttl"`
}

type DatabaseConfig struct {
	Path        string        `yaml:"path"`
	BusyTimeout time.Duration `yaml:"busy_timeout"`
}

type RedisConfig struct {
	Address  string `yaml:"address"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	PoolSize int    `yaml:"pool_size"`
}

type BackupConfig struct {
	Enabled       bool          `yaml:"enabled"`
	Interval      time.Duration `yaml:"interval"`
	RetentionDays int           `yaml:"retention_days"`
	StoragePath   string        `yaml:"storage_path"`
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

// BookingConfig holds the knobs of the hold/availability core.
type BookingConfig struct {
	Timezone      string        `yaml:"timezone"`
	HoldTTL       time.Duration `yaml:"hold_ttl"`
	SlotInterval  time.Duration `yaml:"slot_interval"`
	SweepInterval time.Duration `yaml:"sweep_interval"`
	CatalogPath   string        `yaml:"catalog_path"`
	// Hold attempts allowed per session within SessionLimitWindow. Zero disables the limit.
	SessionHoldLimit   int           `yaml:"session_hold_limit"`
	SessionLimitWindow time.Duration `yaml:"session_limit_window"`
}

type EventsConfig struct {
	Kafka KafkaConfig `yaml:"kafka"`
}

type KafkaConfig struct {
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic"`
}

func Load(configPath string) (*Config, error) {
	// .env is optional outside of local development
	if err := godotenv.Load(".env"); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, err
	}

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

	if _, err := time.LoadLocation(c.Booking.Timezone); err != nil {
		return fmt.Errorf("invalid booking timezone %q: %w", c.Booking.Timezone, err)
	}

	if c.Booking.HoldTTL <= 0 {
		return errors.New("booking.hold_ttl must be positive")
	}

	if c.Booking.SlotInterval <= 0 || c.Booking.SlotInterval%time.Minute != 0 {
		return errors.New("booking.slot_interval must be a positive whole number of minutes")
	}

	for _, proxy := range c.API.RateLimit.TrustedProxies {
		if _, err := ParseTrustedProxy(proxy); err != nil {
			return err
		}
	}

	if len(c.Events.Kafka.Brokers) > 0 && c.Events.Kafka.Topic == "" {
		return errors.New("events.kafka.topic is required when brokers are set")
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
	if c.API.RateLimit.IdleTTL == 0 {
		c.API.RateLimit.IdleTTL = 10 * time.Minute
	}
	if c.Database.BusyTimeout == 0 {
		c.Database.BusyTimeout = 5 * time.Second
	}
	if c.Backup.Enabled && c.Backup.Interval == 0 {
		c.Backup.Interval = 24 * time.Hour
	}

	if c.Booking.Timezone == "" {
		c.Booking.Timezone = models.BusinessTimezone
	}
	if c.Booking.HoldTTL == 0 {
		c.Booking.HoldTTL = models.HoldTTL
	}
	if c.Booking.SlotInterval == 0 {
		c.Booking.SlotInterval = models.SlotInterval
	}
	if c.Booking.SessionHoldLimit > 0 && c.Booking.SessionLimitWindow == 0 {
		c.Booking.SessionLimitWindow = time.Minute
	}
}

// ParseTrustedProxy accepts a CIDR such as 10.0.0.0/8 or a single address.
func ParseTrustedProxy(value string) (netip.Prefix, error) {
	value = strings.TrimSpace(value)
	if prefix, err := netip.ParsePrefix(value); err == nil {
		return prefix.Masked(), nil
	}
	addr, err := netip.ParseAddr(value)
	if err != nil {
		return netip.Prefix{}, fmt.Errorf("api.rate_limit.trusted_proxies: invalid address %q", value)
	}
	addr = addr.Unmap()
	return netip.PrefixFrom(addr, addr.BitLen()), nil
}
