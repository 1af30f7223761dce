package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	HTTP     HTTPConfig     `yaml:"http"`
	Log      LogConfig      `yaml:"log"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	Kafka    KafkaConfig    `yaml:"kafka"`
	Supplier SupplierConfig `yaml:"supplier"`
	Booking  BookingConfig  `yaml:"booking"`
	Worker   WorkerConfig   `yaml:"worker"`
	SMTP     SMTPConfig     `yaml:"smtp"`
}

type HTTPConfig struct {
	Address           string   `yaml:"address"`
	SwaggerDir        string   `yaml:"swagger_dir"`
	AllowOrigins      []string `yaml:"allow_origins"`
	RequestsPerMinute int      `yaml:"requests_per_minute"`
}

type LogConfig struct {
	Env   string `yaml:"env"`
	Level string `yaml:"level"`
}

type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Name     string `yaml:"name"`
	SSLMode  string `yaml:"ssl_mode"`
}

func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s", d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode)
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type KafkaConfig struct {
	Brokers            []string `yaml:"brokers"`
	BookingEventsTopic string   `yaml:"booking_events_topic"`
	NotificationsTopic string   `yaml:"notifications_topic"`
	GroupID            string   `yaml:"group_id"`
}

type SupplierConfig struct {
	BaseURL           string `yaml:"base_url"`
	APIKey            string `yaml:"api_key"`
	TimeoutSeconds    int    `yaml:"timeout_seconds"`
	RequestsPerSecond int    `yaml:"requests_per_second"`
	MaxResults        int    `yaml:"max_results"`
}

type BookingConfig struct {
	SearchCacheTTLSeconds      int    `yaml:"search_cache_ttl_seconds"`
	SessionRetentionMinutes    int    `yaml:"session_retention_minutes"`
	SessionIdleMinutes         int    `yaml:"session_idle_minutes"`
	SweepIntervalSeconds       int    `yaml:"sweep_interval_seconds"`
	SupplierCallTimeoutSeconds int    `yaml:"supplier_call_timeout_seconds"`
	DefaultCurrency            string `yaml:"default_currency"`
}

func (b BookingConfig) SearchCacheTTL() time.Duration {
	return time.Duration(b.SearchCacheTTLSeconds) * time.Second
}

func (b BookingConfig) SessionRetention() time.Duration {
	return time.Duration(b.SessionRetentionMinutes) * time.Minute
}

func (b BookingConfig) SessionIdle() time.Duration {
	return time.Duration(b.SessionIdleMinutes) * time.Minute
}

func (b BookingConfig) SweepInterval() time.Duration {
	return time.Duration(b.SweepIntervalSeconds) * time.Second
}

func (b BookingConfig) SupplierCallTimeout() time.Duration {
	return time.Duration(b.SupplierCallTimeoutSeconds) * time.Second
}

type WorkerConfig struct {
	ReconcileSchedule     string `yaml:"reconcile_schedule"`
	ReconcileAfterMinutes int    `yaml:"reconcile_after_minutes"`
}

type SMTPConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	From     string `yaml:"from"`
}

// LoadConfig reads a YAML file after applying an optional .env next to the
// process. ${VAR} references in the file are expanded from the environment.
func LoadConfig(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.HTTP.Address == "" {
		c.HTTP.Address = ":8080"
	}
	if c.HTTP.RequestsPerMinute == 0 {
		c.HTTP.RequestsPerMinute = 600
	}
	if c.Log.Env == "" {
		c.Log.Env = "development"
	}
	if c.Booking.DefaultCurrency == "" {
		c.Booking.DefaultCurrency = "USD"
	}
	if c.Booking.SearchCacheTTLSeconds == 0 {
		c.Booking.SearchCacheTTLSeconds = 900
	}
	if c.Booking.SessionRetentionMinutes == 0 {
		c.Booking.SessionRetentionMinutes = 30
	}
	if c.Booking.SessionIdleMinutes == 0 {
		c.Booking.SessionIdleMinutes = 120
	}
	if c.Booking.SweepIntervalSeconds == 0 {
		c.Booking.SweepIntervalSeconds = 60
	}
	if c.Booking.SupplierCallTimeoutSeconds == 0 {
		c.Booking.SupplierCallTimeoutSeconds = 60
	}
	if c.Worker.ReconcileSchedule == "" {
		c.Worker.ReconcileSchedule = "*/5 * * * *"
	}
	if c.Worker.ReconcileAfterMinutes == 0 {
		c.Worker.ReconcileAfterMinutes = 10
	}
	if c.SMTP.Port == 0 {
		c.SMTP.Port = 587
	}
}

func (c *Config) Validate() error {
	var errs []error
	if c.Supplier.BaseURL == "" {
		errs = append(errs, errors.New("supplier.base_url is required"))
	}
	if c.Database.Host == "" {
		errs = append(errs, errors.New("database.host is required"))
	}
	if c.Redis.Addr == "" {
		errs = append(errs, errors.New("redis.addr is required"))
	}
	if len(c.Kafka.Brokers) == 0 {
		errs = append(errs, errors.New("kafka.brokers is required"))
	}
	if len(c.Booking.DefaultCurrency) != 3 {
		errs = append(errs, errors.New("booking.default_currency must be a 3-letter code"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}
