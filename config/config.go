package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	EnvProduction  = "production"
	EnvDevelopment = "development"
	EnvTest        = "test"

	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

type Config struct {
	App      AppConfig      `yaml:"app"`
	HTTP     HTTPConfig     `yaml:"http"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	Kafka    KafkaConfig    `yaml:"kafka"`
	Payment  PaymentConfig  `yaml:"payment"`
	Booking  BookingConfig  `yaml:"booking"`
	Worker   WorkerConfig   `yaml:"worker"`
	SMTP     SMTPConfig     `yaml:"smtp"`
	Log      LogConfig      `yaml:"log"`
	Catalog  []VehicleSeed  `yaml:"catalog"`
}

type AppConfig struct {
	Environment string `yaml:"environment"`
}

type HTTPConfig struct {
	Address                string `yaml:"address"`
	SwaggerDir             string `yaml:"swagger_dir"`
	ShutdownTimeoutSeconds int    `yaml:"shutdown_timeout_seconds"`
}

func (h HTTPConfig) ShutdownTimeout() time.Duration {
	if h.ShutdownTimeoutSeconds <= 0 {
		return 5 * time.Second
	}
	return time.Duration(h.ShutdownTimeoutSeconds) * time.Second
}

type DatabaseConfig struct {
	Driver   string `yaml:"driver"`
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
	BookingTopic       string   `yaml:"booking_topic"`
	NotificationsTopic string   `yaml:"notifications_topic"`
	GroupID            string   `yaml:"group_id"`
}

type PaymentConfig struct {
	KeyID     string `yaml:"key_id"`
	KeySecret string `yaml:"key_secret"`
	Currency  string `yaml:"currency"`
	// AllowTestPayments lets payment ids with TestPrefix confirm without a signature.
	AllowTestPayments bool   `yaml:"allow_test_payments"`
	TestPrefix        string `yaml:"test_prefix"`
	// TestAmountMinor replaces every quoted amount when non-zero.
	TestAmountMinor int64 `yaml:"test_amount_minor"`
}

type BookingConfig struct {
	MinDurationHours     int  `yaml:"min_duration_hours"`
	CancelCutoffHours    int  `yaml:"cancel_cutoff_hours"`
	ModifyCutoffHours    int  `yaml:"modify_cutoff_hours"`
	PendingTTLMinutes    int  `yaml:"pending_ttl_minutes"`
	VehiclesCacheTTL     int  `yaml:"vehicles_cache_ttl_seconds"`
	LockTTLSeconds       int  `yaml:"lock_ttl_seconds"`
	LockWaitMilliseconds int  `yaml:"lock_wait_ms"`
	RequireReapproval    bool `yaml:"require_reapproval"`
}

type WorkerConfig struct {
	ExpirationSweepMinutes int `yaml:"expiration_sweep_minutes"`
}

type SMTPConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	From     string `yaml:"from"`
	FromName string `yaml:"from_name"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// VehicleSeed preloads the in-memory store.
type VehicleSeed struct {
	ID              string `yaml:"id"`
	Name            string `yaml:"name"`
	Category        string `yaml:"category"`
	Location        string `yaml:"location"`
	HourlyRateMinor int64  `yaml:"hourly_rate_minor"`
}

// LoadConfig reads the YAML file, loads .env when present and applies secret overrides
// from the environment.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	cfg := defaults()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}
	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func defaults() *Config {
	return &Config{
		App:      AppConfig{Environment: EnvDevelopment},
		HTTP:     HTTPConfig{Address: ":8080"},
		Database: DatabaseConfig{Driver: DriverPostgres, SSLMode: "disable", Port: 5432},
		Kafka:    KafkaConfig{BookingTopic: "booking-events", NotificationsTopic: "booking-notifications", GroupID: "rentwheels-worker"},
		Payment:  PaymentConfig{Currency: "INR", TestPrefix: "test_"},
		Booking: BookingConfig{
			MinDurationHours:     3,
			CancelCutoffHours:    2,
			ModifyCutoffHours:    4,
			PendingTTLMinutes:    15,
			VehiclesCacheTTL:     60,
			LockTTLSeconds:       10,
			LockWaitMilliseconds: 3000,
			RequireReapproval:    true,
		},
		Worker: WorkerConfig{ExpirationSweepMinutes: 1},
		SMTP:   SMTPConfig{Port: 587, FromName: "RentWheels"},
		Log:    LogConfig{Level: "info", Format: "text"},
	}
}

func (c *Config) applyEnv() {
	override := func(dst *string, key string) {
		if v, ok := os.LookupEnv(key); ok && v != "" {
			*dst = v
		}
	}
	override(&c.App.Environment, "APP_ENV")
	override(&c.Payment.KeyID, "RAZORPAY_KEY_ID")
	override(&c.Payment.KeySecret, "RAZORPAY_KEY_SECRET")
	override(&c.Database.Password, "DB_PASSWORD")
	override(&c.SMTP.Password, "SMTP_PASSWORD")
	override(&c.Redis.Password, "REDIS_PASSWORD")

	if v, ok := os.LookupEnv("ALLOW_TEST_PAYMENTS"); ok {
		if b, err := strconv.ParseBool(v); err == nil {
			c.Payment.AllowTestPayments = b
		}
	}
}

// Validate enforces the settings that must never reach production.
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case DriverPostgres, DriverMemory:
	default:
		return fmt.Errorf("unknown database driver %q", c.Database.Driver)
	}
	if c.App.Environment == EnvProduction {
		if c.Payment.AllowTestPayments {
			return errors.New("test payments cannot be enabled in production")
		}
		if c.Payment.TestAmountMinor != 0 {
			return errors.New("test amount override cannot be set in production")
		}
		if c.Database.Driver == DriverMemory {
			return errors.New("memory database driver cannot be used in production")
		}
	}
	if !c.Payment.AllowTestPayments && (c.Payment.KeyID == "" || c.Payment.KeySecret == "") {
		return errors.New("payment key id and secret are required")
	}
	if c.Booking.MinDurationHours <= 0 {
		return errors.New("booking.min_duration_hours must be positive")
	}
	return nil
}

func (b BookingConfig) MinDuration() time.Duration {
	return time.Duration(b.MinDurationHours) * time.Hour
}

func (b BookingConfig) CancelCutoff() time.Duration {
	return time.Duration(b.CancelCutoffHours) * time.Hour
}

func (b BookingConfig) ModifyCutoff() time.Duration {
	return time.Duration(b.ModifyCutoffHours) * time.Hour
}

func (b BookingConfig) PendingTTL() time.Duration {
	return time.Duration(b.PendingTTLMinutes) * time.Minute
}

func (b BookingConfig) VehiclesCacheDuration() time.Duration {
	return time.Duration(b.VehiclesCacheTTL) * time.Second
}

func (b BookingConfig) LockTTL() time.Duration {
	return time.Duration(b.LockTTLSeconds) * time.Second
}

func (b BookingConfig) LockWait() time.Duration {
	return time.Duration(b.LockWaitMilliseconds) * time.Millisecond
}

func (w WorkerConfig) SweepInterval() time.Duration {
	return time.Duration(w.ExpirationSweepMinutes) * time.Minute
}
