package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/spf13/viper"

	"github.com/mindease/booking-api/pkg/messaging/redis"
	"github.com/mindease/booking-api/pkg/payment"
	"github.com/mindease/booking-api/pkg/worker"
)

type DatabaseConfig struct {
	Host     string `yaml:"host" envconfig:"DB_HOST"`
	Port     int    `yaml:"port" envconfig:"DB_PORT"`
	User     string `yaml:"user" envconfig:"DB_USER"`
	Password string `yaml:"password" envconfig:"DB_PASSWORD"`
	Name     string `yaml:"name" envconfig:"DB_NAME"`
	SSLMode  string `yaml:"sslmode" envconfig:"DB_SSLMODE"`
}

type ServerConfig struct {
	Port         int           `yaml:"port" envconfig:"SERVER_PORT"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

type JWTConfig struct {
	Secret string `yaml:"secret" envconfig:"JWT_SECRET"`
}

type RedisConfig struct {
	URL          string        `yaml:"url" envconfig:"REDIS_URL"`
	MaxRetries   int           `yaml:"max_retries"`
	RetryBackoff time.Duration `yaml:"retry_backoff"`
	PoolSize     int           `yaml:"pool_size"`
	MinIdleConns int           `yaml:"min_idle_conns"`
}

type PaymentConfig struct {
	BaseURL   string        `yaml:"base_url" envconfig:"PAYMENT_BASE_URL"`
	KeyID     string        `yaml:"key_id" envconfig:"PAYMENT_KEY_ID"`
	KeySecret string        `yaml:"key_secret" envconfig:"PAYMENT_KEY_SECRET"`
	Timeout   time.Duration `yaml:"timeout"`
}

type SMTPConfig struct {
	Host     string `yaml:"host" envconfig:"SMTP_HOST"`
	Port     int    `yaml:"port" envconfig:"SMTP_PORT"`
	Username string `yaml:"username" envconfig:"SMTP_USERNAME"`
	Password string `yaml:"password" envconfig:"SMTP_PASSWORD"`
	From     string `yaml:"from" envconfig:"SMTP_FROM"`
}

type OutboxConfig struct {
	Channel      string        `yaml:"channel"`
	BatchSize    int           `yaml:"batch_size"`
	PollInterval time.Duration `yaml:"poll_interval"`
}

type SweeperConfig struct {
	Interval time.Duration `yaml:"interval"`
}

type RateLimitConfig struct {
	Enabled           bool    `yaml:"enabled"`
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	Burst             int     `yaml:"burst"`
}

type BookingConfig struct {
	FeedbackBaseURL        string        `yaml:"feedback_base_url" envconfig:"FEEDBACK_BASE_URL"`
	FeeCacheTTL            time.Duration `yaml:"fee_cache_ttl"`
	RequireSlotContainment bool          `yaml:"require_slot_containment"`
}

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	JWT       JWTConfig       `yaml:"jwt"`
	Redis     RedisConfig     `yaml:"redis"`
	Payment   PaymentConfig   `yaml:"payment"`
	SMTP      SMTPConfig      `yaml:"smtp"`
	Outbox    OutboxConfig    `yaml:"outbox"`
	Sweeper   SweeperConfig   `yaml:"sweeper"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Booking   BookingConfig   `yaml:"booking"`
}

// LoadConfig reads config.yml from the usual locations, then overlays
// environment variables so container deployments can override any secret.
func LoadConfig() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	viper.AddConfigPath("/app")
	viper.AddConfigPath("/app/config")

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := envconfig.Process("", &config); err != nil {
		return nil, fmt.Errorf("failed to apply env overrides: %w", err)
	}

	config.applyDefaults()
	return &config, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.ReadTimeout == 0 {
		c.Server.ReadTimeout = 10 * time.Second
	}
	if c.Server.WriteTimeout == 0 {
		c.Server.WriteTimeout = 10 * time.Second
	}
	if c.Payment.Timeout == 0 {
		c.Payment.Timeout = 10 * time.Second
	}
	if c.Booking.FeeCacheTTL == 0 {
		c.Booking.FeeCacheTTL = 15 * time.Minute
	}
	if c.Outbox.Channel == "" {
		c.Outbox.Channel = "appointments"
	}
	if c.Sweeper.Interval == 0 {
		c.Sweeper.Interval = time.Minute
	}
	if c.RateLimit.RequestsPerSecond == 0 {
		c.RateLimit.RequestsPerSecond = 20
	}
	if c.RateLimit.Burst == 0 {
		c.RateLimit.Burst = 40
	}
}

func (c *OutboxConfig) ToWorkerConfig() worker.OutboxProcessorConfig {
	return worker.OutboxProcessorConfig{
		Channel:      c.Channel,
		BatchSize:    c.BatchSize,
		PollInterval: c.PollInterval,
	}
}

func (c *RedisConfig) ToBrokerConfig() redis.Config {
	return redis.Config{
		URL:          c.URL,
		MaxRetries:   c.MaxRetries,
		RetryBackoff: c.RetryBackoff,
		PoolSize:     c.PoolSize,
		MinIdleConns: c.MinIdleConns,
	}
}

func (c *PaymentConfig) ToGatewayConfig() payment.Config {
	return payment.Config{
		BaseURL:   c.BaseURL,
		KeyID:     c.KeyID,
		KeySecret: c.KeySecret,
		Timeout:   c.Timeout,
	}
}
