package internal

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

const EnvironmentProduction = "production"

type Config struct {
	Environment   string              `mapstructure:"environment"`
	Server        ServerConfig        `mapstructure:"http_server"`
	Database      DatabaseConfig      `mapstructure:"database"`
	Security      SecurityConfig      `mapstructure:"security"`
	Payment       PaymentConfig       `mapstructure:"payment"`
	Redis         RedisConfig         `mapstructure:"redis"`
	Notification  NotificationConfig  `mapstructure:"notification"`
	Reconciler    ReconcilerConfig    `mapstructure:"reconciler"`
	Observability ObservabilityConfig `mapstructure:"observability"`
}

type ServerConfig struct {
	Port              int           `mapstructure:"port"`
	BaseURL           string        `mapstructure:"base_url"`
	AllowedOrigins    string        `mapstructure:"allowed_origins"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout"`
	ReadTimeout       time.Duration `mapstructure:"read_timeout"`
	IdleTimeout       time.Duration `mapstructure:"idle_timeout"`
	WriteTimeout      time.Duration `mapstructure:"write_timeout"`
}

type DatabaseConfig struct {
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
	Source          string        `mapstructure:"source"`
}

type SecurityConfig struct {
	JWTSecret           string        `mapstructure:"jwt_secret"`
	JWTIssuer           string        `mapstructure:"jwt_issuer"`
	AccessTokenDuration time.Duration `mapstructure:"access_token_duration"`
	BCryptCost          int           `mapstructure:"bcrypt_cost"`
}

type PaymentConfig struct {
	GatewayBaseURL        string        `mapstructure:"gateway_base_url"`
	ClientID              string        `mapstructure:"client_id"`
	ClientSecret          string        `mapstructure:"client_secret"`
	APIVersion            string        `mapstructure:"api_version"`
	WebhookSecret         string        `mapstructure:"webhook_secret"`
	AllowUnsignedWebhooks bool          `mapstructure:"allow_unsigned_webhooks"`
	ReturnURL             string        `mapstructure:"return_url"`
	CallbackURL           string        `mapstructure:"callback_url"`
	Currency              string        `mapstructure:"currency"`
	Timeout               time.Duration `mapstructure:"timeout"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type NotificationConfig struct {
	AMQPURL    string `mapstructure:"amqp_url"`
	Exchange   string `mapstructure:"exchange"`
	RoutingKey string `mapstructure:"routing_key"`
}

type ReconcilerConfig struct {
	Enabled   bool          `mapstructure:"enabled"`
	Schedule  string        `mapstructure:"schedule"`
	MinAge    time.Duration `mapstructure:"min_age"`
	MaxAge    time.Duration `mapstructure:"max_age"`
	BatchSize int           `mapstructure:"batch_size"`
	Workers   int           `mapstructure:"workers"`
}

type ObservabilityConfig struct {
	Logging LoggingConfig `mapstructure:"logging"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// LoadConfigFromEnv builds the configuration from plain environment variables,
// for deployments that ship without a config.yml.
func LoadConfigFromEnv() (*Config, error) {
	cfg := &Config{
		Environment: getEnv("APP_ENV", "development"),
		Server: ServerConfig{
			Port:              getEnvAsInt("PORT", 8080),
			BaseURL:           getEnv("BASE_URL", "http://localhost:8080"),
			AllowedOrigins:    getEnv("ALLOWED_ORIGINS", "*"),
			ReadHeaderTimeout: getEnvAsDuration("READ_HEADER_TIMEOUT", 5*time.Second),
			ReadTimeout:       getEnvAsDuration("READ_TIMEOUT", 15*time.Second),
			IdleTimeout:       getEnvAsDuration("IDLE_TIMEOUT", 60*time.Second),
			WriteTimeout:      getEnvAsDuration("WRITE_TIMEOUT", 15*time.Second),
		},
		Database: DatabaseConfig{
			MaxOpenConns:    getEnvAsInt("DB_MAX_OPEN_CONNS", 20),
			MaxIdleConns:    getEnvAsInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getEnvAsDuration("DB_CONN_MAX_LIFETIME", 30*time.Minute),
			ConnMaxIdleTime: getEnvAsDuration("DB_CONN_MAX_IDLE_TIME", 5*time.Minute),
			Source:          getEnv("DATABASE_URL", ""),
		},
		Security: SecurityConfig{
			JWTSecret:           getEnv("JWT_SECRET", ""),
			JWTIssuer:           getEnv("JWT_ISSUER", "learning-platform"),
			AccessTokenDuration: getEnvAsDuration("ACCESS_TOKEN_DURATION", time.Hour),
			BCryptCost:          getEnvAsInt("BCRYPT_COST", 12),
		},
		Payment: PaymentConfig{
			GatewayBaseURL:        getEnv("PAYMENT_GATEWAY_BASE_URL", ""),
			ClientID:              getEnv("PAYMENT_CLIENT_ID", ""),
			ClientSecret:          getEnv("PAYMENT_CLIENT_SECRET", ""),
			APIVersion:            getEnv("PAYMENT_API_VERSION", "2023-08-01"),
			WebhookSecret:         getEnv("PAYMENT_WEBHOOK_SECRET", ""),
			AllowUnsignedWebhooks: getEnvAsBool("PAYMENT_ALLOW_UNSIGNED_WEBHOOKS", false),
			ReturnURL:             getEnv("PAYMENT_RETURN_URL", ""),
			CallbackURL:           getEnv("PAYMENT_CALLBACK_URL", ""),
			Currency:              getEnv("PAYMENT_CURRENCY", "INR"),
			Timeout:               getEnvAsDuration("PAYMENT_TIMEOUT", 10*time.Second),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", ""),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		Notification: NotificationConfig{
			AMQPURL:    getEnv("AMQP_URL", ""),
			Exchange:   getEnv("NOTIFICATION_EXCHANGE", "notifications"),
			RoutingKey: getEnv("NOTIFICATION_ROUTING_KEY", "email.purchase_confirmation"),
		},
		Reconciler: ReconcilerConfig{
			Enabled:   getEnvAsBool("RECONCILER_ENABLED", false),
			Schedule:  getEnv("RECONCILER_SCHEDULE", "@every 5m"),
			MinAge:    getEnvAsDuration("RECONCILER_MIN_AGE", 10*time.Minute),
			MaxAge:    getEnvAsDuration("RECONCILER_MAX_AGE", 48*time.Hour),
			BatchSize: getEnvAsInt("RECONCILER_BATCH_SIZE", 100),
			Workers:   getEnvAsInt("RECONCILER_WORKERS", 4),
		},
		Observability: ObservabilityConfig{
			Logging: LoggingConfig{
				Level:  getEnv("LOG_LEVEL", "info"),
				Format: getEnv("LOG_FORMAT", "json"),
			},
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Environment, EnvironmentProduction)
}

// ----------------- HELPERS -----------------

func getEnv(key, defaultVal string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultVal
}

func getEnvAsInt(key string, defaultVal int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultVal
}

func getEnvAsBool(key string, defaultVal bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultVal
}

func getEnvAsDuration(key string, defaultVal time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultVal
}

// ----------------- VALIDATION -----------------

func (c *Config) Validate() error {
	var errs []string

	if err := c.Server.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("server config: %v", err))
	}

	if err := c.Database.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("database config: %v", err))
	}

	if err := c.Security.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("security config: %v", err))
	}

	if err := c.Payment.Validate(c.IsProduction()); err != nil {
		errs = append(errs, fmt.Sprintf("payment config: %v", err))
	}

	if err := c.Reconciler.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("reconciler config: %v", err))
	}

	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}

	return nil
}

func (c *ServerConfig) Validate() error {
	if c.AllowedOrigins != "" {
		origins := strings.Split(c.AllowedOrigins, ",")
		for _, origin := range origins {
			origin = strings.TrimSpace(origin)
			if origin == "*" {
				continue
			}
			if _, err := url.Parse(origin); err != nil {
				return fmt.Errorf("invalid allowed origin %s: %w", origin, err)
			}
		}
	}
	if c.ReadTimeout < c.ReadHeaderTimeout {
		return errors.New("read_timeout must be >= read_header_timeout")
	}
	return nil
}

func (c *DatabaseConfig) Validate() error {
	if c.MaxIdleConns > c.MaxOpenConns {
		return errors.New("max_idle_conns cannot be greater than max_open_conns")
	}
	return nil
}

func (c *DatabaseConfig) GetDSN() string {
	return c.Source
}

func (c *SecurityConfig) Validate() error {
	if len(c.JWTSecret) < 32 {
		return errors.New("jwt_secret must be at least 32 characters")
	}
	if c.AccessTokenDuration <= 0 {
		return errors.New("access_token_duration must be positive")
	}
	return nil
}

func (c *PaymentConfig) Validate(production bool) error {
	if c.GatewayBaseURL == "" {
		return errors.New("gateway_base_url is required")
	}
	if _, err := url.ParseRequestURI(c.GatewayBaseURL); err != nil {
		return fmt.Errorf("invalid gateway_base_url: %w", err)
	}
	if c.Currency == "" {
		return errors.New("currency is required")
	}
	if production && c.WebhookSecret == "" {
		return errors.New("webhook_secret is required in production")
	}
	return nil
}

// UnsignedWebhooksAllowed reports whether callbacks may skip signature checks.
// Production never allows it, whatever the flag says.
func (c *PaymentConfig) UnsignedWebhooksAllowed(environment string) bool {
	return c.AllowUnsignedWebhooks && !strings.EqualFold(environment, EnvironmentProduction)
}

func (c *ReconcilerConfig) Validate() error {
	if !c.Enabled {
		return nil
	}
	if c.Schedule == "" {
		return errors.New("schedule is required when the reconciler is enabled")
	}
	if c.MaxAge > 0 && c.MaxAge <= c.MinAge {
		return errors.New("max_age must be greater than min_age")
	}
	if c.Workers < 1 {
		return errors.New("workers must be at least 1")
	}
	return nil
}
