package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Sender modes.
const (
	SenderModeLive = "live"
	SenderModeNoop = "noop"
)

// AppConfig holds process-level settings
type AppConfig struct {
	Port        string
	LogLevel    string
	Environment string
	SiteURL     string
}

// DBConfig holds the Postgres connection settings
type DBConfig struct {
	URL         string
	MaxOpenConn int
	ConnMaxIdle time.Duration
}

// ConsumerConfig holds the Kafka trigger-event consumer settings
type ConsumerConfig struct {
	Enabled            bool
	KafkaBrokers       []string
	KafkaTopic         string
	KafkaConsumerGroup string
}

// RedisConfig holds the sweep lock settings. An empty Addr disables the lock.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// SenderConfig selects and configures the channel providers
type SenderConfig struct {
	Mode        string
	SMSDisabled bool

	DomesticPrefix          string
	DomesticSMSURL          string
	DomesticSMSAPIKey       string
	DomesticSMSSignName     string
	IgnoreInternationalErrs bool

	TwilioAccountSID          string
	TwilioAuthToken           string
	TwilioMessagingServiceSID string

	EmailURL    string
	EmailAPIKey string
	EmailFrom   string

	RequestTimeout time.Duration

	// DefaultTemplates is used for role alerts and scheduled digests.
	DefaultEmailTemplate            string
	DefaultDomesticSMSTemplate      string
	DefaultInternationalSMSTemplate string
}

// SweepConfig controls the scheduled-notification sweep
type SweepConfig struct {
	Enabled       bool
	Interval      time.Duration
	Delay         time.Duration
	Lease         time.Duration
	BatchSize     int
	NotifyCoaches bool
}

// AuthConfig holds the admin API token settings
type AuthConfig struct {
	Secret string
}

// TracingConfig holds the OpenTelemetry exporter settings
type TracingConfig struct {
	Enabled           bool
	ServiceName       string
	ServiceVersion    string
	CollectorEndpoint string
	SampleRatio       float64
}

// Config is the full service configuration
type Config struct {
	AppCfg         AppConfig
	DBConfig       DBConfig
	QueueDBConfig  DBConfig
	ConsumerConfig ConsumerConfig
	RedisConfig    RedisConfig
	SenderConfig   SenderConfig
	SweepConfig    SweepConfig
	AuthConfig     AuthConfig
	TracingConfig  TracingConfig
}

// LoadConfig reads configuration from a .env file (if present) and the environment.
func LoadConfig() (*Config, error) {
	// A missing .env file is fine, the environment may already be populated.
	_ = godotenv.Load()

	dbURL := os.Getenv("DATABASE_URL")
	cfg := &Config{
		AppCfg: AppConfig{
			Port:        getEnv("PORT", "8082"),
			LogLevel:    getEnv("LOG_LEVEL", "info"),
			Environment: getEnv("ENVIRONMENT", "development"),
			SiteURL:     strings.TrimRight(getEnv("SITE_URL", "http://localhost:3000"), "/"),
		},
		DBConfig: DBConfig{
			URL:         dbURL,
			MaxOpenConn: getEnvInt("DB_MAX_OPEN", 10),
			ConnMaxIdle: getEnvDuration("DB_CONN_IDLE", 5*time.Minute),
		},
		QueueDBConfig: DBConfig{
			URL:         getEnv("NOTIF_DB_URL", dbURL),
			MaxOpenConn: getEnvInt("NOTIF_DB_MAX_OPEN", 5),
			ConnMaxIdle: getEnvDuration("NOTIF_DB_CONN_IDLE", 5*time.Minute),
		},
		ConsumerConfig: ConsumerConfig{
			Enabled:            getEnvBool("KAFKA_ENABLED", false),
			KafkaBrokers:       splitList(os.Getenv("KAFKA_BROKERS")),
			KafkaTopic:         getEnv("KAFKA_TRIGGER_TOPIC", "notification-triggers"),
			KafkaConsumerGroup: getEnv("KAFKA_CONSUMER_GROUP", "notifier"),
		},
		RedisConfig: RedisConfig{
			Addr:     os.Getenv("REDIS_ADDR"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       getEnvInt("REDIS_DB", 0),
		},
		SenderConfig: SenderConfig{
			Mode:                            getEnv("SENDER_MODE", SenderModeLive),
			SMSDisabled:                     getEnvBool("SMS_DISABLED", false),
			DomesticPrefix:                  getEnv("DOMESTIC_PHONE_PREFIX", "+86"),
			DomesticSMSURL:                  os.Getenv("DOMESTIC_SMS_URL"),
			DomesticSMSAPIKey:               os.Getenv("DOMESTIC_SMS_API_KEY"),
			DomesticSMSSignName:             os.Getenv("DOMESTIC_SMS_SIGN_NAME"),
			IgnoreInternationalErrs:         getEnvBool("IGNORE_INTERNATIONAL_SMS_ERRORS", true),
			TwilioAccountSID:                os.Getenv("TWILIO_ACCOUNT_SID"),
			TwilioAuthToken:                 os.Getenv("TWILIO_AUTH_TOKEN"),
			TwilioMessagingServiceSID:       os.Getenv("TWILIO_MESSAGING_SERVICE_SID"),
			EmailURL:                        os.Getenv("EMAIL_API_URL"),
			EmailAPIKey:                     os.Getenv("EMAIL_API_KEY"),
			EmailFrom:                       os.Getenv("EMAIL_FROM"),
			RequestTimeout:                  getEnvDuration("SENDER_TIMEOUT", 10*time.Second),
			DefaultEmailTemplate:            os.Getenv("DEFAULT_EMAIL_TEMPLATE"),
			DefaultDomesticSMSTemplate:      os.Getenv("DEFAULT_DOMESTIC_SMS_TEMPLATE"),
			DefaultInternationalSMSTemplate: os.Getenv("DEFAULT_INTERNATIONAL_SMS_TEMPLATE"),
		},
		SweepConfig: SweepConfig{
			Enabled:       getEnvBool("SWEEP_ENABLED", true),
			Interval:      getEnvDuration("SWEEP_INTERVAL", time.Minute),
			Delay:         getEnvDuration("SWEEP_DELAY", 5*time.Minute),
			Lease:         getEnvDuration("SWEEP_LEASE", 10*time.Minute),
			BatchSize:     getEnvInt("SWEEP_BATCH_SIZE", 100),
			NotifyCoaches: getEnvBool("CHAT_NOTIFY_COACHES", true),
		},
		AuthConfig: AuthConfig{
			Secret: os.Getenv("ADMIN_TOKEN_SECRET"),
		},
		TracingConfig: TracingConfig{
			Enabled:           getEnvBool("OTEL_ENABLED", false),
			ServiceName:       getEnv("OTEL_SERVICE_NAME", "notifier"),
			CollectorEndpoint: getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "otel-collector:4317"),
			ServiceVersion:    getEnv("SERVICE_VERSION", "dev"),
			SampleRatio:       getEnvFloat("OTEL_TRACES_SAMPLER_ARG", 1),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks settings that cannot be defaulted.
func (c *Config) Validate() error {
	if c.DBConfig.URL == "" {
		return &ConfigError{Field: "DATABASE_URL", Message: "must be set"}
	}
	switch c.SenderConfig.Mode {
	case SenderModeNoop:
	case SenderModeLive:
		if c.SenderConfig.EmailURL == "" {
			return &ConfigError{Field: "EMAIL_API_URL", Message: "must be set when SENDER_MODE=live"}
		}
		if !c.SenderConfig.SMSDisabled && c.SenderConfig.DomesticSMSURL == "" {
			return &ConfigError{Field: "DOMESTIC_SMS_URL", Message: "must be set when SMS is enabled"}
		}
	default:
		return &ConfigError{Field: "SENDER_MODE", Message: fmt.Sprintf("unknown mode %q", c.SenderConfig.Mode)}
	}
	if c.ConsumerConfig.Enabled && len(c.ConsumerConfig.KafkaBrokers) == 0 {
		return &ConfigError{Field: "KAFKA_BROKERS", Message: "must be set when KAFKA_ENABLED=true"}
	}
	if c.SweepConfig.Delay < 0 || c.SweepConfig.Interval <= 0 || c.SweepConfig.Lease <= 0 {
		return &ConfigError{Field: "SWEEP_*", Message: "durations must be positive"}
	}
	if c.SweepConfig.BatchSize <= 0 {
		return &ConfigError{Field: "SWEEP_BATCH_SIZE", Message: "must be positive"}
	}
	return nil
}

// ConfigError represents a configuration error
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config error: %s: %s", e.Field, e.Message)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
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
