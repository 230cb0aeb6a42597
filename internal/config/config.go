package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Ticketing backend implementations.
const (
	BackendGorgias = "gorgias"
	BackendMemory  = "memory"
)

// Message gateway implementations. GatewayLog drops outbound SMS after
// logging them and must be chosen explicitly.
const (
	GatewayTwilio = "twilio"
	GatewayLog    = "log"
)

// Lease store implementations.
const (
	LeaseRedis  = "redis"
	LeaseMemory = "memory"
)

// Config aggregates runtime configuration for the service.
type Config struct {
	App          AppConfig
	Postgres     PostgresConfig
	Redis        RedisConfig
	Logger       LoggerConfig
	Ticketing    TicketingConfig
	Identity     IdentityConfig
	Gateway      GatewayConfig
	Lease        LeaseConfig
	Webhook      WebhookConfig
	Replies      RepliesConfig
	Notification NotificationConfig
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name                  string
	Env                   string
	Host                  string
	Port                  string
	Version               string
	RequestTimeoutSeconds int
}

// PostgresConfig holds DB connection values for the opt-out list.
type PostgresConfig struct {
	DSN            string
	MaxConns       int32
	MinConns       int32
	RunMigrations  bool
	MigrationsDir  string
	ConnMaxIdleSec int32
	ConnMaxLifeSec int32
}

// RedisConfig holds Redis connection values.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level         string
	File          string
	FileMaxSizeMB int
	FileBackups   int
	FileMaxAgeDay int
}

// TicketingConfig selects and configures the ticketing backend.
type TicketingConfig struct {
	Backend        string
	Domain         string
	BaseURL        string
	Username       string
	APIKey         string
	TimeoutSeconds int
	PageSize       int
}

// IdentityConfig shapes the derived customer email.
type IdentityConfig struct {
	EmailNamespace string
	EmailDomain    string
}

// GatewayConfig holds message gateway credentials.
type GatewayConfig struct {
	Backend        string
	AccountSID     string
	AuthToken      string
	PhoneNumber    string
	SendRatePerSec float64
	SendBurst      int
}

// LeaseConfig bounds per-phone serialization.
type LeaseConfig struct {
	Backend     string
	TTLSeconds  int
	WaitSeconds int
}

// WebhookConfig protects the outbound webhook.
type WebhookConfig struct {
	JWTSecret     string
	TokenTTLHours int
}

// RepliesConfig holds the texts sent back to SMS senders.
type RepliesConfig struct {
	OptOut            string
	OptIn             string
	Help              string
	HelpTicketBody    string
	AutoReply         string
	Fallback          string
	HelpCreatesTicket bool
}

// NotificationConfig holds the event webhook endpoint.
type NotificationConfig struct {
	WebhookURL     string
	TimeoutSeconds int
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}
	sendRate, err := strconv.ParseFloat(getEnv("TWILIO_SEND_RATE_PER_SECOND", "1"), 64)
	if err != nil {
		return nil, fmt.Errorf("invalid TWILIO_SEND_RATE_PER_SECOND: %w", err)
	}

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "sms-ticket-bridge"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "8080"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
		},
		Postgres: PostgresConfig{
			DSN:            os.Getenv("POSTGRES_DSN"),
			MaxConns:       int32(getEnvAsInt("POSTGRES_MAX_CONNS", 5)),
			MinConns:       int32(getEnvAsInt("POSTGRES_MIN_CONNS", 1)),
			RunMigrations:  getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true),
			MigrationsDir:  getEnv("POSTGRES_MIGRATIONS_DIR", "migrations"),
			ConnMaxIdleSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30)),
			ConnMaxLifeSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300)),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "127.0.0.1:6379"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       redisDB,
		},
		Logger: LoggerConfig{
			Level:         getEnv("LOG_LEVEL", "info"),
			File:          os.Getenv("LOG_FILE"),
			FileMaxSizeMB: getEnvAsInt("LOG_FILE_MAX_SIZE_MB", 100),
			FileBackups:   getEnvAsInt("LOG_FILE_MAX_BACKUPS", 3),
			FileMaxAgeDay: getEnvAsInt("LOG_FILE_MAX_AGE_DAYS", 28),
		},
		Ticketing: TicketingConfig{
			Backend:        strings.ToLower(getEnv("TICKETING_BACKEND", BackendGorgias)),
			Domain:         os.Getenv("GORGIAS_DOMAIN"),
			BaseURL:        os.Getenv("GORGIAS_BASE_URL"),
			Username:       os.Getenv("GORGIAS_USERNAME"),
			APIKey:         os.Getenv("GORGIAS_API_KEY"),
			TimeoutSeconds: getEnvAsInt("GORGIAS_TIMEOUT_SECONDS", 15),
			PageSize:       getEnvAsInt("TICKET_PAGE_SIZE", 30),
		},
		Identity: IdentityConfig{
			EmailNamespace: getEnv("IDENTITY_EMAIL_NAMESPACE", "sms"),
			EmailDomain:    getEnv("IDENTITY_EMAIL_DOMAIN", "rescuelink.com"),
		},
		Gateway: GatewayConfig{
			Backend:        strings.ToLower(getEnv("GATEWAY_BACKEND", GatewayTwilio)),
			AccountSID:     os.Getenv("TWILIO_ACCOUNT_SID"),
			AuthToken:      os.Getenv("TWILIO_AUTH_TOKEN"),
			PhoneNumber:    os.Getenv("TWILIO_PHONE_NUMBER"),
			SendRatePerSec: sendRate,
			SendBurst:      getEnvAsInt("TWILIO_SEND_BURST", 5),
		},
		Lease: LeaseConfig{
			Backend:     strings.ToLower(getEnv("LEASE_BACKEND", LeaseRedis)),
			TTLSeconds:  getEnvAsInt("LEASE_TTL_SECONDS", 30),
			WaitSeconds: getEnvAsInt("LEASE_WAIT_SECONDS", 10),
		},
		Webhook: WebhookConfig{
			JWTSecret:     os.Getenv("WEBHOOK_JWT_SECRET"),
			TokenTTLHours: getEnvAsInt("WEBHOOK_TOKEN_TTL_HOURS", 24*365),
		},
		Replies: RepliesConfig{
			OptOut:            getEnv("SMS_REPLY_OPT_OUT", "CONFIRMED: You've been unsubscribed from Rescue Link SMS notifications. You will not receive any more automated messages. Text START to resubscribe or email support@rescuelink.com for assistance."),
			OptIn:             getEnv("SMS_REPLY_OPT_IN", "Welcome back! You're subscribed to Rescue Link updates. Reply STOP to opt out."),
			Help:              getEnv("SMS_REPLY_HELP", "Hi! You can text us anytime and someone from our Rescue Link team will respond. Please include your name in your message so we can assist you better. Reply STOP to opt out or email support@dryeyerescue.com"),
			HelpTicketBody:    getEnv("SMS_HELP_TICKET_BODY", "Customer requested help via SMS"),
			AutoReply:         getEnv("SMS_REPLY_AUTO", "Thanks for contacting Rescue Link! We've received your message and will respond shortly. If this is your first time messaging us, please include your name so we can assist you better. For urgent matters, email support@dryeyerescue.com"),
			Fallback:          getEnv("SMS_REPLY_FALLBACK", "Thanks for your message. We'll get back to you soon!"),
			HelpCreatesTicket: getEnvAsBool("SMS_HELP_CREATES_TICKET", true),
		},
		Notification: NotificationConfig{
			WebhookURL:     getEnv("NOTIFY_WEBHOOK_URL", ""),
			TimeoutSeconds: getEnvAsInt("NOTIFY_WEBHOOK_TIMEOUT_SECONDS", 5),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects combinations the service cannot run with.
func (c *Config) Validate() error {
	var errs []error
	switch c.Ticketing.Backend {
	case BackendGorgias:
		if c.Ticketing.Domain == "" && c.Ticketing.BaseURL == "" {
			errs = append(errs, errors.New("GORGIAS_DOMAIN or GORGIAS_BASE_URL is required"))
		}
		if c.Ticketing.Username == "" || c.Ticketing.APIKey == "" {
			errs = append(errs, errors.New("GORGIAS_USERNAME and GORGIAS_API_KEY are required"))
		}
	case BackendMemory:
	default:
		errs = append(errs, fmt.Errorf("unknown TICKETING_BACKEND %q", c.Ticketing.Backend))
	}
	switch c.Gateway.Backend {
	case GatewayTwilio:
		if !c.Gateway.Configured() {
			errs = append(errs, errors.New("TWILIO_ACCOUNT_SID and TWILIO_AUTH_TOKEN are required (set GATEWAY_BACKEND=log to drop outbound sms)"))
		}
		if c.Gateway.PhoneNumber == "" {
			errs = append(errs, errors.New("TWILIO_PHONE_NUMBER is required"))
		}
	case GatewayLog:
	default:
		errs = append(errs, fmt.Errorf("unknown GATEWAY_BACKEND %q", c.Gateway.Backend))
	}
	switch c.Lease.Backend {
	case LeaseRedis, LeaseMemory:
	default:
		errs = append(errs, fmt.Errorf("unknown LEASE_BACKEND %q", c.Lease.Backend))
	}
	if c.Lease.TTLSeconds <= 0 {
		errs = append(errs, errors.New("LEASE_TTL_SECONDS must be positive"))
	}
	if c.Lease.WaitSeconds <= 0 {
		errs = append(errs, errors.New("LEASE_WAIT_SECONDS must be positive"))
	}
	if c.Ticketing.PageSize <= 0 {
		errs = append(errs, errors.New("TICKET_PAGE_SIZE must be positive"))
	}
	return errors.Join(errs...)
}

// Addr returns the HTTP bind address.
func (a AppConfig) Addr() string {
	return fmt.Sprintf("%s:%s", a.Host, a.Port)
}

// RequestTimeout returns the configured request timeout duration.
func (a AppConfig) RequestTimeout() time.Duration {
	if a.RequestTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(a.RequestTimeoutSeconds) * time.Second
}

// ResolvedBaseURL prefers an explicit base URL over the account domain.
func (t TicketingConfig) ResolvedBaseURL() string {
	if t.BaseURL != "" {
		return t.BaseURL
	}
	return fmt.Sprintf("https://%s.gorgias.com", t.Domain)
}

// Timeout returns the ticketing HTTP timeout.
func (t TicketingConfig) Timeout() time.Duration {
	return time.Duration(t.TimeoutSeconds) * time.Second
}

// Configured reports whether real gateway credentials are present.
func (g GatewayConfig) Configured() bool {
	return g.AccountSID != "" && g.AuthToken != ""
}

// TTL returns the lease hold bound.
func (l LeaseConfig) TTL() time.Duration {
	return time.Duration(l.TTLSeconds) * time.Second
}

// Wait returns the lease acquisition bound.
func (l LeaseConfig) Wait() time.Duration {
	return time.Duration(l.WaitSeconds) * time.Second
}

// Timeout bounds one webhook delivery.
func (n NotificationConfig) Timeout() time.Duration {
	return time.Duration(n.TimeoutSeconds) * time.Second
}

// TokenTTL returns the lifetime of minted webhook tokens.
func (w WebhookConfig) TokenTTL() time.Duration {
	return time.Duration(w.TokenTTLHours) * time.Hour
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsBool(key string, fallback bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return fallback
	}
	return parsed
}
