package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server      ServerConfig      `yaml:"server"`
	Log         LogConfig         `yaml:"log"`
	Database    DatabaseConfig    `yaml:"database"`
	JWT         JWTConfig         `yaml:"jwt"`
	Admin       AdminConfig       `yaml:"admin"`
	Leads       LeadsConfig       `yaml:"leads"`
	Payment     PaymentConfig     `yaml:"payment"`
	Razorpay    RazorpayConfig    `yaml:"razorpay"`
	Firebase    FirebaseConfig    `yaml:"firebase"`
	SendGrid    SendGridConfig    `yaml:"sendgrid"`
	RabbitMQ    RabbitMQConfig    `yaml:"rabbitmq"`
	Idempotency IdempotencyConfig `yaml:"idempotency"`
	Scheduler   SchedulerConfig   `yaml:"scheduler"`
}

type ServerConfig struct {
	Port         string        `yaml:"port"`
	Env          string        `yaml:"env"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
	RateLimit    int           `yaml:"rate_limit"`
	RateWindow   time.Duration `yaml:"rate_window"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

type DatabaseConfig struct {
	Driver          string        `yaml:"driver"` // mysql, memory
	DSN             string        `yaml:"dsn"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
}

type JWTConfig struct {
	AccessSecret string        `yaml:"access_secret"`
	AccessExpiry time.Duration `yaml:"access_expiry"`
	Issuer       string        `yaml:"issuer"`
}

// AdminConfig seeds the first admin account when none exists.
type AdminConfig struct {
	Email    string `yaml:"email"`
	Password string `yaml:"password"`
	Name     string `yaml:"name"`
}

type LeadsConfig struct {
	Currency string `yaml:"currency"`
	// FallbackPlanName is the catalog plan whose terms apply to partners
	// without a plan when no default plan is marked.
	FallbackPlanName        string `yaml:"fallback_plan_name"`
	FreeTierLeadFeeCents    int64  `yaml:"free_tier_lead_fee_cents"`
	FreeTierMinBalanceCents int64  `yaml:"free_tier_min_wallet_balance_cents"`
	LowBalanceAdminAlerts   bool   `yaml:"low_balance_admin_alerts"`
	ExpiryReminderDays      int    `yaml:"expiry_reminder_days"`
}

type PaymentConfig struct {
	Provider      string `yaml:"provider"` // stub, razorpay
	WebhookSecret string `yaml:"webhook_secret"`

	// AllowUnsignedWebhooks accepts webhooks without X-Webhook-Signature.
	// Honoured only for the stub provider outside production.
	AllowUnsignedWebhooks bool          `yaml:"allow_unsigned_webhooks"`
	PaymentExpiry         time.Duration `yaml:"payment_expiry"`
	MinTopUpCents         int64         `yaml:"min_top_up_cents"`
}

// UnsignedWebhooksAllowed reports whether the payment webhook may skip
// signature verification.
func (c *Config) UnsignedWebhooksAllowed() bool {
	return c.Payment.AllowUnsignedWebhooks &&
		c.Payment.Provider == "stub" &&
		c.Server.Env != "production"
}

// Validate rejects configurations that would leave the payment webhook open.
func (c *Config) Validate() error {
	if c.Payment.WebhookSecret != "" {
		return nil
	}
	if c.Server.Env == "production" || c.Payment.Provider != "stub" {
		return fmt.Errorf("payment.webhook_secret is required (provider %q, env %q)", c.Payment.Provider, c.Server.Env)
	}
	return nil
}

type RazorpayConfig struct {
	BaseURL   string `yaml:"base_url"`
	KeyID     string `yaml:"key_id"`
	KeySecret string `yaml:"key_secret"`
}

type FirebaseConfig struct {
	ServiceAccountPath string `yaml:"service_account_path"`
}

type SendGridConfig struct {
	APIKey    string `yaml:"api_key"`
	FromEmail string `yaml:"from_email"`
	FromName  string `yaml:"from_name"`
}

type RabbitMQConfig struct {
	URL      string `yaml:"url"`
	Exchange string `yaml:"exchange"`
}

type IdempotencyConfig struct {
	Path string        `yaml:"path"`
	TTL  time.Duration `yaml:"ttl"`
}

// SchedulerConfig holds cron specs with a seconds field.
type SchedulerConfig struct {
	Enabled           bool   `yaml:"enabled"`
	ExpirySettlement  string `yaml:"expiry_settlement"`
	ExpiryReminder    string `yaml:"expiry_reminder"`
	OutboxRelay       string `yaml:"outbox_relay"`
	IdempotencyPurge  string `yaml:"idempotency_purge"`
	OutboxBatchSize   int    `yaml:"outbox_batch_size"`
	OutboxMaxAttempts int    `yaml:"outbox_max_attempts"`
}

// Default returns the compiled-in configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:         "8099",
			Env:          "development",
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
			RateLimit:    100,
			RateWindow:   60 * time.Second,
		},
		Log: LogConfig{Level: "info"},
		Database: DatabaseConfig{
			Driver:          "mysql",
			DSN:             "nexo:nexo@tcp(localhost:3306)/nexo?charset=utf8mb4&parseTime=True&loc=UTC",
			MaxIdleConns:    10,
			MaxOpenConns:    100,
			ConnMaxLifetime: time.Hour,
		},
		JWT: JWTConfig{
			AccessSecret: "change-me-in-production",
			AccessExpiry: 12 * time.Hour,
			Issuer:       "nexo",
		},
		Admin: AdminConfig{
			Email:    "admin@nexo.local",
			Password: "change-me",
			Name:     "Nexo Admin",
		},
		Leads: LeadsConfig{
			Currency:                "INR",
			FallbackPlanName:        "Basic",
			FreeTierLeadFeeCents:    5000,
			FreeTierMinBalanceCents: 2000,
			LowBalanceAdminAlerts:   true,
			ExpiryReminderDays:      3,
		},
		Payment: PaymentConfig{
			Provider:      "stub",
			PaymentExpiry: 30 * time.Minute,
			MinTopUpCents: 100,
		},
		SendGrid: SendGridConfig{
			FromEmail: "alerts@nexo.local",
			FromName:  "Nexo Alerts",
		},
		RabbitMQ: RabbitMQConfig{
			Exchange: "nexo.events",
		},
		Idempotency: IdempotencyConfig{
			Path: "idempotency.db",
			TTL:  24 * time.Hour,
		},
		Scheduler: SchedulerConfig{
			Enabled:           true,
			ExpirySettlement:  "0 5 0 * * *",
			ExpiryReminder:    "0 0 9 * * *",
			OutboxRelay:       "*/10 * * * * *",
			IdempotencyPurge:  "0 0 * * * *",
			OutboxBatchSize:   100,
			OutboxMaxAttempts: 10,
		},
	}
}

// Load builds the configuration from the defaults, the YAML file named by
// CONFIG_PATH (if set) and environment overrides, in that order.
func Load() (*Config, error) {
	cfg := Default()
	if path := os.Getenv("CONFIG_PATH"); path != "" {
		if err := cfg.mergeFile(path); err != nil {
			return nil, err
		}
	}
	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) mergeFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}
	return nil
}

func (c *Config) applyEnv() {
	setString(&c.Server.Port, "PORT")
	setString(&c.Server.Env, "APP_ENV")
	setString(&c.Log.Level, "LOG_LEVEL")
	setString(&c.Database.Driver, "DATABASE_DRIVER")
	setString(&c.Database.DSN, "DATABASE_DSN")
	setString(&c.JWT.AccessSecret, "JWT_ACCESS_SECRET")
	setString(&c.Admin.Email, "ADMIN_EMAIL")
	setString(&c.Admin.Password, "ADMIN_PASSWORD")
	setString(&c.Payment.Provider, "PAYMENT_PROVIDER")
	setString(&c.Payment.WebhookSecret, "PAYMENT_WEBHOOK_SECRET")
	if v := os.Getenv("PAYMENT_ALLOW_UNSIGNED_WEBHOOKS"); v != "" {
		c.Payment.AllowUnsignedWebhooks = v == "true" || v == "1"
	}
	setString(&c.Razorpay.KeyID, "RAZORPAY_KEY_ID")
	setString(&c.Razorpay.KeySecret, "RAZORPAY_KEY_SECRET")
	setString(&c.Firebase.ServiceAccountPath, "FIREBASE_SERVICE_ACCOUNT_PATH")
	setString(&c.SendGrid.APIKey, "SENDGRID_API_KEY")
	setString(&c.RabbitMQ.URL, "RABBITMQ_URL")
	setString(&c.Idempotency.Path, "IDEMPOTENCY_DB_PATH")
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}
