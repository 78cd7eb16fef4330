package bootstrap

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	LedgerDriverPostgres = "postgres"
	LedgerDriverMemory   = "memory"

	// ISO 4217 currencies use at most four minor-unit digits.
	maxCurrencyExponent = 4
)

// Config is the resolved runtime configuration for the settlement service.
type Config struct {
	ServiceID string

	HTTPPort int
	GRPCPort int

	LedgerDriver string
	DatabaseURL  string
	MaxDBConns   int32
	AutoMigrate  bool
	RedisURL     string

	SettledCacheTTL time.Duration

	StripeSecretKey        string
	StripeAPIBaseURL       string
	StripeWebhookSecret    string
	StripeWebhookTolerance time.Duration

	LedgerCurrency         string
	CurrencyExponent       int32
	CheckoutSuccessURL     string
	CheckoutCancelURL      string
	MinTipAmount           int64
	MaxTipAmount           int64
	DefaultSupportPageSize int
	MaxSupportPageSize     int

	JWTPublicKeyPEM string

	KafkaBrokers       []string
	KafkaSettledTopic  string
	OutboxPollInterval time.Duration
	OutboxBatchSize    int
}

// configFile mirrors configs/default.yaml.
type configFile struct {
	Service struct {
		ID       string `yaml:"id"`
		HTTPPort int    `yaml:"http_port"`
		GRPCPort int    `yaml:"grpc_port"`
	} `yaml:"service"`
	Dependencies struct {
		LedgerDriver string   `yaml:"ledger_driver"`
		PostgresURL  string   `yaml:"postgres_url"`
		RedisURL     string   `yaml:"redis_url"`
		KafkaBrokers []string `yaml:"kafka_brokers"`
	} `yaml:"dependencies"`
	Ledger struct {
		Currency         string `yaml:"currency"`
		CurrencyExponent *int32 `yaml:"currency_exponent"`
		MinTipAmount     int64  `yaml:"min_tip_amount"`
		MaxTipAmount     int64  `yaml:"max_tip_amount"`
	} `yaml:"ledger"`
	Stripe struct {
		WebhookToleranceSeconds int    `yaml:"webhook_tolerance_seconds"`
		CheckoutSuccessURL      string `yaml:"checkout_success_url"`
		CheckoutCancelURL       string `yaml:"checkout_cancel_url"`
	} `yaml:"stripe"`
	Events struct {
		SettledTopic string `yaml:"settled_topic"`
	} `yaml:"events"`
}

// LoadConfig resolves configuration as defaults, then file, then environment.
// A missing file is not an error.
func LoadConfig(path string) (Config, error) {
	cfg, err := loadConfig(path)
	if err != nil {
		return Config{}, err
	}
	if err := cfg.validateLedger(); err != nil {
		return Config{}, err
	}
	if err := cfg.validateService(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LoadLedgerConfig resolves the same configuration but only checks what direct
// ledger access needs. Operator tooling uses it.
func LoadLedgerConfig(path string) (Config, error) {
	cfg, err := loadConfig(path)
	if err != nil {
		return Config{}, err
	}
	if err := cfg.validateLedger(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func loadConfig(path string) (Config, error) {
	cfg := Config{
		ServiceID:              "support-settlement-service",
		HTTPPort:               8080,
		GRPCPort:               9090,
		LedgerDriver:           LedgerDriverPostgres,
		MaxDBConns:             20,
		AutoMigrate:            true,
		SettledCacheTTL:        72 * time.Hour,
		StripeWebhookTolerance: 5 * time.Minute,
		LedgerCurrency:         "usd",
		CurrencyExponent:       2,
		MinTipAmount:           100,
		MaxTipAmount:           100000,
		DefaultSupportPageSize: 20,
		MaxSupportPageSize:     100,
		KafkaSettledTopic:      "support.settled.v1",
		OutboxPollInterval:     2 * time.Second,
		OutboxBatchSize:        100,
	}

	raw, err := os.ReadFile(path)
	if err == nil {
		var f configFile
		if unmarshalErr := yaml.Unmarshal(raw, &f); unmarshalErr != nil {
			return Config{}, fmt.Errorf("parse config file: %w", unmarshalErr)
		}
		if f.Service.ID != "" {
			cfg.ServiceID = f.Service.ID
		}
		if f.Service.HTTPPort > 0 {
			cfg.HTTPPort = f.Service.HTTPPort
		}
		if f.Service.GRPCPort > 0 {
			cfg.GRPCPort = f.Service.GRPCPort
		}
		if f.Dependencies.LedgerDriver != "" {
			cfg.LedgerDriver = f.Dependencies.LedgerDriver
		}
		if f.Dependencies.PostgresURL != "" {
			cfg.DatabaseURL = f.Dependencies.PostgresURL
		}
		if f.Dependencies.RedisURL != "" {
			cfg.RedisURL = f.Dependencies.RedisURL
		}
		if len(f.Dependencies.KafkaBrokers) > 0 {
			cfg.KafkaBrokers = f.Dependencies.KafkaBrokers
		}
		if f.Ledger.Currency != "" {
			cfg.LedgerCurrency = f.Ledger.Currency
		}
		if f.Ledger.CurrencyExponent != nil {
			cfg.CurrencyExponent = *f.Ledger.CurrencyExponent
		}
		if f.Ledger.MinTipAmount > 0 {
			cfg.MinTipAmount = f.Ledger.MinTipAmount
		}
		if f.Ledger.MaxTipAmount > 0 {
			cfg.MaxTipAmount = f.Ledger.MaxTipAmount
		}
		if f.Stripe.WebhookToleranceSeconds > 0 {
			cfg.StripeWebhookTolerance = time.Duration(f.Stripe.WebhookToleranceSeconds) * time.Second
		}
		if f.Stripe.CheckoutSuccessURL != "" {
			cfg.CheckoutSuccessURL = f.Stripe.CheckoutSuccessURL
		}
		if f.Stripe.CheckoutCancelURL != "" {
			cfg.CheckoutCancelURL = f.Stripe.CheckoutCancelURL
		}
		if f.Events.SettledTopic != "" {
			cfg.KafkaSettledTopic = f.Events.SettledTopic
		}
	} else if !os.IsNotExist(err) {
		return Config{}, fmt.Errorf("read config file: %w", err)
	}

	cfg.LedgerDriver = strings.ToLower(strings.TrimSpace(envOrDefault("LEDGER_DRIVER", cfg.LedgerDriver)))
	cfg.DatabaseURL = envOrDefault("DB_URL", envOrDefault("POSTGRES_URL", cfg.DatabaseURL))
	cfg.RedisURL = envOrDefault("REDIS_URL", cfg.RedisURL)
	cfg.StripeSecretKey = envOrDefault("STRIPE_SECRET_KEY", cfg.StripeSecretKey)
	cfg.StripeAPIBaseURL = envOrDefault("STRIPE_API_BASE_URL", cfg.StripeAPIBaseURL)
	cfg.StripeWebhookSecret = envOrDefault("STRIPE_WEBHOOK_SECRET", cfg.StripeWebhookSecret)
	cfg.LedgerCurrency = strings.ToLower(strings.TrimSpace(envOrDefault("LEDGER_CURRENCY", cfg.LedgerCurrency)))
	cfg.CheckoutSuccessURL = envOrDefault("CHECKOUT_SUCCESS_URL", cfg.CheckoutSuccessURL)
	cfg.CheckoutCancelURL = envOrDefault("CHECKOUT_CANCEL_URL", cfg.CheckoutCancelURL)
	cfg.JWTPublicKeyPEM = envOrDefault("JWT_PUBLIC_KEY_PEM", cfg.JWTPublicKeyPEM)
	cfg.KafkaBrokers = envCSV("KAFKA_BROKERS", cfg.KafkaBrokers)
	cfg.KafkaSettledTopic = envOrDefault("KAFKA_SETTLED_TOPIC", cfg.KafkaSettledTopic)

	cfg.HTTPPort = envInt("HTTP_PORT", cfg.HTTPPort)
	cfg.GRPCPort = envInt("GRPC_PORT", cfg.GRPCPort)
	cfg.MaxDBConns = int32(envInt("DB_MAX_CONNS", int(cfg.MaxDBConns)))
	cfg.AutoMigrate = envBool("DB_AUTO_MIGRATE", cfg.AutoMigrate)
	cfg.CurrencyExponent = int32(envInt("LEDGER_CURRENCY_EXPONENT", int(cfg.CurrencyExponent)))
	cfg.MinTipAmount = int64(envInt("MIN_TIP_AMOUNT", int(cfg.MinTipAmount)))
	cfg.MaxTipAmount = int64(envInt("MAX_TIP_AMOUNT", int(cfg.MaxTipAmount)))
	cfg.OutboxBatchSize = envInt("OUTBOX_BATCH_SIZE", cfg.OutboxBatchSize)

	cfg.SettledCacheTTL = time.Duration(envInt("SETTLED_CACHE_TTL_HOURS", int(cfg.SettledCacheTTL.Hours()))) * time.Hour
	cfg.StripeWebhookTolerance = time.Duration(envInt("STRIPE_WEBHOOK_TOLERANCE_SECONDS", int(cfg.StripeWebhookTolerance.Seconds()))) * time.Second
	cfg.OutboxPollInterval = time.Duration(envInt("OUTBOX_POLL_SECONDS", int(cfg.OutboxPollInterval.Seconds()))) * time.Second

	return cfg, nil
}

func (c Config) validateLedger() error {
	switch c.LedgerDriver {
	case LedgerDriverPostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("missing DB_URL/POSTGRES_URL")
		}
	case LedgerDriverMemory:
	default:
		return fmt.Errorf("unknown LEDGER_DRIVER %q", c.LedgerDriver)
	}
	if c.CurrencyExponent < 0 || c.CurrencyExponent > maxCurrencyExponent {
		return fmt.Errorf("invalid LEDGER_CURRENCY_EXPONENT %d", c.CurrencyExponent)
	}
	return nil
}

func (c Config) validateService() error {
	if strings.TrimSpace(c.StripeWebhookSecret) == "" {
		return fmt.Errorf("missing STRIPE_WEBHOOK_SECRET")
	}
	if c.MinTipAmount <= 0 || c.MaxTipAmount < c.MinTipAmount {
		return fmt.Errorf("invalid tip bounds [%d, %d]", c.MinTipAmount, c.MaxTipAmount)
	}
	return nil
}

func envOrDefault(name, fallback string) string {
	if value := os.Getenv(name); value != "" {
		return value
	}
	return fallback
}

// envInt falls back on empty or unparseable values.
func envInt(name string, fallback int) int {
	raw := os.Getenv(name)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}

func envBool(name string, fallback bool) bool {
	switch os.Getenv(name) {
	case "1", "true", "TRUE", "yes", "YES":
		return true
	case "0", "false", "FALSE", "no", "NO":
		return false
	default:
		return fallback
	}
}

func envCSV(name string, fallback []string) []string {
	raw := os.Getenv(name)
	if raw == "" {
		return fallback
	}
	parts := make([]string, 0)
	for _, part := range strings.Split(raw, ",") {
		trimmed := strings.TrimSpace(part)
		if trimmed == "" {
			continue
		}
		parts = append(parts, trimmed)
	}
	if len(parts) == 0 {
		return fallback
	}
	return parts
}
