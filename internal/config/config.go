package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/shopspring/decimal"
)

type Config struct {
	Port          string `envconfig:"PORT" default:"8082"`
	DatabaseDSN   string `envconfig:"ORDER_DB_DSN" required:"true"`
	RunMigrations bool   `envconfig:"RUN_MIGRATIONS" default:"true"`
	LogLevel      string `envconfig:"LOG_LEVEL" default:"info"`

	StoreName      string `envconfig:"STORE_NAME" default:"Zim Mart"`
	Currency       string `envconfig:"CURRENCY" default:"USD"`
	DeliveryFeeRaw string `envconfig:"DELIVERY_FEE_USD" default:"3.00"`

	WhatsAppAPIBase       string `envconfig:"WHATSAPP_API_BASE" default:"https://graph.facebook.com/v17.0"`
	WhatsAppToken         string `envconfig:"WHATSAPP_TOKEN"`
	WhatsAppPhoneNumberID string `envconfig:"WHATSAPP_PHONE_NUMBER_ID"`
	WhatsAppVerifyToken   string `envconfig:"WHATSAPP_VERIFY_TOKEN"`
	AdminWhatsAppTo       string `envconfig:"ADMIN_WHATSAPP_TO"`

	// Optional integrations; empty disables them.
	AMQPURL        string        `envconfig:"AMQP_URL"`
	RedisAddr      string        `envconfig:"REDIS_ADDR"`
	IdempotencyTTL time.Duration `envconfig:"IDEMPOTENCY_TTL" default:"24h"`

	DeliveryFee decimal.Decimal `ignored:"true"`
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	if strings.TrimSpace(cfg.DatabaseDSN) == "" {
		return nil, fmt.Errorf("ORDER_DB_DSN not set")
	}

	fee, err := decimal.NewFromString(strings.TrimSpace(cfg.DeliveryFeeRaw))
	if err != nil {
		return nil, fmt.Errorf("parse DELIVERY_FEE_USD: %w", err)
	}
	if fee.IsNegative() {
		return nil, fmt.Errorf("DELIVERY_FEE_USD must not be negative, got %s", fee)
	}
	cfg.DeliveryFee = fee.Round(2)
	cfg.AdminWhatsAppTo = strings.TrimSpace(cfg.AdminWhatsAppTo)

	return &cfg, nil
}
