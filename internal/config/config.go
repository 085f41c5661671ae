// Package config holds the cart service configuration, loaded from
// environment variables.
package config

import (
	"fmt"
	"math"
	"time"

	"github.com/FreemaX94/VIVR-sub000/pkg/config"
)

// Config is the full configuration of the cart service.
type Config struct {
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`
	HTTPPort    int    `env:"HTTP_PORT" envDefault:"8080"`

	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"15s"`

	RedisAddr     string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPassword string `env:"REDIS_PASSWORD" envDefault:""`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`

	// CartTTL is how long an untouched cart snapshot survives.
	CartTTL time.Duration `env:"CART_TTL" envDefault:"720h"`

	KafkaBrokers []string `env:"KAFKA_BROKERS" envDefault:"localhost:9092"`

	Currency string `env:"CURRENCY" envDefault:"EUR"`
	Locale   string `env:"LOCALE" envDefault:"fr-FR"`

	// TaxPercent is the VAT rate applied to quotes.
	TaxPercent float64 `env:"TAX_PERCENT" envDefault:"20"`
	// ShippingFlat is the flat shipping charge, as a decimal string.
	ShippingFlat string `env:"SHIPPING_FLAT" envDefault:"5.00"`
	// FreeShippingThreshold waives shipping at or above this subtotal.
	FreeShippingThreshold string `env:"FREE_SHIPPING_THRESHOLD" envDefault:"150.00"`

	PaymentGatewayURL     string        `env:"PAYMENT_GATEWAY_URL" envDefault:"http://localhost:9090"`
	PaymentGatewayAPIKey  string        `env:"PAYMENT_GATEWAY_API_KEY" envDefault:""`
	PaymentGatewayTimeout time.Duration `env:"PAYMENT_GATEWAY_TIMEOUT" envDefault:"10s"`

	TracingEnabled    bool    `env:"TRACING_ENABLED" envDefault:"false"`
	TracingEndpoint   string  `env:"TRACING_ENDPOINT" envDefault:"localhost:4318"`
	TracingSampleRate float64 `env:"TRACING_SAMPLE_RATE" envDefault:"1.0"`
}

// Load reads the configuration from the environment and validates it.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := config.Load(cfg); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.HTTPPort < 1 || c.HTTPPort > 65535 {
		return fmt.Errorf("invalid HTTP_PORT: %d", c.HTTPPort)
	}
	if c.CartTTL <= 0 {
		return fmt.Errorf("CART_TTL must be positive, got %s", c.CartTTL)
	}
	// strconv.ParseFloat accepts "NaN" and "Inf", so finiteness must be
	// checked explicitly.
	if math.IsNaN(c.TaxPercent) || math.IsInf(c.TaxPercent, 0) || c.TaxPercent < 0 {
		return fmt.Errorf("TAX_PERCENT must be a non-negative finite number, got %v", c.TaxPercent)
	}
	if len(c.KafkaBrokers) == 0 {
		return fmt.Errorf("KAFKA_BROKERS must not be empty")
	}
	if len(c.Currency) != 3 {
		return fmt.Errorf("CURRENCY must be a three letter ISO code, got %q", c.Currency)
	}
	return nil
}

// IsProduction reports whether the service runs with production settings.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}
