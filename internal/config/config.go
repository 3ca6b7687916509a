// config.go
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Port        string `envconfig:"PORT" default:"8080"`
	MongoURI    string `envconfig:"MONGO_URI" default:"mongodb://host.docker.internal:27017"`
	MongoDBName string `envconfig:"MONGO_DB_NAME" default:"storefront"`

	// Opcionales: si están vacíos no se levanta el relay de Rabbit ni el guard de Redis
	RabbitURL string `envconfig:"RABBIT_URL"`
	RedisURL  string `envconfig:"REDIS_URL"`

	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`
	LogFormat string `envconfig:"LOG_FORMAT" default:"json"`

	Stripe   StripeConfig
	Checkout CheckoutConfig
	JWT      JWTConfig
}

type StripeConfig struct {
	SecretKey        string        `envconfig:"STRIPE_SECRET_KEY" required:"true"`
	WebhookSecret    string        `envconfig:"STRIPE_WEBHOOK_SECRET" required:"true"`
	WebhookTolerance time.Duration `envconfig:"STRIPE_WEBHOOK_TOLERANCE" default:"5m"`
}

type CheckoutConfig struct {
	SuccessURL string `envconfig:"CHECKOUT_SUCCESS_URL" default:"http://localhost:5173/checkout/success?session_id={CHECKOUT_SESSION_ID}"`
	CancelURL  string `envconfig:"CHECKOUT_CANCEL_URL" default:"http://localhost:5173/cart"`
	TaxRate    string `envconfig:"TAX_RATE" default:"0"`
}

type JWTConfig struct {
	Secret string `envconfig:"JWT_SECRET" required:"true"`
	Issuer string `envconfig:"JWT_ISSUER" default:"storefront"`
}

// Load lee el .env (si existe) y luego las variables de entorno.
func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// envconfig acepta variables definidas pero vacías; los secretos no pueden estarlo.
func (c *Config) validate() error {
	secrets := map[string]string{
		"STRIPE_SECRET_KEY":     c.Stripe.SecretKey,
		"STRIPE_WEBHOOK_SECRET": c.Stripe.WebhookSecret,
		"JWT_SECRET":            c.JWT.Secret,
	}
	for name, v := range secrets {
		if strings.TrimSpace(v) == "" {
			return fmt.Errorf("parsing config: %s must not be empty", name)
		}
	}
	return nil
}

// IsTestMode indica si la clave de Stripe es de test.
func (s StripeConfig) IsTestMode() bool {
	return len(s.SecretKey) < 8 || s.SecretKey[:8] != "sk_live_"
}
