package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setSecrets(t *testing.T) {
	t.Helper()
	t.Setenv("STRIPE_SECRET_KEY", "sk_test_123")
	t.Setenv("STRIPE_WEBHOOK_SECRET", "whsec_123")
	t.Setenv("JWT_SECRET", "jwt-secret")
}

func TestLoadDefaults(t *testing.T) {
	setSecrets(t)
	unsetEnv(t, "PORT", "MONGO_DB_NAME", "TAX_RATE", "STRIPE_WEBHOOK_TOLERANCE")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "storefront", cfg.MongoDBName)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "0", cfg.Checkout.TaxRate)
	assert.Equal(t, 5*time.Minute, cfg.Stripe.WebhookTolerance)
}

func TestLoadFromEnv(t *testing.T) {
	setSecrets(t)
	t.Setenv("PORT", "9090")
	t.Setenv("STRIPE_WEBHOOK_TOLERANCE", "2m")
	t.Setenv("TAX_RATE", "0.21")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, "whsec_123", cfg.Stripe.WebhookSecret)
	assert.Equal(t, 2*time.Minute, cfg.Stripe.WebhookTolerance)
	assert.Equal(t, "0.21", cfg.Checkout.TaxRate)
}

func TestLoadRequiresSecrets(t *testing.T) {
	for _, name := range []string{"STRIPE_SECRET_KEY", "STRIPE_WEBHOOK_SECRET", "JWT_SECRET"} {
		t.Run(name+" unset", func(t *testing.T) {
			setSecrets(t)
			unsetEnv(t, name)

			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), name)
		})
		t.Run(name+" empty", func(t *testing.T) {
			setSecrets(t)
			t.Setenv(name, "  ")

			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), name)
		})
	}
}

func TestStripeIsTestMode(t *testing.T) {
	assert.True(t, StripeConfig{SecretKey: "sk_test_abc"}.IsTestMode())
	assert.False(t, StripeConfig{SecretKey: "sk_live_abc"}.IsTestMode())
}

func unsetEnv(t *testing.T, keys ...string) {
	t.Helper()
	for _, k := range keys {
		if prev, ok := os.LookupEnv(k); ok {
			t.Cleanup(func() { os.Setenv(k, prev) })
		}
		os.Unsetenv(k)
	}
}
