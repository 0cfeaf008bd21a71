package config

import (
	"strconv"

	"github.com/bookfox/bookfox/internal/pkg/env"
	"github.com/gofiber/fiber/v2/log"
)

// WebhookConfig carries everything the webhook ingestion gateway needs. It is
// built once at startup and injected; handlers never read env themselves.
type WebhookConfig struct {
	// PaymentWebhookSecret is the shared HMAC secret for payment webhook
	// signatures. Empty means signature verification is disabled (dev only).
	PaymentWebhookSecret string

	// PublicBaseURL is the externally reachable base URL, used in
	// credential-setup links sent to new accounts.
	PublicBaseURL string

	// RequireAccount makes the booking reconciler refuse to create accounts
	// as a side effect of a scheduling event.
	RequireAccount bool

	// CommissionTaxRate is the flat tax percentage applied to the commission
	// part of a payout.
	CommissionTaxRate float64
}

// LoadWebhookConfig builds the webhook configuration from the environment.
func LoadWebhookConfig() WebhookConfig {
	cfg := WebhookConfig{
		PaymentWebhookSecret: env.GetEnv("PAYMENT_WEBHOOK_SECRET", ""),
		PublicBaseURL:        env.GetEnv("PUBLIC_BASE_URL", "http://localhost:8080"),
		RequireAccount:       env.GetEnv("RECONCILE_REQUIRE_ACCOUNT", "false") == "true",
	}

	rate := env.GetEnv("COMMISSION_TAX_RATE", "0")
	parsed, err := strconv.ParseFloat(rate, 64)
	if err != nil || parsed < 0 || parsed >= 100 {
		log.Warnf("[Config] Invalid COMMISSION_TAX_RATE %q, using 0", rate)
		parsed = 0
	}
	cfg.CommissionTaxRate = parsed

	if cfg.PaymentWebhookSecret == "" {
		log.Warnf("[Config] PAYMENT_WEBHOOK_SECRET is not set, payment webhook signatures are NOT verified")
	}
	return cfg
}
