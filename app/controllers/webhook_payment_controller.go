package controllers

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bookfox/bookfox/internal/pkg/ledger"
	"github.com/bookfox/bookfox/internal/pkg/payment"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
)

const paymentProvider = "payment"

// HandlePaymentWebhook receives signed events from the payment provider.
// Signature and envelope problems are rejected before anything is written;
// once an event is in the ledger it is acknowledged, whatever its outcome.
func HandlePaymentWebhook(c *fiber.Ctx) error {
	rawBody := append([]byte(nil), c.BodyRaw()...)
	signature := strings.TrimSpace(c.Get("X-Webhook-Signature"))

	if deps.Webhook.PaymentWebhookSecret != "" {
		if !payment.VerifyWebhookSignature(rawBody, signature, deps.Webhook.PaymentWebhookSecret) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_signature"})
		}
	}

	env, err := payment.ParseEnvelope(rawBody)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_payload"})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 25*time.Second)
	defer cancel()

	event, created, err := deps.Ledger.Record(ctx, ledger.EventInput{
		Provider:        paymentProvider,
		ExternalEventID: env.ID,
		EventType:       env.Type,
		PayloadJSON:     string(rawBody),
	})
	if err != nil {
		log.Errorf("[Webhook] Failed to record payment event %s: %v", env.ID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "event_persist_failed"})
	}
	if !created {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"message": "duplicate"})
	}

	handleErr := deps.Payments.Handle(ctx, env)
	switch {
	case handleErr == nil:
		if err := deps.Ledger.MarkCompleted(ctx, event.ID); err != nil {
			log.Errorf("[Webhook] Failed to complete payment event %d: %v", event.ID, err)
		}
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"message": "processed"})
	case errors.Is(handleErr, payment.ErrUnhandledEventType):
		// Outside the dispatch table: recorded and done, nothing to do.
		if err := deps.Ledger.MarkCompleted(ctx, event.ID); err != nil {
			log.Errorf("[Webhook] Failed to complete payment event %d: %v", event.ID, err)
		}
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"message": "ignored"})
	default:
		if err := deps.Ledger.MarkFailed(ctx, event.ID, handleErr); err != nil {
			log.Errorf("[Webhook] Failed to mark payment event %d failed: %v", event.ID, err)
		}
		log.Warnf("[Webhook] Payment event %s (%s) failed: %v", env.ID, env.Type, handleErr)
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"message": "failed", "reason": handleErr.Error()})
	}
}
