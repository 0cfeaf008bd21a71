package controllers

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/bookfox/bookfox/internal/pkg/ledger"
	"github.com/bookfox/bookfox/internal/pkg/reconcile"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
)

const schedulingProvider = "scheduling"

// HandleSchedulingWebhook receives booking events from the scheduling
// provider. The route query parameter carries the partner's webhook route key.
//
// Contract towards the sender: malformed JSON is the only 400; everything
// else is acknowledged with 200 so the provider stops retrying, and the
// outcome is recorded on the event row instead.
func HandleSchedulingWebhook(c *fiber.Ctx) error {
	rawBody := append([]byte(nil), c.BodyRaw()...)
	routeKey := strings.TrimSpace(c.Query("route"))

	var ev reconcile.Event
	if err := json.Unmarshal(rawBody, &ev); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_payload"})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 25*time.Second)
	defer cancel()

	// The provider sends no delivery id; the ledger dedupes on the payload
	// hash, so verbatim retries short-circuit here.
	event, created, err := deps.Ledger.Record(ctx, ledger.EventInput{
		Provider:    schedulingProvider,
		EventType:   ev.Event,
		PayloadJSON: string(rawBody),
	})
	if err != nil {
		log.Errorf("[Webhook] Failed to record scheduling event: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "event_persist_failed"})
	}
	if !created {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"message": "duplicate"})
	}

	var result reconcile.Result
	switch ev.Event {
	case reconcile.EventInviteeCreated:
		result = deps.Reconciler.Reconcile(ctx, routeKey, ev)
	case reconcile.EventInviteeCancelled:
		result = deps.Reconciler.Cancel(ctx, routeKey, ev)
	default:
		_ = deps.Ledger.MarkCompleted(ctx, event.ID)
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"message": "ignored"})
	}

	switch result.Outcome {
	case reconcile.OutcomeCreated, reconcile.OutcomeDuplicate, reconcile.OutcomeCancelled:
		if err := deps.Ledger.MarkCompleted(ctx, event.ID); err != nil {
			log.Errorf("[Webhook] Failed to complete scheduling event %d: %v", event.ID, err)
		}
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"message": result.Outcome})
	default:
		// Unresolved and failed events stay visible to operators; the sender
		// still gets its acknowledgement.
		if err := deps.Ledger.MarkFailed(ctx, event.ID, errors.New(result.Reason)); err != nil {
			log.Errorf("[Webhook] Failed to mark scheduling event %d failed: %v", event.ID, err)
		}
		log.Warnf("[Webhook] Scheduling event %d %s: %s", event.ID, result.Outcome, result.Reason)
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"message": result.Outcome, "reason": result.Reason})
	}
}
