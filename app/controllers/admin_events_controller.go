package controllers

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
)

// HandleAdminListEvents lists inbound events by status for operator
// inspection. Failed events carry the reason they could not be reconciled;
// this is the work queue for the manual sweep.
func HandleAdminListEvents(c *fiber.Ctx) error {
	status := c.Query("status", "failed")
	provider := c.Query("provider")
	limit := c.QueryInt("limit", 100)

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	events, err := deps.Ledger.ListByStatus(ctx, provider, status, limit)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "event listing failed"})
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"events": events,
		"count":  len(events),
	})
}
