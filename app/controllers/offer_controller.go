package controllers

import (
	"context"
	"errors"
	"time"

	"github.com/bookfox/bookfox/internal/pkg/lifecycle"
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type offerStatusRequest struct {
	To     string `json:"to"`
	Reason string `json:"reason"`
}

// HandleOfferStatusTransition moves an offer through its review lifecycle.
// The edge must exist in the lifecycle table for the caller's role.
func HandleOfferStatusTransition(c *fiber.Ctx) error {
	offerID, err := c.ParamsInt("id")
	if err != nil || offerID <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid offer id"})
	}

	actor, ok := actorFromRequest(c)
	if !ok {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "unknown actor role"})
	}

	var req offerStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_payload"})
	}
	if req.To == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "target status is required"})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	offer, err := deps.Lifecycle.Transition(ctx, uint(offerID), req.To, actor, req.Reason)
	switch {
	case err == nil:
		return c.Status(fiber.StatusOK).JSON(offer)
	case errors.Is(err, gorm.ErrRecordNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "offer not found"})
	case errors.Is(err, lifecycle.ErrReasonRequired):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, lifecycle.ErrIllegalTransition):
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, lifecycle.ErrConflict):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": err.Error()})
	default:
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "transition failed"})
	}
}
