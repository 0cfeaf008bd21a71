package controllers

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bookfox/bookfox/internal/pkg/payout"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"
)

type settleRequest struct {
	PeriodStart string `json:"period_start"`
	PeriodEnd   string `json:"period_end"`
}

// HandleCreatePayout settles a partner for a period. Every run produces a new
// payout revision; recomputing the same bounds never touches earlier rows.
func HandleCreatePayout(c *fiber.Ctx) error {
	partnerID, err := c.ParamsInt("id")
	if err != nil || partnerID <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid partner id"})
	}

	var req settleRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_payload"})
	}
	start, err := parsePeriodBound(req.PeriodStart)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid period_start"})
	}
	end, err := parsePeriodBound(req.PeriodEnd)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid period_end"})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	settled, err := deps.Payouts.Settle(ctx, uint(partnerID), start, end)
	switch {
	case err == nil:
		return c.Status(fiber.StatusCreated).JSON(settled)
	case errors.Is(err, payout.ErrInvalidPeriod):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, gorm.ErrRecordNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "partner not found"})
	case errors.Is(err, gorm.ErrDuplicatedKey):
		// A concurrent run for the same bounds got the revision first.
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "settlement already running for this period"})
	case settled != nil:
		// The settlement committed but the statement artifact did not; it can
		// be re-rendered through the statement endpoint.
		log.Errorf("[Payout] Settlement %d committed without statement: %v", settled.ID, err)
		return c.Status(fiber.StatusCreated).JSON(settled)
	default:
		log.Errorf("[Payout] Settlement for partner %d failed: %v", partnerID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "settlement failed"})
	}
}

// HandleIssuePayout freezes a pending payout and notifies the partner.
func HandleIssuePayout(c *fiber.Ctx) error {
	payoutID, err := c.ParamsInt("id")
	if err != nil || payoutID <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid payout id"})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	issued, err := deps.Payouts.Issue(ctx, uint(payoutID))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "payout not found"})
		}
		log.Errorf("[Payout] Issuing payout %d failed: %v", payoutID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "issue failed"})
	}
	return c.Status(fiber.StatusOK).JSON(issued)
}

// HandleGetPayoutStatement serves the payout statement artifact. The render
// is deterministic, so a lost artifact comes back byte-identical.
func HandleGetPayoutStatement(c *fiber.Ctx) error {
	payoutID, err := c.ParamsInt("id")
	if err != nil || payoutID <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid payout id"})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	body, err := deps.Payouts.Statement(ctx, uint(payoutID))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "payout not found"})
		}
		log.Errorf("[Payout] Statement for payout %d failed: %v", payoutID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "statement unavailable"})
	}

	c.Set(fiber.HeaderContentType, "text/html; charset=utf-8")
	return c.Status(fiber.StatusOK).Send(body)
}

// parsePeriodBound accepts RFC 3339 timestamps and plain dates.
func parsePeriodBound(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", s)
}
