package controllers

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"
)

type schedulingCredentialsRequest struct {
	APIToken string `json:"api_token"`
}

// HandlePartnerSchedulingCredentials stores the partner's scheduling provider
// API token and hands back the webhook route key the provider must deliver
// to. The route key is generated once and survives token rotations.
func HandlePartnerSchedulingCredentials(c *fiber.Ctx) error {
	partnerID, err := c.ParamsInt("id")
	if err != nil || partnerID <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid partner id"})
	}

	var req schedulingCredentialsRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_payload"})
	}
	token := strings.TrimSpace(req.APIToken)
	if token == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "api_token is required"})
	}

	partner, err := deps.Repos.Partner.GetByID(uint(partnerID))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "partner not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "partner lookup failed"})
	}

	partner.SchedulingToken = token
	if partner.WebhookRouteKey == "" {
		if err := partner.GenerateWebhookRouteKey(); err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "route key generation failed"})
		}
	}
	if err := deps.Repos.Partner.Update(partner); err != nil {
		log.Errorf("[Partner] Failed to store scheduling credentials for partner %d: %v", partner.ID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "credential update failed"})
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"webhook_route_key": partner.WebhookRouteKey,
	})
}
