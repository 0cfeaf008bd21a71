package controllers

import (
	"strings"

	"github.com/bookfox/bookfox/app/repository"
	"github.com/bookfox/bookfox/internal/pkg/config"
	"github.com/bookfox/bookfox/internal/pkg/ledger"
	"github.com/bookfox/bookfox/internal/pkg/lifecycle"
	"github.com/bookfox/bookfox/internal/pkg/payment"
	"github.com/bookfox/bookfox/internal/pkg/payout"
	"github.com/bookfox/bookfox/internal/pkg/reconcile"
	"github.com/gofiber/fiber/v2"
)

// Deps bundles everything the controllers need. The router builds it once at
// startup and calls Initialize; handlers never construct services or read env
// themselves.
type Deps struct {
	Ledger     *ledger.Service
	Reconciler *reconcile.Reconciler
	Payments   *payment.Handler
	Lifecycle  *lifecycle.Machine
	Payouts    *payout.Engine
	Repos      *repository.Repositories
	Webhook    config.WebhookConfig
}

var deps Deps

// Initialize wires the controller package with its dependencies.
func Initialize(d Deps) {
	deps = d
}

// actorFromRequest reads the authenticated caller role from the request. The
// gateway in front of this service authenticates callers and forwards the
// role; an absent or unknown role is rejected upstream of any state change.
func actorFromRequest(c *fiber.Ctx) (lifecycle.Actor, bool) {
	switch strings.ToLower(strings.TrimSpace(c.Get("X-Actor-Role"))) {
	case string(lifecycle.ActorPartner):
		return lifecycle.ActorPartner, true
	case string(lifecycle.ActorAdmin):
		return lifecycle.ActorAdmin, true
	default:
		return "", false
	}
}
