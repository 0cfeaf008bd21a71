package router

import (
	"net"
	"strconv"
	"time"

	"github.com/bookfox/bookfox/app/controllers"
	"github.com/bookfox/bookfox/app/repository"
	"github.com/bookfox/bookfox/internal/pkg/cache"
	"github.com/bookfox/bookfox/internal/pkg/config"
	"github.com/bookfox/bookfox/internal/pkg/database"
	"github.com/bookfox/bookfox/internal/pkg/env"
	"github.com/bookfox/bookfox/internal/pkg/identity"
	"github.com/bookfox/bookfox/internal/pkg/ledger"
	"github.com/bookfox/bookfox/internal/pkg/lifecycle"
	"github.com/bookfox/bookfox/internal/pkg/notify"
	"github.com/bookfox/bookfox/internal/pkg/payment"
	"github.com/bookfox/bookfox/internal/pkg/payout"
	"github.com/bookfox/bookfox/internal/pkg/reconcile"
	"github.com/bookfox/bookfox/internal/pkg/scheduling"
	"github.com/bookfox/bookfox/internal/pkg/storage"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/storage/redis"
)

type ApiRouter struct {
}

func (h ApiRouter) InstallRouter(app *fiber.App) {
	db := database.GetDB()
	repos := repository.NewRepositories(db)
	webhookCfg := config.LoadWebhookConfig()

	notifier := notify.NewQueueNotifier(db)
	ledgerSvc := ledger.NewServiceFromDB(db)
	resolver := identity.NewResolver(repos.Account, notifier, webhookCfg.PublicBaseURL)

	store, err := storage.NewStoreFromEnv()
	if err != nil {
		log.Errorf("[Router] Statement store unavailable: %v", err)
		panic(err)
	}

	controllers.Initialize(controllers.Deps{
		Ledger:     ledgerSvc,
		Reconciler: reconcile.NewReconciler(repos.Partner, repos.Offer, repos.Booking, resolver, scheduling.NewClientFromEnv(), webhookCfg.RequireAccount),
		Payments:   payment.NewHandler(repos.Account, resolver, notifier),
		Lifecycle:  lifecycle.NewMachine(repos.Offer, repos.Partner, notifier),
		Payouts:    payout.NewEngine(repos.Partner, repos.Booking, repos.Payout, store, notifier, webhookCfg.CommissionTaxRate),
		Repos:      repos,
		Webhook:    webhookCfg,
	})

	api := app.Group("/api", limiter.New(limiter.Config{
		Max:        120,
		Expiration: 1 * time.Minute,
		Storage:    newLimiterStorage(),
	}))

	webhooks := api.Group("/webhooks")
	webhooks.Post("/scheduling", controllers.HandleSchedulingWebhook)
	webhooks.Post("/payment", controllers.HandlePaymentWebhook)

	api.Post("/offers/:id/status", controllers.HandleOfferStatusTransition)
	api.Put("/partners/:id/scheduling", controllers.HandlePartnerSchedulingCredentials)
	api.Post("/partners/:id/payouts", controllers.HandleCreatePayout)
	api.Post("/payouts/:id/issue", controllers.HandleIssuePayout)
	api.Get("/payouts/:id/statement", controllers.HandleGetPayoutStatement)

	api.Get("/admin/events", controllers.HandleAdminListEvents)
}

func NewApiRouter() *ApiRouter {
	return &ApiRouter{}
}

// newLimiterStorage backs the rate limiter with redis so limits survive
// restarts. Reuses the cache client's connection details, database 1.
func newLimiterStorage() *redis.Storage {
	host := "localhost"
	port := 6379
	password := env.GetEnv("CACHE_PASSWORD", "")
	if client := cache.GetClient(); client != nil {
		if h, p, err := net.SplitHostPort(client.Options().Addr); err == nil {
			host = h
			if v, err := strconv.Atoi(p); err == nil {
				port = v
			}
		}
		if p := client.Options().Password; p != "" {
			password = p
		}
	}

	return redis.New(redis.Config{
		Host:     host,
		Port:     port,
		Password: password,
		Database: 1,
	})
}
