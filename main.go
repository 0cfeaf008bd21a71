package main

import (
	"fmt"
	"log"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/monitor"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/bookfox/bookfox/internal/pkg/cache"
	"github.com/bookfox/bookfox/internal/pkg/database"
	"github.com/bookfox/bookfox/internal/pkg/env"
	"github.com/bookfox/bookfox/internal/pkg/jobqueue"
	"github.com/bookfox/bookfox/internal/pkg/router"
)

func main() {
	app := NewApplication()
	err := app.Listen(fmt.Sprintf("%s:%s", env.GetEnv("APP_HOST", "localhost"), env.GetEnv("APP_PORT", "8080")))
	log.Fatal(err)
}

func NewApplication() *fiber.App {
	env.SetupEnvFile()
	database.SetupDatabase()
	cache.SetupCache()
	jobqueue.GetManager().Start()

	app := fiber.New(fiber.Config{
		AppName: "BookFox",
	})
	app.Use(recover.New(), logger.New())
	app.Get("/metrics", monitor.New())

	// ROUTER
	router.InstallRouter(app)

	return app
}
