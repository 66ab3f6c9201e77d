package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/basicauth"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/monitor"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/YaoKonate/SikaMarket/app/repository"
	"github.com/YaoKonate/SikaMarket/internal/pkg/cache"
	"github.com/YaoKonate/SikaMarket/internal/pkg/database"
	"github.com/YaoKonate/SikaMarket/internal/pkg/env"
	"github.com/YaoKonate/SikaMarket/internal/pkg/metrics/counter"
	"github.com/YaoKonate/SikaMarket/internal/pkg/router"
)

func main() {
	app := NewApplication()
	err := app.Listen(fmt.Sprintf("%s:%s", env.GetEnv("APP_HOST", "localhost"), env.GetEnv("APP_PORT", "4000")))
	log.Fatal(err)
}

func NewApplication() *fiber.App {
	env.SetupEnvFile()
	database.SetupDatabase()
	cache.SetupCache()

	repository.InitializeFactory(database.GetDB())

	// Drain buffered view counters into the contents table in the background.
	counter.StartFlusher(context.Background(), 30*time.Second)

	app := fiber.New(fiber.Config{
		AppName:   "sikamarket",
		BodyLimit: 1 << 20, // payment and view payloads are small
	})

	// recovery and logging
	app.Use(recover.New(), logger.New())

	// fiber metrics
	app.Get("/metrics", basicauth.New(basicauth.Config{
		Users: map[string]string{
			env.GetEnv("METRICS_USER", "admin"): env.GetEnv("METRICS_PASSWORD", "admin"),
		},
	}), monitor.New())

	// ROUTER
	router.InstallRouter(app)

	return app
}
