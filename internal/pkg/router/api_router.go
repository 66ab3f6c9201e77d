package router

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"

	"github.com/YaoKonate/SikaMarket/app/controllers"
	"github.com/YaoKonate/SikaMarket/internal/pkg/middleware"
)

type ApiRouter struct {
}

func (h ApiRouter) InstallRouter(app *fiber.App) {
	api := app.Group("/api", limiter.New(limiter.Config{
		Max: 120,
	}))
	api.Get("/", func(ctx *fiber.Ctx) error {
		return ctx.Status(fiber.StatusOK).JSON(fiber.Map{
			"message": "Hello from api",
		})
	})

	v1 := api.Group("/v1")

	// Provider callbacks authenticate through their signature header, not an
	// API key, so the webhook route sits outside the authenticated group.
	v1.Post("/payments/webhook/:provider", controllers.HandlePaymentWebhook)

	authed := v1.Group("", middleware.APIKeyAuthMiddleware())
	authed.Post("/payments/initiate", controllers.HandleInitiatePayment)
	authed.Get("/payments/transactions/:id", controllers.HandleGetTransaction)
	authed.Post("/contents/:id/view", controllers.HandleRecordContentView)
	authed.Get("/contents/:id/access", controllers.HandleCheckAccess)
	authed.Get("/purchases", controllers.HandleListPurchases)
}

func NewApiRouter() *ApiRouter {
	return &ApiRouter{}
}
