package api

import (
	"invoice-analyzer/docs"
	"invoice-analyzer/internal/api/handlers"
	"invoice-analyzer/pkg/auth"
	"invoice-analyzer/pkg/middleware"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/swagger"
	"go.uber.org/zap"
)

func SetupRouter(
	authHandler *handlers.AuthHandler,
	docHandler *handlers.DocumentHandler,
	searchHandler *handlers.SearchHandler,
	jwtManager *auth.JWTManager,
	appLogger *zap.Logger,
) *fiber.App {
	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{
				"error": err.Error(),
			})
		},
	})

	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept,Authorization",
	}))
	app.Use(logger.New())

	// Importing docs registers the swagger document through its init().
	_ = docs.SwaggerInfo
	app.Get("/swagger/*", swagger.HandlerDefault)

	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"service": "invoice-analyzer", "status": "ok"})
	})
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	// Auth routes (public)
	authGroup := app.Group("/user/auth")
	authGroup.Post("/register", authHandler.Register)
	authGroup.Post("/login", authHandler.Login)
	authGroup.Post("/refresh", authHandler.RefreshToken)

	// Protected routes
	protected := app.Group("/api/v1", middleware.AuthMiddleware(jwtManager, appLogger))

	documents := protected.Group("/documents")
	documents.Post("/upload", docHandler.UploadDocument)
	documents.Get("/upload/:id", docHandler.GetUpload)
	documents.Delete("/upload/:id", docHandler.DeleteUpload)
	documents.Post("/analyze", docHandler.AnalyzeDocument)

	invoices := protected.Group("/invoices")
	invoices.Get("", docHandler.ListInvoices)
	invoices.Get("/:id", docHandler.GetInvoice)
	invoices.Delete("/:id", docHandler.DeleteInvoice)

	protected.Get("/dashboard/stats", docHandler.DashboardStats)
	protected.Get("/search", searchHandler.Search)

	return app
}
