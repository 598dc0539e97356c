package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	swagger "github.com/gofiber/swagger"
	"github.com/openshelf/openshelf-server/internal/config"
	"github.com/openshelf/openshelf-server/internal/database"
	"github.com/openshelf/openshelf-server/internal/handlers"
	"github.com/openshelf/openshelf-server/internal/middleware"
	"github.com/openshelf/openshelf-server/internal/services"
	"github.com/openshelf/openshelf-server/internal/types"
	"gorm.io/gorm"

	_ "github.com/openshelf/openshelf-server/docs/api" // Swagger docs
)

// @title OpenShelf API
// @version 1.0.0
// @description Digital library backend: catalog, loans, reviews
// @termsOfService http://swagger.io/terms/

// @contact.name API Support
// @contact.url https://github.com/openshelf/openshelf-server

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @host localhost:3000
// @BasePath /api
// @schemes http https

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Connect to database
	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.Close(db)

	// Run auto-migrations
	if err := database.AutoMigrate(db); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	// Create Fiber app
	app := fiber.New(fiber.Config{
		ErrorHandler: customErrorHandler,
	})

	// Global middleware
	app.Use(recover.New())
	app.Use(logger.New())
	app.Use(compress.New())
	app.Use(cors.New())

	// Prometheus metrics
	prometheus := fiberprometheus.New("openshelf")
	prometheus.RegisterAt(app, "/metrics")
	app.Use(prometheus.Middleware)

	// Swagger documentation
	app.Get("/swagger/*", swagger.HandlerDefault)

	registerRoutes(app, cfg, db)

	// 404 handler
	app.Use(func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"status":    fiber.StatusNotFound,
			"message":   "[404] Resource Not Found",
			"ok":        false,
			"timestamp": time.Now().UTC().Format(time.RFC3339),
			"url":       c.OriginalURL(),
		})
	})

	// Periodic overdue sweep so listings and metrics stay current even
	// when nobody queries loans.
	sweepDone := make(chan struct{})
	go overdueSweep(db, time.Duration(cfg.OverdueSweepMinutes)*time.Minute, sweepDone)

	// Graceful shutdown
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-c
		log.Println("Gracefully shutting down...")
		close(sweepDone)
		_ = app.Shutdown()
	}()

	// Start server
	port := cfg.Port
	log.Printf("Starting server on port %s", port)
	if err := app.Listen(":" + port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}

	log.Println("Server stopped")
}

// registerRoutes wires every API route under /api
func registerRoutes(app *fiber.App, cfg *config.Config, db *gorm.DB) {
	api := app.Group("/api")
	api.Use(middleware.VersionMiddleware())

	authHandler := &handlers.AuthHandler{DB: db, Cfg: cfg}
	bookHandler := &handlers.BookHandler{DB: db, Cfg: cfg}
	loanHandler := &handlers.LoanHandler{DB: db, Cfg: cfg}
	reviewHandler := &handlers.ReviewHandler{DB: db}
	healthHandler := &handlers.HealthHandler{DB: db, Cfg: cfg}

	api.Get("/health", healthHandler.Check)

	// Auth routes
	auth := api.Group("/auth")
	auth.Post("/register", authHandler.Register)
	auth.Post("/login", authHandler.Login)
	auth.Get("/me", middleware.AuthUser(cfg, db), authHandler.Me)

	// Book routes (public reads, admin writes)
	books := api.Group("/books")
	books.Get("/", bookHandler.List)
	books.Get("/search", bookHandler.Search)
	books.Get("/recommended", bookHandler.Recommended)
	books.Get("/:id", bookHandler.GetByID)
	books.Get("/:id/preview", bookHandler.Preview)
	books.Get("/:id/read", middleware.AuthUser(cfg, db), bookHandler.Read)
	books.Get("/:id/reviews", bookHandler.Reviews)
	books.Post("/", middleware.AuthAdmin(cfg, db), bookHandler.Create)
	books.Put("/:id", middleware.AuthAdmin(cfg, db), bookHandler.Update)
	books.Delete("/:id", middleware.AuthAdmin(cfg, db), bookHandler.Delete)

	// Loan routes
	loans := api.Group("/loans")
	loans.Post("/", middleware.AuthUser(cfg, db), loanHandler.Create)
	loans.Get("/my-loans", middleware.AuthUser(cfg, db), loanHandler.MyLoans)
	loans.Get("/", middleware.AuthAdmin(cfg, db), loanHandler.ListAll)
	loans.Get("/:id", middleware.AuthUser(cfg, db), loanHandler.GetByID)
	loans.Put("/:id/return", middleware.AuthUser(cfg, db), loanHandler.Return)

	// Review routes
	reviews := api.Group("/reviews")
	reviews.Post("/", middleware.AuthUser(cfg, db), reviewHandler.Create)
	reviews.Put("/:id", middleware.AuthUser(cfg, db), reviewHandler.Update)
	reviews.Delete("/:id", middleware.AuthUser(cfg, db), reviewHandler.Delete)
	reviews.Get("/user/:id", middleware.AuthUser(cfg, db), reviewHandler.ByUser)
}

// overdueSweep flips past-due active loans to overdue on a fixed interval.
func overdueSweep(db *gorm.DB, interval time.Duration, done <-chan struct{}) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			if n, err := services.MarkOverdue(db); err != nil {
				log.Printf("Overdue sweep failed: %v", err)
			} else if n > 0 {
				log.Printf("Overdue sweep marked %d loans", n)
			}
		}
	}
}

// customErrorHandler handles errors globally
func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := err.Error()
	errorType := "unknown"

	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
		message = e.Message
	}
	if e, ok := err.(*types.CustomError); ok {
		code = e.Code
		message = e.Message
		errorType = e.Type
	}

	return c.Status(code).JSON(fiber.Map{
		"status":    code,
		"message":   message,
		"ok":        false,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"url":       c.OriginalURL(),
		"type":      errorType,
	})
}
