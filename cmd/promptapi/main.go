// Package main is the entry point for the promptapi server.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/joho/godotenv"
	"github.com/stripe/stripe-go/v78"

	"github.com/jmaintain/makepromptsbetter-sub000/internal/config"
	"github.com/jmaintain/makepromptsbetter-sub000/internal/database"
	"github.com/jmaintain/makepromptsbetter-sub000/internal/http/handlers"
	"github.com/jmaintain/makepromptsbetter-sub000/internal/http/mw"
	"github.com/jmaintain/makepromptsbetter-sub000/internal/logging"
	"github.com/jmaintain/makepromptsbetter-sub000/internal/repository"
	"github.com/jmaintain/makepromptsbetter-sub000/internal/service"
	"github.com/jmaintain/makepromptsbetter-sub000/internal/version"
)

func main() {
	// .env is optional; real deployments set the environment directly
	_ = godotenv.Load()

	logger := logging.SetDefault()

	v := version.Get()
	logger.Info("starting promptapi",
		"version", v.Version,
		"commit", v.Commit,
		"built", v.Date,
		"go_version", v.GoVersion,
	)

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	db, err := database.New(cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer func() { _ = db.Close() }()

	if err := database.MigrateWithLogger(db, logger); err != nil {
		logger.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}

	repos := repository.NewRepositories(db)

	stripe.Key = cfg.StripeSecretKey
	billing := config.DefaultBillingConfig()

	llm := service.NewOpenAIClient(cfg.OpenAIAPIKey, cfg.OpenAIModel)
	services := service.NewServices(repos, cfg, billing, llm, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.CleanupEnabled {
		services.Cleanup.Start(ctx)
	}

	router := chi.NewRouter()

	// Global middleware
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)

	// CORS configuration
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"Link", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Request size limit (1MB) - prevent large payload attacks
	router.Use(middleware.RequestSize(1 * 1024 * 1024))

	// Global rate limit by IP
	router.Use(httprate.LimitByIP(100, time.Minute))

	// Create Huma API config with OpenAPI docs
	humaConfig := huma.DefaultConfig("Prompt API", v.Version)
	humaConfig.Info.Description = "Prompt optimization API with prepaid token billing and AI assistant personas."
	humaConfig.Servers = []*huma.Server{
		{URL: cfg.BaseURL, Description: "API Server"},
	}
	humaConfig.Components.SecuritySchemes = map[string]*huma.SecurityScheme{
		"bearerAuth": {
			Type:        "http",
			Scheme:      "bearer",
			Description: "Session JWT in the Authorization header.",
		},
	}

	api := humachi.New(router, humaConfig)

	// Config for hidden routes (K8s probes - no docs needed)
	hiddenConfig := huma.DefaultConfig("Prompt API", v.Version)
	hiddenConfig.DocsPath = ""
	hiddenConfig.OpenAPIPath = ""
	hiddenConfig.SchemasPath = ""
	hiddenAPI := humachi.New(router, hiddenConfig)

	// Config for protected routes (docs are served by the main API)
	protectedConfig := huma.DefaultConfig("Prompt API", v.Version)
	protectedConfig.Info.Description = humaConfig.Info.Description
	protectedConfig.Servers = humaConfig.Servers
	protectedConfig.DocsPath = ""
	protectedConfig.OpenAPIPath = ""
	protectedConfig.SchemasPath = ""

	// Health check (public, shown in docs)
	huma.Get(api, "/api/health", handlers.HealthCheck)

	// Kubernetes probes (hidden from docs - internal use only)
	huma.Get(hiddenAPI, "/healthz", handlers.Livez)
	readyzHandler := handlers.NewReadyzHandler(db)
	huma.Get(hiddenAPI, "/readyz", readyzHandler.Readyz)

	// Public routes: package catalog and prompt rating need no session
	optimizeHandler := handlers.NewOptimizeHandler(services.Optimizer)
	billingHandler := handlers.NewBillingHandler(services.Payments, services.Tokens)
	huma.Post(api, "/api/rate", optimizeHandler.Rate)
	huma.Get(api, "/api/token-packages", billingHandler.ListPackages)

	// Stripe webhook (signature verified by handler, not session auth)
	if cfg.StripeWebhookSecret != "" {
		stripeWebhook := handlers.NewStripeWebhookHandler(cfg, services.Payments, logger)
		router.Post("/api/stripe-webhook", stripeWebhook.HandleWebhook)
		logger.Info("stripe webhook endpoint enabled")
	}

	// Protected routes
	router.Group(func(r chi.Router) {
		r.Use(mw.Auth(cfg.JWTSecret))

		protectedAPI := humachi.New(r, protectedConfig)

		// User profile and usage
		userHandler := handlers.NewUserHandler(services.Users, services.Tokens, services.Personas)
		huma.Get(protectedAPI, "/api/auth/user", userHandler.GetUser)
		huma.Get(protectedAPI, "/api/user/stats", userHandler.GetStats)
		huma.Get(protectedAPI, "/api/credits", userHandler.GetCredits)

		// Optimization
		huma.Post(protectedAPI, "/api/optimize", optimizeHandler.Optimize)

		// AI assistants
		personaHandler := handlers.NewPersonaHandler(services.Personas)
		huma.Post(protectedAPI, "/api/ai-assistants", personaHandler.CreatePersona)
		huma.Post(protectedAPI, "/api/ai-assistants/{id}/enhance", personaHandler.EnhancePersona)
		huma.Post(protectedAPI, "/api/ai-assistants/{id}/save", personaHandler.SavePersona)
		huma.Post(protectedAPI, "/api/ai-assistants/test", personaHandler.TestPersona)
		huma.Get(protectedAPI, "/api/my-assistants", personaHandler.ListPersonas)

		// Billing
		huma.Get(protectedAPI, "/api/token-balance", billingHandler.GetBalance)
		huma.Post(protectedAPI, "/api/create-checkout-session", billingHandler.CreateCheckout)

		// Privacy / erasure
		privacyHandler := handlers.NewPrivacyHandler(services.Users, services.Cleanup)
		huma.Get(protectedAPI, "/api/privacy/data-summary", privacyHandler.GetDataSummary)
		huma.Delete(protectedAPI, "/api/privacy/delete-my-data", privacyHandler.DeleteMyData)
	})

	// Create server
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// Graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT)
		<-sigChan

		logger.Info("shutting down server")

		// Stop the cleanup loop first
		cancel()
		if cfg.CleanupEnabled {
			services.Cleanup.Stop()
		}

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("server shutdown error", "error", err)
		}
	}()

	logger.Info("starting server", "port", cfg.Port, "base_url", cfg.BaseURL)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}
