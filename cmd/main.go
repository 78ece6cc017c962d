package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang-storefront-backend/configs"
	"golang-storefront-backend/internal/handlers"
	"golang-storefront-backend/internal/middleware"
	"golang-storefront-backend/internal/models"
	"golang-storefront-backend/internal/repositories"
	"golang-storefront-backend/internal/services"
	"golang-storefront-backend/pkg/auth"
	"golang-storefront-backend/pkg/cache"
	"golang-storefront-backend/pkg/database"
	"golang-storefront-backend/pkg/logging"
	"golang-storefront-backend/pkg/messaging"
	"golang-storefront-backend/pkg/metrics"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "storefront",
	Short: "Storefront BFF - cart sessions and checkout",
	Long: `storefront sits between the shop frontend and the commerce backend.

It owns the cart session cookies, relays cart token rotations, and drives
each checkout through delivery, shipping, pickup and payment selection up to
a single completion call.

Environment variables override config values with the STOREFRONT_ prefix.
Example: STOREFRONT_BACKEND_CART_URL=https://shop.example.com/api`,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	RunE: func(cmd *cobra.Command, args []string) error {
		config, err := configs.LoadConfig(cfgFile)
		if err != nil {
			return err
		}
		return serve(config)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (yaml, json or toml)")
	rootCmd.AddCommand(serveCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func serve(config *configs.Config) error {
	logging.SetLevel(config.Log.Level)
	log := logging.Logger()

	// Set Gin mode
	gin.SetMode(config.Server.Mode)

	// Completion ledger (optional)
	var ledger services.CompletionLedger
	if config.Database.PostgresURL != "" {
		db, err := database.NewDatabase(config.Database.PostgresURL)
		if err != nil {
			return err
		}
		defer db.Close()

		if err := db.Migrate(&models.CheckoutCompletion{}); err != nil {
			return fmt.Errorf("failed to migrate database: %w", err)
		}
		ledger = repositories.NewCompletionRepository(db.Postgres)
	} else {
		log.Warn("database.postgres_url not set, checkout completions are not recorded")
	}

	// Redis backs the pickup location cache; without it each instance caches in memory
	var locationCache services.LocationCache
	if redisCache := cache.NewRedisCache(config.Redis.URL, config.Redis.Password, config.Redis.DB); redisCache != nil {
		defer redisCache.Close()
		locationCache = redisCache
	} else {
		log.Warn("redis unavailable, pickup locations are cached per instance")
		locationCache = cache.NewMemoryCache()
	}

	// Initialize Kafka
	var events services.EventPublisher
	if len(config.Kafka.Brokers) > 0 {
		kafkaProducer := messaging.NewKafkaProducer(config.Kafka.Brokers, config.Kafka.Topic)
		defer kafkaProducer.Close()
		events = kafkaProducer
	} else {
		events = messaging.NewLogPublisher()
	}

	jwtManager := auth.NewJWTManager(config.JWT.SecretKey, config.JWT.ExpiryHours)

	// Backend clients
	cartBackend := services.NewHTTPCartBackend(config.Backend.CartURL, config.Backend.Timeout)
	checkoutBackend := services.NewHTTPCheckoutBackend(config.Backend.CheckoutURL, config.Backend.Timeout)

	// Initialize services
	sessionManager := services.NewSessionManager(cartBackend, config.Backend.Channel, config.Backend.Currency, events)
	cartGateway := services.NewCartGateway(cartBackend, sessionManager, events)
	pickupCache := services.NewPickupLocationCache(checkoutBackend, locationCache, config.Checkout.PickupCacheTTL)
	checkouts := services.NewCheckoutRegistry(checkoutBackend, pickupCache, ledger, events, services.OrchestratorConfig{
		DebounceDelay: config.Checkout.DebounceDelay(),
		CallTimeout:   config.Backend.Timeout,
	})

	// Initialize middleware
	authMiddleware := middleware.NewAuthMiddleware(jwtManager)
	cookies := middleware.CookieConfig{
		CartIDName:   config.Session.CartIDCookie,
		AccessName:   config.Session.AccessCookie,
		RefreshName:  config.Session.RefreshCookie,
		MaxAge:       config.Session.MaxAge,
		Secure:       config.SecureCookies(),
		ClientName:   config.Session.ClientCookie,
		ClientMaxAge: config.Session.ClientMaxAge,
	}

	// Initialize handlers
	cartHandler := handlers.NewCartHandler(cartGateway, cookies)
	checkoutHandler := handlers.NewCheckoutHandler(checkouts, cookies)

	// Initialize Gin router
	router := gin.New()
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.LoggerMiddleware())
	router.Use(middleware.RecoveryMiddleware())
	router.Use(middleware.CORSMiddleware(config.Server.AllowedOrigins))

	// Health check endpoint
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "healthy",
			"checkouts": checkouts.Len(),
		})
	})
	router.GET("/metrics", metrics.Handler())

	// API routes
	api := router.Group("/api/v1")
	cartHandler.RegisterRoutes(api, authMiddleware)
	checkoutHandler.RegisterRoutes(api, authMiddleware)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go sweepCheckouts(ctx, checkouts, config.Checkout.IdleTTL)

	server := &http.Server{
		Addr:              config.Server.Host + ":" + config.Server.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.WithField("addr", server.Addr).Info("server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// sweepCheckouts drops orchestrators of abandoned checkouts.
func sweepCheckouts(ctx context.Context, checkouts *services.CheckoutRegistry, idle time.Duration) {
	if idle <= 0 {
		return
	}
	ticker := time.NewTicker(idle / 2)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := checkouts.Sweep(idle); n > 0 {
				logging.Logger().WithField("removed", n).Info("swept idle checkouts")
			}
		}
	}
}
