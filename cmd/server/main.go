package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/railconnect/booking-ledger/internal/cache"
	"github.com/railconnect/booking-ledger/internal/config"
	"github.com/railconnect/booking-ledger/internal/database"
	"github.com/railconnect/booking-ledger/internal/events"
	"github.com/railconnect/booking-ledger/internal/handlers"
	"github.com/railconnect/booking-ledger/internal/middleware"
	"github.com/railconnect/booking-ledger/internal/services"
	"github.com/railconnect/booking-ledger/pkg/jwt"
	"github.com/sirupsen/logrus"
)

var (
	version   = "1.0.0"
	buildTime = "unknown"
)

type publisher interface {
	services.EventPublisher
	Close() error
}

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetOutput(os.Stdout)

	logger.Info("Starting RailConnect booking ledger")
	logger.Infof("Version: %s, Build Time: %s", version, buildTime)

	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("Failed to load configuration: %v", err)
	}

	logLevel, err := logrus.ParseLevel(cfg.Server.LogLevel)
	if err != nil {
		logger.Warn("Invalid log level, using INFO")
		logLevel = logrus.InfoLevel
	}
	logger.SetLevel(logLevel)

	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	logger.Info("Connecting to database...")
	db, err := database.NewConnection(cfg.Database, logger)
	if err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	if cfg.Database.RunMigrations {
		if err := database.Migrate(db, "up", logger); err != nil {
			logger.Fatalf("Failed to run migrations: %v", err)
		}
	}

	// Optional infrastructure: both degrade to in-process stand-ins when unconfigured
	var bookingCache services.BookingCache = cache.NoopPNRCache{}
	var cachePinger handlers.Pinger
	if cfg.Redis.URL != "" {
		redisCache, err := cache.NewRedisPNRCache(context.Background(), cfg.Redis.URL, cfg.Redis.PNRTTL, logger)
		if err != nil {
			logger.Fatalf("Failed to connect to redis: %v", err)
		}
		defer redisCache.Close()
		bookingCache = redisCache
		cachePinger = handlers.PingFunc(redisCache.Ping)
		logger.Info("PNR cache enabled")
	}

	var eventPublisher publisher = events.NewLogPublisher(logger)
	if cfg.RabbitMQ.URL != "" {
		rabbit, err := events.NewRabbitPublisher(cfg.RabbitMQ.URL, cfg.RabbitMQ.Exchange, logger)
		if err != nil {
			logger.Fatalf("Failed to connect to rabbitmq: %v", err)
		}
		eventPublisher = rabbit
		logger.Infof("Booking events published to exchange %s", cfg.RabbitMQ.Exchange)
	}
	defer eventPublisher.Close()

	logger.Info("Initializing services...")
	ledgerRepository := database.NewLedgerRepository(db, cfg.Ledger.LockTimeout)
	bookingRepository := database.NewBookingRepository(db)
	waitlistRepository := database.NewWaitlistRepository(db)
	inventoryRepository := database.NewInventoryRepository(db)
	catalogRepository := database.NewCatalogRepository(db)

	bookingService := services.NewBookingService(
		ledgerRepository,
		bookingRepository,
		waitlistRepository,
		services.NewRandomIDGenerator(),
		bookingCache,
		eventPublisher,
		cfg.Ledger,
		logger,
	)
	paymentService := services.NewPaymentService(ledgerRepository, bookingCache, eventPublisher, cfg.Ledger, logger)
	cancellationService := services.NewCancellationService(ledgerRepository, bookingCache, eventPublisher, cfg.Ledger, logger)
	catalogService := services.NewCatalogService(catalogRepository, inventoryRepository)
	fareService := services.NewFareService(catalogRepository)

	warmupService := services.NewInventoryWarmupService(ledgerRepository, catalogRepository, logger)
	cronService := services.NewCronService(warmupService, cfg.Ledger.WarmupSchedule, cfg.Ledger.WarmupDays, logger)
	if cfg.Ledger.WarmupSchedule != "" {
		if err := cronService.Start(); err != nil {
			logger.Fatalf("Failed to start cron service: %v", err)
		}
		logger.Info("Cron service started - inventory warm-up enabled")
	}

	jwtService := jwt.NewService(cfg.JWT.Secret, cfg.JWT.Issuer, cfg.JWT.AccessTokenExpiry)

	bookingHandler := handlers.NewBookingHandler(bookingService, paymentService, cancellationService)
	catalogHandler := handlers.NewCatalogHandler(catalogService, fareService)
	healthHandler := handlers.NewHealthHandler(db, cachePinger, version)

	router := gin.New()
	router.Use(gin.Recovery())
	if cfg.Server.EnableRequestLog {
		router.Use(middleware.RequestLogger(logger))
	}
	router.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORS.AllowedOrigins,
		AllowMethods:     cfg.CORS.AllowedMethods,
		AllowHeaders:     cfg.CORS.AllowedHeaders,
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}))

	router.GET("/health", healthHandler.Check)

	authRequired := middleware.AuthMiddleware(jwtService, logger)

	v1 := router.Group("/api/v1")
	{
		v1.GET("/stations", catalogHandler.SearchStations)
		v1.GET("/stations/:code", catalogHandler.GetStation)
		v1.GET("/trains", catalogHandler.ListTrains)
		v1.GET("/trains/search", catalogHandler.SearchTrains)
		v1.GET("/trains/:id", catalogHandler.GetTrain)
		v1.GET("/trains/:id/availability", catalogHandler.GetAvailability)
		v1.GET("/trains/:id/fare", catalogHandler.GetFare)

		// Public PNR status lookup
		v1.GET("/bookings/pnr/:pnr", bookingHandler.GetByPNR)

		bookings := v1.Group("/bookings")
		bookings.Use(authRequired)
		{
			bookings.POST("", bookingHandler.CreateBooking)
			bookings.GET("", bookingHandler.History)
			bookings.POST("/:pnr/pay", bookingHandler.PayBooking)
			bookings.POST("/:pnr/cancel", bookingHandler.CancelBooking)
		}

		admin := v1.Group("/admin")
		admin.Use(authRequired, middleware.RequireRole("admin"))
		{
			admin.POST("/cron/warmup", func(c *gin.Context) {
				go cronService.RunWarmupNow()
				c.JSON(http.StatusAccepted, gin.H{"message": "Inventory warm-up triggered"})
			})
			admin.GET("/cron/status", func(c *gin.Context) {
				c.JSON(http.StatusOK, cronService.GetJobStatus())
			})
		}
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Infof("Server starting on port %s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")
	cronService.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Errorf("Server forced to shutdown: %v", err)
	}

	logger.Info("Server exited successfully")
}
