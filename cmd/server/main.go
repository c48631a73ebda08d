package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/venuedesk/service-billing/internal/application"
	"github.com/venuedesk/service-billing/internal/config"
	"github.com/venuedesk/service-billing/internal/domain/invoice"
	"github.com/venuedesk/service-billing/internal/domain/promo"
	"github.com/venuedesk/service-billing/internal/domain/session"
	"github.com/venuedesk/service-billing/internal/domain/venue"
	posEvents "github.com/venuedesk/service-billing/internal/events"
	"github.com/venuedesk/service-billing/internal/handler"
	"github.com/venuedesk/service-billing/internal/platform/auth"
	"github.com/venuedesk/service-billing/internal/platform/cache"
	"github.com/venuedesk/service-billing/internal/platform/database"
	"github.com/venuedesk/service-billing/internal/platform/kafka"
	"github.com/venuedesk/service-billing/internal/platform/logger"
	"github.com/venuedesk/service-billing/internal/platform/middleware"
	"github.com/venuedesk/service-billing/internal/repository"
	"github.com/venuedesk/service-billing/internal/repository/memory"
	"github.com/venuedesk/service-billing/internal/saga"
)

const serviceName = "service-billing"

type repositories struct {
	spaces   venue.SpaceRepository
	sessions session.SessionRepository
	promos   promo.PromoRepository
	invoices invoice.InvoiceRepository
}

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	// Initialize logger
	zapLogger, err := logger.NewNamed(cfg.AppEnv, serviceName)
	if err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}
	defer zapLogger.Sync()

	zapLogger.Info("starting service-billing",
		zap.String("port", cfg.Port),
		zap.String("storage", cfg.StorageDriver),
	)

	var (
		repos  repositories
		pinger handler.Pinger
	)
	switch cfg.StorageDriver {
	case config.StorageMemory:
		zapLogger.Warn("using in-memory storage; data is lost on restart")
		repos = repositories{
			spaces:   memory.NewSpaceRepository(),
			sessions: memory.NewSessionRepository(),
			promos:   memory.NewPromoRepository(),
			invoices: memory.NewInvoiceRepository(),
		}
	default:
		db := connectPostgres(cfg, zapLogger)
		sqlDB, err := db.DB()
		if err != nil {
			zapLogger.Fatal("failed to get sql.DB", zap.Error(err))
		}
		defer sqlDB.Close()
		pinger = sqlDB

		repos = repositories{
			spaces:   repository.NewGormSpaceRepository(db),
			sessions: repository.NewGormSessionRepository(db),
			promos:   repository.NewGormPromoRepository(db),
			invoices: repository.NewInvoiceRepository(db),
		}
	}

	// Front promo lookups with Redis when configured
	if cfg.RedisConfig.Addr != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		redisClient, err := cache.NewRedisClient(ctx, cache.RedisConfig{
			Addr:         cfg.RedisConfig.Addr,
			Password:     cfg.RedisConfig.Password,
			DB:           cfg.RedisConfig.DB,
			PoolSize:     cfg.RedisConfig.PoolSize,
			DialTimeout:  5 * time.Second,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
			MaxRetries:   cfg.RedisConfig.MaxRetries,
		}, zapLogger)
		cancel()
		if err != nil {
			zapLogger.Fatal("failed to connect to redis", zap.Error(err))
		}
		defer redisClient.Close()
		repos.promos = repository.NewCachedPromoRepository(repos.promos, redisClient, cfg.RedisConfig.PromoTTL, zapLogger)
	}

	// Initialize JWT manager
	jwtManager := auth.NewJWTManager(
		cfg.JWTConfig.Secret,
		cfg.JWTConfig.AccessTokenTTL,
		cfg.JWTConfig.RefreshTokenTTL,
	)

	// Initialize Kafka producer
	var publisher kafka.Publisher
	if len(cfg.KafkaConfig.Brokers) > 0 {
		kafkaProducer := kafka.NewProducer(cfg.KafkaConfig.Brokers, zapLogger)
		defer kafkaProducer.Close()
		publisher = kafkaProducer
	} else {
		zapLogger.Warn("no kafka brokers configured; billing events are only logged")
		publisher = kafka.NewNopPublisher(zapLogger)
	}

	// Initialize saga and application services
	closeSaga := saga.NewCloseSessionSaga(repos.sessions, repos.invoices, repos.promos, publisher, zapLogger)

	venueService := application.NewVenueService(repos.spaces, zapLogger)
	sessionService := application.NewSessionService(repos.sessions, repos.spaces, repos.promos, application.SystemClock, zapLogger)
	promoService := application.NewPromoService(repos.promos, repos.sessions, application.SystemClock, zapLogger)
	billingService := application.NewBillingService(repos.sessions, repos.invoices, repos.promos, closeSaga, application.SystemClock, zapLogger)

	// Start Kafka consumer for point-of-sale events in a goroutine
	consumerCtx, consumerCancel := context.WithCancel(context.Background())
	defer consumerCancel()

	if len(cfg.KafkaConfig.Brokers) > 0 {
		consumerGroupID := cfg.KafkaConfig.GroupPrefix + "billing-service"
		posConsumer := posEvents.NewPOSEventConsumer(
			cfg.KafkaConfig.Brokers,
			consumerGroupID,
			sessionService,
			zapLogger,
		)
		defer posConsumer.Close()

		go func() {
			zapLogger.Info("starting pos event consumer")
			if err := posConsumer.Start(consumerCtx); err != nil {
				if consumerCtx.Err() == nil {
					zapLogger.Error("pos event consumer failed", zap.Error(err))
				}
			}
		}()
	}

	// Setup Gin router
	if !cfg.IsDevelopment() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()

	// Apply global middleware
	router.Use(middleware.RecoveryMiddleware(zapLogger))
	router.Use(middleware.LoggerMiddleware(zapLogger))
	router.Use(middleware.CORSMiddleware())
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.SecurityHeadersMiddleware())

	// Register health check routes
	handler.NewHealthHandler(serviceName, pinger).RegisterRoutes(router)

	// Register API routes
	apiV1 := router.Group("/api/v1")
	handler.NewSpaceHandler(venueService).RegisterRoutes(apiV1, jwtManager)
	handler.NewSessionHandler(sessionService, billingService).RegisterRoutes(apiV1, jwtManager)
	handler.NewPromoHandler(promoService, middleware.NewRateLimiter(cfg.RateLimit.RPS, cfg.RateLimit.Burst)).RegisterRoutes(apiV1, jwtManager)
	handler.NewInvoiceHandler(billingService).RegisterRoutes(apiV1, jwtManager)
	handler.NewAdminBillingHandler(billingService, promoService).RegisterRoutes(apiV1, jwtManager)

	// Create HTTP server
	srv := &http.Server{
		Addr:         cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		zapLogger.Info("HTTP server starting", zap.String("addr", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zapLogger.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	zapLogger.Info("shutting down service-billing...")

	// Cancel Kafka consumer
	consumerCancel()

	// Shutdown HTTP server with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		zapLogger.Error("server forced to shutdown", zap.Error(err))
	}

	zapLogger.Info("service-billing stopped")
}

// connectPostgres opens the database and brings the schema up to date.
func connectPostgres(cfg *config.ServiceConfig, zapLogger *zap.Logger) *gorm.DB {
	dbConfig := database.PostgresConfig{
		Host:            cfg.DBConfig.Host,
		Port:            cfg.DBConfig.Port,
		User:            cfg.DBConfig.User,
		Password:        cfg.DBConfig.Password,
		DBName:          cfg.DBConfig.DBName,
		SSLMode:         cfg.DBConfig.SSLMode,
		MaxOpenConns:    cfg.DBConfig.MaxOpenConns,
		MaxIdleConns:    cfg.DBConfig.MaxIdleConns,
		ConnMaxLifetime: cfg.DBConfig.ConnMaxLifetime,
	}

	db, err := database.Connect(dbConfig, zapLogger)
	if err != nil {
		zapLogger.Fatal("failed to connect to database", zap.Error(err))
	}

	// Run database migrations
	if cfg.IsDevelopment() {
		if err := repository.AutoMigrate(db); err != nil {
			zapLogger.Fatal("failed to auto-migrate", zap.Error(err))
		}
		zapLogger.Info("database migration completed (dev auto-migrate)")
	} else {
		if err := database.RunMigrations(dbConfig.DatabaseURL(), repository.Migrations, repository.MigrationsDir, zapLogger); err != nil {
			zapLogger.Fatal("failed to run migrations", zap.Error(err))
		}
	}
	return db
}
