package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/hostel-allocation-api/internal/config"
	"github.com/noah-isme/hostel-allocation-api/internal/database"
	"github.com/noah-isme/hostel-allocation-api/internal/handler"
	"github.com/noah-isme/hostel-allocation-api/internal/middleware"
	"github.com/noah-isme/hostel-allocation-api/internal/repository"
	"github.com/noah-isme/hostel-allocation-api/internal/router"
	"github.com/noah-isme/hostel-allocation-api/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger := zerolog.New(os.Stdout).With().Timestamp().Str("service", cfg.AppName).Logger()

	db, err := database.Connect(cfg.DatabaseDriver, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}

	if err := database.Migrate(db); err != nil {
		log.Fatalf("failed to migrate database: %v", err)
	}

	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		redisClient, err = database.ConnectRedis(cfg.RedisURL)
		if err != nil {
			log.Fatalf("failed to connect to redis: %v", err)
		}
		defer redisClient.Close()
	} else {
		logger.Warn().Msg("redis not configured; notification fan-out is process-local")
	}

	var natsConn *nats.Conn
	if cfg.NATSURL != "" {
		natsConn, err = database.ConnectNATS(cfg.NATSURL, cfg.AppName)
		if err != nil {
			log.Fatalf("failed to connect to nats: %v", err)
		}
		defer natsConn.Close()
	}

	sqlDB, err := db.DB()
	if err != nil {
		log.Fatalf("failed to access database pool: %v", err)
	}
	defer sqlDB.Close()

	probes := map[string]handler.HealthProbe{"database": sqlDB.PingContext}
	if redisClient != nil {
		probes["redis"] = func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }
	}
	if natsConn != nil {
		probes["nats"] = func(context.Context) error {
			if !natsConn.IsConnected() {
				return nats.ErrConnectionClosed
			}
			return nil
		}
	}

	validate := validator.New(validator.WithRequiredStructEnabled())

	studentRepo := repository.NewStudentRepository(db)
	hostelRepo := repository.NewHostelRepository(db)
	requestRepo := repository.NewRequestRepository(db)
	allocationRepo := repository.NewAllocationRepository(db)
	activityRepo := repository.NewActivityLogRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)

	activityService := service.NewActivityService(activityRepo, logger)
	notificationService := service.NewNotificationService(notificationRepo, redisClient, cfg.NotificationChannel, natsConn, validate, logger)
	hostelService := service.NewHostelService(hostelRepo, studentRepo, validate, logger)
	allocationService := service.NewAllocationService(allocationRepo, requestRepo, validate, activityService, notificationService, logger)
	adminRequestService := service.NewAdminRequestService(requestRepo, allocationRepo, validate, logger)
	dashboardService := service.NewStudentDashboardService(studentRepo, requestRepo, allocationRepo, notificationRepo, logger)
	seedService := service.NewSeedService(hostelRepo, studentRepo, validate, cfg.SeedEnabled, cfg.SeedToken, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	notificationService.Start(ctx)

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
	})

	middleware.Register(app, middleware.Config{
		Logger:       &logger,
		AllowOrigins: cfg.CORSAllowOrigins,
		AccessLog:    cfg.AccessLog,
	})
	router.Register(app, cfg, router.Dependencies{
		StudentDashboardHandler: handler.NewStudentDashboardHandler(dashboardService, logger),
		StudentRequestHandler:   handler.NewStudentRequestHandler(allocationService, logger),
		HostelHandler:           handler.NewHostelHandler(hostelService, logger),
		NotificationHandler:     handler.NewNotificationHandler(notificationService, logger, cfg.NotificationKeepAlive),
		AdminRequestHandler:     handler.NewAdminRequestHandler(adminRequestService, allocationService, logger),
		AdminActivityHandler:    handler.NewAdminActivityHandler(activityService, logger),
		SeedHandler:             handler.NewSeedHandler(seedService, logger),
		JWTMiddleware:           middleware.JWTProtected(cfg.JWTSecret),
		SubmitRateLimit:         middleware.RateLimit("hostel_requests", cfg.RateLimitRequests, cfg.RateLimitWindow),
		HealthProbes:            probes,
	})

	go func() {
		if err := app.Listen(cfg.HTTPAddress()); err != nil {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	waitForShutdown(app)
}

func waitForShutdown(app *fiber.App) {
	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-shutdownCtx.Done()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
	}

	log.Println("server stopped")
}
