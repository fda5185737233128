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

	"github.com/acadops/assignment-api/internal/config"
	"github.com/acadops/assignment-api/internal/database"
	"github.com/acadops/assignment-api/internal/handler"
	"github.com/acadops/assignment-api/internal/middleware"
	"github.com/acadops/assignment-api/internal/models"
	"github.com/acadops/assignment-api/internal/repository"
	"github.com/acadops/assignment-api/internal/router"
	"github.com/acadops/assignment-api/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	db, err := database.ConnectPostgres(cfg.DatabaseURL, logger)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}

	if err := db.AutoMigrate(
		&models.Offering{},
		&models.CourseOutcome{},
		&models.Rubric{},
		&models.Assignment{},
		&models.COMapping{},
		&models.RubricAttachment{},
		&models.Evaluator{},
		&models.Group{},
		&models.GroupMember{},
		&models.Submission{},
		&models.Mark{},
		&models.Extension{},
		&models.GradePattern{},
		&models.Approval{},
		&models.AuditEntry{},
		&models.Snapshot{},
	); err != nil {
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
		logger.Warn().Msg("redis url not configured, scaling cache disabled")
	}

	var natsConn *nats.Conn
	if cfg.NATSURL != "" {
		natsConn, err = database.ConnectNATS(cfg.NATSURL)
		if err != nil {
			log.Fatalf("failed to connect to nats: %v", err)
		}
		defer natsConn.Close()
	} else {
		logger.Warn().Msg("nats url not configured, ledger events disabled")
	}

	validate := validator.New(validator.WithRequiredStructEnabled())
	offeringRepo := repository.NewOfferingRepository(db)

	ledgerService := service.NewLedgerService(db, natsConn, cfg.NATSSubject, logger)
	scalingService := service.NewScalingService(db, offeringRepo, redisClient, cfg.ScalingCacheTTL, logger)
	assignmentService := service.NewAssignmentService(db, offeringRepo, validate, ledgerService, scalingService, logger)
	extensionService := service.NewExtensionService(db, validate, ledgerService, logger)

	assignmentHandler := handler.NewAssignmentHandler(assignmentService, logger)
	ledgerHandler := handler.NewLedgerHandler(ledgerService, logger)
	scalingHandler := handler.NewScalingHandler(scalingService, logger)
	extensionHandler := handler.NewExtensionHandler(extensionService, logger)

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
	})

	middleware.Register(app, middleware.Config{Logger: &logger})
	router.Register(app, cfg, router.Dependencies{
		AssignmentHandler: assignmentHandler,
		LedgerHandler:     ledgerHandler,
		ScalingHandler:    scalingHandler,
		ExtensionHandler:  extensionHandler,
		JWTMiddleware:     middleware.JWTProtected(cfg.JWTSecret),
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
