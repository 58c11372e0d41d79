package main

import (
	"context"
	"log"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/spf13/afero"

	"github.com/noah-isme/assignment-portal-api/internal/config"
	"github.com/noah-isme/assignment-portal-api/internal/database"
	"github.com/noah-isme/assignment-portal-api/internal/events"
	"github.com/noah-isme/assignment-portal-api/internal/handler"
	"github.com/noah-isme/assignment-portal-api/internal/logging"
	"github.com/noah-isme/assignment-portal-api/internal/middleware"
	"github.com/noah-isme/assignment-portal-api/internal/ratelimit"
	"github.com/noah-isme/assignment-portal-api/internal/repository"
	"github.com/noah-isme/assignment-portal-api/internal/router"
	"github.com/noah-isme/assignment-portal-api/internal/service"
	"github.com/noah-isme/assignment-portal-api/internal/session"
	"github.com/noah-isme/assignment-portal-api/internal/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger, logCloser := logging.New(logging.Options{
		Level:   cfg.LogLevel,
		File:    cfg.LogFile,
		Service: cfg.AppName,
		Version: cfg.AppVersion,
	})
	defer logCloser.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	journalPath := cfg.JournalPath
	if journalPath == "" {
		journalPath = filepath.Join(cfg.DataDir, "logs", "write-operations.log")
	}
	store := storage.New(afero.NewOsFs(), cfg.DataDir, storage.Options{
		RetryAttempts: cfg.WriteRetries,
		RetryDelay:    cfg.WriteRetryDelay,
		JournalPath:   journalPath,
	}, logger)

	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		redisClient, err = database.ConnectRedis(ctx, cfg.RedisURL, cfg.AppName, logger)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect to redis")
		}
		defer redisClient.Close()
	}

	var natsConn *nats.Conn
	if cfg.NATSURL != "" {
		natsConn, err = database.ConnectNATS(cfg.NATSURL, cfg.AppName, logger)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect to nats")
		}
		defer natsConn.Drain()
	}

	passwordHash := []byte(cfg.AdminPasswordHash)
	if len(passwordHash) == 0 {
		passwordHash, err = service.HashPassword(cfg.AdminPassword, 0)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to hash admin password")
		}
	}

	sessions := session.NewRegistry(store, session.Options{
		Name:              "admin",
		Timeout:           cfg.SessionTimeout,
		MaxSessions:       cfg.SessionMaxCount,
		SweepInterval:     cfg.SessionSweepInterval,
		PersistSampleRate: cfg.SessionSampleRate,
	}, logger)
	if err := sessions.Load(ctx); err != nil {
		logger.Fatal().Err(err).Msg("failed to load admin sessions")
	}

	adminLimiter := newLimiter("admin", cfg.AdminLimit, logger)
	studentLimiter := newLimiter("student", cfg.StudentLimit, logger)
	publicLimiter := newLimiter("public", cfg.PublicLimit, logger)

	validate := service.NewValidator()

	assignmentRepo := repository.NewAssignmentRepository(store, validate)
	ledgerRepo := repository.NewLedgerRepository(store, validate)
	indexRepo := repository.NewIndexRepository(store, validate)
	rosterRepo := repository.NewRosterRepository(store, validate)

	publisher := events.NewPublisher(events.Config{
		Redis:        redisClient,
		RedisChannel: cfg.EventSubject,
		NATS:         natsConn,
		NATSSubject:  cfg.EventSubject,
	}, logger)

	statisticsService := service.NewStatisticsService(assignmentRepo, ledgerRepo, store, redisClient, cfg.StatisticsCacheTTL, logger)
	submissionService := service.NewSubmissionService(assignmentRepo, ledgerRepo, indexRepo, store, validate, service.NewScorer(), publisher, statisticsService, logger)
	adminAssignmentService := service.NewAdminAssignmentService(assignmentRepo, ledgerRepo, indexRepo, store, validate, statisticsService, logger)
	rosterService := service.NewRosterService(rosterRepo, store, validate, logger)
	authService := service.NewAuthService(sessions, passwordHash, validate, logger)
	systemService := service.NewSystemService(
		sessions,
		[]service.LimiterStatter{adminLimiter, studentLimiter, publicLimiter},
		store,
		indexRepo,
		rosterRepo,
		assignmentRepo,
		store,
		cfg.AppVersion,
		logger,
	)

	if err := systemService.Bootstrap(ctx); err != nil {
		logger.Fatal().Err(err).Msg("failed to initialise data directory")
	}

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
	})

	middleware.Register(app, middleware.Config{
		Logger:       &logger,
		AllowOrigins: cfg.CORSOrigins,
		AccessLog:    cfg.AppEnv == "development",
	})
	router.Register(app, cfg, router.Dependencies{
		AuthHandler:       handler.NewAuthHandler(authService, logger),
		AssignmentHandler: handler.NewAdminAssignmentHandler(adminAssignmentService, statisticsService, cfg.BaseURL, logger),
		StudentHandler:    handler.NewStudentHandler(submissionService, logger),
		RosterHandler:     handler.NewRosterHandler(rosterService, logger),
		SystemHandler:     handler.NewSystemHandler(systemService, logger),
		AdminGate:         middleware.Admission(adminLimiter, logger),
		StudentGate:       middleware.Admission(studentLimiter, logger),
		PublicGate:        middleware.Admission(publicLimiter, logger),
		SessionGuard:      middleware.RequireSession(authService),
	})

	sessions.Start(ctx)
	adminLimiter.Start(ctx)
	studentLimiter.Start(ctx)
	publicLimiter.Start(ctx)

	go func() {
		logger.Info().Str("address", cfg.HTTPAddress()).Str("data_dir", cfg.DataDir).Msg("portal listening")
		if err := app.Listen(cfg.HTTPAddress()); err != nil {
			logger.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	<-ctx.Done()
	shutdown(app, logger, sessions, adminLimiter, studentLimiter, publicLimiter)
}

func newLimiter(name string, limit config.RateLimit, logger zerolog.Logger) *ratelimit.Limiter {
	return ratelimit.New(ratelimit.Config{
		Name:        name,
		MaxRequests: limit.MaxRequests,
		Window:      limit.Window,
	}, logger)
}

type stopper interface {
	Stop()
}

func shutdown(app *fiber.App, logger zerolog.Logger, workers ...stopper) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
	}
	for _, worker := range workers {
		worker.Stop()
	}

	logger.Info().Msg("server stopped")
}
