package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/casewatch/casewatch/internal/api"
	"github.com/casewatch/casewatch/internal/circuitbreaker"
	"github.com/casewatch/casewatch/internal/clients"
	"github.com/casewatch/casewatch/internal/config"
	"github.com/casewatch/casewatch/internal/duedate"
	"github.com/casewatch/casewatch/internal/events"
	"github.com/casewatch/casewatch/internal/ingest"
	"github.com/casewatch/casewatch/internal/mail"
	"github.com/casewatch/casewatch/internal/metrics"
	"github.com/casewatch/casewatch/internal/observ"
	"github.com/casewatch/casewatch/internal/redis"
	"github.com/casewatch/casewatch/internal/signalering"
	"github.com/casewatch/casewatch/internal/sns"
	"github.com/casewatch/casewatch/internal/store"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// Load config
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Setup logger
	logger, err := observ.NewLogger(cfg.Env, cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("starting casewatch server",
		zap.String("env", cfg.Env),
		zap.Int("port", cfg.Port),
	)

	// Initialize database connection
	ctx := context.Background()
	dbConfig := store.Config{
		Host:     cfg.DBHost,
		Port:     cfg.DBPort,
		User:     cfg.DBUser,
		Password: cfg.DBPassword,
		Database: cfg.DBName,
		SSLMode:  cfg.DBSSLMode,
	}

	database, err := store.New(ctx, dbConfig, logger)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer database.Close()

	logger.Info("database connection established",
		zap.String("host", cfg.DBHost),
		zap.Int("port", cfg.DBPort),
		zap.String("database", cfg.DBName),
	)

	repo := store.NewRepository(database, logger)

	// Redis backs the screen event fanout and API rate limiting. The service
	// stays up without it; dashboards fall back to polling.
	redisConfig := redis.Config{
		Host:     cfg.RedisHost,
		Port:     cfg.RedisPort,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	}

	redisClient, err := redis.New(ctx, redisConfig, logger)
	if err != nil {
		logger.Warn("redis unavailable, screen events and rate limiting disabled",
			zap.Error(err),
			zap.String("host", cfg.RedisHost),
		)
	}

	var publishers events.Fanout
	var rateLimiter *redis.RateLimiter
	if redisClient != nil {
		publishers = append(publishers, redis.NewScreenEventPublisher(redisClient, cfg.ScreenEventChannel, logger))
		if cfg.RateLimitRequests > 0 {
			rateLimiter = redis.NewRateLimiter(redisClient, logger, redis.RateLimitConfig{
				Limit:  cfg.RateLimitRequests,
				Window: time.Duration(cfg.RateLimitWindow) * time.Second,
			})
		}
		defer redisClient.Close()
	}

	// Optional SNS fanout for external subscribers
	if cfg.SNSTopicARN != "" {
		snsPublisher, err := sns.NewPublisher(ctx, cfg.SNSTopicARN, cfg.AWSRegion)
		if err != nil {
			logger.Warn("sns publisher unavailable, external event fanout disabled",
				zap.Error(err),
			)
		} else {
			publishers = append(publishers, snsPublisher)
		}
	}

	// Mail transport behind a circuit breaker; development logs instead of
	// sending.
	var transport mail.Mailer
	if cfg.Env == "development" {
		transport = mail.NewLogMailer(logger)
	} else {
		transport, err = mail.NewSESMailer(ctx, mail.SESConfig{Region: cfg.AWSRegion}, logger)
		if err != nil {
			return fmt.Errorf("failed to create SES mailer: %w", err)
		}
	}
	breaker := circuitbreaker.New(circuitbreaker.DefaultConfig("mail"), logger)
	mailer := circuitbreaker.NewProtectedMailer(transport, breaker, logger)

	// Collaborating services
	caseClient, err := clients.NewCaseClient(clients.Config{BaseURL: cfg.CaseAPIURL}, logger)
	if err != nil {
		return fmt.Errorf("failed to create case client: %w", err)
	}
	taskClient, err := clients.NewTaskClient(clients.Config{BaseURL: cfg.TaskAPIURL}, logger)
	if err != nil {
		return fmt.Errorf("failed to create task client: %w", err)
	}
	documentClient, err := clients.NewDocumentClient(clients.Config{BaseURL: cfg.DocumentAPIURL}, logger)
	if err != nil {
		return fmt.Errorf("failed to create document client: %w", err)
	}
	directoryClient, err := clients.NewDirectoryClient(clients.Config{BaseURL: cfg.DirectoryAPIURL}, logger)
	if err != nil {
		return fmt.Errorf("failed to create directory client: %w", err)
	}
	searchClient, err := clients.NewSearchClient(clients.Config{BaseURL: cfg.SearchAPIURL}, logger)
	if err != nil {
		return fmt.Errorf("failed to create search client: %w", err)
	}
	caseTypeClient, err := clients.NewCaseTypeClient(clients.Config{BaseURL: cfg.CaseAPIURL}, logger)
	if err != nil {
		return fmt.Errorf("failed to create case type client: %w", err)
	}

	// Orchestrator
	orchestrator := signalering.NewService(signalering.Config{
		Repository: repo,
		Events:     publishers,
		Mailer:     mailer,
		Templates:  mail.NewCatalogue(),
		Sources:    mail.NewSourceResolver(caseClient, taskClient, documentClient),
		Directory:  directoryClient,
		From:       mail.Address{Name: cfg.SESFromName, Email: cfg.SESFrom},
	}, logger)

	// Due-date scanner and its nightly schedule
	scanner := duedate.NewScanner(orchestrator, caseTypeClient, searchClient, taskClient, logger)

	runCtx, runCancel := context.WithCancel(context.Background())
	defer runCancel()

	if cfg.ScanEnabled {
		scheduler := duedate.NewScheduler(scanner, duedate.SchedulerConfig{Hour: cfg.ScanHour}, logger)
		go scheduler.Start(runCtx)
		logger.Info("due date scheduler started", zap.Int("hour", cfg.ScanHour))
	}

	// Business event ingestion from SQS
	if cfg.SQSQueueURL != "" {
		consumer, err := ingest.NewConsumer(runCtx, ingest.Config{
			Region:   cfg.SQSRegion,
			QueueURL: cfg.SQSQueueURL,
		}, ingest.NewHandler(orchestrator, logger), logger)
		if err != nil {
			return fmt.Errorf("failed to create sqs consumer: %w", err)
		}
		go consumer.Start(runCtx)
		logger.Info("business event consumer started")
	}

	// Setup router
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(metrics.Middleware)

	// Custom logging middleware
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			logger.Info("request completed",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("duration_ms", time.Since(start)),
				zap.String("request_id", middleware.GetReqID(r.Context())),
			)
		})
	})

	// API routes
	handler := api.NewHandler(logger, orchestrator, scanner)
	r.Route("/v1", func(r chi.Router) {
		r.Use(api.RateLimitMiddleware(rateLimiter, logger, api.UserKeyFunc))

		r.Get("/signals", handler.ListSignals)
		r.Get("/signals/count", handler.CountSignals)
		r.Get("/signals/latest", handler.LatestSignal)
		r.Delete("/signals", handler.DeleteSignals)
		r.Get("/settings/{ownerKind}/{ownerID}", handler.ListSettings)
		r.Put("/settings/{ownerKind}/{ownerID}", handler.PutSettings)
	})

	// Operational routes, not rate limited
	r.Route("/internal", func(r chi.Router) {
		r.Post("/scans/due-dates", handler.RunDueDateScan)
		r.Delete("/signals/old", handler.DeleteOldSignals)
	})

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	// Prometheus metrics endpoint
	r.Handle("/metrics", metrics.Handler())

	// Setup HTTP server
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("server listening", zap.String("addr", srv.Addr))
		serverErrors <- srv.ListenAndServe()
	}()

	// Listen for shutdown signals
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	// Block until we receive a signal or server error
	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)
	case sig := <-shutdown:
		logger.Info("shutdown signal received", zap.String("signal", sig.String()))

		runCancel()

		// Give outstanding requests 10 seconds to complete
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			srv.Close()
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}

		logger.Info("server stopped gracefully")
	}

	return nil
}
