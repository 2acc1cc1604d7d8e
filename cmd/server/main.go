package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"loomworks/internal/activity"
	jwttoken "loomworks/internal/jwt_token"
	"loomworks/internal/platform/config"
	"loomworks/internal/platform/httpserver"
	"loomworks/internal/platform/kafka"
	"loomworks/internal/platform/logger"
	"loomworks/internal/platform/metrics"
	"loomworks/internal/platform/postgres"
	platformredis "loomworks/internal/platform/redis"
	"loomworks/internal/reporting"
	reportinghandler "loomworks/internal/reporting/handler"
	transporthttp "loomworks/internal/transport/http"
	"loomworks/internal/user"
	userhandler "loomworks/internal/user/handler"
	"loomworks/internal/workflow"
	workflowhandler "loomworks/internal/workflow/handler"
	wfmetrics "loomworks/internal/workflow/metrics"
)

// main wires dependencies and owns the server lifecycle. Business logic
// lives in the internal packages; everything here is assembly.
func main() {
	cfg := config.FromEnv()
	log := logger.New()
	ctx := context.Background()

	// Storage: Postgres when a DSN is configured, in-memory otherwise.
	var (
		entityStore     workflow.EntityStore
		submissionStore workflow.SubmissionStore
		approvalStore   workflow.ApprovalStore
		activityStore   activity.Store
		userStore       user.Store
		transactor      workflow.Transactor
	)
	db, err := postgres.Open(cfg.PostgresDSN)
	if err != nil {
		log.Error("postgres connection failed", "error", err.Error())
		os.Exit(1)
	}
	if db != nil {
		if err := postgres.EnsureSchema(ctx, db); err != nil {
			log.Error("schema setup failed", "error", err.Error())
			os.Exit(1)
		}
		entityStore = workflow.NewPostgresEntityStore(db)
		submissionStore = workflow.NewPostgresSubmissionStore(db)
		approvalStore = workflow.NewPostgresApprovalStore(db)
		activityStore = activity.NewPostgresStore(db)
		userStore = user.NewPostgresStore(db)
		transactor = workflow.NewSQLTransactor(db)
		defer db.Close()
	} else {
		log.Warn("POSTGRES_DSN not set, using in-memory stores")
		entityStore = workflow.NewInMemoryEntityStore()
		submissionStore = workflow.NewInMemorySubmissionStore()
		approvalStore = workflow.NewInMemoryApprovalStore()
		activityStore = activity.NewInMemoryStore()
		userStore = user.NewInMemoryStore()
		transactor = workflow.NopTransactor{}
	}

	redisClient, err := platformredis.New(cfg.RedisURL)
	if err != nil {
		log.Error("redis connection failed", "error", err.Error())
		os.Exit(1)
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	producer, err := kafka.NewProducer(ctx, cfg.KafkaBrokers, cfg.ActivityTopic)
	if err != nil {
		log.Error("kafka setup failed", "error", err.Error())
		os.Exit(1)
	}
	if producer != nil {
		defer producer.Close()
	}

	var activityOpts []activity.Option
	if producer != nil {
		relay := kafka.NewRelay(producer, 256, log)
		relayCtx, stopRelay := context.WithCancel(ctx)
		defer stopRelay()
		go func() {
			if err := relay.Run(relayCtx); err != nil && err != context.Canceled {
				log.Error("activity relay stopped", "error", err.Error())
			}
		}()
		activityOpts = append(activityOpts, activity.WithBroker(relay))
	}
	activities := activity.NewPublisher(activityStore, log, activityOpts...)

	tokens := jwttoken.NewService(cfg.JWTSigningKey, "loomworks")
	users := user.NewService(userStore, tokens, activities, log)
	if err := users.Seed(ctx, cfg.SeedAdminEmail, cfg.SeedAdminPassword); err != nil {
		log.Error("admin seed failed", "error", err.Error())
		os.Exit(1)
	}

	engine := workflow.NewEngine(
		entityStore, submissionStore, approvalStore,
		activities, transactor, wfmetrics.New(), log,
	)

	statsCache := reporting.NewCache(redisClient, cfg.StatsCacheTTL, log)
	reports := reporting.NewService(
		entityStore, submissionStore, activityStore,
		statsCache, cfg.AccuracyRate, log,
	)

	httpMetrics := metrics.New()
	checks := map[string]transporthttp.HealthCheck{}
	if db != nil {
		checks["postgres"] = db.PingContext
	}
	if redisClient != nil {
		checks["redis"] = redisClient.Health
	}
	router := transporthttp.NewRouter(checks,
		userhandler.New(users, activities, log, httpMetrics, tokens),
		reportinghandler.New(reports, log, httpMetrics, tokens),
		workflowhandler.New(engine, log, httpMetrics, tokens),
	)

	srv := httpserver.New(cfg.Addr, router)
	go func() {
		log.Info("server listening", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", "error", err.Error())
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", "error", err.Error())
		os.Exit(1)
	}
}
