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

	"github.com/getsentry/sentry-go"
	sentrygin "github.com/getsentry/sentry-go/gin"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/richxcame/account-onboarding/internal/applications"
	"github.com/richxcame/account-onboarding/internal/facts"
	"github.com/richxcame/account-onboarding/internal/integrations"
	"github.com/richxcame/account-onboarding/internal/rules"
	"github.com/richxcame/account-onboarding/pkg/common"
	"github.com/richxcame/account-onboarding/pkg/config"
	"github.com/richxcame/account-onboarding/pkg/database"
	"github.com/richxcame/account-onboarding/pkg/eventbus"
	"github.com/richxcame/account-onboarding/pkg/health"
	"github.com/richxcame/account-onboarding/pkg/logger"
	"github.com/richxcame/account-onboarding/pkg/middleware"
	"github.com/richxcame/account-onboarding/pkg/redis"
	"github.com/richxcame/account-onboarding/pkg/resilience"
	"github.com/richxcame/account-onboarding/pkg/secrets"
	"github.com/richxcame/account-onboarding/pkg/tracing"
)

const serviceName = "onboarding"

func main() {
	cfg, err := config.Load(serviceName)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	if err := logger.Init(cfg.Server.Environment); err != nil {
		fmt.Fprintf(os.Stderr, "failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Secrets.Provider != "" {
		if err := loadSecrets(ctx, cfg); err != nil {
			logger.Fatal("failed to load credentials", zap.Error(err))
		}
	}

	shutdownTracing, err := tracing.Setup(ctx, cfg.Tracing, serviceName, cfg.Server.Version)
	if err != nil {
		logger.Warn("tracing disabled", zap.Error(err))
	}

	if cfg.Sentry.DSN != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:         cfg.Sentry.DSN,
			Environment: cfg.Server.Environment,
			Release:     cfg.Server.Version,
		}); err != nil {
			logger.Warn("sentry disabled", zap.Error(err))
		} else {
			defer sentry.Flush(2 * time.Second)
		}
	}

	checks := map[string]common.CheckFunc{}

	// Postgres
	var pool *pgxpool.Pool
	var rulePersister rules.Persister
	var repo applications.RepositoryInterface = applications.NewMemoryRepository()
	if cfg.Database.Enabled {
		if err := database.Migrate(cfg.Database.URL()); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
		pool, err = database.NewPostgresPool(ctx, &cfg.Database)
		if err != nil {
			logger.Fatal("failed to connect to database", zap.Error(err))
		}
		defer database.Close(pool)

		rulePersister = rules.NewPostgresPersister(pool)
		repo = applications.NewPostgresRepository(pool)
		checks["database"] = health.PoolChecker(pool)
		logger.Info("using postgres storage")
	} else {
		logger.Info("database disabled, using in-memory storage")
	}

	// Redis
	var locker applications.Locker = applications.NewLocalLocker()
	if cfg.Redis.Enabled {
		redisClient, err := redis.NewRedisClient(&cfg.Redis)
		if err != nil {
			logger.Fatal("failed to connect to redis", zap.Error(err))
		}
		defer redisClient.Close()

		locker = applications.NewRedisLocker(redisClient.Client, cfg.Orchestrator.LockTTL)
		checks["redis"] = health.RedisChecker(redisClient.Client)
		logger.Info("using redis application locks")
	}

	// NATS
	var events applications.EventPublisher = applications.NopPublisher{}
	if cfg.NATS.Enabled {
		bus, err := eventbus.Connect(cfg.NATS, serviceName)
		if err != nil {
			logger.Fatal("failed to connect to nats", zap.Error(err))
		}
		defer bus.Close()

		events = applications.NewBusPublisher(bus)
		checks["nats"] = health.NATSChecker(bus.Conn())

		if err := bus.Subscribe(ctx, eventbus.SubjectApplicationDecided, serviceName+"-audit", auditDecision); err != nil {
			logger.Warn("decision audit consumer not started", zap.Error(err))
		}
	}

	// Rules
	ruleStore := rules.NewStore(facts.Full(), rulePersister)
	if err := ruleStore.Load(ctx, rules.DefaultRules()); err != nil {
		logger.Fatal("failed to load rule set", zap.Error(err))
	}
	checks["rules"] = health.RuleSetChecker(ruleStore.Version)
	logger.Info("rule set loaded", zap.Int64("version", ruleStore.Version()))

	// Integrations
	orchestrator := integrations.NewOrchestrator(newRegistry(cfg.Orchestrator), cfg.Orchestrator.BatchDeadline)

	service := applications.NewService(
		repo,
		ruleStore,
		orchestrator,
		locker,
		events,
		applications.DefaultCatalog(),
		applications.ServiceConfig{StrictRuleVersion: cfg.Orchestrator.StrictRuleVersion},
	)

	var dispatcher *applications.Dispatcher
	if cfg.Orchestrator.ProcessOnSubmit {
		dispatcher = applications.NewDispatcher(service, cfg.Orchestrator.WorkerCount, 0)
		dispatcher.Start(ctx)
		defer dispatcher.Stop()
	}

	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(middleware.Recovery())
	router.Use(middleware.CorrelationID())
	router.Use(middleware.RequestLogger())
	router.Use(middleware.Metrics(serviceName))
	router.Use(middleware.SecurityHeaders())
	if cfg.Sentry.DSN != "" {
		router.Use(sentrygin.New(sentrygin.Options{Repanic: true}))
	}

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = cfg.Server.AllowedOrigins()
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", "X-Correlation-ID"}
	router.Use(cors.New(corsConfig))

	router.GET("/healthz", common.HealthCheck(serviceName, cfg.Server.Version))
	router.GET("/health/ready", common.HealthCheckWithDeps(serviceName, cfg.Server.Version, checks))
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	applications.NewHandler(service, dispatcher).RegisterRoutes(router)
	rules.NewHandler(ruleStore).RegisterRoutes(router, cfg.JWT.Secret)

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	go func() {
		logger.Info("onboarding service starting",
			zap.String("port", cfg.Server.Port),
			zap.String("integration_mode", cfg.Orchestrator.IntegrationMode),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown failed", zap.Error(err))
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		logger.Warn("tracing shutdown failed", zap.Error(err))
	}
}

func loadSecrets(ctx context.Context, cfg *config.Config) error {
	manager, err := secrets.NewManager(ctx, cfg.Secrets)
	if err != nil {
		return err
	}
	defer manager.Close()
	return secrets.Apply(ctx, manager, cfg)
}

// newRegistry registers a client for every catalog integration, each behind
// its own breaker tuned from config
func newRegistry(cfg config.OrchestratorConfig) *integrations.Registry {
	policy := integrations.DefaultPolicy()
	policy.Timeout = cfg.CallTimeout
	policy.MaxRetries = cfg.MaxRetries
	policy.InitialBackoff = cfg.InitialBackoff

	clients := integrations.MockClients(0)
	if cfg.IntegrationMode == "http" {
		clients = integrations.HTTPClients(cfg.IntegrationBaseURL, cfg.CallTimeout)
	}

	registry := integrations.NewRegistry(policy)
	for id, client := range clients {
		breaker := resilience.BuildSettings("integration_"+id,
			cfg.BreakerInterval,
			cfg.BreakerOpenTimeout,
			cfg.BreakerFailureThreshold,
			cfg.BreakerSuccessThreshold,
		)
		registry.Register(id, client, integrations.WithBreaker(breaker))
	}
	return registry
}

func auditDecision(ctx context.Context, event *eventbus.Event) error {
	var data eventbus.ApplicationDecidedData
	if err := event.Decode(&data); err != nil {
		return err
	}
	logger.WithContext(logger.ContextWithApplicationID(ctx, data.ApplicationID)).Info("decision recorded",
		zap.String("event_id", event.ID),
		zap.String("status", data.Status),
		zap.String("risk_level", data.RiskLevel),
		zap.Int64("rule_set_version", data.RuleSetVersion),
	)
	return nil
}
