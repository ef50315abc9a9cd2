package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"relay/internal/assets"
	"relay/internal/catalog"
	"relay/internal/config"
	"relay/internal/config_handler"
	"relay/internal/constants"
	"relay/internal/dispatch"
	"relay/internal/logger"
	"relay/internal/tenant"
	"relay/pkg/bootstrap"
	"relay/pkg/circuitbreaker"
	"relay/pkg/health"
	"relay/pkg/logging"
	"relay/pkg/metrics"
	"relay/pkg/middleware"
	"relay/pkg/models"
	"relay/pkg/tracing"
)

type App struct {
	*bootstrap.Base
	dbConnector    *bootstrap.DatabaseConnector
	db             *sql.DB
	redisClient    *redis.Client
	resolver       *tenant.CachedResolver
	catalogService *catalog.Service
	service        *dispatch.Service
	tracerProvider *tracing.TracerProvider
	server         *http.Server
}

func NewApp(cfg *config.Config, log logger.Logger) *App {
	if sugaredLogger, ok := log.(*logger.SugaredLogger); ok {
		sugaredLogger.SetServiceName("dispatch-service")
	}
	return &App{
		Base:        bootstrap.NewBase(cfg, log),
		dbConnector: bootstrap.NewDatabaseConnector(cfg, log),
	}
}

func (a *App) Initialize(ctx context.Context) error {
	if err := a.initDatabases(ctx); err != nil {
		return fmt.Errorf("failed to initialize databases: %w", err)
	}

	if err := a.InitBroker("dispatch-service"); err != nil {
		return fmt.Errorf("failed to initialize broker: %w", err)
	}

	if err := a.initService(ctx); err != nil {
		return fmt.Errorf("failed to initialize service: %w", err)
	}

	tp, err := tracing.Init(a.Config.Tracing, "dispatch-service")
	if err != nil {
		return fmt.Errorf("failed to initialize tracing: %w", err)
	}
	a.tracerProvider = tp

	metrics.RegisterDispatchMetrics()
	metrics.RegisterBrokerMetrics()
	if a.Config.CircuitBreaker.Enabled {
		metrics.RegisterCircuitBreakerMetrics()
	}

	if err := a.initHTTPServer(ctx); err != nil {
		return fmt.Errorf("failed to initialize HTTP server: %w", err)
	}

	return nil
}

func (a *App) initDatabases(ctx context.Context) error {
	db, err := a.dbConnector.InitPostgreSQL(ctx)
	if err != nil {
		return err
	}
	a.db = db

	redisClient, err := a.dbConnector.InitRedis(ctx)
	if err != nil {
		return err
	}
	a.redisClient = redisClient

	return nil
}

func (a *App) initService(ctx context.Context) error {
	registry := catalog.NewRegistry(catalog.DefaultSchemas()...)

	if a.Config.Database.MongoDB.URI != "" {
		initCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
		defer cancel()

		mongoClient, err := a.dbConnector.InitMongoDB(initCtx)
		if err != nil {
			a.Logger.WarnwCtx(initCtx, "MongoDB connection failed, using built-in event schemas", "error", err)
		} else if mongoClient != nil {
			dbName := a.Config.Database.MongoDB.Database
			if dbName == "" {
				dbName = constants.DefaultMongoDBName
			}
			catalogSvc := catalog.NewService(catalog.NewRepository(mongoClient.Database(dbName)), a.Logger)
			if err := catalogSvc.ReloadSchemas(initCtx); err != nil {
				a.Logger.WarnwCtx(initCtx, "Failed to load event schemas, using defaults", "error", err)
			}
			a.catalogService = catalogSvc
			registry = catalogSvc.Registry()
		}
	}

	metadataClient := assets.NewMetadataClient(
		a.Config.Dispatch.AssetMetadata,
		a.newBreaker("asset-metadata"),
		a.Logger,
	)
	presignClient := assets.NewPresignClient(
		a.Config.Dispatch.Presign,
		a.newBreaker("presign"),
		a.Logger,
	)

	cacheTTL := time.Duration(a.Config.Dispatch.TenantCacheTTLSeconds) * time.Second
	if cacheTTL <= 0 {
		cacheTTL = constants.DefaultTenantCacheTTLSeconds * time.Second
	}
	a.resolver = tenant.NewCachedResolver(tenant.NewRepository(a.db), a.redisClient, cacheTTL, a.Logger)

	webhookTimeout := time.Duration(a.Config.Dispatch.WebhookTimeoutSeconds) * time.Second
	deliverer := dispatch.NewWebhookDeliverer(webhookTimeout, a.Logger)

	a.service = dispatch.NewService(
		a.Config.Dispatch,
		registry,
		metadataClient,
		presignClient,
		a.resolver,
		deliverer,
		a.Producer,
		a.Config.Broker.Kafka.BusTopic,
		a.Logger,
	)
	return nil
}

func (a *App) newBreaker(name string) *circuitbreaker.Breaker {
	if !a.Config.CircuitBreaker.Enabled {
		return nil
	}
	return circuitbreaker.New(circuitbreaker.DefaultConfig(name))
}

func (a *App) initHTTPServer(ctx context.Context) error {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()

	if a.Config.Tracing.Enabled {
		router.Use(tracing.GinMiddleware("dispatch-service"))
	}

	router.Use(middleware.RecoveryMiddleware(a.Logger))
	router.Use(middleware.LoggerMiddleware(a.Logger))
	router.Use(middleware.RequestIDMiddleware())

	handler := dispatch.NewHandler(a.service, a.Logger)
	handler.RegisterRoutes(router)

	healthRegistry := health.NewCheckerRegistry()
	if a.db != nil {
		healthRegistry.Register(health.NewPostgreSQLChecker(a.db))
	}
	if a.redisClient != nil {
		healthRegistry.Register(health.NewRedisChecker(a.redisClient))
	}
	if a.Config.Dispatch.AssetMetadata.Endpoint != "" {
		healthRegistry.Register(health.NewUpstreamChecker("asset-metadata", a.Config.Dispatch.AssetMetadata.Endpoint))
	}

	router.GET("/health", func(c *gin.Context) {
		h := healthRegistry.Check(c.Request.Context())
		statusCode := http.StatusOK
		if h.Status == health.StatusUnhealthy {
			statusCode = http.StatusServiceUnavailable
		}
		c.JSON(statusCode, h)
	})

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	a.server = &http.Server{
		Addr:    fmt.Sprintf(":%d", a.Config.Server.Port),
		Handler: router,
	}

	return nil
}

func (a *App) Run(ctx context.Context) error {
	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.Logger.InfowCtx(ctx, "HTTP server starting", "port", a.Config.Server.Port)
		if err := a.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	tenantHandler := config_handler.NewHandlerWithInvalidator(
		models.EventTypeTenantUpdated, models.ServiceTypeDispatch, a.resolver, a.Logger)

	var schemaHandler *config_handler.Handler
	if a.catalogService != nil {
		schemaHandler = config_handler.NewHandlerWithReloader(
			models.EventTypeEventSchemaUpdated, models.ServiceTypeDispatch, a.catalogService, a.Logger)
	}

	g.Go(func() error {
		configCtx := logging.WithServiceName(gCtx, "dispatch-service")
		a.Logger.InfowCtx(configCtx, "Starting config update event consumer",
			"topic", a.Config.Broker.Kafka.ConfigUpdateTopic,
		)
		return a.Consumer.Consume(gCtx, a.Config.Broker.Kafka.ConfigUpdateTopic, func(cCtx context.Context, env models.Envelope) error {
			if err := tenantHandler.HandleConfigUpdateEvent(cCtx, env); err != nil {
				return err
			}
			if schemaHandler != nil {
				return schemaHandler.HandleConfigUpdateEvent(cCtx, env)
			}
			return nil
		})
	})

	return g.Wait()
}

func (a *App) Shutdown(ctx context.Context) error {
	shutdownCtx := logging.WithServiceName(ctx, "dispatch-service")
	a.Logger.InfowCtx(shutdownCtx, "Shutting down dispatch service")

	additionalShutdown := func(ctx context.Context) []error {
		var errs []error

		if a.server != nil {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), constants.ShutdownTimeout)
			defer cancel()
			if err := a.server.Shutdown(shutdownCtx); err != nil {
				errs = append(errs, fmt.Errorf("HTTP server shutdown error: %w", err))
			}
		}

		if a.tracerProvider != nil {
			if err := a.tracerProvider.Shutdown(ctx); err != nil {
				errs = append(errs, fmt.Errorf("tracer provider shutdown error: %w", err))
			}
		}

		errs = append(errs, a.dbConnector.ShutdownDatabases(ctx, a.redisClient, a.db, nil)...)

		return errs
	}

	return a.Base.Shutdown(ctx, additionalShutdown)
}
