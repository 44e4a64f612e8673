package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	billingapp "github.com/commerce/backoffice/internal/application/billing"
	inventoryapp "github.com/commerce/backoffice/internal/application/inventory"
	tradeapp "github.com/commerce/backoffice/internal/application/trade"
	"github.com/commerce/backoffice/internal/domain/catalog"
	"github.com/commerce/backoffice/internal/domain/inventory"
	"github.com/commerce/backoffice/internal/domain/shared"
	"github.com/commerce/backoffice/internal/infrastructure/cache"
	"github.com/commerce/backoffice/internal/infrastructure/config"
	"github.com/commerce/backoffice/internal/infrastructure/event"
	"github.com/commerce/backoffice/internal/infrastructure/logger"
	"github.com/commerce/backoffice/internal/infrastructure/telemetry"
	"github.com/commerce/backoffice/internal/interfaces/http/handler"
	"github.com/commerce/backoffice/internal/interfaces/http/middleware"
	"github.com/commerce/backoffice/internal/interfaces/http/router"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	ctx := context.Background()

	// Bootstrap logger for telemetry setup, replaced once the OTEL bridge exists
	bootLog, err := logger.New(&logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}

	providers, err := newTelemetry(ctx, cfg, bootLog)
	if err != nil {
		bootLog.Fatal("Failed to initialize telemetry", zap.Error(err))
	}

	log, err := logger.New(&logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
	}, telemetry.NewZapOTELCore(telemetry.ZapBridgeConfig{
		ServiceName:    cfg.Telemetry.ServiceName,
		LoggerProvider: providers.logs,
		Level:          logger.ParseLevel(cfg.Log.Level),
	}))
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = log.Sync()
	}()

	log.Info("Starting back office",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("version", cfg.App.Version),
		zap.String("port", cfg.App.Port),
		zap.String("database_driver", cfg.Database.Driver),
	)

	// Redis backs the idempotency store, the allocation locks and the order summaries
	var redisClient *redis.Client
	if needsRedis(cfg) {
		redisClient, err = cache.NewRedisClient(ctx, cfg.Redis)
		if err != nil {
			if cfg.App.Env == "production" {
				log.Fatal("Failed to connect to Redis", zap.Error(err))
			}
			log.Warn("Redis unavailable, using in-process backends", zap.Error(err))
			redisClient = nil
		} else {
			defer func() {
				if err := redisClient.Close(); err != nil {
					log.Error("Error closing Redis client", zap.Error(err))
				}
			}()
			log.Info("Redis connected", zap.String("addr", cfg.Redis.Addr()))
		}
	}

	repos, err := openRepositories(cfg, providers, log)
	if err != nil {
		log.Fatal("Failed to open repositories", zap.Error(err))
	}
	defer func() {
		if err := repos.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()

	// Business metrics feed both the intake and billing recorders
	businessMetrics, err := telemetry.NewBusinessMetrics(telemetry.BusinessMetricsConfig{
		Meter:         providers.metrics.Meter("backoffice/business"),
		Logger:        log,
		StockProvider: repos.shipments,
	})
	if err != nil {
		log.Fatal("Failed to initialize business metrics", zap.Error(err))
	}
	if providers.metrics.IsEnabled() {
		businessMetrics.StartPeriodicCollection(ctx, cfg.Telemetry.MetricsInterval)
	}
	defer businessMetrics.Stop()

	country := catalog.CountryPortugal
	if c, ok := catalog.ParseCountry(cfg.Billing.Country); ok {
		country = c
	} else {
		log.Warn("Unknown billing country, using default",
			zap.String("configured", cfg.Billing.Country),
			zap.String("country", string(country)))
	}

	// Allocation is serialized per (seller, sku); redis extends that across instances
	var locker inventory.KeyLocker = inventory.NewMutexKeyLocker()
	if cfg.Allocation.LockBackend == cache.BackendRedis && redisClient != nil {
		locker = cache.NewRedisKeyLocker(redisClient, cfg.Allocation.LockTTL, log)
	}
	allocator := inventory.NewAllocator(repos.shipments,
		inventory.WithKeyLocker(locker),
		inventory.WithPartialSingleSKU(cfg.Allocation.PartialSingleSKU),
		inventory.WithMaxRetries(cfg.Allocation.MaxRetries),
	)

	taxes := catalog.NewTaxResolver(repos.taxes, nil)

	// Initialize application services
	generator := billingapp.NewGenerator(repos.sellers, repos.offers, taxes, repos.billings, log,
		billingapp.WithProducts(repos.products),
		billingapp.WithCountry(country),
		billingapp.WithMetrics(businessMetrics),
	)
	intakeOpts := []tradeapp.IntakeOption{
		tradeapp.WithIntakeCountry(country),
		tradeapp.WithIntakeMetrics(businessMetrics),
	}
	if cfg.Billing.Enabled {
		intakeOpts = append(intakeOpts, tradeapp.WithBillingGenerator(generator))
	}
	intakeService := tradeapp.NewIntakeService(tradeapp.IntakeDeps{
		Orders:    repos.orders,
		Resolver:  catalog.NewOfferResolver(repos.offers, repos.rankings),
		Sellers:   repos.sellers,
		Products:  repos.products,
		BOMs:      repos.boms,
		Taxes:     taxes,
		Allocator: allocator,
	}, log, intakeOpts...)
	progressService := tradeapp.NewProgressService(repos.orders, log)
	billingService := billingapp.NewBillingService(repos.billings, log)
	shipmentService := inventoryapp.NewShipmentService(repos.shipments, repos.sellers, log)

	// Initialize event bus and handlers
	var busOpts []event.BusOption
	if cfg.Event.Async {
		busOpts = append(busOpts, event.WithAsyncDispatch(cfg.Event.Workers, cfg.Event.QueueSize))
	}
	eventBus := event.NewInMemoryEventBus(log, busOpts...)

	idempotencyStore, err := cache.NewIdempotencyStore(cfg.Event.IdempotencyBackend, redisUniversal(redisClient), log)
	if err != nil {
		log.Fatal("Failed to create idempotency store", zap.Error(err))
	}
	defer func() {
		if err := idempotencyStore.Close(); err != nil {
			log.Error("Error closing idempotency store", zap.Error(err))
		}
	}()

	var summaryStore tradeapp.OrderSummaryStore = cache.NewInMemoryOrderSummaryStore()
	if redisClient != nil {
		summaryStore = cache.NewRedisOrderSummaryStore(redisClient)
	}
	projector := tradeapp.NewOrderSummaryProjector(summaryStore, log)

	subscribed := event.SubscribeIdempotent(eventBus, idempotencyStore, log,
		[]shared.EventHandler{projector},
		event.WithIdempotencyConfig(event.IdempotencyConfig{Enabled: true, TTL: cfg.Event.IdempotencyTTL}),
	)
	for _, h := range subscribed {
		log.Info("Event handler registered", zap.Strings("events", h.EventTypes()))
	}

	if err := eventBus.Start(ctx); err != nil {
		log.Fatal("Failed to start event bus", zap.Error(err))
	}
	defer func() {
		if err := eventBus.Stop(context.Background()); err != nil {
			log.Error("Error stopping event bus", zap.Error(err))
		}
	}()

	// Inject event bus into services that publish events
	intakeService.SetEventPublisher(eventBus)
	progressService.SetEventPublisher(eventBus)
	billingService.SetEventPublisher(eventBus)
	shipmentService.SetEventPublisher(eventBus)
	generator.SetEventPublisher(eventBus)

	// Set Gin mode based on environment
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Setup validation
	middleware.SetupValidator()

	engine := gin.New()
	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			log.Warn("Failed to set trusted proxies", zap.Error(err))
		}
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	httpMetrics := middleware.NewHTTPMetrics(registry)

	// Middleware order:
	// 1. RequestID - Generate/propagate request ID
	// 2. Recovery - Catch panics
	// 3. Logger - Log requests
	// 4. Tracing - Server span, request attributes, error status
	// 5. Metrics - Prometheus request metrics
	// 6. Security - Add security headers
	// 7. CORS - Handle cross-origin requests
	// 8. BodyLimit - Limit request body size
	// 9. Timeout - Bound the request context
	engine.Use(middleware.RequestID())
	engine.Use(logger.Recovery(log))
	engine.Use(logger.GinMiddleware(log))
	engine.Use(middleware.TracingWithConfig(middleware.TracingConfig{
		ServiceName: cfg.Telemetry.ServiceName,
		Enabled:     cfg.Telemetry.Enabled,
	}))
	engine.Use(middleware.TracingAttributeInjector())
	engine.Use(middleware.SpanErrorMarker())
	engine.Use(httpMetrics.Middleware())
	engine.Use(middleware.Secure())

	corsConfig := middleware.DefaultCORSConfig()
	corsConfig.AllowOrigins = cfg.HTTP.CORSAllowOrigins
	engine.Use(middleware.CORSWithConfig(corsConfig))
	engine.Use(middleware.BodyLimit(cfg.HTTP.MaxBodySize))
	engine.Use(middleware.Timeout(cfg.HTTP.RequestTimeout))

	// Health check and metrics endpoints (outside API versioning)
	engine.GET("/health", healthHandler(repos))
	if cfg.Metrics.Enabled {
		engine.GET(cfg.Metrics.Path, gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry})))
	}

	r := router.NewRouter(engine, router.WithAPIVersion("v1"))

	// Rate limiting applies to the API only (if enabled)
	if cfg.HTTP.RateLimitEnabled {
		rateLimiter := middleware.NewRateLimiter(cfg.HTTP.RateLimitRequests, cfg.HTTP.RateLimitWindow)
		defer rateLimiter.Stop()
		r.Use(middleware.RateLimit(rateLimiter))
		log.Info("Rate limiting enabled",
			zap.Int("requests", cfg.HTTP.RateLimitRequests),
			zap.Duration("window", cfg.HTTP.RateLimitWindow),
		)
	}

	r.Register(handler.OrderRoutes(handler.NewOrderHandler(intakeService, progressService, billingService)))
	r.Register(handler.BillingRoutes(handler.NewBillingHandler(billingService)))
	r.Register(handler.ShipmentRoutes(handler.NewShipmentHandler(shipmentService)))
	r.Register(handler.SystemRoutes(handler.NewSystemHandler(cfg.App.Name, cfg.App.Version)))
	r.Setup()

	for _, route := range r.Routes() {
		log.Debug("Route registered",
			zap.String("group", route.Group),
			zap.String("method", route.Method),
			zap.String("path", route.Path))
	}

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}
	if err := providers.Shutdown(shutdownCtx); err != nil {
		log.Error("Telemetry shutdown incomplete", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}

func needsRedis(cfg *config.Config) bool {
	return cfg.Allocation.LockBackend == cache.BackendRedis || cfg.Event.IdempotencyBackend == cache.BackendRedis
}

// redisUniversal avoids handing a typed nil *redis.Client to an interface parameter
func redisUniversal(client *redis.Client) redis.UniversalClient {
	if client == nil {
		return nil
	}
	return client
}

// telemetryProviders groups the OpenTelemetry providers so they shut down together
type telemetryProviders struct {
	tracer  *telemetry.TracerProvider
	metrics *telemetry.MeterProvider
	logs    *telemetry.LoggerProvider
}

func newTelemetry(ctx context.Context, cfg *config.Config, log *zap.Logger) (*telemetryProviders, error) {
	tel := cfg.Telemetry
	tracer, err := telemetry.NewTracerProvider(ctx, telemetry.Config{
		Enabled:           tel.Enabled,
		CollectorEndpoint: tel.CollectorEndpoint,
		SamplingRatio:     tel.SamplingRatio,
		ServiceName:       tel.ServiceName,
		ServiceVersion:    cfg.App.Version,
		Insecure:          tel.Insecure,
	}, log)
	if err != nil {
		return nil, err
	}
	metrics, err := telemetry.NewMeterProvider(ctx, telemetry.MetricsConfig{
		Enabled:           tel.Enabled && tel.MetricsEnabled,
		CollectorEndpoint: tel.CollectorEndpoint,
		ExportInterval:    tel.MetricsInterval,
		ServiceName:       tel.ServiceName,
		ServiceVersion:    cfg.App.Version,
		Insecure:          tel.Insecure,
	}, log)
	if err != nil {
		return nil, multierr.Append(err, tracer.Shutdown(ctx))
	}
	logs, err := telemetry.NewLoggerProvider(ctx, telemetry.LogsConfig{
		Enabled:           tel.Enabled && tel.LogsEnabled,
		CollectorEndpoint: tel.CollectorEndpoint,
		ServiceName:       tel.ServiceName,
		ServiceVersion:    cfg.App.Version,
		Insecure:          tel.Insecure,
	}, log)
	if err != nil {
		return nil, multierr.Combine(err, metrics.Shutdown(ctx), tracer.Shutdown(ctx))
	}
	return &telemetryProviders{tracer: tracer, metrics: metrics, logs: logs}, nil
}

// Shutdown flushes logs first so shutdown messages from the other providers are kept
func (p *telemetryProviders) Shutdown(ctx context.Context) error {
	return multierr.Combine(
		p.logs.Shutdown(ctx),
		p.metrics.Shutdown(ctx),
		p.tracer.Shutdown(ctx),
	)
}

// healthHandler returns a handler for health check endpoints
func healthHandler(repos *repositories) gin.HandlerFunc {
	return func(c *gin.Context) {
		reqLog := logger.GetGinLogger(c)
		if err := repos.Ping(); err != nil {
			reqLog.Warn("Health check failed", zap.Error(err))
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":   "unhealthy",
				"time":     time.Now().Format(time.RFC3339),
				"database": "error",
			})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"status":   "healthy",
			"time":     time.Now().Format(time.RFC3339),
			"database": repos.driver,
		})
	}
}
