package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	cashregisterapp "github.com/erp/backoffice/internal/application/cashregister"
	catalogapp "github.com/erp/backoffice/internal/application/catalog"
	financeapp "github.com/erp/backoffice/internal/application/finance"
	inventoryapp "github.com/erp/backoffice/internal/application/inventory"
	promotionapp "github.com/erp/backoffice/internal/application/promotion"
	"github.com/erp/backoffice/internal/application/settlement"
	"github.com/erp/backoffice/internal/domain/shared"
	"github.com/erp/backoffice/internal/infrastructure/cache"
	"github.com/erp/backoffice/internal/infrastructure/config"
	"github.com/erp/backoffice/internal/infrastructure/event"
	"github.com/erp/backoffice/internal/infrastructure/lock"
	"github.com/erp/backoffice/internal/infrastructure/logger"
	"github.com/erp/backoffice/internal/infrastructure/persistence"
	"github.com/erp/backoffice/internal/infrastructure/telemetry"
	"github.com/erp/backoffice/internal/interfaces/http/handler"
	"github.com/erp/backoffice/internal/interfaces/http/middleware"
	"github.com/erp/backoffice/internal/interfaces/http/router"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
)

// version is set at build time with -ldflags "-X main.version=..."
var version = "dev"

const slowQueryThreshold = 200 * time.Millisecond

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	log, err := logger.New(&logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	log.Info("Starting backoffice",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
		zap.String("version", version),
	)

	ctx := context.Background()

	tracerProvider, err := telemetry.NewTracerProvider(ctx, cfg.Telemetry, log)
	if err != nil {
		log.Fatal("Failed to initialize tracer provider", zap.Error(err))
	}
	meterProvider, err := telemetry.NewMeterProvider(ctx, cfg.Telemetry, log)
	if err != nil {
		log.Fatal("Failed to initialize meter provider", zap.Error(err))
	}

	gormLog := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level), slowQueryThreshold)
	db, err := persistence.NewDatabaseWithLogger(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	log.Info("Database connected", zap.String("driver", cfg.Database.Driver))

	if cfg.Database.Driver == "sqlite" {
		if err := db.AutoMigrate(); err != nil {
			log.Fatal("Failed to migrate sqlite schema", zap.Error(err))
		}
	}

	dbTracing := telemetry.DefaultDBTracingConfig()
	dbTracing.Enabled = cfg.Telemetry.Enabled && cfg.Telemetry.DBTraceEnabled
	dbTracing.LogFullSQL = cfg.App.Env == "development"
	if cfg.Database.Driver == "sqlite" {
		dbTracing.DBSystem = "sqlite"
	}
	if err := telemetry.NewDBTracingPlugin(dbTracing, log).Register(db.DB); err != nil {
		log.Fatal("Failed to register database tracing", zap.Error(err))
	}

	var rdb *redis.Client
	if cfg.Lock.Backend == "redis" || cfg.Idempotency.Backend == "redis" {
		rdb, err = cache.NewRedisClient(ctx, cfg.Redis)
		if err != nil {
			if cfg.Lock.Backend == "redis" {
				log.Fatal("Redis is required by the lock backend", zap.Error(err))
			}
			log.Warn("Redis unavailable", zap.Error(err))
			rdb = nil
		} else {
			defer rdb.Close()
		}
	}

	var lockClient redis.UniversalClient
	storeOpts := []cache.IdempotencyStoreFactoryOption{cache.WithLogger(log)}
	if rdb != nil {
		lockClient = rdb
		storeOpts = append(storeOpts, cache.WithRedisClient(rdb))
	}
	locker, err := lock.New(cfg.Lock, lockClient, log)
	if err != nil {
		log.Fatal("Failed to create locker", zap.Error(err))
	}
	idempotencyStore, err := cache.NewIdempotencyStoreFactory(cfg.Idempotency, storeOpts...).CreateStore()
	if err != nil {
		log.Fatal("Failed to create idempotency store", zap.Error(err))
	}

	eventBus := event.NewInMemoryEventBus(log)
	eventConfig := shared.IdempotencyConfig{TTL: cfg.Idempotency.TTL, Enabled: true}
	eventBus.Subscribe(event.NewIdempotentHandler(event.NewStockAlertHandler(log), idempotencyStore, eventConfig, log))
	eventBus.Subscribe(event.NewIdempotentHandler(event.NewDocumentLogHandler(log), idempotencyStore, eventConfig, log))

	// Application services
	settings := cfg.Settings()
	uow := persistence.NewGormUnitOfWork(db.DB, cfg.Database.LockTimeout)

	ledger, err := inventoryapp.NewStockLedger(uow, settings.General, log)
	if err != nil {
		log.Fatal("Failed to create stock ledger", zap.Error(err))
	}
	ledger.SetEventPublisher(eventBus)

	allocator := financeapp.NewPaymentAllocator(uow, locker, settings, log)
	promotions, err := promotionapp.NewPromotionService(uow, settings.Stacking, settings.General.Decimals, log)
	if err != nil {
		log.Fatal("Failed to create promotion service", zap.Error(err))
	}

	engine, err := settlement.NewEngine(uow, locker, ledger, allocator, promotions, settings, log)
	if err != nil {
		log.Fatal("Failed to create settlement engine", zap.Error(err))
	}
	engine.SetEventPublisher(eventBus)
	engine.SetRetryPolicy(settlement.RetryPolicy{
		MaxRetries:      uint64(cfg.Settlement.MaxRetries),
		InitialInterval: cfg.Settlement.RetryInterval,
		MaxInterval:     10 * cfg.Settlement.RetryInterval,
	})

	catalogService := catalogapp.NewCatalogService(uow, log)
	unitService := catalogapp.NewUnitService(uow, settings.General.QuantityPrecision)
	registerService := cashregisterapp.NewRegisterService(uow, locker, log)

	// HTTP
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	middleware.SetupValidator()

	r := gin.New()
	if err := r.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
		log.Fatal("Invalid trusted proxies", zap.Error(err))
	}

	var limiter *middleware.RateLimiter
	if cfg.HTTP.RateLimit > 0 {
		limiter = middleware.NewRateLimiter(cfg.HTTP.RateLimit, cfg.HTTP.RateWindow)
	}

	r.Use(
		logger.Recovery(log),
		middleware.RequestID(),
		middleware.Tracing(middleware.TracingConfig{
			ServiceName: cfg.Telemetry.ServiceName,
			Enabled:     tracerProvider.IsEnabled(),
		}),
		middleware.SpanAttributes(),
		logger.GinMiddleware(log),
		middleware.Secure(),
		middleware.CORS(middleware.DefaultCORSConfig(cfg.HTTP.CORSAllowOrigins)),
		middleware.BodyLimit(cfg.HTTP.MaxBodySize),
		middleware.RateLimit(limiter),
		middleware.Idempotency(middleware.IdempotencyConfig{
			Store:  idempotencyStore,
			TTL:    cfg.Idempotency.TTL,
			Logger: log,
		}),
	)
	if meterProvider.IsEnabled() {
		r.Use(middleware.HTTPMetrics(otel.Meter("github.com/erp/backoffice/http")))
	}

	checks := map[string]handler.HealthCheck{
		"database": func(ctx context.Context) error {
			sqlDB, err := db.DB.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		},
	}
	if rdb != nil {
		checks["redis"] = func(ctx context.Context) error {
			return rdb.Ping(ctx).Err()
		}
	}

	router.NewRouter(r).Register(
		handler.NewSystemHandler(version, checks),
		handler.NewCatalogHandler(catalogService, unitService),
		handler.NewStockHandler(ledger),
		handler.NewDocumentHandler(engine, ledger),
		handler.NewPaymentHandler(allocator),
		handler.NewPromotionHandler(promotions),
		handler.NewCashRegisterHandler(registerService),
	).Setup()

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        r,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	go func() {
		log.Info("HTTP server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}
	if err := meterProvider.Shutdown(shutdownCtx); err != nil {
		log.Error("Failed to flush metrics", zap.Error(err))
	}
	if err := tracerProvider.Shutdown(shutdownCtx); err != nil {
		log.Error("Failed to flush traces", zap.Error(err))
	}
	delivered, failed := eventBus.Stats()
	log.Info("Server exited", zap.Int64("events_delivered", delivered), zap.Int64("events_failed", failed))
}
