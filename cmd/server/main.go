package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	appintegration "github.com/erp/ordersync/internal/application/integration"
	"github.com/erp/ordersync/internal/domain/shared"
	"github.com/erp/ordersync/internal/infrastructure/auth"
	"github.com/erp/ordersync/internal/infrastructure/cache"
	"github.com/erp/ordersync/internal/infrastructure/config"
	"github.com/erp/ordersync/internal/infrastructure/logger"
	"github.com/erp/ordersync/internal/infrastructure/marketplace"
	"github.com/erp/ordersync/internal/infrastructure/messaging"
	"github.com/erp/ordersync/internal/infrastructure/persistence"
	"github.com/erp/ordersync/internal/infrastructure/scheduler"
	"github.com/erp/ordersync/internal/infrastructure/storage"
	"github.com/erp/ordersync/internal/infrastructure/telemetry"
	"github.com/erp/ordersync/internal/infrastructure/validation"
	"github.com/erp/ordersync/internal/interfaces/http/handler"
	"github.com/erp/ordersync/internal/interfaces/http/middleware"
	"github.com/erp/ordersync/internal/interfaces/http/router"
)

//	@title			Order Sync API
//	@version		1.0
//	@description	Reconciles marketplace orders from push notifications and periodic pulls.

//	@host		localhost:8080
//	@BasePath	/api/v1

//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				Bearer token authentication. Format: "Bearer {token}"

const meterName = "github.com/erp/ordersync"

func main() {
	configPath := flag.String("config", "", "Config file to read instead of searching for config.toml")
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	logCfg := &logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
	}
	bootLog, err := logger.New(logCfg)
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}

	rootCtx := context.Background()
	serviceName := cfg.Telemetry.ServiceName
	if serviceName == "" {
		serviceName = cfg.App.Name
	}

	otelProviders, err := telemetry.Setup(rootCtx, telemetry.Options{
		ServiceName:     serviceName,
		ServiceVersion:  cfg.App.Version,
		Endpoint:        cfg.Telemetry.CollectorEndpoint,
		Insecure:        cfg.Telemetry.Insecure,
		Traces:          cfg.Telemetry.Enabled,
		SamplingRatio:   cfg.Telemetry.SamplingRatio,
		Metrics:         cfg.Telemetry.Enabled,
		MetricsInterval: cfg.Telemetry.MetricsExportInterval,
		Logs:            cfg.Telemetry.Enabled && cfg.Telemetry.LogsEnabled,
	}, bootLog)
	if err != nil {
		bootLog.Fatal("Failed to initialize OpenTelemetry", zap.Error(err))
	}
	log, err := logger.New(logCfg, otelProviders.LogCore(logger.ParseLevel(cfg.Log.Level)))
	if err != nil {
		bootLog.Fatal("Failed to initialize logger", zap.Error(err))
	}
	defer func() {
		_ = log.Sync()
	}()

	log.Info("Starting order sync service",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("version", cfg.App.Version),
		zap.String("port", cfg.App.Port),
	)

	profiler, err := telemetry.NewProfiler(telemetry.ProfilerConfig{
		Enabled:           cfg.Telemetry.Profiling.Enabled,
		ServerAddress:     cfg.Telemetry.Profiling.ServerAddress,
		ApplicationName:   serviceName,
		BasicAuthUser:     cfg.Telemetry.Profiling.BasicAuthUser,
		BasicAuthPassword: cfg.Telemetry.Profiling.BasicAuthPassword,
		ProfileCPU:        true,
		ProfileAllocSpace: true,
		ProfileInuseSpace: true,
		ProfileGoroutines: true,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize profiler", zap.Error(err))
	}
	if profiler.IsEnabled() {
		otelProviders.LinkSpanProfiles()
	}

	// Database with zap-backed GORM logger
	gormLog := logger.NewGormLogger(log, logger.ParseGormLevel(cfg.Log.GormLevel))
	db, err := persistence.NewDatabase(&cfg.Database,
		persistence.WithGormLogger(gormLog),
		persistence.WithTracing(cfg.Telemetry.Enabled && cfg.Telemetry.DBTraceEnabled),
	)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	log.Info("Database connected successfully")

	// Repositories
	channelRepo := persistence.NewGormMarketplaceChannelRepository(db.DB)
	orderRepo := persistence.NewGormMarketplaceOrderRepository(db.DB)
	auditRepo := persistence.NewGormOrderAuditRepository(db.DB)
	stores := appintegration.OrderStores{
		TxManager: persistence.NewGormTxManager(db.DB),
		Orders:    orderRepo,
		Audit:     auditRepo,
		Returns:   persistence.NewGormOrderReturnRepository(db.DB),
		Disputes:  persistence.NewGormOrderDisputeRepository(db.DB),
		Inventory: persistence.NewGormStockLedger(db.DB, log),
	}

	marketplaceMetrics, err := telemetry.NewMarketplaceMetrics(telemetry.MarketplaceMetricsConfig{
		Meter:  otelProviders.Meter(meterName),
		Logger: log,
	})
	if err != nil {
		log.Fatal("Failed to register marketplace metrics", zap.Error(err))
	}

	// Reconciliation core
	upserts := appintegration.NewOrderUpsertService(stores, validation.NewAddressValidator(orderRepo, log), marketplaceMetrics, log)
	store, err := cache.NewIdempotencyStoreFactory(cfg.Idempotency, cfg.Redis, cache.WithLogger(log)).CreateStore(rootCtx)
	if err != nil {
		log.Fatal("Failed to create idempotency store", zap.Error(err))
	}
	dispatcher := newDispatchChain(rootCtx, cfg, appintegration.NewNotificationDispatcher(stores, upserts, marketplaceMetrics, log), store, log)

	repeatable := cfg.Marketplace.RepeatableKeys
	if len(repeatable) == 0 {
		repeatable = marketplace.DefaultRepeatableKeys
	}
	decoder := marketplace.NewPayloadDecoder(repeatable)

	// Periodic and manual pulls
	client, err := marketplace.NewClient(marketplace.ClientConfig{
		Timeout:          cfg.Marketplace.Timeout,
		TokenURL:         cfg.Marketplace.TokenURL,
		TokenRefreshSkew: cfg.Marketplace.TokenRefreshSkew,
		RepeatableKeys:   repeatable,
		PageSize:         cfg.Marketplace.PageSize,
	}, channelRepo, log)
	if err != nil {
		log.Fatal("Failed to create marketplace client", zap.Error(err))
	}

	executor := scheduler.NewOrderSyncExecutor(scheduler.OrderSyncExecutorConfig{
		PageSize:          cfg.Marketplace.PageSize,
		UpsertConcurrency: cfg.Sync.UpsertConcurrency,
		MaxPages:          cfg.Sync.MaxPages,
	}, channelRepo, client, upserts.UpsertSyncRecord, log)

	syncScheduler, err := scheduler.NewOrderSyncScheduler(scheduler.OrderSyncSchedulerConfig{
		Enabled:           true,
		MaxConcurrentJobs: cfg.Sync.Workers,
		QueueSize:         cfg.Sync.QueueSize,
		JobTimeout:        cfg.Sync.JobTimeout,
		RetryAttempts:     cfg.Sync.RetryAttempts,
		RetryDelay:        cfg.Sync.RetryDelay,
	}, executor, log)
	if err != nil {
		log.Fatal("Invalid sync scheduler configuration", zap.Error(err))
	}
	syncScheduler.SetObserver(marketplaceMetrics)

	syncTrigger := scheduler.NewOrderSyncCronTrigger(scheduler.OrderSyncCronTriggerConfig{
		CheckInterval:       cfg.Sync.CheckInterval,
		DefaultSyncInterval: cfg.Sync.DefaultInterval,
		DefaultSyncWindow:   cfg.Sync.DefaultWindow,
		Lookback:            cfg.Sync.Lookback,
		MaxManualWindow:     cfg.Sync.MaxManualWindow,
	}, syncScheduler, channelRepo, log)

	// workers always run so manual syncs work with the periodic trigger off
	if err := syncScheduler.Start(rootCtx); err != nil {
		log.Fatal("Failed to start sync scheduler", zap.Error(err))
	}
	if cfg.Sync.Enabled {
		if err := syncTrigger.Start(rootCtx); err != nil {
			log.Fatal("Failed to start sync trigger", zap.Error(err))
		}
		log.Info("Periodic order sync enabled",
			zap.Duration("check_interval", cfg.Sync.CheckInterval),
			zap.Int("workers", cfg.Sync.Workers),
		)
	}

	// Kafka intake
	consumerCtx, stopConsumer := context.WithCancel(rootCtx)
	consumerDone := make(chan struct{})
	var consumer *messaging.NotificationConsumer
	if cfg.Kafka.Enabled {
		consumer = messaging.NewNotificationConsumer(messaging.NewKafkaReader(cfg.Kafka), dispatcher, decoder, log)
		go func() {
			defer close(consumerDone)
			if err := consumer.Run(consumerCtx); err != nil {
				log.Error("Notification consumer stopped", zap.Error(err))
			}
		}()
		log.Info("Kafka notification consumer started",
			zap.Strings("brokers", cfg.Kafka.Brokers),
			zap.String("topic", cfg.Kafka.Topic),
			zap.String("group_id", cfg.Kafka.GroupID),
		)
	} else {
		close(consumerDone)
	}

	// HTTP
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	middleware.SetupValidator()

	engine := gin.New()
	if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
		log.Fatal("Invalid trusted proxies", zap.Error(err))
	}

	httpMetrics, err := middleware.HTTPMetrics(otelProviders.Meter(meterName))
	if err != nil {
		log.Fatal("Failed to register HTTP metrics", zap.Error(err))
	}

	engine.Use(middleware.RequestID())
	engine.Use(middleware.Tracing(middleware.TracingConfig{
		ServiceName: serviceName,
		Enabled:     otelProviders.TracingEnabled(),
	}))
	engine.Use(middleware.TraceAttributes())
	engine.Use(logger.Recovery(log))
	engine.Use(logger.GinMiddleware(log))
	engine.Use(middleware.Secure())
	engine.Use(middleware.BodyLimit(cfg.HTTP.MaxBodySize))
	engine.Use(httpMetrics)
	profilingCfg := middleware.DefaultProfilingConfig()
	profilingCfg.Enabled = profiler.IsEnabled()
	engine.Use(middleware.Profiling(profilingCfg))

	jwtService := auth.NewJWTService(cfg.JWT)
	authn := middleware.JWTAuth(middleware.JWTMiddlewareConfig{
		Validator: jwtService,
		Logger:    log,
	})

	r := router.NewRouter(engine, router.WithAPIVersion("v1"))
	router.RegisterAPI(r, router.APIHandlers{
		Notifications: handler.NewNotificationHandler(dispatcher, channelRepo, decoder, log),
		Orders:        handler.NewOrderHandler(orderRepo, auditRepo),
		Sync:          handler.NewSyncHandler(syncTrigger),
		System:        handler.NewSystemHandler(cfg.App.Name, cfg.App.Version, db),
	}, authn)
	if cfg.HTTP.SwaggerEnabled {
		router.RegisterSwagger(engine)
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

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}

	stopConsumer()
	<-consumerDone
	if consumer != nil {
		if err := consumer.Close(); err != nil {
			log.Error("Error closing notification consumer", zap.Error(err))
		}
	}

	if cfg.Sync.Enabled {
		if err := syncTrigger.Stop(ctx); err != nil {
			log.Error("Error stopping sync trigger", zap.Error(err))
		}
	}
	if err := syncScheduler.Stop(ctx); err != nil {
		log.Error("Error stopping sync scheduler", zap.Error(err))
	}

	if err := store.Close(); err != nil {
		log.Error("Error closing idempotency store", zap.Error(err))
	}
	if err := db.Close(); err != nil {
		log.Error("Error closing database", zap.Error(err))
	}

	if err := profiler.Stop(); err != nil {
		log.Error("Error stopping profiler", zap.Error(err))
	}
	log.Info("Server exited gracefully")
	if err := otelProviders.Shutdown(ctx); err != nil {
		bootLog.Error("Error shutting down OpenTelemetry", zap.Error(err))
	}
}

// newDispatchChain wraps the dispatcher with delivery deduplication and, when
// configured, archiving of every received notification.
func newDispatchChain(
	ctx context.Context,
	cfg *config.Config,
	next appintegration.Dispatcher,
	store shared.IdempotencyStore,
	log *zap.Logger,
) appintegration.Dispatcher {
	dispatcher := appintegration.Dispatcher(appintegration.NewDeliveryDeduplicator(next, store, shared.IdempotencyConfig{
		TTL:     cfg.Idempotency.TTL,
		Enabled: cfg.Idempotency.Enabled,
	}, log))

	if !cfg.Archive.Enabled {
		return dispatcher
	}
	archive, err := storage.NewS3NotificationArchive(ctx, cfg.Archive, storage.WithLogger(log))
	if err != nil {
		log.Fatal("Failed to create notification archive", zap.Error(err))
	}
	if err := archive.EnsureBucket(ctx); err != nil {
		log.Warn("Notification archive bucket unavailable", zap.String("bucket", archive.Bucket()), zap.Error(err))
	}
	log.Info("Archiving notifications", zap.String("bucket", archive.Bucket()))
	return appintegration.NewArchivingDispatcher(dispatcher, archive, log)
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.Load()
	}
	return config.LoadFile(path)
}
