package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	appsettlement "github.com/erp/settlement/internal/application/settlement"
	"github.com/erp/settlement/internal/domain/shared"
	"github.com/erp/settlement/internal/infrastructure/audit"
	"github.com/erp/settlement/internal/infrastructure/auth"
	"github.com/erp/settlement/internal/infrastructure/cache"
	"github.com/erp/settlement/internal/infrastructure/config"
	"github.com/erp/settlement/internal/infrastructure/logger"
	"github.com/erp/settlement/internal/infrastructure/persistence"
	"github.com/erp/settlement/internal/infrastructure/storage"
	"github.com/erp/settlement/internal/infrastructure/telemetry"
	"github.com/erp/settlement/internal/interfaces/http/handler"
	"github.com/erp/settlement/internal/interfaces/http/middleware"
	"github.com/erp/settlement/internal/interfaces/http/router"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

//	@title			Settlement API
//	@version		1.0
//	@description	Payables, receivables, payments and their allocations, with monthly period locking.

//	@BasePath	/api/v1

//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				Bearer token authentication. Format: "Bearer {token}"

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger
	log, err := logger.New(logger.FromConfig(cfg.Log))
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = log.Sync()
	}()

	log.Info("Starting settlement service",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
		zap.String("version", cfg.App.Version),
	)

	ctx := context.Background()

	// Export logs to the collector alongside the local output
	logsProvider, err := telemetry.NewLoggerProvider(ctx, telemetry.LogsConfig{
		Enabled:           cfg.Telemetry.LogsEnabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ServiceName:       cfg.Telemetry.ServiceName,
		ServiceVersion:    cfg.App.Version,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize logs exporter", zap.Error(err))
	}
	log = logsProvider.Bridge(log)

	// Tracing, metrics and profiling. Each is a no-op when disabled.
	tracerProvider, err := telemetry.NewTracerProvider(ctx, telemetry.Config{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		ServiceName:       cfg.Telemetry.ServiceName,
		ServiceVersion:    cfg.App.Version,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize tracer", zap.Error(err))
	}
	meterProvider, err := telemetry.NewMeterProvider(ctx, telemetry.MetricsConfig{
		Enabled:           cfg.Telemetry.MetricsEnabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ExportInterval:    cfg.Telemetry.MetricsInterval,
		ServiceName:       cfg.Telemetry.ServiceName,
		ServiceVersion:    cfg.App.Version,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize metrics", zap.Error(err))
	}
	profiler, err := telemetry.NewProfiler(telemetry.ProfilerConfig{
		Enabled:         cfg.Telemetry.ProfilingEnabled,
		ServerAddress:   cfg.Telemetry.ProfilingServerAddress,
		ApplicationName: cfg.Telemetry.ServiceName,
		ProfileTypes:    cfg.Telemetry.ProfilingTypes,
	}, log)
	if err != nil {
		log.Fatal("Failed to start profiler", zap.Error(err))
	}
	if profiler.IsEnabled() {
		tracerProvider.EnableSpanProfiles()
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
		defer cancel()
		if err := tracerProvider.Shutdown(shutdownCtx); err != nil {
			log.Error("Error shutting down tracer", zap.Error(err))
		}
		if err := meterProvider.Shutdown(shutdownCtx); err != nil {
			log.Error("Error shutting down metrics", zap.Error(err))
		}
		if err := profiler.Stop(); err != nil {
			log.Error("Error stopping profiler", zap.Error(err))
		}
		if err := logsProvider.Shutdown(shutdownCtx); err != nil {
			log.Error("Error shutting down logs exporter", zap.Error(err))
		}
	}()

	// Database
	dbTracing := telemetry.DefaultDBTracingConfig()
	dbTracing.Enabled = cfg.Telemetry.DBTraceEnabled
	dbTracing.LogFullSQL = cfg.Telemetry.DBLogFullSQL
	dbTracing.SlowQueryThresh = cfg.Telemetry.DBSlowQueryThresh
	db, err := persistence.NewDatabase(&cfg.Database, persistence.Options{
		Logger:  log,
		Log:     cfg.Log,
		Tracing: dbTracing,
	})
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	log.Info("Database connected successfully")

	readiness := map[string]handler.Pinger{
		"database": handler.PingFunc(func(context.Context) error { return db.Ping() }),
	}

	// Redis backs number sequences, the audit stream and token revocation when enabled
	var redisClient *redis.Client
	if cfg.Redis.Enabled {
		redisClient, err = cache.NewRedisClient(cfg.Redis)
		if err != nil {
			log.Fatal("Failed to connect to Redis", zap.Error(err))
		}
		defer func() {
			if err := redisClient.Close(); err != nil {
				log.Error("Error closing Redis", zap.Error(err))
			}
		}()
		readiness["redis"] = handler.PingFunc(func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		})
		log.Info("Redis connected", zap.String("addr", cfg.Redis.Addr()))
	}

	auditSinks := []appsettlement.AuditSink{audit.NewLogSink(log)}
	if cfg.Settlement.AuditRedisEnabled {
		auditSinks = append(auditSinks,
			audit.NewRedisStreamSink(redisClient, cfg.Settlement.AuditRedisStream, cfg.Settlement.AuditStreamMaxLen))
	}
	if cfg.Settlement.AuditArchiveEnabled {
		objectStore, err := storage.NewS3ObjectStorage(&cfg.Storage, storage.WithLogger(log))
		if err != nil {
			log.Fatal("Failed to configure object storage", zap.Error(err))
		}
		if err := objectStore.EnsureBucket(ctx); err != nil {
			log.Fatal("Failed to prepare audit archive bucket", zap.Error(err))
		}
		auditSinks = append(auditSinks, audit.NewArchiveSink(objectStore, cfg.Settlement.AuditArchivePrefix))
		log.Info("Audit archive enabled", zap.String("bucket", objectStore.Bucket()))
	}

	var sequences appsettlement.SequenceGenerator
	if cfg.Settlement.SequenceBackend == config.SequenceBackendRedis {
		sequences = cache.NewRedisSequenceGenerator(redisClient, persistence.NewSequenceFloor(db.DB),
			cache.WithSequenceLogger(log))
	}

	settlementMetrics, err := telemetry.NewSettlementMetrics(meterProvider.Meter("settlement"))
	if err != nil {
		log.Fatal("Failed to create settlement metrics", zap.Error(err))
	}

	engineSvc := appsettlement.NewEngine(appsettlement.Options{
		Scope:     persistence.NewGormTransactionScope(db.DB),
		Sequences: sequences,
		Audit:     audit.NewMultiSink(log, auditSinks...),
		Clock:     appsettlement.SystemClock{},
		Metrics:   settlementMetrics,
		Logger:    log,
		Retry: appsettlement.RetryPolicy{
			Attempts:  cfg.Settlement.NumberRetryAttempts,
			BaseDelay: cfg.Settlement.NumberRetryBaseDelay,
		},
	})
	log.Info("Settlement engine ready",
		zap.String("sequence_backend", cfg.Settlement.SequenceBackend),
		zap.Int("audit_sinks", len(auditSinks)),
	)

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

	corsConfig := middleware.DefaultCORSConfig()
	if len(cfg.HTTP.CORSAllowOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.HTTP.CORSAllowOrigins
	}

	// Apply middleware stack in order:
	// 1. RequestID - Generate/propagate request ID
	// 2. Logger - Request logging with request ID
	// 3. Recovery - Panic recovery
	// 4. Secure, CORS, BodyLimit
	// 5. Tracing - server span, then error status on the span
	// 6. Metrics
	engine.Use(
		middleware.RequestID(),
		logger.GinMiddleware(log),
		logger.Recovery(log),
		middleware.Secure(),
		middleware.CORSWithConfig(corsConfig),
		middleware.BodyLimit(cfg.HTTP.MaxBodySize),
		middleware.TracingWithConfig(middleware.TracingConfig{
			ServiceName: cfg.Telemetry.ServiceName,
			Enabled:     cfg.Telemetry.Enabled,
		}),
		middleware.SpanErrorMarker(),
		middleware.HTTPMetricsWithMeter(meterProvider.Meter("http")),
	)

	// Authentication. Revocation is checked against Redis when it is available.
	jwtConfig := middleware.DefaultJWTConfig(auth.NewJWTService(cfg.JWT))
	jwtConfig.Logger = log
	if redisClient != nil {
		jwtConfig.Revocations = auth.NewRedisTokenBlacklist(redisClient)
	}

	// Retried POSTs replay their first response. Redis shares keys and
	// rate limit windows across instances.
	var redisBackend redis.Cmdable
	if redisClient != nil {
		redisBackend = redisClient
	}
	idempotencyStore := cache.NewIdempotencyStore(redisBackend, log)
	defer func() {
		_ = idempotencyStore.Close()
	}()

	var rateLimiter shared.RateLimiter
	if cfg.HTTP.RateLimitEnabled {
		rateLimiter = cache.NewRateLimiter(redisBackend, cfg.HTTP.RateLimitRequests, cfg.HTTP.RateLimitWindow, log)
	}

	profilingConfig := middleware.DefaultProfilingConfig()
	profilingConfig.Enabled = cfg.Telemetry.ProfilingEnabled

	r := router.NewRouter(engine, router.WithMiddleware(
		middleware.JWTAuthMiddlewareWithConfig(jwtConfig),
		middleware.Company(middleware.CompanyConfig{
			AllowHeader: cfg.HTTP.CompanyHeader,
			Logger:      log,
		}),
		middleware.RateLimit(middleware.RateLimitConfig{
			Limiter: rateLimiter,
			Logger:  log,
		}),
		middleware.Idempotency(middleware.IdempotencyConfig{
			Store: idempotencyStore,
			Config: shared.IdempotencyConfig{
				Enabled: cfg.HTTP.IdempotencyEnabled,
				TTL:     cfg.HTTP.IdempotencyTTL,
			},
			Logger: log,
		}),
		middleware.TracingAttributeInjector(),
		middleware.ProfilingWithConfig(profilingConfig),
	))

	permissions := middleware.PermissionConfig{Logger: log}
	groups := router.SettlementGroups(router.Handlers{
		Periods:     handler.NewPeriodHandler(engineSvc.Periods),
		Documents:   handler.NewDocumentHandler(engineSvc.Documents, engineSvc.Allocations),
		Payments:    handler.NewPaymentHandler(engineSvc.Payments, engineSvc.Allocations),
		Allocations: handler.NewAllocationHandler(engineSvc.Allocations),
		Directory:   handler.NewDirectoryHandler(engineSvc.Directory),
	},
		middleware.RequireMethodPermission(permissions),
		middleware.RequireAnyPermission(permissions, middleware.PermissionPeriod),
	)
	for _, g := range groups {
		r.Register(g)
	}
	r.Setup()

	if cfg.Swagger.Enabled {
		guards := []gin.HandlerFunc{middleware.IPAllowlist(cfg.Swagger.AllowedIPs)}
		if cfg.Swagger.RequireAuth {
			guards = append(guards, middleware.JWTAuthMiddlewareWithConfig(jwtConfig))
		}
		router.RegisterSwagger(engine, guards...)
		log.Info("Swagger UI enabled", zap.Bool("require_auth", cfg.Swagger.RequireAuth))
	}

	// Probes sit outside the authenticated API group
	systemHandler := handler.NewSystemHandler(cfg.App.Name, cfg.App.Version, readiness)
	engine.GET("/health", systemHandler.Health)
	engine.GET("/ready", systemHandler.Ready)

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

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
		return
	}

	log.Info("Server exited gracefully")
}
