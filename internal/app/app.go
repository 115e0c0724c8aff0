package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/khojhub/shop-service/internal/auth"
	"github.com/khojhub/shop-service/internal/cache"
	"github.com/khojhub/shop-service/internal/config"
	"github.com/khojhub/shop-service/internal/event"
	handler "github.com/khojhub/shop-service/internal/handler/http"
	"github.com/khojhub/shop-service/internal/repository/postgres"
	"github.com/khojhub/shop-service/internal/service"
	"github.com/khojhub/shop-service/migrations"
	"github.com/khojhub/shop-service/pkg/database"
	"github.com/khojhub/shop-service/pkg/health"
	pkgkafka "github.com/khojhub/shop-service/pkg/kafka"
	"github.com/khojhub/shop-service/pkg/middleware"
	"github.com/khojhub/shop-service/pkg/tracing"
)

// App wires together all dependencies and runs the shop service.
type App struct {
	cfg            *config.Config
	logger         *slog.Logger
	pool           *pgxpool.Pool
	redisClient    *redis.Client
	producer       *pkgkafka.Producer
	consumer       *pkgkafka.Consumer
	httpServer     *http.Server
	tracerShutdown func(context.Context) error
}

// NewApp creates a new application instance, initializing all dependencies.
func NewApp(cfg *config.Config, logger *slog.Logger) (*App, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Initialize OpenTelemetry tracing.
	tracerShutdown, err := tracing.InitTracer(ctx, tracing.Config{
		ServiceName:    "shop",
		ServiceVersion: "0.1.0",
		Environment:    cfg.Environment,
		OTLPEndpoint:   cfg.OTELEndpoint,
		SampleRate:     cfg.OTELSampleRate,
		Enabled:        cfg.OTELEnabled,
	})
	if err != nil {
		return nil, fmt.Errorf("init tracer: %w", err)
	}

	// Initialize PostgreSQL connection pool.
	pgCfg := database.PostgresConfig{
		Host:            cfg.PostgresHost,
		Port:            cfg.PostgresPort,
		User:            cfg.PostgresUser,
		Password:        cfg.PostgresPass,
		DBName:          cfg.PostgresDB,
		SSLMode:         cfg.PostgresSSL,
		MaxConns:        cfg.DBMaxConns,
		MinConns:        cfg.DBMinConns,
		MaxConnLifetime: time.Duration(cfg.DBMaxConnLifetimeMins) * time.Minute,
		MaxConnIdleTime: time.Duration(cfg.DBMaxConnIdleTimeMins) * time.Minute,
	}

	pool, err := database.NewPostgresPool(ctx, &pgCfg)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	logger.Info("connected to PostgreSQL",
		slog.String("host", cfg.PostgresHost),
		slog.Int("port", cfg.PostgresPort),
		slog.String("database", cfg.PostgresDB),
	)
	database.RegisterPoolMetrics(pool, "shop")

	// Run database migrations.
	if err := database.RunMigrations(ctx, pool, migrations.FS, logger); err != nil {
		pool.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	logger.Info("database migrations completed")

	// Configure slow query logging.
	if cfg.SlowQueryThresholdMs > 0 {
		database.SetSlowQueryLogging(time.Duration(cfg.SlowQueryThresholdMs)*time.Millisecond, logger)
	}

	// Initialize Redis for the search cache. The cache is optional: if Redis
	// is unreachable the service starts without it and search goes straight
	// to PostgreSQL.
	var redisClient *redis.Client
	var searchCache *cache.SearchCache
	if !cfg.SearchCacheOff {
		redisClient, err = database.NewRedisClient(ctx, database.RedisConfig{
			Host:     cfg.RedisHost,
			Port:     cfg.RedisPort,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err != nil {
			logger.Warn("redis unavailable, search cache disabled",
				slog.String("addr", cfg.RedisAddr()),
				slog.String("error", err.Error()),
			)
			redisClient = nil
		} else {
			searchCache = cache.NewSearchCache(redisClient, cfg.SearchCacheTTL, logger)
			logger.Info("search cache initialized",
				slog.String("addr", cfg.RedisAddr()),
				slog.Duration("ttl", cfg.SearchCacheTTL),
			)
		}
	}

	// Initialize Kafka producer.
	kafkaCfg := pkgkafka.DefaultProducerConfig(cfg.KafkaBrokers)
	producer := pkgkafka.NewProducer(kafkaCfg, logger)
	logger.Info("kafka producer initialized", slog.Any("brokers", cfg.KafkaBrokers))

	// Build the dependency graph.
	verifier := auth.NewVerifier(cfg.JWTSecret)
	shopRepo := postgres.NewShopRepository(pool)
	reviewRepo := postgres.NewReviewRepository(pool)
	productRepo := postgres.NewProductRepository(pool)
	categoryRepo := postgres.NewCategoryRepository(pool)
	ratingLedger := postgres.NewRatingLedger(pool, logger)
	eventProducer := event.NewProducer(producer, logger)

	shopService := service.NewShopService(shopRepo, productRepo, reviewRepo, eventProducer, logger)
	discoveryService := service.NewDiscoveryService(shopRepo, searchCache, logger)
	reviewService := service.NewReviewService(reviewRepo, shopRepo, ratingLedger, eventProducer, logger)
	productService := service.NewProductService(productRepo, shopRepo, logger)
	categoryService := service.NewCategoryService(categoryRepo, logger)

	// Reconciliation consumer: re-runs the product deactivation cascade for
	// deleted shops, catching cascades that failed inline.
	eventConsumer := event.NewConsumer(productRepo, logger)
	consumer := pkgkafka.NewConsumer(pkgkafka.ConsumerConfig{
		Brokers:  cfg.KafkaBrokers,
		GroupID:  cfg.KafkaConsumerGroup,
		Topic:    event.TopicShopDeleted,
		MinBytes: 1,
		MaxBytes: 10e6, // 10 MB
	}, eventConsumer.Handle, logger)

	// Health checks.
	healthHandler := health.NewHandler()
	healthHandler.RegisterCritical("postgres", func(ctx context.Context) error {
		return pool.Ping(ctx)
	})
	healthHandler.RegisterNonCritical("kafka", func(ctx context.Context) error {
		return producer.Ping(ctx)
	})
	if searchCache != nil {
		healthHandler.RegisterNonCritical("redis", searchCache.Ping)
	}

	// HTTP router.
	router := handler.NewRouter(handler.RouterConfig{
		Shops:      shopService,
		Discovery:  discoveryService,
		Reviews:    reviewService,
		Products:   productService,
		Categories: categoryService,
		Verifier:   verifier,
		Health:     healthHandler,
		Logger:     logger,
		CORS: middleware.CORSConfig{
			AllowedOrigins: cfg.CORSAllowedOrigins,
			Environment:    cfg.Environment,
		},
		PprofCIDRs:  cfg.PprofAllowedCIDRs,
		ServiceName: "shop",
	})

	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           router,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return &App{
		cfg:            cfg,
		logger:         logger,
		pool:           pool,
		redisClient:    redisClient,
		producer:       producer,
		consumer:       consumer,
		httpServer:     httpServer,
		tracerShutdown: tracerShutdown,
	}, nil
}

// Run starts the HTTP server and the reconciliation consumer, blocking until
// the context is canceled.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 2)

	go func() {
		if err := a.consumer.Start(ctx); err != nil {
			errCh <- fmt.Errorf("kafka consumer: %w", err)
		}
	}()

	go func() {
		a.logger.Info("starting HTTP server",
			slog.String("addr", a.httpServer.Addr),
		)
		if err := a.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		a.logger.Info("shutdown signal received")
	case err := <-errCh:
		return err
	}

	return a.Shutdown()
}

// Shutdown gracefully stops all components in the correct order:
// 1. HTTP server (drain in-flight requests)
// 2. Tracer (flush pending spans from drained requests)
// 3. Kafka consumer and producer
// 4. Redis client and PostgreSQL pool
func (a *App) Shutdown() error {
	a.logger.Info("shutting down application...")

	var errs []error

	// 1. Drain in-flight HTTP requests (5s budget).
	httpCtx, httpCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer httpCancel()
	if err := a.httpServer.Shutdown(httpCtx); err != nil {
		a.logger.Error("http server shutdown error", slog.String("error", err.Error()))
		errs = append(errs, err)
	}

	// 2. Flush pending spans after HTTP drain so in-flight request spans are captured.
	if a.tracerShutdown != nil {
		tracerCtx, tracerCancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer tracerCancel()
		if err := a.tracerShutdown(tracerCtx); err != nil {
			a.logger.Error("tracer shutdown error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}

	// 3. Close Kafka consumer and producer.
	if err := a.consumer.Close(); err != nil {
		a.logger.Error("kafka consumer close error", slog.String("error", err.Error()))
		errs = append(errs, err)
	}
	if err := a.producer.Close(); err != nil {
		a.logger.Error("kafka producer close error", slog.String("error", err.Error()))
		errs = append(errs, err)
	}

	// 4. Close Redis client and PostgreSQL pool.
	if a.redisClient != nil {
		if err := a.redisClient.Close(); err != nil {
			a.logger.Error("redis close error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}
	a.pool.Close()

	a.logger.Info("application shutdown complete")
	return errors.Join(errs...)
}
