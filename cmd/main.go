package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	_ "github.com/go-sql-driver/mysql"
	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"storefront-service/internal/api"
	"storefront-service/internal/cache"
	"storefront-service/internal/chat"
	"storefront-service/internal/config"
	"storefront-service/internal/events"
	"storefront-service/internal/llm"
	"storefront-service/internal/metrics"
	"storefront-service/internal/payment"
	"storefront-service/internal/repository"
	"storefront-service/internal/service"
	"storefront-service/internal/sharding"
	"storefront-service/internal/storage"
	"storefront-service/migrations"
)

var logger = zerolog.New(os.Stdout).With().Timestamp().Logger()

func connectDB(ctx context.Context, dsn string) (*sql.DB, error) {
	var db *sql.DB
	var err error
	for i := 0; i < 10; i++ {
		db, err = sql.Open("mysql", dsn)
		if err == nil {
			err = db.PingContext(ctx)
			if err == nil {
				logger.Info().Msg("Connected to DB")
				return db, nil
			}
		}
		logger.Warn().Err(err).Msgf("Retry %d: failed to connect to DB", i+1)
		time.Sleep(3 * time.Second)
	}
	return nil, fmt.Errorf("failed to connect to DB after retries: %w", err)
}

func main() {
	if err := godotenv.Load(); err != nil {
		logger.Info().Msg("No .env file, using process environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to load config")
	}
	if level, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		zerolog.SetGlobalLevel(level)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := connectDB(ctx, cfg.DSN())
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to connect to DB")
	}
	defer db.Close()

	if err := migrations.AutoMigrate(ctx, db, cfg.MigrationRetries); err != nil {
		logger.Fatal().Err(err).Msg("Failed to migrate tables")
	}

	rdb := redis.NewClient(&redis.Options{
		Addr: cfg.RedisAddr,
	})
	defer rdb.Close()

	kafkaWriter := config.NewKafkaWriter(cfg.Brokers(), cfg.OrderTopic)
	publisher := events.NewPublisher(kafkaWriter)
	defer publisher.Close()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	serverMetrics := metrics.NewServerMetrics("api", registry)

	// Repositories
	orderRepo := repository.NewOrderRepository(db)
	cartRepo := repository.NewCartRepository(db)
	productRepo := repository.NewProductRepository(db)
	userRepo := repository.NewUserRepository(db)
	chatRepo := repository.NewChatRepository(db)

	// Outbound adapters
	productCache := cache.NewProductCache(rdb, cfg.ProductCacheTTL)
	gateway := payment.NewStripeGateway(cfg.StripeSecretKey)
	if cfg.StripeSecretKey == "" {
		logger.Warn().Msg("STRIPE_SECRET_KEY is not set, payment endpoints will answer 502")
	}
	var model service.LanguageModel
	if cfg.OpenAIAPIKey != "" {
		model = llm.NewOpenAIClient(cfg.OpenAIAPIKey, cfg.OpenAIModel)
	} else {
		logger.Warn().Msg("OPENAI_API_KEY is not set, chat will use the fallback reply")
	}
	s3Client, err := storage.NewS3Client(ctx, cfg.AWSRegion)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to load AWS config")
	}
	objectStorage := storage.NewS3Storage(s3Client, cfg.S3Bucket, cfg.AWSRegion)

	// Services
	userService := service.NewUserService(userRepo, cfg.JWTSecret, cfg.AccessTokenTTL)
	catalogService := service.NewCatalogService(productRepo, productCache)
	cartService := service.NewCartService(cartRepo, productRepo)
	orderService := service.NewOrderService(orderRepo, gateway, publisher, cache.NewIdempotencyGuard(rdb), serverMetrics)
	chatService := service.NewChatService(chatRepo, model)
	uploadService := service.NewUploadService(objectStorage)

	hub := chat.NewHub(sharding.NewShardRouter(cfg.ChatShards))

	consumer := events.NewConsumer(config.NewKafkaReader(cfg.Brokers(), cfg.OrderTopic, "storefront-product-cache"), catalogService)
	go func() {
		if err := consumer.Run(ctx); err != nil {
			logger.Error().Err(err).Msg("Order event consumer stopped")
		}
	}()

	e := echo.New()
	e.HideBanner = true

	limiterConfig := middleware.RateLimiterConfig{
		Skipper: func(c echo.Context) bool {
			return c.Path() == "/health" || c.Path() == "/metrics"
		},
		Store: middleware.NewRateLimiterMemoryStoreWithConfig(
			middleware.RateLimiterMemoryStoreConfig{
				Rate:      rate.Limit(cfg.RateLimit),
				Burst:     cfg.RateBurst,
				ExpiresIn: 3 * time.Minute,
			}),
		IdentifierExtractor: func(context echo.Context) (string, error) {
			return context.RealIP(), nil
		},
		ErrorHandler: func(context echo.Context, err error) error {
			return context.JSON(http.StatusTooManyRequests, map[string]string{"error": "rate limit exceeded"})
		},
		DenyHandler: func(context echo.Context, identifier string, err error) error {
			return context.JSON(http.StatusTooManyRequests, map[string]string{"error": "rate limit exceeded"})
		},
	}

	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     cfg.Origins(),
		AllowHeaders:     []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization, "Idempotency-Key"},
		AllowCredentials: true,
	}))
	e.Use(middleware.BodyLimit("55M"))
	e.Use(serverMetrics.Middleware())
	e.Use(middleware.RateLimiterWithConfig(limiterConfig))

	api.RegisterRoutes(e, api.Handlers{
		Users:    api.NewUserHandler(userService),
		Products: api.NewProductHandler(catalogService),
		Cart:     api.NewCartHandler(cartService),
		Orders:   api.NewOrderHandler(orderService),
		Chat:     api.NewChatHandler(chatService, hub, cfg.Origins()),
		Upload:   api.NewUploadHandler(uploadService),
	}, cfg.JWTSecret, userService)
	e.GET("/metrics", echo.WrapHandler(metrics.Handler(registry)))

	go func() {
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("Server stopped")
		}
	}()

	<-ctx.Done()
	logger.Info().Msg("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("Error shutting down server")
	}
}
