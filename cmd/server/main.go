package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"simulation-server/internal/config"
	"simulation-server/internal/database"
	"simulation-server/internal/email"
	"simulation-server/internal/handler"
	"simulation-server/internal/messaging"
	"simulation-server/internal/payment/paystack"
	"simulation-server/internal/repository"
	"simulation-server/internal/scenario"
	"simulation-server/internal/service"
	sharedLogger "simulation-server/shared/logger"
	sharedMiddleware "simulation-server/shared/middleware"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	ginprometheus "github.com/zsais/go-gin-prometheus"
	"go.uber.org/zap"
)

const brandName = "TURNVE"

func main() {
	// .env используется только локально
	if err := godotenv.Load(); err != nil {
		fmt.Printf("Warning: could not load .env file: %v\n", err)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger, err := sharedLogger.New(sharedLogger.Config{
		Level:    cfg.LogLevel,
		Encoding: cfg.LogEncoding,
		Service:  "simulation-server",
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()
	zap.ReplaceGlobals(logger)

	logger.Info("Starting simulation-server",
		zap.String("port", cfg.Port),
		zap.String("scenario_source", cfg.ScenarioSource),
		zap.String("session_store", cfg.SessionStore),
		zap.String("dsn", cfg.RedactedDSN()),
	)

	ctx := context.Background()

	dbPool, err := setupPostgres(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize database", zap.Error(err))
	}
	defer dbPool.Close()

	if cfg.RunMigrations {
		if err := database.ApplyMigrations(ctx, dbPool, logger); err != nil {
			logger.Fatal("Failed to apply database migrations", zap.Error(err))
		}
	}

	redisClient, err := setupRedis(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize Redis", zap.Error(err))
	}
	defer redisClient.Close()

	rabbitConn, err := connectRabbitMQ(cfg.RabbitMQURL, logger)
	if err != nil {
		logger.Fatal("Failed to connect to RabbitMQ", zap.Error(err))
	}
	defer rabbitConn.Close()

	// --- Хранилища ---
	var source scenario.Source
	switch cfg.ScenarioSource {
	case config.ScenarioSourcePostgres:
		source = repository.NewPgScenarioRepository(dbPool, logger)
	default:
		source = scenario.NewFileLoader(cfg.ScenariosDir, logger)
	}
	scenarios := scenario.NewCachedLoader(source, logger)

	var sessionStore repository.SessionStore
	switch cfg.SessionStore {
	case config.SessionStoreRedis:
		sessionStore = repository.NewRedisSessionStore(redisClient, cfg.SessionTTL, logger)
	case config.SessionStorePostgres:
		sessionStore = repository.NewPgSessionStore(dbPool, logger)
	default:
		sessionStore = repository.NewMemorySessionStore()
	}

	txHelper := repository.NewTransactionHelper(dbPool, logger)
	paymentRepo := repository.NewPgPaymentRepository(dbPool, txHelper, logger)
	otpRepo := repository.NewRedisOTPRepository(redisClient, logger)

	// --- Внешние клиенты ---
	paystackClient := paystack.NewClient(paystack.Config{
		BaseURL:   cfg.PaystackBaseURL,
		SecretKey: cfg.PaystackSecretKey,
		Timeout:   cfg.PaystackTimeout,
	}, logger)
	mailer := email.NewMailerSendClient(email.MailerSendConfig{
		URL:         cfg.MailerSendURL,
		APIKey:      cfg.MailerSendAPIKey,
		SenderEmail: cfg.MailerSendSenderEmail,
		SenderName:  cfg.MailerSendSenderName,
	}, logger)
	renderer, err := email.NewRenderer(brandName, cfg.PlatformURL, logger)
	if err != nil {
		logger.Fatal("Failed to parse email templates", zap.Error(err))
	}

	publisher, err := messaging.NewRabbitMQEmailTaskPublisher(rabbitConn, cfg.EmailTaskQueue, logger)
	if err != nil {
		logger.Fatal("Failed to create email task publisher", zap.Error(err))
	}

	// --- Сервисы ---
	sessionManager := service.NewSessionManager(scenarios, sessionStore, publisher, logger)
	demoService := service.NewDemoService(scenarios, logger)
	paymentService := service.NewPaymentService(paystackClient, paymentRepo, publisher, service.PaymentConfig{
		WebhookSecret:    cfg.PaystackWebhookKey,
		CallbackURL:      cfg.PaystackCallbackURL,
		Currency:         cfg.PaystackCurrency,
		SubscriptionDays: cfg.SubscriptionDays,
	}, logger)
	emailService := service.NewEmailService(mailer, renderer, otpRepo, service.EmailConfig{
		PlatformURL: cfg.PlatformURL,
		OTPTTL:      cfg.OTPTTL,
	}, logger)

	// --- Воркер писем ---
	var consumer *messaging.EmailTaskConsumer
	if cfg.EmailWorkerEnabled {
		processor := messaging.NewEmailTaskProcessor(emailService, logger)
		consumer = messaging.NewEmailTaskConsumer(rabbitConn, processor, cfg.EmailTaskQueue, cfg.EmailWorkers, logger)
		go func() {
			logger.Info("Starting email task consumer...", zap.String("queue", cfg.EmailTaskQueue))
			if err := consumer.StartConsuming(); err != nil {
				logger.Error("Email task consumer stopped with error", zap.Error(err))
			}
		}()
	}

	// --- HTTP ---
	if cfg.LogLevel != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(sharedMiddleware.ZapLoggingMiddlewareForGin(logger, "/health", "/metrics"))
	router.Use(gin.Recovery())

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = cfg.CORSAllowedOrigins
	corsConfig.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "X-Request-ID", "X-Paystack-Signature"}
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	h := handler.NewHandler(handler.Deps{
		Sessions: sessionManager,
		Catalog:  scenarios,
		Demo:     demoService,
		Payments: paymentService,
		Emails:   emailService,
	}, logger)
	h.RegisterRoutes(router)

	// /metrics регистрируется после маршрутов
	p := ginprometheus.NewPrometheus("gin")
	p.Use(router)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		logger.Info("HTTP server listening", zap.String("address", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	logger.Info("Shutting down server...", zap.String("signal", sig.String()))

	if consumer != nil {
		consumer.Stop()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server exited gracefully")
}

// setupPostgres подключается к PostgreSQL с повторными попытками.
func setupPostgres(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*pgxpool.Pool, error) {
	const (
		maxRetries = 10
		retryDelay = 3 * time.Second
	)
	poolCfg := database.PoolConfig{
		DSN:         cfg.GetDSN(),
		MaxConns:    cfg.DBMaxConns,
		IdleTimeout: cfg.DBIdleTimeout,
	}

	var lastErr error
	for attempt := 1; attempt <= maxRetries; attempt++ {
		pool, err := database.NewPool(ctx, poolCfg, logger)
		if err == nil {
			logger.Info("Successfully connected to PostgreSQL", zap.Int("attempt", attempt))
			return pool, nil
		}
		lastErr = err
		logger.Warn("PostgreSQL connection failed, retrying...",
			zap.Int("attempt", attempt),
			zap.Int("max_retries", maxRetries),
			zap.Error(err),
		)
		if attempt < maxRetries {
			time.Sleep(retryDelay)
		}
	}
	return nil, fmt.Errorf("failed to connect to postgres after %d attempts: %w", maxRetries, lastErr)
}

// setupRedis создает клиент Redis и проверяет соединение.
func setupRedis(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*redis.Client, error) {
	const (
		maxRetries = 10
		retryDelay = 3 * time.Second
	)
	opts := &redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	}

	var lastErr error
	for attempt := 1; attempt <= maxRetries; attempt++ {
		client := redis.NewClient(opts)
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err := client.Ping(pingCtx).Err()
		cancel()
		if err == nil {
			logger.Info("Successfully connected to Redis", zap.String("address", opts.Addr), zap.Int("attempt", attempt))
			return client, nil
		}
		_ = client.Close()
		lastErr = err
		logger.Warn("Redis ping failed, retrying...",
			zap.Int("attempt", attempt),
			zap.Int("max_retries", maxRetries),
			zap.Error(err),
		)
		if attempt < maxRetries {
			time.Sleep(retryDelay)
		}
	}
	return nil, fmt.Errorf("failed to connect to redis after %d attempts: %w", maxRetries, lastErr)
}

// connectRabbitMQ подключается к RabbitMQ с повторными попытками.
func connectRabbitMQ(rawURL string, logger *zap.Logger) (*amqp091.Connection, error) {
	const (
		maxRetries = 5
		retryDelay = 5 * time.Second
	)
	logger.Info("Attempting to connect to RabbitMQ",
		zap.String("url", maskURL(rawURL)),
		zap.Int("max_retries", maxRetries),
	)

	var lastErr error
	for attempt := 1; attempt <= maxRetries; attempt++ {
		conn, err := amqp091.Dial(rawURL)
		if err == nil {
			logger.Info("Successfully connected to RabbitMQ", zap.Int("attempt", attempt))
			go func() {
				closeErr := <-conn.NotifyClose(make(chan *amqp091.Error, 1))
				if closeErr != nil {
					logger.Error("RabbitMQ connection closed unexpectedly", zap.Error(closeErr))
				} else {
					logger.Info("RabbitMQ connection closed")
				}
			}()
			return conn, nil
		}
		lastErr = err
		logger.Warn("RabbitMQ connection failed, retrying...",
			zap.Int("attempt", attempt),
			zap.Duration("retry_delay", retryDelay),
			zap.Error(err),
		)
		if attempt < maxRetries {
			time.Sleep(retryDelay)
		}
	}
	return nil, fmt.Errorf("failed to connect to RabbitMQ after %d attempts: %w", maxRetries, lastErr)
}

// maskURL скрывает пароль в URL для логов.
func maskURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "<invalid url>"
	}
	return u.Redacted()
}
