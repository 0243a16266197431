package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	awspkg "github.com/yashrajoria/tailoring-backend/pkg/aws"
	"github.com/yashrajoria/tailoring-backend/services/common/logger"
	commonmw "github.com/yashrajoria/tailoring-backend/services/common/middleware"
	"github.com/yashrajoria/tailoring-backend/services/payment-service/config"
	"github.com/yashrajoria/tailoring-backend/services/payment-service/controllers"
	"github.com/yashrajoria/tailoring-backend/services/payment-service/database"
	"github.com/yashrajoria/tailoring-backend/services/payment-service/providers"
	"github.com/yashrajoria/tailoring-backend/services/payment-service/repository"
	"github.com/yashrajoria/tailoring-backend/services/payment-service/routes"
	"github.com/yashrajoria/tailoring-backend/services/payment-service/services"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	serviceName = "payment-service"
	cartTTL     = 30 * 24 * time.Hour
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// AWS clients
	awsCfg, awsErr := awspkg.LoadAWSConfig(ctx)

	var cloudWatch *awspkg.LogWriter
	if awsErr == nil && cfg.CloudWatchEnabled {
		if cloudWatch, err = awspkg.NewLogWriter(ctx, awsCfg, cfg.CloudWatchLogGroup, serviceName); err != nil {
			log.Printf("CloudWatch logging disabled: %v", err)
			cloudWatch = nil
		}
	}

	var appLogger *zap.Logger
	if cloudWatch != nil {
		appLogger, err = logger.New(cfg.Env, cloudWatch)
	} else {
		appLogger, err = logger.New(cfg.Env, nil)
	}
	if err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}
	defer appLogger.Sync() //nolint:errcheck

	var (
		metricsClient *awspkg.MetricsClient
		notifier      services.OrderCreatedNotifier
		failures      *services.FailureReporter
	)
	if awsErr != nil {
		appLogger.Warn("AWS config unavailable, SNS, SQS and metrics disabled", zap.Error(awsErr))
	} else {
		metricsClient = awspkg.NewMetricsClient(awsCfg, cfg.CloudWatchNamespace, cfg.CloudWatchEnabled)
		if cfg.OrderSNSTopicARN != "" {
			notifier = services.NewOrderNotifier(awspkg.NewSNSClient(awsCfg), cfg.OrderSNSTopicARN, metricsClient, appLogger)
		}
		if cfg.ReconciliationQueueURL != "" {
			failures = services.NewFailureReporter(awspkg.NewSQSSender(awsCfg, cfg.ReconciliationQueueURL), appLogger)
		}
	}
	if notifier == nil {
		notifier = services.NewOrderNotifier(nil, "", metricsClient, appLogger)
	}

	db, err := database.ConnectPostgres(ctx, cfg, appLogger)
	if err != nil {
		appLogger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer database.Close(db) //nolint:errcheck
	if err := database.Migrate(db); err != nil {
		appLogger.Fatal("Failed to migrate schema", zap.Error(err))
	}

	redisClient, err := database.NewRedisClient(ctx, cfg)
	if err != nil {
		appLogger.Fatal("Failed to connect to Redis", zap.Error(err))
	}
	defer redisClient.Close() //nolint:errcheck

	// Repositories
	orderRepo := repository.NewGormOrderRepository(db)
	measurementRepo := repository.NewGormMeasurementRepository(db)
	cartRepo := repository.NewCartRepository(redisClient, cartTTL)

	// Measurement providers
	registry := providers.NewRegistry(providers.NewManualProvider(cfg.MeasurementEntryBaseURL))
	if cfg.AutomatedCaptureURL != "" {
		auto := providers.NewAutomatedProvider(cfg.AutomatedCaptureURL, cfg.AutomatedCaptureAPIKey, cfg.MeasurementEntryBaseURL)
		registry[auto.Name()] = auto
	}

	// Services
	fees := services.FeeSchedule{RateBps: cfg.PlatformFeeBps}
	stripeSvc := services.NewStripeService(cfg.StripeSecretKey, cfg.StripeWebhookKey, cfg.WebhookTolerance)
	binder := services.NewMeasurementBinder(measurementRepo, appLogger)
	// Domain counters leave the request path; the HTTP middleware below does
	// the same for its own metrics.
	domainMetrics := services.NewAsyncMetrics(metricsClient, 5*time.Second)
	fanout := services.NewOrderFanout(orderRepo, binder, fees, domainMetrics, appLogger)

	processor := services.NewWebhookProcessor(services.WebhookDeps{
		Verifier: stripeSvc,
		Fanout:   fanout,
		Orders:   orderRepo,
		Carts:    services.NewCartClearer(cartRepo, appLogger),
		Notifier: notifier,
		Failures: failures,
		Fees:     fees,
		Metrics:  domainMetrics,
		Logger:   appLogger,
	})
	checkoutService := services.NewCheckoutService(cartRepo, stripeSvc, fees, services.CheckoutSettings{
		Currency:   cfg.DefaultCurrency,
		SuccessURL: cfg.CheckoutSuccessURL,
		CancelURL:  cfg.CheckoutCancelURL,
	}, domainMetrics, appLogger)
	measurementService := services.NewMeasurementService(measurementRepo, registry, appLogger)
	orderService := services.NewOrderQueryService(orderRepo)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(commonmw.RequestLogger(appLogger))
	r.Use(commonmw.Metrics(metricsClient, serviceName))

	// 30-second request timeout
	r.Use(func(c *gin.Context) {
		reqCtx, cancel := context.WithTimeout(c.Request.Context(), 30*time.Second)
		defer cancel()
		c.Request = c.Request.WithContext(reqCtx)
		c.Next()
	})

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy", "service": serviceName})
	})

	readLimiter := commonmw.NewRateLimiter(ctx, rate.Limit(float64(cfg.ReadRateLimitPerMinute)/60), cfg.ReadRateLimitBurst, 10*time.Minute)
	routes.RegisterRoutes(r, routes.Controllers{
		Webhook:     controllers.NewWebhookController(processor, appLogger),
		Checkout:    controllers.NewCheckoutController(checkoutService),
		Measurement: controllers.NewMeasurementController(measurementService),
		Order:       controllers.NewOrderController(orderService),
	}, readLimiter)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLogger.Fatal("Server failed", zap.Error(err))
		}
	}()

	appLogger.Info("Payment service started", zap.String("port", cfg.Port), zap.Int64("platform_fee_bps", cfg.PlatformFeeBps))
	<-ctx.Done()
	appLogger.Info("Shutting down payment service...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLogger.Error("Server forced to shutdown", zap.Error(err))
	}
	domainMetrics.Wait()
	appLogger.Info("Server exited cleanly")
}
