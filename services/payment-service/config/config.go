package config

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	aws_pkg "github.com/yashrajoria/tailoring-backend/pkg/aws"
)

type Config struct {
	Env  string
	Port string

	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresHost     string
	PostgresPort     string
	PostgresSSLMode  string
	PostgresTimeZone string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	StripeSecretKey  string
	StripeWebhookKey string
	WebhookTolerance time.Duration

	PlatformFeeBps     int64 // 1000 = 10%
	DefaultCurrency    string
	CheckoutSuccessURL string
	CheckoutCancelURL  string

	OrderSNSTopicARN       string
	ReconciliationQueueURL string
	CloudWatchEnabled      bool
	CloudWatchLogGroup     string
	CloudWatchNamespace    string

	MeasurementEntryBaseURL string
	AutomatedCaptureURL     string
	AutomatedCaptureAPIKey  string

	ReadRateLimitPerMinute int
	ReadRateLimitBurst     int
}

// LoadConfig reads the environment (after an optional .env file) and, when
// AWS_USE_SECRETS=true, overrides credentials from Secrets Manager.
func LoadConfig() (*Config, error) {
	_ = godotenv.Load()

	cfg, err := fromEnv()
	if err != nil {
		return nil, err
	}

	if os.Getenv("AWS_USE_SECRETS") == "true" {
		ctx := context.Background()
		awsCfg, err := aws_pkg.LoadAWSConfig(ctx)
		if err != nil {
			return nil, err
		}
		if err := ApplySecrets(ctx, cfg, aws_pkg.NewSecretsClient(awsCfg)); err != nil {
			return nil, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func fromEnv() (*Config, error) {
	cfg := &Config{
		Env:                     getEnv("APP_ENV", "development"),
		Port:                    getEnv("PORT", "8087"),
		PostgresUser:            os.Getenv("POSTGRES_USER"),
		PostgresPassword:        os.Getenv("POSTGRES_PASSWORD"),
		PostgresDB:              os.Getenv("POSTGRES_DB"),
		PostgresHost:            os.Getenv("POSTGRES_HOST"),
		PostgresPort:            getEnv("POSTGRES_PORT", "5432"),
		PostgresSSLMode:         getEnv("POSTGRES_SSLMODE", "disable"),
		PostgresTimeZone:        getEnv("POSTGRES_TIMEZONE", "UTC"),
		RedisAddr:               getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:           os.Getenv("REDIS_PASSWORD"),
		StripeSecretKey:         os.Getenv("STRIPE_API_KEY"),
		StripeWebhookKey:        os.Getenv("STRIPE_WEBHOOK_SECRET"),
		DefaultCurrency:         getEnv("DEFAULT_CURRENCY", "usd"),
		CheckoutSuccessURL:      getEnv("CHECKOUT_SUCCESS_URL", "http://localhost:3000/checkout/success?session_id={CHECKOUT_SESSION_ID}"),
		CheckoutCancelURL:       getEnv("CHECKOUT_CANCEL_URL", "http://localhost:3000/cart"),
		OrderSNSTopicARN:        os.Getenv("ORDER_SNS_TOPIC_ARN"),
		ReconciliationQueueURL:  os.Getenv("RECONCILIATION_QUEUE_URL"),
		CloudWatchEnabled:       os.Getenv("CLOUDWATCH_ENABLED") == "true",
		CloudWatchLogGroup:      os.Getenv("CLOUDWATCH_LOG_GROUP"),
		CloudWatchNamespace:     os.Getenv("CLOUDWATCH_NAMESPACE"),
		MeasurementEntryBaseURL: getEnv("MEASUREMENT_ENTRY_BASE_URL", "http://localhost:3000"),
		AutomatedCaptureURL:     os.Getenv("AUTOMATED_CAPTURE_URL"),
		AutomatedCaptureAPIKey:  os.Getenv("AUTOMATED_CAPTURE_API_KEY"),
	}

	var err error
	if cfg.RedisDB, err = getEnvInt("REDIS_DB", 0); err != nil {
		return nil, err
	}
	if cfg.ReadRateLimitPerMinute, err = getEnvInt("READ_RATE_LIMIT_PER_MINUTE", 120); err != nil {
		return nil, err
	}
	if cfg.ReadRateLimitBurst, err = getEnvInt("READ_RATE_LIMIT_BURST", 30); err != nil {
		return nil, err
	}

	bps, err := getEnvInt("PLATFORM_FEE_BPS", 1000)
	if err != nil {
		return nil, err
	}
	cfg.PlatformFeeBps = int64(bps)

	tolerance, err := getEnvInt("STRIPE_WEBHOOK_TOLERANCE_SECONDS", 300)
	if err != nil {
		return nil, err
	}
	cfg.WebhookTolerance = time.Duration(tolerance) * time.Second

	return cfg, nil
}

// ApplySecrets overrides database and Stripe credentials with the values
// stored under payment/DB_CREDENTIALS and payment/STRIPE.
func ApplySecrets(ctx context.Context, cfg *Config, sm aws_pkg.SecretGetter) error {
	db, err := aws_pkg.GetSecretMap(ctx, sm, "payment/DB_CREDENTIALS")
	if err != nil {
		return fmt.Errorf("failed to load db credentials: %w", err)
	}
	override(&cfg.PostgresUser, db["POSTGRES_USER"])
	override(&cfg.PostgresPassword, db["POSTGRES_PASSWORD"])
	override(&cfg.PostgresDB, db["POSTGRES_DB"])
	override(&cfg.PostgresHost, db["POSTGRES_HOST"])
	override(&cfg.PostgresPort, db["POSTGRES_PORT"])

	stripeSecrets, err := aws_pkg.GetSecretMap(ctx, sm, "payment/STRIPE")
	if err != nil {
		return fmt.Errorf("failed to load stripe secrets: %w", err)
	}
	override(&cfg.StripeSecretKey, stripeSecrets["STRIPE_API_KEY"])
	override(&cfg.StripeWebhookKey, stripeSecrets["STRIPE_WEBHOOK_SECRET"])
	return nil
}

// Validate checks the settings the service cannot start without.
func (c *Config) Validate() error {
	if c.PostgresUser == "" || c.PostgresPassword == "" || c.PostgresDB == "" || c.PostgresHost == "" {
		return fmt.Errorf("database config incomplete")
	}
	if c.StripeSecretKey == "" || c.StripeWebhookKey == "" {
		return fmt.Errorf("STRIPE_API_KEY and STRIPE_WEBHOOK_SECRET are required")
	}
	if c.PlatformFeeBps < 0 || c.PlatformFeeBps > 10000 {
		return fmt.Errorf("PLATFORM_FEE_BPS must be between 0 and 10000, got %d", c.PlatformFeeBps)
	}
	if c.WebhookTolerance <= 0 {
		return fmt.Errorf("STRIPE_WEBHOOK_TOLERANCE_SECONDS must be positive")
	}
	return nil
}

func override(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int) (int, error) {
	val := os.Getenv(key)
	if val == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer: %w", key, err)
	}
	return n, nil
}
