package config

import (
	"fmt"
	"github.com/joho/godotenv"
	"os"
	"strconv"
	"time"
)

// Config holds all configuration for the application.
type Config struct {
	// Environment
	RunMode string // Set via flag, not env

	// MongoDB
	MongoURI    string
	MongoDbName string

	// Redis
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// JWT
	JwtSecret string
	JwtTTL    time.Duration

	// Server
	ApiPort string

	// Razorpay
	RazorpayKeyID         string
	RazorpayKeySecret     string
	RazorpayWebhookSecret string
	CheckoutName          string
	CheckoutThemeColor    string

	// Pricing
	Currency              string
	GSTRatePercent        float64
	BulkDiscountThreshold int
	BulkDiscountPercent   float64
	MinChargePaise        int64

	// Upload / document storage
	UploadDir          string
	AwsAccessKeyID     string
	AwsSecretAccessKey string
	AwsRegion          string
	AwsS3Bucket        string
	MaxFilesPerUpload  int
	MinFileSizeBytes   int64
	MaxFileSizeBytes   int64

	// Draft store
	DraftStorePath string

	// Reconciliation
	ReconcileWindow     time.Duration
	ReconcileSweepEvery time.Duration

	// Rate Limiting Defaults
	RateLimitBucketSize int
	RateLimitRefillRate int // tokens per second
}

// Load configuration from environment variables.
// RunMode needs to be passed in as it comes from command-line flags.
func Load(runMode string) (*Config, error) {
	// Load .env file, ignoring errors if it doesn't exist
	godotenv.Load()

	cfg := &Config{
		RunMode: runMode, // Set from flag
	}

	var err error

	// Helper function to get env var or default
	getEnv := func(key, defaultValue string) string {
		if value, exists := os.LookupEnv(key); exists {
			return value
		}
		return defaultValue
	}

	// Helper function to get required env var
	getRequiredEnv := func(key string) (string, error) {
		value, exists := os.LookupEnv(key)
		if !exists {
			return "", fmt.Errorf("missing required environment variable: %s", key)
		}
		return value, nil
	}

	cfg.MongoURI, err = getRequiredEnv("MONGO_URI")
	if err != nil {
		return nil, err
	}
	cfg.MongoDbName = getEnv("MONGO_DB_NAME", "udin")
	cfg.RedisAddr = getEnv("REDIS_ADDR", "localhost:6379")
	cfg.RedisPassword = getEnv("REDIS_PASSWORD", "")
	cfg.JwtSecret, err = getRequiredEnv("JWT_SECRET")
	if err != nil {
		return nil, err
	}
	cfg.ApiPort = getEnv("API_PORT", "8080")

	cfg.RazorpayKeyID = getEnv("RAZORPAY_KEY_ID", "")
	cfg.RazorpayKeySecret = getEnv("RAZORPAY_KEY_SECRET", "")
	cfg.RazorpayWebhookSecret = getEnv("RAZORPAY_WEBHOOK_SECRET", "")
	cfg.CheckoutName = getEnv("CHECKOUT_NAME", "UDIN Professional Services")
	cfg.CheckoutThemeColor = getEnv("CHECKOUT_THEME_COLOR", "#4f46e5")

	cfg.Currency = getEnv("CURRENCY", "INR")
	cfg.UploadDir = getEnv("UPLOAD_DIR", "uploads/documents")
	cfg.AwsAccessKeyID = getEnv("AWS_ACCESS_KEY_ID", "")
	cfg.AwsSecretAccessKey = getEnv("AWS_SECRET_ACCESS_KEY", "")
	cfg.AwsRegion = getEnv("AWS_REGION", "")
	cfg.AwsS3Bucket = getEnv("AWS_S3_BUCKET", "")
	cfg.DraftStorePath = getEnv("DRAFT_STORE_PATH", "udin_drafts.db")

	cfg.RedisDB, err = strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	jwtTTLSeconds, err := strconv.ParseInt(getEnv("JWT_TTL_SECONDS", "3600"), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid JWT_TTL_SECONDS: %w", err)
	}
	cfg.JwtTTL = time.Duration(jwtTTLSeconds) * time.Second

	cfg.GSTRatePercent, err = strconv.ParseFloat(getEnv("GST_RATE_PERCENT", "18"), 64)
	if err != nil {
		return nil, fmt.Errorf("invalid GST_RATE_PERCENT: %w", err)
	}

	cfg.BulkDiscountThreshold, err = strconv.Atoi(getEnv("BULK_DISCOUNT_THRESHOLD", "5"))
	if err != nil {
		return nil, fmt.Errorf("invalid BULK_DISCOUNT_THRESHOLD: %w", err)
	}

	cfg.BulkDiscountPercent, err = strconv.ParseFloat(getEnv("BULK_DISCOUNT_PERCENT", "10"), 64)
	if err != nil {
		return nil, fmt.Errorf("invalid BULK_DISCOUNT_PERCENT: %w", err)
	}

	cfg.MinChargePaise, err = strconv.ParseInt(getEnv("MIN_CHARGE_PAISE", "100"), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid MIN_CHARGE_PAISE: %w", err)
	}

	cfg.MaxFilesPerUpload, err = strconv.Atoi(getEnv("MAX_FILES_PER_UPLOAD", "30"))
	if err != nil {
		return nil, fmt.Errorf("invalid MAX_FILES_PER_UPLOAD: %w", err)
	}

	cfg.MinFileSizeBytes, err = strconv.ParseInt(getEnv("MIN_FILE_SIZE_BYTES", "1024"), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid MIN_FILE_SIZE_BYTES: %w", err)
	}

	cfg.MaxFileSizeBytes, err = strconv.ParseInt(getEnv("MAX_FILE_SIZE_BYTES", "52428800"), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid MAX_FILE_SIZE_BYTES: %w", err)
	}

	reconcileWindowMinutes, err := strconv.ParseInt(getEnv("RECONCILE_WINDOW_MINUTES", "60"), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid RECONCILE_WINDOW_MINUTES: %w", err)
	}
	cfg.ReconcileWindow = time.Duration(reconcileWindowMinutes) * time.Minute

	sweepEveryMinutes, err := strconv.ParseInt(getEnv("RECONCILE_SWEEP_EVERY_MINUTES", "30"), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid RECONCILE_SWEEP_EVERY_MINUTES: %w", err)
	}
	cfg.ReconcileSweepEvery = time.Duration(sweepEveryMinutes) * time.Minute

	cfg.RateLimitBucketSize, err = strconv.Atoi(getEnv("RATE_LIMIT_BUCKET_SIZE", "8"))
	if err != nil {
		return nil, fmt.Errorf("invalid RATE_LIMIT_BUCKET_SIZE: %w", err)
	}
	cfg.RateLimitRefillRate, err = strconv.Atoi(getEnv("RATE_LIMIT_REFILL_RATE", "4"))
	if err != nil {
		return nil, fmt.Errorf("invalid RATE_LIMIT_REFILL_RATE: %w", err)
	}

	return cfg, nil
}
