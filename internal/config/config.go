package config

import (
	"sync"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

var dotenvOnce sync.Once

type Config struct {
	// Common
	Env      string
	LogLevel string
	// API
	Port           string
	DatabaseURL    string
	JWTSecret      string
	WriteRateLimit string
	RequestTimeout time.Duration
	// Exchange rate
	RateProvider    string
	RateSourceURL   string
	ExchangeAPIBase string
	ExchangeAPIKey  string
	RateTTL         time.Duration
	RateFallback    float64
	RateCoalesce    bool
	// Pricing
	PriceDeltaRate float64
	PriceFixedFee  float64
	// Payment gateway
	PaymentGatewayBase string
	ShopID             string
	SecretKey          string
	// Worker
	WorkerPoll      time.Duration
	WorkerBatchSize int
	RecheckAfter    time.Duration
	// Redis (idempotency)
	IdempotencyBackend string
	RedisAddr          string
	RedisPassword      string
	RedisDB            int
	RedisTTL           time.Duration
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", "local")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("PORT", "8080")
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("JWT_SECRET", "")
	v.SetDefault("WRITE_RATE_LIMIT", "30-M")
	v.SetDefault("REQUEST_TIMEOUT_MS", 3000)
	v.SetDefault("RATE_PROVIDER", "cbr")
	v.SetDefault("RATE_SOURCE_URL", "https://www.cbr-xml-daily.ru/daily_json.js")
	v.SetDefault("EXCHANGE_API_BASE", "https://api.exchangeratesapi.io")
	v.SetDefault("EXCHANGE_API_KEY", "")
	v.SetDefault("RATE_TTL_MS", 600000)
	v.SetDefault("RATE_FALLBACK", 84.0)
	v.SetDefault("RATE_COALESCE", false)
	v.SetDefault("PRICE_DELTA_RATE", 4.0)
	v.SetDefault("PRICE_FIXED_FEE", 750.0)
	v.SetDefault("PAYMENT_GATEWAY_BASE", "https://api.yookassa.ru")
	v.SetDefault("YOOKASSA_SHOP_ID", "")
	v.SetDefault("YOOKASSA_SECRET_KEY", "")
	v.SetDefault("WORKER_POLL_MS", 5000)
	v.SetDefault("WORKER_BATCH_LIMIT", 10)
	v.SetDefault("RECHECK_AFTER_MS", 30000)
	v.SetDefault("IDEMPOTENCY_BACKEND", "redis")
	v.SetDefault("REDIS_ADDR", "localhost:6379")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("IDEMPOTENCY_TTL_MS", 86400000)
}

func ms(v *viper.Viper, key string) time.Duration {
	return time.Duration(v.GetInt64(key)) * time.Millisecond
}

// Load reads a .env file once, then environment variables, then defaults.
// Variables already set in the environment win over .env.
func Load() Config {
	dotenvOnce.Do(func() { _ = godotenv.Load() })

	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	return Config{
		Env:                v.GetString("ENV"),
		LogLevel:           v.GetString("LOG_LEVEL"),
		Port:               v.GetString("PORT"),
		DatabaseURL:        v.GetString("DATABASE_URL"),
		JWTSecret:          v.GetString("JWT_SECRET"),
		WriteRateLimit:     v.GetString("WRITE_RATE_LIMIT"),
		RequestTimeout:     ms(v, "REQUEST_TIMEOUT_MS"),
		RateProvider:       v.GetString("RATE_PROVIDER"),
		RateSourceURL:      v.GetString("RATE_SOURCE_URL"),
		ExchangeAPIBase:    v.GetString("EXCHANGE_API_BASE"),
		ExchangeAPIKey:     v.GetString("EXCHANGE_API_KEY"),
		RateTTL:            ms(v, "RATE_TTL_MS"),
		RateFallback:       v.GetFloat64("RATE_FALLBACK"),
		RateCoalesce:       v.GetBool("RATE_COALESCE"),
		PriceDeltaRate:     v.GetFloat64("PRICE_DELTA_RATE"),
		PriceFixedFee:      v.GetFloat64("PRICE_FIXED_FEE"),
		PaymentGatewayBase: v.GetString("PAYMENT_GATEWAY_BASE"),
		ShopID:             v.GetString("YOOKASSA_SHOP_ID"),
		SecretKey:          v.GetString("YOOKASSA_SECRET_KEY"),
		WorkerPoll:         ms(v, "WORKER_POLL_MS"),
		WorkerBatchSize:    v.GetInt("WORKER_BATCH_LIMIT"),
		RecheckAfter:       ms(v, "RECHECK_AFTER_MS"),
		IdempotencyBackend: v.GetString("IDEMPOTENCY_BACKEND"),
		RedisAddr:          v.GetString("REDIS_ADDR"),
		RedisPassword:      v.GetString("REDIS_PASSWORD"),
		RedisDB:            v.GetInt("REDIS_DB"),
		RedisTTL:           ms(v, "IDEMPOTENCY_TTL_MS"),
	}
}
