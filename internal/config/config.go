package config

import (
	"os"
	"strconv"
	"time"

	"goodbomb/internal/logger"

	"github.com/joho/godotenv"
)

type Config struct {
	AppPort     string
	DatabaseURL string
	JWTSecret   string

	// Redis (rate limiting); empty addr disables the limiter
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// World App credentials
	WorldAppID       string
	WorldAPIKey      string
	VerifyAction     string
	RecipientAddress string

	// DevMode skips provider round-trips for local development
	DevMode bool

	// Game rules
	RoundDuration    time.Duration
	SettleDelay      time.Duration
	PressAmountMinor int64
	WinnerShareBps   int64
	CarryShareBps    int64
	RecentPressLimit int

	// Rate limits
	APIRateLimit    int
	APIRateWindow   time.Duration
	PressRateLimit  int
	PressRateWindow time.Duration
}

// Load reads configuration from the environment (.env is honoured for local
// development). Missing required vars are fatal.
func Load() *Config {
	_ = godotenv.Load()

	cfg := &Config{
		AppPort:          getEnv("APP_PORT", "8080"),
		DatabaseURL:      os.Getenv("DATABASE_URL"),
		JWTSecret:        os.Getenv("JWT_SECRET"),
		RedisAddr:        os.Getenv("REDIS_ADDR"),
		RedisPassword:    os.Getenv("REDIS_PASSWORD"),
		RedisDB:          getEnvInt("REDIS_DB", 0),
		WorldAppID:       os.Getenv("WORLD_APP_ID"),
		WorldAPIKey:      os.Getenv("WORLD_API_KEY"),
		VerifyAction:     getEnv("WORLD_VERIFY_ACTION", "goodbomb-play"),
		RecipientAddress: os.Getenv("RECIPIENT_ADDRESS"),
		DevMode:          os.Getenv("DEV_MODE") == "true",

		RoundDuration:    getEnvDuration("ROUND_DURATION_SECONDS", 240*time.Second),
		SettleDelay:      getEnvDuration("SETTLE_DELAY_SECONDS", 3*time.Second),
		PressAmountMinor: getEnvInt64("PRESS_AMOUNT_MINOR", 100),
		WinnerShareBps:   getEnvInt64("WINNER_SHARE_BPS", 8500),
		CarryShareBps:    getEnvInt64("CARRY_SHARE_BPS", 500),
		RecentPressLimit: getEnvInt("RECENT_PRESS_LIMIT", 5),

		APIRateLimit:    getEnvInt("API_RATE_LIMIT", 60),
		APIRateWindow:   getEnvDuration("API_RATE_WINDOW_SECONDS", time.Minute),
		PressRateLimit:  getEnvInt("PRESS_RATE_LIMIT", 10),
		PressRateWindow: getEnvDuration("PRESS_RATE_WINDOW_SECONDS", time.Minute),
	}

	if cfg.DatabaseURL == "" {
		logger.Fatal("DATABASE_URL is not set")
	}
	if cfg.JWTSecret == "" {
		logger.Fatal("JWT_SECRET is not set")
	}
	if cfg.WorldAppID == "" && !cfg.DevMode {
		logger.Fatal("WORLD_APP_ID is not set (set DEV_MODE=true to run without provider credentials)")
	}
	if cfg.WinnerShareBps+cfg.CarryShareBps > 10000 {
		logger.Fatal("winner and carry shares exceed 100%")
	}

	return cfg
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return def
}

func getEnvInt64(key string, def int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil && n > 0 {
			return n
		}
	}
	return def
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return time.Duration(n) * time.Second
		}
	}
	return def
}
