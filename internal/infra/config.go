package infra

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	StoreDriverPostgres = "postgres"
	StoreDriverSQLite   = "sqlite"
)

// Config represents application configuration loaded from environment variables.
type Config struct {
	AppEnv      string
	Port        string
	StoreDriver string
	DatabaseURL string
	SQLitePath  string
	RedisURL    string
	JobCacheTTL time.Duration

	ServiceToken       string
	TelegramBotToken   string
	TelegramAuthMaxAge time.Duration
	AllowedOrigins     []string

	RendererAPIKey     string
	RendererBaseURL    string
	RendererModel      string
	RendererAPIVersion string
	RendererTimeout    time.Duration

	VideoMaxWait          time.Duration
	VideoPollInterval     time.Duration
	VideoPriceTiers       string
	VoucherPrefixes       []string
	RefundOnSubmitFailure bool

	TrackerSweepInterval time.Duration
	TrackerBatchSize     int

	HTTPReadTimeout  time.Duration
	HTTPWriteTimeout time.Duration
	HTTPIdleTimeout  time.Duration
	RateLimitPerMin  int
}

// LoadConfig loads configuration from environment variables and applies defaults where needed.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		AppEnv:      getEnv("APP_ENV", "development"),
		Port:        getEnv("PORT", "8080"),
		StoreDriver: strings.ToLower(getEnv("STORE_DRIVER", StoreDriverPostgres)),
		DatabaseURL: os.Getenv("DATABASE_URL"),
		SQLitePath:  getEnv("SQLITE_PATH", "./data/mrwiat.db"),
		RedisURL:    os.Getenv("REDIS_URL"),
		JobCacheTTL: time.Second * time.Duration(getEnvInt("JOB_CACHE_TTL_SECONDS", 24*60*60)),

		ServiceToken:       strings.TrimSpace(os.Getenv("SERVICE_TOKEN")),
		TelegramBotToken:   strings.TrimSpace(os.Getenv("TELEGRAM_BOT_TOKEN")),
		TelegramAuthMaxAge: time.Second * time.Duration(getEnvInt("TELEGRAM_AUTH_MAX_AGE_SECONDS", 24*60*60)),
		AllowedOrigins:     splitList(getEnv("CORS_ALLOWED_ORIGINS", "https://mrwiat.com,https://www.mrwiat.com")),

		RendererAPIKey:     strings.TrimSpace(os.Getenv("RENDERER_API_KEY")),
		RendererBaseURL:    getEnv("RENDERER_BASE_URL", "https://api.dev.runwayml.com"),
		RendererModel:      getEnv("RENDERER_MODEL", "veo3.1_fast"),
		RendererAPIVersion: getEnv("RENDERER_API_VERSION", "2024-11-06"),
		RendererTimeout:    time.Second * time.Duration(getEnvInt("RENDERER_TIMEOUT_SECONDS", 30)),

		VideoMaxWait:          time.Second * time.Duration(getEnvInt("VIDEO_MAX_WAIT_SECONDS", 60)),
		VideoPollInterval:     time.Second * time.Duration(getEnvInt("VIDEO_POLL_INTERVAL_SECONDS", 6)),
		VideoPriceTiers:       getEnv("VIDEO_PRICE_TIERS", "5:30,10:60,15:85,*:110"),
		VoucherPrefixes:       splitList(getEnv("VOUCHER_PREFIXES", "SALLA-,MRW-")),
		RefundOnSubmitFailure: getEnvBool("REFUND_ON_SUBMIT_FAILURE", false),

		TrackerSweepInterval: time.Second * time.Duration(getEnvInt("TRACKER_SWEEP_INTERVAL_SECONDS", 30)),
		TrackerBatchSize:     getEnvInt("TRACKER_BATCH_SIZE", 20),

		HTTPReadTimeout:  time.Second * time.Duration(getEnvInt("HTTP_READ_TIMEOUT_SECONDS", 15)),
		HTTPWriteTimeout: time.Second * time.Duration(getEnvInt("HTTP_WRITE_TIMEOUT_SECONDS", 30)),
		HTTPIdleTimeout:  time.Second * time.Duration(getEnvInt("HTTP_IDLE_TIMEOUT_SECONDS", 60)),
		RateLimitPerMin:  getEnvInt("RATE_LIMIT_PER_MINUTE", 30),
	}

	switch cfg.StoreDriver {
	case StoreDriverPostgres:
		if cfg.DatabaseURL == "" {
			return nil, fmt.Errorf("DATABASE_URL is required")
		}
	case StoreDriverSQLite:
		if cfg.SQLitePath == "" {
			return nil, fmt.Errorf("SQLITE_PATH is required")
		}
	default:
		return nil, fmt.Errorf("unsupported STORE_DRIVER %q", cfg.StoreDriver)
	}

	if cfg.VideoPollInterval <= 0 {
		return nil, fmt.Errorf("VIDEO_POLL_INTERVAL_SECONDS must be positive")
	}

	return cfg, nil
}

// RequireAuth validates that the API has at least one way to authenticate accounts.
func (c *Config) RequireAuth() error {
	if c.ServiceToken == "" && c.TelegramBotToken == "" {
		return fmt.Errorf("SERVICE_TOKEN or TELEGRAM_BOT_TOKEN is required")
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if b, err := strconv.ParseBool(strings.TrimSpace(v)); err == nil {
			return b
		}
	}
	return fallback
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
