package app

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	BotToken          string
	TMDBAPIKey        string
	TMDBBaseURL       string
	YouTubeAPIKey     string
	AnnounceChannelID int64
	HTTPAddr          string
	RequestTimeout    time.Duration
	FanoutInterval    time.Duration
	FanoutConcurrency int
	SendRatePerSecond float64
	MessageTTL        time.Duration
	LangFilterStrict  bool
	RedisURL          string
	OTLPEndpoint      string
	TMDBCacheTTL      time.Duration
	LogLevel          string
	LogFormat         string
}

var (
	ErrMissingBotToken = errors.New("BOT_TOKEN is required")
	ErrMissingTMDBKey  = errors.New("TMDB_API_KEY is required")
)

// LoadConfig reads configuration from the environment. Missing required
// credentials are a startup-fatal condition for the caller; every optional
// value falls back to a usable default or disables its feature.
func LoadConfig() (Config, error) {
	cfg := Config{
		BotToken:          strings.TrimSpace(os.Getenv("BOT_TOKEN")),
		TMDBAPIKey:        strings.TrimSpace(os.Getenv("TMDB_API_KEY")),
		TMDBBaseURL:       getEnv("TMDB_BASE_URL", "https://api.themoviedb.org/3"),
		YouTubeAPIKey:     strings.TrimSpace(os.Getenv("YOUTUBE_API_KEY")),
		AnnounceChannelID: getEnvInt64("CHANNEL_ID", 0),
		HTTPAddr:          getEnv("HTTP_ADDR", ":8085"),
		RequestTimeout:    time.Duration(getEnvInt("REQUEST_TIMEOUT_SECONDS", 10)) * time.Second,
		FanoutInterval:    getEnvDuration("FANOUT_INTERVAL", 6*time.Hour),
		FanoutConcurrency: getEnvInt("FANOUT_CONCURRENCY", 8),
		SendRatePerSecond: getEnvFloat("SEND_RATE_PER_SECOND", 25),
		MessageTTL:        time.Duration(getEnvInt("MESSAGE_TTL_SECONDS", 0)) * time.Second,
		LangFilterStrict:  getEnvBool("LANG_FILTER_STRICT", false),
		RedisURL:          getEnv("REDIS_URL", ""),
		OTLPEndpoint:      getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
		TMDBCacheTTL:      time.Duration(getEnvInt("TMDB_CACHE_TTL_HOURS", 24)) * time.Hour,
		LogLevel:          strings.ToLower(getEnv("LOG_LEVEL", "info")),
		LogFormat:         strings.ToLower(getEnv("LOG_FORMAT", "text")),
	}
	if cfg.BotToken == "" {
		return Config{}, ErrMissingBotToken
	}
	if cfg.TMDBAPIKey == "" {
		return Config{}, ErrMissingTMDBKey
	}
	return cfg, nil
}

func getEnv(key, fallback string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	return value
}

func getEnvInt(key string, fallback int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(raw)
	if err != nil || parsed < 0 {
		return fallback
	}
	return parsed
}

func getEnvInt64(key string, fallback int64) int64 {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	parsed, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvFloat(key string, fallback float64) float64 {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	parsed, err := strconv.ParseFloat(raw, 64)
	if err != nil || parsed <= 0 {
		return fallback
	}
	return parsed
}

func getEnvBool(key string, fallback bool) bool {
	raw := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	if raw == "" {
		return fallback
	}
	switch raw {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}

// getEnvDuration accepts Go duration syntax ("90m", "6h"); a bare integer is
// read as hours to match the original deployment's habit.
func getEnvDuration(key string, fallback time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	if parsed, err := time.ParseDuration(raw); err == nil && parsed > 0 {
		return parsed
	}
	if hours, err := strconv.Atoi(raw); err == nil && hours > 0 {
		return time.Duration(hours) * time.Hour
	}
	return fallback
}
