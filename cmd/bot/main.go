package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	apihttp "cinegram/internal/api/http"
	"cinegram/internal/app"
	"cinegram/internal/bot"
	"cinegram/internal/fanout"
	"cinegram/internal/metrics"
	"cinegram/internal/providers/tmdb"
	"cinegram/internal/providers/youtube"
	"cinegram/internal/registry"
	"cinegram/internal/resolver"
	"cinegram/internal/telemetry"
)

// version is stamped at build time via -ldflags "-X main.version=...".
var version = "dev"

func main() {
	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Error("configuration invalid", slog.String("error", err.Error()))
		os.Exit(1)
	}
	logger := newLogger(cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(logger)
	metrics.Register(prometheus.DefaultRegisterer)

	shutdownTracer, err := telemetry.Init(context.Background(), telemetry.Options{
		ServiceName:    "cinegram",
		ServiceVersion: version,
		Endpoint:       cfg.OTLPEndpoint,
	})
	if err != nil {
		logger.Warn("otel init failed", slog.String("error", err.Error()))
	}
	defer func() {
		if shutdownTracer != nil {
			_ = shutdownTracer(context.Background())
		}
	}()

	logger.Info("configuration loaded",
		slog.String("service", "cinegram"),
		slog.String("httpAddr", cfg.HTTPAddr),
		slog.Duration("requestTimeout", cfg.RequestTimeout),
		slog.Duration("fanoutInterval", cfg.FanoutInterval),
		slog.Int("fanoutConcurrency", cfg.FanoutConcurrency),
		slog.Bool("hasYouTubeKey", cfg.YouTubeAPIKey != ""),
		slog.Bool("hasRedis", strings.TrimSpace(cfg.RedisURL) != ""),
		slog.Bool("hasAnnounceChannel", cfg.AnnounceChannelID != 0),
		slog.Duration("messageTTL", cfg.MessageTTL),
		slog.Bool("langFilterStrict", cfg.LangFilterStrict),
	)

	tmdbClient := tmdb.NewClient(tmdb.Config{
		APIKey:   cfg.TMDBAPIKey,
		BaseURL:  cfg.TMDBBaseURL,
		Client:   &http.Client{Timeout: cfg.RequestTimeout, Transport: otelhttp.NewTransport(http.DefaultTransport)},
		Redis:    buildRedisClient(cfg, logger),
		CacheTTL: cfg.TMDBCacheTTL,
	})

	youtubeClient := youtube.NewClient(youtube.Config{
		APIKey: cfg.YouTubeAPIKey,
		Client: &http.Client{Timeout: cfg.RequestTimeout, Transport: otelhttp.NewTransport(http.DefaultTransport)},
	})
	if !youtubeClient.Enabled() {
		logger.Info("youtube api key not configured, trailer fallback disabled")
	}

	api, err := tgbotapi.NewBotAPI(cfg.BotToken)
	if err != nil {
		logger.Error("telegram auth failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	subs := registry.New()
	movieResolver := resolver.New(tmdbClient,
		resolver.WithTrailerProvider(youtubeClient),
		resolver.WithStrictLanguage(cfg.LangFilterStrict),
		resolver.WithLogger(logger),
	)

	chatBot := bot.New(bot.Config{
		API:        api,
		Resolver:   movieResolver,
		Discovery:  tmdbClient,
		Subs:       subs,
		Timeout:    cfg.RequestTimeout + 5*time.Second,
		MessageTTL: cfg.MessageTTL,
		Logger:     logger,
	})

	loop := fanout.NewLoop(fanout.Config{
		Feed:        tmdbClient,
		Sender:      chatBot,
		Registry:    subs,
		Interval:    cfg.FanoutInterval,
		Timeout:     2 * cfg.RequestTimeout,
		Concurrency: cfg.FanoutConcurrency,
		SendRate:    cfg.SendRatePerSecond,
		ChannelID:   cfg.AnnounceChannelID,
		Logger:      logger,
	})

	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           apihttp.NewServer(botStats{subs: subs, loop: loop}, logger).Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	rootCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go loop.Run(rootCtx)
	go bot.Run(rootCtx, api, chatBot)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	logger.Info("cinegram started", slog.String("addr", cfg.HTTPAddr))

	select {
	case <-rootCtx.Done():
		logger.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn("shutdown error", slog.String("error", err.Error()))
	}
	logger.Info("cinegram stopped")
}

type botStats struct {
	subs *registry.Registry
	loop *fanout.Loop
}

func (s botStats) SubscriberCount() int { return s.subs.Len() }
func (s botStats) SeenCount() int       { return s.loop.SeenCount() }

func newLogger(levelRaw, formatRaw string) *slog.Logger {
	level := parseLogLevel(levelRaw)
	options := &slog.HandlerOptions{Level: level}
	if strings.ToLower(strings.TrimSpace(formatRaw)) == "json" {
		return slog.New(slog.NewJSONHandler(os.Stdout, options))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, options))
}

func parseLogLevel(raw string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func buildRedisClient(cfg app.Config, logger *slog.Logger) *redis.Client {
	redisURL := strings.TrimSpace(cfg.RedisURL)
	if redisURL == "" {
		return nil
	}
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		logger.Warn("invalid redis url, tmdb cache disabled", slog.String("error", err.Error()))
		return nil
	}
	client := redis.NewClient(opts)
	pingCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		logger.Warn("redis not reachable, tmdb cache disabled", slog.String("error", err.Error()))
		return nil
	}
	logger.Info("redis connected", slog.String("addr", opts.Addr))
	return client
}
