package main

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	apihttp "videofinder/searchservice/internal/api/http"
	"videofinder/searchservice/internal/app"
	"videofinder/searchservice/internal/domain"
	"videofinder/searchservice/internal/extract"
	"videofinder/searchservice/internal/metrics"
	"videofinder/searchservice/internal/providers/imdbapi"
	"videofinder/searchservice/internal/providers/kinopoisk"
	"videofinder/searchservice/internal/providers/omdb"
	"videofinder/searchservice/internal/resolve"
	"videofinder/searchservice/internal/search"
	"videofinder/searchservice/internal/sources"
	"videofinder/searchservice/internal/store"
	"videofinder/searchservice/internal/telemetry"
)

func main() {
	cfg := app.LoadConfig()
	logger := newLogger(cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(logger)
	metrics.Register(prometheus.DefaultRegisterer)

	shutdownTracer, err := telemetry.Init(context.Background(), "video-finder-search")
	if err != nil {
		logger.Warn("otel init failed", slog.String("error", err.Error()))
	}
	defer func() {
		if shutdownTracer != nil {
			_ = shutdownTracer(context.Background())
		}
	}()

	logger.Info("configuration loaded",
		slog.String("service", "video-finder-search"),
		slog.String("httpAddr", cfg.HTTPAddr),
		slog.String("logLevel", cfg.LogLevel),
		slog.String("logFormat", cfg.LogFormat),
		slog.Duration("requestTimeout", cfg.RequestTimeout),
		slog.String("kinopoiskEndpoint", cfg.KinopoiskEndpoint),
		slog.String("omdbEndpoint", cfg.OMDBEndpoint),
		slog.String("imdbapiEndpoint", cfg.IMDBAPIEndpoint),
		slog.Bool("hasRedis", strings.TrimSpace(cfg.RedisURL) != ""),
		slog.Duration("cacheTTL", cfg.CacheTTL),
	)

	redisClient := connectRedis(cfg, logger)
	settings := buildSettingsStore(redisClient)
	seedCredentials(cfg, settings, logger)
	seedFilterDefaults(settings, logger)

	kinopoiskClient := &http.Client{Timeout: cfg.RequestTimeout, Transport: otelhttp.NewTransport(http.DefaultTransport)}
	omdbClient := &http.Client{Timeout: cfg.RequestTimeout, Transport: otelhttp.NewTransport(http.DefaultTransport)}
	imdbapiClient := &http.Client{Timeout: cfg.RequestTimeout, Transport: otelhttp.NewTransport(http.DefaultTransport)}

	resolver := resolve.New([]resolve.Provider{
		kinopoisk.NewClient(kinopoisk.Config{
			Endpoint:  cfg.KinopoiskEndpoint,
			UserAgent: cfg.UserAgent,
			Client:    kinopoiskClient,
		}),
		omdb.NewClient(omdb.Config{
			Endpoint:  cfg.OMDBEndpoint,
			UserAgent: cfg.UserAgent,
			Client:    omdbClient,
		}),
		imdbapi.NewClient(imdbapi.Config{
			Endpoint:  cfg.IMDBAPIEndpoint,
			UserAgent: cfg.UserAgent,
			Client:    imdbapiClient,
		}),
	}, settings, resolve.WithLogger(logger))

	aggregator := sources.NewAggregator(sources.NewDemo(nil), logger)

	cacheOpts := []search.CacheOption{
		search.WithTTL(cfg.CacheTTL),
		search.WithSweepTTL(cfg.CacheSweepTTL),
		search.WithCacheLogger(logger),
	}
	if redisClient != nil {
		cacheOpts = append(cacheOpts, search.WithBackend(search.NewRedisCacheBackend(redisClient)))
	}
	cache := search.NewCache(cacheOpts...)

	searchService := search.NewService(resolver, aggregator,
		search.WithServiceLogger(logger),
		search.WithCache(cache),
	)

	extractor := extract.New(
		extract.WithHTTPClient(&http.Client{
			Timeout:   cfg.RequestTimeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		}),
		extract.WithUserAgent(cfg.UserAgent),
		extract.WithRecordTTL(cfg.ExtractTTL),
		extract.WithListener(func(rec domain.TitleRecord) {
			logger.Debug("page parsed",
				slog.String("site", rec.SourceSite),
				slog.String("title", rec.Title),
			)
		}),
	)

	handler := apihttp.NewServer(searchService,
		apihttp.WithLogger(logger),
		apihttp.WithExtractor(extractor),
		apihttp.WithSettings(settings),
	).Handler()
	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	rootCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go cache.RunSweeper(rootCtx, cfg.SweepInterval)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	logger.Info("video finder search service started",
		slog.String("addr", cfg.HTTPAddr),
		slog.Duration("timeout", cfg.RequestTimeout),
	)

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
	logger.Info("video finder search service stopped")
}

func newLogger(levelRaw, formatRaw string) *slog.Logger {
	level := parseLogLevel(levelRaw)
	options := &slog.HandlerOptions{Level: level}
	format := strings.ToLower(strings.TrimSpace(formatRaw))
	if format == "json" {
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

func connectRedis(cfg app.Config, logger *slog.Logger) *redis.Client {
	redisURL := strings.TrimSpace(cfg.RedisURL)
	if redisURL == "" {
		return nil
	}
	redisOpts, err := redis.ParseURL(redisURL)
	if err != nil {
		logger.Warn("invalid redis url, running without redis", slog.String("error", err.Error()))
		return nil
	}
	client := redis.NewClient(redisOpts)
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn("redis not reachable, running without redis", slog.String("error", err.Error()))
		return nil
	}
	logger.Info("redis connected", slog.String("addr", redisOpts.Addr))
	return client
}

func buildSettingsStore(redisClient *redis.Client) store.KeyValue {
	if redisClient != nil {
		return store.NewRedis(redisClient, "")
	}
	return store.NewMemory()
}

// seedCredentials copies API keys from the environment into the settings
// store so the resolution chain is usable on a fresh deployment.
func seedCredentials(cfg app.Config, settings store.KeyValue, logger *slog.Logger) {
	entries := map[string]string{}
	if cfg.KinopoiskAPIKey != "" {
		entries[store.APIKeyName("kinopoisk")] = cfg.KinopoiskAPIKey
	}
	if cfg.OMDBAPIKey != "" {
		entries[store.APIKeyName("omdb")] = cfg.OMDBAPIKey
	}
	if cfg.IMDBAPIKey != "" {
		entries[store.APIKeyName("imdb")] = cfg.IMDBAPIKey
	}
	if len(entries) == 0 {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := settings.Set(ctx, entries); err != nil {
		logger.Warn("failed to seed provider credentials", slog.String("error", err.Error()))
	}
}

// seedFilterDefaults writes the initial filter preferences on a fresh
// deployment. Existing values are left alone.
func seedFilterDefaults(settings store.KeyValue, logger *slog.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	values, err := settings.Get(ctx, []string{store.FilterDefaultsKey})
	if err != nil {
		logger.Warn("failed to read filter defaults", slog.String("error", err.Error()))
		return
	}
	if values[store.FilterDefaultsKey] != "" {
		return
	}

	defaults := domain.FilterSet{
		Quality:  "720",
		Dubbing:  domain.AudioOriginal,
		Language: domain.LanguageRU,
		Sources:  []string{"filmix", "hdrezka", "kinopub"},
	}
	raw, err := json.Marshal(defaults)
	if err != nil {
		return
	}
	if err := settings.Set(ctx, map[string]string{store.FilterDefaultsKey: string(raw)}); err != nil {
		logger.Warn("failed to seed filter defaults", slog.String("error", err.Error()))
	}
}
