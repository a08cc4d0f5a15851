// Package app holds process-level configuration loaded from the
// environment.
package app

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	HTTPAddr          string
	RequestTimeout    time.Duration
	LogLevel          string
	LogFormat         string
	UserAgent         string
	KinopoiskEndpoint string
	OMDBEndpoint      string
	IMDBAPIEndpoint   string
	RedisURL          string
	CacheTTL          time.Duration
	CacheSweepTTL     time.Duration
	SweepInterval     time.Duration
	ExtractTTL        time.Duration
	// Credentials seeded into the settings store at startup so a fresh
	// deployment works without a manual settings call.
	KinopoiskAPIKey string
	OMDBAPIKey      string
	IMDBAPIKey      string
}

func LoadConfig() Config {
	return Config{
		HTTPAddr:          getEnv("HTTP_ADDR", ":8090"),
		RequestTimeout:    time.Duration(getEnvInt("SEARCH_TIMEOUT_SECONDS", 15)) * time.Second,
		LogLevel:          strings.ToLower(getEnv("LOG_LEVEL", "info")),
		LogFormat:         strings.ToLower(getEnv("LOG_FORMAT", "text")),
		UserAgent:         getEnv("SEARCH_USER_AGENT", "videofinder-search/1.0"),
		KinopoiskEndpoint: getEnv("PROVIDER_KINOPOISK_ENDPOINT", "https://api.kinopoisk.dev/v1.2/movie/search"),
		OMDBEndpoint:      getEnv("PROVIDER_OMDB_ENDPOINT", "https://www.omdbapi.com/"),
		IMDBAPIEndpoint:   getEnv("PROVIDER_IMDBAPI_ENDPOINT", "https://imdb-api.com/API/Search"),
		RedisURL:          getEnv("REDIS_URL", ""),
		CacheTTL:          time.Duration(getEnvInt("SEARCH_CACHE_TTL_SECONDS", 300)) * time.Second,
		CacheSweepTTL:     time.Duration(getEnvInt("SEARCH_CACHE_SWEEP_TTL_SECONDS", 3600)) * time.Second,
		SweepInterval:     time.Duration(getEnvInt("SEARCH_CACHE_SWEEP_INTERVAL_SECONDS", 3600)) * time.Second,
		ExtractTTL:        time.Duration(getEnvInt("EXTRACT_CACHE_TTL_SECONDS", 120)) * time.Second,
		KinopoiskAPIKey:   strings.TrimSpace(os.Getenv("KINOPOISK_API_KEY")),
		OMDBAPIKey:        strings.TrimSpace(os.Getenv("OMDB_API_KEY")),
		IMDBAPIKey:        strings.TrimSpace(os.Getenv("IMDB_API_KEY")),
	}
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
	if err != nil || parsed <= 0 {
		return fallback
	}
	return parsed
}
