package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port            string
	DatabaseURL     string
	JWTSecret       string
	AllowOrigins    []string
	LogMode         string
	LogstashTCPAddr string

	OpenAIAPIKey     string
	OpenAIModel      string
	OpenAIBaseURL    string
	AIRequestTimeout time.Duration

	MapboxToken          string
	GeocodeRatePerSecond float64
	GeocodeCacheTTL      time.Duration

	RedisAddr     string
	RedisPassword string

	MinIOEndpoint          string
	MinIOAccessKey         string
	MinIOSecretKey         string
	MinIOUseSSL            bool
	MinIOBucketGenerations string

	DefaultNightlyPrice float64
}

func Load() Config {
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: .env file not found: %v", err)
	}

	return Config{
		Port:            getenv("PORT", "8080"),
		DatabaseURL:     must("DATABASE_URL"),
		JWTSecret:       must("JWT_SECRET"),
		AllowOrigins:    splitAndTrim(getenv("ALLOW_ORIGINS", "*")),
		LogMode:         getenv("LOG_MODE", "prod"),
		LogstashTCPAddr: getenv("LOGSTASH_TCP_ADDR", ""),

		OpenAIAPIKey:     must("OPENAI_API_KEY"),
		OpenAIModel:      getenv("OPENAI_MODEL", ""),
		OpenAIBaseURL:    getenv("OPENAI_BASE_URL", ""),
		AIRequestTimeout: getDuration("AI_REQUEST_TIMEOUT", 90*time.Second),

		MapboxToken:          getenv("MAPBOX_TOKEN", ""),
		GeocodeRatePerSecond: getFloat("GEOCODE_RATE_PER_SECOND", 5),
		GeocodeCacheTTL:      getDuration("GEOCODE_CACHE_TTL", 7*24*time.Hour),

		RedisAddr:     getenv("REDIS_ADDR", ""),
		RedisPassword: getenv("REDIS_PASSWORD", ""),

		MinIOEndpoint:          getenv("MINIO_ENDPOINT", ""),
		MinIOAccessKey:         getenv("MINIO_ACCESS_KEY", ""),
		MinIOSecretKey:         getenv("MINIO_SECRET_KEY", ""),
		MinIOUseSSL:            getenv("MINIO_USE_SSL", "false") == "true",
		MinIOBucketGenerations: getenv("MINIO_BUCKET_GENERATIONS", "copytrip-generations"),

		DefaultNightlyPrice: getFloat("DEFAULT_NIGHTLY_PRICE", 1200),
	}
}

func splitAndTrim(input string) []string {
	parts := strings.Split(input, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		trimmed := strings.TrimSpace(p)
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	if len(out) == 0 {
		return []string{"*"}
	}
	return out
}

func getenv(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

func getDuration(k string, d time.Duration) time.Duration {
	if v, err := time.ParseDuration(getenv(k, "")); err == nil && v > 0 {
		return v
	}
	return d
}

func getFloat(k string, d float64) float64 {
	if v, err := strconv.ParseFloat(getenv(k, ""), 64); err == nil && v > 0 {
		return v
	}
	return d
}

func must(k string) string {
	v := os.Getenv(k)
	if v == "" {
		panic("missing env: " + k)
	}
	return v
}
