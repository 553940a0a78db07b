package main

import (
	"context"
	"errors"
	"fmt"
	nethttp "net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap/zapcore"

	"github.com/smlier739/copytrip-backend-sub000/internal/config"
	"github.com/smlier739/copytrip-backend-sub000/internal/logging"
	"github.com/smlier739/copytrip-backend-sub000/internal/repository/cache"
	miniorepo "github.com/smlier739/copytrip-backend-sub000/internal/repository/minio"
	"github.com/smlier739/copytrip-backend-sub000/internal/repository/ports"
	"github.com/smlier739/copytrip-backend-sub000/internal/repository/postgres"
	"github.com/smlier739/copytrip-backend-sub000/internal/service"
	"github.com/smlier739/copytrip-backend-sub000/internal/transport/http"
	"github.com/smlier739/copytrip-backend-sub000/internal/transport/mapbox"
	"github.com/smlier739/copytrip-backend-sub000/internal/transport/openai"
	"github.com/smlier739/copytrip-backend-sub000/internal/util"
)

const (
	tokenTTL        = 24 * time.Hour
	shutdownTimeout = 15 * time.Second
)

func main() {
	cfg := config.Load()

	var sink zapcore.WriteSyncer
	if cfg.LogstashTCPAddr != "" {
		writer, err := logging.NewLogstashWriter(cfg.LogstashTCPAddr)
		if err != nil {
			fmt.Fprintf(os.Stderr, "logstash sink disabled: %v\n", err)
		} else {
			defer writer.Close()
			sink = writer
		}
	}
	log, err := logging.New(cfg.LogMode, sink)
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	db, err := postgres.New(cfg.DatabaseURL)
	if err != nil {
		log.Fatal("connect postgres", "error", err)
	}
	defer db.Close()
	tripRepo := postgres.NewTripRepo(db)

	geocodeCache := newCache(cfg, log)

	var storage ports.ObjectStorage
	if cfg.MinIOEndpoint != "" {
		client, err := miniorepo.NewClient(cfg.MinIOEndpoint, cfg.MinIOAccessKey, cfg.MinIOSecretKey, cfg.MinIOUseSSL)
		if err != nil {
			log.Warn("minio disabled", "error", err)
		} else {
			storage = miniorepo.NewStorage(client)
		}
	}

	var geocoder ports.Geocoder
	if cfg.MapboxToken != "" {
		geocoder = mapbox.NewGeocoder(mapbox.Config{
			Token:         cfg.MapboxToken,
			RatePerSecond: cfg.GeocodeRatePerSecond,
		})
	} else {
		log.Info("geocoding disabled, MAPBOX_TOKEN not set")
	}

	generator := openai.NewGenerator(openai.Config{
		APIKey:  cfg.OpenAIAPIKey,
		Model:   cfg.OpenAIModel,
		BaseURL: cfg.OpenAIBaseURL,
		Timeout: cfg.AIRequestTimeout,
	})

	episodeTrips := service.NewEpisodeTripService(tripRepo, generator, geocoder, geocodeCache, storage, log, service.EpisodeTripServiceConfig{
		ArchiveBucket:       cfg.MinIOBucketGenerations,
		GeocodeCacheTTL:     cfg.GeocodeCacheTTL,
		DefaultNightlyPrice: cfg.DefaultNightlyPrice,
		// two generator attempts plus geocoding and the insert
		GenerationTimeout:   2*cfg.AIRequestTimeout + 30*time.Second,
	})
	trips := service.NewTripService(tripRepo, episodeTrips, log, cfg.DefaultNightlyPrice)
	tokens := util.NewJWTManager(cfg.JWTSecret, tokenTTL)

	e := http.NewRouter(cfg.AllowOrigins, log)
	http.RegisterSwagger(e)
	http.RegisterTrips(e, tokens, trips, log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		log.Info("http server starting", "port", cfg.Port)
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, nethttp.ErrServerClosed) {
			log.Fatal("http server", "error", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error("http shutdown", "error", err)
	}
}

// newCache prefers Redis so geocode results are shared between instances.
func newCache(cfg config.Config, log *logging.Logger) ports.Cache {
	if cfg.RedisAddr == "" {
		return cache.NewMemory(cfg.GeocodeCacheTTL, time.Hour)
	}
	client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword})
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		log.Warn("redis unreachable, using in-process cache", "addr", cfg.RedisAddr, "error", err)
		_ = client.Close()
		return cache.NewMemory(cfg.GeocodeCacheTTL, time.Hour)
	}
	return cache.NewRedis(client, "copytrip:")
}
