package service

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/smlier739/copytrip-backend-sub000/internal/domain"
	"github.com/smlier739/copytrip-backend-sub000/internal/logging"
	"github.com/smlier739/copytrip-backend-sub000/internal/normalize"
	"github.com/smlier739/copytrip-backend-sub000/internal/repository/ports"
)

type EpisodeTripServiceConfig struct {
	// ArchiveBucket receives the raw model output. Archiving is skipped when empty.
	ArchiveBucket       string
	GeocodeCacheTTL     time.Duration
	GeocodeConcurrency  int
	DefaultNightlyPrice float64
	// GenerationTimeout bounds one shared generation, independent of the caller
	// that started it.
	GenerationTimeout   time.Duration
}

const (
	defaultGeocodeConcurrency = 4
	defaultGeocodeCacheTTL    = 7 * 24 * time.Hour
	defaultGenerationTimeout  = 3 * time.Minute
)

// EpisodeTripService owns the canonical trip of each (episode, user) pair. The
// row is generated once and reused by every later request.
type EpisodeTripService struct {
	trips     ports.TripRepository
	generator ports.TripGenerator
	geocoder  ports.Geocoder
	cache     ports.Cache
	storage   ports.ObjectStorage
	log       *logging.Logger

	bucket             string
	geocodeTTL         time.Duration
	geocodeConcurrency int
	nightlyPrice       float64
	generationTimeout  time.Duration

	group singleflight.Group
	now   func() time.Time
}

// NewEpisodeTripService wires the resolver. geocoder, cache and storage are
// optional and may be nil.
func NewEpisodeTripService(
	trips ports.TripRepository,
	generator ports.TripGenerator,
	geocoder ports.Geocoder,
	cache ports.Cache,
	storage ports.ObjectStorage,
	log *logging.Logger,
	cfg EpisodeTripServiceConfig,
) *EpisodeTripService {
	if log == nil {
		log = logging.NewNop()
	}
	concurrency := cfg.GeocodeConcurrency
	if concurrency <= 0 {
		concurrency = defaultGeocodeConcurrency
	}
	ttl := cfg.GeocodeCacheTTL
	if ttl <= 0 {
		ttl = defaultGeocodeCacheTTL
	}
	generationTimeout := cfg.GenerationTimeout
	if generationTimeout <= 0 {
		generationTimeout = defaultGenerationTimeout
	}
	return &EpisodeTripService{
		trips:              trips,
		generator:          generator,
		geocoder:           geocoder,
		cache:              cache,
		storage:            storage,
		log:                log,
		bucket:             strings.TrimSpace(cfg.ArchiveBucket),
		geocodeTTL:         ttl,
		geocodeConcurrency: concurrency,
		nightlyPrice:       cfg.DefaultNightlyPrice,
		generationTimeout:  generationTimeout,
		now:                time.Now,
	}
}

func (s *EpisodeTripService) SetClock(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// EnsureTripForEpisode returns the canonical trip for the pair, generating and
// storing it on first use. Repeated calls return the same row without calling the
// generator again.
func (s *EpisodeTripService) EnsureTripForEpisode(ctx context.Context, episode domain.Episode, userID uuid.UUID) (*domain.Trip, error) {
	episode.ID = strings.TrimSpace(episode.ID)
	if episode.ID == "" {
		return nil, ErrEpisodeRequired
	}

	existing, err := s.findCanonical(ctx, userID, episode.ID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	// The flight outlives the caller that started it; every waiter still gives up
	// on its own context.
	key := episode.ID + "|" + userID.String()
	ch := s.group.DoChan(key, func() (any, error) {
		flightCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.generationTimeout)
		defer cancel()

		// A flight that finished just before this one started already stored the row.
		existing, err := s.findCanonical(flightCtx, userID, episode.ID)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			return existing, nil
		}
		return s.generate(flightCtx, episode, userID)
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		if res.Shared {
			s.log.Debug("episode trip generation shared", "episode_id", episode.ID, "user_id", userID)
		}
		trip := *res.Val.(*domain.Trip)
		return &trip, nil
	}
}

// FindCanonicalTrip looks the row up without generating it. A missing row is
// reported as nil, nil.
func (s *EpisodeTripService) FindCanonicalTrip(ctx context.Context, userID uuid.UUID, episodeID string) (*domain.Trip, error) {
	return s.findCanonical(ctx, userID, strings.TrimSpace(episodeID))
}

func (s *EpisodeTripService) findCanonical(ctx context.Context, userID uuid.UUID, episodeID string) (*domain.Trip, error) {
	if episodeID == "" {
		return nil, nil
	}
	trip, err := s.trips.FindCanonical(ctx, userID, episodeID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return trip, nil
}

func (s *EpisodeTripService) generate(ctx context.Context, episode domain.Episode, userID uuid.UUID) (*domain.Trip, error) {
	started := s.now()
	raw, err := s.generator.GenerateEpisodeTrip(ctx, episode)
	if err != nil {
		s.log.Error("episode trip generation failed", "episode_id", episode.ID, "user_id", userID, "error", err)
		return nil, fmt.Errorf("%w: %w", ErrTripGeneration, err)
	}
	s.archive(ctx, episode.ID, userID, raw, started)

	trip := normalize.NormalizeTripStructure(raw, normalize.Options{
		FallbackTitle:       episode.Name,
		FallbackDescription: episode.Description,
		DefaultNightlyPrice: s.nightlyPrice,
	})
	if len(trip.Stops) == 0 {
		s.log.Warn("episode trip rejected without stops", "episode_id", episode.ID, "user_id", userID)
		return nil, ErrEpisodeTripNoStops
	}
	trip.Stops = s.geocodeStops(ctx, trip.Stops)

	trip.UserID = userID
	episodeID := episode.ID
	trip.SourceEpisodeID = &episodeID
	if link, ok := normalize.SanitizeURL(episode.ExternalURL); ok {
		trip.EpisodeURL = &link
	}

	stored, err := s.trips.InsertCanonical(ctx, &trip)
	if err != nil {
		return nil, fmt.Errorf("store canonical trip: %w", err)
	}
	s.log.Info("episode trip generated",
		"episode_id", episode.ID,
		"user_id", userID,
		"trip_id", stored.ID,
		"stops", len(stored.Stops),
		"took", s.now().Sub(started).String(),
	)
	return stored, nil
}

// archive keeps the raw model output for later inspection. Failures are logged only.
func (s *EpisodeTripService) archive(ctx context.Context, episodeID string, userID uuid.UUID, raw string, at time.Time) {
	if s.storage == nil || s.bucket == "" || raw == "" {
		return
	}
	object := archiveObjectName(episodeID, userID, at)
	if _, err := s.storage.Upload(ctx, s.bucket, object, "text/plain; charset=utf-8", bytes.NewReader([]byte(raw)), int64(len(raw))); err != nil {
		s.log.Warn("archive episode trip output failed", "object", object, "error", err)
	}
}

func archiveObjectName(episodeID string, userID uuid.UUID, at time.Time) string {
	return path.Join("episodes", path.Base("/"+episodeID), userID.String(), at.UTC().Format("20060102T150405Z")+".txt")
}
