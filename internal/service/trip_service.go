package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/smlier739/copytrip-backend-sub000/internal/domain"
	"github.com/smlier739/copytrip-backend-sub000/internal/logging"
	"github.com/smlier739/copytrip-backend-sub000/internal/normalize"
	"github.com/smlier739/copytrip-backend-sub000/internal/repository/ports"
)

const (
	defaultTripListLimit = 20
	maxTripListLimit     = 100
)

type TripService struct {
	trips        ports.TripRepository
	episodes     *EpisodeTripService
	log          *logging.Logger
	nightlyPrice float64
}

type CreateTripInput struct {
	// Trip is the raw payload: model text, JSON or a decoded object.
	Trip          any
	SourceType    *domain.TripSourceType
	Episode       *domain.Episode
	NightlyBudget *float64
}

type TripListInput struct {
	SourceTypes []domain.TripSourceType
	Limit       int
	Offset      int
}

// EpisodeTripResult is what the episode endpoint returns.
type EpisodeTripResult struct {
	TripID uuid.UUID
	Trip   ViewTrip
}

func NewTripService(trips ports.TripRepository, episodes *EpisodeTripService, log *logging.Logger, defaultNightlyPrice float64) *TripService {
	if log == nil {
		log = logging.NewNop()
	}
	return &TripService{trips: trips, episodes: episodes, log: log, nightlyPrice: defaultNightlyPrice}
}

// OpenEpisodeTrip resolves the caller's canonical trip for an episode and returns
// it projected for the caller.
func (s *TripService) OpenEpisodeTrip(ctx context.Context, episode domain.Episode, viewer domain.Viewer) (*EpisodeTripResult, error) {
	trip, err := s.episodes.EnsureTripForEpisode(ctx, episode, viewer.UserID)
	if err != nil {
		return nil, err
	}
	view := ProjectForViewer(s.prepare(*trip), viewer.Entitlements)
	return &EpisodeTripResult{TripID: trip.ID, Trip: view}, nil
}

func (s *TripService) CreateUserTrip(ctx context.Context, userID uuid.UUID, input CreateTripInput) (*domain.Trip, error) {
	if input.Trip == nil {
		return nil, fmt.Errorf("%w: trip payload is required", ErrInvalidTripInput)
	}
	opts := normalize.Options{NightlyBudget: input.NightlyBudget, DefaultNightlyPrice: s.nightlyPrice}

	sourceType := input.SourceType
	if sourceType == nil && input.Episode != nil {
		st := domain.TripSourceUserEpisode
		sourceType = &st
	}

	var trip domain.Trip
	switch {
	case sourceType == nil || *sourceType == domain.TripSourceTemplate:
		trip = normalize.NormalizeTripStructure(input.Trip, opts)
	case *sourceType == domain.TripSourceUserEpisode:
		if input.Episode == nil || strings.TrimSpace(input.Episode.ID) == "" {
			return nil, ErrEpisodeRequired
		}
		episode := *input.Episode
		episode.ID = strings.TrimSpace(episode.ID)
		canonical, err := s.episodes.EnsureTripForEpisode(ctx, episode, userID)
		if err != nil {
			return nil, err
		}
		partial := opts
		partial.Partial = true
		trip = normalize.MergeWithCanonical(normalize.NormalizeTripStructure(input.Trip, partial), *canonical)
		trip = normalize.NormalizeTrip(trip, opts)
		if len(trip.Stops) == 0 {
			return nil, ErrEpisodeTripNoStops
		}
		trip.SourceEpisodeID = &episode.ID
		trip.EpisodeURL = canonical.EpisodeURL
		if link, ok := normalize.SanitizeURL(episode.ExternalURL); ok {
			trip.EpisodeURL = &link
		}
	default:
		// canonical rows are only written by the episode resolver
		return nil, fmt.Errorf("%w: unsupported source type %q", ErrInvalidTripInput, *sourceType)
	}

	trip.UserID = userID
	trip.SourceType = sourceType
	stored, err := s.trips.Create(ctx, &trip)
	if err != nil {
		return nil, fmt.Errorf("create trip: %w", err)
	}
	s.log.Info("trip created", "trip_id", stored.ID, "user_id", userID, "stops", len(stored.Stops))
	return stored, nil
}

// GetTripForViewer loads a trip for its owner or an admin. Episode copies are
// completed from their canonical trip and links are re-resolved before projection.
func (s *TripService) GetTripForViewer(ctx context.Context, tripID uuid.UUID, viewer domain.Viewer) (*ViewTrip, error) {
	trip, err := s.loadForViewer(ctx, tripID, viewer)
	if err != nil {
		return nil, err
	}
	merged, err := s.withCanonical(ctx, *trip, nil)
	if err != nil {
		return nil, err
	}
	view := ProjectForViewer(s.prepare(merged), viewer.Entitlements)
	return &view, nil
}

// withCanonical completes an episode copy from its canonical trip. Other trips are
// returned as they are. seen memoizes canonical lookups per episode and may be nil.
func (s *TripService) withCanonical(ctx context.Context, trip domain.Trip, seen map[string]*domain.Trip) (domain.Trip, error) {
	if !trip.IsEpisodeCopy() {
		return trip, nil
	}
	episodeID := *trip.SourceEpisodeID
	canonical, ok := seen[episodeID]
	if !ok {
		found, err := s.episodes.FindCanonicalTrip(ctx, trip.UserID, episodeID)
		if err != nil {
			return trip, err
		}
		canonical = found
		if seen != nil {
			seen[episodeID] = found
		}
	}
	if canonical == nil {
		return trip, nil
	}
	return normalize.MergeWithCanonical(trip, *canonical), nil
}

func (s *TripService) ListTrips(ctx context.Context, viewer domain.Viewer, input TripListInput) ([]ViewTrip, error) {
	limit := input.Limit
	if limit <= 0 {
		limit = defaultTripListLimit
	}
	if limit > maxTripListLimit {
		limit = maxTripListLimit
	}
	offset := input.Offset
	if offset < 0 {
		offset = 0
	}
	trips, err := s.trips.ListByUser(ctx, viewer.UserID, domain.TripListFilter{
		SourceTypes: input.SourceTypes,
		Limit:       limit,
		Offset:      offset,
	})
	if err != nil {
		return nil, err
	}
	canonicals := make(map[string]*domain.Trip)
	views := make([]ViewTrip, 0, len(trips))
	for _, trip := range trips {
		merged, err := s.withCanonical(ctx, trip, canonicals)
		if err != nil {
			return nil, err
		}
		views = append(views, ProjectForViewer(s.prepare(merged), viewer.Entitlements))
	}
	return views, nil
}

// DeleteTrip removes a trip. Deleting a canonical trip lets the next request for
// its episode generate a fresh one.
func (s *TripService) DeleteTrip(ctx context.Context, tripID uuid.UUID, viewer domain.Viewer) error {
	trip, err := s.loadForViewer(ctx, tripID, viewer)
	if err != nil {
		return err
	}
	if err := s.trips.Delete(ctx, trip.ID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrTripNotFound
		}
		return err
	}
	s.log.Info("trip deleted", "trip_id", trip.ID, "user_id", viewer.UserID, "canonical", trip.IsCanonical())
	return nil
}

// NormalizePreview runs the trip normalizer without storing anything.
func (s *TripService) NormalizePreview(raw any, nightlyBudget *float64) domain.Trip {
	return normalize.NormalizeTripStructure(raw, normalize.Options{
		NightlyBudget:       nightlyBudget,
		DefaultNightlyPrice: s.nightlyPrice,
	})
}

func (s *TripService) loadForViewer(ctx context.Context, tripID uuid.UUID, viewer domain.Viewer) (*domain.Trip, error) {
	trip, err := s.trips.FindByID(ctx, tripID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTripNotFound
		}
		return nil, err
	}
	if trip.UserID != viewer.UserID && !viewer.Entitlements.IsAdmin {
		return nil, ErrForbidden
	}
	return trip, nil
}

// prepare repairs what older rows may lack before projection.
func (s *TripService) prepare(trip domain.Trip) domain.Trip {
	trip.PackingList = normalize.ClassifyPacking(trip.PackingList, normalize.ContextText(trip))
	trip.Hotels = normalize.ResolveHotelLinks(trip.Hotels)
	trip.Experiences = normalize.ResolveExperienceLinks(trip.Experiences)
	return trip
}
