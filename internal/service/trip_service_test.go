package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/smlier739/copytrip-backend-sub000/internal/domain"
)

func newTripServices(repo *memoryTripRepo, gen *fakeGenerator) *TripService {
	return NewTripService(repo, newEpisodeService(repo, gen), nil, 0)
}

func sourcePtr(st domain.TripSourceType) *domain.TripSourceType {
	return &st
}

func TestCreateUserTrip_Template(t *testing.T) {
	repo := newMemoryTripRepo()
	svc := newTripServices(repo, &fakeGenerator{})
	userID := uuid.New()

	trip, err := svc.CreateUserTrip(context.Background(), userID, CreateTripInput{
		Trip:       map[string]any{"title": "Helg i Oslo", "stops": []any{"Oslo"}},
		SourceType: sourcePtr(domain.TripSourceTemplate),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if trip.UserID != userID || trip.Title != "Helg i Oslo" || len(trip.Stops) != 1 {
		t.Fatalf("unexpected trip %+v", trip)
	}
	if trip.SourceType == nil || *trip.SourceType != domain.TripSourceTemplate {
		t.Fatalf("unexpected source type %v", trip.SourceType)
	}
	if len(trip.PackingList) != 4 {
		t.Fatalf("expected classified packing list, got %v", trip.PackingList)
	}
}

func TestCreateUserTrip_RejectsCanonicalSource(t *testing.T) {
	svc := newTripServices(newMemoryTripRepo(), &fakeGenerator{})
	_, err := svc.CreateUserTrip(context.Background(), uuid.New(), CreateTripInput{
		Trip:       map[string]any{"title": "x"},
		SourceType: sourcePtr(domain.TripSourceEpisode),
	})
	if !errors.Is(err, ErrInvalidTripInput) {
		t.Fatalf("expected ErrInvalidTripInput, got %v", err)
	}

	_, err = svc.CreateUserTrip(context.Background(), uuid.New(), CreateTripInput{})
	if !errors.Is(err, ErrInvalidTripInput) {
		t.Fatalf("expected ErrInvalidTripInput for empty payload, got %v", err)
	}
}

func TestCreateUserTrip_EpisodeCopyRequiresEpisode(t *testing.T) {
	svc := newTripServices(newMemoryTripRepo(), &fakeGenerator{})
	_, err := svc.CreateUserTrip(context.Background(), uuid.New(), CreateTripInput{
		Trip:       map[string]any{"title": "x"},
		SourceType: sourcePtr(domain.TripSourceUserEpisode),
	})
	if !errors.Is(err, ErrEpisodeRequired) {
		t.Fatalf("expected ErrEpisodeRequired, got %v", err)
	}
}

func TestCreateUserTrip_EpisodeCopyFallsBackToCanonical(t *testing.T) {
	repo := newMemoryTripRepo()
	gen := &fakeGenerator{response: italyTripJSON}
	svc := newTripServices(repo, gen)
	userID := uuid.New()
	episode := italyEpisode

	trip, err := svc.CreateUserTrip(context.Background(), userID, CreateTripInput{
		Trip:    map[string]any{"title": "Min Italia-tur", "stops": []any{"Milano"}},
		Episode: &episode,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if trip.Title != "Min Italia-tur" {
		t.Fatalf("expected user title to win, got %q", trip.Title)
	}
	if len(trip.Stops) != 2 || trip.Stops[0].Name != "Roma" {
		t.Fatalf("expected canonical stops since user stops lack coordinates, got %+v", trip.Stops)
	}
	if len(trip.Hotels) != 1 || trip.Hotels[0].Name != "Hotel Artemide" {
		t.Fatalf("expected canonical hotels, got %+v", trip.Hotels)
	}
	if trip.SourceType == nil || *trip.SourceType != domain.TripSourceUserEpisode {
		t.Fatalf("expected user episode copy, got %v", trip.SourceType)
	}
	if trip.SourceEpisodeID == nil || *trip.SourceEpisodeID != "ep1" {
		t.Fatalf("expected episode provenance, got %v", trip.SourceEpisodeID)
	}
	if repo.count() != 2 || gen.callCount() != 1 {
		t.Fatalf("expected canonical row plus copy, got %d rows and %d generations", repo.count(), gen.callCount())
	}

	// a second copy reuses the canonical row
	if _, err := svc.CreateUserTrip(context.Background(), userID, CreateTripInput{Trip: map[string]any{}, Episode: &episode}); err != nil {
		t.Fatalf("second copy: %v", err)
	}
	if gen.callCount() != 1 {
		t.Fatalf("expected canonical trip to be reused, got %d generations", gen.callCount())
	}
}

func TestCreateUserTrip_EpisodeCopyFailsWhenGenerationFails(t *testing.T) {
	repo := newMemoryTripRepo()
	svc := newTripServices(repo, &fakeGenerator{err: errors.New("boom")})
	episode := italyEpisode

	_, err := svc.CreateUserTrip(context.Background(), uuid.New(), CreateTripInput{Trip: map[string]any{}, Episode: &episode})
	if !errors.Is(err, ErrTripGeneration) {
		t.Fatalf("expected ErrTripGeneration, got %v", err)
	}
	if repo.count() != 0 {
		t.Fatalf("expected nothing stored")
	}
}

func TestGetTripForViewer_AccessRules(t *testing.T) {
	repo := newMemoryTripRepo()
	svc := newTripServices(repo, &fakeGenerator{})
	owner := uuid.New()
	stored := repo.store(domain.Trip{UserID: owner, Title: "Privat"})

	if _, err := svc.GetTripForViewer(context.Background(), stored.ID, domain.Viewer{UserID: owner}); err != nil {
		t.Fatalf("owner: %v", err)
	}
	if _, err := svc.GetTripForViewer(context.Background(), stored.ID, domain.Viewer{UserID: uuid.New()}); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
	admin := domain.Viewer{UserID: uuid.New(), Entitlements: domain.Entitlements{IsAdmin: true}}
	if _, err := svc.GetTripForViewer(context.Background(), stored.ID, admin); err != nil {
		t.Fatalf("admin: %v", err)
	}
	if _, err := svc.GetTripForViewer(context.Background(), uuid.New(), domain.Viewer{UserID: owner}); !errors.Is(err, ErrTripNotFound) {
		t.Fatalf("expected ErrTripNotFound, got %v", err)
	}
}

func TestGetTripForViewer_MergesCopyAndRepairsLinks(t *testing.T) {
	repo := newMemoryTripRepo()
	gen := &fakeGenerator{response: italyTripJSON}
	svc := newTripServices(repo, gen)
	owner := uuid.New()

	if _, err := svc.episodes.EnsureTripForEpisode(context.Background(), italyEpisode, owner); err != nil {
		t.Fatalf("canonical: %v", err)
	}
	episodeID := "ep1"
	copyRow := repo.store(domain.Trip{
		UserID:          owner,
		Title:           "Kopi",
		SourceType:      sourcePtr(domain.TripSourceUserEpisode),
		SourceEpisodeID: &episodeID,
		Experiences:     []domain.Experience{{Name: "Colosseum", Location: "Roma", URL: "javascript:alert(1)"}},
	})

	view, err := svc.GetTripForViewer(context.Background(), copyRow.ID, domain.Viewer{UserID: owner, Entitlements: domain.Entitlements{IsPremium: true}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if view.Title != "Kopi" || len(view.Stops) != 2 {
		t.Fatalf("expected copy merged with canonical stops, got %+v", view)
	}
	if len(view.Hotels) != 1 || !strings.HasPrefix(view.Hotels[0].URL, "https://") {
		t.Fatalf("expected canonical hotel with link, got %+v", view.Hotels)
	}
	if len(view.Experiences) != 1 || !strings.HasPrefix(view.Experiences[0].URL, "https://www.google.com/search") {
		t.Fatalf("expected repaired experience link, got %+v", view.Experiences)
	}
	if len(view.PackingList) != 4 {
		t.Fatalf("expected classified packing list, got %+v", view.PackingList)
	}
	if gen.callCount() != 1 {
		t.Fatalf("expected reads not to generate")
	}
}

func TestOpenEpisodeTrip_ProjectsForViewer(t *testing.T) {
	repo := newMemoryTripRepo()
	svc := newTripServices(repo, &fakeGenerator{response: italyTripJSON})
	viewer := domain.Viewer{UserID: uuid.New()}

	first, err := svc.OpenEpisodeTrip(context.Background(), italyEpisode, viewer)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := svc.OpenEpisodeTrip(context.Background(), italyEpisode, viewer)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if first.TripID != second.TripID || first.TripID != first.Trip.ID {
		t.Fatalf("expected stable trip id, got %s and %s", first.TripID, second.TripID)
	}
	if first.Trip.Entitlements.IsPro {
		t.Fatalf("expected free projection")
	}
	for _, h := range first.Trip.Hotels {
		if h.URL != "" {
			t.Fatalf("expected hotel links hidden, got %+v", h)
		}
	}
}

func TestListTrips_FiltersAndClampsLimit(t *testing.T) {
	repo := newMemoryTripRepo()
	svc := newTripServices(repo, &fakeGenerator{})
	owner := uuid.New()
	repo.store(domain.Trip{UserID: owner, Title: "Mal", SourceType: sourcePtr(domain.TripSourceTemplate)})
	repo.store(domain.Trip{UserID: owner, Title: "Kopi", SourceType: sourcePtr(domain.TripSourceUserEpisode)})
	repo.store(domain.Trip{UserID: uuid.New(), Title: "Andres"})

	all, err := svc.ListTrips(context.Background(), domain.Viewer{UserID: owner}, TripListInput{Limit: 1000})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("expected two own trips, got %d", len(all))
	}

	filtered, err := svc.ListTrips(context.Background(), domain.Viewer{UserID: owner}, TripListInput{
		SourceTypes: []domain.TripSourceType{domain.TripSourceTemplate},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(filtered) != 1 || filtered[0].Title != "Mal" {
		t.Fatalf("unexpected filtered trips %+v", filtered)
	}
}

func TestListTrips_MergesEpisodeCopiesLikeDetail(t *testing.T) {
	repo := newMemoryTripRepo()
	gen := &fakeGenerator{response: italyTripJSON}
	svc := newTripServices(repo, gen)
	owner := uuid.New()
	viewer := domain.Viewer{UserID: owner, Entitlements: domain.Entitlements{IsPremium: true}}

	if _, err := svc.episodes.EnsureTripForEpisode(context.Background(), italyEpisode, owner); err != nil {
		t.Fatalf("canonical: %v", err)
	}
	episodeID := "ep1"
	copyRow := repo.store(domain.Trip{
		UserID:          owner,
		Title:           "Kopi",
		SourceType:      sourcePtr(domain.TripSourceUserEpisode),
		SourceEpisodeID: &episodeID,
	})

	list, err := svc.ListTrips(context.Background(), viewer, TripListInput{
		SourceTypes: []domain.TripSourceType{domain.TripSourceUserEpisode},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	detail, err := svc.GetTripForViewer(context.Background(), copyRow.ID, viewer)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(list) != 1 {
		t.Fatalf("expected one copy, got %d", len(list))
	}
	listed := list[0]
	if listed.Title != "Kopi" || len(listed.Stops) != 2 || len(listed.Hotels) != 1 {
		t.Fatalf("expected listed copy merged with canonical, got %+v", listed)
	}
	if len(listed.Stops) != len(detail.Stops) || len(listed.Hotels) != len(detail.Hotels) || listed.Hotels[0].Name != detail.Hotels[0].Name {
		t.Fatalf("list and detail disagree\nlist:   %+v\ndetail: %+v", listed, detail)
	}
	if gen.callCount() != 1 {
		t.Fatalf("expected listing not to generate")
	}
}

func TestDeleteTrip(t *testing.T) {
	repo := newMemoryTripRepo()
	svc := newTripServices(repo, &fakeGenerator{})
	owner := uuid.New()
	stored := repo.store(domain.Trip{UserID: owner, Title: "Slett meg"})

	if err := svc.DeleteTrip(context.Background(), stored.ID, domain.Viewer{UserID: uuid.New()}); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
	if err := svc.DeleteTrip(context.Background(), stored.ID, domain.Viewer{UserID: owner}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := svc.DeleteTrip(context.Background(), stored.ID, domain.Viewer{UserID: owner}); !errors.Is(err, ErrTripNotFound) {
		t.Fatalf("expected ErrTripNotFound, got %v", err)
	}
}

func TestNormalizePreview(t *testing.T) {
	svc := NewTripService(newMemoryTripRepo(), nil, nil, 1000)
	trip := svc.NormalizePreview(`{"stops": ["Bergen"]}`, nil)
	if len(trip.Stops) != 1 || len(trip.Hotels) != 2 {
		t.Fatalf("unexpected preview %+v", trip)
	}
	if *trip.Hotels[1].PricePerNight != 1000 {
		t.Fatalf("expected configured nightly price, got %v", *trip.Hotels[1].PricePerNight)
	}
}
