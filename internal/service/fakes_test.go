package service

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/smlier739/copytrip-backend-sub000/internal/domain"
)

type memoryTripRepo struct {
	mu    sync.Mutex
	trips map[uuid.UUID]domain.Trip
	clock time.Time

	insertCanonicalCalls int
	createErr            error
}

func newMemoryTripRepo() *memoryTripRepo {
	return &memoryTripRepo{
		trips: make(map[uuid.UUID]domain.Trip),
		clock: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
	}
}

func (r *memoryTripRepo) store(trip domain.Trip) *domain.Trip {
	r.clock = r.clock.Add(time.Second)
	trip.ID = uuid.New()
	trip.CreatedAt = r.clock
	trip.UpdatedAt = r.clock
	r.trips[trip.ID] = trip
	return &trip
}

func (r *memoryTripRepo) findCanonicalLocked(userID uuid.UUID, episodeID string) *domain.Trip {
	var found *domain.Trip
	for _, trip := range r.trips {
		if !trip.IsCanonical() || trip.UserID != userID || trip.SourceEpisodeID == nil || *trip.SourceEpisodeID != episodeID {
			continue
		}
		if found == nil || trip.CreatedAt.Before(found.CreatedAt) {
			t := trip
			found = &t
		}
	}
	return found
}

func (r *memoryTripRepo) FindCanonical(ctx context.Context, userID uuid.UUID, episodeID string) (*domain.Trip, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if found := r.findCanonicalLocked(userID, episodeID); found != nil {
		return found, nil
	}
	return nil, sql.ErrNoRows
}

func (r *memoryTripRepo) InsertCanonical(ctx context.Context, trip *domain.Trip) (*domain.Trip, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.insertCanonicalCalls++
	if trip.SourceEpisodeID == nil {
		return nil, errors.New("canonical trip requires a source episode id")
	}
	if found := r.findCanonicalLocked(trip.UserID, *trip.SourceEpisodeID); found != nil {
		return found, nil
	}
	source := domain.TripSourceEpisode
	stored := *trip
	stored.SourceType = &source
	return r.store(stored), nil
}

func (r *memoryTripRepo) Create(ctx context.Context, trip *domain.Trip) (*domain.Trip, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		return nil, r.createErr
	}
	return r.store(*trip), nil
}

func (r *memoryTripRepo) FindByID(ctx context.Context, id uuid.UUID) (*domain.Trip, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	trip, ok := r.trips[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &trip, nil
}

func (r *memoryTripRepo) ListByUser(ctx context.Context, userID uuid.UUID, filter domain.TripListFilter) ([]domain.Trip, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Trip
	for _, trip := range r.trips {
		if trip.UserID != userID {
			continue
		}
		if len(filter.SourceTypes) > 0 {
			match := false
			for _, st := range filter.SourceTypes {
				if trip.SourceType != nil && *trip.SourceType == st {
					match = true
				}
			}
			if !match {
				continue
			}
		}
		out = append(out, trip)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if filter.Offset >= len(out) {
		return []domain.Trip{}, nil
	}
	out = out[filter.Offset:]
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (r *memoryTripRepo) Delete(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.trips[id]; !ok {
		return sql.ErrNoRows
	}
	delete(r.trips, id)
	return nil
}

func (r *memoryTripRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.trips)
}

type fakeGenerator struct {
	mu       sync.Mutex
	calls    int
	response string
	err      error
	// release, when set, blocks every call until it is closed or ctx ends.
	release chan struct{}
}

func (g *fakeGenerator) GenerateEpisodeTrip(ctx context.Context, episode domain.Episode) (string, error) {
	g.mu.Lock()
	g.calls++
	release := g.release
	g.mu.Unlock()
	if release != nil {
		select {
		case <-release:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return g.response, g.err
}

func (g *fakeGenerator) callCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls
}

type fakeGeocoder struct {
	mu      sync.Mutex
	results map[string]*domain.Coordinates
	errs    map[string]error
	queries []string
}

func (g *fakeGeocoder) Geocode(ctx context.Context, query string) (*domain.Coordinates, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.queries = append(g.queries, query)
	if err := g.errs[query]; err != nil {
		return nil, err
	}
	return g.results[query], nil
}

type memoryCache struct {
	mu      sync.Mutex
	entries map[string][]byte
	ttls    map[string]time.Duration
}

func newMemoryCache() *memoryCache {
	return &memoryCache{entries: make(map[string][]byte), ttls: make(map[string]time.Duration)}
}

func (c *memoryCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.entries[key]
	return v, ok, nil
}

func (c *memoryCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = append([]byte(nil), value...)
	c.ttls[key] = ttl
	return nil
}

type fakeStorage struct {
	mu      sync.Mutex
	bucket  string
	objects map[string][]byte
	types   map[string]string
	err     error
}

func (s *fakeStorage) Upload(ctx context.Context, bucket, objectName, contentType string, reader io.Reader, size int64) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return "", s.err
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, reader); err != nil {
		return "", err
	}
	if s.objects == nil {
		s.objects = make(map[string][]byte)
		s.types = make(map[string]string)
	}
	s.bucket = bucket
	s.objects[objectName] = buf.Bytes()
	s.types[objectName] = contentType
	return "http://minio.local/" + bucket + "/" + objectName, nil
}
