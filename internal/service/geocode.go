package service

import (
	"context"
	"encoding/json"
	"strings"

	"golang.org/x/sync/errgroup"
	"golang.org/x/text/cases"

	"github.com/smlier739/copytrip-backend-sub000/internal/domain"
)

const geocodeCachePrefix = "geocode:"

// geocodeStops fills in coordinates for stops that have none. It never fails:
// unresolved stops keep nil coordinates.
func (s *EpisodeTripService) geocodeStops(ctx context.Context, stops []domain.Stop) []domain.Stop {
	if s.geocoder == nil || len(stops) == 0 {
		return stops
	}
	out := make([]domain.Stop, len(stops))
	copy(out, stops)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.geocodeConcurrency)
	for i := range out {
		if out[i].HasCoordinates() {
			continue
		}
		query := geocodeQuery(out[i])
		if query == "" {
			continue
		}
		g.Go(func() error {
			// each goroutine owns out[i]
			out[i].Coordinates = s.lookupCoordinates(gctx, query)
			return nil
		})
	}
	_ = g.Wait()
	return out
}

func geocodeQuery(stop domain.Stop) string {
	parts := []string{stop.Name}
	if stop.Location != nil && !strings.EqualFold(strings.TrimSpace(*stop.Location), strings.TrimSpace(stop.Name)) {
		parts = append(parts, *stop.Location)
	}
	if stop.CountryCode != nil {
		parts = append(parts, *stop.CountryCode)
	}
	return strings.Join(strings.Fields(strings.Join(parts, " ")), " ")
}

func geocodeCacheKey(query string) string {
	return geocodeCachePrefix + cases.Fold().String(query)
}

func (s *EpisodeTripService) lookupCoordinates(ctx context.Context, query string) *domain.Coordinates {
	key := geocodeCacheKey(query)
	if s.cache != nil {
		data, found, err := s.cache.Get(ctx, key)
		switch {
		case err != nil:
			s.log.Warn("geocode cache read failed", "query", query, "error", err)
		case found:
			var coords *domain.Coordinates
			if err := json.Unmarshal(data, &coords); err == nil {
				return coords
			}
		}
	}

	coords, err := s.geocoder.Geocode(ctx, query)
	if err != nil {
		s.log.Warn("geocode failed", "query", query, "error", err)
		return nil
	}

	if s.cache != nil {
		// a miss is cached as null so the provider is not asked again
		data, _ := json.Marshal(coords)
		if err := s.cache.Set(ctx, key, data, s.geocodeTTL); err != nil {
			s.log.Warn("geocode cache write failed", "query", query, "error", err)
		}
	}
	return coords
}
