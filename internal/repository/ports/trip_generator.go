package ports

import (
	"context"

	"github.com/smlier739/copytrip-backend-sub000/internal/domain"
)

// TripGenerator asks the AI provider for a trip seeded by an episode and returns
// the raw model text.
type TripGenerator interface {
	GenerateEpisodeTrip(ctx context.Context, episode domain.Episode) (string, error)
}
