package ports

import (
	"context"

	"github.com/smlier739/copytrip-backend-sub000/internal/domain"
)

// Geocoder resolves a free-text place. A nil result with a nil error means no match.
type Geocoder interface {
	Geocode(ctx context.Context, query string) (*domain.Coordinates, error)
}
