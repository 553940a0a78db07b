package ports

import (
	"context"

	"github.com/google/uuid"

	"github.com/smlier739/copytrip-backend-sub000/internal/domain"
)

type TripRepository interface {
	// FindCanonical returns the oldest grenselos_episode trip for the pair, or
	// sql.ErrNoRows.
	FindCanonical(ctx context.Context, userID uuid.UUID, episodeID string) (*domain.Trip, error)
	// InsertCanonical stores trip unless a canonical row already exists for the
	// pair, and returns whichever row is canonical afterwards.
	InsertCanonical(ctx context.Context, trip *domain.Trip) (*domain.Trip, error)
	Create(ctx context.Context, trip *domain.Trip) (*domain.Trip, error)
	FindByID(ctx context.Context, id uuid.UUID) (*domain.Trip, error)
	ListByUser(ctx context.Context, userID uuid.UUID, filter domain.TripListFilter) ([]domain.Trip, error)
	Delete(ctx context.Context, id uuid.UUID) error
}
