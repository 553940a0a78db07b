package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/smlier739/copytrip-backend-sub000/internal/domain"
	"github.com/smlier739/copytrip-backend-sub000/internal/repository/ports"
)

const tripColumns = `
	id, user_id, title, description, stops, packing_list, hotels, experiences, gallery,
	source_type, source_episode_id, episode_url, created_at, updated_at
`

const uniqueViolation = "23505"

type TripRepository struct {
	db *sqlx.DB
}

var _ ports.TripRepository = (*TripRepository)(nil)

func NewTripRepo(db *sqlx.DB) *TripRepository {
	return &TripRepository{db: db}
}

func tripArgs(trip *domain.Trip) map[string]any {
	var sourceType sql.NullString
	if trip.SourceType != nil {
		sourceType = sql.NullString{String: string(*trip.SourceType), Valid: true}
	}
	return map[string]any{
		"user_id":           trip.UserID,
		"title":             trip.Title,
		"description":       nullString(trip.Description),
		"stops":             trip.Stops,
		"packing_list":      trip.PackingList,
		"hotels":            trip.Hotels,
		"experiences":       trip.Experiences,
		"gallery":           trip.Gallery,
		"source_type":       sourceType,
		"source_episode_id": nullString(trip.SourceEpisodeID),
		"episode_url":       nullString(trip.EpisodeURL),
	}
}

func (r *TripRepository) Create(ctx context.Context, trip *domain.Trip) (*domain.Trip, error) {
	query := `
		INSERT INTO trips (user_id, title, description, stops, packing_list, hotels, experiences, gallery,
			source_type, source_episode_id, episode_url)
		VALUES (:user_id, :title, :description, :stops, :packing_list, :hotels, :experiences, :gallery,
			:source_type, :source_episode_id, :episode_url)
		RETURNING ` + tripColumns

	stored, err := r.insert(ctx, query, trip)
	if err != nil {
		return nil, err
	}
	if stored == nil {
		return nil, sql.ErrNoRows
	}
	return stored, nil
}

// InsertCanonical relies on the partial unique index trips_canonical_episode_idx.
// When another request won the race nothing is returned and the existing row is
// read back instead.
func (r *TripRepository) InsertCanonical(ctx context.Context, trip *domain.Trip) (*domain.Trip, error) {
	if trip.SourceEpisodeID == nil || strings.TrimSpace(*trip.SourceEpisodeID) == "" {
		return nil, errors.New("canonical trip requires a source episode id")
	}
	source := domain.TripSourceEpisode
	trip.SourceType = &source

	query := `
		INSERT INTO trips (user_id, title, description, stops, packing_list, hotels, experiences, gallery,
			source_type, source_episode_id, episode_url)
		VALUES (:user_id, :title, :description, :stops, :packing_list, :hotels, :experiences, :gallery,
			:source_type, :source_episode_id, :episode_url)
		ON CONFLICT (user_id, source_episode_id) WHERE source_type = 'grenselos_episode' DO NOTHING
		RETURNING ` + tripColumns

	stored, err := r.insert(ctx, query, trip)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return r.FindCanonical(ctx, trip.UserID, *trip.SourceEpisodeID)
		}
		return nil, err
	}
	if stored == nil {
		return r.FindCanonical(ctx, trip.UserID, *trip.SourceEpisodeID)
	}
	return stored, nil
}

func (r *TripRepository) insert(ctx context.Context, query string, trip *domain.Trip) (*domain.Trip, error) {
	rows, err := r.db.NamedQueryContext(ctx, query, tripArgs(trip))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	if rows.Next() {
		var stored domain.Trip
		if err := rows.StructScan(&stored); err != nil {
			return nil, err
		}
		return &stored, nil
	}
	return nil, rows.Err()
}

func (r *TripRepository) FindCanonical(ctx context.Context, userID uuid.UUID, episodeID string) (*domain.Trip, error) {
	query := `
		SELECT ` + tripColumns + `
		FROM trips
		WHERE source_type = 'grenselos_episode' AND source_episode_id = $1 AND user_id = $2
		ORDER BY created_at ASC, id ASC
		LIMIT 1
	`
	var trip domain.Trip
	if err := r.db.GetContext(ctx, &trip, query, episodeID, userID); err != nil {
		return nil, err
	}
	return &trip, nil
}

func (r *TripRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Trip, error) {
	query := `SELECT ` + tripColumns + ` FROM trips WHERE id = $1`
	var trip domain.Trip
	if err := r.db.GetContext(ctx, &trip, query, id); err != nil {
		return nil, err
	}
	return &trip, nil
}

func (r *TripRepository) ListByUser(ctx context.Context, userID uuid.UUID, filter domain.TripListFilter) ([]domain.Trip, error) {
	clauses := []string{"user_id = $1"}
	args := []any{userID}

	if len(filter.SourceTypes) > 0 {
		types := make([]string, 0, len(filter.SourceTypes))
		for _, st := range filter.SourceTypes {
			types = append(types, string(st))
		}
		args = append(args, pq.StringArray(types))
		clauses = append(clauses, fmt.Sprintf("source_type = ANY($%d)", len(args)))
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}
	args = append(args, limit, filter.Offset)

	query := fmt.Sprintf(`
		SELECT %s
		FROM trips
		WHERE %s
		ORDER BY created_at DESC, id DESC
		LIMIT $%d OFFSET $%d
	`, tripColumns, strings.Join(clauses, " AND "), len(args)-1, len(args))

	var trips []domain.Trip
	if err := r.db.SelectContext(ctx, &trips, query, args...); err != nil {
		return nil, err
	}
	return trips, nil
}

func (r *TripRepository) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM trips WHERE id = $1`, id)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func nullString(ptr *string) sql.NullString {
	if ptr == nil {
		return sql.NullString{Valid: false}
	}
	v := strings.TrimSpace(*ptr)
	if v == "" {
		return sql.NullString{Valid: false}
	}
	return sql.NullString{String: v, Valid: true}
}
