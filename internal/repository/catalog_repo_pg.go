package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/velmon/busline/internal/domain"
)

// CatalogRepository reads the reference data the seat-inventory core
// depends on but does not own: trips, stops and passengers.
type CatalogRepository interface {
	GetTrip(ctx context.Context, id int64) (*domain.Trip, error)
	ListTrips(ctx context.Context) ([]domain.Trip, error)
	GetStop(ctx context.Context, id int64) (*domain.Stop, error)
	PassengerExists(ctx context.Context, id int64) error
}

type PGCatalogRepository struct {
	db *pgxpool.Pool
}

func NewCatalogRepository(db *pgxpool.Pool) CatalogRepository {
	return &PGCatalogRepository{db: db}
}

func (r *PGCatalogRepository) GetTrip(ctx context.Context, id int64) (*domain.Trip, error) {
	row := r.db.QueryRow(ctx, `SELECT id, route_id, status, departure_at, created_at, updated_at FROM trips WHERE id=$1`, id)
	var t domain.Trip
	if err := row.Scan(&t.ID, &t.RouteID, &t.Status, &t.DepartureAt, &t.CreatedAt, &t.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrTripNotFound
		}
		return nil, err
	}
	return &t, nil
}

func (r *PGCatalogRepository) ListTrips(ctx context.Context) ([]domain.Trip, error) {
	rows, err := r.db.Query(ctx, `SELECT id, route_id, status, departure_at, created_at, updated_at FROM trips ORDER BY departure_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	trips := make([]domain.Trip, 0)
	for rows.Next() {
		var t domain.Trip
		if err := rows.Scan(&t.ID, &t.RouteID, &t.Status, &t.DepartureAt, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, err
		}
		trips = append(trips, t)
	}
	return trips, rows.Err()
}

func (r *PGCatalogRepository) GetStop(ctx context.Context, id int64) (*domain.Stop, error) {
	row := r.db.QueryRow(ctx, `SELECT id, route_id, name, stop_order FROM stops WHERE id=$1`, id)
	var s domain.Stop
	if err := row.Scan(&s.ID, &s.RouteID, &s.Name, &s.StopOrder); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrStopNotFound
		}
		return nil, err
	}
	return &s, nil
}

func (r *PGCatalogRepository) PassengerExists(ctx context.Context, id int64) error {
	var exists bool
	if err := r.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM passengers WHERE id=$1)`, id).Scan(&exists); err != nil {
		return err
	}
	if !exists {
		return domain.ErrPassengerNotFound
	}
	return nil
}

var _ CatalogRepository = (*PGCatalogRepository)(nil)
