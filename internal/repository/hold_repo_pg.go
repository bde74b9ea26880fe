package repository

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/velmon/busline/internal/domain"
)

// HoldFilter narrows List results. Nil fields are not applied.
type HoldFilter struct {
	TripID      *int64
	PassengerID *int64
	Status      *domain.HoldStatus
}

type HoldRepository interface {
	Create(ctx context.Context, hold *domain.SeatHold) error
	GetByID(ctx context.Context, id int64) (*domain.SeatHold, error)
	Update(ctx context.Context, hold *domain.SeatHold) (*domain.SeatHold, error)
	UpdateStatus(ctx context.Context, id int64, status domain.HoldStatus) (*domain.SeatHold, error)
	FindActive(ctx context.Context, tripID int64, seatNumber string, now time.Time) (*domain.SeatHold, error)
	List(ctx context.Context, filter HoldFilter) ([]domain.SeatHold, error)
	ListExpired(ctx context.Context, now time.Time) ([]domain.SeatHold, error)
	ExpireBefore(ctx context.Context, deadline time.Time) ([]domain.SeatHold, error)
	MarkSoldActive(ctx context.Context, tripID int64, seatNumber string, passengerID int64, now time.Time) error
}

type PGHoldRepository struct {
	db *pgxpool.Pool
}

func NewHoldRepository(db *pgxpool.Pool) HoldRepository {
	return &PGHoldRepository{db: db}
}

const holdColumns = `id, trip_id, seat_number, passenger_id, status, expires_at, created_at, updated_at`

func scanHold(row pgx.Row) (*domain.SeatHold, error) {
	var h domain.SeatHold
	if err := row.Scan(&h.ID, &h.TripID, &h.SeatNumber, &h.PassengerID, &h.Status, &h.ExpiresAt, &h.CreatedAt, &h.UpdatedAt); err != nil {
		return nil, err
	}
	return &h, nil
}

// Create inserts a new HOLD row. The seat_holds table carries a partial
// unique index on (trip_id, seat_number) WHERE status = 'HOLD'; a lost
// race surfaces here as ErrSeatUnavailable.
func (r *PGHoldRepository) Create(ctx context.Context, hold *domain.SeatHold) error {
	err := r.db.QueryRow(ctx, `INSERT INTO seat_holds (trip_id, seat_number, passenger_id, status, expires_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at`,
		hold.TripID, hold.SeatNumber, hold.PassengerID, hold.Status, hold.ExpiresAt).
		Scan(&hold.ID, &hold.CreatedAt, &hold.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrSeatUnavailable
		}
		return err
	}
	return nil
}

func (r *PGHoldRepository) GetByID(ctx context.Context, id int64) (*domain.SeatHold, error) {
	row := r.db.QueryRow(ctx, `SELECT `+holdColumns+` FROM seat_holds WHERE id=$1`, id)
	h, err := scanHold(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrHoldNotFound
		}
		return nil, err
	}
	return h, nil
}

func (r *PGHoldRepository) Update(ctx context.Context, hold *domain.SeatHold) (*domain.SeatHold, error) {
	row := r.db.QueryRow(ctx, `UPDATE seat_holds
		SET trip_id=$1, seat_number=$2, passenger_id=$3, status=$4, updated_at=now()
		WHERE id=$5
		RETURNING `+holdColumns, hold.TripID, hold.SeatNumber, hold.PassengerID, hold.Status, hold.ID)
	updated, err := scanHold(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrHoldNotFound
		}
		if isUniqueViolation(err) {
			return nil, domain.ErrSeatUnavailable
		}
		return nil, err
	}
	return updated, nil
}

func (r *PGHoldRepository) UpdateStatus(ctx context.Context, id int64, status domain.HoldStatus) (*domain.SeatHold, error) {
	row := r.db.QueryRow(ctx, `UPDATE seat_holds SET status=$1, updated_at=now() WHERE id=$2 RETURNING `+holdColumns, status, id)
	h, err := scanHold(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrHoldNotFound
		}
		return nil, err
	}
	return h, nil
}

// FindActive returns the single HOLD row still blocking the seat, or nil
// when the seat is free of holds.
func (r *PGHoldRepository) FindActive(ctx context.Context, tripID int64, seatNumber string, now time.Time) (*domain.SeatHold, error) {
	row := r.db.QueryRow(ctx, `SELECT `+holdColumns+` FROM seat_holds
		WHERE trip_id=$1 AND seat_number=$2 AND status=$3 AND expires_at > $4`,
		tripID, seatNumber, domain.HoldStatusHold, now)
	h, err := scanHold(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return h, nil
}

func buildHoldListQuery(filter HoldFilter) (string, []any) {
	query := `SELECT ` + holdColumns + ` FROM seat_holds WHERE true`
	args := make([]any, 0, 3)
	if filter.TripID != nil {
		args = append(args, *filter.TripID)
		query += ` AND trip_id=$` + itoa(len(args))
	}
	if filter.PassengerID != nil {
		args = append(args, *filter.PassengerID)
		query += ` AND passenger_id=$` + itoa(len(args))
	}
	if filter.Status != nil {
		args = append(args, *filter.Status)
		query += ` AND status=$` + itoa(len(args))
	}
	query += ` ORDER BY created_at`
	return query, args
}

func (r *PGHoldRepository) List(ctx context.Context, filter HoldFilter) ([]domain.SeatHold, error) {
	query, args := buildHoldListQuery(filter)
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectHolds(rows)
}

// ListExpired reports HOLD rows the sweeper has not yet flipped. Intended
// for diagnostics; the sweep itself uses ExpireBefore.
func (r *PGHoldRepository) ListExpired(ctx context.Context, now time.Time) ([]domain.SeatHold, error) {
	rows, err := r.db.Query(ctx, `SELECT `+holdColumns+` FROM seat_holds
		WHERE status=$1 AND expires_at < $2 ORDER BY expires_at`, domain.HoldStatusHold, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectHolds(rows)
}

// ExpireBefore flips every stale HOLD to EXPIRED in one statement and
// returns the affected rows. Running it again with no new holds is a no-op.
func (r *PGHoldRepository) ExpireBefore(ctx context.Context, deadline time.Time) ([]domain.SeatHold, error) {
	rows, err := r.db.Query(ctx, `UPDATE seat_holds SET status=$1, updated_at=now()
		WHERE status=$2 AND expires_at < $3
		RETURNING `+holdColumns, domain.HoldStatusExpired, domain.HoldStatusHold, deadline)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectHolds(rows)
}

// MarkSoldActive flips the passenger's own active hold on the seat to SOLD
// as part of a ticket purchase. No matching hold is not an error.
func (r *PGHoldRepository) MarkSoldActive(ctx context.Context, tripID int64, seatNumber string, passengerID int64, now time.Time) error {
	_, err := r.db.Exec(ctx, `UPDATE seat_holds SET status=$1, updated_at=now()
		WHERE trip_id=$2 AND seat_number=$3 AND passenger_id=$4 AND status=$5 AND expires_at > $6`,
		domain.HoldStatusSold, tripID, seatNumber, passengerID, domain.HoldStatusHold, now)
	return err
}

func itoa(n int) string {
	return strconv.Itoa(n)
}

func collectHolds(rows pgx.Rows) ([]domain.SeatHold, error) {
	holds := make([]domain.SeatHold, 0)
	for rows.Next() {
		h, err := scanHold(rows)
		if err != nil {
			return nil, err
		}
		holds = append(holds, *h)
	}
	return holds, rows.Err()
}

var _ HoldRepository = (*PGHoldRepository)(nil)
