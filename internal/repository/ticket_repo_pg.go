package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/velmon/busline/internal/domain"
)

// TicketFilter narrows List results. Nil fields are not applied.
type TicketFilter struct {
	TripID      *int64
	PassengerID *int64
	Status      *domain.TicketStatus
}

type TicketRepository interface {
	Create(ctx context.Context, ticket *domain.Ticket) error
	GetByID(ctx context.Context, id int64) (*domain.Ticket, error)
	UpdateStatus(ctx context.Context, id int64, status domain.TicketStatus) (*domain.Ticket, error)
	HasBlocking(ctx context.Context, tripID int64, seatNumber string) (bool, error)
	AnyOverlap(ctx context.Context, tripID int64, seatNumber string, stretch domain.StopRange) (bool, error)
	List(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error)
	MarkNoShowsBefore(ctx context.Context, deadline time.Time) ([]domain.Ticket, error)
}

type PGTicketRepository struct {
	db *pgxpool.Pool
}

func NewTicketRepository(db *pgxpool.Pool) TicketRepository {
	return &PGTicketRepository{db: db}
}

const ticketColumns = `id, trip_id, passenger_id, seat_number, from_stop_id, to_stop_id, from_stop_order, to_stop_order, price_cents, payment_method, status, qr_payload, created_at, updated_at`

func scanTicket(row pgx.Row) (*domain.Ticket, error) {
	var t domain.Ticket
	if err := row.Scan(&t.ID, &t.TripID, &t.PassengerID, &t.SeatNumber, &t.FromStopID, &t.ToStopID,
		&t.FromOrder, &t.ToOrder, &t.PriceCents, &t.PaymentMethod, &t.Status, &t.QRPayload,
		&t.CreatedAt, &t.UpdatedAt); err != nil {
		return nil, err
	}
	return &t, nil
}

// Create inserts a CREATED ticket. The tickets table carries an exclusion
// constraint over (trip_id, seat_number, int4range(from_stop_order,
// to_stop_order)) restricted to non-cancelled rows; a racing overlapping
// insert loses there and surfaces as ErrSeatUnavailable.
func (r *PGTicketRepository) Create(ctx context.Context, ticket *domain.Ticket) error {
	err := r.db.QueryRow(ctx, `INSERT INTO tickets
		(trip_id, passenger_id, seat_number, from_stop_id, to_stop_id, from_stop_order, to_stop_order, price_cents, payment_method, status, qr_payload)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id, created_at, updated_at`,
		ticket.TripID, ticket.PassengerID, ticket.SeatNumber, ticket.FromStopID, ticket.ToStopID,
		ticket.FromOrder, ticket.ToOrder, ticket.PriceCents, ticket.PaymentMethod, ticket.Status, ticket.QRPayload).
		Scan(&ticket.ID, &ticket.CreatedAt, &ticket.UpdatedAt)
	if err != nil {
		if isExclusionViolation(err) || isUniqueViolation(err) {
			return domain.ErrSeatUnavailable
		}
		return err
	}
	return nil
}

func (r *PGTicketRepository) GetByID(ctx context.Context, id int64) (*domain.Ticket, error) {
	row := r.db.QueryRow(ctx, `SELECT `+ticketColumns+` FROM tickets WHERE id=$1`, id)
	t, err := scanTicket(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrTicketNotFound
		}
		return nil, err
	}
	return t, nil
}

func (r *PGTicketRepository) UpdateStatus(ctx context.Context, id int64, status domain.TicketStatus) (*domain.Ticket, error) {
	row := r.db.QueryRow(ctx, `UPDATE tickets SET status=$1, updated_at=now() WHERE id=$2 RETURNING `+ticketColumns, status, id)
	t, err := scanTicket(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrTicketNotFound
		}
		return nil, err
	}
	return t, nil
}

// HasBlocking reports whether any non-cancelled ticket occupies the seat
// for any stretch of the trip.
func (r *PGTicketRepository) HasBlocking(ctx context.Context, tripID int64, seatNumber string) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM tickets
		WHERE trip_id=$1 AND seat_number=$2 AND status <> $3)`,
		tripID, seatNumber, domain.TicketStatusCancelled).Scan(&exists)
	return exists, err
}

// AnyOverlap reports whether a non-cancelled ticket on the seat overlaps
// the half-open stretch. Two ranges [a,b) and [c,d) overlap iff
// a < d AND c < b.
func (r *PGTicketRepository) AnyOverlap(ctx context.Context, tripID int64, seatNumber string, stretch domain.StopRange) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM tickets
		WHERE trip_id=$1 AND seat_number=$2 AND status <> $3
		AND from_stop_order < $5 AND $4 < to_stop_order)`,
		tripID, seatNumber, domain.TicketStatusCancelled, stretch.From, stretch.To).Scan(&exists)
	return exists, err
}

func buildTicketListQuery(filter TicketFilter) (string, []any) {
	query := `SELECT ` + ticketColumns + ` FROM tickets WHERE true`
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

func (r *PGTicketRepository) List(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error) {
	query, args := buildTicketListQuery(filter)
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectTickets(rows)
}

// MarkNoShowsBefore flips CREATED and SOLD tickets of already-departed
// trips to NO_SHOW in one statement and returns the affected rows.
func (r *PGTicketRepository) MarkNoShowsBefore(ctx context.Context, deadline time.Time) ([]domain.Ticket, error) {
	rows, err := r.db.Query(ctx, `UPDATE tickets SET status=$1, updated_at=now()
		WHERE status = ANY($2)
		AND trip_id IN (SELECT id FROM trips WHERE departure_at < $3)
		RETURNING `+ticketColumns,
		domain.TicketStatusNoShow,
		[]domain.TicketStatus{domain.TicketStatusCreated, domain.TicketStatusSold},
		deadline)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectTickets(rows)
}

func collectTickets(rows pgx.Rows) ([]domain.Ticket, error) {
	tickets := make([]domain.Ticket, 0)
	for rows.Next() {
		t, err := scanTicket(rows)
		if err != nil {
			return nil, err
		}
		tickets = append(tickets, *t)
	}
	return tickets, rows.Err()
}

var _ TicketRepository = (*PGTicketRepository)(nil)
