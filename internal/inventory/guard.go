// Package inventory decides whether a seat on a trip may be held or sold.
// The guard is advisory: it gives callers a fast, friendly rejection, but
// the authoritative arbiter under concurrency is the store's uniqueness
// and exclusion constraints, which make exactly one of two racing writers
// succeed.
package inventory

import (
	"context"
	"time"

	"github.com/velmon/busline/internal/clock"
	"github.com/velmon/busline/internal/domain"
)

// HoldReader is the slice of the hold store the guard needs.
type HoldReader interface {
	FindActive(ctx context.Context, tripID int64, seatNumber string, now time.Time) (*domain.SeatHold, error)
}

// TicketReader is the slice of the ticket store the guard needs.
type TicketReader interface {
	HasBlocking(ctx context.Context, tripID int64, seatNumber string) (bool, error)
	AnyOverlap(ctx context.Context, tripID int64, seatNumber string, stretch domain.StopRange) (bool, error)
}

type Guard struct {
	holds   HoldReader
	tickets TicketReader
	clock   clock.Clock
}

func NewGuard(holds HoldReader, tickets TicketReader, clk clock.Clock) *Guard {
	return &Guard{holds: holds, tickets: tickets, clock: clk}
}

// CanHold returns nil when the seat carries no active hold and no
// non-cancelled ticket for any stretch of the trip. A hold claims the
// whole seat, so any blocking ticket rejects it.
func (g *Guard) CanHold(ctx context.Context, tripID int64, seatNumber string) error {
	now := g.clock.Now()

	active, err := g.holds.FindActive(ctx, tripID, seatNumber, now)
	if err != nil {
		return err
	}
	if active != nil {
		return domain.ErrSeatUnavailable
	}

	blocked, err := g.tickets.HasBlocking(ctx, tripID, seatNumber)
	if err != nil {
		return err
	}
	if blocked {
		return domain.ErrSeatUnavailable
	}
	return nil
}

// CanSell returns nil when no non-cancelled ticket overlaps the stretch
// and no other passenger holds the seat. The buyer's own active hold does
// not block the sale.
func (g *Guard) CanSell(ctx context.Context, tripID int64, seatNumber string, stretch domain.StopRange, passengerID int64) error {
	if !stretch.Valid() {
		return domain.ErrInvalidStopRange
	}

	overlaps, err := g.tickets.AnyOverlap(ctx, tripID, seatNumber, stretch)
	if err != nil {
		return err
	}
	if overlaps {
		return domain.ErrSeatUnavailable
	}

	active, err := g.holds.FindActive(ctx, tripID, seatNumber, g.clock.Now())
	if err != nil {
		return err
	}
	if active != nil && active.PassengerID != passengerID {
		return domain.ErrSeatHeldByOther
	}
	return nil
}
