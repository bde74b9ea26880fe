package domain

import "time"

type TicketStatus string

const (
	TicketStatusCreated   TicketStatus = "CREATED"
	TicketStatusSold      TicketStatus = "SOLD"
	TicketStatusUsed      TicketStatus = "USED"
	TicketStatusNoShow    TicketStatus = "NO_SHOW"
	TicketStatusCancelled TicketStatus = "CANCELLED"
)

type PaymentMethod string

const (
	PaymentMethodCash     PaymentMethod = "CASH"
	PaymentMethodCard     PaymentMethod = "CARD"
	PaymentMethodTransfer PaymentMethod = "TRANSFER"
)

// Ticket is a sold seat assignment for a stop-to-stop stretch of a trip.
// FromOrder/ToOrder are the resolved stop orders of FromStopID/ToStopID;
// overlap checks compare these, never the stop identities.
type Ticket struct {
	ID            int64
	TripID        int64
	PassengerID   int64
	SeatNumber    string
	FromStopID    int64
	ToStopID      int64
	FromOrder     int
	ToOrder       int
	PriceCents    int64
	PaymentMethod PaymentMethod
	Status        TicketStatus
	QRPayload     string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Range returns the ticket's stretch as a half-open stop-order range.
func (t *Ticket) Range() StopRange {
	return StopRange{From: t.FromOrder, To: t.ToOrder}
}

// Blocking reports whether the ticket still occupies its stretch.
// Cancelled tickets free the stretch for resale.
func (t *Ticket) Blocking() bool {
	return t.Status != TicketStatusCancelled
}

// Terminal reports whether the ticket can no longer change status.
func (t *Ticket) Terminal() bool {
	switch t.Status {
	case TicketStatusUsed, TicketStatusNoShow, TicketStatusCancelled:
		return true
	default:
		return false
	}
}
