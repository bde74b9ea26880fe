package domain

import "time"

type HoldStatus string

const (
	HoldStatusHold      HoldStatus = "HOLD"
	HoldStatusExpired   HoldStatus = "EXPIRED"
	HoldStatusCancelled HoldStatus = "CANCELLED"
	HoldStatusSold      HoldStatus = "SOLD"
)

// SeatHold is a temporary claim on one seat of one trip by one passenger.
// At most one HOLD row may exist per (trip, seat number) at any instant;
// the store enforces this with a partial unique index.
type SeatHold struct {
	ID          int64
	TripID      int64
	SeatNumber  string
	PassengerID int64
	Status      HoldStatus
	ExpiresAt   time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Active reports whether the hold still blocks the seat at the given time.
func (h *SeatHold) Active(now time.Time) bool {
	return h.Status == HoldStatusHold && h.ExpiresAt.After(now)
}

// HoldPatch is a partial update for a hold. Nil fields are left untouched.
// ExpiresAt is deliberately absent: expiry is fixed at creation.
type HoldPatch struct {
	TripID      *int64
	SeatNumber  *string
	PassengerID *int64
	Status      *HoldStatus
}

// ApplyHoldPatch merges a patch into a copy of the hold. Each field is
// named explicitly so the merge semantics stay visible at the call site.
func ApplyHoldPatch(hold SeatHold, patch HoldPatch) SeatHold {
	if patch.TripID != nil {
		hold.TripID = *patch.TripID
	}
	if patch.SeatNumber != nil {
		hold.SeatNumber = *patch.SeatNumber
	}
	if patch.PassengerID != nil {
		hold.PassengerID = *patch.PassengerID
	}
	if patch.Status != nil {
		hold.Status = *patch.Status
	}
	return hold
}
