package domain

import "errors"

// Sentinel errors shared across services, repositories and handlers.
// Handlers translate them into HTTP statuses: not-found errors become 404,
// conflict errors 409, invalid-argument errors 400.
var (
	ErrTripNotFound      = errors.New("trip not found")
	ErrStopNotFound      = errors.New("stop not found")
	ErrPassengerNotFound = errors.New("passenger not found")
	ErrHoldNotFound      = errors.New("hold not found")
	ErrTicketNotFound    = errors.New("ticket not found")

	// ErrSeatUnavailable covers every flavour of losing the seat: an active
	// hold, an overlapping non-cancelled ticket, or a race lost against the
	// store's uniqueness constraint.
	ErrSeatUnavailable = errors.New("seat already held or sold")
	// ErrSeatHeldByOther is returned when a purchase targets a seat whose
	// active hold belongs to a different passenger.
	ErrSeatHeldByOther = errors.New("seat held by another passenger")

	ErrInvalidStopRange = errors.New("destination stop must come after boarding stop")
	ErrInvalidStatus    = errors.New("invalid status value")
	ErrSeatRequired     = errors.New("seat number is required")
	ErrStopsOffRoute    = errors.New("stops do not belong to the trip route")
	ErrTripNotSellable  = errors.New("trip is no longer selling seats")
	ErrHoldNotActive    = errors.New("hold is not active")
	ErrTicketNotPayable = errors.New("ticket is not awaiting payment")
	ErrTicketFinalized  = errors.New("ticket is in a terminal status")
)

// IsNotFound reports whether err is one of the not-found sentinels.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrTripNotFound) ||
		errors.Is(err, ErrStopNotFound) ||
		errors.Is(err, ErrPassengerNotFound) ||
		errors.Is(err, ErrHoldNotFound) ||
		errors.Is(err, ErrTicketNotFound)
}

// IsConflict reports whether err represents a seat-inventory conflict.
func IsConflict(err error) bool {
	return errors.Is(err, ErrSeatUnavailable) || errors.Is(err, ErrSeatHeldByOther)
}

// IsInvalidArgument reports whether err represents a rejected request.
func IsInvalidArgument(err error) bool {
	return errors.Is(err, ErrInvalidStopRange) ||
		errors.Is(err, ErrInvalidStatus) ||
		errors.Is(err, ErrSeatRequired) ||
		errors.Is(err, ErrStopsOffRoute) ||
		errors.Is(err, ErrTripNotSellable) ||
		errors.Is(err, ErrHoldNotActive) ||
		errors.Is(err, ErrTicketNotPayable) ||
		errors.Is(err, ErrTicketFinalized)
}
