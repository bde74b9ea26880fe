package domain

import "time"

type TripStatus string

const (
	TripStatusScheduled      TripStatus = "SCHEDULED"
	TripStatusBoarding       TripStatus = "BOARDING"
	TripStatusBoardingClosed TripStatus = "BOARDING_CLOSED"
	TripStatusDeparted       TripStatus = "DEPARTED"
	TripStatusArrived        TripStatus = "ARRIVED"
	TripStatusCancelled      TripStatus = "CANCELLED"
)

type Trip struct {
	ID          int64
	RouteID     int64
	Status      TripStatus
	DepartureAt time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Sellable reports whether seats on the trip may still be held or sold.
func (t *Trip) Sellable() bool {
	switch t.Status {
	case TripStatusScheduled, TripStatusBoarding:
		return true
	default:
		return false
	}
}
