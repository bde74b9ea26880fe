package reservation

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/velmon/busline/internal/clock"
	"github.com/velmon/busline/internal/domain"
	"github.com/velmon/busline/internal/kafka"
	"github.com/velmon/busline/internal/repository"
)

type ReservationUseCase interface {
	CreateHold(ctx context.Context, input CreateHoldInput) (*domain.SeatHold, error)
	UpdateHold(ctx context.Context, holdID int64, patch domain.HoldPatch) (*domain.SeatHold, error)
	CancelHold(ctx context.Context, holdID int64) (*domain.SeatHold, error)
	GetHold(ctx context.Context, holdID int64) (*domain.SeatHold, error)
	ListHolds(ctx context.Context, filter repository.HoldFilter) ([]domain.SeatHold, error)
	ListExpiredHolds(ctx context.Context) ([]domain.SeatHold, error)
	SweepExpiredHolds(ctx context.Context) ([]domain.SeatHold, error)
}

// Guard is the seat-inventory decision the service consults before
// writing. The store constraint remains the final arbiter.
type Guard interface {
	CanHold(ctx context.Context, tripID int64, seatNumber string) error
}

// SeatLocker is the advisory redis lock; a nil locker disables it.
type SeatLocker interface {
	AcquireSeatLock(ctx context.Context, tripID int64, seatNumber string, ttl time.Duration) (bool, error)
	ReleaseSeatLock(ctx context.Context, tripID int64, seatNumber string) error
}

type Producer interface {
	Publish(ctx context.Context, topic, key string, value interface{}) error
}

type ReservationService struct {
	holds              repository.HoldRepository
	catalog            repository.CatalogRepository
	guard              Guard
	locker             SeatLocker
	producer           Producer
	clock              clock.Clock
	seatEventsTopic    string
	notificationsTopic string
	holdDuration       time.Duration
}

const defaultHoldDuration = 10 * time.Minute

type CreateHoldInput struct {
	TripID      int64  `json:"trip_id"`
	SeatNumber  string `json:"seat_number"`
	PassengerID int64  `json:"passenger_id"`
}

type ReservationServiceOption func(*ReservationService)

// WithHoldDuration overrides how long a new hold blocks its seat.
func WithHoldDuration(d time.Duration) ReservationServiceOption {
	return func(s *ReservationService) {
		if d > 0 {
			s.holdDuration = d
		}
	}
}

func WithNotificationsTopic(topic string) ReservationServiceOption {
	return func(s *ReservationService) {
		s.notificationsTopic = topic
	}
}

func NewReservationService(
	holds repository.HoldRepository,
	catalog repository.CatalogRepository,
	guard Guard,
	locker SeatLocker,
	producer Producer,
	clk clock.Clock,
	seatEventsTopic string,
	opts ...ReservationServiceOption,
) *ReservationService {
	service := &ReservationService{
		holds:           holds,
		catalog:         catalog,
		guard:           guard,
		locker:          locker,
		producer:        producer,
		clock:           clk,
		seatEventsTopic: seatEventsTopic,
		holdDuration:    defaultHoldDuration,
	}
	for _, opt := range opts {
		opt(service)
	}
	return service
}

func (s *ReservationService) CreateHold(ctx context.Context, input CreateHoldInput) (*domain.SeatHold, error) {
	if input.SeatNumber == "" {
		return nil, domain.ErrSeatRequired
	}

	trip, err := s.catalog.GetTrip(ctx, input.TripID)
	if err != nil {
		return nil, err
	}
	if !trip.Sellable() {
		return nil, domain.ErrTripNotSellable
	}
	if err := s.catalog.PassengerExists(ctx, input.PassengerID); err != nil {
		return nil, err
	}

	locked := false
	if s.locker != nil {
		ok, err := s.locker.AcquireSeatLock(ctx, input.TripID, input.SeatNumber, s.holdDuration)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, domain.ErrSeatUnavailable
		}
		locked = true
	}

	if err := s.guard.CanHold(ctx, input.TripID, input.SeatNumber); err != nil {
		if locked {
			_ = s.locker.ReleaseSeatLock(ctx, input.TripID, input.SeatNumber)
		}
		return nil, err
	}

	now := s.clock.Now()
	hold := &domain.SeatHold{
		TripID:      input.TripID,
		SeatNumber:  input.SeatNumber,
		PassengerID: input.PassengerID,
		Status:      domain.HoldStatusHold,
		ExpiresAt:   now.Add(s.holdDuration),
	}

	if err := s.holds.Create(ctx, hold); err != nil {
		if locked {
			_ = s.locker.ReleaseSeatLock(ctx, input.TripID, input.SeatNumber)
		}
		return nil, err
	}

	s.publish(ctx, "hold_created", hold)
	return hold, nil
}

// UpdateHold applies a partial update. A seat or trip reassignment of a
// live hold re-runs the guard for the new seat; the expiry set at
// creation is never recomputed.
func (s *ReservationService) UpdateHold(ctx context.Context, holdID int64, patch domain.HoldPatch) (*domain.SeatHold, error) {
	if patch.Status != nil {
		switch *patch.Status {
		case domain.HoldStatusHold, domain.HoldStatusExpired, domain.HoldStatusCancelled, domain.HoldStatusSold:
		default:
			return nil, domain.ErrInvalidStatus
		}
	}

	current, err := s.holds.GetByID(ctx, holdID)
	if err != nil {
		return nil, err
	}

	merged := domain.ApplyHoldPatch(*current, patch)

	if merged.TripID != current.TripID {
		trip, err := s.catalog.GetTrip(ctx, merged.TripID)
		if err != nil {
			return nil, err
		}
		if !trip.Sellable() {
			return nil, domain.ErrTripNotSellable
		}
	}
	if merged.PassengerID != current.PassengerID {
		if err := s.catalog.PassengerExists(ctx, merged.PassengerID); err != nil {
			return nil, err
		}
	}

	seatMoved := merged.SeatNumber != current.SeatNumber || merged.TripID != current.TripID
	if seatMoved && merged.Status == domain.HoldStatusHold {
		if err := s.guard.CanHold(ctx, merged.TripID, merged.SeatNumber); err != nil {
			return nil, err
		}
	}

	updated, err := s.holds.Update(ctx, &merged)
	if err != nil {
		return nil, err
	}

	s.publish(ctx, "hold_updated", updated)
	return updated, nil
}

// CancelHold soft-cancels so the record stays for audit. Cancelling an
// already cancelled or expired hold returns it unchanged.
func (s *ReservationService) CancelHold(ctx context.Context, holdID int64) (*domain.SeatHold, error) {
	current, err := s.holds.GetByID(ctx, holdID)
	if err != nil {
		return nil, err
	}
	if current.Status == domain.HoldStatusCancelled || current.Status == domain.HoldStatusExpired {
		return current, nil
	}
	if current.Status == domain.HoldStatusSold {
		return nil, domain.ErrHoldNotActive
	}

	updated, err := s.holds.UpdateStatus(ctx, holdID, domain.HoldStatusCancelled)
	if err != nil {
		return nil, err
	}

	if s.locker != nil {
		_ = s.locker.ReleaseSeatLock(ctx, updated.TripID, updated.SeatNumber)
	}
	s.publish(ctx, "hold_cancelled", updated)
	return updated, nil
}

func (s *ReservationService) GetHold(ctx context.Context, holdID int64) (*domain.SeatHold, error) {
	return s.holds.GetByID(ctx, holdID)
}

func (s *ReservationService) ListHolds(ctx context.Context, filter repository.HoldFilter) ([]domain.SeatHold, error) {
	return s.holds.List(ctx, filter)
}

// ListExpiredHolds reports stale HOLD rows the sweeper has not yet
// flipped. Diagnostic.
func (s *ReservationService) ListExpiredHolds(ctx context.Context) ([]domain.SeatHold, error) {
	return s.holds.ListExpired(ctx, s.clock.Now())
}

// SweepExpiredHolds is the sweeper's unit of work: one batch flip of
// every stale HOLD to EXPIRED. A failed run is simply retried on the next
// tick because the sweep re-queries currently-expired holds every time.
func (s *ReservationService) SweepExpiredHolds(ctx context.Context) ([]domain.SeatHold, error) {
	expired, err := s.holds.ExpireBefore(ctx, s.clock.Now())
	if err != nil {
		return nil, err
	}
	for i := range expired {
		h := &expired[i]
		if s.locker != nil {
			_ = s.locker.ReleaseSeatLock(ctx, h.TripID, h.SeatNumber)
		}
		s.publish(ctx, "hold_expired", h)
	}
	return expired, nil
}

func (s *ReservationService) publish(ctx context.Context, eventType string, hold *domain.SeatHold) {
	if s.producer == nil || s.seatEventsTopic == "" {
		return
	}
	event := kafka.SeatEvent{
		Type:        eventType,
		TripID:      hold.TripID,
		SeatNumber:  hold.SeatNumber,
		PassengerID: hold.PassengerID,
		Status:      string(hold.Status),
		ExpiresAt:   hold.ExpiresAt,
		HoldID:      hold.ID,
	}
	key := fmt.Sprintf("%d:%s", hold.TripID, hold.SeatNumber)
	if err := s.producer.Publish(ctx, s.seatEventsTopic, key, event); err != nil {
		log.Printf("WARNING: failed to publish %s event for hold %d: %v", eventType, hold.ID, err)
		return
	}
	if s.notificationsTopic != "" {
		if err := s.producer.Publish(ctx, s.notificationsTopic, key, event); err != nil {
			log.Printf("WARNING: failed to publish %s notification for hold %d: %v", eventType, hold.ID, err)
		}
	}
}

var _ ReservationUseCase = (*ReservationService)(nil)
