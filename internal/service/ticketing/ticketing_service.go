package ticketing

import (
	"context"
	"fmt"
	"log"

	"github.com/google/uuid"
	"github.com/velmon/busline/internal/clock"
	"github.com/velmon/busline/internal/domain"
	"github.com/velmon/busline/internal/kafka"
	"github.com/velmon/busline/internal/repository"
)

type TicketingUseCase interface {
	CreateTicket(ctx context.Context, input CreateTicketInput) (*domain.Ticket, error)
	ConfirmPayment(ctx context.Context, ticketID int64) (*domain.Ticket, error)
	CancelTicket(ctx context.Context, ticketID int64) (*domain.Ticket, error)
	GetTicket(ctx context.Context, ticketID int64) (*domain.Ticket, error)
	ListTickets(ctx context.Context, filter repository.TicketFilter) ([]domain.Ticket, error)
	MarkNoShows(ctx context.Context) ([]domain.Ticket, error)
}

// Guard is the seat-inventory decision consulted before a sale; the
// store's exclusion constraint remains the final arbiter.
type Guard interface {
	CanSell(ctx context.Context, tripID int64, seatNumber string, stretch domain.StopRange, passengerID int64) error
}

type Producer interface {
	Publish(ctx context.Context, topic, key string, value interface{}) error
}

type TicketingService struct {
	tickets            repository.TicketRepository
	holds              repository.HoldRepository
	catalog            repository.CatalogRepository
	guard              Guard
	producer           Producer
	clock              clock.Clock
	seatEventsTopic    string
	notificationsTopic string
}

type CreateTicketInput struct {
	TripID        int64                `json:"trip_id"`
	PassengerID   int64                `json:"passenger_id"`
	SeatNumber    string               `json:"seat_number"`
	FromStopID    int64                `json:"from_stop_id"`
	ToStopID      int64                `json:"to_stop_id"`
	PriceCents    int64                `json:"price_cents"`
	PaymentMethod domain.PaymentMethod `json:"payment_method"`
}

type TicketingServiceOption func(*TicketingService)

func WithNotificationsTopic(topic string) TicketingServiceOption {
	return func(s *TicketingService) {
		s.notificationsTopic = topic
	}
}

func NewTicketingService(
	tickets repository.TicketRepository,
	holds repository.HoldRepository,
	catalog repository.CatalogRepository,
	guard Guard,
	producer Producer,
	clk clock.Clock,
	seatEventsTopic string,
	opts ...TicketingServiceOption,
) *TicketingService {
	service := &TicketingService{
		tickets:         tickets,
		holds:           holds,
		catalog:         catalog,
		guard:           guard,
		producer:        producer,
		clock:           clk,
		seatEventsTopic: seatEventsTopic,
	}
	for _, opt := range opts {
		opt(service)
	}
	return service
}

// CreateTicket turns an approved seat claim into a CREATED ticket. The
// passenger's own active hold on the seat, if any, is marked SOLD as a
// side effect so a hold and a sold ticket never coexist.
func (s *TicketingService) CreateTicket(ctx context.Context, input CreateTicketInput) (*domain.Ticket, error) {
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

	fromStop, err := s.catalog.GetStop(ctx, input.FromStopID)
	if err != nil {
		return nil, err
	}
	toStop, err := s.catalog.GetStop(ctx, input.ToStopID)
	if err != nil {
		return nil, err
	}
	if fromStop.RouteID != trip.RouteID || toStop.RouteID != trip.RouteID {
		return nil, domain.ErrStopsOffRoute
	}

	stretch := domain.StopRange{From: fromStop.StopOrder, To: toStop.StopOrder}
	if !stretch.Valid() {
		return nil, domain.ErrInvalidStopRange
	}

	if err := s.guard.CanSell(ctx, input.TripID, input.SeatNumber, stretch, input.PassengerID); err != nil {
		return nil, err
	}

	now := s.clock.Now()
	ticket := &domain.Ticket{
		TripID:        input.TripID,
		PassengerID:   input.PassengerID,
		SeatNumber:    input.SeatNumber,
		FromStopID:    input.FromStopID,
		ToStopID:      input.ToStopID,
		FromOrder:     fromStop.StopOrder,
		ToOrder:       toStop.StopOrder,
		PriceCents:    input.PriceCents,
		PaymentMethod: input.PaymentMethod,
		Status:        domain.TicketStatusCreated,
		QRPayload:     uuid.NewString(),
	}

	if err := s.tickets.Create(ctx, ticket); err != nil {
		return nil, err
	}

	if err := s.holds.MarkSoldActive(ctx, input.TripID, input.SeatNumber, input.PassengerID, now); err != nil {
		log.Printf("WARNING: failed to mark hold sold for trip %d seat %s: %v", input.TripID, input.SeatNumber, err)
	}

	s.publish(ctx, "ticket_created", ticket)
	return ticket, nil
}

// ConfirmPayment moves a CREATED ticket to SOLD.
func (s *TicketingService) ConfirmPayment(ctx context.Context, ticketID int64) (*domain.Ticket, error) {
	current, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if current.Status != domain.TicketStatusCreated {
		return nil, domain.ErrTicketNotPayable
	}

	updated, err := s.tickets.UpdateStatus(ctx, ticketID, domain.TicketStatusSold)
	if err != nil {
		return nil, err
	}

	s.publish(ctx, "ticket_sold", updated)
	return updated, nil
}

// CancelTicket frees the ticket's stretch for resale. Terminal tickets
// other than an already-cancelled one are rejected.
func (s *TicketingService) CancelTicket(ctx context.Context, ticketID int64) (*domain.Ticket, error) {
	current, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if current.Status == domain.TicketStatusCancelled {
		return current, nil
	}
	if current.Terminal() {
		return nil, domain.ErrTicketFinalized
	}

	updated, err := s.tickets.UpdateStatus(ctx, ticketID, domain.TicketStatusCancelled)
	if err != nil {
		return nil, err
	}

	s.publish(ctx, "ticket_cancelled", updated)
	return updated, nil
}

func (s *TicketingService) GetTicket(ctx context.Context, ticketID int64) (*domain.Ticket, error) {
	return s.tickets.GetByID(ctx, ticketID)
}

func (s *TicketingService) ListTickets(ctx context.Context, filter repository.TicketFilter) ([]domain.Ticket, error) {
	return s.tickets.List(ctx, filter)
}

// MarkNoShows flips CREATED and SOLD tickets of departed trips to
// NO_SHOW. Runs on the same cadence as the hold sweep; a failed run is
// retried by the next tick.
func (s *TicketingService) MarkNoShows(ctx context.Context) ([]domain.Ticket, error) {
	flipped, err := s.tickets.MarkNoShowsBefore(ctx, s.clock.Now())
	if err != nil {
		return nil, err
	}
	for i := range flipped {
		s.publish(ctx, "ticket_no_show", &flipped[i])
	}
	return flipped, nil
}

func (s *TicketingService) publish(ctx context.Context, eventType string, ticket *domain.Ticket) {
	if s.producer == nil || s.seatEventsTopic == "" {
		return
	}
	event := kafka.SeatEvent{
		Type:        eventType,
		TripID:      ticket.TripID,
		SeatNumber:  ticket.SeatNumber,
		PassengerID: ticket.PassengerID,
		Status:      string(ticket.Status),
		TicketID:    ticket.ID,
	}
	key := fmt.Sprintf("%d:%s", ticket.TripID, ticket.SeatNumber)
	if err := s.producer.Publish(ctx, s.seatEventsTopic, key, event); err != nil {
		log.Printf("WARNING: failed to publish %s event for ticket %d: %v", eventType, ticket.ID, err)
		return
	}
	if s.notificationsTopic != "" {
		if err := s.producer.Publish(ctx, s.notificationsTopic, key, event); err != nil {
			log.Printf("WARNING: failed to publish %s notification for ticket %d: %v", eventType, ticket.ID, err)
		}
	}
}

var _ TicketingUseCase = (*TicketingService)(nil)
