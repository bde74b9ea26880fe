package notify

import (
	"context"
	"log"

	"github.com/velmon/busline/internal/kafka"
)

// Sender delivers passenger notifications for seat events consumed from
// the notifications topic. Delivery is a stub; the worker only cares
// about the consume-decode-notify loop.
type Sender struct{}

func NewSender() *Sender {
	return &Sender{}
}

func (s *Sender) Send(ctx context.Context, event kafka.SeatEvent) error {
	log.Printf("notify passenger %d about %s for trip %d seat %s", event.PassengerID, event.Type, event.TripID, event.SeatNumber)
	return nil
}
