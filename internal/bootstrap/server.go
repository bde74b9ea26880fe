package bootstrap

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/velmon/busline/api"
	"github.com/velmon/busline/config"
	"github.com/velmon/busline/internal/service/reservation"
	"github.com/velmon/busline/internal/service/ticketing"
	"github.com/velmon/busline/internal/service/trips"
)

// Run starts the HTTP server and blocks until the context is canceled or
// the server fails.
func Run(ctx context.Context, cfg *config.Config, tripSvc trips.TripUseCase, reservationSvc reservation.ReservationUseCase, ticketingSvc ticketing.TicketingUseCase) error {
	router := gin.Default()

	api.NewTripHandler(tripSvc).Register(router.Group("/trips"))
	api.NewHoldHandler(reservationSvc).Register(router.Group("/holds"))
	api.NewTicketHandler(ticketingSvc).Register(router.Group("/tickets"))

	server := &http.Server{
		Addr:    cfg.HTTP.Address,
		Handler: router,
	}

	errCh := make(chan error, 1)
	go func() { errCh <- server.ListenAndServe() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	}
}
