package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/velmon/busline/internal/domain"
	"github.com/velmon/busline/internal/repository"
	"github.com/velmon/busline/internal/service/ticketing"
)

type TicketHandler struct {
	service ticketing.TicketingUseCase
}

type createTicketRequest struct {
	TripID        int64  `json:"trip_id"`
	PassengerID   int64  `json:"passenger_id"`
	SeatNumber    string `json:"seat_number"`
	FromStopID    int64  `json:"from_stop_id"`
	ToStopID      int64  `json:"to_stop_id"`
	PriceCents    int64  `json:"price_cents"`
	PaymentMethod string `json:"payment_method"`
}

type ticketResponse struct {
	ID            int64  `json:"id"`
	TripID        int64  `json:"trip_id"`
	PassengerID   int64  `json:"passenger_id"`
	SeatNumber    string `json:"seat_number"`
	FromStopID    int64  `json:"from_stop_id"`
	ToStopID      int64  `json:"to_stop_id"`
	PriceCents    int64  `json:"price_cents"`
	PaymentMethod string `json:"payment_method"`
	Status        string `json:"status"`
	QRPayload     string `json:"qr_payload"`
	CreatedAt     string `json:"created_at"`
}

func NewTicketHandler(service ticketing.TicketingUseCase) *TicketHandler {
	return &TicketHandler{service: service}
}

func (h *TicketHandler) Register(router *gin.RouterGroup) {
	router.POST("/", h.create)
	router.GET("/", h.list)
	router.GET("/:id", h.get)
	router.POST("/:id/confirm", h.confirm)
	router.DELETE("/:id", h.cancel)
}

func toTicketResponse(ticket *domain.Ticket) ticketResponse {
	return ticketResponse{
		ID:            ticket.ID,
		TripID:        ticket.TripID,
		PassengerID:   ticket.PassengerID,
		SeatNumber:    ticket.SeatNumber,
		FromStopID:    ticket.FromStopID,
		ToStopID:      ticket.ToStopID,
		PriceCents:    ticket.PriceCents,
		PaymentMethod: string(ticket.PaymentMethod),
		Status:        string(ticket.Status),
		QRPayload:     ticket.QRPayload,
		CreatedAt:     ticket.CreatedAt.Format(time.RFC3339),
	}
}

func (h *TicketHandler) create(c *gin.Context) {
	var req createTicketRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ticket, err := h.service.CreateTicket(c.Request.Context(), ticketing.CreateTicketInput{
		TripID:        req.TripID,
		PassengerID:   req.PassengerID,
		SeatNumber:    req.SeatNumber,
		FromStopID:    req.FromStopID,
		ToStopID:      req.ToStopID,
		PriceCents:    req.PriceCents,
		PaymentMethod: domain.PaymentMethod(req.PaymentMethod),
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, toTicketResponse(ticket))
}

func (h *TicketHandler) get(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid ticket id"})
		return
	}

	ticket, err := h.service.GetTicket(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, toTicketResponse(ticket))
}

func (h *TicketHandler) confirm(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid ticket id"})
		return
	}

	ticket, err := h.service.ConfirmPayment(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, toTicketResponse(ticket))
}

func (h *TicketHandler) cancel(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid ticket id"})
		return
	}

	ticket, err := h.service.CancelTicket(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, toTicketResponse(ticket))
}

func (h *TicketHandler) list(c *gin.Context) {
	var filter repository.TicketFilter
	if v := c.Query("trip_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid trip_id"})
			return
		}
		filter.TripID = &id
	}
	if v := c.Query("passenger_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid passenger_id"})
			return
		}
		filter.PassengerID = &id
	}
	if v := c.Query("status"); v != "" {
		status := domain.TicketStatus(v)
		filter.Status = &status
	}

	tickets, err := h.service.ListTickets(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}

	out := make([]ticketResponse, 0, len(tickets))
	for i := range tickets {
		out = append(out, toTicketResponse(&tickets[i]))
	}
	c.JSON(http.StatusOK, out)
}
