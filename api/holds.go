package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/velmon/busline/internal/domain"
	"github.com/velmon/busline/internal/repository"
	"github.com/velmon/busline/internal/service/reservation"
)

type HoldHandler struct {
	service reservation.ReservationUseCase
}

type createHoldRequest struct {
	TripID      int64  `json:"trip_id"`
	SeatNumber  string `json:"seat_number"`
	PassengerID int64  `json:"passenger_id"`
}

type updateHoldRequest struct {
	TripID      *int64  `json:"trip_id"`
	SeatNumber  *string `json:"seat_number"`
	PassengerID *int64  `json:"passenger_id"`
	Status      *string `json:"status"`
}

type holdResponse struct {
	ID          int64  `json:"id"`
	TripID      int64  `json:"trip_id"`
	SeatNumber  string `json:"seat_number"`
	PassengerID int64  `json:"passenger_id"`
	Status      string `json:"status"`
	ExpiresAt   string `json:"expires_at"`
}

func NewHoldHandler(service reservation.ReservationUseCase) *HoldHandler {
	return &HoldHandler{service: service}
}

func (h *HoldHandler) Register(router *gin.RouterGroup) {
	router.POST("/", h.create)
	router.GET("/", h.list)
	router.GET("/expired", h.listExpired)
	router.GET("/:id", h.get)
	router.PATCH("/:id", h.update)
	router.DELETE("/:id", h.cancel)
}

func toHoldResponse(hold *domain.SeatHold) holdResponse {
	return holdResponse{
		ID:          hold.ID,
		TripID:      hold.TripID,
		SeatNumber:  hold.SeatNumber,
		PassengerID: hold.PassengerID,
		Status:      string(hold.Status),
		ExpiresAt:   hold.ExpiresAt.Format(time.RFC3339),
	}
}

func (h *HoldHandler) create(c *gin.Context) {
	var req createHoldRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	hold, err := h.service.CreateHold(c.Request.Context(), reservation.CreateHoldInput{
		TripID:      req.TripID,
		SeatNumber:  req.SeatNumber,
		PassengerID: req.PassengerID,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, toHoldResponse(hold))
}

func (h *HoldHandler) get(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid hold id"})
		return
	}

	hold, err := h.service.GetHold(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, toHoldResponse(hold))
}

func (h *HoldHandler) update(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid hold id"})
		return
	}

	var req updateHoldRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	patch := domain.HoldPatch{
		TripID:      req.TripID,
		SeatNumber:  req.SeatNumber,
		PassengerID: req.PassengerID,
	}
	if req.Status != nil {
		status := domain.HoldStatus(*req.Status)
		patch.Status = &status
	}

	hold, err := h.service.UpdateHold(c.Request.Context(), id, patch)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, toHoldResponse(hold))
}

func (h *HoldHandler) cancel(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid hold id"})
		return
	}

	hold, err := h.service.CancelHold(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, toHoldResponse(hold))
}

func (h *HoldHandler) list(c *gin.Context) {
	var filter repository.HoldFilter
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
		status := domain.HoldStatus(v)
		filter.Status = &status
	}

	holds, err := h.service.ListHolds(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}

	out := make([]holdResponse, 0, len(holds))
	for i := range holds {
		out = append(out, toHoldResponse(&holds[i]))
	}
	c.JSON(http.StatusOK, out)
}

func (h *HoldHandler) listExpired(c *gin.Context) {
	holds, err := h.service.ListExpiredHolds(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	out := make([]holdResponse, 0, len(holds))
	for i := range holds {
		out = append(out, toHoldResponse(&holds[i]))
	}
	c.JSON(http.StatusOK, out)
}
