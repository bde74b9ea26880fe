package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/velmon/busline/internal/domain"
	"github.com/velmon/busline/internal/service/trips"
)

type TripHandler struct {
	service trips.TripUseCase
}

type tripResponse struct {
	ID          int64  `json:"id"`
	RouteID     int64  `json:"route_id"`
	Status      string `json:"status"`
	DepartureAt string `json:"departure_at"`
}

func NewTripHandler(service trips.TripUseCase) *TripHandler {
	return &TripHandler{service: service}
}

func (h *TripHandler) Register(router *gin.RouterGroup) {
	router.GET("/", h.list)
	router.GET("/:id", h.get)
}

func toTripResponse(trip *domain.Trip) tripResponse {
	return tripResponse{
		ID:          trip.ID,
		RouteID:     trip.RouteID,
		Status:      string(trip.Status),
		DepartureAt: trip.DepartureAt.Format(time.RFC3339),
	}
}

func (h *TripHandler) list(c *gin.Context) {
	list, err := h.service.List(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	out := make([]tripResponse, 0, len(list))
	for i := range list {
		out = append(out, toTripResponse(&list[i]))
	}
	c.JSON(http.StatusOK, out)
}

func (h *TripHandler) get(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid trip id"})
		return
	}

	trip, err := h.service.GetByID(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, toTripResponse(trip))
}
