package api

import (
	"net/http"
	"time"

	"github.com/Domenick1991/rentwheels/internal/domain"
	"github.com/Domenick1991/rentwheels/internal/service/vehicles"
	"github.com/gin-gonic/gin"
)

type VehicleHandler struct {
	service vehicles.VehicleUseCase
}

type searchQuery struct {
	Location string `form:"location" binding:"max=255"`
	Pickup   string `form:"pickup"`
	Return   string `form:"return"`
}

type availabilityResponse struct {
	VehicleID string            `json:"vehicle_id"`
	Booked    []domain.Interval `json:"booked"`
}

func NewVehicleHandler(service vehicles.VehicleUseCase) *VehicleHandler {
	return &VehicleHandler{service: service}
}

func (h *VehicleHandler) Register(router *gin.RouterGroup) {
	router.GET("", h.list)
	router.GET("/:id", h.get)
	router.GET("/:id/availability", h.availability)
}

func (h *VehicleHandler) list(c *gin.Context) {
	var q searchQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		badRequest(c, err)
		return
	}

	window, err := parseWindow(q.Pickup, q.Return)
	if err != nil {
		writeError(c, err)
		return
	}

	list, err := h.service.Search(c.Request.Context(), domain.VehicleFilter{Location: q.Location}, window)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

// parseWindow accepts both bounds or neither, as RFC 3339 timestamps.
func parseWindow(pickup, ret string) (*domain.Interval, error) {
	if pickup == "" && ret == "" {
		return nil, nil
	}
	if pickup == "" || ret == "" {
		return nil, domain.Validationf("pickup and return must be given together")
	}
	start, err := time.Parse(time.RFC3339, pickup)
	if err != nil {
		return nil, domain.Validationf("invalid pickup time %q", pickup)
	}
	end, err := time.Parse(time.RFC3339, ret)
	if err != nil {
		return nil, domain.Validationf("invalid return time %q", ret)
	}
	return &domain.Interval{Start: start, End: end}, nil
}

func (h *VehicleHandler) get(c *gin.Context) {
	vehicle, err := h.service.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, vehicle)
}

func (h *VehicleHandler) availability(c *gin.Context) {
	id := c.Param("id")
	booked, err := h.service.BookedIntervals(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, availabilityResponse{VehicleID: id, Booked: booked})
}
