package api

import (
	"net/http"

	"github.com/Domenick1991/rentwheels/internal/service/booking"
	"github.com/Domenick1991/rentwheels/internal/service/vehicles"
	"github.com/gin-gonic/gin"
)

// NewRouter wires every route under /api/v1.
func NewRouter(vehicleSvc vehicles.VehicleUseCase, bookingSvc booking.BookingUseCase) *gin.Engine {
	RegisterValidators()

	router := gin.New()
	router.Use(gin.Recovery(), RequestLogger())

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	v1 := router.Group("/api/v1")
	NewVehicleHandler(vehicleSvc).Register(v1.Group("/vehicles"))
	NewBookingHandler(bookingSvc).Register(v1.Group("/bookings"))
	return router
}
