package api

import (
	"net/http"
	"time"

	"github.com/Domenick1991/rentwheels/internal/service/booking"
	"github.com/gin-gonic/gin"
)

type BookingHandler struct {
	service booking.BookingUseCase
}

type bookingRequest struct {
	VehicleID      string    `json:"vehicle_id" binding:"required"`
	PickupAt       time.Time `json:"pickup_at" binding:"required,future"`
	ReturnAt       time.Time `json:"return_at" binding:"required,gtfield=PickupAt"`
	PickupLocation string    `json:"pickup_location" binding:"max=255"`
	Notes          string    `json:"notes" binding:"max=1000"`
}

func (r bookingRequest) toInput() booking.BookingRequest {
	return booking.BookingRequest{
		VehicleID:      r.VehicleID,
		PickupAt:       r.PickupAt,
		ReturnAt:       r.ReturnAt,
		PickupLocation: r.PickupLocation,
		Notes:          r.Notes,
	}
}

type confirmRequest struct {
	OrderID   string          `json:"order_id"`
	PaymentID string          `json:"payment_id" binding:"required"`
	Signature string          `json:"signature"`
	Intent    *bookingRequest `json:"intent"`
}

type cancelRequest struct {
	Reason string `json:"reason" binding:"max=500"`
}

type modifyRequest struct {
	PickupAt       *time.Time `json:"pickup_at"`
	ReturnAt       *time.Time `json:"return_at"`
	PickupLocation *string    `json:"pickup_location" binding:"omitempty,max=255"`
	Notes          *string    `json:"notes" binding:"omitempty,max=1000"`
}

func NewBookingHandler(service booking.BookingUseCase) *BookingHandler {
	return &BookingHandler{service: service}
}

func (h *BookingHandler) Register(router *gin.RouterGroup) {
	router.POST("/quote", h.quote)

	authed := router.Group("", RequireUser())
	authed.GET("", h.list)
	authed.POST("/orders", h.createOrder)
	authed.POST("/orders/:orderId/abandon", h.abandon)
	authed.POST("/checkout", h.checkout)
	authed.POST("/confirm", h.confirm)
	authed.GET("/:id", h.get)
	authed.PATCH("/:id", h.modify)
	authed.POST("/:id/cancel", h.cancel)
}

func (h *BookingHandler) quote(c *gin.Context) {
	var req bookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	q, err := h.service.Quote(c.Request.Context(), req.toInput())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, q)
}

func (h *BookingHandler) createOrder(c *gin.Context) {
	var req bookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	order, err := h.service.CreateOrder(c.Request.Context(), currentUser(c), req.toInput())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, order)
}

func (h *BookingHandler) checkout(c *gin.Context) {
	var req bookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	order, err := h.service.CreatePendingBooking(c.Request.Context(), currentUser(c), req.toInput())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, order)
}

func (h *BookingHandler) confirm(c *gin.Context) {
	var req confirmRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	input := booking.ConfirmInput{OrderID: req.OrderID, PaymentID: req.PaymentID, Signature: req.Signature}
	if req.Intent != nil {
		intent := req.Intent.toInput()
		input.Intent = &intent
	}

	b, err := h.service.ConfirmPayment(c.Request.Context(), currentUser(c), input)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, b)
}

func (h *BookingHandler) abandon(c *gin.Context) {
	if err := h.service.AbandonPayment(c.Request.Context(), currentUser(c), c.Param("orderId")); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *BookingHandler) list(c *gin.Context) {
	bookings, err := h.service.ListUserBookings(c.Request.Context(), currentUser(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, bookings)
}

func (h *BookingHandler) get(c *gin.Context) {
	b, err := h.service.GetBooking(c.Request.Context(), currentUser(c), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, b)
}

func (h *BookingHandler) cancel(c *gin.Context) {
	var req cancelRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err)
			return
		}
	}
	res, err := h.service.CancelBooking(c.Request.Context(), currentUser(c), c.Param("id"), req.Reason)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *BookingHandler) modify(c *gin.Context) {
	var req modifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	res, err := h.service.ModifyBooking(c.Request.Context(), currentUser(c), c.Param("id"), booking.ModifyInput{
		PickupAt:       req.PickupAt,
		ReturnAt:       req.ReturnAt,
		PickupLocation: req.PickupLocation,
		Notes:          req.Notes,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}
