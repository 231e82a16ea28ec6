package api

import (
	"errors"
	"net/http"

	"github.com/Domenick1991/rentwheels/internal/domain"
	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

type errorResponse struct {
	Error                string `json:"error"`
	Code                 string `json:"code"`
	PaymentID            string `json:"payment_id,omitempty"`
	RefundProcessingTime string `json:"refund_processing_time,omitempty"`
}

// writeError maps service errors onto HTTP statuses. Anything unrecognised is a 500 and is logged.
func writeError(c *gin.Context, err error) {
	var conflict *domain.CommitConflictError
	switch {
	case errors.As(err, &conflict):
		c.JSON(http.StatusConflict, errorResponse{
			Error:                err.Error(),
			Code:                 "slot_taken_after_payment",
			PaymentID:            conflict.PaymentID,
			RefundProcessingTime: domain.RefundProcessingTime,
		})
	case errors.Is(err, domain.ErrAvailabilityConflict):
		c.JSON(http.StatusConflict, errorResponse{Error: err.Error(), Code: "unavailable"})
	case errors.Is(err, domain.ErrValidation):
		c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error(), Code: "validation"})
	case errors.Is(err, domain.ErrPaymentVerificationFailed):
		c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error(), Code: "payment_verification_failed"})
	case errors.Is(err, domain.ErrPolicyViolation):
		c.JSON(http.StatusUnprocessableEntity, errorResponse{Error: err.Error(), Code: "policy"})
	case errors.Is(err, domain.ErrNotFound):
		c.JSON(http.StatusNotFound, errorResponse{Error: err.Error(), Code: "not_found"})
	case errors.Is(err, domain.ErrPaymentGateway):
		log.WithError(err).Warn("payment gateway failure")
		c.JSON(http.StatusBadGateway, errorResponse{Error: err.Error(), Code: "payment_gateway"})
	case errors.Is(err, domain.ErrLockTimeout):
		c.Header("Retry-After", "1")
		c.JSON(http.StatusServiceUnavailable, errorResponse{Error: err.Error(), Code: "busy"})
	case errors.Is(err, domain.ErrStore):
		log.WithError(err).Error("store failure")
		c.JSON(http.StatusServiceUnavailable, errorResponse{Error: "service temporarily unavailable", Code: "store"})
	default:
		log.WithError(err).Error("unhandled error")
		c.JSON(http.StatusInternalServerError, errorResponse{Error: "internal error", Code: "internal"})
	}
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error(), Code: "validation"})
}
