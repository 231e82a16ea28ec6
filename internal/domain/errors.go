package domain

import (
	"errors"
	"fmt"
)

var (
	ErrValidation                = errors.New("validation error")
	ErrAvailabilityConflict      = errors.New("vehicle is not available for the selected dates")
	ErrPaymentVerificationFailed = errors.New("payment verification failed")
	ErrPaymentGateway            = errors.New("payment gateway error")
	ErrPolicyViolation           = errors.New("policy violation")
	ErrStore                     = errors.New("store error")
	ErrNotFound                  = errors.New("not found")
	ErrLockTimeout               = errors.New("vehicle is busy, try again")
)

// RefundProcessingTime is the estimate surfaced to users for manual refunds.
const RefundProcessingTime = "3-5 business days"

// CommitConflictError reports a slot taken by someone else while the payer was paying.
// The payment stands and is refunded out of band.
type CommitConflictError struct {
	PaymentID string
}

func (e *CommitConflictError) Error() string {
	return fmt.Sprintf("this time slot was booked by someone else while you were making payment; "+
		"please select different dates, payment %s will be refunded within %s", e.PaymentID, RefundProcessingTime)
}

func (e *CommitConflictError) Unwrap() error {
	return ErrAvailabilityConflict
}

func Validationf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

func Policyf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrPolicyViolation, fmt.Sprintf(format, args...))
}

// StoreErr wraps a repository failure so callers can tell it apart from a conflict.
func StoreErr(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrStore) || errors.Is(err, ErrNotFound) {
		return err
	}
	return fmt.Errorf("%w: %s: %v", ErrStore, op, err)
}
