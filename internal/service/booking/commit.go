package booking

import (
	"context"
	"errors"
	"strings"

	"github.com/Domenick1991/rentwheels/internal/domain"
	"github.com/Domenick1991/rentwheels/internal/payment"
	"github.com/Domenick1991/rentwheels/internal/pricing"
	log "github.com/sirupsen/logrus"
)

// ConfirmInput is what the client returns after checkout.
type ConfirmInput struct {
	OrderID   string `json:"order_id"`
	PaymentID string `json:"payment_id"`
	Signature string `json:"signature"`
	// Intent is read only on the test-payment path when there is no order to recover it from.
	Intent *BookingRequest `json:"intent,omitempty"`
}

// resolved is the booking a payment is about to commit.
type resolved struct {
	pending *domain.Booking
	intent  payment.BookingIntent
}

// ConfirmPayment verifies the payment, rechecks availability under the vehicle lock and commits
// the booking as confirmed. Events are dispatched after the commit and never undo it.
func (s *BookingService) ConfirmPayment(ctx context.Context, userID string, input ConfirmInput) (*domain.Booking, error) {
	booking, events, err := s.commit(ctx, userID, input)
	if err != nil {
		return nil, err
	}
	s.dispatcher.Dispatch(ctx, events...)
	return booking, nil
}

func (s *BookingService) isTestPayment(paymentID string) bool {
	return s.policy.AllowTestPayments &&
		s.policy.TestPaymentPrefix != "" &&
		strings.HasPrefix(paymentID, s.policy.TestPaymentPrefix)
}

func (s *BookingService) commit(ctx context.Context, userID string, input ConfirmInput) (*domain.Booking, []domain.BookingEvent, error) {
	if userID == "" {
		return nil, nil, domain.Validationf("user id is required")
	}
	if input.PaymentID == "" {
		return nil, nil, domain.Validationf("payment id is required")
	}

	testPayment := s.isTestPayment(input.PaymentID)
	if !testPayment {
		if input.OrderID == "" || input.Signature == "" {
			return nil, nil, domain.Validationf("order id and signature are required")
		}
		if !s.gateway.VerifyPaymentSignature(input.OrderID, input.PaymentID, input.Signature) {
			log.WithFields(log.Fields{"order_id": input.OrderID, "payment_id": input.PaymentID}).Warn("payment signature mismatch")
			return nil, nil, domain.ErrPaymentVerificationFailed
		}
	}

	res, existing, err := s.resolve(ctx, userID, input, testPayment)
	if err != nil {
		return nil, nil, err
	}
	if existing != nil {
		return existing, nil, nil
	}

	candidate := domain.Interval{Start: res.intent.PickupAt, End: res.intent.ReturnAt}
	if !candidate.Valid() {
		return nil, nil, domain.Validationf("return time must be after pickup time")
	}

	var (
		booking   *domain.Booking
		committed bool
	)
	err = s.withVehicleLock(ctx, res.intent.VehicleID, func() error {
		current, pending, err := s.reload(ctx, userID, input)
		if err != nil {
			return err
		}
		if current != nil {
			booking = current
			return nil
		}
		res.pending = pending

		excludeID := ""
		if pending != nil {
			excludeID = pending.ID
		}
		ok, err := s.checker.IsAvailableExcluding(ctx, res.intent.VehicleID, candidate, excludeID)
		if err != nil {
			return err
		}
		if !ok {
			if pending != nil {
				s.compensate(ctx, pending.ID, "slot taken during payment")
			}
			log.WithFields(log.Fields{
				"vehicle_id": res.intent.VehicleID,
				"payment_id": input.PaymentID,
				"order_id":   input.OrderID,
			}).Warn("slot taken during payment, manual refund required")
			return &domain.CommitConflictError{PaymentID: input.PaymentID}
		}

		booking, err = s.write(ctx, res, input, testPayment)
		committed = err == nil
		return err
	})
	if err != nil {
		return nil, nil, err
	}
	if !committed {
		return booking, nil, nil
	}

	log.WithFields(log.Fields{"booking_id": booking.ID, "payment_id": booking.PaymentID, "test": testPayment}).Info("booking confirmed")
	return booking, []domain.BookingEvent{domain.NewBookingEvent(domain.EventBookingConfirmed, booking, s.now())}, nil
}

// resolve finds the intent for a payment: the pending row for the order if one exists, otherwise the
// provider order's notes. A booking already committed for the same payment is returned as existing.
func (s *BookingService) resolve(ctx context.Context, userID string, input ConfirmInput, testPayment bool) (resolved, *domain.Booking, error) {
	if input.OrderID != "" {
		row, err := s.bookings.GetByOrderID(ctx, input.OrderID)
		switch {
		case err == nil:
			if row.UserID != userID {
				return resolved{}, nil, domain.ErrNotFound
			}
			if row.Status != domain.BookingStatusPending || row.ExpiresAt == nil {
				if row.PaymentID == input.PaymentID && row.Status.Blocking() {
					return resolved{}, row, nil
				}
				return resolved{}, nil, domain.Validationf("order %s is not awaiting payment", input.OrderID)
			}
			return resolved{pending: row, intent: intentFromBooking(row)}, nil, nil
		case !errors.Is(err, domain.ErrNotFound):
			return resolved{}, nil, domain.StoreErr("get booking by order", err)
		}
	}

	if testPayment && input.Intent != nil {
		intent, err := s.testIntent(ctx, userID, *input.Intent)
		return resolved{intent: intent}, nil, err
	}
	if input.OrderID == "" {
		return resolved{}, nil, domain.Validationf("order id is required")
	}

	order, err := s.gateway.FetchOrder(ctx, input.OrderID)
	if err != nil {
		return resolved{}, nil, err
	}
	intent, err := payment.IntentFromNotes(order.Notes, order.AmountMinor)
	if err != nil {
		return resolved{}, nil, domain.Validationf("%s", err.Error())
	}
	if intent.UserID != userID {
		return resolved{}, nil, domain.ErrPaymentVerificationFailed
	}
	return resolved{intent: intent}, nil, nil
}

// reload reads the order's row again under the vehicle lock. It returns the booking when this payment
// is already committed, or the pending row still waiting for it. No row means the hold was swept or
// never written, and the intent alone is inserted.
func (s *BookingService) reload(ctx context.Context, userID string, input ConfirmInput) (*domain.Booking, *domain.Booking, error) {
	if input.OrderID == "" {
		return nil, nil, nil
	}
	row, err := s.bookings.GetByOrderID(ctx, input.OrderID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, domain.StoreErr("get booking by order", err)
	}
	if row.UserID != userID {
		return nil, nil, domain.ErrNotFound
	}
	if row.PaymentID == input.PaymentID && row.Status.Blocking() && row.ExpiresAt == nil {
		return row, nil, nil
	}
	if row.Status == domain.BookingStatusPending && row.ExpiresAt != nil {
		return nil, row, nil
	}

	log.WithFields(log.Fields{"booking_id": row.ID, "status": row.Status, "payment_id": input.PaymentID}).
		Warn("order settled elsewhere while payment was in flight, manual refund required")
	return nil, nil, &domain.CommitConflictError{PaymentID: input.PaymentID}
}

func (s *BookingService) testIntent(ctx context.Context, userID string, req BookingRequest) (payment.BookingIntent, error) {
	quote, err := s.Quote(ctx, req)
	if err != nil {
		return payment.BookingIntent{}, err
	}
	return payment.BookingIntent{
		VehicleID:           req.VehicleID,
		UserID:              userID,
		PickupAt:            req.PickupAt,
		ReturnAt:            req.ReturnAt,
		PickupLocation:      req.PickupLocation,
		Notes:               req.Notes,
		TotalHours:          quote.Hours,
		AmountMinor:         quote.AmountMinor,
		OriginalAmountMinor: quote.OriginalAmountMinor,
		TestMode:            true,
	}, nil
}

func intentFromBooking(b *domain.Booking) payment.BookingIntent {
	return payment.BookingIntent{
		VehicleID:      b.VehicleID,
		UserID:         b.UserID,
		PickupAt:       b.PickupAt,
		ReturnAt:       b.ReturnAt,
		PickupLocation: b.PickupLocation,
		Notes:          b.Notes,
		TotalHours:     b.TotalHours,
		AmountMinor:    b.AmountMinor,
	}
}

// write promotes the pending row or inserts a new confirmed booking, keeping the pending row's id if it
// vanished. Must run under the vehicle lock.
func (s *BookingService) write(ctx context.Context, res resolved, input ConfirmInput, testPayment bool) (*domain.Booking, error) {
	now := s.now()
	paymentStatus := domain.PaymentStatusPaid
	if testPayment {
		paymentStatus = domain.PaymentStatusPending
	}

	if res.pending != nil {
		b := *res.pending
		b.Status = domain.BookingStatusConfirmed
		b.PaymentStatus = paymentStatus
		b.PaymentID = input.PaymentID
		b.ExpiresAt = nil
		b.UpdatedAt = now
		err := s.bookings.Update(ctx, &b)
		if err == nil {
			return &b, nil
		}
		if !errors.Is(err, domain.ErrNotFound) {
			return nil, domain.StoreErr("confirm pending booking", err)
		}
		// The sweeper removed the hold after it was read; the slot was already rechecked without it.
		log.WithFields(log.Fields{"booking_id": b.ID, "order_id": input.OrderID}).Warn("pending hold expired during payment, inserting booking")
	}

	hours := res.intent.TotalHours
	if hours == 0 {
		hours = pricing.BillableHours(res.intent.PickupAt, res.intent.ReturnAt, s.policy.Pricing.MinBillableHours)
	}
	id := s.newID()
	if res.pending != nil {
		id = res.pending.ID
	}
	b := &domain.Booking{
		ID:             id,
		VehicleID:      res.intent.VehicleID,
		UserID:         res.intent.UserID,
		PickupLocation: res.intent.PickupLocation,
		PickupAt:       res.intent.PickupAt,
		ReturnAt:       res.intent.ReturnAt,
		TotalHours:     hours,
		AmountMinor:    res.intent.AmountMinor,
		Currency:       s.policy.Currency,
		Status:         domain.BookingStatusConfirmed,
		PaymentStatus:  paymentStatus,
		PaymentID:      input.PaymentID,
		OrderID:        input.OrderID,
		Notes:          res.intent.Notes,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.bookings.Create(ctx, b); err != nil {
		return nil, domain.StoreErr("create confirmed booking", err)
	}
	return b, nil
}

// AbandonPayment deletes the pending row of an order whose payment failed or was dismissed.
// An order with no row is a no-op.
func (s *BookingService) AbandonPayment(ctx context.Context, userID, orderID string) error {
	if orderID == "" {
		return domain.Validationf("order id is required")
	}
	row, err := s.bookings.GetByOrderID(ctx, orderID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil
		}
		return domain.StoreErr("get booking by order", err)
	}
	if row.UserID != userID {
		return domain.ErrNotFound
	}
	if row.Status != domain.BookingStatusPending || row.PaymentStatus != domain.PaymentStatusPending || row.ExpiresAt == nil {
		return domain.Policyf("booking %s is no longer awaiting payment", row.ID)
	}

	if err := s.bookings.Delete(ctx, row.ID); err != nil && !errors.Is(err, domain.ErrNotFound) {
		return domain.StoreErr("delete abandoned booking", err)
	}
	log.WithFields(log.Fields{"booking_id": row.ID, "order_id": orderID}).Info("abandoned payment cleaned up")
	return nil
}
