package booking

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Domenick1991/rentwheels/internal/domain"
	"github.com/Domenick1991/rentwheels/internal/pricing"
	log "github.com/sirupsen/logrus"
)

const defaultCancelReason = "No reason provided"

type CancelResult struct {
	Booking *domain.Booking   `json:"booking"`
	Refund  domain.RefundInfo `json:"refund"`
}

// ModifyInput carries only the fields being changed.
type ModifyInput struct {
	PickupAt       *time.Time `json:"pickup_at,omitempty"`
	ReturnAt       *time.Time `json:"return_at,omitempty"`
	PickupLocation *string    `json:"pickup_location,omitempty"`
	Notes          *string    `json:"notes,omitempty"`
}

func (in ModifyInput) empty() bool {
	return in.PickupAt == nil && in.ReturnAt == nil && in.PickupLocation == nil && in.Notes == nil
}

type ModifyResult struct {
	Booking          *domain.Booking         `json:"booking"`
	Previous         *domain.BookingSnapshot `json:"previous"`
	AmountDeltaMinor int64                   `json:"amount_delta"`
}

func (s *BookingService) ownedBooking(ctx context.Context, userID, bookingID string) (*domain.Booking, error) {
	if userID == "" {
		return nil, domain.Validationf("user id is required")
	}
	if bookingID == "" {
		return nil, domain.Validationf("booking id is required")
	}
	return s.GetBooking(ctx, userID, bookingID)
}

// CancelBooking cancels an owned booking more than the cancel cutoff before pickup and computes
// the refund owed by the tiered policy. The refund itself is processed manually.
func (s *BookingService) CancelBooking(ctx context.Context, userID, bookingID, reason string) (*CancelResult, error) {
	existing, err := s.ownedBooking(ctx, userID, bookingID)
	if err != nil {
		return nil, err
	}

	reason = strings.TrimSpace(reason)
	if reason == "" {
		reason = defaultCancelReason
	}

	var result *CancelResult
	err = s.withVehicleLock(ctx, existing.VehicleID, func() error {
		booking, err := s.GetBooking(ctx, userID, bookingID)
		if err != nil {
			return err
		}
		result, err = s.cancelLocked(ctx, booking, reason)
		return err
	})
	if err != nil {
		return nil, err
	}

	event := domain.NewBookingEvent(domain.EventBookingCancelled, result.Booking, s.now())
	event.Reason = reason
	event.Refund = &result.Refund
	s.dispatcher.Dispatch(ctx, event)

	log.WithFields(log.Fields{"booking_id": bookingID, "refund_percent": result.Refund.Percent, "refund_minor": result.Refund.AmountMinor}).Info("booking cancelled")
	return result, nil
}

func (s *BookingService) cancelLocked(ctx context.Context, booking *domain.Booking, reason string) (*CancelResult, error) {
	if booking.Status.Terminal() {
		return nil, domain.Policyf("booking is already %s", booking.Status)
	}

	now := s.now()
	untilPickup := booking.PickupAt.Sub(now)
	if untilPickup < s.policy.CancelCutoff {
		return nil, domain.Policyf("bookings cannot be cancelled less than %s before pickup", formatHours(s.policy.CancelCutoff))
	}

	refund := pricing.RefundFor(untilPickup.Hours(), booking.AmountMinor)
	if booking.PaymentStatus != domain.PaymentStatusPaid {
		refund.AmountMinor = 0
	}

	booking.Status = domain.BookingStatusCancelled
	booking.AppendNote(fmt.Sprintf("[CANCELLED: %s]", reason))
	booking.UpdatedAt = now
	if err := s.bookings.Update(ctx, booking); err != nil {
		return nil, domain.StoreErr("cancel booking", err)
	}
	return &CancelResult{Booking: booking, Refund: refund}, nil
}

// ModifyBooking changes times, location or notes of an owned booking more than the modify cutoff
// before pickup. New times are rechecked against every other booking of the vehicle and repriced
// at the vehicle's current rate; the booking then waits for re-approval.
func (s *BookingService) ModifyBooking(ctx context.Context, userID, bookingID string, input ModifyInput) (*ModifyResult, error) {
	if input.empty() {
		return nil, domain.Validationf("nothing to modify")
	}
	existing, err := s.ownedBooking(ctx, userID, bookingID)
	if err != nil {
		return nil, err
	}

	// The vehicle never changes, so its lock covers the row for the whole read-check-write.
	var result *ModifyResult
	err = s.withVehicleLock(ctx, existing.VehicleID, func() error {
		current, err := s.GetBooking(ctx, userID, bookingID)
		if err != nil {
			return err
		}
		result, err = s.modifyLocked(ctx, current, input)
		return err
	})
	if err != nil {
		return nil, err
	}

	event := domain.NewBookingEvent(domain.EventBookingModified, result.Booking, s.now())
	event.Previous = result.Previous
	event.AmountDeltaMinor = result.AmountDeltaMinor
	s.dispatcher.Dispatch(ctx, event)

	log.WithFields(log.Fields{"booking_id": bookingID, "amount_delta": result.AmountDeltaMinor}).Info("booking modified")
	return result, nil
}

func (s *BookingService) modifyLocked(ctx context.Context, current *domain.Booking, input ModifyInput) (*ModifyResult, error) {
	if current.Status.Terminal() {
		return nil, domain.Policyf("%s bookings cannot be modified", current.Status)
	}
	if current.ExpiresAt != nil && current.PaymentStatus == domain.PaymentStatusPending {
		return nil, domain.Policyf("booking is awaiting payment")
	}

	now := s.now()
	if current.PickupAt.Sub(now) < s.policy.ModifyCutoff {
		return nil, domain.Policyf("bookings cannot be modified less than %s before pickup", formatHours(s.policy.ModifyCutoff))
	}

	updated := *current
	previous := current.Snapshot()
	var changes []string

	if input.PickupAt != nil && !input.PickupAt.Equal(current.PickupAt) {
		updated.PickupAt = *input.PickupAt
		changes = append(changes, fmt.Sprintf("pickup %s -> %s", stamp(current.PickupAt), stamp(updated.PickupAt)))
	}
	if input.ReturnAt != nil && !input.ReturnAt.Equal(current.ReturnAt) {
		updated.ReturnAt = *input.ReturnAt
		changes = append(changes, fmt.Sprintf("return %s -> %s", stamp(current.ReturnAt), stamp(updated.ReturnAt)))
	}
	timesChanged := len(changes) > 0

	if input.PickupLocation != nil && *input.PickupLocation != current.PickupLocation {
		updated.PickupLocation = *input.PickupLocation
		changes = append(changes, fmt.Sprintf("location %q -> %q", current.PickupLocation, updated.PickupLocation))
	}
	if input.Notes != nil && strings.TrimSpace(*input.Notes) != "" {
		updated.AppendNote(strings.TrimSpace(*input.Notes))
		changes = append(changes, "notes updated")
	}
	if len(changes) == 0 {
		return nil, domain.Validationf("nothing to modify")
	}

	if timesChanged {
		if err := s.reprice(ctx, &updated); err != nil {
			return nil, err
		}
		ok, err := s.checker.IsAvailableExcluding(ctx, updated.VehicleID, updated.Interval(), updated.ID)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, domain.ErrAvailabilityConflict
		}
	}

	updated.AppendNote(fmt.Sprintf("[MODIFIED: %s]", strings.Join(changes, "; ")))
	if s.policy.RequireReapproval {
		updated.Status = domain.BookingStatusPending
	}
	updated.UpdatedAt = now
	if err := s.bookings.Update(ctx, &updated); err != nil {
		return nil, domain.StoreErr("modify booking", err)
	}

	return &ModifyResult{
		Booking:          &updated,
		Previous:         previous,
		AmountDeltaMinor: updated.AmountMinor - current.AmountMinor,
	}, nil
}

// reprice validates the new interval and prices it at the vehicle's current rate.
func (s *BookingService) reprice(ctx context.Context, updated *domain.Booking) error {
	candidate := updated.Interval()
	if !candidate.Valid() {
		return domain.Validationf("return time must be after pickup time")
	}
	if !updated.PickupAt.After(s.now()) {
		return domain.Validationf("pickup time must be in the future")
	}
	if candidate.Duration() < s.policy.MinDuration {
		return domain.Validationf("minimum booking duration is %s", formatHours(s.policy.MinDuration))
	}

	vehicle, err := s.vehicles.GetByID(ctx, updated.VehicleID)
	if err != nil {
		return domain.StoreErr("get vehicle", err)
	}
	quote, err := pricing.Calculate(updated.PickupAt, updated.ReturnAt, vehicle.HourlyRateMinor, s.policy.Pricing)
	if err != nil {
		return err
	}
	updated.TotalHours = quote.Hours
	updated.AmountMinor = quote.AmountMinor
	return nil
}

// ExpirePendingBookings deletes unpaid checkout rows whose hold has run out. It takes no vehicle lock:
// the delete only matches pending unpaid rows with a lapsed expiry, which a commit clears when it
// promotes a row, and a commit that loses its row to the sweep inserts the booking instead.
func (s *BookingService) ExpirePendingBookings(ctx context.Context) ([]domain.Booking, error) {
	now := s.now()
	expired, err := s.bookings.DeleteExpiredPending(ctx, now)
	if err != nil {
		return nil, domain.StoreErr("expire pending bookings", err)
	}

	events := make([]domain.BookingEvent, 0, len(expired))
	for i := range expired {
		events = append(events, domain.NewBookingEvent(domain.EventBookingExpired, &expired[i], now))
	}
	s.dispatcher.Dispatch(ctx, events...)
	return expired, nil
}

func stamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}
