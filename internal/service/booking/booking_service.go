package booking

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Domenick1991/rentwheels/internal/availability"
	"github.com/Domenick1991/rentwheels/internal/domain"
	"github.com/Domenick1991/rentwheels/internal/payment"
	"github.com/Domenick1991/rentwheels/internal/pricing"
	"github.com/Domenick1991/rentwheels/internal/repository"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

type BookingUseCase interface {
	Quote(ctx context.Context, input BookingRequest) (*QuoteResult, error)
	CreateOrder(ctx context.Context, userID string, input BookingRequest) (*OrderResult, error)
	CreatePendingBooking(ctx context.Context, userID string, input BookingRequest) (*OrderResult, error)
	ConfirmPayment(ctx context.Context, userID string, input ConfirmInput) (*domain.Booking, error)
	AbandonPayment(ctx context.Context, userID, orderID string) error
	CancelBooking(ctx context.Context, userID, bookingID, reason string) (*CancelResult, error)
	ModifyBooking(ctx context.Context, userID, bookingID string, input ModifyInput) (*ModifyResult, error)
	ExpirePendingBookings(ctx context.Context) ([]domain.Booking, error)
	ListUserBookings(ctx context.Context, userID string) ([]domain.Booking, error)
	GetBooking(ctx context.Context, userID, bookingID string) (*domain.Booking, error)
}

// Locker hands out the per-vehicle advisory lock held across availability recheck and write.
type Locker interface {
	LockVehicle(ctx context.Context, vehicleID string) (unlock func(), err error)
}

type Policy struct {
	MinDuration  time.Duration
	CancelCutoff time.Duration
	ModifyCutoff time.Duration
	// PendingTTL bounds how long an unpaid checkout row holds its slot.
	PendingTTL time.Duration
	Currency   string
	Pricing    pricing.Policy
	// AllowTestPayments enables confirming with a TestPaymentPrefix payment id and no signature.
	AllowTestPayments bool
	TestPaymentPrefix string
	RequireReapproval bool
}

func DefaultPolicy() Policy {
	return Policy{
		MinDuration:       3 * time.Hour,
		CancelCutoff:      2 * time.Hour,
		ModifyCutoff:      4 * time.Hour,
		PendingTTL:        15 * time.Minute,
		Currency:          "INR",
		Pricing:           pricing.DefaultPolicy(),
		TestPaymentPrefix: "test_",
		RequireReapproval: true,
	}
}

type BookingService struct {
	bookings   repository.BookingRepository
	vehicles   repository.VehicleRepository
	checker    *availability.Checker
	gateway    payment.Gateway
	locker     Locker
	dispatcher *Dispatcher
	policy     Policy
	now        func() time.Time
	newID      func() string
}

type BookingServiceOption func(*BookingService)

func WithClock(now func() time.Time) BookingServiceOption {
	return func(s *BookingService) {
		s.now = now
	}
}

func WithDispatcher(d *Dispatcher) BookingServiceOption {
	return func(s *BookingService) {
		s.dispatcher = d
	}
}

func NewBookingService(
	bookings repository.BookingRepository,
	vehicles repository.VehicleRepository,
	gateway payment.Gateway,
	locker Locker,
	policy Policy,
	opts ...BookingServiceOption,
) *BookingService {
	service := &BookingService{
		bookings:   bookings,
		vehicles:   vehicles,
		gateway:    gateway,
		locker:     locker,
		dispatcher: NewDispatcher(nil, ""),
		policy:     policy,
		now:        time.Now,
		newID:      uuid.NewString,
	}
	for _, opt := range opts {
		opt(service)
	}
	service.checker = availability.NewChecker(bookings).WithClock(service.now)
	return service
}

// BookingRequest is the customer's intent before anything is persisted.
type BookingRequest struct {
	VehicleID      string    `json:"vehicle_id"`
	PickupAt       time.Time `json:"pickup_at"`
	ReturnAt       time.Time `json:"return_at"`
	PickupLocation string    `json:"pickup_location"`
	Notes          string    `json:"notes"`
}

func (r BookingRequest) Interval() domain.Interval {
	return domain.Interval{Start: r.PickupAt, End: r.ReturnAt}
}

type QuoteResult struct {
	VehicleID string `json:"vehicle_id"`
	Currency  string `json:"currency"`
	pricing.Quote
}

// OrderResult is what the client checkout needs. BookingID is set only when a pending row was written.
type OrderResult struct {
	OrderID     string `json:"order_id"`
	AmountMinor int64  `json:"amount"`
	Currency    string `json:"currency"`
	KeyID       string `json:"key_id"`
	BookingID   string `json:"booking_id,omitempty"`
	TestMode    bool   `json:"test_mode"`
}

func (s *BookingService) validateRequest(input BookingRequest) error {
	if input.VehicleID == "" {
		return domain.Validationf("vehicle id is required")
	}
	if input.PickupAt.IsZero() || input.ReturnAt.IsZero() {
		return domain.Validationf("pickup and return times are required")
	}
	if !input.ReturnAt.After(input.PickupAt) {
		return domain.Validationf("return time must be after pickup time")
	}
	if !input.PickupAt.After(s.now()) {
		return domain.Validationf("pickup time must be in the future")
	}
	if input.ReturnAt.Sub(input.PickupAt) < s.policy.MinDuration {
		return domain.Validationf("minimum booking duration is %s", formatHours(s.policy.MinDuration))
	}
	return nil
}

func (s *BookingService) rentableVehicle(ctx context.Context, vehicleID string) (*domain.Vehicle, error) {
	vehicle, err := s.vehicles.GetByID(ctx, vehicleID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.Validationf("vehicle %s does not exist", vehicleID)
		}
		return nil, domain.StoreErr("get vehicle", err)
	}
	if !vehicle.Available {
		return nil, fmt.Errorf("%w: vehicle is not offered for rent", domain.ErrAvailabilityConflict)
	}
	return vehicle, nil
}

func (s *BookingService) Quote(ctx context.Context, input BookingRequest) (*QuoteResult, error) {
	if err := s.validateRequest(input); err != nil {
		return nil, err
	}
	vehicle, err := s.rentableVehicle(ctx, input.VehicleID)
	if err != nil {
		return nil, err
	}
	q, err := pricing.Calculate(input.PickupAt, input.ReturnAt, vehicle.HourlyRateMinor, s.policy.Pricing)
	if err != nil {
		return nil, err
	}
	return &QuoteResult{VehicleID: vehicle.ID, Currency: s.policy.Currency, Quote: q}, nil
}

// CreateOrder is the order-first flow: nothing is written locally until payment is verified.
func (s *BookingService) CreateOrder(ctx context.Context, userID string, input BookingRequest) (*OrderResult, error) {
	if userID == "" {
		return nil, domain.Validationf("user id is required")
	}
	quote, err := s.Quote(ctx, input)
	if err != nil {
		return nil, err
	}

	ok, err := s.checker.IsAvailable(ctx, input.VehicleID, input.Interval())
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, domain.ErrAvailabilityConflict
	}

	order, err := s.gateway.CreateOrder(ctx, s.orderRequest(userID, input, quote, ""))
	if err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{"order_id": order.ID, "vehicle_id": input.VehicleID, "user_id": userID}).Info("payment order created")
	return s.orderResult(order, quote, ""), nil
}

// CreatePendingBooking is the pending-first flow: a time-boxed pending row holds the slot while the
// customer pays, and is deleted again if the order cannot be created.
func (s *BookingService) CreatePendingBooking(ctx context.Context, userID string, input BookingRequest) (*OrderResult, error) {
	if userID == "" {
		return nil, domain.Validationf("user id is required")
	}
	quote, err := s.Quote(ctx, input)
	if err != nil {
		return nil, err
	}

	now := s.now()
	expiresAt := now.Add(s.policy.PendingTTL)
	booking := &domain.Booking{
		ID:             s.newID(),
		VehicleID:      input.VehicleID,
		UserID:         userID,
		PickupLocation: input.PickupLocation,
		PickupAt:       input.PickupAt,
		ReturnAt:       input.ReturnAt,
		TotalHours:     quote.Hours,
		AmountMinor:    quote.AmountMinor,
		Currency:       s.policy.Currency,
		Status:         domain.BookingStatusPending,
		PaymentStatus:  domain.PaymentStatusPending,
		Notes:          input.Notes,
		ExpiresAt:      &expiresAt,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	err = s.withVehicleLock(ctx, input.VehicleID, func() error {
		ok, err := s.checker.IsAvailable(ctx, input.VehicleID, input.Interval())
		if err != nil {
			return err
		}
		if !ok {
			return domain.ErrAvailabilityConflict
		}
		return domain.StoreErr("create pending booking", s.bookings.Create(ctx, booking))
	})
	if err != nil {
		return nil, err
	}

	order, err := s.gateway.CreateOrder(ctx, s.orderRequest(userID, input, quote, booking.ID))
	if err != nil {
		s.compensate(ctx, booking.ID, "order creation failed")
		return nil, err
	}

	err = s.withVehicleLock(ctx, input.VehicleID, func() error {
		current, err := s.bookings.GetByID(ctx, booking.ID)
		if err != nil {
			return domain.StoreErr("reload pending booking", err)
		}
		if current.Status != domain.BookingStatusPending {
			return domain.Policyf("booking is already %s", current.Status)
		}
		current.OrderID = order.ID
		current.UpdatedAt = s.now()
		return domain.StoreErr("attach order to booking", s.bookings.Update(ctx, current))
	})
	if err != nil {
		s.compensate(ctx, booking.ID, "attach order failed")
		return nil, err
	}

	log.WithFields(log.Fields{"booking_id": booking.ID, "order_id": order.ID, "expires_at": expiresAt}).Info("pending booking created")
	return s.orderResult(order, quote, booking.ID), nil
}

func (s *BookingService) orderRequest(userID string, input BookingRequest, quote *QuoteResult, receipt string) payment.OrderRequest {
	intent := payment.BookingIntent{
		VehicleID:           input.VehicleID,
		UserID:              userID,
		PickupAt:            input.PickupAt,
		ReturnAt:            input.ReturnAt,
		PickupLocation:      input.PickupLocation,
		Notes:               input.Notes,
		TotalHours:          quote.Hours,
		AmountMinor:         quote.AmountMinor,
		OriginalAmountMinor: quote.OriginalAmountMinor,
		TestMode:            quote.TestMode,
	}
	if receipt == "" {
		// Provider receipts are capped at 40 characters.
		receipt = "rcpt_" + strings.ReplaceAll(s.newID(), "-", "")
	}
	return payment.OrderRequest{
		AmountMinor: quote.AmountMinor,
		Currency:    s.policy.Currency,
		Receipt:     receipt,
		Notes:       intent.ToNotes(),
	}
}

func (s *BookingService) orderResult(order *payment.Order, quote *QuoteResult, bookingID string) *OrderResult {
	currency := order.Currency
	if currency == "" {
		currency = s.policy.Currency
	}
	amount := order.AmountMinor
	if amount == 0 {
		amount = quote.AmountMinor
	}
	return &OrderResult{
		OrderID:     order.ID,
		AmountMinor: amount,
		Currency:    currency,
		KeyID:       s.gateway.KeyID(),
		BookingID:   bookingID,
		TestMode:    quote.TestMode,
	}
}

func (s *BookingService) withVehicleLock(ctx context.Context, vehicleID string, fn func() error) error {
	unlock, err := s.locker.LockVehicle(ctx, vehicleID)
	if err != nil {
		return err
	}
	defer unlock()
	return fn()
}

// compensate deletes a provisional row. Failures are logged; the sweeper is the backstop.
func (s *BookingService) compensate(ctx context.Context, bookingID, why string) {
	if err := s.bookings.Delete(context.WithoutCancel(ctx), bookingID); err != nil && !errors.Is(err, domain.ErrNotFound) {
		log.WithError(err).WithFields(log.Fields{"booking_id": bookingID, "reason": why}).Warn("failed to delete provisional booking")
		return
	}
	log.WithFields(log.Fields{"booking_id": bookingID, "reason": why}).Info("provisional booking removed")
}

func (s *BookingService) ListUserBookings(ctx context.Context, userID string) ([]domain.Booking, error) {
	if userID == "" {
		return nil, domain.Validationf("user id is required")
	}
	bookings, err := s.bookings.ListByUser(ctx, userID)
	if err != nil {
		return nil, domain.StoreErr("list user bookings", err)
	}
	return bookings, nil
}

// GetBooking returns ErrNotFound for bookings owned by someone else.
func (s *BookingService) GetBooking(ctx context.Context, userID, bookingID string) (*domain.Booking, error) {
	booking, err := s.bookings.GetByID(ctx, bookingID)
	if err != nil {
		return nil, domain.StoreErr("get booking", err)
	}
	if booking.UserID != userID {
		return nil, domain.ErrNotFound
	}
	return booking, nil
}

func formatHours(d time.Duration) string {
	return fmt.Sprintf("%g hours", d.Hours())
}

var _ BookingUseCase = (*BookingService)(nil)
