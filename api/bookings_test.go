package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Domenick1991/rentwheels/internal/domain"
	"github.com/Domenick1991/rentwheels/internal/service/booking"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockBookingUseCase struct {
	mock.Mock
}

func (m *MockBookingUseCase) Quote(ctx context.Context, input booking.BookingRequest) (*booking.QuoteResult, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*booking.QuoteResult), args.Error(1)
}

func (m *MockBookingUseCase) CreateOrder(ctx context.Context, userID string, input booking.BookingRequest) (*booking.OrderResult, error) {
	args := m.Called(ctx, userID, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*booking.OrderResult), args.Error(1)
}

func (m *MockBookingUseCase) CreatePendingBooking(ctx context.Context, userID string, input booking.BookingRequest) (*booking.OrderResult, error) {
	args := m.Called(ctx, userID, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*booking.OrderResult), args.Error(1)
}

func (m *MockBookingUseCase) ConfirmPayment(ctx context.Context, userID string, input booking.ConfirmInput) (*domain.Booking, error) {
	args := m.Called(ctx, userID, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Booking), args.Error(1)
}

func (m *MockBookingUseCase) AbandonPayment(ctx context.Context, userID, orderID string) error {
	return m.Called(ctx, userID, orderID).Error(0)
}

func (m *MockBookingUseCase) CancelBooking(ctx context.Context, userID, bookingID, reason string) (*booking.CancelResult, error) {
	args := m.Called(ctx, userID, bookingID, reason)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*booking.CancelResult), args.Error(1)
}

func (m *MockBookingUseCase) ModifyBooking(ctx context.Context, userID, bookingID string, input booking.ModifyInput) (*booking.ModifyResult, error) {
	args := m.Called(ctx, userID, bookingID, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*booking.ModifyResult), args.Error(1)
}

func (m *MockBookingUseCase) ExpirePendingBookings(ctx context.Context) ([]domain.Booking, error) {
	args := m.Called(ctx)
	return args.Get(0).([]domain.Booking), args.Error(1)
}

func (m *MockBookingUseCase) ListUserBookings(ctx context.Context, userID string) ([]domain.Booking, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Booking), args.Error(1)
}

func (m *MockBookingUseCase) GetBooking(ctx context.Context, userID, bookingID string) (*domain.Booking, error) {
	args := m.Called(ctx, userID, bookingID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Booking), args.Error(1)
}

func newTestRouter(bookings booking.BookingUseCase) *gin.Engine {
	gin.SetMode(gin.TestMode)
	return NewRouter(&MockVehicleUseCase{}, bookings)
}

func doJSON(t *testing.T, router http.Handler, method, path, userID string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if userID != "" {
		req.Header.Set(userIDHeader, userID)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func futureWindow() (time.Time, time.Time) {
	pickup := time.Now().Add(72 * time.Hour).Truncate(time.Hour).UTC()
	return pickup, pickup.Add(3 * time.Hour)
}

func TestBookingHandler_CreateOrder(t *testing.T) {
	svc := &MockBookingUseCase{}
	router := newTestRouter(svc)
	pickup, ret := futureWindow()

	svc.On("CreateOrder", mock.Anything, "u1", booking.BookingRequest{VehicleID: "v1", PickupAt: pickup, ReturnAt: ret, PickupLocation: "Airport"}).
		Return(&booking.OrderResult{OrderID: "order_1", AmountMinor: 30000, Currency: "INR", KeyID: "rzp_test"}, nil).Once()

	w := doJSON(t, router, http.MethodPost, "/api/v1/bookings/orders", "u1", gin.H{
		"vehicle_id": "v1", "pickup_at": pickup, "return_at": ret, "pickup_location": "Airport",
	})
	require.Equal(t, http.StatusCreated, w.Code)

	var res booking.OrderResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.Equal(t, "order_1", res.OrderID)
	assert.Equal(t, int64(30000), res.AmountMinor)
	svc.AssertExpectations(t)
}

func TestBookingHandler_RequiresUser(t *testing.T) {
	svc := &MockBookingUseCase{}
	router := newTestRouter(svc)

	w := doJSON(t, router, http.MethodGet, "/api/v1/bookings", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	svc.AssertNotCalled(t, "ListUserBookings", mock.Anything, mock.Anything)
}

func TestBookingHandler_BindingValidation(t *testing.T) {
	svc := &MockBookingUseCase{}
	router := newTestRouter(svc)
	pickup, ret := futureWindow()

	testCases := []struct {
		name string
		body gin.H
	}{
		{name: "missing vehicle", body: gin.H{"pickup_at": pickup, "return_at": ret}},
		{name: "pickup in the past", body: gin.H{"vehicle_id": "v1", "pickup_at": time.Now().Add(-time.Hour), "return_at": ret}},
		{name: "return before pickup", body: gin.H{"vehicle_id": "v1", "pickup_at": ret, "return_at": pickup}},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			w := doJSON(t, router, http.MethodPost, "/api/v1/bookings/quote", "", tc.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
		})
	}
	svc.AssertNotCalled(t, "Quote", mock.Anything, mock.Anything)
}

func TestBookingHandler_Confirm(t *testing.T) {
	svc := &MockBookingUseCase{}
	router := newTestRouter(svc)
	confirmed := &domain.Booking{ID: "b1", Status: domain.BookingStatusConfirmed, PaymentStatus: domain.PaymentStatusPaid, PaymentID: "pay_1"}

	svc.On("ConfirmPayment", mock.Anything, "u1", booking.ConfirmInput{OrderID: "order_1", PaymentID: "pay_1", Signature: "sig"}).
		Return(confirmed, nil).Once()

	w := doJSON(t, router, http.MethodPost, "/api/v1/bookings/confirm", "u1", gin.H{
		"order_id": "order_1", "payment_id": "pay_1", "signature": "sig",
	})
	require.Equal(t, http.StatusOK, w.Code)
	var got domain.Booking
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, domain.BookingStatusConfirmed, got.Status)
	assert.Equal(t, "pay_1", got.PaymentID)
}

func TestBookingHandler_ErrorMapping(t *testing.T) {
	testCases := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{name: "commit conflict", err: &domain.CommitConflictError{PaymentID: "pay_1"}, status: http.StatusConflict, code: "slot_taken_after_payment"},
		{name: "conflict", err: domain.ErrAvailabilityConflict, status: http.StatusConflict, code: "unavailable"},
		{name: "verification", err: domain.ErrPaymentVerificationFailed, status: http.StatusBadRequest, code: "payment_verification_failed"},
		{name: "validation", err: domain.Validationf("bad"), status: http.StatusBadRequest, code: "validation"},
		{name: "policy", err: domain.Policyf("too late"), status: http.StatusUnprocessableEntity, code: "policy"},
		{name: "not found", err: domain.ErrNotFound, status: http.StatusNotFound, code: "not_found"},
		{name: "gateway", err: domain.ErrPaymentGateway, status: http.StatusBadGateway, code: "payment_gateway"},
		{name: "store", err: domain.StoreErr("op", errors.New("down")), status: http.StatusServiceUnavailable, code: "store"},
		{name: "busy", err: domain.ErrLockTimeout, status: http.StatusServiceUnavailable, code: "busy"},
		{name: "unknown", err: errors.New("boom"), status: http.StatusInternalServerError, code: "internal"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			svc := &MockBookingUseCase{}
			router := newTestRouter(svc)
			svc.On("ConfirmPayment", mock.Anything, "u1", mock.Anything).Return(nil, tc.err).Once()

			w := doJSON(t, router, http.MethodPost, "/api/v1/bookings/confirm", "u1", gin.H{"order_id": "o", "payment_id": "p", "signature": "s"})
			assert.Equal(t, tc.status, w.Code)

			var res errorResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
			assert.Equal(t, tc.code, res.Code)
			if tc.code == "slot_taken_after_payment" {
				assert.Equal(t, "pay_1", res.PaymentID)
				assert.Equal(t, domain.RefundProcessingTime, res.RefundProcessingTime)
			}
		})
	}
}

func TestBookingHandler_Cancel(t *testing.T) {
	svc := &MockBookingUseCase{}
	router := newTestRouter(svc)
	result := &booking.CancelResult{
		Booking: &domain.Booking{ID: "b1", Status: domain.BookingStatusCancelled},
		Refund:  domain.RefundInfo{Percent: 75, AmountMinor: 750, ProcessingTime: domain.RefundProcessingTime},
	}
	svc.On("CancelBooking", mock.Anything, "u1", "b1", "plans changed").Return(result, nil).Once()
	svc.On("CancelBooking", mock.Anything, "u1", "b2", "").Return(nil, domain.Policyf("too late")).Once()

	w := doJSON(t, router, http.MethodPost, "/api/v1/bookings/b1/cancel", "u1", gin.H{"reason": "plans changed"})
	require.Equal(t, http.StatusOK, w.Code)
	var got booking.CancelResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, 75, got.Refund.Percent)

	w = doJSON(t, router, http.MethodPost, "/api/v1/bookings/b2/cancel", "u1", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	svc.AssertExpectations(t)
}

func TestBookingHandler_Modify(t *testing.T) {
	svc := &MockBookingUseCase{}
	router := newTestRouter(svc)
	_, ret := futureWindow()
	newReturn := ret.Add(2 * time.Hour)

	svc.On("ModifyBooking", mock.Anything, "u1", "b1", mock.MatchedBy(func(in booking.ModifyInput) bool {
		return in.ReturnAt != nil && in.ReturnAt.Equal(newReturn) && in.PickupAt == nil
	})).Return(&booking.ModifyResult{Booking: &domain.Booking{ID: "b1", Status: domain.BookingStatusPending}, AmountDeltaMinor: 20000}, nil).Once()

	w := doJSON(t, router, http.MethodPatch, "/api/v1/bookings/b1", "u1", gin.H{"return_at": newReturn})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"amount_delta":20000`)
}

func TestBookingHandler_AbandonAndGet(t *testing.T) {
	svc := &MockBookingUseCase{}
	router := newTestRouter(svc)
	svc.On("AbandonPayment", mock.Anything, "u1", "order_1").Return(nil).Once()
	svc.On("GetBooking", mock.Anything, "u1", "b9").Return(nil, domain.ErrNotFound).Once()
	svc.On("ListUserBookings", mock.Anything, "u1").Return([]domain.Booking{{ID: "b1"}}, nil).Once()

	w := doJSON(t, router, http.MethodPost, "/api/v1/bookings/orders/order_1/abandon", "u1", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = doJSON(t, router, http.MethodGet, "/api/v1/bookings/b9", "u1", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doJSON(t, router, http.MethodGet, "/api/v1/bookings", "u1", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"id":"b1"`)
	svc.AssertExpectations(t)
}
