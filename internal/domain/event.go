package domain

import "time"

type EventType string

const (
	EventBookingConfirmed EventType = "booking_confirmed"
	EventBookingCancelled EventType = "booking_cancelled"
	EventBookingModified  EventType = "booking_modified"
	EventBookingExpired   EventType = "booking_expired"
)

type RefundInfo struct {
	Percent        int    `json:"percent"`
	AmountMinor    int64  `json:"amount_minor"`
	ProcessingTime string `json:"processing_time"`
}

type BookingSnapshot struct {
	PickupAt       time.Time `json:"pickup_at"`
	ReturnAt       time.Time `json:"return_at"`
	PickupLocation string    `json:"pickup_location"`
	TotalHours     int       `json:"total_hours"`
	AmountMinor    int64     `json:"amount_minor"`
}

// BookingEvent is emitted after a state transition has been persisted.
type BookingEvent struct {
	Type             EventType        `json:"type"`
	BookingID        string           `json:"booking_id"`
	VehicleID        string           `json:"vehicle_id"`
	UserID           string           `json:"user_id"`
	Status           string           `json:"status"`
	PaymentStatus    string           `json:"payment_status"`
	PaymentID        string           `json:"payment_id,omitempty"`
	PickupLocation   string           `json:"pickup_location,omitempty"`
	PickupAt         time.Time        `json:"pickup_at"`
	ReturnAt         time.Time        `json:"return_at"`
	AmountMinor      int64            `json:"amount_minor"`
	Currency         string           `json:"currency"`
	Reason           string           `json:"reason,omitempty"`
	Refund           *RefundInfo      `json:"refund,omitempty"`
	Previous         *BookingSnapshot `json:"previous,omitempty"`
	AmountDeltaMinor int64            `json:"amount_delta_minor,omitempty"`
	OccurredAt       time.Time        `json:"occurred_at"`
}

func NewBookingEvent(t EventType, b *Booking, at time.Time) BookingEvent {
	return BookingEvent{
		Type:           t,
		BookingID:      b.ID,
		VehicleID:      b.VehicleID,
		UserID:         b.UserID,
		Status:         string(b.Status),
		PaymentStatus:  string(b.PaymentStatus),
		PaymentID:      b.PaymentID,
		PickupLocation: b.PickupLocation,
		PickupAt:       b.PickupAt,
		ReturnAt:       b.ReturnAt,
		AmountMinor:    b.AmountMinor,
		Currency:       b.Currency,
		OccurredAt:     at,
	}
}

func (b *Booking) Snapshot() *BookingSnapshot {
	return &BookingSnapshot{
		PickupAt:       b.PickupAt,
		ReturnAt:       b.ReturnAt,
		PickupLocation: b.PickupLocation,
		TotalHours:     b.TotalHours,
		AmountMinor:    b.AmountMinor,
	}
}
