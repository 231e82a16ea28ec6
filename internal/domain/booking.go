package domain

import "time"

type BookingStatus string

const (
	BookingStatusPending   BookingStatus = "pending"
	BookingStatusConfirmed BookingStatus = "confirmed"
	BookingStatusActive    BookingStatus = "active"
	BookingStatusCompleted BookingStatus = "completed"
	BookingStatusCancelled BookingStatus = "cancelled"
)

// BlockingStatuses occupy a vehicle's time slot. Cancelled and completed bookings never block.
var BlockingStatuses = []BookingStatus{
	BookingStatusPending,
	BookingStatusConfirmed,
	BookingStatusActive,
}

func (s BookingStatus) Blocking() bool {
	for _, b := range BlockingStatuses {
		if s == b {
			return true
		}
	}
	return false
}

// Terminal reports whether the booking can no longer be cancelled or modified.
func (s BookingStatus) Terminal() bool {
	return s == BookingStatusCancelled || s == BookingStatusCompleted
}

type PaymentStatus string

const (
	PaymentStatusPending  PaymentStatus = "pending"
	PaymentStatusPaid     PaymentStatus = "paid"
	PaymentStatusFailed   PaymentStatus = "failed"
	PaymentStatusRefunded PaymentStatus = "refunded"
)

// Booking amounts are in minor currency units (paise for INR).
type Booking struct {
	ID             string        `json:"id"`
	VehicleID      string        `json:"vehicle_id"`
	UserID         string        `json:"user_id"`
	PickupLocation string        `json:"pickup_location"`
	PickupAt       time.Time     `json:"pickup_at"`
	ReturnAt       time.Time     `json:"return_at"`
	TotalHours     int           `json:"total_hours"`
	AmountMinor    int64         `json:"total_amount"`
	Currency       string        `json:"currency"`
	Status         BookingStatus `json:"status"`
	PaymentStatus  PaymentStatus `json:"payment_status"`
	PaymentID      string        `json:"payment_id,omitempty"`
	OrderID        string        `json:"order_id,omitempty"`
	Notes          string        `json:"notes,omitempty"`
	// ExpiresAt is set only on pre-payment pending rows; an expired row stops blocking its slot.
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

func (b *Booking) Interval() Interval {
	return Interval{Start: b.PickupAt, End: b.ReturnAt}
}

// BlocksAt reports whether the booking occupies its slot at instant now.
func (b *Booking) BlocksAt(now time.Time) bool {
	if !b.Status.Blocking() {
		return false
	}
	if b.Status == BookingStatusPending && b.ExpiresAt != nil && !now.Before(*b.ExpiresAt) {
		return false
	}
	return true
}

// AppendNote adds an audit fragment to the notes field on its own line.
func (b *Booking) AppendNote(fragment string) {
	if b.Notes == "" {
		b.Notes = fragment
		return
	}
	b.Notes = b.Notes + "\n" + fragment
}
