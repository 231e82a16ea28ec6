package repository

import (
	"context"
	"time"

	"github.com/Domenick1991/rentwheels/internal/domain"
)

// BookingRepository is the store contract for the booking protocol. It offers no transaction
// or locking primitive; consistency is kept by the callers.
type BookingRepository interface {
	ListByVehicle(ctx context.Context, vehicleID string, statuses []domain.BookingStatus) ([]domain.Booking, error)
	ListByStatus(ctx context.Context, statuses []domain.BookingStatus) ([]domain.Booking, error)
	ListByUser(ctx context.Context, userID string) ([]domain.Booking, error)
	GetByID(ctx context.Context, id string) (*domain.Booking, error)
	GetByOrderID(ctx context.Context, orderID string) (*domain.Booking, error)
	Create(ctx context.Context, booking *domain.Booking) error
	Update(ctx context.Context, booking *domain.Booking) error
	Delete(ctx context.Context, id string) error
	DeleteExpiredPending(ctx context.Context, deadline time.Time) ([]domain.Booking, error)
}

type VehicleRepository interface {
	List(ctx context.Context, filter domain.VehicleFilter) ([]domain.Vehicle, error)
	GetByID(ctx context.Context, id string) (*domain.Vehicle, error)
}

type ProfileRepository interface {
	GetByID(ctx context.Context, id string) (*domain.Profile, error)
}

func statusStrings(statuses []domain.BookingStatus) []string {
	out := make([]string, len(statuses))
	for i, s := range statuses {
		out[i] = string(s)
	}
	return out
}
