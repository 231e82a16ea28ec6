// Package availability answers whether a vehicle's time slot is free. It reads the store and
// never writes; every decision goes through domain.Overlaps.
package availability

import (
	"context"
	"time"

	"github.com/Domenick1991/rentwheels/internal/domain"
)

type BookingReader interface {
	ListByVehicle(ctx context.Context, vehicleID string, statuses []domain.BookingStatus) ([]domain.Booking, error)
	ListByStatus(ctx context.Context, statuses []domain.BookingStatus) ([]domain.Booking, error)
}

type Checker struct {
	bookings BookingReader
	now      func() time.Time
}

func NewChecker(bookings BookingReader) *Checker {
	return &Checker{bookings: bookings, now: time.Now}
}

// WithClock replaces the clock used to expire pending reservations.
func (c *Checker) WithClock(now func() time.Time) *Checker {
	c.now = now
	return c
}

// Blocking returns the bookings currently occupying the vehicle's calendar, minus excludeID.
func (c *Checker) Blocking(ctx context.Context, vehicleID, excludeID string) ([]domain.Booking, error) {
	rows, err := c.bookings.ListByVehicle(ctx, vehicleID, domain.BlockingStatuses)
	if err != nil {
		return nil, domain.StoreErr("list blocking bookings", err)
	}
	now := c.now()
	out := make([]domain.Booking, 0, len(rows))
	for i := range rows {
		if rows[i].ID == excludeID || !rows[i].BlocksAt(now) {
			continue
		}
		out = append(out, rows[i])
	}
	return out, nil
}

func (c *Checker) BlockingIntervals(ctx context.Context, vehicleID string) ([]domain.Interval, error) {
	blocking, err := c.Blocking(ctx, vehicleID, "")
	if err != nil {
		return nil, err
	}
	intervals := make([]domain.Interval, len(blocking))
	for i := range blocking {
		intervals[i] = blocking[i].Interval()
	}
	return intervals, nil
}

// IsAvailable reports whether candidate is free. A store failure is returned as an error
// wrapping domain.ErrStore, never as false.
func (c *Checker) IsAvailable(ctx context.Context, vehicleID string, candidate domain.Interval) (bool, error) {
	return c.IsAvailableExcluding(ctx, vehicleID, candidate, "")
}

// IsAvailableExcluding ignores the booking excludeID, which is how a booking is rechecked
// against everything but itself.
func (c *Checker) IsAvailableExcluding(ctx context.Context, vehicleID string, candidate domain.Interval, excludeID string) (bool, error) {
	blocking, err := c.Blocking(ctx, vehicleID, excludeID)
	if err != nil {
		return false, err
	}
	for i := range blocking {
		if domain.Overlaps(candidate, blocking[i].Interval()) {
			return false, nil
		}
	}
	return true, nil
}

// FreeVehicles keeps the vehicles with no blocking booking overlapping candidate.
// One store read covers the whole catalog.
func (c *Checker) FreeVehicles(ctx context.Context, vehicles []domain.Vehicle, candidate domain.Interval) ([]domain.Vehicle, error) {
	rows, err := c.bookings.ListByStatus(ctx, domain.BlockingStatuses)
	if err != nil {
		return nil, domain.StoreErr("list blocking bookings", err)
	}
	now := c.now()
	busy := make(map[string]bool)
	for i := range rows {
		if rows[i].BlocksAt(now) && domain.Overlaps(candidate, rows[i].Interval()) {
			busy[rows[i].VehicleID] = true
		}
	}

	free := make([]domain.Vehicle, 0, len(vehicles))
	for _, v := range vehicles {
		if !busy[v.ID] {
			free = append(free, v)
		}
	}
	return free, nil
}
