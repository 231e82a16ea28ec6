package repository

import (
	"context"
	"errors"
	"time"

	"github.com/Domenick1991/rentwheels/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const bookingColumns = `id, vehicle_id, user_id, pickup_location, pickup_at, return_at, total_hours, amount_minor, currency,
	status, payment_status, COALESCE(payment_id, ''), COALESCE(order_id, ''), notes, expires_at, created_at, updated_at`

// querier is the part of *pgxpool.Pool the repositories use.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type PGBookingRepository struct {
	db querier
}

func NewBookingRepository(db *pgxpool.Pool) BookingRepository {
	return &PGBookingRepository{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBooking(row rowScanner) (*domain.Booking, error) {
	var b domain.Booking
	if err := row.Scan(&b.ID, &b.VehicleID, &b.UserID, &b.PickupLocation, &b.PickupAt, &b.ReturnAt, &b.TotalHours,
		&b.AmountMinor, &b.Currency, &b.Status, &b.PaymentStatus, &b.PaymentID, &b.OrderID, &b.Notes,
		&b.ExpiresAt, &b.CreatedAt, &b.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &b, nil
}

func collectBookings(rows pgx.Rows) ([]domain.Booking, error) {
	defer rows.Close()

	bookings := make([]domain.Booking, 0)
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		bookings = append(bookings, *b)
	}
	return bookings, rows.Err()
}

func (r *PGBookingRepository) ListByVehicle(ctx context.Context, vehicleID string, statuses []domain.BookingStatus) ([]domain.Booking, error) {
	rows, err := r.db.Query(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE vehicle_id=$1 AND status = ANY($2) ORDER BY pickup_at`,
		vehicleID, statusStrings(statuses))
	if err != nil {
		return nil, err
	}
	return collectBookings(rows)
}

func (r *PGBookingRepository) ListByStatus(ctx context.Context, statuses []domain.BookingStatus) ([]domain.Booking, error) {
	rows, err := r.db.Query(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE status = ANY($1) ORDER BY vehicle_id, pickup_at`,
		statusStrings(statuses))
	if err != nil {
		return nil, err
	}
	return collectBookings(rows)
}

func (r *PGBookingRepository) ListByUser(ctx context.Context, userID string) ([]domain.Booking, error) {
	rows, err := r.db.Query(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE user_id=$1 ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	return collectBookings(rows)
}

func (r *PGBookingRepository) GetByID(ctx context.Context, id string) (*domain.Booking, error) {
	return scanBooking(r.db.QueryRow(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id=$1`, id))
}

func (r *PGBookingRepository) GetByOrderID(ctx context.Context, orderID string) (*domain.Booking, error) {
	return scanBooking(r.db.QueryRow(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE order_id=$1`, orderID))
}

func (r *PGBookingRepository) Create(ctx context.Context, b *domain.Booking) error {
	return r.db.QueryRow(ctx, `INSERT INTO bookings (id, vehicle_id, user_id, pickup_location, pickup_at, return_at, total_hours,
		amount_minor, currency, status, payment_status, payment_id, order_id, notes, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, NULLIF($12, ''), NULLIF($13, ''), $14, $15)
		RETURNING created_at, updated_at`,
		b.ID, b.VehicleID, b.UserID, b.PickupLocation, b.PickupAt, b.ReturnAt, b.TotalHours, b.AmountMinor, b.Currency,
		string(b.Status), string(b.PaymentStatus), b.PaymentID, b.OrderID, b.Notes, b.ExpiresAt).
		Scan(&b.CreatedAt, &b.UpdatedAt)
}

func (r *PGBookingRepository) Update(ctx context.Context, b *domain.Booking) error {
	err := r.db.QueryRow(ctx, `UPDATE bookings SET pickup_location=$2, pickup_at=$3, return_at=$4, total_hours=$5, amount_minor=$6,
		currency=$7, status=$8, payment_status=$9, payment_id=NULLIF($10, ''), order_id=NULLIF($11, ''), notes=$12, expires_at=$13,
		updated_at=now()
		WHERE id=$1 RETURNING updated_at`,
		b.ID, b.PickupLocation, b.PickupAt, b.ReturnAt, b.TotalHours, b.AmountMinor, b.Currency, string(b.Status),
		string(b.PaymentStatus), b.PaymentID, b.OrderID, b.Notes, b.ExpiresAt).
		Scan(&b.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.ErrNotFound
	}
	return err
}

func (r *PGBookingRepository) Delete(ctx context.Context, id string) error {
	cmd, err := r.db.Exec(ctx, `DELETE FROM bookings WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *PGBookingRepository) DeleteExpiredPending(ctx context.Context, deadline time.Time) ([]domain.Booking, error) {
	rows, err := r.db.Query(ctx, `DELETE FROM bookings WHERE status=$1 AND payment_status=$2 AND expires_at IS NOT NULL AND expires_at <= $3
		RETURNING `+bookingColumns,
		string(domain.BookingStatusPending), string(domain.PaymentStatusPending), deadline)
	if err != nil {
		return nil, err
	}
	return collectBookings(rows)
}

var _ BookingRepository = (*PGBookingRepository)(nil)
