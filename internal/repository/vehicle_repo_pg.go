package repository

import (
	"context"
	"errors"

	"github.com/Domenick1991/rentwheels/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PGVehicleRepository struct {
	db querier
}

func NewVehicleRepository(db *pgxpool.Pool) VehicleRepository {
	return &PGVehicleRepository{db: db}
}

func (r *PGVehicleRepository) List(ctx context.Context, filter domain.VehicleFilter) ([]domain.Vehicle, error) {
	rows, err := r.db.Query(ctx, `SELECT v.id, v.name, COALESCE(c.name, ''), v.location, v.hourly_rate_minor, v.available, v.created_at, v.updated_at
		FROM vehicles v LEFT JOIN vehicle_categories c ON c.id = v.category_id
		WHERE ($1 = '' OR v.location ILIKE '%' || $1 || '%') AND (NOT $2 OR v.available)
		ORDER BY v.name`, filter.Location, filter.AvailableOnly)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	vehicles := make([]domain.Vehicle, 0)
	for rows.Next() {
		var v domain.Vehicle
		if err := rows.Scan(&v.ID, &v.Name, &v.Category, &v.Location, &v.HourlyRateMinor, &v.Available, &v.CreatedAt, &v.UpdatedAt); err != nil {
			return nil, err
		}
		vehicles = append(vehicles, v)
	}
	return vehicles, rows.Err()
}

func (r *PGVehicleRepository) GetByID(ctx context.Context, id string) (*domain.Vehicle, error) {
	row := r.db.QueryRow(ctx, `SELECT v.id, v.name, COALESCE(c.name, ''), v.location, v.hourly_rate_minor, v.available, v.created_at, v.updated_at
		FROM vehicles v LEFT JOIN vehicle_categories c ON c.id = v.category_id WHERE v.id=$1`, id)
	var v domain.Vehicle
	if err := row.Scan(&v.ID, &v.Name, &v.Category, &v.Location, &v.HourlyRateMinor, &v.Available, &v.CreatedAt, &v.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &v, nil
}

var _ VehicleRepository = (*PGVehicleRepository)(nil)

type PGProfileRepository struct {
	db querier
}

func NewProfileRepository(db *pgxpool.Pool) ProfileRepository {
	return &PGProfileRepository{db: db}
}

func (r *PGProfileRepository) GetByID(ctx context.Context, id string) (*domain.Profile, error) {
	var p domain.Profile
	err := r.db.QueryRow(ctx, `SELECT id, email, COALESCE(full_name, '') FROM profiles WHERE id=$1`, id).
		Scan(&p.ID, &p.Email, &p.FullName)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

var _ ProfileRepository = (*PGProfileRepository)(nil)
