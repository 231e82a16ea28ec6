package vehicles

import (
	"context"
	"strings"

	"github.com/Domenick1991/rentwheels/internal/availability"
	"github.com/Domenick1991/rentwheels/internal/domain"
	"github.com/Domenick1991/rentwheels/internal/repository"
	log "github.com/sirupsen/logrus"
)

type VehicleUseCase interface {
	List(ctx context.Context) ([]domain.Vehicle, error)
	GetByID(ctx context.Context, id string) (*domain.Vehicle, error)
	Search(ctx context.Context, filter domain.VehicleFilter, window *domain.Interval) ([]domain.Vehicle, error)
	BookedIntervals(ctx context.Context, vehicleID string) ([]domain.Interval, error)
}

type VehicleCache interface {
	GetVehicles(ctx context.Context) ([]domain.Vehicle, error)
	SetVehicles(ctx context.Context, vehicles []domain.Vehicle) error
}

type VehicleService struct {
	repo    repository.VehicleRepository
	cache   VehicleCache
	checker *availability.Checker
}

// NewVehicleService accepts a nil cache.
func NewVehicleService(repo repository.VehicleRepository, cache VehicleCache, checker *availability.Checker) *VehicleService {
	return &VehicleService{repo: repo, cache: cache, checker: checker}
}

// List returns every vehicle offered for rent, served from cache when possible.
func (s *VehicleService) List(ctx context.Context) ([]domain.Vehicle, error) {
	if s.cache != nil {
		cached, err := s.cache.GetVehicles(ctx)
		if err != nil {
			log.WithError(err).Warn("vehicle cache read failed")
		} else if cached != nil {
			return cached, nil
		}
	}

	vehicles, err := s.repo.List(ctx, domain.VehicleFilter{AvailableOnly: true})
	if err != nil {
		return nil, domain.StoreErr("list vehicles", err)
	}
	if s.cache != nil {
		if err := s.cache.SetVehicles(ctx, vehicles); err != nil {
			log.WithError(err).Warn("vehicle cache write failed")
		}
	}
	return vehicles, nil
}

func (s *VehicleService) GetByID(ctx context.Context, id string) (*domain.Vehicle, error) {
	vehicle, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, domain.StoreErr("get vehicle", err)
	}
	return vehicle, nil
}

// Search filters the catalog by location and, when window is set, drops vehicles booked during it.
func (s *VehicleService) Search(ctx context.Context, filter domain.VehicleFilter, window *domain.Interval) ([]domain.Vehicle, error) {
	if window != nil && !window.Valid() {
		return nil, domain.Validationf("return time must be after pickup time")
	}

	all, err := s.List(ctx)
	if err != nil {
		return nil, err
	}

	matched := make([]domain.Vehicle, 0, len(all))
	location := strings.ToLower(strings.TrimSpace(filter.Location))
	for _, v := range all {
		if location != "" && !strings.Contains(strings.ToLower(v.Location), location) {
			continue
		}
		matched = append(matched, v)
	}

	if window == nil {
		return matched, nil
	}
	return s.checker.FreeVehicles(ctx, matched, *window)
}

func (s *VehicleService) BookedIntervals(ctx context.Context, vehicleID string) ([]domain.Interval, error) {
	if _, err := s.GetByID(ctx, vehicleID); err != nil {
		return nil, err
	}
	return s.checker.BlockingIntervals(ctx, vehicleID)
}

var _ VehicleUseCase = (*VehicleService)(nil)
