package vehicles

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Domenick1991/rentwheels/internal/availability"
	"github.com/Domenick1991/rentwheels/internal/domain"
	"github.com/Domenick1991/rentwheels/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockVehicleRepository struct {
	mock.Mock
}

func (m *MockVehicleRepository) List(ctx context.Context, filter domain.VehicleFilter) ([]domain.Vehicle, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Vehicle), args.Error(1)
}

func (m *MockVehicleRepository) GetByID(ctx context.Context, id string) (*domain.Vehicle, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Vehicle), args.Error(1)
}

type MockCache struct {
	mock.Mock
}

func (m *MockCache) GetVehicles(ctx context.Context) ([]domain.Vehicle, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Vehicle), args.Error(1)
}

func (m *MockCache) SetVehicles(ctx context.Context, vehicles []domain.Vehicle) error {
	args := m.Called(ctx, vehicles)
	return args.Error(0)
}

var catalog = []domain.Vehicle{
	{ID: "v1", Name: "Swift", Location: "Bengaluru Airport", HourlyRateMinor: 10000, Available: true},
	{ID: "v2", Name: "Creta", Location: "Bengaluru MG Road", HourlyRateMinor: 25000, Available: true},
	{ID: "v3", Name: "Innova", Location: "Mysuru", HourlyRateMinor: 30000, Available: true},
}

func TestVehicleService_List_CacheMiss(t *testing.T) {
	repo := &MockVehicleRepository{}
	cache := &MockCache{}
	service := NewVehicleService(repo, cache, nil)
	ctx := context.Background()

	cache.On("GetVehicles", ctx).Return(nil, nil).Once()
	repo.On("List", ctx, domain.VehicleFilter{AvailableOnly: true}).Return(catalog, nil).Once()
	cache.On("SetVehicles", ctx, catalog).Return(nil).Once()

	vehicles, err := service.List(ctx)
	assert.NoError(t, err)
	assert.Equal(t, catalog, vehicles)
	repo.AssertExpectations(t)
	cache.AssertExpectations(t)
}

func TestVehicleService_List_CacheHit(t *testing.T) {
	repo := &MockVehicleRepository{}
	cache := &MockCache{}
	service := NewVehicleService(repo, cache, nil)
	ctx := context.Background()

	cache.On("GetVehicles", ctx).Return(catalog, nil).Once()

	vehicles, err := service.List(ctx)
	assert.NoError(t, err)
	assert.Equal(t, catalog, vehicles)
	repo.AssertNotCalled(t, "List", mock.Anything, mock.Anything)
}

func TestVehicleService_List_CacheErrorFallsBack(t *testing.T) {
	repo := &MockVehicleRepository{}
	cache := &MockCache{}
	service := NewVehicleService(repo, cache, nil)
	ctx := context.Background()

	cache.On("GetVehicles", ctx).Return(nil, errors.New("redis down")).Once()
	repo.On("List", ctx, mock.Anything).Return(catalog, nil).Once()
	cache.On("SetVehicles", ctx, catalog).Return(errors.New("redis down")).Once()

	vehicles, err := service.List(ctx)
	assert.NoError(t, err)
	assert.Len(t, vehicles, 3)
}

func TestVehicleService_List_RepoError(t *testing.T) {
	repo := &MockVehicleRepository{}
	service := NewVehicleService(repo, nil, nil)
	repo.On("List", mock.Anything, mock.Anything).Return(nil, errors.New("db down")).Once()

	_, err := service.List(context.Background())
	assert.ErrorIs(t, err, domain.ErrStore)
}

func newStoreService(t *testing.T) (*VehicleService, *repository.MemoryStore, time.Time) {
	t.Helper()
	store := repository.NewMemoryStore()
	for _, v := range catalog {
		store.AddVehicle(v)
	}
	now := time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)
	checker := availability.NewChecker(store).WithClock(func() time.Time { return now })
	return NewVehicleService(store.Vehicles(), nil, checker), store, now
}

func TestVehicleService_Search(t *testing.T) {
	service, store, now := newStoreService(t)
	ctx := context.Background()
	pickup := now.Add(24 * time.Hour)
	require.NoError(t, store.Create(ctx, &domain.Booking{
		ID: "b1", VehicleID: "v1", UserID: "u1", PickupAt: pickup, ReturnAt: pickup.Add(4 * time.Hour),
		Status: domain.BookingStatusConfirmed, PaymentStatus: domain.PaymentStatusPaid,
	}))

	vehicles, err := service.Search(ctx, domain.VehicleFilter{Location: "bengaluru"}, nil)
	require.NoError(t, err)
	assert.Len(t, vehicles, 2)

	window := domain.Interval{Start: pickup.Add(time.Hour), End: pickup.Add(5 * time.Hour)}
	vehicles, err = service.Search(ctx, domain.VehicleFilter{Location: "bengaluru"}, &window)
	require.NoError(t, err)
	require.Len(t, vehicles, 1)
	assert.Equal(t, "v2", vehicles[0].ID)

	later := domain.Interval{Start: pickup.Add(4 * time.Hour), End: pickup.Add(8 * time.Hour)}
	vehicles, err = service.Search(ctx, domain.VehicleFilter{}, &later)
	require.NoError(t, err)
	assert.Len(t, vehicles, 3)

	bad := domain.Interval{Start: pickup, End: pickup}
	_, err = service.Search(ctx, domain.VehicleFilter{}, &bad)
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestVehicleService_BookedIntervals(t *testing.T) {
	service, store, now := newStoreService(t)
	ctx := context.Background()
	pickup := now.Add(24 * time.Hour)
	require.NoError(t, store.Create(ctx, &domain.Booking{
		ID: "b1", VehicleID: "v1", UserID: "u1", PickupAt: pickup, ReturnAt: pickup.Add(4 * time.Hour),
		Status: domain.BookingStatusConfirmed, PaymentStatus: domain.PaymentStatusPaid,
	}))
	require.NoError(t, store.Create(ctx, &domain.Booking{
		ID: "b2", VehicleID: "v1", UserID: "u2", PickupAt: pickup.Add(48 * time.Hour), ReturnAt: pickup.Add(52 * time.Hour),
		Status: domain.BookingStatusCancelled,
	}))

	intervals, err := service.BookedIntervals(ctx, "v1")
	require.NoError(t, err)
	assert.Equal(t, []domain.Interval{{Start: pickup, End: pickup.Add(4 * time.Hour)}}, intervals)

	_, err = service.BookedIntervals(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
