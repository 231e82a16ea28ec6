package repository

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/Domenick1991/rentwheels/internal/domain"
)

// MemoryStore keeps vehicles, profiles and bookings in process. It backs the `memory`
// database driver and the service tests.
type MemoryStore struct {
	mu       sync.RWMutex
	vehicles map[string]domain.Vehicle
	profiles map[string]domain.Profile
	bookings map[string]domain.Booking
	now      func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		vehicles: make(map[string]domain.Vehicle),
		profiles: make(map[string]domain.Profile),
		bookings: make(map[string]domain.Booking),
		now:      time.Now,
	}
}

func (s *MemoryStore) AddVehicle(v domain.Vehicle) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.vehicles[v.ID] = v
}

func (s *MemoryStore) AddProfile(p domain.Profile) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profiles[p.ID] = p
}

// Bookings returns the full table sorted by pickup time.
func (s *MemoryStore) Bookings() []domain.Booking {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.filterLocked(func(domain.Booking) bool { return true })
}

func (s *MemoryStore) filterLocked(keep func(domain.Booking) bool) []domain.Booking {
	out := make([]domain.Booking, 0)
	for _, b := range s.bookings {
		if keep(b) {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].PickupAt.Equal(out[j].PickupAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].PickupAt.Before(out[j].PickupAt)
	})
	return out
}

func hasStatus(statuses []domain.BookingStatus, status domain.BookingStatus) bool {
	for _, s := range statuses {
		if s == status {
			return true
		}
	}
	return false
}

func (s *MemoryStore) ListByVehicle(ctx context.Context, vehicleID string, statuses []domain.BookingStatus) ([]domain.Booking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.filterLocked(func(b domain.Booking) bool {
		return b.VehicleID == vehicleID && hasStatus(statuses, b.Status)
	}), nil
}

func (s *MemoryStore) ListByStatus(ctx context.Context, statuses []domain.BookingStatus) ([]domain.Booking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.filterLocked(func(b domain.Booking) bool { return hasStatus(statuses, b.Status) }), nil
}

func (s *MemoryStore) ListByUser(ctx context.Context, userID string) ([]domain.Booking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.filterLocked(func(b domain.Booking) bool { return b.UserID == userID }), nil
}

func (s *MemoryStore) GetByID(ctx context.Context, id string) (*domain.Booking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.bookings[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &b, nil
}

func (s *MemoryStore) GetByOrderID(ctx context.Context, orderID string) (*domain.Booking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, b := range s.bookings {
		if orderID != "" && b.OrderID == orderID {
			return &b, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (s *MemoryStore) Create(ctx context.Context, booking *domain.Booking) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.bookings[booking.ID]; exists {
		return domain.Validationf("booking %s already exists", booking.ID)
	}
	now := s.now()
	booking.CreatedAt = now
	booking.UpdatedAt = now
	s.bookings[booking.ID] = *booking
	return nil
}

func (s *MemoryStore) Update(ctx context.Context, booking *domain.Booking) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.bookings[booking.ID]
	if !ok {
		return domain.ErrNotFound
	}
	booking.CreatedAt = current.CreatedAt
	booking.UpdatedAt = s.now()
	s.bookings[booking.ID] = *booking
	return nil
}

func (s *MemoryStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.bookings[id]; !ok {
		return domain.ErrNotFound
	}
	delete(s.bookings, id)
	return nil
}

func (s *MemoryStore) DeleteExpiredPending(ctx context.Context, deadline time.Time) ([]domain.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	expired := s.filterLocked(func(b domain.Booking) bool {
		return b.Status == domain.BookingStatusPending && b.PaymentStatus == domain.PaymentStatusPending &&
			b.ExpiresAt != nil && !b.ExpiresAt.After(deadline)
	})
	for _, b := range expired {
		delete(s.bookings, b.ID)
	}
	return expired, nil
}

// memoryVehicles adapts the store to VehicleRepository; GetByID collides with the booking method.
type memoryVehicles struct {
	store *MemoryStore
}

func (s *MemoryStore) Vehicles() VehicleRepository {
	return memoryVehicles{store: s}
}

func (m memoryVehicles) List(ctx context.Context, filter domain.VehicleFilter) ([]domain.Vehicle, error) {
	m.store.mu.RLock()
	defer m.store.mu.RUnlock()
	out := make([]domain.Vehicle, 0, len(m.store.vehicles))
	for _, v := range m.store.vehicles {
		if filter.AvailableOnly && !v.Available {
			continue
		}
		if filter.Location != "" && !strings.Contains(strings.ToLower(v.Location), strings.ToLower(filter.Location)) {
			continue
		}
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m memoryVehicles) GetByID(ctx context.Context, id string) (*domain.Vehicle, error) {
	m.store.mu.RLock()
	defer m.store.mu.RUnlock()
	v, ok := m.store.vehicles[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &v, nil
}

type memoryProfiles struct {
	store *MemoryStore
}

func (s *MemoryStore) Profiles() ProfileRepository {
	return memoryProfiles{store: s}
}

func (m memoryProfiles) GetByID(ctx context.Context, id string) (*domain.Profile, error) {
	m.store.mu.RLock()
	defer m.store.mu.RUnlock()
	p, ok := m.store.profiles[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &p, nil
}

var _ BookingRepository = (*MemoryStore)(nil)
