package bootstrap

import (
	"context"
	"fmt"

	"github.com/Domenick1991/rentwheels/config"
	"github.com/Domenick1991/rentwheels/internal/cache"
	"github.com/Domenick1991/rentwheels/internal/domain"
	"github.com/Domenick1991/rentwheels/internal/lock"
	"github.com/Domenick1991/rentwheels/internal/pricing"
	"github.com/Domenick1991/rentwheels/internal/repository"
	"github.com/Domenick1991/rentwheels/internal/service/booking"
	"github.com/Domenick1991/rentwheels/internal/service/vehicles"
	"github.com/jackc/pgx/v5/pgxpool"
	log "github.com/sirupsen/logrus"
)

// Stores groups the repositories selected by database.driver.
type Stores struct {
	Bookings repository.BookingRepository
	Vehicles repository.VehicleRepository
	Profiles repository.ProfileRepository
	close    func()
}

func (s *Stores) Close() {
	if s.close != nil {
		s.close()
	}
}

func OpenStores(ctx context.Context, cfg *config.Config) (*Stores, error) {
	if cfg.Database.Driver == config.DriverMemory {
		store := repository.NewMemoryStore()
		for _, seed := range cfg.Catalog {
			store.AddVehicle(domain.Vehicle{
				ID:              seed.ID,
				Name:            seed.Name,
				Category:        seed.Category,
				Location:        seed.Location,
				HourlyRateMinor: seed.HourlyRateMinor,
				Available:       true,
			})
		}
		log.WithField("vehicles", len(cfg.Catalog)).Warn("using in-memory store, data is lost on restart")
		return &Stores{Bookings: store, Vehicles: store.Vehicles(), Profiles: store.Profiles()}, nil
	}

	pool, err := pgxpool.New(ctx, cfg.Database.DSN())
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return &Stores{
		Bookings: repository.NewBookingRepository(pool),
		Vehicles: repository.NewVehicleRepository(pool),
		Profiles: repository.NewProfileRepository(pool),
		close:    pool.Close,
	}, nil
}

func BookingPolicy(cfg *config.Config) booking.Policy {
	policy := booking.DefaultPolicy()
	policy.MinDuration = cfg.Booking.MinDuration()
	policy.CancelCutoff = cfg.Booking.CancelCutoff()
	policy.ModifyCutoff = cfg.Booking.ModifyCutoff()
	policy.PendingTTL = cfg.Booking.PendingTTL()
	policy.RequireReapproval = cfg.Booking.RequireReapproval
	policy.AllowTestPayments = cfg.Payment.AllowTestPayments
	if cfg.Payment.Currency != "" {
		policy.Currency = cfg.Payment.Currency
	}
	if cfg.Payment.TestPrefix != "" {
		policy.TestPaymentPrefix = cfg.Payment.TestPrefix
	}
	policy.Pricing = pricing.Policy{
		MinBillableHours: pricing.DefaultPolicy().MinBillableHours,
		TestAmountMinor:  cfg.Payment.TestAmountMinor,
	}
	return policy
}

// Coordination holds the vehicle lock and the optional catalog cache.
type Coordination struct {
	Locker booking.Locker
	Cache  vehicles.VehicleCache
	close  func()
}

func (c *Coordination) Close() {
	if c.close != nil {
		c.close()
	}
}

// OpenCoordination uses redis when an address is configured and an in-process lock otherwise.
// The in-process lock only serialises commits within a single app instance.
func OpenCoordination(ctx context.Context, cfg *config.Config) (*Coordination, error) {
	if cfg.Redis.Addr == "" {
		log.Warn("redis not configured, vehicle locks are process-local and the catalog is not cached")
		return &Coordination{Locker: lock.NewKeyedMutex()}, nil
	}

	rc := cache.NewRedisCache(cfg.Redis, cache.Options{
		VehiclesTTL: cfg.Booking.VehiclesCacheDuration(),
		LockTTL:     cfg.Booking.LockTTL(),
		LockWait:    cfg.Booking.LockWait(),
	})
	if err := rc.Ping(ctx); err != nil {
		_ = rc.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return &Coordination{
		Locker: rc,
		Cache:  rc,
		close:  func() { _ = rc.Close() },
	}, nil
}

// SweeperEnabled reports whether the worker should run the pending-booking sweeper. A memory store
// is private to each process, so a worker sweeping its own would never see the app's holds.
func SweeperEnabled(cfg *config.Config) bool {
	return cfg.Database.Driver != config.DriverMemory
}
