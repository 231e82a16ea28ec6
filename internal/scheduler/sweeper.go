package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/Domenick1991/rentwheels/internal/domain"
	"github.com/go-co-op/gocron/v2"
	log "github.com/sirupsen/logrus"
)

type Expirer interface {
	ExpirePendingBookings(ctx context.Context) ([]domain.Booking, error)
}

// Sweeper periodically deletes pre-payment pending bookings whose hold has run out.
type Sweeper struct {
	scheduler gocron.Scheduler
	expirer   Expirer
	every     time.Duration
}

func NewSweeper(expirer Expirer, every time.Duration) (*Sweeper, error) {
	if every <= 0 {
		every = time.Minute
	}
	s, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("init scheduler: %w", err)
	}
	return &Sweeper{scheduler: s, expirer: expirer, every: every}, nil
}

// Run schedules the sweep job and blocks until ctx is cancelled.
func (s *Sweeper) Run(ctx context.Context) error {
	_, err := s.scheduler.NewJob(
		gocron.DurationJob(s.every),
		gocron.NewTask(func() { s.sweep(ctx) }),
		gocron.WithName("expire-pending-bookings"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return fmt.Errorf("schedule sweeper: %w", err)
	}

	s.scheduler.Start()
	<-ctx.Done()
	return s.scheduler.Shutdown()
}

func (s *Sweeper) sweep(ctx context.Context) {
	expired, err := s.expirer.ExpirePendingBookings(ctx)
	if err != nil {
		log.WithError(err).Error("expire pending bookings")
		return
	}
	if len(expired) > 0 {
		log.WithField("count", len(expired)).Info("expired pending bookings")
	}
}
