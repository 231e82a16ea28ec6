package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/Domenick1991/rentwheels/config"
	"github.com/Domenick1991/rentwheels/internal/bootstrap"
	"github.com/Domenick1991/rentwheels/internal/email"
	"github.com/Domenick1991/rentwheels/internal/kafka"
	"github.com/Domenick1991/rentwheels/internal/logger"
	"github.com/Domenick1991/rentwheels/internal/payment"
	"github.com/Domenick1991/rentwheels/internal/scheduler"
	"github.com/Domenick1991/rentwheels/internal/service/booking"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

func main() {
	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "config.yaml"
	}

	cfg, err := config.LoadConfig(cfgPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	logger.Setup(cfg.Log.Level, cfg.Log.Format)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	stores, err := bootstrap.OpenStores(ctx, cfg)
	if err != nil {
		log.Fatalf("open stores: %v", err)
	}
	defer stores.Close()

	coord, err := bootstrap.OpenCoordination(ctx, cfg)
	if err != nil {
		log.Fatalf("open redis: %v", err)
	}
	defer coord.Close()

	var producer booking.Producer
	if len(cfg.Kafka.Brokers) > 0 {
		p := kafka.NewProducer(cfg.Kafka.Brokers)
		defer p.Close()
		producer = p
	}
	bookingService := booking.NewBookingService(
		stores.Bookings,
		stores.Vehicles,
		payment.NewRazorpayGateway(cfg.Payment.KeyID, cfg.Payment.KeySecret),
		coord.Locker,
		bootstrap.BookingPolicy(cfg),
		booking.WithDispatcher(booking.NewDispatcher(producer, cfg.Kafka.BookingTopic,
			booking.WithNotificationsTopic(cfg.Kafka.NotificationsTopic))),
	)

	g, gctx := errgroup.WithContext(ctx)

	if !bootstrap.SweeperEnabled(cfg) {
		log.Warn("memory database driver, pending-booking sweeper disabled in worker")
	} else {
		sweeper, err := scheduler.NewSweeper(bookingService, cfg.Worker.SweepInterval())
		if err != nil {
			log.Fatalf("init sweeper: %v", err)
		}
		g.Go(func() error {
			return sweeper.Run(gctx)
		})
	}

	if len(cfg.Kafka.Brokers) > 0 {
		sender, err := email.NewSender(cfg.SMTP)
		if err != nil {
			log.Fatalf("init email sender: %v", err)
		}
		notifier := email.NewNotifier(stores.Profiles, sender)

		consumer := kafka.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.GroupID, cfg.Kafka.NotificationsTopic)
		defer consumer.Close()
		g.Go(func() error {
			return consumer.ConsumeEvents(gctx, notifier.Handle)
		})
	} else {
		log.Warn("kafka not configured, notification consumer disabled")
	}

	log.Info("worker started")
	if err := g.Wait(); err != nil {
		log.Errorf("worker stopped: %v", err)
		return
	}
	log.Info("worker stopped")
}
