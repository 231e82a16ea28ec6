package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/Domenick1991/rentwheels/config"
	"github.com/Domenick1991/rentwheels/internal/availability"
	"github.com/Domenick1991/rentwheels/internal/bootstrap"
	"github.com/Domenick1991/rentwheels/internal/kafka"
	"github.com/Domenick1991/rentwheels/internal/logger"
	"github.com/Domenick1991/rentwheels/internal/payment"
	"github.com/Domenick1991/rentwheels/internal/service/booking"
	"github.com/Domenick1991/rentwheels/internal/service/vehicles"
	log "github.com/sirupsen/logrus"
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
	} else {
		log.Warn("kafka not configured, booking events are only logged")
	}
	dispatcher := booking.NewDispatcher(producer, cfg.Kafka.BookingTopic,
		booking.WithNotificationsTopic(cfg.Kafka.NotificationsTopic))

	if cfg.Payment.AllowTestPayments {
		log.Warn("test payments are enabled")
	}
	gateway := payment.NewRazorpayGateway(cfg.Payment.KeyID, cfg.Payment.KeySecret)

	vehicleService := vehicles.NewVehicleService(stores.Vehicles, coord.Cache, availability.NewChecker(stores.Bookings))
	bookingService := booking.NewBookingService(
		stores.Bookings,
		stores.Vehicles,
		gateway,
		coord.Locker,
		bootstrap.BookingPolicy(cfg),
		booking.WithDispatcher(dispatcher),
	)

	if err := bootstrap.Run(ctx, cfg, vehicleService, bookingService); err != nil {
		log.Fatalf("server error: %v", err)
	}
}
