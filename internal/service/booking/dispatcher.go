package booking

import (
	"context"
	"time"

	"github.com/Domenick1991/rentwheels/internal/domain"
	log "github.com/sirupsen/logrus"
)

type Producer interface {
	Publish(ctx context.Context, topic, key string, value interface{}) error
}

// Dispatcher delivers booking events after the state change is stored. Delivery is best-effort:
// failures are logged and never reach the caller.
type Dispatcher struct {
	producer           Producer
	bookingTopic       string
	notificationsTopic string
	timeout            time.Duration
}

type DispatcherOption func(*Dispatcher)

func WithNotificationsTopic(topic string) DispatcherOption {
	return func(d *Dispatcher) {
		d.notificationsTopic = topic
	}
}

// NewDispatcher accepts a nil producer, in which case events are only logged.
func NewDispatcher(producer Producer, bookingTopic string, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		producer:     producer,
		bookingTopic: bookingTopic,
		timeout:      5 * time.Second,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func (d *Dispatcher) Dispatch(ctx context.Context, events ...domain.BookingEvent) {
	if len(events) == 0 {
		return
	}
	// The request may finish before delivery; the commit already happened.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), d.timeout)
	defer cancel()

	for _, event := range events {
		logger := log.WithFields(log.Fields{"type": event.Type, "booking_id": event.BookingID})
		if d.producer == nil {
			logger.Debug("no producer configured, event dropped")
			continue
		}
		for _, topic := range d.topics(event.Type) {
			if err := d.producer.Publish(ctx, topic, event.BookingID, event); err != nil {
				logger.WithError(err).WithField("topic", topic).Warn("failed to publish booking event")
			}
		}
	}
}

func (d *Dispatcher) topics(t domain.EventType) []string {
	topics := make([]string, 0, 2)
	if d.bookingTopic != "" {
		topics = append(topics, d.bookingTopic)
	}
	if d.notificationsTopic != "" && t != domain.EventBookingExpired {
		topics = append(topics, d.notificationsTopic)
	}
	return topics
}
