package email

import (
	"context"

	"github.com/Domenick1991/rentwheels/internal/domain"
	"github.com/Domenick1991/rentwheels/internal/repository"
	log "github.com/sirupsen/logrus"
)

type mailer interface {
	Send(ctx context.Context, to string, event domain.BookingEvent) error
}

// Notifier resolves the recipient from the user's profile and sends the email.
// Delivery is best-effort: failures are logged and never returned.
type Notifier struct {
	profiles repository.ProfileRepository
	sender   mailer
}

func NewNotifier(profiles repository.ProfileRepository, sender mailer) *Notifier {
	return &Notifier{profiles: profiles, sender: sender}
}

func (n *Notifier) Handle(ctx context.Context, event domain.BookingEvent) error {
	logger := log.WithFields(log.Fields{"type": event.Type, "booking_id": event.BookingID})
	if !HasTemplate(event.Type) {
		logger.Debug("no notification for event")
		return nil
	}

	profile, err := n.profiles.GetByID(ctx, event.UserID)
	if err != nil {
		logger.WithError(err).Warn("notification recipient lookup failed")
		return nil
	}
	if profile.Email == "" {
		logger.Warn("notification recipient has no email")
		return nil
	}

	if err := n.sender.Send(ctx, profile.Email, event); err != nil {
		logger.WithError(err).Warn("send notification email failed")
	}
	return nil
}
