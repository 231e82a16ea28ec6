package email

import (
	"bytes"
	"context"
	"fmt"
	"text/template"
	"time"

	"github.com/Domenick1991/rentwheels/config"
	"github.com/Domenick1991/rentwheels/internal/domain"
	log "github.com/sirupsen/logrus"
	"github.com/wneessen/go-mail"
)

// dialer is satisfied by *mail.Client.
type dialer interface {
	DialAndSendWithContext(ctx context.Context, messages ...*mail.Msg) error
}

type Sender struct {
	client   dialer
	from     string
	fromName string
}

// NewSender builds an SMTP sender. With no host configured messages are only logged.
func NewSender(cfg config.SMTPConfig) (*Sender, error) {
	s := &Sender{from: cfg.From, fromName: cfg.FromName}
	if cfg.Host == "" {
		return s, nil
	}

	port := cfg.Port
	if port == 0 {
		port = 587
	}
	c, err := mail.NewClient(
		cfg.Host,
		mail.WithPort(port),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(cfg.Username),
		mail.WithPassword(cfg.Password),
	)
	if err != nil {
		return nil, fmt.Errorf("init smtp client: %w", err)
	}
	s.client = c
	return s, nil
}

func (s *Sender) Send(ctx context.Context, to string, event domain.BookingEvent) error {
	subject, body, err := Render(event)
	if err != nil {
		return err
	}

	if s.client == nil {
		log.WithFields(log.Fields{"to": to, "type": event.Type, "booking_id": event.BookingID}).Info("smtp disabled, email not sent")
		return nil
	}

	msg := mail.NewMsg()
	if err := msg.FromFormat(s.fromName, s.from); err != nil {
		return fmt.Errorf("set from address: %w", err)
	}
	if err := msg.To(to); err != nil {
		return fmt.Errorf("set to address: %w", err)
	}
	msg.Subject(subject)
	msg.SetBodyString(mail.TypeTextPlain, body)

	return s.client.DialAndSendWithContext(ctx, msg)
}

var templates = map[domain.EventType]struct {
	subject string
	body    *template.Template
}{
	domain.EventBookingConfirmed: {
		subject: "Your booking is confirmed",
		body: template.Must(template.New("confirmed").Funcs(funcs).Parse(
			`Booking {{.BookingID}} is confirmed.
Pickup: {{when .PickupAt}} at {{.PickupLocation}}
Return: {{when .ReturnAt}}
Amount paid: {{money .AmountMinor}} {{.Currency}}
`)),
	},
	domain.EventBookingCancelled: {
		subject: "Your booking was cancelled",
		body: template.Must(template.New("cancelled").Funcs(funcs).Parse(
			`Booking {{.BookingID}} was cancelled.
{{with .Reason}}Reason: {{.}}
{{end}}{{with .Refund}}Refund: {{money .AmountMinor}} ({{.Percent}}%), expected within {{.ProcessingTime}}.
{{end}}`)),
	},
	domain.EventBookingModified: {
		subject: "Your booking was updated",
		body: template.Must(template.New("modified").Funcs(funcs).Parse(
			`Booking {{.BookingID}} was updated and is awaiting re-approval.
{{with .Previous}}Before: {{when .PickupAt}} to {{when .ReturnAt}} at {{.PickupLocation}}, {{money .AmountMinor}}
{{end}}Now: {{when .PickupAt}} to {{when .ReturnAt}} at {{.PickupLocation}}, {{money .AmountMinor}} {{.Currency}}
{{if .AmountDeltaMinor}}Difference: {{money .AmountDeltaMinor}}
{{end}}`)),
	},
}

var funcs = template.FuncMap{
	"money": func(minor int64) string {
		sign := ""
		if minor < 0 {
			sign, minor = "-", -minor
		}
		return fmt.Sprintf("%s%d.%02d", sign, minor/100, minor%100)
	},
	"when": func(t time.Time) string {
		return t.Format("02 Jan 2006 15:04 MST")
	},
}

// Render builds subject and plain-text body for a notification kind.
func Render(event domain.BookingEvent) (string, string, error) {
	tpl, ok := templates[event.Type]
	if !ok {
		return "", "", fmt.Errorf("no email template for event %q", event.Type)
	}
	var buf bytes.Buffer
	if err := tpl.body.Execute(&buf, event); err != nil {
		return "", "", fmt.Errorf("render %s email: %w", event.Type, err)
	}
	return tpl.subject, buf.String(), nil
}

// HasTemplate reports whether the event kind produces an email.
func HasTemplate(t domain.EventType) bool {
	_, ok := templates[t]
	return ok
}
