package mail

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"javazone-calendar/internal/calendar"
	"javazone-calendar/pkg/circuitbreaker"
	"javazone-calendar/pkg/config"
)

// DefaultSenderName is the display name used when none is configured.
const DefaultSenderName = "JavaZone Calendar Manager"

// calendarFileName is the attachment name mail clients see.
const calendarFileName = "event.ics"

// Provider names accepted in mail.provider.
const (
	ProviderSMTP     = "smtp"
	ProviderSendGrid = "sendgrid"
	ProviderMaileroo = "maileroo"
	ProviderNone     = "none"
)

// Message is one calendar email to one recipient.
type Message struct {
	To       string
	Subject  string
	Calendar calendar.Document
}

// Sender delivers messages. Send returns an error only when delivery failed;
// callers must not treat the message as sent in that case.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

type from struct {
	name    string
	address string
}

// New builds the configured transport, wrapped with a circuit breaker and
// send metrics. A provider without credentials is replaced by a sender that
// only logs.
func New(cfg config.MailConfig, logger *zap.Logger) (Sender, error) {
	sender := from{name: cfg.SenderName, address: cfg.SenderEmail}
	if sender.name == "" {
		sender.name = DefaultSenderName
	}

	var (
		transport Sender
		provider  = cfg.Provider
	)

	switch provider {
	case ProviderSMTP:
		if cfg.SMTP.Username == "" || cfg.SMTP.Password == "" || cfg.SenderEmail == "" {
			return newDisabled(provider, logger), nil
		}
		transport = NewSMTPSender(cfg.SMTP.Host, cfg.SMTP.Port, cfg.SMTP.Username, cfg.SMTP.Password, sender)
	case ProviderSendGrid:
		if cfg.SendGrid.APIKey == "" || cfg.SenderEmail == "" {
			return newDisabled(provider, logger), nil
		}
		transport = NewSendGridSender(cfg.SendGrid.APIKey, "", sender)
	case ProviderMaileroo:
		if cfg.Maileroo.APIKey == "" || cfg.SenderEmail == "" {
			return newDisabled(provider, logger), nil
		}
		transport = NewMailerooSender(cfg.Maileroo.APIKey, cfg.Maileroo.Endpoint, sender, nil)
	case ProviderNone, "":
		return newDisabled(ProviderNone, logger), nil
	default:
		return nil, fmt.Errorf("unknown mail provider %q", provider)
	}

	logger.Info("Mail transport configured",
		zap.String("provider", provider),
		zap.String("sender", cfg.SenderEmail),
	)

	return NewInstrumented(provider, transport, circuitbreaker.NewCircuitBreaker(circuitbreaker.DefaultConfig()), logger), nil
}

func newDisabled(provider string, logger *zap.Logger) Sender {
	logger.Warn("Mail sending is disabled, messages will only be logged", zap.String("provider", provider))
	return NewLogSender(logger)
}
