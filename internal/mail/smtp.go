package mail

import (
	"bytes"
	"context"
	"fmt"

	gomail "github.com/wneessen/go-mail"
)

// SMTPSender delivers through an SMTP relay. Port 465 uses implicit TLS,
// anything else requires STARTTLS.
type SMTPSender struct {
	host     string
	port     int
	username string
	password string
	from     from
}

func NewSMTPSender(host string, port int, username, password string, sender from) *SMTPSender {
	if port == 0 {
		port = 465
	}
	return &SMTPSender{
		host:     host,
		port:     port,
		username: username,
		password: password,
		from:     sender,
	}
}

func (s *SMTPSender) Send(ctx context.Context, msg Message) error {
	m, err := s.buildMessage(msg)
	if err != nil {
		return err
	}

	opts := []gomail.Option{
		gomail.WithPort(s.port),
		gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
		gomail.WithUsername(s.username),
		gomail.WithPassword(s.password),
	}
	if s.port == 465 {
		opts = append(opts, gomail.WithSSL())
	} else {
		opts = append(opts, gomail.WithTLSPolicy(gomail.TLSMandatory))
	}

	client, err := gomail.NewClient(s.host, opts...)
	if err != nil {
		return fmt.Errorf("failed to create smtp client: %w", err)
	}

	if err := client.DialAndSendWithContext(ctx, m); err != nil {
		return fmt.Errorf("failed to send smtp message: %w", err)
	}
	return nil
}

// buildMessage renders the calendar both inline and as an attachment; some
// clients only pick up one of the two.
func (s *SMTPSender) buildMessage(msg Message) (*gomail.Msg, error) {
	m := gomail.NewMsg()
	if err := m.FromFormat(s.from.name, s.from.address); err != nil {
		return nil, fmt.Errorf("invalid sender address: %w", err)
	}
	if err := m.To(msg.To); err != nil {
		return nil, fmt.Errorf("invalid recipient address: %w", err)
	}
	m.Subject(msg.Subject)
	m.SetDate()

	contentType := gomail.ContentType(msg.Calendar.ContentType())
	m.SetBodyString(contentType, string(msg.Calendar.Body))
	if err := m.AttachReader(calendarFileName, bytes.NewReader(msg.Calendar.Body),
		gomail.WithFileContentType(contentType)); err != nil {
		return nil, fmt.Errorf("failed to attach calendar: %w", err)
	}

	return m, nil
}
