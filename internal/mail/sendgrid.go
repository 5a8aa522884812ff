package mail

import (
	"context"
	"encoding/base64"
	"fmt"

	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"

	"javazone-calendar/pkg/util"
)

const (
	sendGridHost     = "https://api.sendgrid.com"
	sendGridEndpoint = "/v3/mail/send"
)

// SendGridSender delivers through the SendGrid v3 API.
type SendGridSender struct {
	apiKey string
	host   string
	from   from
}

// NewSendGridSender creates a sender. An empty host means the public API.
func NewSendGridSender(apiKey, host string, sender from) *SendGridSender {
	if host == "" {
		host = sendGridHost
	}
	return &SendGridSender{
		apiKey: apiKey,
		host:   host,
		from:   sender,
	}
}

func (s *SendGridSender) Send(ctx context.Context, msg Message) error {
	request := sendgrid.GetRequest(s.apiKey, sendGridEndpoint, s.host)
	request.Method = "POST"
	request.Body = sgmail.GetRequestBody(s.buildMessage(msg))

	response, err := sendgrid.MakeRequestWithContext(ctx, request)
	if err != nil {
		return fmt.Errorf("failed to call sendgrid: %w", err)
	}
	if response.StatusCode < 200 || response.StatusCode >= 300 {
		return &util.StatusError{Service: "sendgrid", StatusCode: response.StatusCode, Body: response.Body}
	}
	return nil
}

func (s *SendGridSender) buildMessage(msg Message) *sgmail.SGMailV3 {
	contentType := msg.Calendar.ContentType()

	m := sgmail.NewV3Mail()
	m.SetFrom(sgmail.NewEmail(s.from.name, s.from.address))
	m.Subject = msg.Subject

	p := sgmail.NewPersonalization()
	p.AddTos(sgmail.NewEmail("", msg.To))
	m.AddPersonalizations(p)

	m.AddContent(sgmail.NewContent(contentType, string(msg.Calendar.Body)))

	a := sgmail.NewAttachment()
	a.SetContent(base64.StdEncoding.EncodeToString(msg.Calendar.Body))
	a.SetType(contentType)
	a.SetFilename(calendarFileName)
	a.SetDisposition("attachment")
	m.AddAttachment(a)

	return m
}
