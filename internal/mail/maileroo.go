package mail

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"javazone-calendar/pkg/util"
)

const mailerooEndpoint = "https://smtp.maileroo.com/api/v2/emails"

// MailerooSender delivers through the Maileroo HTTP API.
type MailerooSender struct {
	apiKey   string
	endpoint string
	from     from
	client   *http.Client
}

// NewMailerooSender creates a sender. An empty endpoint means the public API;
// a nil client gets a 15 second timeout.
func NewMailerooSender(apiKey, endpoint string, sender from, client *http.Client) *MailerooSender {
	if endpoint == "" {
		endpoint = mailerooEndpoint
	}
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	return &MailerooSender{
		apiKey:   apiKey,
		endpoint: endpoint,
		from:     sender,
		client:   client,
	}
}

type mailerooAddress struct {
	Address     string `json:"address"`
	DisplayName string `json:"display_name,omitempty"`
}

type mailerooAttachment struct {
	FileName    string `json:"file_name"`
	ContentType string `json:"content_type"`
	Content     string `json:"content"`
	Inline      bool   `json:"inline"`
}

type mailerooRequest struct {
	From        mailerooAddress      `json:"from"`
	To          []mailerooAddress    `json:"to"`
	Subject     string               `json:"subject"`
	Plain       string               `json:"plain"`
	Attachments []mailerooAttachment `json:"attachments"`
}

func (s *MailerooSender) Send(ctx context.Context, msg Message) error {
	body, err := json.Marshal(s.buildRequest(msg))
	if err != nil {
		return fmt.Errorf("failed to marshal maileroo request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create maileroo request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Api-Key", s.apiKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to call maileroo: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &util.StatusError{Service: "maileroo", StatusCode: resp.StatusCode, Body: string(respBody)}
	}
	return nil
}

func (s *MailerooSender) buildRequest(msg Message) mailerooRequest {
	content := base64.StdEncoding.EncodeToString(msg.Calendar.Body)
	contentType := msg.Calendar.ContentType()

	return mailerooRequest{
		From:    mailerooAddress{Address: s.from.address, DisplayName: s.from.name},
		To:      []mailerooAddress{{Address: msg.To}},
		Subject: msg.Subject,
		Plain:   msg.Subject,
		Attachments: []mailerooAttachment{
			{FileName: "event_inline.ics", ContentType: contentType, Content: content, Inline: true},
			{FileName: calendarFileName, ContentType: contentType, Content: content},
		},
	}
}
