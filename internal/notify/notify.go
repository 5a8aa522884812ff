package notify

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"javazone-calendar/internal/calendar"
	"javazone-calendar/internal/mail"
	"javazone-calendar/internal/model"
	"javazone-calendar/pkg/logger"
	"javazone-calendar/pkg/outbox"
)

// Notifier turns queue entries into calendar emails.
type Notifier struct {
	sender   mail.Sender
	calendar *calendar.Builder
	logger   *zap.Logger
}

func NewNotifier(sender mail.Sender, builder *calendar.Builder, logger *zap.Logger) *Notifier {
	return &Notifier{
		sender:   sender,
		calendar: builder,
		logger:   logger,
	}
}

// Register binds the notifier to every action it can deliver.
func (n *Notifier) Register(d *outbox.Dispatcher) {
	for _, action := range outbox.Actions() {
		d.Register(action, n.Handle)
	}
}

// Handle delivers one entry. A snapshot that cannot be decoded is an error;
// an invitation for an unscheduled session is skipped.
func (n *Notifier) Handle(ctx context.Context, e *outbox.Entry) error {
	session, err := model.ParseSession(e.Data)
	if err != nil {
		return fmt.Errorf("entry %s: %w", e.ID, err)
	}

	switch e.Action {
	case outbox.ActionInvite, outbox.ActionUpdate:
		return n.sendInvite(ctx, e, session)
	case outbox.ActionCancel:
		return n.sendCancel(ctx, e, session)
	default:
		return fmt.Errorf("entry %s: unsupported action %q", e.ID, e.Action)
	}
}

func (n *Notifier) sendInvite(ctx context.Context, e *outbox.Entry, s *model.Session) error {
	log := logger.WithTrace(ctx, n.logger)

	doc, err := n.calendar.Invite(s, e.UserEmail)
	if errors.Is(err, calendar.ErrNotScheduled) {
		log.Warn("Can't send invite, session is missing start or end time",
			zap.String("session_id", s.ID.String()),
			zap.String("title", s.Title),
			zap.String("entry_id", e.ID.String()),
		)
		return outbox.ErrSkip
	}
	if err != nil {
		return err
	}

	log.Info("Sending invite",
		zap.String("to", e.UserEmail),
		zap.String("session_id", s.ID.String()),
		zap.String("action", string(e.Action)),
	)
	return n.sender.Send(ctx, mail.Message{
		To:       e.UserEmail,
		Subject:  s.Title,
		Calendar: doc,
	})
}

func (n *Notifier) sendCancel(ctx context.Context, e *outbox.Entry, s *model.Session) error {
	logger.WithTrace(ctx, n.logger).Info("Sending cancel",
		zap.String("to", e.UserEmail),
		zap.String("session_id", s.ID.String()),
	)
	return n.sender.Send(ctx, mail.Message{
		To:       e.UserEmail,
		Subject:  "Cancelled: " + s.Title,
		Calendar: n.calendar.Cancel(s, e.UserEmail),
	})
}
