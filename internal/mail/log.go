package mail

import (
	"context"

	"go.uber.org/zap"

	"javazone-calendar/pkg/logger"
)

// LogSender logs messages instead of sending them.
type LogSender struct {
	logger *zap.Logger
}

func NewLogSender(logger *zap.Logger) *LogSender {
	return &LogSender{logger: logger}
}

func (s *LogSender) Send(ctx context.Context, msg Message) error {
	log := logger.WithTrace(ctx, s.logger)
	log.Info("Send is disabled, would have sent email",
		zap.String("to", msg.To),
		zap.String("subject", msg.Subject),
		zap.String("method", string(msg.Calendar.Method)),
	)
	log.Debug("iCalendar body", zap.ByteString("calendar", msg.Calendar.Body))
	return nil
}
