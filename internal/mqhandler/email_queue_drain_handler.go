package mqhandler

import (
	"context"
	"encoding/json"
	"errors"

	"go.uber.org/zap"

	"javazone-calendar/contracts/mq"
	"javazone-calendar/pkg/logger"
	"javazone-calendar/pkg/outbox"
)

// Drainer processes pending queue entries.
type Drainer interface {
	ProcessQueue(ctx context.Context, limit int) (outbox.Report, error)
}

type EmailQueueDrainHandler struct {
	drainer Drainer
	logger  *zap.Logger
}

func NewEmailQueueDrainHandler(drainer Drainer, logger *zap.Logger) *EmailQueueDrainHandler {
	return &EmailQueueDrainHandler{drainer: drainer, logger: logger}
}

// HandleDrainRequested processes one batch. Entries that failed stay pending
// for the next request; the error still dead-letters this message. A drain
// already running in another process covers the request.
func (h *EmailQueueDrainHandler) HandleDrainRequested(ctx context.Context, raw json.RawMessage) error {
	log := logger.WithTrace(ctx, h.logger)

	var p mq.EmailQueueDrainRequestedPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		log.Error("Failed to unmarshal drain request", zap.Error(err))
		return err
	}

	report, err := h.drainer.ProcessQueue(ctx, p.Limit)
	if errors.Is(err, outbox.ErrDrainInProgress) {
		log.Info("Email queue drain already running, request absorbed")
		return nil
	}
	if err != nil {
		log.Error("Email queue drain failed",
			zap.Int("sent", report.Sent),
			zap.Error(err),
		)
		return err
	}

	log.Info("Email queue drained",
		zap.String("requested_by", p.RequestedBy),
		zap.Int("selected", report.Selected),
		zap.Int("sent", report.Sent),
		zap.Int("skipped", report.Skipped),
		zap.Int("unknown", report.Unknown),
	)
	return nil
}
