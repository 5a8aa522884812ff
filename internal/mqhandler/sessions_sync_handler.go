package mqhandler

import (
	"context"
	"encoding/json"
	"errors"

	"go.uber.org/zap"

	"javazone-calendar/contracts/mq"
	"javazone-calendar/internal/sleepingpill"
	"javazone-calendar/pkg/logger"
)

// Syncer runs one reconciliation pass.
type Syncer interface {
	UpdateSessions(ctx context.Context) (sleepingpill.Report, error)
}

type SessionsSyncHandler struct {
	syncer Syncer
	logger *zap.Logger
}

func NewSessionsSyncHandler(syncer Syncer, logger *zap.Logger) *SessionsSyncHandler {
	return &SessionsSyncHandler{syncer: syncer, logger: logger}
}

// HandleSyncRequested runs the reconciler for a sessions.sync.requested
// message. A run already in progress elsewhere covers this request, so the
// message is acknowledged without error.
func (h *SessionsSyncHandler) HandleSyncRequested(ctx context.Context, raw json.RawMessage) error {
	log := logger.WithTrace(ctx, h.logger)

	var p mq.SessionsSyncRequestedPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		log.Error("Failed to unmarshal sync request", zap.Error(err))
		return err
	}

	log.Info("Processing session sync request",
		zap.String("requested_by", p.RequestedBy),
		zap.Time("requested_at", p.RequestedAt),
	)

	if _, err := h.syncer.UpdateSessions(ctx); err != nil {
		if errors.Is(err, sleepingpill.ErrSyncInProgress) {
			log.Info("Session sync already running, request absorbed")
			return nil
		}
		return err
	}
	return nil
}
