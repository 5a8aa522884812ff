package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"javazone-calendar/internal/trigger"
	"javazone-calendar/pkg/logger"
)

// Replayer makes a sent queue entry pending again.
type Replayer interface {
	Replay(ctx context.Context, id uuid.UUID) error
}

// FailureCounts reads and resets the consecutive delivery failures of an entry.
type FailureCounts interface {
	Get(ctx context.Context, id string) (int64, error)
	Clear(ctx context.Context, id string) error
}

type EmailQueueHandler struct {
	queue    Replayer
	trigger  trigger.Trigger
	failures FailureCounts
	logger   *zap.Logger
}

func NewEmailQueueHandler(queue Replayer, trig trigger.Trigger, logger *zap.Logger) *EmailQueueHandler {
	return &EmailQueueHandler{queue: queue, trigger: trig, logger: logger}
}

// WithFailureCounts makes Replay report and reset the entry's failure count.
func (h *EmailQueueHandler) WithFailureCounts(f FailureCounts) *EmailQueueHandler {
	h.failures = f
	return h
}

// RequestDrain POST /api/v1/email_queue?limit=30
func (h *EmailQueueHandler) RequestDrain(c *gin.Context) {
	limit := 0
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit parameter"})
			return
		}
		limit = n
	}

	u, _ := CurrentUser(c)
	if err := h.trigger.RequestDrain(c.Request.Context(), u.Email, limit); err != nil {
		writeError(c, h.logger, "failed to request email queue drain", err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Replay 重放指定的队列条目
// POST /api/v1/email_queue/:id/replay
func (h *EmailQueueHandler) Replay(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id parameter"})
		return
	}

	if err := h.queue.Replay(c.Request.Context(), id); err != nil {
		writeError(c, h.logger, "failed to replay entry", err)
		return
	}

	u, _ := CurrentUser(c)
	log := logger.WithTrace(c.Request.Context(), h.logger)
	fields := []zap.Field{
		zap.String("entry_id", id.String()),
		zap.String("by", u.Email),
	}
	if h.failures != nil {
		fields = append(fields, zap.Int64("consecutive_failures", h.resetFailures(c.Request.Context(), log, id)))
	}
	log.Info("Queue entry replayed", fields...)
	c.Status(http.StatusNoContent)
}

// resetFailures returns the count the entry had before it was cleared.
func (h *EmailQueueHandler) resetFailures(ctx context.Context, log *zap.Logger, id uuid.UUID) int64 {
	count, err := h.failures.Get(ctx, id.String())
	if err != nil {
		log.Warn("Failed to read entry failures", zap.String("entry_id", id.String()), zap.Error(err))
	}
	if err := h.failures.Clear(ctx, id.String()); err != nil {
		log.Warn("Failed to clear entry failures", zap.String("entry_id", id.String()), zap.Error(err))
	}
	return count
}
