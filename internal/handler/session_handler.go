package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"javazone-calendar/internal/calendar"
	"javazone-calendar/internal/model"
	"javazone-calendar/internal/trigger"
)

// SessionService is what the session endpoints need.
type SessionService interface {
	List(ctx context.Context) ([]*model.Session, error)
	Get(ctx context.Context, id uuid.UUID) (*model.SessionWithUsers, error)
	Join(ctx context.Context, id uuid.UUID, email string) (*model.SessionWithUsers, error)
	Leave(ctx context.Context, id uuid.UUID, email string) (*model.SessionWithUsers, error)
	Resend(ctx context.Context, id uuid.UUID, email string) (*model.SessionWithUsers, error)
	Calendar(ctx context.Context) (calendar.Document, error)
}

type SessionHandler struct {
	sessions SessionService
	trigger  trigger.Trigger
	logger   *zap.Logger
}

func NewSessionHandler(sessions SessionService, trig trigger.Trigger, logger *zap.Logger) *SessionHandler {
	return &SessionHandler{sessions: sessions, trigger: trig, logger: logger}
}

// List GET /api/v1/sessions
func (h *SessionHandler) List(c *gin.Context) {
	sessions, err := h.sessions.List(c.Request.Context())
	if err != nil {
		writeError(c, h.logger, "failed to list sessions", err)
		return
	}
	c.JSON(http.StatusOK, sessions)
}

// Calendar GET /api/v1/sessions.ics
func (h *SessionHandler) Calendar(c *gin.Context) {
	doc, err := h.sessions.Calendar(c.Request.Context())
	if err != nil {
		writeError(c, h.logger, "failed to render calendar", err)
		return
	}
	c.Data(http.StatusOK, doc.ContentType(), doc.Body)
}

// Get GET /api/v1/sessions/:id
func (h *SessionHandler) Get(c *gin.Context) {
	id, ok := sessionID(c)
	if !ok {
		return
	}

	s, err := h.sessions.Get(c.Request.Context(), id)
	if err != nil {
		writeError(c, h.logger, "failed to get session", err)
		return
	}
	c.JSON(http.StatusOK, s)
}

// Join GET /api/v1/sessions/:id/join
func (h *SessionHandler) Join(c *gin.Context) {
	h.withUser(c, "failed to join session", h.sessions.Join)
}

// Leave GET /api/v1/sessions/:id/leave
func (h *SessionHandler) Leave(c *gin.Context) {
	h.withUser(c, "failed to leave session", h.sessions.Leave)
}

// Resend POST /api/v1/sessions/:id/resend
func (h *SessionHandler) Resend(c *gin.Context) {
	h.withUser(c, "failed to resend invitation", h.sessions.Resend)
}

// RequestSync POST /api/v1/sessions
// The sync itself runs in the worker (or a goroutine); the response does not
// wait for it.
func (h *SessionHandler) RequestSync(c *gin.Context) {
	u, _ := CurrentUser(c)
	if err := h.trigger.RequestSync(c.Request.Context(), u.Email); err != nil {
		writeError(c, h.logger, "failed to request session sync", err)
		return
	}
	c.Status(http.StatusNoContent)
}

type userAction func(ctx context.Context, id uuid.UUID, email string) (*model.SessionWithUsers, error)

func (h *SessionHandler) withUser(c *gin.Context, msg string, action userAction) {
	id, ok := sessionID(c)
	if !ok {
		return
	}
	u, ok := requireUser(c)
	if !ok {
		return
	}

	s, err := action(c.Request.Context(), id, u.Email)
	if err != nil {
		writeError(c, h.logger, msg, err)
		return
	}
	c.JSON(http.StatusOK, s)
}

func sessionID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid session id"})
		return uuid.Nil, false
	}
	return id, true
}
