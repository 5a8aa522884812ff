package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"javazone-calendar/internal/calendar"
	"javazone-calendar/internal/service/users"
)

// UserService is what the user endpoints need.
type UserService interface {
	Me(ctx context.Context, email string) (*users.Profile, error)
	Delete(ctx context.Context, email string) error
}

// UserCalendarService renders a user's personal feed.
type UserCalendarService interface {
	UserCalendar(ctx context.Context, email string) (calendar.Document, error)
}

type UserHandler struct {
	users    UserService
	calendar UserCalendarService
	logger   *zap.Logger
}

func NewUserHandler(users UserService, cal UserCalendarService, logger *zap.Logger) *UserHandler {
	return &UserHandler{users: users, calendar: cal, logger: logger}
}

// Me GET /api/v1/users/me
func (h *UserHandler) Me(c *gin.Context) {
	u, ok := requireUser(c)
	if !ok {
		return
	}

	p, err := h.users.Me(c.Request.Context(), u.Email)
	if err != nil {
		writeError(c, h.logger, "failed to load user", err)
		return
	}
	c.JSON(http.StatusOK, p)
}

// Delete DELETE /api/v1/users/me
func (h *UserHandler) Delete(c *gin.Context) {
	u, ok := requireUser(c)
	if !ok {
		return
	}

	if err := h.users.Delete(c.Request.Context(), u.Email); err != nil {
		writeError(c, h.logger, "failed to delete user", err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Calendar GET /api/v1/users/me/sessions.ics
func (h *UserHandler) Calendar(c *gin.Context) {
	u, ok := requireUser(c)
	if !ok {
		return
	}

	doc, err := h.calendar.UserCalendar(c.Request.Context(), u.Email)
	if err != nil {
		writeError(c, h.logger, "failed to render calendar", err)
		return
	}
	c.Data(http.StatusOK, doc.ContentType(), doc.Body)
}
