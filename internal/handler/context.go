package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"javazone-calendar/internal/model"
	"javazone-calendar/internal/repository"
	"javazone-calendar/pkg/logger"
	"javazone-calendar/pkg/outbox"
)

const userContextKey = "user"

// SetUser stores the authenticated user on the request.
func SetUser(c *gin.Context, u model.User) {
	c.Set(userContextKey, u)
}

// CurrentUser returns the user stored by the auth middleware.
func CurrentUser(c *gin.Context) (model.User, bool) {
	v, ok := c.Get(userContextKey)
	if !ok {
		return model.User{}, false
	}
	u, ok := v.(model.User)
	return u, ok
}

func requireUser(c *gin.Context) (model.User, bool) {
	u, ok := CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not authenticated"})
		return model.User{}, false
	}
	return u, true
}

// writeError maps service errors to responses. Anything not known is a 500.
func writeError(c *gin.Context, l *zap.Logger, msg string, err error) {
	switch {
	case errors.Is(err, repository.ErrNotFound), errors.Is(err, outbox.ErrEntryNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	default:
		logger.WithTrace(c.Request.Context(), l).Error(msg, zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   msg,
			"details": err.Error(),
		})
	}
}
