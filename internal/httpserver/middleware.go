package httpserver

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"javazone-calendar/internal/handler"
	"javazone-calendar/internal/model"
	"javazone-calendar/pkg/logger"
	"javazone-calendar/pkg/metrics"
	"javazone-calendar/pkg/rbac"
	"javazone-calendar/pkg/trace"
	"javazone-calendar/pkg/util"
)

// TraceMiddleware reuses an incoming X-Trace-ID or creates one, and echoes
// it on the response.
func TraceMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		traceID := c.GetHeader(trace.HeaderName)
		if traceID == "" {
			traceID = trace.GenerateTraceID()
		}
		c.Request = c.Request.WithContext(trace.WithContext(c.Request.Context(), traceID))
		c.Header(trace.HeaderName, traceID)
		c.Next()
	}
}

// MetricsMiddleware records request latency by route template.
func MetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		metrics.RecordHTTPRequestDuration(c.Request.Method, path, strconv.Itoa(c.Writer.Status()), time.Since(start))
	}
}

// UserRegistrar stores an authenticated user on first sight.
type UserRegistrar interface {
	GetOrCreate(ctx context.Context, u model.User) (*model.User, error)
}

// AuthOptions configures AuthMiddleware.
type AuthOptions struct {
	Secret string
	// Debug skips token checks and authenticates every request as DebugEmail.
	Debug      bool
	DebugEmail string
}

// AuthMiddleware validates the bearer token, registers the user and stores
// it on the request.
func AuthMiddleware(opts AuthOptions, users UserRegistrar, l *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		log := logger.WithTrace(c.Request.Context(), l)

		var u model.User
		if opts.Debug {
			log.Warn("Running in debug mode, using debug user", zap.String("email", opts.DebugEmail))
			u = model.User{Email: opts.DebugEmail, Name: "Debug User"}
		} else {
			token := util.ExtractToken(c.Request)
			if token == "" {
				c.Header("WWW-Authenticate", "Bearer")
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
				return
			}

			claims, err := util.ParseJWT(token, opts.Secret)
			if err != nil {
				log.Warn("Failed to decode token", zap.Error(err))
				c.Header("WWW-Authenticate", "Bearer")
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid authentication credentials"})
				return
			}
			u = model.User{Email: claims.Email, Name: claims.Name, PictureURL: claims.Picture}
		}

		stored, err := users.GetOrCreate(c.Request.Context(), u)
		if err != nil {
			log.Error("Failed to register user", zap.String("email", u.Email), zap.Error(err))
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "failed to load user"})
			return
		}

		handler.SetUser(c, *stored)
		c.Next()
	}
}

// RequirePermission 中间件：要求用户具有指定权限
func RequirePermission(policy *rbac.Policy, permission string) gin.HandlerFunc {
	return func(c *gin.Context) {
		u, ok := handler.CurrentUser(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "user not authenticated"})
			return
		}

		if err := policy.CheckPermission(u.Email, permission); err != nil {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": err.Error()})
			return
		}

		c.Next()
	}
}
