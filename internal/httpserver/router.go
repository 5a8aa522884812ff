package httpserver

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"javazone-calendar/internal/handler"
	"javazone-calendar/pkg/otel"
	"javazone-calendar/pkg/rbac"
)

// Pinger reports whether the database is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Deps struct {
	Sessions   *handler.SessionHandler
	Users      *handler.UserHandler
	EmailQueue *handler.EmailQueueHandler
	Registrar  UserRegistrar
	Policy     *rbac.Policy
	Auth       AuthOptions
	DB         Pinger
	Logger     *zap.Logger
}

type Router struct {
	Engine *gin.Engine
}

func NewRouter(d Deps) *Router {
	r := gin.New()
	r.Use(gin.Recovery(), TraceMiddleware(), otel.GinMiddleware(), MetricsMiddleware())

	// Health endpoints (放在最前面)
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.HEAD("/healthz", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	r.GET("/readyz", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), time.Second)
		defer cancel()

		if err := d.DB.Ping(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "db_not_ready", "error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/api/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ping": "pong"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := r.Group("/api/v1")

	// Public
	v1.GET("/sessions", d.Sessions.List)
	v1.GET("/sessions.ics", d.Sessions.Calendar)
	v1.GET("/sessions/:id", d.Sessions.Get)

	// Protected
	auth := v1.Group("/")
	auth.Use(AuthMiddleware(d.Auth, d.Registrar, d.Logger))
	{
		auth.GET("/sessions/:id/join", RequirePermission(d.Policy, rbac.PermissionJoinSession), d.Sessions.Join)
		auth.GET("/sessions/:id/leave", RequirePermission(d.Policy, rbac.PermissionJoinSession), d.Sessions.Leave)
		auth.POST("/sessions/:id/resend", RequirePermission(d.Policy, rbac.PermissionJoinSession), d.Sessions.Resend)

		auth.GET("/users/me", RequirePermission(d.Policy, rbac.PermissionManageAccount), d.Users.Me)
		auth.DELETE("/users/me", RequirePermission(d.Policy, rbac.PermissionManageAccount), d.Users.Delete)
		auth.GET("/users/me/sessions.ics", RequirePermission(d.Policy, rbac.PermissionManageAccount), d.Users.Calendar)

		// Admin
		auth.POST("/sessions", RequirePermission(d.Policy, rbac.PermissionSyncSessions), d.Sessions.RequestSync)
		auth.POST("/email_queue", RequirePermission(d.Policy, rbac.PermissionDrainQueue), d.EmailQueue.RequestDrain)
		auth.POST("/email_queue/:id/replay", RequirePermission(d.Policy, rbac.PermissionReplayQueue), d.EmailQueue.Replay)
	}

	return &Router{Engine: r}
}

// Server wraps the router in an http.Server so main can shut it down.
func (r *Router) Server(addr string) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           r.Engine,
		ReadHeaderTimeout: 10 * time.Second,
	}
}
