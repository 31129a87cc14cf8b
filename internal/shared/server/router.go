package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"verisight-backend/internal/analyses"
	googleauth "verisight-backend/internal/auth"
	"verisight-backend/internal/chat"
	"verisight-backend/internal/services/health"
	"verisight-backend/internal/shared/auth"
	"verisight-backend/internal/shared/config"
	"verisight-backend/internal/shared/metrics"
	"verisight-backend/internal/shared/server/middleware"
	"verisight-backend/internal/shared/server/respond"
	"verisight-backend/internal/users"
)

// RouterDeps carries the handlers mounted by NewRouter. Nil handlers are skipped.
type RouterDeps struct {
	Config          config.Config
	Signer          *auth.Signer
	Sessions        middleware.SessionChecker
	AnalysisHandler *analyses.Handler
	UserHandler     *users.Handler
	ChatHandler     *chat.Handler
	GoogleAuth      *googleauth.GoogleService
	Health          *health.Service
}

// NewRouter constructs the Gin engine with middleware and routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	if deps.Config.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()

	r.Use(
		middleware.RequestID(),
		middleware.Logging(),
		middleware.Recovery(),
		middleware.CORS(deps.Config.CORSAllowOrigin),
	)

	r.GET("/metrics", metrics.Handler())

	api := r.Group("/api")
	api.GET("/health", func(c *gin.Context) {
		status := deps.Health.Check(c.Request.Context())
		code := http.StatusOK
		if !status.OK {
			code = http.StatusServiceUnavailable
		}
		respond.JSON(c, code, status)
	})

	if deps.UserHandler != nil {
		deps.UserHandler.RegisterPublicRoutes(api)
	}
	if deps.GoogleAuth != nil {
		deps.GoogleAuth.RegisterRoutes(api)
	}
	if deps.ChatHandler != nil {
		optional := api.Group("")
		optional.Use(middleware.OptionalAuth(deps.Signer, deps.Sessions))
		deps.ChatHandler.RegisterRoutes(optional)
	}

	protected := api.Group("")
	protected.Use(middleware.Auth(deps.Signer, deps.Sessions))
	if deps.UserHandler != nil {
		deps.UserHandler.RegisterRoutes(protected)
	}
	if deps.AnalysisHandler != nil {
		deps.AnalysisHandler.RegisterRoutes(protected)
	}

	return r
}

// Addr normalizes the listen address.
func Addr(port string) string {
	if port == "" {
		return ":8080"
	}
	if port[0] == ':' {
		return port
	}
	return ":" + port
}
