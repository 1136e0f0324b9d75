package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/arklim/social-platform-authkit/internal/infra/config"
	"github.com/arklim/social-platform-authkit/internal/transport/http/handlers"
	"github.com/arklim/social-platform-authkit/internal/transport/http/middleware"
	"github.com/arklim/social-platform-authkit/internal/usecase"
)

// Dependencies encapsulates the objects required to register routes.
type Dependencies struct {
	Config  *config.AppConfig
	Logger  *zap.Logger
	Machine *usecase.AuthStateMachine
	Store   *usecase.SecureTokenStore
	Monitor *usecase.SecurityMonitor
}

// Register configures the Gin engine for the local diagnostics listener.
func Register(deps Dependencies) (*gin.Engine, error) {
	if deps.Config.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(deps.Logger))

	httpMetrics, err := middleware.NewHTTPMetrics(deps.Config.Telemetry.Namespace, nil)
	if err != nil {
		return nil, err
	}
	r.Use(httpMetrics.Handler())

	healthHandler := handlers.NewHealthHandler()
	sessionHandler := handlers.NewSessionHandler(deps.Machine, deps.Store)
	securityHandler := handlers.NewSecurityHandler(deps.Monitor)

	r.GET("/healthz", healthHandler.Status)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	debug := r.Group("/debug")
	{
		debug.GET("/session", sessionHandler.Snapshot)
		debug.POST("/session/refresh", sessionHandler.Refresh)
		debug.DELETE("/session/error", sessionHandler.ClearError)

		debug.GET("/security/report", securityHandler.Report)
		debug.GET("/security/alerts", securityHandler.Alerts)
		debug.POST("/security/alerts/:id/resolve", securityHandler.ResolveAlert)
		debug.GET("/security/anomalies/:user_id", securityHandler.Anomaly)
	}

	return r, nil
}
