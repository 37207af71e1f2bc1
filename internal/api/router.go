// Package api exposes the directory sync over a small authenticated HTTP API.
package api

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/gotrs-io/gotrs-ldapsync/internal/auth"
	"github.com/gotrs-io/gotrs-ldapsync/internal/logging"
	"github.com/gotrs-io/gotrs-ldapsync/internal/models"
	"github.com/gotrs-io/gotrs-ldapsync/internal/version"
)

// SyncService is what the API drives.
type SyncService interface {
	Sync(ctx context.Context, trigger string) (*models.SyncHistory, error)
	Running() bool
	LastRun(ctx context.Context) (*models.SyncHistory, error)
	History(ctx context.Context, limit int) ([]*models.SyncHistory, error)
	TestConnection(ctx context.Context) error
}

// RouterConfig wires the router.
type RouterConfig struct {
	Sync        SyncService
	JWT         *auth.JWTManager
	Gatherer    prometheus.Gatherer // nil disables the metrics endpoint
	MetricsPath string
	Logger      *zerolog.Logger
}

// NewRouter builds the gin engine serving the admin API.
func NewRouter(cfg RouterConfig) *gin.Engine {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}

	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(logger))

	h := &handlers{sync: cfg.Sync, logger: logger}

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"version": version.Short(),
			"running": cfg.Sync.Running(),
		})
	})
	if cfg.Gatherer != nil {
		path := cfg.MetricsPath
		if path == "" {
			path = "/metrics"
		}
		r.GET(path, gin.WrapH(promhttp.HandlerFor(cfg.Gatherer, promhttp.HandlerOpts{})))
	}

	v1 := r.Group("/api/v1/ldap", requireAuth(cfg.JWT))
	{
		v1.GET("/status", h.status)
		v1.GET("/history", h.history)
		v1.POST("/sync", requireAdmin(), h.triggerSync)
		v1.POST("/test", requireAdmin(), h.testConnection)
	}

	return r
}
