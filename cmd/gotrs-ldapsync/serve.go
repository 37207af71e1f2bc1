package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/gotrs-io/gotrs-ldapsync/internal/api"
	"github.com/gotrs-io/gotrs-ldapsync/internal/auth"
	"github.com/gotrs-io/gotrs-ldapsync/internal/config"
	"github.com/gotrs-io/gotrs-ldapsync/internal/services/ldapsync"
)

const shutdownTimeout = 15 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the admin API and the scheduled sync",
	Long: `Serve starts the admin HTTP API and, when import.schedule is set, runs
the directory sync on that cron schedule. SIGINT or SIGTERM stops accepting
requests and waits for a running sync to finish.`,
	RunE: runServe,
}

var noScheduleFlag bool

func init() {
	serveCmd.Flags().BoolVar(&noScheduleFlag, "no-schedule", false, "Serve the API without running scheduled syncs")
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signalContext()
	defer stop()

	cfg := config.Get()
	if cfg.API.JWTSecret == "" {
		return errors.New("api.jwt_secret is required to serve the admin API")
	}

	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	if cfg.App.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	var gatherer prometheus.Gatherer
	if cfg.Metrics.Enabled {
		gatherer = a.registry
	}
	router := api.NewRouter(api.RouterConfig{
		Sync:        a.service,
		JWT:         auth.NewJWTManager(cfg.API.JWTSecret, cfg.API.TokenDuration),
		Gatherer:    gatherer,
		MetricsPath: cfg.Metrics.Path,
		Logger:      a.logger,
	})
	srv := &http.Server{
		Addr:              cfg.API.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.logger.Info().Str("addr", srv.Addr).Msg("admin API listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("admin API: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		a.logger.Info().Msg("shutting down admin API")
		return srv.Shutdown(shutdownCtx)
	})

	if cfg.Import.Schedule != "" && !noScheduleFlag {
		scheduler, err := ldapsync.NewScheduler(a.service, cfg.Import.Schedule,
			ldapsync.WithLogger(a.logger),
			ldapsync.WithLocation(a.location),
			ldapsync.WithRunOnStartup(cfg.Import.RunOnStartup),
		)
		if err != nil {
			stop()
			_ = g.Wait()
			return err
		}
		g.Go(func() error {
			return scheduler.Run(gctx)
		})
	}

	return g.Wait()
}
