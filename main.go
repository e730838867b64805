// api/main.go
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"funnelscope/api/config"
	"funnelscope/api/handlers"
	"funnelscope/api/logger"
	"funnelscope/api/worker"
)

var envFiles []string

func main() {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "funnelscope",
		Short:         "Conversion funnel analytics service",
		SilenceUsage:  true,
		SilenceErrors: false,
		RunE:          runServe,
	}
	rootCmd.PersistentFlags().StringSliceVar(&envFiles, "env-file", nil, ".env files to load (default .env)")

	rootCmd.AddCommand(&cobra.Command{
		Use:   "serve",
		Short: "Run the tracking and dashboard HTTP API",
		RunE:  runServe,
	})
	rootCmd.AddCommand(newReportCmd(), newExportCmd(), newClearCmd(), newStagesCmd())
	return rootCmd
}

// loadConfig reads configuration and initialises logging; every command starts here.
func loadConfig() (*config.Configuration, error) {
	cfg, err := config.NewConfig(envFiles...)
	if err != nil {
		return nil, err
	}
	if err := logger.Init(cfg.LogConfig()); err != nil {
		return nil, err
	}
	return cfg, nil
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	defer logger.Close()
	log := logger.Component("server")

	if cfg.GinMode == gin.ReleaseMode {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg, true)
	if err != nil {
		log.WithError(err).Error("failed to initialize")
		return err
	}
	defer a.Close()

	sweeper := worker.NewAbandonmentSweeper(a.engine, cfg.SweepInterval, logger.Component("sweeper"))
	go sweeper.Start(ctx)

	var archive handlers.EventArchive
	if a.analytics != nil {
		archive = a.analytics
	}
	router := handlers.NewRouter(
		handlers.NewFunnelHandlers(a.engine, archive),
		handlers.NewStatsHandlers(a.analytics),
		cfg.FrontendOrigin,
	)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.WithField("port", cfg.Port).Info("funnel API server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			log.WithError(err).Error("server failed to start")
			return err
		}
	case <-ctx.Done():
	}
	log.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("server forced to shutdown")
		return err
	}

	// Capture abandonment of anyone idle past the cutoff before exiting.
	a.engine.SweepAbandoned(shutdownCtx)
	log.Info("server exiting")
	return nil
}
