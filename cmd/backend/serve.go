package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/samber/do/v2"
	archiveimpl "github.com/showheysas/tech0notta/external/archive"
	credentialimpl "github.com/showheysas/tech0notta/external/credential"
	ingestimpl "github.com/showheysas/tech0notta/external/ingest"
	launcherimpl "github.com/showheysas/tech0notta/external/launcher"
	webhookimpl "github.com/showheysas/tech0notta/external/webhook"
	"github.com/showheysas/tech0notta/internal/archive"
	"github.com/showheysas/tech0notta/internal/botsession"
	"github.com/showheysas/tech0notta/internal/config"
	"github.com/showheysas/tech0notta/internal/httpapi"
	"github.com/showheysas/tech0notta/internal/ingest"
	"github.com/showheysas/tech0notta/internal/lifecycle"
	"github.com/showheysas/tech0notta/internal/livebus"
	"github.com/spf13/cobra"
)

const (
	shutdownTimeout   = 30 * time.Second
	readHeaderTimeout = 5 * time.Second
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API (default)",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if !cfg.IsDevelopment() {
		gin.SetMode(gin.ReleaseMode)
	}

	slog.Info("startup: building dependency graph")
	injector := setupDI(cfg)

	handler, err := do.Invoke[http.Handler](injector)
	if err != nil {
		return fmt.Errorf("resolve router: %w", err)
	}
	bots := do.MustInvoke[*botsession.Orchestrator](injector)
	streams := do.MustInvoke[*ingest.Client](injector)
	coord := do.MustInvoke[*lifecycle.Coordinator](injector)

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           handler,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		slog.Info("http server listening", "addr", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		slog.Info("shutting down")
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("http shutdown failed", "error", err)
	}
	n := bots.Shutdown(shutdownCtx)
	streams.StopAll()
	if err := coord.Wait(shutdownCtx); err != nil {
		slog.Warn("pending transcript finalization abandoned", "error", err)
	}
	if c, ok := do.MustInvoke[archive.Archiver](injector).(interface{ Close() }); ok {
		c.Close()
	}
	slog.Info("shutdown complete", "terminated_sessions", n)
	return nil
}

func setupDI(cfg *config.Config) do.Injector {
	injector := do.New()

	do.ProvideValue(injector, cfg)
	archiveimpl.RegisterDI(injector)
	credentialimpl.RegisterDI(injector)
	launcherimpl.RegisterDI(injector)
	ingestimpl.RegisterDI(injector)
	webhookimpl.RegisterDI(injector)
	livebus.RegisterDI(injector)
	botsession.RegisterDI(injector)
	ingest.RegisterDI(injector)
	lifecycle.RegisterDI(injector)
	httpapi.RegisterDI(injector)

	return injector
}
