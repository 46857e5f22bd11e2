package main

import (
	"log/slog"
	"os"

	configloader "github.com/showheysas/tech0notta/external/config"
	"github.com/showheysas/tech0notta/internal/config"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:           "backend",
	Short:         "Meeting bot orchestrator and live transcript server",
	Long:          `HTTP API for bot dispatch, live transcripts and meeting webhooks. Commands: serve, migrate.`,
	RunE:          runServe,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(migrateCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		slog.Error("command failed", "error", err)
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, error) {
	slog.Info("startup: loading configuration")
	cfg, err := configloader.Load()
	if err != nil {
		return nil, err
	}
	initLogger(cfg)
	slog.Info("startup: configuration loaded", "env", cfg.Env, "launcher_mode", cfg.LauncherMode)
	return cfg, nil
}

func initLogger(cfg *config.Config) {
	logLevel := slog.LevelInfo
	if cfg.IsDevelopment() {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})))
}
