package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	archiveimpl "github.com/showheysas/tech0notta/external/archive"
	"github.com/spf13/cobra"
)

const migrateTimeout = time.Minute

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the transcript archive tables",
	RunE:  runMigrate,
}

func runMigrate(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if cfg.DatabaseURL == "" {
		return errors.New("DATABASE_URL is required for migrate")
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), migrateTimeout)
	defer cancel()

	pool, err := archiveimpl.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer pool.Close()

	if err := archiveimpl.RunMigration(ctx, pool); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	slog.Info("migration complete")
	return nil
}
