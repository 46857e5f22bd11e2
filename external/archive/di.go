package archive

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/samber/do/v2"
	"github.com/showheysas/tech0notta/internal/archive"
	"github.com/showheysas/tech0notta/internal/config"
)

const databaseInitTimeout = 15 * time.Second

func RegisterDI(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (archive.Archiver, error) {
		cfg := do.MustInvoke[*config.Config](i)
		if cfg.DatabaseURL == "" {
			slog.Info("DATABASE_URL not set; transcripts will not be archived")
			return NewNoopArchiver(), nil
		}
		ctx, cancel := context.WithTimeout(context.Background(), databaseInitTimeout)
		defer cancel()

		p, err := Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		if err := RunMigration(ctx, p); err != nil {
			p.Close()
			return nil, fmt.Errorf("failed to run migration: %w", err)
		}
		return NewPostgresArchiver(p), nil
	})
}

// Connect opens and pings a pool.
func Connect(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	p, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect database: %w", err)
	}
	if err := p.Ping(ctx); err != nil {
		p.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return p, nil
}
