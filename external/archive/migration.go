package archive

import (
	"context"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
)

var migrationStatements = []string{
	`CREATE TABLE IF NOT EXISTS live_sessions (
		session_id TEXT PRIMARY KEY,
		meeting_id TEXT NOT NULL,
		topic TEXT NOT NULL DEFAULT '',
		started_at TIMESTAMPTZ NOT NULL,
		ended_at TIMESTAMPTZ NOT NULL,
		timezone TEXT NOT NULL,
		participant_count INTEGER NOT NULL DEFAULT 0,
		segment_count INTEGER NOT NULL DEFAULT 0,
		transcript_text TEXT NOT NULL,
		webhook_payload JSONB,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_live_sessions_meeting ON live_sessions (meeting_id, started_at)`,
	`CREATE TABLE IF NOT EXISTS live_segments (
		session_id TEXT NOT NULL REFERENCES live_sessions(session_id) ON DELETE CASCADE,
		segment_index INTEGER NOT NULL,
		segment_id TEXT NOT NULL,
		speaker_id TEXT NOT NULL DEFAULT '',
		speaker TEXT NOT NULL,
		content TEXT NOT NULL,
		spoken_at TIMESTAMPTZ NOT NULL,
		PRIMARY KEY (session_id, segment_index)
	)`,
}

func RunMigration(ctx context.Context, pool *pgxpool.Pool) error {
	for _, s := range migrationStatements {
		stmt := strings.TrimSpace(s)
		if stmt == "" {
			continue
		}
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
