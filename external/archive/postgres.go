package archive

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/showheysas/tech0notta/internal/archive"
)

var segmentColumns = []string{"session_id", "segment_index", "segment_id", "speaker_id", "speaker", "content", "spoken_at"}

type PostgresArchiver struct {
	pool *pgxpool.Pool
}

func NewPostgresArchiver(pool *pgxpool.Pool) archive.Archiver {
	return &PostgresArchiver{pool: pool}
}

// SaveTranscript writes the session row and replaces its segments in one
// transaction, so finalizing the same session twice keeps the latest copy.
func (a *PostgresArchiver) SaveTranscript(ctx context.Context, t archive.Transcript) error {
	tx, err := a.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	if _, err := tx.Exec(ctx,
		`INSERT INTO live_sessions (session_id, meeting_id, topic, started_at, ended_at, timezone, participant_count, segment_count, transcript_text, webhook_payload)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		 ON CONFLICT (session_id) DO UPDATE SET
		   topic = EXCLUDED.topic,
		   ended_at = EXCLUDED.ended_at,
		   timezone = EXCLUDED.timezone,
		   participant_count = EXCLUDED.participant_count,
		   segment_count = EXCLUDED.segment_count,
		   transcript_text = EXCLUDED.transcript_text,
		   webhook_payload = EXCLUDED.webhook_payload,
		   updated_at = NOW()`,
		t.SessionID, t.MeetingID, t.Topic, t.StartedAt, t.EndedAt, t.Timezone,
		t.ParticipantCount, len(t.Segments), t.Text, t.PayloadJSON); err != nil {
		return fmt.Errorf("upsert live session: %w", err)
	}
	if _, err := tx.Exec(ctx, `DELETE FROM live_segments WHERE session_id = $1`, t.SessionID); err != nil {
		return fmt.Errorf("clear live segments: %w", err)
	}
	if len(t.Segments) > 0 {
		if _, err := tx.CopyFrom(ctx, pgx.Identifier{"live_segments"}, segmentColumns, pgx.CopyFromRows(segmentRows(t))); err != nil {
			return fmt.Errorf("copy live segments: %w", err)
		}
	}
	return tx.Commit(ctx)
}

func (a *PostgresArchiver) Close() {
	a.pool.Close()
}

func segmentRows(t archive.Transcript) [][]any {
	rows := make([][]any, 0, len(t.Segments))
	for _, seg := range t.Segments {
		rows = append(rows, []any{t.SessionID, seg.Index, seg.ID, seg.SpeakerID, seg.Speaker, seg.Text, seg.SpokenAt})
	}
	return rows
}
