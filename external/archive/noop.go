package archive

import (
	"context"
	"log/slog"

	"github.com/showheysas/tech0notta/internal/archive"
)

// NoopArchiver is bound when no database is configured.
type NoopArchiver struct{}

func NewNoopArchiver() archive.Archiver {
	return NoopArchiver{}
}

func (NoopArchiver) SaveTranscript(_ context.Context, t archive.Transcript) error {
	slog.Debug("archive disabled; transcript not stored", "session_id", t.SessionID, "segment_count", len(t.Segments))
	return nil
}
