// Package archive describes where finished live transcripts are kept once a
// meeting ends.
package archive

import (
	"context"
	"time"
)

type Segment struct {
	ID        string
	Index     int
	SpeakerID string
	Speaker   string
	Text      string
	SpokenAt  time.Time
}

type Transcript struct {
	SessionID        string
	MeetingID        string
	Topic            string
	StartedAt        time.Time
	EndedAt          time.Time
	Timezone         string
	ParticipantCount int
	Segments         []Segment
	// Text is the rendered plain-text transcript.
	Text string
	// PayloadJSON is the webhook payload sent for this transcript.
	PayloadJSON []byte
}

type Archiver interface {
	SaveTranscript(ctx context.Context, t Transcript) error
}
