package webhook

import "context"

const TranscriptWebhookSchemaVersion = "1"

type TranscriptWebhookSegment struct {
	Index      int    `json:"index"`
	SegmentID  string `json:"segment_id"`
	SpeakerID  string `json:"speaker_id,omitempty"`
	Speaker    string `json:"speaker"`
	StartAt    string `json:"start_at"`
	EndAt      string `json:"end_at"`
	Transcript string `json:"transcript"`
}

type TranscriptWebhookPayload struct {
	SchemaVersion      string                     `json:"schema_version"`
	SessionID          string                     `json:"session_id"`
	MeetingID          string                     `json:"meeting_id"`
	MeetingTopic       string                     `json:"meeting_topic"`
	StartAt            string                     `json:"start_at"`
	EndAt              string                     `json:"end_at"`
	Timezone           string                     `json:"timezone"`
	DurationSeconds    int64                      `json:"duration_seconds"`
	ParticipantCount   int                        `json:"participant_count"`
	Speakers           []string                   `json:"speakers"`
	SegmentCount       int                        `json:"segment_count"`
	TranscriptSegments []TranscriptWebhookSegment `json:"transcript_segments"`
	Transcript         string                     `json:"transcript"`
}

type Sender interface {
	SendTranscript(ctx context.Context, payload TranscriptWebhookPayload) error
}
