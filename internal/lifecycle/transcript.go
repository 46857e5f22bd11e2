package lifecycle

import (
	"fmt"
	"strings"
	"time"

	"github.com/showheysas/tech0notta/internal/archive"
	"github.com/showheysas/tech0notta/internal/livebus"
	"github.com/showheysas/tech0notta/internal/webhook"
)

const transcriptTimeLayout = "2006-01-02 15:04:05"

func buildTranscriptText(info livebus.Session, endedAt time.Time, timezone string, loc *time.Location, segments []livebus.Segment) []byte {
	loc = safeLocation(loc)
	lines := []string{
		fmt.Sprintf("会議名：%s", info.Topic),
		fmt.Sprintf("会議ID：%s", info.MeetingID),
		fmt.Sprintf("会議期間：%s ~ %s（%s）", info.StartedAt.In(loc).Format(transcriptTimeLayout), endedAt.In(loc).Format(transcriptTimeLayout), timezone),
		fmt.Sprintf("話者：%s", strings.Join(speakerNames(segments), "、")),
		"",
	}
	for _, seg := range segments {
		elapsed := seg.Timestamp.Sub(info.StartedAt)
		if elapsed < 0 {
			elapsed = 0
		}
		lines = append(lines, fmt.Sprintf("%s %s: %s", formatElapsedHMS(elapsed), seg.Speaker, seg.Text))
	}
	return []byte(strings.Join(lines, "\n"))
}

func buildTranscriptWebhookPayload(info livebus.Session, endedAt time.Time, timezone string, loc *time.Location, segments []livebus.Segment) webhook.TranscriptWebhookPayload {
	loc = safeLocation(loc)
	transcriptLines := make([]string, 0, len(segments))
	for _, seg := range segments {
		transcriptLines = append(transcriptLines, fmt.Sprintf("%s: %s", seg.Speaker, seg.Text))
	}

	durationSeconds := int64(endedAt.Sub(info.StartedAt).Seconds())
	if durationSeconds < 0 {
		durationSeconds = 0
	}

	return webhook.TranscriptWebhookPayload{
		SchemaVersion:      webhook.TranscriptWebhookSchemaVersion,
		SessionID:          info.ID,
		MeetingID:          info.MeetingID,
		MeetingTopic:       info.Topic,
		StartAt:            info.StartedAt.In(loc).Format(time.RFC3339),
		EndAt:              endedAt.In(loc).Format(time.RFC3339),
		Timezone:           timezone,
		DurationSeconds:    durationSeconds,
		ParticipantCount:   info.ParticipantCount,
		Speakers:           speakerNames(segments),
		SegmentCount:       len(segments),
		TranscriptSegments: buildTranscriptWebhookSegments(segments, endedAt, loc),
		Transcript:         strings.Join(transcriptLines, "\n"),
	}
}

// A segment ends where the next one starts; the last one ends with the session.
func buildTranscriptWebhookSegments(segments []livebus.Segment, sessionEndedAt time.Time, loc *time.Location) []webhook.TranscriptWebhookSegment {
	out := make([]webhook.TranscriptWebhookSegment, 0, len(segments))
	for i, seg := range segments {
		segmentEnd := sessionEndedAt
		if i+1 < len(segments) {
			segmentEnd = segments[i+1].Timestamp
		}
		if segmentEnd.Before(seg.Timestamp) {
			segmentEnd = seg.Timestamp
		}
		out = append(out, webhook.TranscriptWebhookSegment{
			Index:      i,
			SegmentID:  seg.ID,
			SpeakerID:  seg.SpeakerID,
			Speaker:    seg.Speaker,
			StartAt:    seg.Timestamp.In(loc).Format(time.RFC3339),
			EndAt:      segmentEnd.In(loc).Format(time.RFC3339),
			Transcript: seg.Text,
		})
	}
	return out
}

func buildArchiveSegments(segments []livebus.Segment) []archive.Segment {
	out := make([]archive.Segment, 0, len(segments))
	for i, seg := range segments {
		out = append(out, archive.Segment{
			ID:        seg.ID,
			Index:     i,
			SpeakerID: seg.SpeakerID,
			Speaker:   seg.Speaker,
			Text:      seg.Text,
			SpokenAt:  seg.Timestamp,
		})
	}
	return out
}

// speakerNames lists display names in first-spoken order.
func speakerNames(segments []livebus.Segment) []string {
	seen := make(map[string]struct{}, len(segments))
	names := make([]string, 0)
	for _, seg := range segments {
		if _, ok := seen[seg.Speaker]; ok {
			continue
		}
		seen[seg.Speaker] = struct{}{}
		names = append(names, seg.Speaker)
	}
	return names
}

func formatElapsedHMS(d time.Duration) string {
	total := int64(d / time.Second)
	h := total / 3600
	m := (total % 3600) / 60
	s := total % 60
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}

func safeLocation(loc *time.Location) *time.Location {
	if loc == nil {
		return time.UTC
	}
	return loc
}
