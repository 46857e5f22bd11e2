package livebus

import "time"

// Palette is the fixed rotation of color classes handed to speakers in the
// order they first speak.
var Palette = []string{
	"bg-blue-100 text-blue-700",
	"bg-emerald-100 text-emerald-700",
	"bg-purple-100 text-purple-700",
	"bg-amber-100 text-amber-700",
	"bg-rose-100 text-rose-700",
	"bg-cyan-100 text-cyan-700",
}

const timeLabelLayout = "15:04"

type Segment struct {
	ID         string
	SpeakerID  string
	Speaker    string
	Text       string
	Time       string
	Timestamp  time.Time
	Initials   string
	ColorClass string
}

// NewSegment is the producer-side payload for AddSegment.
type NewSegment struct {
	Speaker   string
	Text      string
	Time      string
	SpeakerID string
	// Source labels the producer for metrics (push or stream).
	Source string
}

type Session struct {
	ID               string
	MeetingID        string
	Topic            string
	StartedAt        time.Time
	ParticipantCount int
	SegmentCount     int
	SpeakerMapping   map[string]string
}

type Speaker struct {
	SpeakerID  string
	Label      string
	MappedName string
}

func initials(name string) string {
	r := []rune(name)
	if len(r) > 2 {
		r = r[:2]
	}
	return string(r)
}

func speakerKey(speakerID, speaker string) string {
	if speakerID != "" {
		return speakerID
	}
	return speaker
}
