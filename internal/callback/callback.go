// Package callback carries recognized speech from the meeting worker back
// to the server's live session endpoints.
package callback

import "context"

type Segment struct {
	Speaker   string `json:"speaker"`
	Text      string `json:"text"`
	Time      string `json:"time,omitempty"`
	SpeakerID string `json:"speaker_id,omitempty"`
}

type Pusher interface {
	// Init creates the live session if it does not exist yet.
	Init(ctx context.Context, meetingID, topic string) error
	Push(ctx context.Context, seg Segment) error
}
