package ingest

import (
	"bytes"
	"encoding/json"
	"strconv"
)

const (
	frameTranscript  = "transcript"
	frameParticipant = "participant"
	frameAudio       = "audio"

	defaultSpeaker = "参加者"
)

// looseString accepts a JSON string or number.
type looseString string

func (s *looseString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		return nil
	}
	if b[0] == '"' {
		var v string
		if err := json.Unmarshal(b, &v); err != nil {
			return err
		}
		*s = looseString(v)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*s = looseString(n.String())
	return nil
}

type rawFrame struct {
	Type         string            `json:"type"`
	Text         string            `json:"text"`
	UserName     *string           `json:"userName"`
	UserNameAlt  *string           `json:"user_name"`
	UserID       *looseString      `json:"userId"`
	UserIDAlt    *looseString      `json:"user_id"`
	IsFinal      *bool             `json:"isFinal"`
	IsFinalAlt   *bool             `json:"is_final"`
	Action       string            `json:"action"`
	Participants []json.RawMessage `json:"participants"`
}

type frame struct {
	Type     string
	Text     string
	Speaker  string
	UserID   string
	Final    bool
	Action   string
	// Participants is nil when the frame carried no participant list.
	Participants []json.RawMessage
}

// decodeFrame parses a text frame. Camel and snake case keys are both
// accepted, camel case winning when both are present.
func decodeFrame(data []byte) (frame, error) {
	var raw rawFrame
	if err := json.Unmarshal(data, &raw); err != nil {
		return frame{}, err
	}
	f := frame{
		Type:         raw.Type,
		Text:         raw.Text,
		Speaker:      defaultSpeaker,
		Final:        true,
		Action:       raw.Action,
		Participants: raw.Participants,
	}
	switch {
	case raw.UserName != nil:
		f.Speaker = *raw.UserName
	case raw.UserNameAlt != nil:
		f.Speaker = *raw.UserNameAlt
	}
	switch {
	case raw.UserID != nil:
		f.UserID = string(*raw.UserID)
	case raw.UserIDAlt != nil:
		f.UserID = string(*raw.UserIDAlt)
	}
	switch {
	case raw.IsFinal != nil:
		f.Final = *raw.IsFinal
	case raw.IsFinalAlt != nil:
		f.Final = *raw.IsFinalAlt
	}
	return f, nil
}

func preview(data []byte) string {
	const limit = 100
	if len(data) <= limit {
		return string(data)
	}
	return string(data[:limit]) + "...(" + strconv.Itoa(len(data)) + " bytes)"
}
