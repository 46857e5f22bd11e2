package httpapi

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/showheysas/tech0notta/internal/botsession"
	"github.com/showheysas/tech0notta/internal/errs"
	"github.com/showheysas/tech0notta/internal/ingest"
	"github.com/showheysas/tech0notta/internal/livebus"
)

type BotSessionResponse struct {
	ID           string `json:"id"`
	MeetingID    string `json:"meeting_id"`
	Status       string `json:"status"`
	CreatedAt    string `json:"created_at"`
	UpdatedAt    string `json:"updated_at"`
	ContainerID  string `json:"container_id,omitempty"`
	ErrorMessage string `json:"error_message,omitempty"`
}

func toBotSessionResponse(s botsession.Session) BotSessionResponse {
	return BotSessionResponse{
		ID:           s.ID,
		MeetingID:    s.MeetingID,
		Status:       strings.ToLower(string(s.State)),
		CreatedAt:    s.CreatedAt.Format(time.RFC3339),
		UpdatedAt:    s.UpdatedAt.Format(time.RFC3339),
		ContainerID:  string(s.Handle),
		ErrorMessage: s.Message,
	}
}

func toBotSessionResponses(in []botsession.Session) []BotSessionResponse {
	out := make([]BotSessionResponse, 0, len(in))
	for _, s := range in {
		out = append(out, toBotSessionResponse(s))
	}
	return out
}

type LiveSessionResponse struct {
	SessionID        string `json:"session_id"`
	MeetingID        string `json:"meeting_id"`
	MeetingTopic     string `json:"meeting_topic"`
	StartedAt        string `json:"started_at"`
	ParticipantCount int    `json:"participant_count"`
	SegmentCount     int    `json:"segment_count"`
}

func toLiveSessionResponse(s livebus.Session) LiveSessionResponse {
	return LiveSessionResponse{
		SessionID:        s.ID,
		MeetingID:        s.MeetingID,
		MeetingTopic:     s.Topic,
		StartedAt:        s.StartedAt.Format(time.RFC3339),
		ParticipantCount: s.ParticipantCount,
		SegmentCount:     s.SegmentCount,
	}
}

type SegmentResponse struct {
	ID         string `json:"id"`
	Speaker    string `json:"speaker"`
	SpeakerID  string `json:"speakerId,omitempty"`
	Text       string `json:"text"`
	Time       string `json:"time"`
	Initials   string `json:"initials"`
	ColorClass string `json:"colorClass"`
}

func toSegmentResponse(s livebus.Segment) SegmentResponse {
	return SegmentResponse{
		ID:         s.ID,
		Speaker:    s.Speaker,
		SpeakerID:  s.SpeakerID,
		Text:       s.Text,
		Time:       s.Time,
		Initials:   s.Initials,
		ColorClass: s.ColorClass,
	}
}

type SegmentsResponse struct {
	Session    LiveSessionResponse `json:"session"`
	Segments   []SegmentResponse   `json:"segments"`
	TotalCount int                 `json:"total_count"`
}

type SpeakerResponse struct {
	SpeakerID  string `json:"speaker_id"`
	Label      string `json:"label"`
	MappedName string `json:"mapped_name,omitempty"`
}

type StreamSessionResponse struct {
	MeetingID string `json:"meeting_id"`
	Topic     string `json:"meeting_topic"`
	SessionID string `json:"session_id"`
	State     string `json:"state"`
	Retries   int    `json:"retries"`
}

func toStreamSessionResponse(s ingest.StreamSession) StreamSessionResponse {
	return StreamSessionResponse{
		MeetingID: s.MeetingID,
		Topic:     s.Topic,
		SessionID: s.SessionID,
		State:     string(s.State),
		Retries:   s.Retries,
	}
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, errs.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, errs.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, errs.ErrConfiguration):
		return http.StatusServiceUnavailable
	case errors.Is(err, errs.ErrTimeout):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func writeError(c *gin.Context, err error) {
	status := statusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		msg = "internal error"
	}
	c.JSON(status, gin.H{"error": msg})
}
