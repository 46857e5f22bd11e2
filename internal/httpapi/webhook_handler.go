package httpapi

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/showheysas/tech0notta/internal/errs"
	"github.com/showheysas/tech0notta/internal/ingest"
	"github.com/showheysas/tech0notta/internal/lifecycle"
)

const (
	headerSignature = "x-zm-signature"
	headerTimestamp = "x-zm-request-timestamp"
	maxWebhookBody  = 1 << 20

	eventURLValidation = "endpoint.url_validation"
	eventMeetingStart  = "meeting.started"
	eventMeetingEnd    = "meeting.ended"
	eventStreamStart   = "rtms.started"
	eventStreamStop    = "rtms.stopped"
)

// flexString accepts a JSON string or number.
type flexString string

func (f *flexString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*f = ""
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = flexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*f = flexString(n.String())
	return nil
}

type webhookEvent struct {
	Event   string `json:"event"`
	Payload struct {
		PlainToken string        `json:"plainToken"`
		Object     webhookObject `json:"object"`
	} `json:"payload"`
}

type webhookObject struct {
	ID           flexString `json:"id"`
	MeetingID    flexString `json:"meeting_id"`
	Topic        string     `json:"topic"`
	MeetingTopic string     `json:"meeting_topic"`
	Password     string     `json:"password"`
	JoinURL      string     `json:"join_url"`
	RTMS         struct {
		StreamURL    string `json:"stream_url"`
		SignalingURL string `json:"signaling_url"`
	} `json:"rtms"`
}

func (o webhookObject) meetingID() string {
	if o.MeetingID != "" {
		return string(o.MeetingID)
	}
	return string(o.ID)
}

func (o webhookObject) topic() string {
	if o.MeetingTopic != "" {
		return o.MeetingTopic
	}
	return o.Topic
}

// WebhookHandler receives meeting platform events.
type WebhookHandler struct {
	coord   *lifecycle.Coordinator
	streams *ingest.Client
	secret  string
	devMode bool
}

func NewWebhookHandler(coord *lifecycle.Coordinator, streams *ingest.Client, secret string, devMode bool) *WebhookHandler {
	return &WebhookHandler{coord: coord, streams: streams, secret: secret, devMode: devMode}
}

// Receive godoc
// POST /api/zoom/webhook, POST /api/rtms/webhook
func (h *WebhookHandler) Receive(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read body"})
		return
	}
	var ev webhookEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json", "message": err.Error()})
		return
	}

	if ev.Event == eventURLValidation {
		h.validateURL(c, ev.Payload.PlainToken)
		return
	}
	if !h.authorized(c, body) {
		return
	}

	obj := ev.Payload.Object
	slog.Info("webhook event received", "event", ev.Event, "meeting_id", obj.meetingID())
	switch ev.Event {
	case eventMeetingStart:
		s, created, err := h.coord.MeetingStarted(lifecycle.MeetingStarted{
			MeetingID: obj.meetingID(),
			Topic:     obj.topic(),
			Password:  obj.Password,
			JoinURL:   obj.JoinURL,
		})
		if err != nil {
			// The platform retries on non-2xx; a rejected dispatch is reported in the body only.
			c.JSON(http.StatusOK, gin.H{"status": "ignored", "event": ev.Event, "error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "success", "event": ev.Event, "session": toBotSessionResponse(s), "dispatched": created})
	case eventMeetingEnd:
		n := h.coord.MeetingEnded(c.Request.Context(), obj.meetingID())
		c.JSON(http.StatusOK, gin.H{"status": "success", "event": ev.Event, "terminated_sessions": n})
	case eventStreamStart:
		id := h.coord.StreamStarted(lifecycle.StreamStarted{
			MeetingID: obj.meetingID(),
			Topic:     obj.topic(),
			StreamURL: obj.RTMS.StreamURL,
			SignalURL: obj.RTMS.SignalingURL,
		})
		c.JSON(http.StatusOK, gin.H{"status": "success", "event": ev.Event, "session_id": id})
	case eventStreamStop:
		stopped := h.coord.StreamStopped(obj.meetingID())
		c.JSON(http.StatusOK, gin.H{"status": "success", "event": ev.Event, "stopped": stopped})
	default:
		c.JSON(http.StatusOK, gin.H{"status": "success", "event": ev.Event, "message": "event received but not processed"})
	}
}

func (h *WebhookHandler) validateURL(c *gin.Context, plainToken string) {
	if strings.TrimSpace(plainToken) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "plainToken not found"})
		return
	}
	if h.secret == "" {
		if !h.devMode {
			writeError(c, errs.Configuration("ZOOM_WEBHOOK_SECRET_TOKEN is not set"))
			return
		}
		c.JSON(http.StatusOK, gin.H{"plainToken": plainToken, "encryptedToken": ""})
		return
	}
	c.JSON(http.StatusOK, gin.H{"plainToken": plainToken, "encryptedToken": encryptToken(h.secret, plainToken)})
}

func (h *WebhookHandler) authorized(c *gin.Context, body []byte) bool {
	if h.secret == "" {
		if h.devMode {
			return true
		}
		writeError(c, errs.Configuration("ZOOM_WEBHOOK_SECRET_TOKEN is not set"))
		return false
	}
	if !verifySignature(h.secret, c.GetHeader(headerTimestamp), body, c.GetHeader(headerSignature)) {
		slog.Warn("webhook signature mismatch", "timestamp", c.GetHeader(headerTimestamp))
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid signature"})
		return false
	}
	return true
}

// StreamSessions godoc
// GET /api/rtms/sessions
func (h *WebhookHandler) StreamSessions(c *gin.Context) {
	sessions := h.streams.Sessions()
	out := make([]StreamSessionResponse, 0, len(sessions))
	for _, s := range sessions {
		out = append(out, toStreamSessionResponse(s))
	}
	c.JSON(http.StatusOK, out)
}
