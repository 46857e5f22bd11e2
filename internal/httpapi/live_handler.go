package httpapi

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/showheysas/tech0notta/internal/botsession"
	"github.com/showheysas/tech0notta/internal/errs"
	"github.com/showheysas/tech0notta/internal/livebus"
	"github.com/showheysas/tech0notta/internal/metrics"
)

const (
	defaultSegmentLimit = 100
	maxSegmentLimit     = 500
	unknownMeetingID    = "unknown"
)

// LiveHandler serves /api/live.
type LiveHandler struct {
	bus  *livebus.Bus
	bots *botsession.Orchestrator
}

func NewLiveHandler(bus *livebus.Bus, bots *botsession.Orchestrator) *LiveHandler {
	return &LiveHandler{bus: bus, bots: bots}
}

// ensureFromBot creates the live session for a known bot session.
func (h *LiveHandler) ensureFromBot(sessionID string) bool {
	if _, ok := h.bus.Get(sessionID); ok {
		return true
	}
	bot, ok := h.bots.Get(sessionID)
	if !ok {
		return false
	}
	h.bus.Create(sessionID, bot.MeetingID, "")
	return true
}

// Sessions godoc
// GET /api/live/sessions
func (h *LiveHandler) Sessions(c *gin.Context) {
	sessions := h.bus.Sessions()
	out := make([]LiveSessionResponse, 0, len(sessions))
	for _, s := range sessions {
		out = append(out, toLiveSessionResponse(s))
	}
	c.JSON(http.StatusOK, out)
}

// Segments godoc
// GET /api/live/segments/:id?since_id=&limit=
func (h *LiveHandler) Segments(c *gin.Context) {
	id := c.Param("id")
	limit := defaultSegmentLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > maxSegmentLimit {
			writeError(c, errs.Validation("limit must be between 1 and 500"))
			return
		}
		limit = n
	}
	if !h.ensureFromBot(id) {
		writeError(c, errs.NotFound("live session", id))
		return
	}
	segs := h.bus.Segments(id, c.Query("since_id"), limit)
	info, ok := h.bus.Get(id)
	if !ok {
		writeError(c, errs.NotFound("live session", id))
		return
	}
	out := make([]SegmentResponse, 0, len(segs))
	for _, s := range segs {
		out = append(out, toSegmentResponse(s))
	}
	c.JSON(http.StatusOK, SegmentsResponse{
		Session:    toLiveSessionResponse(info),
		Segments:   out,
		TotalCount: info.SegmentCount,
	})
}

type PushSegmentRequest struct {
	Speaker   string `json:"speaker" binding:"required"`
	Text      string `json:"text" binding:"required"`
	Time      string `json:"time"`
	SpeakerID string `json:"speaker_id"`
}

// Push godoc
// POST /api/live/segments/:id/push
func (h *LiveHandler) Push(c *gin.Context) {
	id := c.Param("id")
	var req PushSegmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request", "message": err.Error()})
		return
	}
	if !h.ensureFromBot(id) {
		h.bus.Create(id, unknownMeetingID, "")
	}
	seg, ok := h.bus.AddSegment(id, livebus.NewSegment{
		Speaker:   req.Speaker,
		Text:      req.Text,
		Time:      req.Time,
		SpeakerID: req.SpeakerID,
		Source:    metrics.SourcePush,
	})
	if !ok {
		// The session was cleared between create and append.
		writeError(c, errs.NotFound("live session", id))
		return
	}
	slog.Debug("segment pushed", "session_id", id, "segment_id", seg.ID, "speaker", seg.Speaker)
	c.JSON(http.StatusOK, gin.H{"success": true, "segment": toSegmentResponse(seg)})
}

// Init godoc
// POST /api/live/segments/:id/init?meeting_id=&meeting_topic=
func (h *LiveHandler) Init(c *gin.Context) {
	s, created := h.bus.Create(c.Param("id"), c.Query("meeting_id"), c.Query("meeting_topic"))
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"session": toLiveSessionResponse(s),
		"created": created,
	})
}

// Clear godoc
// DELETE /api/live/segments/:id
func (h *LiveHandler) Clear(c *gin.Context) {
	id := c.Param("id")
	if !h.bus.Clear(id) {
		writeError(c, errs.NotFound("live session", id))
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// Speakers godoc
// GET /api/live/speakers/:id
func (h *LiveHandler) Speakers(c *gin.Context) {
	id := c.Param("id")
	speakers, ok := h.bus.UniqueSpeakers(id)
	if !ok {
		writeError(c, errs.NotFound("live session", id))
		return
	}
	mapping, _ := h.bus.SpeakerMapping(id)
	out := make([]SpeakerResponse, 0, len(speakers))
	for _, s := range speakers {
		out = append(out, SpeakerResponse{SpeakerID: s.SpeakerID, Label: s.Label, MappedName: s.MappedName})
	}
	c.JSON(http.StatusOK, gin.H{"speakers": out, "mapping": mapping})
}

type SpeakerMappingRequest struct {
	Mapping map[string]string `json:"mapping" binding:"required"`
}

// SetSpeakers godoc
// PUT /api/live/speakers/:id
func (h *LiveHandler) SetSpeakers(c *gin.Context) {
	id := c.Param("id")
	var req SpeakerMappingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request", "message": err.Error()})
		return
	}
	if !h.bus.SetSpeakerMapping(id, req.Mapping) {
		writeError(c, errs.NotFound("live session", id))
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "mapping": req.Mapping})
}
