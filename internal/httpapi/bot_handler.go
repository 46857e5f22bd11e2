package httpapi

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/showheysas/tech0notta/internal/botsession"
	"github.com/showheysas/tech0notta/internal/credential"
	"github.com/showheysas/tech0notta/internal/errs"
)

// BotHandler serves /api/bot.
type BotHandler struct {
	bots   *botsession.Orchestrator
	issuer credential.Issuer
}

func NewBotHandler(bots *botsession.Orchestrator, issuer credential.Issuer) *BotHandler {
	return &BotHandler{bots: bots, issuer: issuer}
}

type DispatchRequest struct {
	MeetingID string `json:"meeting_id" binding:"required"`
	Password  string `json:"password"`
}

// Dispatch godoc
// POST /api/bot/dispatch
func (h *BotHandler) Dispatch(c *gin.Context) {
	var req DispatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request", "message": err.Error()})
		return
	}
	s, created, err := h.bots.DispatchIfAbsent(req.MeetingID, req.Password)
	if err != nil {
		slog.Warn("bot dispatch rejected", "meeting_ref", req.MeetingID, "error", err)
		writeError(c, err)
		return
	}
	message := "bot dispatch started"
	if !created {
		message = "bot already active for this meeting"
	}
	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"dispatched": created,
		"session":    toBotSessionResponse(s),
		"message":    message,
	})
}

// Sessions godoc
// GET /api/bot/sessions
func (h *BotHandler) Sessions(c *gin.Context) {
	c.JSON(http.StatusOK, toBotSessionResponses(h.bots.Active()))
}

// Status godoc
// GET /api/bot/:id/status
func (h *BotHandler) Status(c *gin.Context) {
	id := c.Param("id")
	s, ok := h.bots.Get(id)
	if !ok {
		writeError(c, errs.NotFound("bot session", id))
		return
	}
	c.JSON(http.StatusOK, toBotSessionResponse(s))
}

// Terminate godoc
// POST /api/bot/:id/terminate
func (h *BotHandler) Terminate(c *gin.Context) {
	id := c.Param("id")
	if !h.bots.Terminate(c.Request.Context(), id) {
		writeError(c, errs.NotFound("bot session", id))
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "bot left the meeting"})
}

// TerminateMeeting godoc
// POST /api/bot/meetings/:meeting_id/terminate
func (h *BotHandler) TerminateMeeting(c *gin.Context) {
	n := h.bots.TerminateByMeeting(c.Request.Context(), c.Param("meeting_id"))
	c.JSON(http.StatusOK, gin.H{"success": true, "terminated": n})
}

// Health godoc
// GET /api/bot/health
func (h *BotHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":         "healthy",
		"service":        "bot-dispatch",
		"sdk_configured": h.issuer.Configured(),
		"active":         len(h.bots.Active()),
	})
}
