// Package lifecycle routes meeting start and end signals to the bot
// orchestrator and the stream ingest client, and finalizes transcripts once
// a meeting is over.
package lifecycle

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/showheysas/tech0notta/internal/archive"
	"github.com/showheysas/tech0notta/internal/botsession"
	"github.com/showheysas/tech0notta/internal/ingest"
	"github.com/showheysas/tech0notta/internal/livebus"
	"github.com/showheysas/tech0notta/internal/metrics"
	"github.com/showheysas/tech0notta/internal/webhook"
)

const finalizeTimeout = 30 * time.Second

type Bots interface {
	DispatchIfAbsent(meetingRef, password string) (botsession.Session, bool, error)
	TerminateMeeting(ctx context.Context, meetingRef string) []string
}

type Streams interface {
	Start(meetingID, topic, streamURL, signalURL string) string
	Stop(meetingID string) bool
}

type MeetingStarted struct {
	MeetingID string
	Topic     string
	Password  string
	JoinURL   string
}

type StreamStarted struct {
	MeetingID string
	Topic     string
	StreamURL string
	SignalURL string
}

type Coordinator struct {
	bots     Bots
	streams  Streams
	bus      *livebus.Bus
	archiver archive.Archiver
	webhook  webhook.Sender
	timezone string
	loc      *time.Location
	now      func() time.Time

	wg sync.WaitGroup
}

func NewCoordinator(bots Bots, streams Streams, bus *livebus.Bus, archiver archive.Archiver, wh webhook.Sender, timezone string, loc *time.Location) *Coordinator {
	return &Coordinator{
		bots:     bots,
		streams:  streams,
		bus:      bus,
		archiver: archiver,
		webhook:  wh,
		timezone: timezone,
		loc:      safeLocation(loc),
		now:      time.Now,
	}
}

// MeetingStarted dispatches a bot unless the meeting already has an active one.
func (c *Coordinator) MeetingStarted(ev MeetingStarted) (botsession.Session, bool, error) {
	ref := ev.MeetingID
	if ref == "" {
		ref = ev.JoinURL
	}
	s, created, err := c.bots.DispatchIfAbsent(ref, ev.Password)
	if err != nil {
		slog.Error("auto dispatch failed", "meeting_id", ev.MeetingID, "error", err)
		return botsession.Session{}, false, err
	}
	if created {
		slog.Info("bot auto-dispatched", "meeting_id", s.MeetingID, "session_id", s.ID, "topic", ev.Topic)
	} else {
		slog.Info("bot already active; skipping dispatch", "meeting_id", s.MeetingID, "session_id", s.ID)
	}
	return s, created, nil
}

// StreamStarted starts ingesting the meeting's stream. It returns "" when
// the event carried no stream address.
func (c *Coordinator) StreamStarted(ev StreamStarted) string {
	if ev.StreamURL == "" {
		slog.Warn("stream start without stream url; ignoring", "meeting_id", ev.MeetingID)
		return ""
	}
	return c.streams.Start(ev.MeetingID, ev.Topic, ev.StreamURL, ev.SignalURL)
}

// MeetingEnded terminates the meeting's bots and finalizes the transcripts
// of the sessions this call terminated, in the background. A repeated
// signal that finds the sessions already ending finalizes nothing. It
// returns the number of sessions terminated.
func (c *Coordinator) MeetingEnded(ctx context.Context, meetingID string) int {
	ids := c.bots.TerminateMeeting(ctx, meetingID)
	slog.Info("meeting ended", "meeting_id", meetingID, "terminated_sessions", len(ids))
	for _, id := range ids {
		c.finalizeAsync(id)
	}
	return len(ids)
}

// StreamStopped stops the meeting's stream and finalizes its transcript.
func (c *Coordinator) StreamStopped(meetingID string) bool {
	if !c.streams.Stop(meetingID) {
		return false
	}
	c.finalizeAsync(ingest.SessionPrefix + meetingID)
	return true
}

func (c *Coordinator) finalizeAsync(sessionID string) {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), finalizeTimeout)
		defer cancel()
		c.Finalize(ctx, sessionID)
	}()
}

// Finalize archives the live session's transcript and posts it to the
// webhook. Failures are logged only.
func (c *Coordinator) Finalize(ctx context.Context, sessionID string) {
	info, segments, ok := c.bus.Transcript(sessionID)
	if !ok {
		slog.Warn("no live session to finalize", "session_id", sessionID)
		return
	}
	if len(segments) == 0 {
		slog.Info("live session has no segments; skipping finalize", "session_id", sessionID)
		return
	}
	endedAt := c.now()
	body := buildTranscriptText(info, endedAt, c.timezone, c.loc, segments)
	payload := buildTranscriptWebhookPayload(info, endedAt, c.timezone, c.loc, segments)
	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		slog.Error("failed to marshal transcript payload", "error", err, "session_id", sessionID)
	}

	if err := c.archiver.SaveTranscript(ctx, archive.Transcript{
		SessionID:        info.ID,
		MeetingID:        info.MeetingID,
		Topic:            info.Topic,
		StartedAt:        info.StartedAt,
		EndedAt:          endedAt,
		Timezone:         c.timezone,
		ParticipantCount: info.ParticipantCount,
		Segments:         buildArchiveSegments(segments),
		Text:             string(body),
		PayloadJSON:      payloadJSON,
	}); err != nil {
		metrics.TranscriptsFinalized.WithLabelValues("archive", "error").Inc()
		slog.Error("failed to archive transcript", "error", err, "session_id", sessionID)
	} else {
		metrics.TranscriptsFinalized.WithLabelValues("archive", "ok").Inc()
	}

	if err := c.webhook.SendTranscript(ctx, payload); err != nil {
		metrics.TranscriptsFinalized.WithLabelValues("webhook", "error").Inc()
		slog.Error("failed to send webhook transcript", "error", err, "session_id", sessionID)
	} else {
		metrics.TranscriptsFinalized.WithLabelValues("webhook", "ok").Inc()
	}
	slog.Info("transcript finalized", "session_id", sessionID, "segment_count", len(segments))
}

// Wait blocks until background finalizations finish or ctx is done.
func (c *Coordinator) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
