// Package ingest keeps one real-time stream connection per meeting and
// forwards finalized transcript frames into the live session bus.
package ingest

import (
	"context"
	"log/slog"
	"sort"
	"strings"

	"github.com/showheysas/tech0notta/internal/errs"
	"github.com/showheysas/tech0notta/internal/livebus"
	"github.com/showheysas/tech0notta/internal/metrics"
	"github.com/showheysas/tech0notta/internal/registry"
	"github.com/showheysas/tech0notta/internal/retry"
)

// SessionPrefix prefixes the meeting id to form the live session id.
const SessionPrefix = "rtms-"

type stream struct {
	info   StreamSession
	conn   Conn
	cancel context.CancelFunc
	done   chan struct{}
}

// Store is the stream session registry, keyed by meeting id.
type Store = registry.Map[string, *stream]

func NewStore() *Store {
	return registry.New[string, *stream]()
}

type Client struct {
	store   *Store
	bus     *livebus.Bus
	dialer  Dialer
	policy  retry.Policy
	sleeper retry.Sleeper
}

func NewClient(store *Store, bus *livebus.Bus, dialer Dialer, policy retry.Policy, sleeper retry.Sleeper) *Client {
	if sleeper == nil {
		sleeper = retry.RealSleeper()
	}
	return &Client{
		store:   store,
		bus:     bus,
		dialer:  dialer,
		policy:  policy,
		sleeper: sleeper,
	}
}

// Start replaces any stream for the meeting with a new one and returns the
// live session id it feeds. The connection runs in the background.
func (c *Client) Start(meetingID, topic, streamURL, signalURL string) string {
	sessionID := SessionPrefix + meetingID
	c.bus.Create(sessionID, meetingID, topic)

	ctx, cancel := context.WithCancel(context.Background())
	st := &stream{
		info: StreamSession{
			MeetingID: meetingID,
			Topic:     topic,
			SessionID: sessionID,
			StreamURL: streamURL,
			SignalURL: signalURL,
			State:     StateDisconnected,
		},
		cancel: cancel,
		done:   make(chan struct{}),
	}
	var old *stream
	c.store.Locked(func(items map[string]*stream) {
		old = items[meetingID]
		items[meetingID] = st
	})
	if old != nil {
		slog.Info("replacing stream session", "meeting_id", meetingID)
		c.shutdown(old)
	}
	slog.Info("stream session started", "meeting_id", meetingID, "session_id", sessionID)
	go c.run(ctx, st)
	return sessionID
}

// Stop tears down the meeting's stream. It reports whether one existed.
func (c *Client) Stop(meetingID string) bool {
	st, ok := c.store.Delete(meetingID)
	if !ok {
		return false
	}
	c.shutdown(st)
	slog.Info("stream session stopped", "meeting_id", meetingID, "session_id", st.info.SessionID)
	return true
}

// StopAll tears down every stream.
func (c *Client) StopAll() {
	var all []*stream
	c.store.Locked(func(items map[string]*stream) {
		for k, st := range items {
			all = append(all, st)
			delete(items, k)
		}
	})
	for _, st := range all {
		c.shutdown(st)
	}
}

func (c *Client) shutdown(st *stream) {
	st.cancel()
	var conn Conn
	c.store.Locked(func(map[string]*stream) {
		conn = st.conn
		st.conn = nil
	})
	if conn != nil {
		if err := conn.Close(); err != nil {
			slog.Debug("stream close failed", "meeting_id", st.info.MeetingID, "error", err)
		}
	}
	<-st.done
}

func (c *Client) Session(meetingID string) (StreamSession, bool) {
	var out StreamSession
	ok := c.store.Read(meetingID, func(st *stream) { out = st.info })
	return out, ok
}

func (c *Client) Sessions() []StreamSession {
	out := registry.Collect(c.store, func(st *stream) (StreamSession, bool) { return st.info, true })
	sort.Slice(out, func(i, j int) bool { return out[i].MeetingID < out[j].MeetingID })
	return out
}

// update applies fn only while st is still the registered stream for its
// meeting and its task has not been cancelled.
func (c *Client) update(ctx context.Context, st *stream, fn func(*stream)) bool {
	var ok bool
	c.store.Update(st.info.MeetingID, func(cur *stream) {
		if cur != st || ctx.Err() != nil {
			return
		}
		fn(cur)
		ok = true
	})
	return ok
}

func (c *Client) run(ctx context.Context, st *stream) {
	defer close(st.done)
	meetingID := st.info.MeetingID
	streamURL, signalURL := st.info.StreamURL, st.info.SignalURL
	for {
		if !c.update(ctx, st, func(s *stream) { s.info.State = StateConnecting }) {
			return
		}
		err := c.connectAndReceive(ctx, st, streamURL, signalURL)
		if ctx.Err() != nil {
			return
		}

		var retries int
		if !c.update(ctx, st, func(s *stream) {
			s.info.Retries++
			s.info.State = StateDisconnected
			retries = s.info.Retries
		}) {
			return
		}
		if c.policy.Exhausted(retries) {
			slog.Error("stream retries exhausted", "meeting_id", meetingID, "retries", retries, "error", err)
			return
		}
		delay := c.policy.Delay(retries)
		slog.Warn("stream connection lost; retrying", "meeting_id", meetingID, "retries", retries, "delay", delay.String(), "error", err)
		metrics.StreamReconnects.Inc()
		if err := c.sleeper.Sleep(ctx, delay); err != nil {
			return
		}
	}
}

func (c *Client) connectAndReceive(ctx context.Context, st *stream, streamURL, signalURL string) error {
	conn, err := c.dialer.Dial(ctx, streamURL, signalURL)
	if err != nil {
		return &errs.StreamError{Op: "connect", Err: err}
	}
	if !c.update(ctx, st, func(s *stream) {
		s.conn = conn
		s.info.State = StateConnected
		s.info.Retries = 0
	}) {
		_ = conn.Close()
		return ctx.Err()
	}
	metrics.StreamsConnected.Inc()
	slog.Info("stream connected", "meeting_id", st.info.MeetingID)

	err = c.receive(ctx, st, conn)

	metrics.StreamsConnected.Dec()
	c.store.Update(st.info.MeetingID, func(cur *stream) {
		if cur == st && cur.conn == conn {
			cur.conn = nil
		}
	})
	_ = conn.Close()
	return err
}

func (c *Client) receive(ctx context.Context, st *stream, conn Conn) error {
	for {
		kind, data, err := conn.ReadMessage()
		if err != nil {
			return &errs.StreamError{Op: "read", Err: err}
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if kind != TextMessage {
			continue
		}
		c.handleFrame(ctx, st, data)
	}
}

func (c *Client) handleFrame(ctx context.Context, st *stream, data []byte) {
	f, err := decodeFrame(data)
	if err != nil {
		metrics.StreamFrames.WithLabelValues("malformed").Inc()
		slog.Warn("dropping malformed stream frame", "meeting_id", st.info.MeetingID, "error", err, "frame", preview(data))
		return
	}
	switch f.Type {
	case frameTranscript:
		metrics.StreamFrames.WithLabelValues(frameTranscript).Inc()
		c.handleTranscript(ctx, st, f)
	case frameParticipant:
		metrics.StreamFrames.WithLabelValues(frameParticipant).Inc()
		c.handleParticipant(ctx, st, f)
	case frameAudio:
		metrics.StreamFrames.WithLabelValues(frameAudio).Inc()
	default:
		metrics.StreamFrames.WithLabelValues("unknown").Inc()
		slog.Debug("ignoring stream frame", "meeting_id", st.info.MeetingID, "type", f.Type)
	}
}

func (c *Client) handleTranscript(ctx context.Context, st *stream, f frame) {
	if !f.Final || strings.TrimSpace(f.Text) == "" {
		return
	}
	if ctx.Err() != nil {
		return
	}
	if _, ok := c.bus.AddSegment(st.info.SessionID, livebus.NewSegment{
		Speaker:   f.Speaker,
		Text:      f.Text,
		SpeakerID: f.UserID,
		Source:    metrics.SourceStream,
	}); !ok {
		slog.Warn("stream transcript dropped", "meeting_id", st.info.MeetingID, "session_id", st.info.SessionID)
	}
}

func (c *Client) handleParticipant(ctx context.Context, st *stream, f frame) {
	switch f.Action {
	case "join", "leave":
		slog.Info("stream participant "+f.Action, "meeting_id", st.info.MeetingID, "user_name", f.Speaker)
	}
	if len(f.Participants) == 0 || ctx.Err() != nil {
		return
	}
	c.bus.UpdateParticipantCount(st.info.SessionID, len(f.Participants))
}
