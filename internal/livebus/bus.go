// Package livebus buffers real-time transcript segments per session and
// serves cursor-based reads to polling consumers.
package livebus

import (
	"fmt"
	"log/slog"
	"maps"
	"time"

	"github.com/google/uuid"
	"github.com/showheysas/tech0notta/internal/metrics"
	"github.com/showheysas/tech0notta/internal/registry"
)

type liveSession struct {
	info     Session
	segments []Segment
	index    map[string]int
	mapping  map[string]string
	colors   map[string]string
}

func (s *liveSession) snapshot() Session {
	out := s.info
	out.SegmentCount = len(s.segments)
	out.SpeakerMapping = maps.Clone(s.mapping)
	return out
}

// Store is the live session registry.
type Store = registry.Map[string, *liveSession]

func NewStore() *Store {
	return registry.New[string, *liveSession]()
}

type Bus struct {
	store *Store
	loc   *time.Location
	now   func() time.Time
	newID func() string
}

func NewBus(store *Store, loc *time.Location) *Bus {
	if loc == nil {
		loc = time.UTC
	}
	return &Bus{
		store: store,
		loc:   loc,
		now:   time.Now,
		newID: uuid.NewString,
	}
}

// Create registers a live session. An existing session is returned untouched
// with created=false.
func (b *Bus) Create(sessionID, meetingID, topic string) (Session, bool) {
	if topic == "" {
		topic = fmt.Sprintf("Meeting %s", meetingID)
	}
	fresh := &liveSession{
		info: Session{
			ID:        sessionID,
			MeetingID: meetingID,
			Topic:     topic,
			StartedAt: b.now(),
		},
		index:   make(map[string]int),
		mapping: make(map[string]string),
		colors:  make(map[string]string),
	}
	var (
		out     Session
		created bool
	)
	b.store.Locked(func(items map[string]*liveSession) {
		if cur, ok := items[sessionID]; ok {
			out = cur.snapshot()
			return
		}
		items[sessionID] = fresh
		out = fresh.snapshot()
		created = true
	})
	if created {
		metrics.LiveSessions.Inc()
		slog.Info("live session created", "session_id", sessionID, "meeting_id", meetingID)
	}
	return out, created
}

func (b *Bus) Get(sessionID string) (Session, bool) {
	var out Session
	ok := b.store.Read(sessionID, func(s *liveSession) { out = s.snapshot() })
	return out, ok
}

func (b *Bus) Sessions() []Session {
	return registry.Collect(b.store, func(s *liveSession) (Session, bool) { return s.snapshot(), true })
}

// AddSegment appends a segment to a known session. Id assignment and append
// happen in one critical section so concurrent producers agree on order.
func (b *Bus) AddSegment(sessionID string, in NewSegment) (Segment, bool) {
	now := b.now()
	var seg Segment
	ok := b.store.Update(sessionID, func(s *liveSession) {
		display := in.Speaker
		if in.SpeakerID != "" {
			if mapped := s.mapping[in.SpeakerID]; mapped != "" {
				display = mapped
			}
		}
		label := in.Time
		if label == "" {
			label = now.In(b.loc).Format(timeLabelLayout)
		}
		seg = Segment{
			ID:         b.newID(),
			SpeakerID:  in.SpeakerID,
			Speaker:    display,
			Text:       in.Text,
			Time:       label,
			Timestamp:  now,
			Initials:   initials(display),
			ColorClass: s.colorFor(speakerKey(in.SpeakerID, in.Speaker)),
		}
		s.index[seg.ID] = len(s.segments)
		s.segments = append(s.segments, seg)
	})
	if !ok {
		slog.Warn("segment dropped for unknown live session", "session_id", sessionID)
		return Segment{}, false
	}
	source := in.Source
	if source == "" {
		source = metrics.SourcePush
	}
	metrics.SegmentsAppended.WithLabelValues(source).Inc()
	slog.Debug("segment appended", "session_id", sessionID, "segment_id", seg.ID, "speaker", seg.Speaker)
	return seg, true
}

func (s *liveSession) colorFor(key string) string {
	if c, ok := s.colors[key]; ok {
		return c
	}
	c := Palette[len(s.colors)%len(Palette)]
	s.colors[key] = c
	return c
}

// Segments reads buffered segments. Without a cursor, or with a cursor that
// matches nothing, it returns the most recent limit segments. With a known
// cursor it returns up to limit segments strictly after it. limit <= 0 means
// no cap.
//
// An unmatched cursor is still capped by limit: a poller whose cursor was
// cleared resumes from the newest segments, not the whole buffer.
func (b *Bus) Segments(sessionID, sinceID string, limit int) []Segment {
	out := []Segment{}
	b.store.Read(sessionID, func(s *liveSession) {
		if sinceID != "" {
			if i, ok := s.index[sinceID]; ok {
				after := s.segments[i+1:]
				if limit > 0 && len(after) > limit {
					after = after[:limit]
				}
				out = append(out, after...)
				return
			}
		}
		tail := s.segments
		if limit > 0 && len(tail) > limit {
			tail = tail[len(tail)-limit:]
		}
		out = append(out, tail...)
	})
	return out
}

// Transcript returns the session together with every buffered segment.
func (b *Bus) Transcript(sessionID string) (Session, []Segment, bool) {
	var (
		info Session
		segs []Segment
	)
	ok := b.store.Read(sessionID, func(s *liveSession) {
		info = s.snapshot()
		segs = append([]Segment(nil), s.segments...)
	})
	return info, segs, ok
}

func (b *Bus) UpdateParticipantCount(sessionID string, count int) bool {
	return b.store.Update(sessionID, func(s *liveSession) { s.info.ParticipantCount = count })
}

func (b *Bus) Clear(sessionID string) bool {
	if _, ok := b.store.Delete(sessionID); !ok {
		return false
	}
	metrics.LiveSessions.Dec()
	slog.Info("live session cleared", "session_id", sessionID)
	return true
}
