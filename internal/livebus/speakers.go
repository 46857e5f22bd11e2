package livebus

import (
	"log/slog"
	"maps"
)

// SetSpeakerMapping replaces the session's speaker mapping and rewrites the
// display name of every buffered segment whose speaker id it names. Segment
// ids and positions are left alone.
func (b *Bus) SetSpeakerMapping(sessionID string, mapping map[string]string) bool {
	rewritten := 0
	ok := b.store.Update(sessionID, func(s *liveSession) {
		s.mapping = maps.Clone(mapping)
		if s.mapping == nil {
			s.mapping = make(map[string]string)
		}
		for i := range s.segments {
			seg := &s.segments[i]
			if seg.SpeakerID == "" {
				continue
			}
			name, ok := s.mapping[seg.SpeakerID]
			if !ok {
				continue
			}
			seg.Speaker = name
			seg.Initials = initials(name)
			rewritten++
		}
	})
	if !ok {
		slog.Warn("speaker mapping for unknown live session", "session_id", sessionID)
		return false
	}
	slog.Info("speaker mapping updated", "session_id", sessionID, "entries", len(mapping), "rewritten_segments", rewritten)
	return true
}

func (b *Bus) SpeakerMapping(sessionID string) (map[string]string, bool) {
	var out map[string]string
	ok := b.store.Read(sessionID, func(s *liveSession) { out = maps.Clone(s.mapping) })
	return out, ok
}

// UniqueSpeakers lists one entry per speaker key in first-seen order.
func (b *Bus) UniqueSpeakers(sessionID string) ([]Speaker, bool) {
	out := []Speaker{}
	ok := b.store.Read(sessionID, func(s *liveSession) {
		seen := make(map[string]struct{})
		for _, seg := range s.segments {
			key := speakerKey(seg.SpeakerID, seg.Speaker)
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			out = append(out, Speaker{
				SpeakerID:  seg.SpeakerID,
				Label:      seg.Speaker,
				MappedName: s.mapping[seg.SpeakerID],
			})
		}
	})
	return out, ok
}
