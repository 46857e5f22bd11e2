package botsession

import (
	"time"

	"github.com/showheysas/tech0notta/internal/launcher"
)

type State string

const (
	StatePending   State = "PENDING"
	StateJoining   State = "JOINING"
	StateInMeeting State = "IN_MEETING"
	StateLeaving   State = "LEAVING"
	StateCompleted State = "COMPLETED"
	StateError     State = "ERROR"
)

// Terminal reports whether no further transition is possible.
func (s State) Terminal() bool {
	return s == StateCompleted || s == StateError
}

// active reports whether a session still counts against the one-per-meeting rule.
func (s State) active() bool {
	return !s.Terminal()
}

type Session struct {
	ID        string
	MeetingID string
	Password  string
	State     State
	Handle    launcher.Handle
	Message   string
	CreatedAt time.Time
	UpdatedAt time.Time
}
