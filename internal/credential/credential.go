package credential

import "context"

// Role is the meeting role encoded into an SDK credential.
type Role int

const (
	RoleParticipant Role = 0
	RoleHost        Role = 1
)

type Issuer interface {
	// Issue returns a signed, time-boxed token scoped to meetingID.
	Issue(ctx context.Context, meetingID string, role Role) (string, error)
	// Configured reports whether Issue can succeed at all.
	Configured() bool
}
