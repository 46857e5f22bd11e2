package ingest

import "context"

type MessageKind int

const (
	TextMessage MessageKind = iota + 1
	BinaryMessage
)

// Conn is one open stream connection. ReadMessage blocks until a frame
// arrives or the connection fails; Close unblocks it.
type Conn interface {
	ReadMessage() (MessageKind, []byte, error)
	Close() error
}

type Dialer interface {
	Dial(ctx context.Context, streamURL, signalURL string) (Conn, error)
}

type ConnState string

const (
	StateDisconnected ConnState = "disconnected"
	StateConnecting   ConnState = "connecting"
	StateConnected    ConnState = "connected"
)

// StreamSession is a snapshot of one meeting's stream connection.
type StreamSession struct {
	MeetingID string
	Topic     string
	SessionID string
	StreamURL string
	SignalURL string
	State     ConnState
	Retries   int
}
