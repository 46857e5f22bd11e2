// Package transcriber is the streaming speech recognition contract used by
// the meeting worker.
package transcriber

import (
	"context"
	"time"
)

// PCM layout every StreamWriter expects: 16 kHz mono signed 16-bit little endian.
const (
	SampleRateHertz = 16000
	ChannelCount    = 1
	BytesPerSample  = 2
)

type Result struct {
	Text    string
	IsFinal bool
	// End is the offset of the end of this result from the start of the stream.
	End time.Duration
}

type StreamWriter interface {
	Write(pcm []byte) error
	Close() error
}

type ResultReceiver interface {
	OnResult(r Result)
	OnError(err error)
}

type Transcriber interface {
	StartStreaming(ctx context.Context, sessionID, language string, receiver ResultReceiver) (StreamWriter, error)
}
