package callback

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/showheysas/tech0notta/internal/retry"
	"github.com/showheysas/tech0notta/internal/transcriber"
)

const pushTimeout = 10 * time.Second

// Forwarder receives recognition results and pushes final ones in order
// through a bounded queue, so a slow server never stalls recognition.
type Forwarder struct {
	pusher  Pusher
	speaker string
	policy  retry.Policy
	sleeper retry.Sleeper

	mu     sync.Mutex
	closed bool
	queue  chan Segment
	done   chan struct{}
}

func NewForwarder(p Pusher, speaker string, queueSize int, policy retry.Policy, sleeper retry.Sleeper) *Forwarder {
	if sleeper == nil {
		sleeper = retry.RealSleeper()
	}
	return &Forwarder{
		pusher:  p,
		speaker: speaker,
		policy:  policy,
		sleeper: sleeper,
		queue:   make(chan Segment, queueSize),
		done:    make(chan struct{}),
	}
}

func (f *Forwarder) OnResult(r transcriber.Result) {
	text := strings.TrimSpace(r.Text)
	if !r.IsFinal || text == "" {
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return
	}
	select {
	case f.queue <- Segment{Speaker: f.speaker, Text: text}:
	default:
		slog.Warn("segment queue full; dropping segment", "text_len", len(text))
	}
}

func (f *Forwarder) OnError(err error) {
	slog.Error("transcriber stream error", "error", err)
}

// Run pushes queued segments until Close is called and the queue drains.
func (f *Forwarder) Run(ctx context.Context) {
	defer close(f.done)
	for seg := range f.queue {
		f.push(ctx, seg)
	}
}

func (f *Forwarder) push(ctx context.Context, seg Segment) {
	for failures := 0; ; {
		pushCtx, cancel := context.WithTimeout(ctx, pushTimeout)
		err := f.pusher.Push(pushCtx, seg)
		cancel()
		if err == nil {
			return
		}
		failures++
		if f.policy.Exhausted(failures) || ctx.Err() != nil {
			slog.Error("failed to push segment; giving up", "error", err, "attempts", failures)
			return
		}
		slog.Warn("failed to push segment; retrying", "error", err, "attempts", failures)
		if err := f.sleeper.Sleep(ctx, f.policy.Delay(failures)); err != nil {
			return
		}
	}
}

// Close stops accepting results and waits for Run to drain the queue.
func (f *Forwarder) Close() {
	f.mu.Lock()
	if !f.closed {
		f.closed = true
		close(f.queue)
	}
	f.mu.Unlock()
	<-f.done
}
